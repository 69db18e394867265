package flow

import (
	"fmt"
	"log"
	"time"
)

// Transport is the synchronous request/response bus primitive: write
// len(w) bytes, then read len(r) bytes. Either slice may be empty.
// A bus timeout surfaces as an error, never as a hang.
type Transport interface {
	Transfer(w, r []byte) error
}

// Clock supplies monotonic microsecond timestamps for sample stamping.
type Clock interface {
	NowMicros() uint64
}

// Publisher is the sink for decoded samples.
type Publisher interface {
	PublishFlow(FlowSample) error
	PublishDistance(DistanceSample) error
}

// Counter and Observer are the minimal faces of the perf counters the
// controller feeds; prometheus counters and histograms satisfy them.
type Counter interface{ Inc() }
type Observer interface{ Observe(float64) }

// Counters are optional instrumentation hooks; nil fields are skipped.
type Counters struct {
	Samples       Counter  // successful collect cycles
	CommsErrors   Counter  // failed transfers, measure or collect
	SampleSeconds Observer // collect duration
}

// State of the measurement cycle.
type State uint8

const (
	// StateIdle: no measurement outstanding; the next tick issues one.
	StateIdle State = iota
	// StateMeasureIssued: the measure command was accepted; the next
	// tick collects the frame.
	StateMeasureIssued
	// StateCollectPending: a collect transfer is in progress. Only
	// observable from within the tick itself.
	StateCollectPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMeasureIssued:
		return "measure issued"
	case StateCollectPending:
		return "collect pending"
	}
	return "unknown"
}

// Directive tells the scheduling host when to tick again. The
// controller itself never sleeps or blocks between ticks.
type Directive uint8

const (
	// RunAfterInterval: tick again after the configured poll interval.
	RunAfterInterval Directive = iota
	// RunNow: tick again at the next scheduling opportunity.
	RunNow
)

// Poll interval bounds.
const (
	DefaultInterval = 100 * time.Millisecond
	MinInterval     = 10 * time.Millisecond
	MaxInterval     = time.Second
)

// Config assembles a Controller. Transport, Clock and Publisher are
// required; everything else has usable defaults.
type Config struct {
	DeviceID string
	Mode     FrameMode
	// Rotation reorients the flow and delta-angle vectors from sensor
	// frame to body frame. It is deliberately independent of
	// Orientation below; the two have never been coupled.
	Rotation Rotation
	// Orientation is the facing code stamped on distance samples only.
	Orientation uint8
	// Interval is the poll cadence the scheduling host should honor
	// for RunAfterInterval. Zero means DefaultInterval.
	Interval time.Duration
	// Primary marks the first-registered instance of the distance
	// channel; only the primary emits DistanceSamples.
	Primary bool

	Transport Transport
	Clock     Clock
	Publisher Publisher
	Counters  Counters
}

// Controller drives one sensor through measure/collect cycles. It is
// single-threaded by contract: Tick must not be called concurrently,
// and each instance owns its Transport exclusively.
type Controller struct {
	cfg   Config
	state State

	samples     uint64
	commsErrors uint64
}

// NewController validates cfg and returns a controller in StateIdle.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Transport == nil || cfg.Clock == nil || cfg.Publisher == nil {
		return nil, fmt.Errorf("flow %s: transport, clock and publisher are required", cfg.DeviceID)
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < MinInterval || cfg.Interval > MaxInterval {
		return nil, fmt.Errorf("flow %s: poll interval %v out of range [%v, %v]",
			cfg.DeviceID, cfg.Interval, MinInterval, MaxInterval)
	}
	if cfg.Rotation >= numRotations {
		return nil, fmt.Errorf("flow %s: unknown sensor rotation %d", cfg.DeviceID, cfg.Rotation)
	}
	return &Controller{cfg: cfg}, nil
}

// DeviceID returns the identity stamped on published samples.
func (c *Controller) DeviceID() string { return c.cfg.DeviceID }

// Interval returns the cadence for RunAfterInterval directives.
func (c *Controller) Interval() time.Duration { return c.cfg.Interval }

// Primary reports whether this instance owns the distance channel.
func (c *Controller) Primary() bool { return c.cfg.Primary }

// State returns the current cycle state.
func (c *Controller) State() State { return c.state }

// Samples returns the number of successfully collected cycles.
func (c *Controller) Samples() uint64 { return c.samples }

// CommsErrors returns the number of failed transfers so far.
func (c *Controller) CommsErrors() uint64 { return c.commsErrors }

// Probe checks that the device at the configured address really is an
// optical flow sensor. A ll40ls lidar can sit on the same address but
// rejects a plain 22-byte read, whereas the flow happily returns data.
// On success the first measurement command is issued immediately.
func (c *Controller) Probe() error {
	var buf [FullFrameSize]byte
	if err := c.cfg.Transport.Transfer(nil, buf[:]); err != nil {
		return fmt.Errorf("flow %s: probe read: %w", c.cfg.DeviceID, err)
	}
	if err := c.measure(); err != nil {
		return fmt.Errorf("flow %s: probe: %w", c.cfg.DeviceID, err)
	}
	c.state = StateMeasureIssued
	return nil
}

// Tick runs exactly one measure-or-collect step and reports when the
// host should tick again. It never blocks waiting for the device.
func (c *Controller) Tick() Directive {
	switch c.state {
	case StateIdle:
		if err := c.measure(); err != nil {
			c.commsError("measure", err)
			// No immediate retry; the next attempt follows the
			// normal cadence.
			return RunAfterInterval
		}
		c.state = StateMeasureIssued
		return RunAfterInterval

	case StateMeasureIssued:
		c.state = StateCollectPending
		if err := c.collect(); err != nil {
			c.commsError("collect", err)
			// Discard the partial cycle and restart the state
			// machine with no delay. Retries are unbounded while
			// the bus keeps failing.
			c.state = StateIdle
			return RunNow
		}
		c.state = StateIdle
		return RunAfterInterval
	}

	// CollectPending is never left standing between ticks.
	c.state = StateIdle
	return RunNow
}

// measure sends the single-byte command that begins (or continues) an
// integration period on the device.
func (c *Controller) measure() error {
	cmd := [1]byte{c.cfg.Mode.Command()}
	if err := c.cfg.Transport.Transfer(cmd[:], nil); err != nil {
		return fmt.Errorf("measure command 0x%02x: %w", cmd[0], err)
	}
	return nil
}

// collect reads the frame for the previously issued measurement,
// decodes it, rotates the vector fields into the body frame and hands
// the assembled samples to the publisher.
func (c *Controller) collect() error {
	begin := c.cfg.Clock.NowMicros()

	buf := make([]byte, c.cfg.Mode.ReadSize())
	if err := c.cfg.Transport.Transfer(nil, buf); err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	sampleTS := c.cfg.Clock.NowMicros()

	var fi IntegralFrame
	if c.cfg.Mode == ModeCombined {
		_, fi = DecodeFullFrame(buf)
	} else {
		fi = DecodeIntegralFrame(buf)
	}

	// Integral fields are radians scaled by 10000. The flow vector has
	// no z component; it rides through the rotation as zero and is
	// truncated back to two components afterwards.
	pixelFlow := c.cfg.Rotation.Apply(Vec3{
		X: float32(fi.PixelFlowXIntegral) / 10000,
		Y: float32(fi.PixelFlowYIntegral) / 10000,
	})
	deltaAngle := c.cfg.Rotation.Apply(Vec3{
		X: float32(fi.GyroXRateIntegral) / 10000,
		Y: float32(fi.GyroYRateIntegral) / 10000,
		Z: float32(fi.GyroZRateIntegral) / 10000,
	})

	fs := FlowSample{
		DeviceID:              c.cfg.DeviceID,
		TimestampSample:       sampleTS,
		PixelFlow:             [2]float32{pixelFlow.X, pixelFlow.Y},
		DeltaAngle:            [3]float32{deltaAngle.X, deltaAngle.Y, deltaAngle.Z},
		DeltaAngleAvailable:   true,
		IntegrationTimespanUs: fi.IntegrationTimespan,
		Quality:               fi.Quality,
		MaxFlowRate:           MaxFlowRate,
		MinGroundDistance:     MinGroundDistance,
		MaxGroundDistance:     MaxGroundDistance,
	}
	fs.Timestamp = c.cfg.Clock.NowMicros()

	if err := c.cfg.Publisher.PublishFlow(fs); err != nil {
		log.Printf("flow %s: publish flow sample: %v", c.cfg.DeviceID, err)
	}

	if c.cfg.Primary {
		ds := DistanceSample{
			DeviceID:        c.cfg.DeviceID,
			CurrentDistance: float32(fi.GroundDistance) / 1000,
			MinDistance:     DistanceMin,
			MaxDistance:     DistanceMax,
			SignalQuality:   -1,
			Type:            DistanceTypeUltrasound,
			Orientation:     c.cfg.Orientation,
		}
		ds.Timestamp = c.cfg.Clock.NowMicros()
		if err := c.cfg.Publisher.PublishDistance(ds); err != nil {
			log.Printf("flow %s: publish distance sample: %v", c.cfg.DeviceID, err)
		}
	}

	c.samples++
	if c.cfg.Counters.Samples != nil {
		c.cfg.Counters.Samples.Inc()
	}
	if c.cfg.Counters.SampleSeconds != nil {
		c.cfg.Counters.SampleSeconds.Observe(float64(c.cfg.Clock.NowMicros()-begin) / 1e6)
	}
	return nil
}

func (c *Controller) commsError(step string, err error) {
	c.commsErrors++
	if c.cfg.Counters.CommsErrors != nil {
		c.cfg.Counters.CommsErrors.Inc()
	}
	log.Printf("flow %s: %s error: %v", c.cfg.DeviceID, step, err)
}
