package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/extramedium22/px4flow/internal/bus"
	"github.com/extramedium22/px4flow/internal/config"
	"github.com/extramedium22/px4flow/internal/flow"
	"github.com/extramedium22/px4flow/internal/perf"
	"github.com/extramedium22/px4flow/internal/pub"
)

// The sensor can need several seconds after power-up before it answers
// on the bus, so the initial probe is retried for a while.
const (
	probeRetryDelay = 500 * time.Millisecond
	probeDeadline   = 6 * time.Second
)

// monotonicClock stamps samples with microseconds since process start.
type monotonicClock struct {
	start time.Time
}

func newMonotonicClock() monotonicClock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

type instance struct {
	ctrl      *flow.Controller
	transport *bus.I2C
}

// RunProducer starts one measurement cycle per configured bus and
// publishes decoded samples until SIGINT/SIGTERM. facing is the
// orientation code stamped on distance samples (from -R); it does not
// affect the vector rotation, which comes from SENSOR_ROTATION.
func RunProducer(facing uint8) error {
	log.Println("starting px4flow producer")

	cfg := config.Get()

	publisher, err := pub.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicOpticalFlow, cfg.TopicDistanceSensor)
	if err != nil {
		return err
	}
	defer publisher.Close()

	mode := flow.ModeIntegral
	if cfg.FrameMode == "combined" {
		mode = flow.ModeCombined
	}

	registry := pub.NewRegistry()
	clock := newMonotonicClock()

	var instances []instance
	closeAll := func() {
		for _, in := range instances {
			if err := in.transport.Close(); err != nil {
				log.Printf("flow %s: bus close: %v", in.ctrl.DeviceID(), err)
			}
		}
	}

	for _, busName := range cfg.I2CBuses {
		tr, err := bus.OpenI2C(busName, cfg.I2CAddress)
		if err != nil {
			closeAll()
			return err
		}

		deviceID := fmt.Sprintf("px4flow-%s.%02x", busName, cfg.I2CAddress)
		ctrl, err := flow.NewController(flow.Config{
			DeviceID:    deviceID,
			Mode:        mode,
			Rotation:    flow.Rotation(cfg.SensorRotation),
			Orientation: facing,
			Interval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
			Primary:     registry.Claim(cfg.TopicDistanceSensor) == 0,
			Transport:   tr,
			Clock:       clock,
			Publisher:   publisher,
			Counters: flow.Counters{
				Samples:       perf.Samples(deviceID),
				CommsErrors:   perf.CommsErrors(deviceID),
				SampleSeconds: perf.SampleSeconds(deviceID),
			},
		})
		if err != nil {
			tr.Close()
			closeAll()
			return err
		}

		if err := probeWithRetry(ctrl); err != nil {
			tr.Close()
			closeAll()
			return err
		}

		log.Printf("flow %s: started (%s frames, rotation %s, primary=%v, interval %v)",
			deviceID, mode, flow.Rotation(cfg.SensorRotation), ctrl.Primary(), ctrl.Interval())
		instances = append(instances, instance{ctrl: ctrl, transport: tr})
	}

	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/status", statusHandler(instances, facing))
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()
	log.Printf("metrics served on %s", cfg.MetricsAddr)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, in := range instances {
		wg.Add(1)
		go func(c *flow.Controller) {
			defer wg.Done()
			runCycles(c, stop)
		}(in.ctrl)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("got signal %v, shutting down", s)

	// Shutdown lands between ticks, never mid-transfer.
	close(stop)
	wg.Wait()
	closeAll()
	return nil
}

// probeWithRetry keeps probing until the device answers or the startup
// grace period is over.
func probeWithRetry(c *flow.Controller) error {
	deadline := time.Now().Add(probeDeadline)
	for {
		err := c.Probe()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		log.Printf("%v (device may still be booting, retrying)", err)
		time.Sleep(probeRetryDelay)
	}
}

// runCycles is the scheduling host for one controller: it ticks the
// state machine and honors its run-now / run-after-interval directives.
func runCycles(c *flow.Controller, stop <-chan struct{}) {
	timer := time.NewTimer(c.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		switch c.Tick() {
		case flow.RunNow:
			timer.Reset(0)
		default:
			timer.Reset(c.Interval())
		}
	}
}

// statusHandler reports the static per-instance setup; live counters
// are on /metrics.
func statusHandler(instances []instance, facing uint8) http.HandlerFunc {
	type deviceStatus struct {
		DeviceID   string `json:"device_id"`
		Primary    bool   `json:"primary"`
		IntervalMS int64  `json:"interval_ms"`
		Facing     uint8  `json:"distance_facing"`
	}
	devices := make([]deviceStatus, 0, len(instances))
	for _, in := range instances {
		devices = append(devices, deviceStatus{
			DeviceID:   in.ctrl.DeviceID(),
			Primary:    in.ctrl.Primary(),
			IntervalMS: in.ctrl.Interval().Milliseconds(),
			Facing:     facing,
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(devices); err != nil {
			log.Printf("status encode error: %v", err)
		}
	}
}
