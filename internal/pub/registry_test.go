package pub

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extramedium22/px4flow/internal/flow"
)

func TestClaimNumbersInstancesPerTopic(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 0, r.Claim("distance_sensor"))
	assert.Equal(t, 1, r.Claim("distance_sensor"))
	assert.Equal(t, 2, r.Claim("distance_sensor"))

	// Topics are independent.
	assert.Equal(t, 0, r.Claim("optical_flow"))
}

type frameTransport struct {
	frame []byte
}

func (f *frameTransport) Transfer(w, r []byte) error {
	copy(r, f.frame)
	return nil
}

type countClock struct{ now uint64 }

func (c *countClock) NowMicros() uint64 { c.now++; return c.now }

type countPublisher struct {
	flows, dists int
}

func (p *countPublisher) PublishFlow(flow.FlowSample) error         { p.flows++; return nil }
func (p *countPublisher) PublishDistance(flow.DistanceSample) error { p.dists++; return nil }

// Dedup law: with several concurrently registered instances, exactly
// one emits distance samples in steady state while every instance
// emits flow samples each successful cycle.
func TestFirstClaimOwnsDistanceChannel(t *testing.T) {
	frame := make([]byte, flow.IntegralFrameSize)
	binary.LittleEndian.PutUint16(frame[20:22], 1500)
	frame[24] = 200

	r := NewRegistry()
	sink := &countPublisher{}

	const n = 3
	var controllers []*flow.Controller
	for i := 0; i < n; i++ {
		c, err := flow.NewController(flow.Config{
			DeviceID:  "px4flow-test",
			Primary:   r.Claim("distance_sensor") == 0,
			Transport: &frameTransport{frame: frame},
			Clock:     &countClock{},
			Publisher: sink,
		})
		require.NoError(t, err)
		controllers = append(controllers, c)
	}

	const cycles = 5
	for i := 0; i < cycles; i++ {
		for _, c := range controllers {
			c.Tick() // measure
			c.Tick() // collect
		}
	}

	assert.Equal(t, n*cycles, sink.flows, "every instance publishes flow")
	assert.Equal(t, cycles, sink.dists, "only the first-registered instance publishes distance")
}
