package host

import (
	"fmt"

	"github.com/vsariola/silta"
)

type (
	// channelBuffers is the per-name buffer pair of the synchronizer: tick
	// holds one control block of the engine's audio-rate signal, refreshed
	// once per tick; accumulation holds one host block, one sample per
	// output frame, overwritten as the bridge advances through a callback.
	channelBuffers struct {
		name         string
		tick         []float32
		accumulation []float32
	}

	// channelStore maps channel names to their buffer pairs, preserving
	// insertion order so the per-tick refresh iterates channels
	// deterministically.
	channelStore struct {
		ordered []*channelBuffers
		index   map[string]*channelBuffers

		hostBlockSize int
		tickSize      int
	}
)

func makeChannelStore(hostBlockSize int) channelStore {
	return channelStore{
		index:         make(map[string]*channelBuffers),
		hostBlockSize: hostBlockSize,
	}
}

// register allocates the buffer pair for name if not already present.
// Idempotent. Never called on the real-time path.
func (c *channelStore) register(name string) {
	if _, ok := c.index[name]; ok {
		return
	}
	buffers := &channelBuffers{
		name:         name,
		tick:         make([]float32, c.tickSize),
		accumulation: make([]float32, c.hostBlockSize),
	}
	c.ordered = append(c.ordered, buffers)
	c.index[name] = buffers
}

// setTickSize reallocates every tick buffer for a new control block size,
// e.g. after a new engine has been set. Off the real-time path.
func (c *channelStore) setTickSize(size int) {
	c.tickSize = size
	for _, buffers := range c.ordered {
		buffers.tick = make([]float32, size)
	}
}

// refresh replaces every registered channel's tick buffer with a fresh query
// from the engine. An engine returning a buffer of unexpected size is a
// contract violation and faults the whole refresh; buffers are never
// truncated or padded silently.
func (c *channelStore) refresh(engine silta.Engine) error {
	for _, buffers := range c.ordered {
		samples, err := engine.AudioChannel(buffers.name)
		if err != nil {
			return &silta.EngineFault{Op: "AudioChannel", Err: err}
		}
		if len(samples) != c.tickSize {
			return &silta.EngineFault{
				Op:  "AudioChannel",
				Err: fmt.Errorf("channel %q returned %d samples, expected %d", buffers.name, len(samples), c.tickSize),
			}
		}
		copy(buffers.tick, samples)
	}
	return nil
}

// capture copies each channel's tick buffer sample at tickIndex into its
// accumulation buffer at frame. Called once per unmuted frame by the bridge.
func (c *channelStore) capture(frame, tickIndex int) {
	if tickIndex >= c.tickSize || frame >= c.hostBlockSize {
		return
	}
	for _, buffers := range c.ordered {
		buffers.accumulation[frame] = buffers.tick[tickIndex]
	}
}

func (c *channelStore) names() []string {
	names := make([]string, len(c.ordered))
	for i, buffers := range c.ordered {
		names[i] = buffers.name
	}
	return names
}
