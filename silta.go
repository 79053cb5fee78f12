package silta

import (
	"fmt"
)

type (
	// Engine is the capability interface of the external synthesis engine
	// that the bridge drives. One Tick advances the engine state by
	// ControlBlockSize frames; between ticks, the per-frame samples of the
	// current control block are read and written through the offset-indexed
	// accessors. The engine is injected into a host.Session, so the bridge
	// and the channel synchronizer can be tested against a fake engine.
	Engine interface {
		// Tick advances the engine by one control block. A non-nil error
		// means the engine is faulted and the current output is not usable.
		Tick() error

		// ControlBlockSize returns the number of frames the engine produces
		// per Tick. Zero is a valid degenerate configuration in which the
		// engine is never ticked.
		ControlBlockSize() int

		// ChannelCount returns the number of interleaved audio channels the
		// engine is configured for.
		ChannelCount() int

		// ReferenceFullScale is the engine-side amplitude corresponding to
		// 0 dBFS, used to normalize between host and engine sample ranges.
		ReferenceFullScale() float32

		// SetInputSample forwards one host input sample to the engine, at
		// the given offset within the current control block.
		SetInputSample(offset, channel int, value float32)

		// OutputSample reads one output sample of the current control block.
		OutputSample(offset, channel int) float32

		// AudioChannel returns the engine's audio-rate signal for the named
		// channel, exactly ControlBlockSize samples of the current control
		// block. The returned slice is only valid until the next Tick.
		AudioChannel(name string) ([]float32, error)

		// SetChannel sets a control-rate channel value. Not deadline-bound;
		// called at initialization time and from MIDI routing.
		SetChannel(name string, value float32)

		// NextMessage pops one pending diagnostic message from the engine,
		// returning false when the queue is empty. Polled off the real-time
		// path.
		NextMessage() (string, bool)
	}
)

// ApplyControllers seeds the control channels declared by the descriptor
// into the engine. Called once after the engine has compiled, before any
// processing starts.
func ApplyControllers(e Engine, controllers []Controller) {
	for _, c := range controllers {
		if c.Channel == "" {
			continue
		}
		e.SetChannel(c.Channel, float32(c.Value))
	}
}

// EngineFault wraps an error returned by an Engine call. It is returned, not
// panicked, through the real-time path; the caller decides whether to mute
// the output for the block.
type EngineFault struct {
	Op  string // the engine operation that failed
	Err error
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("engine fault in %s: %v", e.Op, e.Err)
}

func (e *EngineFault) Unwrap() error { return e.Err }

// ConfigurationError indicates a host/engine configuration mismatch, such as
// a wrong channel count or a zero-length buffer where a non-zero one is
// required. Detected at registration time, before entering the real-time
// path.
type ConfigurationError string

func (e ConfigurationError) Error() string { return string(e) }
