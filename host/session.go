package host

import (
	"fmt"
	"sync/atomic"

	"github.com/vsariola/silta"
)

type (
	// Session is the real-time bridge between the host audio callback and
	// the engine's control-rate ticks. It owns the persistent tick phase,
	// the mute and input-feed-through flags and the named channel buffers,
	// so multiple engine instances can be bridged concurrently, each with
	// its own Session. ProcessBlock is called on the audio callback thread;
	// everything else runs off the real-time path.
	Session struct {
		engine           silta.Engine
		channels         channelStore
		hostBlockSize    int
		controlBlockSize int
		channelCount     int
		fullScale        float32

		// tickIndex is the frame counter within the current control block,
		// in [0, controlBlockSize). It is the sole carrier of tick phase
		// continuity across callbacks.
		tickIndex int

		mute      atomic.Bool
		feedInput atomic.Bool

		broker *Broker // the broker used to communicate with the non-real-time goroutines
	}
)

// NewSession creates a session for host callbacks of at most hostBlockSize
// frames. No engine is attached yet; until SetEngine succeeds, ProcessBlock
// writes silence.
func NewSession(broker *Broker, hostBlockSize int) (*Session, error) {
	if hostBlockSize <= 0 {
		return nil, silta.ConfigurationError("host block size must be positive")
	}
	return &Session{
		broker:        broker,
		hostBlockSize: hostBlockSize,
		channels:      makeChannelStore(hostBlockSize),
	}, nil
}

// SetEngine attaches a (re)compiled engine to the session, reallocating the
// channel tick buffers for its control block size and resetting the tick
// phase. Passing nil detaches the engine; ProcessBlock then writes silence.
// Never called on the real-time path.
func (s *Session) SetEngine(engine silta.Engine) error {
	if engine == nil {
		s.engine = nil
		return nil
	}
	channelCount := engine.ChannelCount()
	if channelCount <= 0 {
		return silta.ConfigurationError(fmt.Sprintf("engine reports %d channels", channelCount))
	}
	controlBlockSize := engine.ControlBlockSize()
	if controlBlockSize < 0 {
		return silta.ConfigurationError(fmt.Sprintf("engine reports control block size %d", controlBlockSize))
	}
	fullScale := engine.ReferenceFullScale()
	if fullScale == 0 {
		return silta.ConfigurationError("engine reports zero reference full scale")
	}
	s.engine = engine
	s.channelCount = channelCount
	s.controlBlockSize = controlBlockSize
	s.fullScale = fullScale
	s.tickIndex = 0
	s.channels.setTickSize(controlBlockSize)
	if controlBlockSize > 0 {
		// fill the tick buffers with the engine's initial output, so frames
		// captured before the first tick are not all zero
		if err := s.channels.refresh(engine); err != nil {
			return err
		}
	}
	return nil
}

// RegisterChannel allocates capture buffers for the named audio-rate channel
// if not already present. Idempotent. Never called on the real-time path.
func (s *Session) RegisterChannel(name string) error {
	if name == "" {
		return silta.ConfigurationError("channel name must not be empty")
	}
	s.channels.register(name)
	return nil
}

// Accumulated returns the named channel's captured samples for the last
// completed callback, one per output frame. The returned slice is a snapshot
// only valid until the next ProcessBlock call; callers reading concurrently
// with the audio thread must copy it out under their own synchronization.
func (s *Session) Accumulated(name string) ([]float32, bool) {
	buffers, ok := s.channels.index[name]
	if !ok {
		return nil, false
	}
	return buffers.accumulation, true
}

// ChannelNames returns the registered channel names in registration order.
func (s *Session) ChannelNames() []string { return s.channels.names() }

func (s *Session) Muted() bool         { return s.mute.Load() }
func (s *Session) SetMuted(m bool)     { s.mute.Store(m) }
func (s *Session) FeedInput() bool     { return s.feedInput.Load() }
func (s *Session) SetFeedInput(f bool) { s.feedInput.Store(f) }

// ProcessBlock services one host callback: frameCount interleaved frames of
// channelCount channels, in place. The buffer holds the host input on entry
// (forwarded to the engine when input feed-through is on) and is completely
// overwritten with the engine's output, divided by the reference full scale.
// The engine is ticked each time a control block's worth of frames has been
// consumed; the tick phase persists across calls, so host and control block
// sizes need not be multiples of each other.
//
// On an engine fault the remainder of the buffer is written with silence and
// the fault is returned; ProcessBlock never panics across the callback.
func (s *Session) ProcessBlock(buffer []float32, frameCount, channelCount int) error {
	if frameCount < 0 || channelCount <= 0 || len(buffer) < frameCount*channelCount {
		return silta.ConfigurationError(fmt.Sprintf("buffer of %d samples cannot hold %d frames of %d channels", len(buffer), frameCount, channelCount))
	}
	buffer = buffer[:frameCount*channelCount]
	if s.engine == nil {
		zero(buffer)
		return nil
	}
	if channelCount != s.channelCount {
		zero(buffer)
		return silta.ConfigurationError(fmt.Sprintf("host uses %d channels, engine %d", channelCount, s.channelCount))
	}
	if frameCount > s.hostBlockSize {
		zero(buffer)
		return silta.ConfigurationError(fmt.Sprintf("callback of %d frames exceeds host block size %d", frameCount, s.hostBlockSize))
	}
	scale := s.fullScale
	for frame := 0; frame < frameCount; frame++ {
		base := frame * channelCount
		if s.mute.Load() {
			// muted frames stay silent without touching the engine; the
			// tick phase freezes so unmuting resumes exactly where the
			// engine left off
			zero(buffer[base : base+channelCount])
			continue
		}
		for channel := 0; channel < channelCount; channel++ {
			if s.feedInput.Load() {
				s.engine.SetInputSample(s.tickIndex, channel, buffer[base+channel]*scale)
			}
			buffer[base+channel] = s.engine.OutputSample(s.tickIndex, channel) / scale
		}
		s.channels.capture(frame, s.tickIndex)
		if s.controlBlockSize > 0 {
			s.tickIndex++
			if s.tickIndex >= s.controlBlockSize {
				s.tickIndex = 0
				if err := s.engine.Tick(); err != nil {
					fault := &silta.EngineFault{Op: "Tick", Err: err}
					s.alert("EngineFault", fault.Error(), Error)
					zero(buffer[base+channelCount:])
					return fault
				}
				if err := s.channels.refresh(s.engine); err != nil {
					s.alert("EngineFault", err.Error(), Error)
					zero(buffer[base+channelCount:])
					return err
				}
			}
		}
	}
	s.publish(buffer, channelCount)
	return nil
}

// publish hands a copy of the processed block to the meter, using the broker
// buffer pool so the hot path stays allocation free after warmup.
func (s *Session) publish(buffer []float32, channelCount int) {
	if s.broker == nil {
		return
	}
	bufPtr := s.broker.GetAudioBuffer()
	*bufPtr = append(*bufPtr, buffer...)
	if !trySend(s.broker.ToMeter, MsgToMeter{Audio: bufPtr, ChannelCount: channelCount}) {
		s.broker.PutAudioBuffer(bufPtr)
	}
}

// all alerts are sent non-blocking, so the audio thread can never dead-lock
func (s *Session) alert(name, message string, priority AlertPriority) {
	if s.broker == nil {
		return
	}
	trySend(s.broker.ToHost, MsgToHost{Data: Alert{
		Name:     name,
		Message:  message,
		Priority: priority,
		Duration: defaultAlertDuration,
	}})
}

func zero(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}
