package host

import (
	"github.com/vsariola/silta"
)

// Streamer adapts a Session into a silta.AudioSource, chunking whatever
// buffer size the sink asks for into host-block-sized ProcessBlock calls. An
// engine fault turns into silence for the rest of the read, so a pull-based
// sink keeps running while the fault is reported through the broker.
type Streamer struct {
	session      *Session
	channelCount int
}

func NewStreamer(session *Session, channelCount int) *Streamer {
	return &Streamer{session: session, channelCount: channelCount}
}

func (s *Streamer) ReadAudio(buffer []float32) error {
	chunk := s.session.hostBlockSize * s.channelCount
	for len(buffer) > 0 {
		n := min(len(buffer), chunk)
		frames := n / s.channelCount
		if err := s.session.ProcessBlock(buffer[:frames*s.channelCount], frames, s.channelCount); err != nil {
			if _, ok := err.(silta.ConfigurationError); ok {
				return err
			}
			// engine faults were already alerted by the session; the block
			// is silence, keep streaming
		}
		if rem := n - frames*s.channelCount; rem > 0 {
			zero(buffer[frames*s.channelCount : n])
		}
		buffer = buffer[n:]
	}
	return nil
}
