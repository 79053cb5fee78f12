// Package oto wraps ebitengine/oto in the silta.AudioContext interface, so
// a bridged session can be played back through the default audio device.
package oto

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ebitengine/oto/v3"

	"github.com/vsariola/silta"
)

type (
	Context struct {
		context      *oto.Context
		channelCount int
	}

	Sink struct {
		context      *oto.Context
		player       *oto.Player
		channelCount int
	}

	// sourceReader converts a silta.AudioSource into the io.Reader that an
	// oto player pulls float32 little-endian samples from.
	sourceReader struct {
		source silta.AudioSource
		buffer []float32
		bytes  []byte
		unread int // unread tail of bytes
	}
)

const readBufferFrames = 1024

func NewContext(sampleRate, channelCount int) (*Context, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{context: context, channelCount: channelCount}, nil
}

func (c *Context) Output() silta.AudioSink {
	return &Sink{context: c.context, channelCount: c.channelCount}
}

// Close is a no-op; an oto context stays alive for the process lifetime.
func (c *Context) Close() error { return nil }

func (s *Sink) Play(source silta.AudioSource) error {
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("cannot close previous player: %w", err)
		}
	}
	s.player = s.context.NewPlayer(&sourceReader{
		source: source,
		buffer: make([]float32, readBufferFrames*s.channelCount),
	})
	s.player.Play()
	return nil
}

func (s *Sink) Close() error {
	if s.player == nil {
		return nil
	}
	return s.player.Close()
}

func (r *sourceReader) Read(p []byte) (int, error) {
	if r.unread == 0 {
		if err := r.source.ReadAudio(r.buffer); err != nil {
			return 0, err
		}
		if len(r.bytes) != len(r.buffer)*4 {
			r.bytes = make([]byte, len(r.buffer)*4)
		}
		for i, v := range r.buffer {
			binary.LittleEndian.PutUint32(r.bytes[i*4:], math.Float32bits(v))
		}
		r.unread = len(r.bytes)
	}
	n := copy(p, r.bytes[len(r.bytes)-r.unread:])
	r.unread -= n
	return n, nil
}
