// Package enginetest provides silta.Engine implementations for testing and
// demos. The real synthesis engine is an external collaborator; the fakes
// here expose the same narrow surface with fully controllable behavior.
package enginetest

import (
	"fmt"
	"math"
)

// Engine is a scripted fake engine. Its output and named channel buffers are
// plain slices the test can write to, and OnTick, when set, is invoked on
// every Tick after the tick counter has advanced, so tests can script
// per-tick output. The zero value is not usable; use NewEngine.
type Engine struct {
	// PassThrough makes OutputSample return the last value written with
	// SetInputSample at the same position, for gain round-trip tests.
	PassThrough bool

	// TickErr, when set, makes Tick fail with it.
	TickErr error

	// OnTick is called by Tick with the number of completed ticks.
	OnTick func(e *Engine, tick int)

	// Messages is the diagnostic queue drained by NextMessage.
	Messages []string

	// ControlChannels records every SetChannel call.
	ControlChannels map[string]float32

	Output []float32 // interleaved current control block, Size*Channels samples
	Input  []float32 // interleaved input written via SetInputSample

	Size      int
	Channels  int
	FullScale float32

	Named      map[string][]float32
	namedOrder []string

	Ticks int
}

func NewEngine(controlBlockSize, channelCount int) *Engine {
	// size 0 still exposes one frame of output, read at the stale tick
	// offset when the bridge never ticks
	samples := max(controlBlockSize, 1) * channelCount
	return &Engine{
		Size:            controlBlockSize,
		Channels:        channelCount,
		FullScale:       1,
		Output:          make([]float32, samples),
		Input:           make([]float32, samples),
		ControlChannels: make(map[string]float32),
		Named:           make(map[string][]float32),
	}
}

// AddNamed registers a named audio channel of the engine's control block
// size, returning its buffer for the test to fill.
func (e *Engine) AddNamed(name string) []float32 {
	buffer := make([]float32, e.Size)
	e.Named[name] = buffer
	e.namedOrder = append(e.namedOrder, name)
	return buffer
}

func (e *Engine) Tick() error {
	if e.TickErr != nil {
		return e.TickErr
	}
	e.Ticks++
	if e.OnTick != nil {
		e.OnTick(e, e.Ticks)
	}
	return nil
}

func (e *Engine) ControlBlockSize() int       { return e.Size }
func (e *Engine) ChannelCount() int           { return e.Channels }
func (e *Engine) ReferenceFullScale() float32 { return e.FullScale }

func (e *Engine) SetInputSample(offset, channel int, value float32) {
	e.Input[offset*e.Channels+channel] = value
}

func (e *Engine) OutputSample(offset, channel int) float32 {
	if e.PassThrough {
		return e.Input[offset*e.Channels+channel]
	}
	return e.Output[offset*e.Channels+channel]
}

func (e *Engine) AudioChannel(name string) ([]float32, error) {
	buffer, ok := e.Named[name]
	if !ok {
		return nil, fmt.Errorf("no channel named %q", name)
	}
	return buffer, nil
}

func (e *Engine) SetChannel(name string, value float32) {
	e.ControlChannels[name] = value
}

func (e *Engine) NextMessage() (string, bool) {
	if len(e.Messages) == 0 {
		return "", false
	}
	message := e.Messages[0]
	e.Messages = e.Messages[1:]
	return message, true
}

// NewRamp returns an engine whose every output and named channel sample
// encodes its position as tick*controlBlockSize + offset, so a test can
// verify exactly which control block and offset a host sample came from.
// Tick 0 is the initial, pre-first-tick block.
func NewRamp(controlBlockSize, channelCount int, names ...string) *Engine {
	e := NewEngine(controlBlockSize, channelCount)
	for _, name := range names {
		e.AddNamed(name)
	}
	fill := func(e *Engine, tick int) {
		for offset := 0; offset < e.Size; offset++ {
			value := float32(tick*e.Size + offset)
			for channel := 0; channel < e.Channels; channel++ {
				e.Output[offset*e.Channels+channel] = value
			}
			for _, name := range e.namedOrder {
				e.Named[name][offset] = value
			}
		}
	}
	fill(e, 0)
	e.OnTick = fill
	return e
}

// Tone is a minimal self-contained engine for the demo cmds: one sine
// oscillator per audio channel, frequency and gain controlled through the
// "freq" and "gain" control channels, output published on one named channel
// per audio channel.
type Tone struct {
	*Engine
	phase float64
	rate  float64
}

// Named channels published by Tone, one per audio channel.
var ToneChannelNames = []string{"outL", "outR"}

func NewTone(controlBlockSize, sampleRate int) *Tone {
	t := &Tone{
		Engine: NewEngine(controlBlockSize, len(ToneChannelNames)),
		rate:   float64(sampleRate),
	}
	t.FullScale = 32768
	for _, name := range ToneChannelNames {
		t.AddNamed(name)
	}
	t.ControlChannels["freq"] = 220
	t.ControlChannels["gain"] = 0.5
	t.OnTick = func(e *Engine, tick int) { t.render() }
	t.render()
	return t
}

func (t *Tone) render() {
	freq := float64(t.ControlChannels["freq"])
	gain := float64(t.ControlChannels["gain"])
	for offset := 0; offset < t.Size; offset++ {
		sample := float32(math.Sin(2*math.Pi*t.phase) * gain * float64(t.FullScale))
		t.phase += freq / t.rate
		t.phase -= math.Floor(t.phase)
		for channel := 0; channel < t.Channels; channel++ {
			t.Output[offset*t.Channels+channel] = sample
			t.Named[ToneChannelNames[channel]][offset] = sample
		}
	}
}
