package host

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// Meter computes per-channel levels of the bridged output: the peak and
	// RMS power of each processed block, and a short-term RMS over a
	// sliding window of recent blocks. It runs in its own goroutine, fed by
	// the session through the broker, so the level math never runs on the
	// audio thread.
	Meter struct {
		broker  *Broker
		windows []RingBuffer[float32] // per channel, sliding window of block powers

		tmp, tmp2 []float32
	}

	Decibel float32

	MeterResult struct {
		Peak         []Decibel // momentary peak per channel
		RMS          []Decibel // RMS of the last block per channel
		ShortTermRMS []Decibel // RMS over the sliding window per channel
	}

	// RingBuffer is a simple fixed-size ring of the most recent values.
	RingBuffer[T any] struct {
		Buffer []T
		Cursor int
	}
)

// shortTermWindow is the number of block powers in the short-term window.
const shortTermWindow = 30

func (r *RingBuffer[T]) WriteWrapSingle(value T) {
	r.Cursor = (r.Cursor + 1) % len(r.Buffer)
	r.Buffer[r.Cursor] = value
}

func NewMeter(broker *Broker) *Meter {
	return &Meter{broker: broker}
}

// Run consumes blocks from the broker until CloseMeter is signalled. Call as
// a goroutine; wait for FinishedMeter to know it has stopped.
func (m *Meter) Run() {
	defer close(m.broker.FinishedMeter)
	for {
		select {
		case <-m.broker.CloseMeter:
			return
		case msg := <-m.broker.ToMeter:
			if msg.Reset {
				m.reset()
			}
			if msg.Audio == nil {
				continue
			}
			result := m.update(*msg.Audio, msg.ChannelCount)
			m.broker.PutAudioBuffer(msg.Audio)
			trySend(m.broker.ToHost, MsgToHost{HasMeterResult: true, MeterResult: result})
		}
	}
}

func (m *Meter) update(buffer []float32, channelCount int) MeterResult {
	frames := 0
	if channelCount > 0 {
		frames = len(buffer) / channelCount
	}
	result := MeterResult{
		Peak:         make([]Decibel, channelCount),
		RMS:          make([]Decibel, channelCount),
		ShortTermRMS: make([]Decibel, channelCount),
	}
	if frames == 0 {
		return result
	}
	for len(m.windows) < channelCount {
		m.windows = append(m.windows, RingBuffer[float32]{Buffer: make([]float32, shortTermWindow)})
	}
	setSliceLength(&m.tmp, frames)
	setSliceLength(&m.tmp2, frames)
	for chn := 0; chn < channelCount; chn++ {
		// deinterleave the channel
		for i := 0; i < frames; i++ {
			m.tmp[i] = buffer[i*channelCount+chn]
		}
		squares := vek32.Mul_Into(m.tmp2, m.tmp, m.tmp)
		power := vek32.Mean(squares)
		vek32.Abs_Inplace(m.tmp)
		peak := vek32.Max(m.tmp)
		m.windows[chn].WriteWrapSingle(power)
		shortTerm := vek32.Mean(m.windows[chn].Buffer)
		result.Peak[chn] = amplitude2decibel(peak)
		result.RMS[chn] = power2decibel(power)
		result.ShortTermRMS[chn] = power2decibel(shortTerm)
	}
	return result
}

func (m *Meter) reset() {
	for i := range m.windows {
		m.windows[i].Cursor = 0
		for j := range m.windows[i].Buffer {
			m.windows[i].Buffer[j] = 0
		}
	}
}

func power2decibel(power float32) Decibel {
	return Decibel(10 * math.Log10(float64(power)))
}

func amplitude2decibel(amplitude float32) Decibel {
	return Decibel(20 * math.Log10(float64(amplitude)))
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
