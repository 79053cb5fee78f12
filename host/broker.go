package host

import (
	"sync"
)

type (
	// Broker is the centralized message broker for the host side of the
	// bridge. The real-time session, the engine message poller and the
	// meter communicate through it; all sends are non-blocking via trySend,
	// so the real-time path can never dead-lock on a full channel.
	// Additionally, the broker has a sync.Pool of []float32 buffers, so the
	// session can hand processed audio to the meter without allocating new
	// memory every callback.
	//
	// For closing goroutines, there are two channels per goroutine:
	// CloseXXX has a capacity of 1, so requesting a closure never blocks;
	// if the channel is already full, someone else already requested it and
	// dropping the message is fine. FinishedXXX is closed (never sent to)
	// when the goroutine has cleaned up, so "<-FinishedXXX" waits for it.
	Broker struct {
		ToHost  chan MsgToHost
		ToMeter chan MsgToMeter

		ClosePoller chan struct{}
		CloseMeter  chan struct{}

		FinishedPoller chan struct{}
		FinishedMeter  chan struct{}

		bufferPool sync.Pool
	}

	// MsgToHost carries output of the non-real-time goroutines back to
	// whoever owns the session: alerts from the message poller and the
	// session fault path, and MeterResults from the meter. The frequently
	// sent MeterResult is not boxed to avoid allocations.
	MsgToHost struct {
		HasMeterResult bool
		MeterResult    MeterResult

		Data any
	}

	// MsgToMeter hands one processed host block to the meter. Audio is a
	// pooled buffer of interleaved samples; the receiver returns it to the
	// broker when done.
	MsgToMeter struct {
		Audio        *[]float32
		ChannelCount int
		Reset        bool
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToHost:         make(chan MsgToHost, 1024),
		ToMeter:        make(chan MsgToMeter, 1024),
		ClosePoller:    make(chan struct{}, 1),
		CloseMeter:     make(chan struct{}, 1),
		FinishedPoller: make(chan struct{}),
		FinishedMeter:  make(chan struct{}),
		bufferPool:     sync.Pool{New: func() any { return &[]float32{} }},
	}
}

// GetAudioBuffer returns an empty buffer from the pool, with a capacity of
// whatever it happened to have when it was returned.
func (b *Broker) GetAudioBuffer() *[]float32 {
	return b.bufferPool.Get().(*[]float32)
}

// PutAudioBuffer returns a buffer to the pool, truncating it to zero length
// but keeping its capacity.
func (b *Broker) PutAudioBuffer(buf *[]float32) {
	*buf = (*buf)[:0]
	b.bufferPool.Put(buf)
}

// trySend is a non-blocking send; returns false if the channel was full. The
// real-time path only ever communicates through this.
func trySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
