package silta

type (
	// AudioSource is something that can fill an interleaved float32 buffer
	// with audio; in particular, host.Streamer adapts a bridge session into
	// an AudioSource so it can be pulled by an AudioSink.
	AudioSource interface {
		ReadAudio(buffer []float32) error
	}

	AudioSink interface {
		Play(source AudioSource) error
		Close() error
	}

	AudioContext interface {
		Output() AudioSink
		Close() error
	}
)
