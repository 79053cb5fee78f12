package host_test

import (
	"errors"
	"math"
	"testing"

	"github.com/vsariola/silta"
	"github.com/vsariola/silta/enginetest"
	"github.com/vsariola/silta/host"
)

func newTestSession(t *testing.T, engine silta.Engine, hostBlockSize int, names ...string) *host.Session {
	t.Helper()
	session, err := host.NewSession(host.NewBroker(), hostBlockSize)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	for _, name := range names {
		if err := session.RegisterChannel(name); err != nil {
			t.Fatalf("RegisterChannel(%q) failed: %v", name, err)
		}
	}
	if engine != nil {
		if err := session.SetEngine(engine); err != nil {
			t.Fatalf("SetEngine failed: %v", err)
		}
	}
	return session
}

// process runs calls host blocks of frameCount frames through the session
// and returns the concatenated output.
func process(t *testing.T, session *host.Session, frameCount, channelCount, calls int) []float32 {
	t.Helper()
	var output []float32
	for i := 0; i < calls; i++ {
		buffer := make([]float32, frameCount*channelCount)
		if err := session.ProcessBlock(buffer, frameCount, channelCount); err != nil {
			t.Fatalf("ProcessBlock call %d failed: %v", i, err)
		}
		output = append(output, buffer...)
	}
	return output
}

func TestTickCountAndPhase(t *testing.T) {
	// the ramp engine outputs the global frame index at every position, so
	// a correct bridge produces output[n] == n on every channel: any phase
	// slip across call boundaries shows up as a wrong value
	for _, tc := range []struct {
		name                    string
		controlBlock, hostBlock int
		channels, calls         int
	}{
		{"host larger than control", 4, 6, 2, 2},
		{"host smaller than control", 16, 6, 2, 8},
		{"host equal to control", 8, 8, 1, 4},
		{"coprime sizes", 7, 5, 2, 7},
		{"mono", 3, 10, 1, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			engine := enginetest.NewRamp(tc.controlBlock, tc.channels)
			session := newTestSession(t, engine, tc.hostBlock)
			output := process(t, session, tc.hostBlock, tc.channels, tc.calls)
			totalFrames := tc.hostBlock * tc.calls
			if expected := totalFrames / tc.controlBlock; engine.Ticks != expected {
				t.Errorf("%d frames with control block %d: got %d ticks, expected %d", totalFrames, tc.controlBlock, engine.Ticks, expected)
			}
			for frame := 0; frame < totalFrames; frame++ {
				for channel := 0; channel < tc.channels; channel++ {
					if got := output[frame*tc.channels+channel]; got != float32(frame) {
						t.Fatalf("output[frame %d, channel %d] = %v, expected %v", frame, channel, got, frame)
					}
				}
			}
		})
	}
}

func TestSingleTickWithinCall(t *testing.T) {
	// control block 4, host block 6: the first call crosses exactly one
	// control block boundary, the second crosses two
	engine := enginetest.NewRamp(4, 2)
	session := newTestSession(t, engine, 6)
	process(t, session, 6, 2, 1)
	if engine.Ticks != 1 {
		t.Errorf("after first 6-frame call: %d ticks, expected 1", engine.Ticks)
	}
	process(t, session, 6, 2, 1)
	if engine.Ticks != 3 {
		t.Errorf("after two 6-frame calls: %d ticks, expected 3", engine.Ticks)
	}
}

func TestZeroControlBlockSize(t *testing.T) {
	engine := enginetest.NewEngine(0, 2)
	engine.Output[0] = 0.25
	engine.Output[1] = -0.25
	session := newTestSession(t, engine, 8)
	output := process(t, session, 8, 2, 3)
	if engine.Ticks != 0 {
		t.Errorf("control block size 0: engine was ticked %d times", engine.Ticks)
	}
	for frame := 0; frame < 24; frame++ {
		if output[frame*2] != 0.25 || output[frame*2+1] != -0.25 {
			t.Fatalf("frame %d: got (%v, %v), expected the stale engine output", frame, output[frame*2], output[frame*2+1])
		}
	}
}

func TestNoEngineWritesSilence(t *testing.T) {
	session := newTestSession(t, nil, 4)
	buffer := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	if err := session.ProcessBlock(buffer, 4, 2); err != nil {
		t.Fatalf("ProcessBlock without engine failed: %v", err)
	}
	for i, v := range buffer {
		if v != 0 {
			t.Fatalf("buffer[%d] = %v, expected silence without an engine", i, v)
		}
	}
}

func TestMute(t *testing.T) {
	engine := enginetest.NewRamp(4, 2, "left")
	session := newTestSession(t, engine, 6, "left")
	process(t, session, 6, 2, 1)
	captured, ok := session.Accumulated("left")
	if !ok {
		t.Fatal("Accumulated did not find the registered channel")
	}
	before := append([]float32(nil), captured...)
	ticksBefore := engine.Ticks

	session.SetMuted(true)
	buffer := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	if err := session.ProcessBlock(buffer, 6, 2); err != nil {
		t.Fatalf("ProcessBlock while muted failed: %v", err)
	}
	for i, v := range buffer {
		if v != 0 {
			t.Fatalf("buffer[%d] = %v, expected all zeros while muted", i, v)
		}
	}
	if engine.Ticks != ticksBefore {
		t.Errorf("muted call ticked the engine: %d -> %d", ticksBefore, engine.Ticks)
	}
	captured, _ = session.Accumulated("left")
	for i, v := range captured {
		if v != before[i] {
			t.Fatalf("accumulation buffer changed at %d while muted: %v -> %v", i, before[i], v)
		}
	}

	// unmuting resumes the phase exactly where it froze
	session.SetMuted(false)
	output := process(t, session, 6, 2, 1)
	for frame := 0; frame < 6; frame++ {
		if got := output[frame*2]; got != float32(6+frame) {
			t.Fatalf("after unmute, frame %d = %v, expected %v", frame, got, 6+frame)
		}
	}
}

func TestInputFeedThroughRoundTrip(t *testing.T) {
	engine := enginetest.NewEngine(8, 2)
	engine.PassThrough = true
	engine.FullScale = 32768
	session := newTestSession(t, engine, 8)
	session.SetFeedInput(true)
	buffer := make([]float32, 16)
	for i := range buffer {
		buffer[i] = float32(math.Sin(float64(i) * 0.7))
	}
	input := append([]float32(nil), buffer...)
	if err := session.ProcessBlock(buffer, 8, 2); err != nil {
		t.Fatalf("ProcessBlock failed: %v", err)
	}
	for i := range buffer {
		if diff := math.Abs(float64(buffer[i] - input[i])); diff > 1e-6 {
			t.Fatalf("sample %d: %v went through the gain round trip as %v", i, input[i], buffer[i])
		}
	}
}

func TestAccumulatedFollowsHostBlocks(t *testing.T) {
	engine := enginetest.NewRamp(4, 2, "left", "right")
	session := newTestSession(t, engine, 6, "left", "right")
	process(t, session, 6, 2, 1)
	process(t, session, 6, 2, 1)
	for _, name := range []string{"left", "right"} {
		captured, ok := session.Accumulated(name)
		if !ok {
			t.Fatalf("Accumulated(%q) did not find the channel", name)
		}
		// second host block covers global frames 6..11
		for frame, v := range captured {
			if v != float32(6+frame) {
				t.Fatalf("channel %q frame %d: got %v, expected %v", name, frame, v, 6+frame)
			}
		}
	}
}

func TestRefreshRejectsWrongChannelSize(t *testing.T) {
	engine := enginetest.NewRamp(4, 2, "left")
	engine.Named["left"] = make([]float32, 5) // breaks the size contract
	session, err := host.NewSession(host.NewBroker(), 6)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := session.RegisterChannel("left"); err != nil {
		t.Fatalf("RegisterChannel failed: %v", err)
	}
	err = session.SetEngine(engine)
	var fault *silta.EngineFault
	if !errors.As(err, &fault) {
		t.Fatalf("SetEngine with a wrong-sized channel buffer returned %v, expected an EngineFault", err)
	}
}

func TestEngineFaultWritesSilence(t *testing.T) {
	engine := enginetest.NewRamp(2, 2)
	session := newTestSession(t, engine, 4)
	engine.TickErr = errors.New("scripted fault")
	buffer := make([]float32, 8)
	err := session.ProcessBlock(buffer, 4, 2)
	var fault *silta.EngineFault
	if !errors.As(err, &fault) {
		t.Fatalf("ProcessBlock returned %v, expected an EngineFault", err)
	}
	// frames 0..1 were produced before the failing tick, frames 2..3 must
	// be silence rather than stale data
	for i := 4; i < 8; i++ {
		if buffer[i] != 0 {
			t.Fatalf("buffer[%d] = %v, expected silence after the fault", i, buffer[i])
		}
	}
}

func TestProcessBlockConfigurationErrors(t *testing.T) {
	engine := enginetest.NewRamp(4, 2)
	session := newTestSession(t, engine, 6)
	for _, tc := range []struct {
		name         string
		bufferLen    int
		frameCount   int
		channelCount int
	}{
		{"channel count mismatch", 6, 2, 3},
		{"buffer too short", 4, 4, 2},
		{"frame count over host block", 16, 8, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buffer := make([]float32, tc.bufferLen)
			err := session.ProcessBlock(buffer, tc.frameCount, tc.channelCount)
			var confErr silta.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("got %v, expected a ConfigurationError", err)
			}
		})
	}
}

func TestRegisterChannelIdempotent(t *testing.T) {
	session := newTestSession(t, nil, 4)
	for _, name := range []string{"a", "b", "a", "c", "b"} {
		if err := session.RegisterChannel(name); err != nil {
			t.Fatalf("RegisterChannel(%q) failed: %v", name, err)
		}
	}
	got := session.ChannelNames()
	expected := []string{"a", "b", "c"}
	if len(got) != len(expected) {
		t.Fatalf("ChannelNames() = %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("ChannelNames() = %v, expected %v", got, expected)
		}
	}
}
