package audio

import "testing"

// allNoiseClassifier marks every frame as noise: nothing is written.
type allNoiseClassifier struct{ resets int }

func (c *allNoiseClassifier) Classify(frame []float32) ([]float32, int) { return nil, 0 }
func (c *allNoiseClassifier) Reset()                                   { c.resets++ }

// passthroughClassifier marks every frame as speech.
type passthroughClassifier struct{}

func (passthroughClassifier) Classify(frame []float32) ([]float32, int) { return frame, len(frame) }
func (passthroughClassifier) Reset()                                   {}

func TestDrainVadFramesCountIsFloorOfTotal(t *testing.T) {
	var written int
	write := func(s []float32) error { written += len(s); return nil }

	total := FrameSamples*3 + 200 // one partial frame left over
	samples := make([]float32, total)

	remaining, speech := drainVadFrames(samples, passthroughClassifier{}, write, nil)
	if len(remaining) != 200 {
		t.Fatalf("remaining = %d, want 200", len(remaining))
	}
	if speech != FrameSamples*3 {
		t.Fatalf("speech samples = %d, want %d", speech, FrameSamples*3)
	}
	if written != FrameSamples*3 {
		t.Fatalf("written = %d, want %d", written, FrameSamples*3)
	}
}

func TestDrainVadFramesSkipsNoiseFrames(t *testing.T) {
	var written int
	write := func(s []float32) error { written += len(s); return nil }

	samples := make([]float32, FrameSamples*2)
	_, speech := drainVadFrames(samples, &allNoiseClassifier{}, write, nil)
	if speech != 0 || written != 0 {
		t.Fatalf("expected nothing written for all-noise input, got speech=%d written=%d", speech, written)
	}
}

func TestDrainVadFramesPreservesRemainderAcrossCalls(t *testing.T) {
	var written int
	write := func(s []float32) error { written += len(s); return nil }

	first := make([]float32, FrameSamples+100)
	remaining, _ := drainVadFrames(first, passthroughClassifier{}, write, nil)
	if len(remaining) != 100 {
		t.Fatalf("after first call remaining = %d, want 100", len(remaining))
	}

	second := append(remaining, make([]float32, FrameSamples-100)...)
	remaining2, speech2 := drainVadFrames(second, passthroughClassifier{}, write, nil)
	if len(remaining2) != 0 {
		t.Fatalf("after second call remaining = %d, want 0", len(remaining2))
	}
	if speech2 != FrameSamples {
		t.Fatalf("second call speech = %d, want %d", speech2, FrameSamples)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := t.TempDir() + "/out.wav"
	w, err := NewWAVWriter(path, TargetSampleRate)
	if err != nil {
		t.Fatalf("NewWAVWriter: %v", err)
	}
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0}
	if err := w.WriteSamples(samples); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(samples))
	}

	dur, err := GetWAVDuration(path)
	if err != nil {
		t.Fatalf("GetWAVDuration: %v", err)
	}
	wantDur := float64(len(samples)) / float64(TargetSampleRate)
	if dur < wantDur*0.9 || dur > wantDur*1.1 {
		t.Fatalf("duration = %v, want ~%v", dur, wantDur)
	}
}
