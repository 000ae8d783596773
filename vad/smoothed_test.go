package vad

import "testing"

// fakeInner returns a scripted sequence of voice booleans, one per Probe
// call, ignoring actual sample content.
type fakeInner struct {
	voices []bool
	i      int
	resets int
}

func (f *fakeInner) Probe(frame []float32) (float32, bool, error) {
	v := false
	if f.i < len(f.voices) {
		v = f.voices[f.i]
	}
	f.i++
	if v {
		return 1, true, nil
	}
	return 0, false, nil
}

func (f *fakeInner) Reset() { f.resets++ }

func TestSmoothedHysteresis(t *testing.T) {
	voices := []bool{false, false, true, true, false, false, false, false, false}
	inner := &fakeInner{voices: voices}
	s := NewSmoothed(inner, Config{PrefillFrames: 2, OnsetFrames: 2, HangoverFrames: 3})

	var speechFlags []bool
	for range voices {
		out, _ := s.Classify(make([]float32, 512))
		speechFlags = append(speechFlags, len(out) > 0)
	}

	want := []bool{false, false, false, true, true, true, true, false, false}
	if len(speechFlags) != len(want) {
		t.Fatalf("got %d results, want %d", len(speechFlags), len(want))
	}
	for i := range want {
		if speechFlags[i] != want[i] {
			t.Errorf("frame %d: speech=%v, want %v (full=%v)", i, speechFlags[i], want[i], speechFlags)
		}
	}

	// Exactly 3 Speech frames after the last true (index 3): indices 4,5,6.
	afterLastVoice := 0
	for i := 4; i <= 6; i++ {
		if speechFlags[i] {
			afterLastVoice++
		}
	}
	if afterLastVoice != 3 {
		t.Errorf("expected exactly 3 speech frames after last voiced frame, got %d", afterLastVoice)
	}
}

func TestSmoothedOnsetEmitsPrefill(t *testing.T) {
	inner := &fakeInner{voices: []bool{false, false, true, true}}
	s := NewSmoothed(inner, Config{PrefillFrames: 2, OnsetFrames: 2, HangoverFrames: 1})

	// First two (noise) frames and the first voiced frame (onset=1<2)
	// produce no output; they're buffered as prefill context instead.
	for i := 0; i < 3; i++ {
		out, n := s.Classify(make([]float32, 512))
		if len(out) != 0 || n != 0 {
			t.Fatalf("frame %d: expected no output before onset completes, got %d samples", i, len(out))
		}
	}

	// The 2nd consecutive voiced frame completes onset: prefill (2 buffered
	// frames) plus the current frame should be emitted together.
	out, n := s.Classify(make([]float32, 512))
	wantLen := 512*2 + 512 // 2 prefill frames + current frame
	if len(out) != wantLen {
		t.Fatalf("onset-completion frame length = %d, want %d", len(out), wantLen)
	}
	if n != wantLen {
		t.Fatalf("onset-completion speech count = %d, want %d", n, wantLen)
	}
}

func TestSmoothedResetClearsState(t *testing.T) {
	inner := &fakeInner{voices: []bool{true, true}}
	s := NewSmoothed(inner, DefaultConfig())
	s.Classify(make([]float32, 512))
	s.Reset()
	// NewSmoothed resets the inner detector once on construction; Reset
	// must do so a second time.
	if inner.resets != 2 {
		t.Fatalf("Reset() did not reset inner detector: resets=%d, want 2", inner.resets)
	}
	if s.inSpeech || s.onset != 0 || s.hangover != 0 || len(s.ring) != 0 {
		t.Fatalf("Reset() left stale state: inSpeech=%v onset=%d hangover=%d ring=%d",
			s.inSpeech, s.onset, s.hangover, len(s.ring))
	}
}
