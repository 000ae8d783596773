package vad

import "log/slog"

// InnerDetector is the capability Smoothed needs from a frame-level voice
// detector: exactly what Detector.Probe provides, narrowed so the smoothing
// layer can be tested against a fake.
type InnerDetector interface {
	Probe(frame []float32) (probability float32, voice bool, err error)
	Reset()
}

// Config holds the three hysteresis knobs, with the package defaults.
type Config struct {
	PrefillFrames  int
	OnsetFrames    int
	HangoverFrames int
}

// DefaultConfig returns prefill=14, onset=2, hangover=14 (per-frame counts
// at 512 samples / 16kHz, i.e. roughly 448ms/64ms/448ms).
func DefaultConfig() Config {
	return Config{PrefillFrames: 14, OnsetFrames: 2, HangoverFrames: 14}
}

// Smoothed wraps an InnerDetector with onset/hangover/prefill hysteresis. It
// satisfies audio.FrameClassifier: Classify is called once per 512-sample
// frame and returns the samples (if any) that should be persisted.
type Smoothed struct {
	inner  InnerDetector
	cfg    Config

	inSpeech bool
	onset    int
	hangover int
	ring     [][]float32 // prefill ring buffer, oldest first
}

// NewSmoothed builds a Smoothed detector around inner with cfg's hysteresis
// parameters.
func NewSmoothed(inner InnerDetector, cfg Config) *Smoothed {
	s := &Smoothed{inner: inner, cfg: cfg}
	s.Reset()
	return s
}

// Reset zeros all hysteresis state and the inner detector's RNN state and
// context. Must be called at the start of each recording session.
func (s *Smoothed) Reset() {
	s.inner.Reset()
	s.inSpeech = false
	s.onset = 0
	s.hangover = 0
	s.ring = s.ring[:0]
}

// Classify implements audio.FrameClassifier. On speech onset it returns the
// ring-buffered prefill frames concatenated with the current frame so the
// leading edge of the utterance is never clipped.
func (s *Smoothed) Classify(frame []float32) (toWrite []float32, speechSamples int) {
	_, voice, err := s.inner.Probe(frame)
	if err != nil {
		slog.Error("vad: inner probe failed, treating frame as speech (fail-open)", "error", err)
		return frame, len(frame)
	}

	switch {
	case !s.inSpeech && voice:
		s.onset++
		if s.onset >= s.cfg.OnsetFrames {
			s.inSpeech = true
			s.hangover = s.cfg.HangoverFrames
			s.onset = 0
			emitted := s.flushPrefill()
			emitted = append(emitted, frame...)
			return emitted, len(emitted)
		}
		s.pushPrefill(frame)
		return nil, 0

	case s.inSpeech && voice:
		s.hangover = s.cfg.HangoverFrames
		return frame, len(frame)

	case s.inSpeech && !voice:
		if s.hangover > 0 {
			s.hangover--
			return frame, len(frame)
		}
		s.inSpeech = false
		return nil, 0

	default: // !inSpeech && !voice
		s.onset = 0
		s.pushPrefill(frame)
		return nil, 0
	}
}

func (s *Smoothed) pushPrefill(frame []float32) {
	if s.cfg.PrefillFrames <= 0 {
		return
	}
	cp := make([]float32, len(frame))
	copy(cp, frame)
	s.ring = append(s.ring, cp)
	if len(s.ring) > s.cfg.PrefillFrames {
		s.ring = s.ring[len(s.ring)-s.cfg.PrefillFrames:]
	}
}

func (s *Smoothed) flushPrefill() []float32 {
	var out []float32
	for _, f := range s.ring {
		out = append(out, f...)
	}
	s.ring = s.ring[:0]
	return out
}
