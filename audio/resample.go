package audio

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// TargetSampleRate is the fixed pipeline rate: every captured stream is
// resampled down (or up) to this rate before VAD framing and persistence.
const TargetSampleRate = 16000

// FrameSamples is the VAD frame size at TargetSampleRate (32ms).
const FrameSamples = 512

// Resampler wraps the pack's FFT-based resampler, which requires a fixed
// number of input frames per call. Inputs are accumulated across device
// callbacks and only flushed through the resampler once a full chunk is
// available; the remainder is kept for the next callback.
type Resampler struct {
	inner      *resampler.Resampler
	srcRate    int
	dstRate    int
	chunkIn    int
	accumulate []float32
}

// NewResampler builds a resampler from srcRate to dstRate. If the rates are
// equal, Process still works (passthrough), since malgo may occasionally
// report the requested rate back verbatim.
func NewResampler(srcRate, dstRate int) (*Resampler, error) {
	r, err := resampler.New(srcRate, dstRate, 1, resampler.QualityHigh)
	if err != nil {
		return nil, fmt.Errorf("create resampler %d->%d: %w", srcRate, dstRate, err)
	}
	return &Resampler{
		inner:   r,
		srcRate: srcRate,
		dstRate: dstRate,
		chunkIn: r.RequiredInputFrames(),
	}, nil
}

// Process appends in to the internal accumulator and runs the resampler
// over every full chunk available, returning the concatenated resampled
// output. Leftover input samples that don't fill a full chunk are kept for
// the next call.
func (r *Resampler) Process(in []float32) ([]float32, error) {
	r.accumulate = append(r.accumulate, in...)

	var out []float32
	for len(r.accumulate) >= r.chunkIn {
		chunk := r.accumulate[:r.chunkIn]
		resampled, err := r.inner.Process(chunk)
		if err != nil {
			return out, fmt.Errorf("resample chunk: %w", err)
		}
		out = append(out, resampled...)
		r.accumulate = r.accumulate[r.chunkIn:]
	}
	return out, nil
}

// Reset clears any buffered remainder and the resampler's internal filter
// state, used between recording sessions to avoid leaking a stale tail.
func (r *Resampler) Reset() {
	r.accumulate = r.accumulate[:0]
	r.inner.Reset()
}
