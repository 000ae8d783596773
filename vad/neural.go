// Package vad implements frame-level voice-activity detection: a neural
// inner detector backed by a Silero-family ONNX model, and a hysteresis
// layer (onset/hangover/prefill) that smooths its frame-by-frame output
// into stable speech/noise spans.
package vad

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// SampleRate is the only rate the inner detector accepts.
const SampleRate = 16000

// FrameSamples is the only frame size the inner detector accepts (32ms at
// SampleRate).
const FrameSamples = 512

// contextSamples is the trailing tail from the previous frame prepended to
// the next one, per the Silero streaming contract.
const contextSamples = 64

// DefaultThreshold is the speech/noise probability cutoff.
const DefaultThreshold = 0.5

// Detector wraps an ONNX Runtime session implementing the Silero streaming
// VAD contract: input is [1, context+frame] samples plus an RNN state of
// shape [2,1,128]; output is a speech probability plus the updated state.
type Detector struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	state     []float32 // flattened [2,1,128]
	context   []float32 // last contextSamples samples of the previous frame
	threshold float32
}

// NewDetector loads the ONNX model at modelPath and prepares a fresh
// session. Initializing the ONNX Runtime environment itself is the caller's
// responsibility (it is process-global), via InitRuntime.
func NewDetector(modelPath string, threshold float32) (*Detector, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	inputNames := []string{"input", "state", "sr"}
	outputNames := []string{"output", "stateN"}
	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("vad: load model %q: %w", modelPath, err)
	}

	d := &Detector{session: session, threshold: threshold}
	d.resetLocked()
	return d, nil
}

// InitRuntime configures the process-global ONNX Runtime shared-library
// path. Must be called once before the first NewDetector. libPath may be
// empty to use the platform default search path.
func InitRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("vad: initialize onnxruntime: %w", err)
	}
	return nil
}

// Close releases the underlying ONNX session.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

// Reset zeroes the RNN state and context tail. Must be called at the start
// of every recording session.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Detector) resetLocked() {
	d.state = make([]float32, 2*1*128)
	d.context = make([]float32, contextSamples)
}

// Probe runs inference over exactly FrameSamples samples and returns the
// speech probability and whether it clears the configured threshold. It
// maintains RNN state and the context tail across calls; callers must feed
// frames in order with no gaps.
func (d *Detector) Probe(frame []float32) (probability float32, voice bool, err error) {
	if len(frame) != FrameSamples {
		return 0, false, fmt.Errorf("vad: frame must be %d samples, got %d", FrameSamples, len(frame))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	input := make([]float32, contextSamples+FrameSamples)
	copy(input, d.context)
	copy(input[contextSamples:], frame)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(input))), input)
	if err != nil {
		return 0, false, fmt.Errorf("vad: build input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateTensor, err := ort.NewTensor(ort.NewShape(2, 1, 128), d.state)
	if err != nil {
		return 0, false, fmt.Errorf("vad: build state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{SampleRate})
	if err != nil {
		return 0, false, fmt.Errorf("vad: build sample-rate tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputs := make([]ort.Value, 2)
	if err := d.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs); err != nil {
		return 0, false, fmt.Errorf("vad: run inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	probOut, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, false, fmt.Errorf("vad: unexpected output tensor type")
	}
	stateOut, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return 0, false, fmt.Errorf("vad: unexpected state tensor type")
	}

	probData := probOut.GetData()
	if len(probData) == 0 {
		return 0, false, fmt.Errorf("vad: empty probability output")
	}
	probability = probData[0]

	copy(d.state, stateOut.GetData())
	copy(d.context, frame[len(frame)-contextSamples:])

	return probability, probability > d.threshold, nil
}
