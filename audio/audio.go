// Package audio owns the default input device, the resample/VAD-framing
// pipeline, and WAV persistence for one recording session at a time.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// LevelCallback receives the current RMS level, clamped to [0,1].
type LevelCallback func(level float32)

// FrameClassifier decides whether a VAD frame of exactly FrameSamples
// samples should be persisted. It is expected to be cheap: no I/O, no
// allocation beyond what it needs to return its own frames.
type FrameClassifier interface {
	// Classify returns the samples that should be written to the WAV file
	// for this frame (typically the frame itself, possibly prefixed with
	// prefill context, or nil if the frame is classified as noise), along
	// with the count that should count toward the speech-duration total.
	Classify(frame []float32) (toWrite []float32, speechSamples int)
	Reset()
}

// nativeCaptureRate is the sample rate requested from the OS audio backend.
// The pipeline always resamples down to TargetSampleRate itself rather than
// asking the backend to do the conversion, so that the fixed-chunk FFT
// resampler stage in Capture is always exercised.
const nativeCaptureRate = 48000

// Capture owns the malgo device and the resample/VAD/WAV pipeline for one
// session. It is not safe to Start two overlapping sessions; callers must
// fully Stop before starting again.
type Capture struct {
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	device    *malgo.Device
	malgoCtx  *malgo.AllocatedContext
	isRunning bool

	onLevel            LevelCallback
	levelChan          chan float32
	levelDone          chan struct{}
	levelSampleCounter int

	resampleMu sync.Mutex
	resampler  *Resampler
	vadAccum   []float32

	classifier   FrameClassifier
	classifierMu sync.Mutex

	writeMu       sync.Mutex
	wavWriter     *WAVWriter
	debugWriter   *WAVWriter
	speechSamples int
	recording     bool
}

// NewCapture returns a Capture ready to Start. classifier may be nil, in
// which case every frame is persisted (the "VAD disabled" fallback).
func NewCapture(classifier FrameClassifier) *Capture {
	return &Capture{
		classifier:          classifier,
		levelChan:           make(chan float32, 10),
		levelSampleCounter:  0,
	}
}

// Start opens the default capture device and begins streaming. It does not
// start writing to a file; call StartRecording for that once Start has
// succeeded.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return fmt.Errorf("audio capture already running")
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("audio: malgo message", "message", message)
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = nativeCaptureRate
	deviceConfig.Alsa.NoMMap = 1

	resamp, err := NewResampler(nativeCaptureRate, TargetSampleRate)
	if err != nil {
		ctx.Uninit()
		return fmt.Errorf("build resampler: %w", err)
	}
	c.resampleMu.Lock()
	c.resampler = resamp
	c.vadAccum = c.vadAccum[:0]
	c.resampleMu.Unlock()

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onAudioData,
	})
	if err != nil {
		ctx.Uninit()
		return fmt.Errorf("init capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}

	c.device = device
	c.malgoCtx = ctx
	c.isRunning = true

	c.levelDone = make(chan struct{})
	go c.levelLoop()

	slog.Info("audio: capture started", "nativeRate", nativeCaptureRate, "targetRate", TargetSampleRate)
	return nil
}

// Stop halts the device and any in-progress recording. Safe to call
// multiple times.
func (c *Capture) Stop() {
	c.StopRecording()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.isRunning = false
	done := c.levelDone
	device := c.device
	c.device = nil
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	if device != nil {
		device.Stop()
		device.Uninit()
	}
	if c.malgoCtx != nil {
		c.malgoCtx.Uninit()
		c.malgoCtx.Free()
		c.malgoCtx = nil
	}
	slog.Info("audio: capture stopped")
}

// IsRunning reports whether the device stream is active.
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}

// SetLevelCallback installs the RMS level callback, called from a dedicated
// goroutine (never from the audio callback itself).
func (c *Capture) SetLevelCallback(cb LevelCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLevel = cb
}

// StartRecording opens path (and, if debugPath is non-empty, a second raw
// WAV) and begins writing persisted frames to them. The VAD classifier (if
// any) is reset so hysteresis state doesn't leak across sessions.
func (c *Capture) StartRecording(path string, debugPath string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.recording {
		return fmt.Errorf("already recording")
	}

	w, err := NewWAVWriter(path, TargetSampleRate)
	if err != nil {
		return fmt.Errorf("open wav writer: %w", err)
	}
	var dbg *WAVWriter
	if debugPath != "" {
		dbg, err = NewWAVWriter(debugPath, TargetSampleRate)
		if err != nil {
			w.Close()
			return fmt.Errorf("open debug wav writer: %w", err)
		}
	}

	c.classifierMu.Lock()
	if c.classifier != nil {
		c.classifier.Reset()
	}
	c.classifierMu.Unlock()

	c.wavWriter = w
	c.debugWriter = dbg
	c.speechSamples = 0
	c.recording = true
	return nil
}

// Result is returned by StopRecording.
type Result struct {
	FilePath      string
	SpeechSamples int
}

// StopRecording finalizes the WAV file(s) and returns the speech-sample
// count accumulated during the session.
func (c *Capture) StopRecording() Result {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.recording {
		return Result{}
	}
	c.recording = false

	var path string
	if c.wavWriter != nil {
		path = c.wavWriter.file.Name()
		if err := c.wavWriter.Close(); err != nil {
			slog.Error("audio: closing wav writer", "error", err)
		}
		c.wavWriter = nil
	}
	if c.debugWriter != nil {
		if err := c.debugWriter.Close(); err != nil {
			slog.Error("audio: closing debug wav writer", "error", err)
		}
		c.debugWriter = nil
	}

	n := c.speechSamples
	c.speechSamples = 0
	return Result{FilePath: path, SpeechSamples: n}
}

func (c *Capture) levelLoop() {
	defer close(c.levelDone)
	for {
		select {
		case level, ok := <-c.levelChan:
			if !ok {
				return
			}
			c.mu.RLock()
			cb := c.onLevel
			c.mu.RUnlock()
			if cb != nil {
				cb(level)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// onAudioData is invoked by malgo on its own thread. It must stay fast: no
// locks held across I/O, no blocking sends.
func (c *Capture) onAudioData(_, inputSamples []byte, framecount uint32) {
	if framecount == 0 || len(inputSamples) == 0 {
		return
	}

	samples := bytesToFloat32(inputSamples, framecount)
	c.emitLevel(samples)

	c.resampleMu.Lock()
	resampled, err := c.resampler.Process(samples)
	c.resampleMu.Unlock()
	if err != nil {
		slog.Error("audio: resample failed", "error", err)
		return
	}
	if len(resampled) == 0 {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !c.recording {
		return
	}

	c.classifierMu.Lock()
	classifier := c.classifier
	c.classifierMu.Unlock()

	var debugWrite, write func([]float32) error
	if c.debugWriter != nil {
		debugWrite = c.debugWriter.WriteSamples
	}
	write = c.wavWriter.WriteSamples

	remaining, speech := drainVadFrames(append(c.vadAccum, resampled...), classifier, write, debugWrite)
	c.vadAccum = remaining
	c.speechSamples += speech
}

// drainVadFrames repeatedly pulls exactly FrameSamples off accum, routes
// each frame through classifier (if any), and writes the result to write
// (and, if non-nil, every raw frame to debugWrite). It returns the leftover
// tail that didn't fill a full frame, plus the total speech-sample count
// written. Extracted from the audio callback so it can be exercised without
// a real capture device.
func drainVadFrames(accum []float32, classifier FrameClassifier, write, debugWrite func([]float32) error) (remaining []float32, speechSamples int) {
	for len(accum) >= FrameSamples {
		frame := accum[:FrameSamples]
		accum = accum[FrameSamples:]

		if debugWrite != nil {
			if err := debugWrite(frame); err != nil {
				slog.Error("audio: debug wav write failed", "error", err)
			}
		}

		toWrite := frame
		speechCount := len(frame)
		if classifier != nil {
			toWrite, speechCount = classifier.Classify(frame)
		}
		if len(toWrite) > 0 {
			if err := write(toWrite); err != nil {
				slog.Error("audio: wav write failed", "error", err)
			}
			speechSamples += speechCount
		}
	}
	return accum, speechSamples
}

func (c *Capture) emitLevel(samples []float32) {
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	c.levelSampleCounter += len(samples)
	if c.levelSampleCounter < 533 {
		return
	}
	c.levelSampleCounter = 0

	rms := float32(0)
	if len(samples) > 0 {
		rms = float32(math.Sqrt(sumSquares / float64(len(samples))))
	}
	if rms > 1 {
		rms = 1
	}
	select {
	case c.levelChan <- rms:
	default:
	}
}

func bytesToFloat32(b []byte, framecount uint32) []float32 {
	samples := make([]float32, framecount)
	for i := uint32(0); i < framecount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(b)) {
			break
		}
		bits := uint32(b[offset]) | uint32(b[offset+1])<<8 | uint32(b[offset+2])<<16 | uint32(b[offset+3])<<24
		samples[i] = *(*float32)(unsafe.Pointer(&bits))
	}
	return samples
}
