package modelloader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// ErrModelChanged is returned by TranscribeWithModel when the loaded model
// no longer matches the requested one by the time inference is about to
// start — another goroutine's EnsureLoaded swapped it out from under this
// call. Callers must fail closed rather than infer against the new model.
var ErrModelChanged = errors.New("model changed during transcription")

// EventKind tags a lifecycle notification emitted while a model loads.
type EventKind int

const (
	EventStarted EventKind = iota
	EventComplete
	EventError
)

// Event is one model-load lifecycle notification.
type Event struct {
	Kind  EventKind
	Model string
	Err   error
}

// Sink receives load lifecycle events; typically wired to uievents.Sink.
type Sink func(Event)

// loadedWhisper holds a live whisper.cpp model and context.
type loadedWhisper struct {
	model   whisper.Model
	context whisper.Context
}

// Loader manages at most one loaded local model at a time. Loading is
// serialized: while a load is in flight, any other load request, for the
// same name or a different one, returns an error at once; it neither waits
// for the running load nor starts a second one.
type Loader struct {
	catalog   *Catalog
	modelsDir string
	sink      Sink

	mu          sync.RWMutex
	loading     bool
	loadingName string
	loaded      *loadedWhisper
	loadedName  string

	unloadTimeout time.Duration
	lastActivity  time.Time
	idleStop      chan struct{}
}

// NewLoader builds a Loader rooted at modelsDir (created on first use).
// sink may be nil.
func NewLoader(catalog *Catalog, modelsDir string, sink Sink) *Loader {
	if sink == nil {
		sink = func(Event) {}
	}
	return &Loader{catalog: catalog, modelsDir: modelsDir, sink: sink, lastActivity: time.Now()}
}

// ModelPath resolves name's on-disk file. It checks the primary per-model
// directory layout first, then the documented backward-compat fallbacks,
// in order, and returns the first one that exists as a file (a directory
// at a candidate path is skipped). If none exist, it returns the primary
// path — the destination a fresh download writes to.
func (l *Loader) ModelPath(name string) (string, error) {
	entry, ok := l.catalog.Find(name)
	if !ok {
		return "", fmt.Errorf("modelloader: unknown model %q", name)
	}
	candidates := modelPathCandidates(l.modelsDir, entry)
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return candidates[0], nil
}

// modelPathCandidates lists entry's possible on-disk locations, most
// preferred first: the primary models_dir/<model_name>/<fileName> layout,
// the flat models_dir/<fileName> fallback, and the models_dir/<fileName>/<fileName>
// fallback (a directory named after the catalog file name rather than the
// model name — the form a manual file drop or an older layout might use).
func modelPathCandidates(modelsDir string, entry ModelEntry) []string {
	return []string{
		filepath.Join(modelsDir, entry.Name, entry.FileName),
		filepath.Join(modelsDir, entry.FileName),
		filepath.Join(modelsDir, entry.FileName, entry.FileName),
	}
}

// IsDownloaded reports whether name's file is present on disk.
func (l *Loader) IsDownloaded(name string) bool {
	path, err := l.ModelPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// CurrentModel returns the name of the currently loaded model, or "" if
// none is loaded.
func (l *Loader) CurrentModel() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedName
}

// EnsureLoaded loads name if it isn't already the active model. While a
// load is in flight, a call for any name, including the one being loaded,
// returns an error immediately; it neither waits for that load nor
// interrupts it.
func (l *Loader) EnsureLoaded(name string) error {
	l.mu.RLock()
	if l.loadedName == name && l.loaded != nil {
		l.mu.RUnlock()
		l.touch()
		return nil
	}
	alreadyLoading := l.loading
	loadingName := l.loadingName
	l.mu.RUnlock()

	if alreadyLoading && loadingName != name {
		return fmt.Errorf("modelloader: model %q is loading, cannot also load %q", loadingName, name)
	}

	l.mu.Lock()
	// Re-verify under the write lock: another goroutine may have finished
	// loading name between the read-unlock above and this lock.
	if l.loadedName == name && l.loaded != nil {
		l.mu.Unlock()
		l.touch()
		return nil
	}
	if l.loading {
		l.mu.Unlock()
		return fmt.Errorf("modelloader: model %q is already loading", l.loadingName)
	}
	l.loading = true
	l.loadingName = name
	l.mu.Unlock()

	l.sink(Event{Kind: EventStarted, Model: name})
	err := l.load(name)

	l.mu.Lock()
	l.loading = false
	l.loadingName = ""
	l.mu.Unlock()

	if err != nil {
		l.sink(Event{Kind: EventError, Model: name, Err: err})
		return err
	}
	l.sink(Event{Kind: EventComplete, Model: name})
	l.touch()
	return nil
}

func (l *Loader) load(name string) error {
	entry, ok := l.catalog.Find(name)
	if !ok {
		return fmt.Errorf("modelloader: unknown model %q", name)
	}
	path, _ := l.ModelPath(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("modelloader: model %q not downloaded at %s: %w", name, path, err)
	}

	switch entry.Family {
	case FamilyWhisper:
		return l.loadWhisper(name, path)
	case FamilyParakeet:
		return fmt.Errorf("modelloader: parakeet family load not yet wired (model %q)", name)
	default:
		return fmt.Errorf("modelloader: unknown model family %q", entry.Family)
	}
}

func (l *Loader) loadWhisper(name, path string) error {
	model, err := whisper.New(path)
	if err != nil {
		return fmt.Errorf("modelloader: load whisper model %s: %w", path, err)
	}
	ctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return fmt.Errorf("modelloader: create whisper context: %w", err)
	}
	configureContext(ctx)

	l.mu.Lock()
	l.unloadPrevious()
	l.loaded = &loadedWhisper{model: model, context: ctx}
	l.loadedName = name
	l.mu.Unlock()

	slog.Info("modelloader: model loaded", "model", name, "path", path)
	return nil
}

// hardwareThreads caps the thread count a whisper.cpp context runs with at
// 8; more threads past this point tends to lose to memory-bandwidth
// contention rather than help.
func hardwareThreads() int {
	cores := goruntime.NumCPU()
	if cores > 8 {
		return 8
	}
	return cores
}

// configureContext applies the decoding parameters every loaded whisper
// context runs with: greedy sampling for latency, a hardware-sized thread
// count, and an entropy/temperature-fallback pair tuned to suppress
// hallucinated segments on near-silent audio. Voice activity detection is
// deliberately left to the vad package upstream of capture rather than
// whisper.cpp's own SetVAD, so silence never reaches the model at all.
func configureContext(ctx whisper.Context) {
	ctx.SetThreads(uint(hardwareThreads()))
	ctx.SetTranslate(false)
	ctx.SetMaxSegmentLength(200)
	ctx.SetBeamSize(1)
	ctx.SetEntropyThold(2.4)
	ctx.SetTemperature(0.2)
	ctx.SetTemperatureFallback(0.2)
	ctx.SetTokenTimestamps(false)
}

// Context returns the active whisper context, or an error if none is
// loaded.
func (l *Loader) Context() (whisper.Context, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.loaded == nil {
		return nil, fmt.Errorf("modelloader: no model loaded")
	}
	return l.loaded.context, nil
}

// TranscribeWithModel ensures name is loaded, then runs infer against its
// context under the same lock used to verify name is still the loaded
// model. This closes the race where a concurrent EnsureLoaded(other) swaps
// the active model between the load and the inference call: infer never
// runs against a model other than name, and a swap caught at the
// re-verify returns ErrModelChanged instead of silently transcribing with
// the wrong model.
func (l *Loader) TranscribeWithModel(name string, infer func(whisper.Context) error) error {
	if err := l.EnsureLoaded(name); err != nil {
		return err
	}
	return l.verifyAndInfer(name, infer)
}

func (l *Loader) verifyAndInfer(name string, infer func(whisper.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadedName != name || l.loaded == nil {
		return ErrModelChanged
	}
	return infer(l.loaded.context)
}

func (l *Loader) touch() {
	l.mu.Lock()
	l.lastActivity = time.Now()
	l.mu.Unlock()
}

// unloadPrevious releases the currently loaded model. Caller must hold mu.
func (l *Loader) unloadPrevious() {
	if l.loaded == nil {
		return
	}
	if err := l.loaded.model.Close(); err != nil {
		slog.Warn("modelloader: error closing previous model", "error", err)
	}
	l.loaded = nil
	l.loadedName = ""
}

// Unload releases the active model immediately.
func (l *Loader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unloadPrevious()
}

// SetUnloadTimeout configures idle-based auto-unload; zero disables it.
func (l *Loader) SetUnloadTimeout(d time.Duration) {
	l.mu.Lock()
	l.unloadTimeout = d
	l.mu.Unlock()

	l.stopIdleChecker()
	if d > 0 {
		l.startIdleChecker()
	}
}

func (l *Loader) startIdleChecker() {
	stop := make(chan struct{})
	l.mu.Lock()
	l.idleStop = stop
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.checkIdle()
			}
		}
	}()
}

func (l *Loader) stopIdleChecker() {
	l.mu.Lock()
	stop := l.idleStop
	l.idleStop = nil
	l.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (l *Loader) checkIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unloadTimeout <= 0 || l.loaded == nil {
		return
	}
	if time.Since(l.lastActivity) >= l.unloadTimeout {
		slog.Info("modelloader: idle timeout reached, unloading model", "model", l.loadedName)
		l.unloadPrevious()
	}
}
