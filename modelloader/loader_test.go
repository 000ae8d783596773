package modelloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

func TestCatalogFind(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c.Models) == 0 {
		t.Fatal("expected embedded catalog to contain models")
	}
	if _, ok := c.Find("base.en"); !ok {
		t.Fatal("expected base.en in catalog")
	}
	if _, ok := c.Find("does-not-exist"); ok {
		t.Fatal("expected unknown model to miss")
	}
}

func TestEnsureLoadedUnknownModel(t *testing.T) {
	c, _ := LoadCatalog()
	l := NewLoader(c, t.TempDir(), nil)
	if err := l.EnsureLoaded("not-a-model"); err == nil {
		t.Fatal("expected error for unknown model name")
	}
}

func TestEnsureLoadedNotDownloaded(t *testing.T) {
	c, _ := LoadCatalog()
	l := NewLoader(c, t.TempDir(), nil)
	if err := l.EnsureLoaded("base.en"); err == nil {
		t.Fatal("expected error for model not present on disk")
	}
	if l.CurrentModel() != "" {
		t.Fatal("failed load must not mark a model as current")
	}
}

// TestTranscribeWithModelDetectsSwap covers scenario S6: a model swap
// landing between EnsureLoaded's check and the inference call must fail
// closed with ErrModelChanged rather than run infer against the new model.
func TestTranscribeWithModelDetectsSwap(t *testing.T) {
	c, _ := LoadCatalog()
	l := NewLoader(c, t.TempDir(), nil)

	l.mu.Lock()
	l.loaded = &loadedWhisper{}
	l.loadedName = "m2" // simulates another goroutine's load finishing first
	l.mu.Unlock()

	called := false
	err := l.verifyAndInfer("m1", func(whisper.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrModelChanged) {
		t.Fatalf("expected ErrModelChanged, got %v", err)
	}
	if called {
		t.Fatal("infer must not run once the loaded model no longer matches the requested one")
	}
}

func TestTranscribeWithModelSucceedsWhenStable(t *testing.T) {
	c, _ := LoadCatalog()
	l := NewLoader(c, t.TempDir(), nil)

	l.mu.Lock()
	l.loaded = &loadedWhisper{}
	l.loadedName = "m1"
	l.mu.Unlock()

	called := false
	err := l.verifyAndInfer("m1", func(whisper.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected infer to run when the loaded model still matches")
	}
}

func TestModelPathPrimaryLayout(t *testing.T) {
	c, _ := LoadCatalog()
	dir := t.TempDir()
	l := NewLoader(c, dir, nil)
	entry, ok := c.Find("base.en")
	if !ok {
		t.Fatal("expected base.en in catalog")
	}

	primary := filepath.Join(dir, entry.Name, entry.FileName)
	mustWriteFile(t, primary)

	path, err := l.ModelPath("base.en")
	if err != nil {
		t.Fatalf("ModelPath: %v", err)
	}
	if path != primary {
		t.Fatalf("expected primary layout path %q, got %q", primary, path)
	}
	if !l.IsDownloaded("base.en") {
		t.Fatal("expected model to be reported downloaded via the primary layout")
	}
}

func TestModelPathFlatFallback(t *testing.T) {
	c, _ := LoadCatalog()
	dir := t.TempDir()
	l := NewLoader(c, dir, nil)
	entry, _ := c.Find("base.en")

	flat := filepath.Join(dir, entry.FileName)
	mustWriteFile(t, flat)

	path, err := l.ModelPath("base.en")
	if err != nil {
		t.Fatalf("ModelPath: %v", err)
	}
	if path != flat {
		t.Fatalf("expected flat fallback path %q, got %q", flat, path)
	}
}

func TestModelPathCatalogFilenameDirFallback(t *testing.T) {
	c, _ := LoadCatalog()
	dir := t.TempDir()
	l := NewLoader(c, dir, nil)
	entry, _ := c.Find("base.en")

	nested := filepath.Join(dir, entry.FileName, entry.FileName)
	mustWriteFile(t, nested)

	path, err := l.ModelPath("base.en")
	if err != nil {
		t.Fatalf("ModelPath: %v", err)
	}
	if path != nested {
		t.Fatalf("expected catalog-filename-directory fallback path %q, got %q", nested, path)
	}
}

func TestModelPathPrefersPrimaryOverFallbacks(t *testing.T) {
	c, _ := LoadCatalog()
	dir := t.TempDir()
	l := NewLoader(c, dir, nil)
	entry, _ := c.Find("base.en")

	primary := filepath.Join(dir, entry.Name, entry.FileName)
	flat := filepath.Join(dir, entry.FileName)
	mustWriteFile(t, flat)
	mustWriteFile(t, primary)

	path, err := l.ModelPath("base.en")
	if err != nil {
		t.Fatalf("ModelPath: %v", err)
	}
	if path != primary {
		t.Fatalf("expected primary layout to take priority over the flat fallback, got %q", path)
	}
}

func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("fixture"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSetUnloadTimeoutDisable(t *testing.T) {
	c, _ := LoadCatalog()
	l := NewLoader(c, t.TempDir(), nil)
	l.SetUnloadTimeout(0)
	if l.idleStop != nil {
		t.Fatal("zero timeout must not start an idle checker")
	}
}
