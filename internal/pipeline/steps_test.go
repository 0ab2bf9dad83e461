package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
	"github.com/nao1215/sitemirror/internal/storage"
)

type fakeSaver struct {
	saved []*model.Run
	err   error
}

func (f *fakeSaver) SaveRun(_ context.Context, run *model.Run) error {
	f.saved = append(f.saved, run)
	return f.err
}

func storeRun(t *testing.T, mode model.Mode) (*model.Run, *storage.Store) {
	t.Helper()

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	run := testRun()
	run.Mode = mode
	run.OutputDir = store.Root()
	if mode == model.ModeProxy {
		run.ProxyBase = "https://proxy.test/_ja/"
	}
	run.State.Claim("https://example.com/")
	run.State.RecordFile("https://example.com/", "example.com/index.html", model.CategoryPage)
	return run, store
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

func TestFinalizersDirectRun(t *testing.T) {
	t.Parallel()

	run, store := storeRun(t, model.ModeDirect)
	saver := &fakeSaver{}
	p := New()
	p.AddSteps(Finalizers(store, saver, nil)...)

	if got := p.StepNames(); !slices.Equal(got, []string{"manifest", "index", "history"}) {
		t.Errorf("StepNames() = %v", got)
	}
	if err := p.Execute(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	if !exists(t, filepath.Join(store.Root(), report.ManifestFile)) {
		t.Error("manifest not written")
	}
	if !exists(t, filepath.Join(store.Root(), report.IndexFile)) {
		t.Error("index not written for a direct run")
	}
	if len(saver.saved) != 1 || saver.saved[0] != run {
		t.Errorf("saved runs = %v", saver.saved)
	}
}

func TestFinalizersProxyRunHasNoIndex(t *testing.T) {
	t.Parallel()

	run, store := storeRun(t, model.ModeProxy)
	p := New()
	p.AddSteps(Finalizers(store, nil, nil)...)

	if p.StepCount() != 2 {
		t.Errorf("StepCount() = %d, want 2 without history", p.StepCount())
	}
	if err := p.Execute(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if !exists(t, filepath.Join(store.Root(), report.ManifestFile)) {
		t.Error("manifest not written")
	}
	if exists(t, filepath.Join(store.Root(), report.IndexFile)) {
		t.Error("index written for a proxy run")
	}
}

func TestHistoryStepError(t *testing.T) {
	t.Parallel()

	errDB := errors.New("disk full")
	step := NewHistoryStep(&fakeSaver{err: errDB}, nil)
	if err := step.Do(context.Background(), testRun()); !errors.Is(err, errDB) {
		t.Errorf("Do() = %v, want wrapped disk full", err)
	}
}
