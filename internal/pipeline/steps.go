package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
)

// ManifestStep writes metadata.json.
type ManifestStep struct {
	writer *report.ManifestWriter
	logger *slog.Logger
}

// NewManifestStep creates a ManifestStep writing through out.
func NewManifestStep(out report.Writer, logger *slog.Logger) *ManifestStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestStep{writer: report.NewManifestWriter(out), logger: logger}
}

// Name returns the step name.
func (s *ManifestStep) Name() string {
	return "manifest"
}

// Do writes the manifest of run.
func (s *ManifestStep) Do(_ context.Context, run *model.Run) error {
	if err := s.writer.Write(run); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	s.logger.Info("saved manifest", "path", filepath.Join(run.OutputDir, report.ManifestFile))
	return nil
}

// IndexStep writes the archive index of a direct-mode run. Proxy runs keep
// the site's own pages at the output root and get no index.
type IndexStep struct {
	writer *report.IndexWriter
	logger *slog.Logger
}

// NewIndexStep creates an IndexStep writing through out.
func NewIndexStep(out report.Writer, logger *slog.Logger) *IndexStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStep{writer: report.NewIndexWriter(out), logger: logger}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do writes the index for direct runs and does nothing otherwise.
func (s *IndexStep) Do(_ context.Context, run *model.Run) error {
	if run.Mode != model.ModeDirect {
		return nil
	}
	if err := s.writer.Write(run); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	s.logger.Info("saved archive index", "path", filepath.Join(run.OutputDir, report.IndexFile))
	return nil
}

// RunSaver stores a finished run. *database.HistoryDB implements it.
type RunSaver interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// HistoryStep records the run in the history database.
type HistoryStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(saver RunSaver, logger *slog.Logger) *HistoryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryStep{saver: saver, logger: logger}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do saves run.
func (s *HistoryStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.saver.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run history: %w", err)
	}
	s.logger.Debug("recorded run", "id", run.ID)
	return nil
}

// Finalizers returns the standard steps for a run: manifest, index, and,
// when saver is non-nil, history.
func Finalizers(out report.Writer, saver RunSaver, logger *slog.Logger) []Step {
	steps := []Step{
		NewManifestStep(out, logger),
		NewIndexStep(out, logger),
	}
	if saver != nil {
		steps = append(steps, NewHistoryStep(saver, logger))
	}
	return steps
}
