package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/sitemirror/internal/model"
)

// ManifestFile is the manifest name at the root of the output directory.
const ManifestFile = "metadata.json"

// Writer persists a file relative to the output directory.
// *storage.Store implements it.
type Writer interface {
	Write(rel string, data []byte) error
}

// ManifestWriter writes metadata.json.
type ManifestWriter struct {
	out Writer
}

// NewManifestWriter creates a ManifestWriter writing through out.
func NewManifestWriter(out Writer) *ManifestWriter {
	return &ManifestWriter{out: out}
}

// Write snapshots run into a manifest and writes it, pretty-printed with
// two-space indentation.
func (w *ManifestWriter) Write(run *model.Run) error {
	data, err := MarshalManifest(model.NewManifest(run))
	if err != nil {
		return err
	}
	return w.out.Write(ManifestFile, data)
}

// MarshalManifest encodes m the way it is stored on disk.
func MarshalManifest(m *model.Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadManifest loads metadata.json from dir.
func ReadManifest(dir string) (*model.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile)) //nolint:gosec // user-provided mirror directory
	if err != nil {
		return nil, err
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	return &m, nil
}
