package skald

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/skald-logger/skald/core"
	"go.uber.org/zap"
)

// SaveArtifact copies data to name below the artifacts directory, creating
// intermediate directories, and returns the file path. Existing files are
// replaced.
func (r *Run) SaveArtifact(name string, data io.Reader) (string, error) {
	if err := r.checkActive(); err != nil {
		return "", err
	}
	rel, err := artifactPath(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.ArtifactsDir(), rel)

	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact %s: %w", rel, err)
	}
	n, err := io.Copy(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write artifact %s: %w", rel, err)
	}

	r.logger.Debug("saved artifact", zap.String("path", path), zap.Int64("bytes", n))
	return path, nil
}

func artifactPath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || clean == "." || filepath.IsAbs(clean) ||
		clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: artifact %q", core.ErrInvalidName, name)
	}
	return clean, nil
}
