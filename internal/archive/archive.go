// Package archive saves generated CSVs: to a local export directory (the
// "download") and optionally to an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Exporter stores one generated file and returns where it was written.
type Exporter interface {
	Export(ctx context.Context, name, contentType string, content []byte) (string, error)
}

// DirExporter writes files into a local directory, creating it on first use.
type DirExporter struct {
	Dir string
}

func (d DirExporter) Export(ctx context.Context, name, contentType string, content []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	if err := os.MkdirAll(d.Dir, 0700); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(d.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// Tee exports to every exporter in order. The first location is returned;
// failures are joined so one broken target does not hide the others.
type Tee []Exporter

func (t Tee) Export(ctx context.Context, name, contentType string, content []byte) (string, error) {
	var first string
	var errs []error
	for _, e := range t {
		loc, err := e.Export(ctx, name, contentType, content)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}
