package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Loader produces the documents an ingestion run operates on. PDF (or any
// other) extraction happens behind this interface; the pipeline only sees
// cleaned-up text records. Implementations skip unreadable items, logging
// them instead of halting the run.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

// DirLoader reads pre-extracted text files from a directory tree laid out
// as <root>/<category>/<name>.txt. The category is taken from the parent
// directory, "uncategorized" for files directly under the root.
type DirLoader struct {
	root string
}

func NewDirLoader(root string) *DirLoader {
	return &DirLoader{root: root}
}

func (l *DirLoader) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("data directory not found: %s", l.root)
	}

	var docs []Document
	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".txt") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("skipping unreadable document", zap.String("path", path), zap.Error(err))
			return nil
		}

		docs = append(docs, Document{
			Text:     string(data),
			Source:   path,
			Category: categoryFromPath(l.root, path),
			Filename: d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("loaded documents", zap.String("dir", l.root), zap.Int("count", len(docs)))
	return docs, nil
}

// categoryFromPath derives the category from the document's parent
// directory relative to the data root.
func categoryFromPath(root, path string) string {
	parent := filepath.Dir(path)
	if filepath.Clean(parent) == filepath.Clean(root) {
		return "uncategorized"
	}
	return filepath.Base(parent)
}
