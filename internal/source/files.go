package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
)

var fileDate = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)

// FilesSource reads extracted gazette pages from a directory.
type FilesSource struct {
	name        string
	dir         string
	pattern     string
	defaultDate string
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewFilesSource(name string, cfg config.FilesConfig, deps Deps) *FilesSource {
	if name == "" {
		name = "files"
	}
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "*.txt"
	}
	return &FilesSource{
		name:        name,
		dir:         cfg.Dir,
		pattern:     pattern,
		defaultDate: deps.DefaultDate,
		logger:      deps.logger(),
		metrics:     deps.Metrics,
	}
}

func (s *FilesSource) Name() string { return s.name }

// Fetch returns one document per matching file, in name order. The document
// date comes from a date in the file name, else the configured default.
func (s *FilesSource) Fetch(ctx context.Context) ([]model.Document, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, s.pattern))
	if err != nil {
		s.metrics.ObserveDocuments(s.name, "error", 1)
		return nil, fmt.Errorf("%s: glob: %w", s.name, err)
	}
	sort.Strings(paths)

	docs := make([]model.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			s.metrics.ObserveDocuments(s.name, "error", 1)
			return docs, fmt.Errorf("%s: %w", s.name, err)
		}
		base := filepath.Base(p)
		date := dateFromName(base)
		if date == "" {
			date = s.defaultDate
		}
		if date == "" {
			s.logger.Warn("no document date", zap.String("file", base))
		}
		docs = append(docs, model.Document{
			ID:     base,
			Source: s.name,
			Ref:    base,
			Date:   date,
			Text:   string(b),
		})
	}
	s.metrics.ObserveDocuments(s.name, "fetched", len(docs))
	return docs, nil
}

func dateFromName(name string) string {
	m := fileDate.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	d := m[1] + "-" + m[2] + "-" + m[3]
	if _, err := model.ParseDate(d); err != nil {
		return ""
	}
	return d
}
