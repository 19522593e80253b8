// Package source fetches raw gazette documents.
package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"movement-tracker/pipeline/internal/config"
	"movement-tracker/pipeline/internal/metrics"
	"movement-tracker/pipeline/internal/model"
)

// ErrUnknownType is returned by NewFromConfig for an unsupported source type.
var ErrUnknownType = errors.New("unknown source type")

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Document, error)
}

// Deps are the shared collaborators handed to every source.
type Deps struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	DefaultDate string
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func NewFromConfig(c config.SourceConfig, deps Deps) (Source, error) {
	switch c.Type {
	case "files":
		return NewFilesSource(c.Name, c.Files, deps), nil
	case "gazette":
		s, err := NewGazetteSource(c.Name, c.Gazette, deps)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
}
