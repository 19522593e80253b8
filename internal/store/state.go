package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// GazetteState is the cursor of the gazette source between batches.
type GazetteState struct {
	LastPublished string    `json:"last_published"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LoadGazetteState reads the cursor; a missing file yields the zero state.
func LoadGazetteState(path string) (GazetteState, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return GazetteState{}, nil
	}
	if err != nil {
		return GazetteState{}, err
	}
	var s GazetteState
	if err := json.Unmarshal(b, &s); err != nil {
		return GazetteState{}, fmt.Errorf("parse state %s: %w", path, err)
	}
	return s, nil
}

func SaveGazetteState(path string, s GazetteState) error {
	b, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
