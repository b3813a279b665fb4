package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Manifest records which files one fetched model cycle produced, so a
// restart can resume from disk without re-downloading.
type Manifest struct {
	Source    string            `json:"source"`
	RunDate   string            `json:"run_date"`
	RunHour   string            `json:"run_hour"`
	FetchedAt time.Time         `json:"fetched_at"`
	Files     map[string]string `json:"files"` // label -> path
}

// RunKey is the identifier used across the store, file names and map
// captions, e.g. "20260829_t00z".
func (m *Manifest) RunKey() string {
	return fmt.Sprintf("%s_t%sz", m.RunDate, m.RunHour)
}

func manifestPath(dir string, m *Manifest) string {
	return filepath.Join(dir, fmt.Sprintf("manifest_%s_%s_%s.json", m.Source, m.RunDate, m.RunHour))
}

// WriteManifest persists the manifest into the data directory.
func WriteManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath(dir, m), data, 0644)
}

// LatestManifest finds the most recent manifest for a source, or nil
// when none exists yet.
func LatestManifest(dir, source string) (*Manifest, error) {
	paths, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("manifest_%s_*.json", source)))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}
	sort.Strings(paths)

	data, err := os.ReadFile(paths[len(paths)-1])
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", paths[len(paths)-1], err)
	}
	return &m, nil
}
