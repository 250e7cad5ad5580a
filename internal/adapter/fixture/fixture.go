// Package fixture reads and writes JSON files of raw inspection rows in the
// OData column layout, for offline grading and test data.
package fixture

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

// Source serves a fixture file as the inspection dataset.
// It implements pipeline.InspectionSource.
type Source struct {
	path string
}

// NewSource creates a source reading path on every fetch.
func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) FetchInspections(ctx context.Context) ([]domain.RawInspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "fixture: context cancelled")
	}
	return Read(s.path)
}

// Read decodes a JSON array of raw inspection rows.
func Read(path string) ([]domain.RawInspection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}
	var rows []domain.RawInspection
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "fixture: decode %s", path)
	}
	return rows, nil
}

// Write encodes rows as an indented JSON array, creating parent directories.
func Write(path string, rows []domain.RawInspection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "fixture: create directory")
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return eris.Wrap(err, "fixture: encode")
	}
	data = append(data, '\n')
	return eris.Wrapf(os.WriteFile(path, data, 0o600), "fixture: write %s", path)
}
