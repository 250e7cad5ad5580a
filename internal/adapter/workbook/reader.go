package workbook

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

// Reader loads the restaurant sheet of a previously published workbook.
// It implements pipeline.SnapshotSource.
type Reader struct {
	path string
}

// NewReader creates a snapshot source for the workbook at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// LoadSnapshot reads the first sheet keyed by permit_number. A missing file
// yields an empty snapshot.
func (r *Reader) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return domain.Snapshot{}, nil
	}

	f, err := xlsx.OpenFile(r.path)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("workbook: %s has no sheets", r.path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return domain.Snapshot{}, nil
	}

	cols := columnIndex(sheet.Rows[0])
	if _, ok := cols["permit_number"]; !ok {
		return nil, eris.Errorf("workbook: sheet %q has no permit_number column", sheet.Name)
	}

	snap := make(domain.Snapshot, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "workbook: context cancelled")
		}
		rest := parseRestaurant(row, cols)
		if rest.Permit == "" {
			continue
		}
		snap[rest.Permit] = rest
	}
	return snap, nil
}

func columnIndex(header *xlsx.Row) map[string]int {
	idx := make(map[string]int, len(header.Cells))
	for i, c := range header.Cells {
		idx[strings.TrimSpace(c.String())] = i
	}
	return idx
}

func parseRestaurant(row *xlsx.Row, cols map[string]int) domain.Restaurant {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i].String())
	}
	num := func(col string) float64 {
		i, ok := cols[col]
		if !ok || i >= len(row.Cells) {
			return 0
		}
		v, err := row.Cells[i].Float()
		if err != nil {
			return 0
		}
		return v
	}

	return domain.Restaurant{
		Permit:           get("permit_number"),
		Name:             get("restaurant_name"),
		Borough:          get("borough"),
		Building:         get("building"),
		Street:           get("street"),
		Zipcode:          get("zipcode"),
		Phone:            get("phone"),
		Cuisine:          get("cuisine_description"),
		Geo:              domain.Geo{Lat: num("latitude"), Lon: num("longitude")},
		Address:          get("address"),
		Grade:            domain.DisplayGrade(get("grade")),
		ImageURL:         get("img_src"),
		FormattedAddress: get("formatted_address"),
		GeoSource:        get("geo_source"),
	}
}
