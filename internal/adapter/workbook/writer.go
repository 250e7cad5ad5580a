package workbook

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

// Writer saves each report to an xlsx file, replacing the previous one.
// It implements pipeline.Sink.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a workbook sink writing to path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "workbook" }

// WriteReport renders both sheets and swaps the file into place so readers
// never observe a partially written workbook.
func (w *Writer) WriteReport(ctx context.Context, report domain.Report) error {
	f, err := build(report)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "workbook: context cancelled")
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "workbook: create directory")
		}
	}
	tmp := w.path + ".tmp"
	if err := f.Save(tmp); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "workbook: save")
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "workbook: replace")
	}

	w.logger.Info("workbook written",
		"path", w.path,
		"restaurants", len(report.Restaurants),
		"violations", len(report.Violations),
	)
	return nil
}

func build(report domain.Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	rs, err := f.AddSheet(restaurantSheet)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: add restaurant sheet")
	}
	addHeader(rs, restaurantColumns)
	for i := range report.Restaurants {
		writeRestaurant(rs.AddRow(), &report.Restaurants[i])
	}

	vs, err := f.AddSheet(violationSheet)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: add violation sheet")
	}
	addHeader(vs, violationColumns)
	for i := range report.Violations {
		writeViolation(vs.AddRow(), &report.Violations[i])
	}
	return f, nil
}

func writeRestaurant(row *xlsx.Row, r *domain.Restaurant) {
	row.AddCell().SetString(r.Permit)
	row.AddCell().SetString(r.Name)
	row.AddCell().SetString(r.Borough)
	row.AddCell().SetString(r.Building)
	row.AddCell().SetString(r.Street)
	row.AddCell().SetString(r.Zipcode)
	addCoordinate(row, r.Geo.Lat)
	addCoordinate(row, r.Geo.Lon)
	row.AddCell().SetString(r.Phone)
	row.AddCell().SetString(r.Cuisine)
	row.AddCell().SetString(string(r.Grade))
	row.AddCell().SetString(r.Address)
	row.AddCell().SetString(r.ImageURL)
	row.AddCell().SetString(r.FormattedAddress)
	row.AddCell().SetString(r.GeoSource)
}

// addCoordinate leaves the cell blank for unknown coordinates.
func addCoordinate(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if v != 0 {
		cell.SetFloat(v)
	}
}

func writeViolation(row *xlsx.Row, v *domain.Violation) {
	row.AddCell().SetString(v.Permit)
	row.AddCell().SetString(v.InspectionDate.Format(time.DateOnly))
	row.AddCell().SetString(v.InspectionType)
	row.AddCell().SetString(v.Action)
	row.AddCell().SetString(v.ViolationCode)
	row.AddCell().SetString(v.ViolationDescription)
	row.AddCell().SetString(v.CriticalFlag)
	score := row.AddCell()
	if v.Score != nil {
		score.SetInt(*v.Score)
	}
	row.AddCell().SetString(v.Grade)
	row.AddCell().SetString(v.GradeDate)
}
