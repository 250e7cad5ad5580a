// Command genmock converts a DOHMH restaurant inspection CSV export into the
// JSON fixture format read by the grader. It grades the converted rows with
// the domain package so the printed stats match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv DOHMH_New_York_City_Restaurant_Inspection_Results.csv \
//	  -out data/mock/inspections_sample.json \
//	  -permits 50
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/fixture"
	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "DOHMH inspection results CSV export")
	out := flag.String("out", "", "output path for the JSON fixture")
	permits := flag.Int("permits", 0, "keep rows for at most this many permits (0 = all)")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return errors.New("missing required flags: -csv, -out")
	}

	rows, err := readCSV(*csvPath, *permits)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *csvPath, err)
	}
	log.Printf("read %d rows", len(rows))

	if err := fixture.Write(*out, rows); err != nil {
		return err
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(rows)
	return nil
}

// columns maps normalized CSV headers onto raw inspection fields.
var columns = map[string]func(*domain.RawInspection, string){
	"camis":                 func(r *domain.RawInspection, v string) { r.Camis = v },
	"dba":                   func(r *domain.RawInspection, v string) { r.DBA = v },
	"boro":                  func(r *domain.RawInspection, v string) { r.Boro = v },
	"building":              func(r *domain.RawInspection, v string) { r.Building = v },
	"street":                func(r *domain.RawInspection, v string) { r.Street = v },
	"zipcode":               func(r *domain.RawInspection, v string) { r.Zipcode = v },
	"phone":                 func(r *domain.RawInspection, v string) { r.Phone = v },
	"cuisine_description":   func(r *domain.RawInspection, v string) { r.CuisineDescription = v },
	"inspection_date":       func(r *domain.RawInspection, v string) { r.InspectionDate = v },
	"action":                func(r *domain.RawInspection, v string) { r.Action = v },
	"violation_code":        func(r *domain.RawInspection, v string) { r.ViolationCode = v },
	"violation_description": func(r *domain.RawInspection, v string) { r.ViolationDescription = v },
	"critical_flag":         func(r *domain.RawInspection, v string) { r.CriticalFlag = v },
	"score":                 func(r *domain.RawInspection, v string) { r.Score = v },
	"grade":                 func(r *domain.RawInspection, v string) { r.Grade = v },
	"grade_date":            func(r *domain.RawInspection, v string) { r.GradeDate = v },
	"inspection_type":       func(r *domain.RawInspection, v string) { r.InspectionType = v },
	"latitude":              func(r *domain.RawInspection, v string) { r.Latitude = v },
	"longitude":             func(r *domain.RawInspection, v string) { r.Longitude = v },
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

func readCSV(path string, maxPermits int) ([]domain.RawInspection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	setters := make([]func(*domain.RawInspection, string), len(header))
	for i, h := range header {
		setters[i] = columns[normalizeHeader(h)]
	}

	seen := map[string]bool{}
	var rows []domain.RawInspection
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		var raw domain.RawInspection
		for i, v := range rec {
			if i < len(setters) && setters[i] != nil {
				setters[i](&raw, strings.TrimSpace(v))
			}
		}

		if maxPermits > 0 && !seen[raw.Camis] {
			if len(seen) >= maxPermits {
				continue
			}
			seen[raw.Camis] = true
		}
		rows = append(rows, raw)
	}

	if len(rows) == 0 {
		return nil, errors.New("no data rows")
	}
	return rows, nil
}

func printStats(raws []domain.RawInspection) {
	rows := make([]domain.Row, 0, len(raws))
	dropped := map[string]int{}
	for _, raw := range raws {
		row, err := domain.ParseRow(raw)
		switch {
		case errors.Is(err, domain.ErrSentinelDate):
			dropped["sentinel_date"]++
		case errors.Is(err, domain.ErrMissingPermit):
			dropped["missing_permit"]++
		case err != nil:
			dropped["invalid"]++
		default:
			rows = append(rows, row)
		}
	}

	grading := domain.GradeRows(rows)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d parsed, dropped sentinel_date=%d missing_permit=%d invalid=%d\n",
		len(rows), dropped["sentinel_date"], dropped["missing_permit"], dropped["invalid"])
	fmt.Printf("Quarantined: %d\n", grading.Quarantined)
	fmt.Printf("Inconsistencies: %d\n", len(grading.Inconsistencies))

	ruleCounts := map[string]int{}
	for _, gi := range grading.Graded {
		ruleCounts[string(gi.Inference.Rule)]++
	}
	printCounts("Inference rules", ruleCounts)

	report := domain.BuildReport(context.Background(), rows, grading, nil, nil, slog.Default())
	gradeCounts := map[string]int{}
	for _, r := range report.Restaurants {
		gradeCounts[string(r.Grade)]++
	}
	fmt.Printf("Restaurants: %d, violations: %d\n", len(report.Restaurants), len(report.Violations))
	printCounts("Display grades", gradeCounts)
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%s:", title)
	for _, k := range keys {
		fmt.Printf(" %s=%d", k, counts[k])
	}
	fmt.Println()
}
