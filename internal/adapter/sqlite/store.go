// Package sqlite keeps the latest published restaurant grades in a SQLite
// database and serves them back as the snapshot for the next run.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
)

// Store implements pipeline.Sink and pipeline.SnapshotSource.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	generated_at    TEXT NOT NULL,
	restaurants     INTEGER NOT NULL,
	violations      INTEGER NOT NULL,
	inconsistencies INTEGER NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS restaurants (
	permit_number       TEXT PRIMARY KEY,
	restaurant_name     TEXT NOT NULL DEFAULT '',
	borough             TEXT NOT NULL DEFAULT '',
	building            TEXT NOT NULL DEFAULT '',
	street              TEXT NOT NULL DEFAULT '',
	zipcode             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	cuisine_description TEXT NOT NULL DEFAULT '',
	latitude            REAL,
	longitude           REAL,
	address             TEXT NOT NULL DEFAULT '',
	grade               TEXT NOT NULL,
	img_src             TEXT NOT NULL DEFAULT '',
	formatted_address   TEXT NOT NULL DEFAULT '',
	geo_source          TEXT NOT NULL DEFAULT '',
	run_id              TEXT NOT NULL REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS violations (
	permit_number         TEXT NOT NULL,
	inspection_date       TEXT NOT NULL,
	inspection_type       TEXT NOT NULL DEFAULT '',
	action                TEXT NOT NULL DEFAULT '',
	violation_code        TEXT NOT NULL DEFAULT '',
	violation_description TEXT NOT NULL DEFAULT '',
	critical_flag         TEXT NOT NULL DEFAULT '',
	score                 INTEGER,
	grade                 TEXT NOT NULL DEFAULT '',
	grade_date            TEXT NOT NULL DEFAULT '',
	run_id                TEXT NOT NULL REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_restaurants_grade ON restaurants(grade);
CREATE INDEX IF NOT EXISTS idx_violations_permit ON violations(permit_number, inspection_date);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "sqlite" }

// WriteReport records a run, upserts every restaurant and replaces the
// violation table in one transaction. Restaurants absent from the report keep
// their last published row.
func (s *Store) WriteReport(ctx context.Context, report domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	runID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, generated_at, restaurants, violations, inconsistencies) VALUES (?, ?, ?, ?, ?)`,
		runID, report.GeneratedAt.UTC().Format(time.RFC3339), len(report.Restaurants), len(report.Violations), report.Inconsistencies,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	if err := upsertRestaurants(ctx, tx, runID, report.Restaurants); err != nil {
		return err
	}
	if err := replaceViolations(ctx, tx, runID, report.Violations); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func upsertRestaurants(ctx context.Context, tx *sql.Tx, runID string, restaurants []domain.Restaurant) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO restaurants (
			permit_number, restaurant_name, borough, building, street, zipcode, phone,
			cuisine_description, latitude, longitude, address, grade, img_src,
			formatted_address, geo_source, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(permit_number) DO UPDATE SET
			restaurant_name = excluded.restaurant_name,
			borough = excluded.borough,
			building = excluded.building,
			street = excluded.street,
			zipcode = excluded.zipcode,
			phone = excluded.phone,
			cuisine_description = excluded.cuisine_description,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			address = excluded.address,
			grade = excluded.grade,
			img_src = excluded.img_src,
			formatted_address = excluded.formatted_address,
			geo_source = excluded.geo_source,
			run_id = excluded.run_id`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare restaurant upsert")
	}
	defer stmt.Close()

	for i := range restaurants {
		r := &restaurants[i]
		lat, lon := coordinate(r.Geo.Lat), coordinate(r.Geo.Lon)
		if _, err := stmt.ExecContext(ctx,
			r.Permit, r.Name, r.Borough, r.Building, r.Street, r.Zipcode, r.Phone,
			r.Cuisine, lat, lon, r.Address, string(r.Grade), r.ImageURL,
			r.FormattedAddress, r.GeoSource, runID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert restaurant %s", r.Permit)
		}
	}
	return nil
}

func replaceViolations(ctx context.Context, tx *sql.Tx, runID string, violations []domain.Violation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM violations`); err != nil {
		return eris.Wrap(err, "sqlite: clear violations")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO violations (
			permit_number, inspection_date, inspection_type, action, violation_code,
			violation_description, critical_flag, score, grade, grade_date, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare violation insert")
	}
	defer stmt.Close()

	for i := range violations {
		v := &violations[i]
		var score sql.NullInt64
		if v.Score != nil {
			score = sql.NullInt64{Int64: int64(*v.Score), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			v.Permit, v.InspectionDate.Format(time.DateOnly), v.InspectionType, v.Action, v.ViolationCode,
			v.ViolationDescription, v.CriticalFlag, score, v.Grade, v.GradeDate, runID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert violation %s", v.Permit)
		}
	}
	return nil
}

// coordinate stores unknown (zero) coordinates as NULL.
func coordinate(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

// LoadSnapshot returns every stored restaurant keyed by permit.
func (s *Store) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permit_number, restaurant_name, borough, building, street, zipcode, phone,
		       cuisine_description, latitude, longitude, address, grade, img_src,
		       formatted_address, geo_source
		FROM restaurants`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query restaurants")
	}
	defer rows.Close()

	snap := make(domain.Snapshot)
	for rows.Next() {
		var (
			r        domain.Restaurant
			lat, lon sql.NullFloat64
			grade    string
		)
		if err := rows.Scan(
			&r.Permit, &r.Name, &r.Borough, &r.Building, &r.Street, &r.Zipcode, &r.Phone,
			&r.Cuisine, &lat, &lon, &r.Address, &grade, &r.ImageURL,
			&r.FormattedAddress, &r.GeoSource,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan restaurant")
		}
		r.Geo = domain.Geo{Lat: lat.Float64, Lon: lon.Float64}
		r.Grade = domain.DisplayGrade(grade)
		snap[r.Permit] = r
	}
	return snap, eris.Wrap(rows.Err(), "sqlite: iterate restaurants")
}
