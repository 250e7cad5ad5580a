package domain

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

const imageBaseURL = "https://a816-health.nyc.gov/ABCEatsRestaurants/Content/images/NYCRestaurant_"

// gradeImages maps display grades onto the DOHMH grade card artwork.
var gradeImages = map[DisplayGrade]string{
	DisplayA:            imageBaseURL + "A.svg",
	DisplayB:            imageBaseURL + "B.svg",
	DisplayC:            imageBaseURL + "C.svg",
	DisplayGradePending: imageBaseURL + "GP.svg",
	DisplayNotYetGraded: imageBaseURL + "NG.svg",
}

// ImageURL returns the grade card URL for g. Unknown labels get the
// "Not Yet Graded" card.
func ImageURL(g DisplayGrade) string {
	if u, ok := gradeImages[g]; ok {
		return u
	}
	return gradeImages[DisplayNotYetGraded]
}

// Snapshot holds restaurant rows from a previous run keyed by permit.
type Snapshot map[string]Restaurant

// Grading is the engine's view of one batch of parsed rows.
type Grading struct {
	Store           *RecordStore
	Resolver        *Resolver
	Graded          []GradedInspection
	Inconsistencies []Inconsistency
	Quarantined     int
}

// GradeRows builds a record store from parsed rows and grades every
// establishment in it.
func GradeRows(rows []Row) Grading {
	records := make([]InspectionRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Inspection)
	}
	store := NewRecordStore(records)
	resolver := NewResolver(store)
	return Grading{
		Store:           store,
		Resolver:        resolver,
		Graded:          GradeEstablishments(store, resolver),
		Inconsistencies: FindInconsistencies(store, resolver),
		Quarantined:     store.Quarantined(),
	}
}

// ExtractRestaurants returns one restaurant per permit taken from the permit's
// most recent row, ordered by permit. On equal dates the earlier row wins.
func ExtractRestaurants(rows []Row) []Restaurant {
	latest := make(map[string]Restaurant)
	for _, r := range rows {
		cur, ok := latest[r.Restaurant.Permit]
		if ok && !r.Restaurant.lastSeen.After(cur.lastSeen) {
			continue
		}
		latest[r.Restaurant.Permit] = r.Restaurant
	}

	out := make([]Restaurant, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Restaurant) int { return strings.Compare(a.Permit, b.Permit) })
	return out
}

// FillFromSnapshot copies fields missing on r from the previous run's row.
func FillFromSnapshot(r, prev Restaurant) Restaurant {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&r.Name, prev.Name)
	fill(&r.Borough, prev.Borough)
	fill(&r.Building, prev.Building)
	fill(&r.Street, prev.Street)
	fill(&r.Zipcode, prev.Zipcode)
	fill(&r.Phone, prev.Phone)
	fill(&r.Cuisine, prev.Cuisine)
	if !r.Geo.Known() && prev.Geo.Known() {
		r.Geo = prev.Geo
		r.FormattedAddress = prev.FormattedAddress
		r.GeoSource = GeoSourceSnapshot
	}
	return r
}

// FormatAddress joins building number and street.
func FormatAddress(r Restaurant) string {
	if r.Building == "" {
		return r.Street
	}
	return r.Building + " " + r.Street
}

// GeocodeQuery builds the free-text geocoder query for a restaurant, or ""
// when there is nothing to look up.
func GeocodeQuery(r Restaurant) string {
	addr := FormatAddress(r)
	if addr == "" {
		return ""
	}
	return addr + ", " + r.Borough + ", NY"
}

// BuildReport assembles the restaurant and violation tables. Missing
// restaurant fields are filled from snapshot, missing coordinates are
// geocoded, and every restaurant receives its display grade and grade card.
// Permits without a gradable inspection display as "Not Yet Graded".
func BuildReport(ctx context.Context, rows []Row, grading Grading, snapshot Snapshot, geocoder Geocoder, logger *slog.Logger) Report {
	grades := make(map[string]DisplayGrade, len(grading.Graded))
	for _, g := range grading.Graded {
		grades[g.Record.Permit] = g.Display
	}

	restaurants := ExtractRestaurants(rows)
	for i, r := range restaurants {
		if prev, ok := snapshot[r.Permit]; ok {
			r = FillFromSnapshot(r, prev)
		}
		r = EnrichWithGeocoding(ctx, r, geocoder, logger)
		r.Address = FormatAddress(r)

		g, ok := grades[r.Permit]
		if !ok {
			g = DisplayNotYetGraded
		}
		r.Grade = g
		r.ImageURL = ImageURL(g)
		restaurants[i] = r
	}

	violations := make([]Violation, 0, len(rows))
	for _, r := range rows {
		violations = append(violations, r.Violation)
	}

	return Report{
		GeneratedAt:     clock.Now().UTC(),
		Restaurants:     restaurants,
		Violations:      violations,
		Inconsistencies: len(grading.Inconsistencies),
	}
}

// Restaurant returns the report row for permit.
func (r Report) Restaurant(permit string) (Restaurant, bool) {
	i, ok := slices.BinarySearchFunc(r.Restaurants, permit, func(x Restaurant, p string) int {
		return strings.Compare(x.Permit, p)
	})
	if !ok {
		return Restaurant{}, false
	}
	return r.Restaurants[i], true
}
