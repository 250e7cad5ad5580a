package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrSentinelDate marks rows carrying the 1900-01-01 placeholder date
	// DOHMH uses for establishments that have not been inspected yet.
	ErrSentinelDate = errors.New("sentinel inspection date")

	// ErrMissingPermit marks rows without a CAMIS permit number.
	ErrMissingPermit = errors.New("missing permit number")

	// ErrUnknownInspectionType marks inspection types outside the known vocabulary.
	ErrUnknownInspectionType = errors.New("unknown inspection type")
)

const (
	programCycle     = "Cycle Inspection"
	programPrePermit = "Pre-permit (Operational)"

	kindInitial          = "Initial Inspection"
	kindReinspection     = "Re-inspection"
	kindReopening        = "Reopening Inspection"
	kindCompliance       = "Compliance Inspection"
	kindSecondCompliance = "Second Compliance Inspection"
)

// DOHMH action sentences.
const (
	actionNoViolations    = "No violations were recorded at the time of this inspection."
	actionViolationsCited = "Violations were cited in the following area(s)."
	actionClosed          = "Establishment Closed by DOHMH. Violations were cited in the following area(s) and those requiring immediate action were addressed."
	actionReClosed        = "Establishment re-closed by DOHMH."
	actionReopened        = "Establishment re-opened by DOHMH."
)

var sentinelDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts lists the inspection date encodings seen in the OData feed and
// in CSV exports of the same dataset.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseRow converts a raw dataset row into its restaurant, violation and
// inspection parts. Rows dated with the sentinel placeholder or lacking a
// permit are rejected; an unknown inspection type is reported on Row.TypeErr
// so the row can still be published in the violation table.
func ParseRow(raw RawInspection) (Row, error) {
	permit := clean(raw.Camis)
	if permit == "" {
		return Row{}, ErrMissingPermit
	}

	date, err := parseDate(raw.InspectionDate)
	if err != nil {
		return Row{}, fmt.Errorf("parse row %s: %w", permit, err)
	}
	if date.Equal(sentinelDate) {
		return Row{}, ErrSentinelDate
	}

	score := parseScore(raw.Score)
	typ, typeErr := ParseInspectionType(raw.InspectionType)

	return Row{
		Restaurant: Restaurant{
			Permit:   permit,
			Name:     clean(raw.DBA),
			Borough:  clean(raw.Boro),
			Building: clean(raw.Building),
			Street:   clean(raw.Street),
			Zipcode:  clean(raw.Zipcode),
			Phone:    clean(raw.Phone),
			Cuisine:  clean(raw.CuisineDescription),
			Geo:      Geo{Lat: parseFloatOrZero(raw.Latitude), Lon: parseFloatOrZero(raw.Longitude)},
			lastSeen: date,
		},
		Violation: Violation{
			Permit:               permit,
			InspectionDate:       date,
			InspectionType:       clean(raw.InspectionType),
			Action:               clean(raw.Action),
			ViolationCode:        clean(raw.ViolationCode),
			ViolationDescription: clean(raw.ViolationDescription),
			CriticalFlag:         clean(raw.CriticalFlag),
			Score:                score,
			Grade:                clean(raw.Grade),
			GradeDate:            clean(raw.GradeDate),
		},
		Inspection: InspectionRecord{
			Permit: permit,
			Date:   date,
			Type:   typ,
			Action: ParseAction(raw.Action),
			Score:  score,
			Grade:  ParseGrade(raw.Grade),
		},
		TypeErr: typeErr,
	}, nil
}

// ParseInspectionType maps a DOHMH "<program> / <kind>" string onto the
// closed vocabulary. Known programs with an unrecognised kind map to
// KindOther; unknown programs are rejected.
func ParseInspectionType(s string) (InspectionType, error) {
	s = clean(s)
	program, kind, ok := strings.Cut(s, "/")
	if !ok {
		return InspectionType{}, fmt.Errorf("%w: %q", ErrUnknownInspectionType, s)
	}

	var t InspectionType
	switch strings.TrimSpace(program) {
	case programCycle:
		t.Program = ProgramCycle
	case programPrePermit:
		t.Program = ProgramPrePermit
	default:
		return InspectionType{}, fmt.Errorf("%w: %q", ErrUnknownInspectionType, s)
	}

	switch strings.TrimSpace(kind) {
	case kindInitial:
		t.Kind = KindInitial
	case kindReinspection:
		t.Kind = KindReinspection
	case kindReopening:
		t.Kind = KindReopening
	case kindCompliance, kindSecondCompliance:
		t.Kind = KindCompliance
	default:
		t.Kind = KindOther
	}
	return t, nil
}

// ParseAction maps a DOHMH action sentence onto Action. Unrecognised
// sentences map to ActionOther.
func ParseAction(s string) Action {
	switch clean(s) {
	case actionNoViolations:
		return ActionNoViolations
	case actionViolationsCited:
		return ActionViolationsCited
	case actionClosed:
		return ActionClosedByAuthority
	case actionReClosed:
		return ActionReClosedByAuthority
	case actionReopened:
		return ActionReopenedByAuthority
	default:
		return ActionOther
	}
}

// ParseGrade accepts the six letters DOHMH publishes. Anything else is
// treated as no grade.
func ParseGrade(s string) Grade {
	switch g := Grade(strings.ToUpper(clean(s))); g {
	case GradeA, GradeB, GradeC, GradeN, GradeZ, GradeP:
		return g
	default:
		return GradeNone
	}
}

// clean trims whitespace and maps the literal "None" placeholder to empty.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "None" {
		return ""
	}
	return s
}

func parseDate(s string) (time.Time, error) {
	s = clean(s)
	if s == "" {
		return time.Time{}, errors.New("missing inspection date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid inspection date %q", s)
}

// maxScore bounds parsed scores; real scores stay well below 200.
const maxScore = math.MaxInt32

// parseScore returns nil for absent or malformed scores. Integral floats such
// as "12.0" are accepted. Negative, fractional and out-of-range values never
// occur upstream and are treated as absent.
func parseScore(s string) *int {
	s = clean(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 || v > maxScore {
			return nil
		}
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > maxScore || f != math.Trunc(f) {
		return nil
	}
	v := int(f)
	return &v
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = clean(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
