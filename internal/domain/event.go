package domain

import "time"

// RawInspection is one row of the DOHMH restaurant inspection dataset as
// served by the open-data OData endpoint. Upstream publishes one row per
// cited violation, so a single inspection usually spans several rows.
type RawInspection struct {
	Camis                string `json:"camis"`
	DBA                  string `json:"dba"`
	Boro                 string `json:"boro"`
	Building             string `json:"building"`
	Street               string `json:"street"`
	Zipcode              string `json:"zipcode"`
	Phone                string `json:"phone"`
	CuisineDescription   string `json:"cuisine_description"`
	InspectionDate       string `json:"inspection_date"`
	Action               string `json:"action"`
	ViolationCode        string `json:"violation_code"`
	ViolationDescription string `json:"violation_description"`
	CriticalFlag         string `json:"critical_flag"`
	Score                string `json:"score"`
	Grade                string `json:"grade"`
	GradeDate            string `json:"grade_date"`
	InspectionType       string `json:"inspection_type"`
	Latitude             string `json:"latitude"`
	Longitude            string `json:"longitude"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair. The zero value
// means the coordinates are unknown.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// Known reports whether coordinates are present.
func (g Geo) Known() bool { return g.Lat != 0 || g.Lon != 0 }

// Restaurant is one row of the published restaurant table.
type Restaurant struct {
	Permit   string       `json:"permit_number"`
	Name     string       `json:"restaurant_name"`
	Borough  string       `json:"borough"`
	Building string       `json:"building,omitempty"`
	Street   string       `json:"street"`
	Zipcode  string       `json:"zipcode,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Cuisine  string       `json:"cuisine_description,omitempty"`
	Geo      Geo          `json:"geo"`
	Address  string       `json:"address"`
	Grade    DisplayGrade `json:"grade"`
	ImageURL string       `json:"img_src"`

	// Geocoding enrichment fields.
	FormattedAddress string `json:"formatted_address,omitempty"`
	GeoSource        string `json:"geo_source,omitempty"` // one of the GeoSource* constants

	// lastSeen is the date of the row the restaurant fields were taken from.
	lastSeen time.Time
}

// Violation is one row of the published violation table. Values are passed
// through from the raw dataset for audit purposes.
type Violation struct {
	Permit               string    `json:"permit_number"`
	InspectionDate       time.Time `json:"inspection_date"`
	InspectionType       string    `json:"inspection_type"`
	Action               string    `json:"action"`
	ViolationCode        string    `json:"violation_code,omitempty"`
	ViolationDescription string    `json:"violation_description,omitempty"`
	CriticalFlag         string    `json:"critical_flag,omitempty"`
	Score                *int      `json:"score,omitempty"`
	Grade                string    `json:"grade,omitempty"`
	GradeDate            string    `json:"grade_date,omitempty"`
}

// Row is a parsed RawInspection. Inspection.Type is unknown (and TypeErr set)
// when the inspection type is outside the closed vocabulary.
type Row struct {
	Restaurant Restaurant
	Violation  Violation
	Inspection InspectionRecord
	TypeErr    error
}

// Report is the output of one grading run.
type Report struct {
	GeneratedAt     time.Time    `json:"generated_at"`
	Restaurants     []Restaurant `json:"restaurants"`
	Violations      []Violation  `json:"violations"`
	Inconsistencies int          `json:"inconsistencies"`
}
