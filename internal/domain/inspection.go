package domain

import "time"

// Program is the inspection program half of a DOHMH inspection type,
// e.g. "Cycle Inspection" in "Cycle Inspection / Initial Inspection".
type Program int

const (
	ProgramUnknown Program = iota
	ProgramCycle
	ProgramPrePermit
)

// InspectionKind is the visit half of a DOHMH inspection type.
type InspectionKind int

const (
	KindOther InspectionKind = iota
	KindInitial
	KindReinspection
	KindReopening
	KindCompliance
)

// InspectionType is a closed program/kind pair. Values outside the known
// vocabulary never make it into a RecordStore.
type InspectionType struct {
	Program Program
	Kind    InspectionKind
}

var (
	CycleInitial          = InspectionType{ProgramCycle, KindInitial}
	CycleReinspection     = InspectionType{ProgramCycle, KindReinspection}
	CycleReopening        = InspectionType{ProgramCycle, KindReopening}
	CycleCompliance       = InspectionType{ProgramCycle, KindCompliance}
	CycleOther            = InspectionType{ProgramCycle, KindOther}
	PrePermitInitial      = InspectionType{ProgramPrePermit, KindInitial}
	PrePermitReinspection = InspectionType{ProgramPrePermit, KindReinspection}
	PrePermitReopening    = InspectionType{ProgramPrePermit, KindReopening}
	PrePermitCompliance   = InspectionType{ProgramPrePermit, KindCompliance}
	PrePermitOther        = InspectionType{ProgramPrePermit, KindOther}
)

// Known reports whether the type belongs to the closed vocabulary.
func (t InspectionType) Known() bool {
	return t.Program != ProgramUnknown
}

// Gradable reports whether an inspection of this type can carry an official grade.
func (t InspectionType) Gradable() bool {
	if !t.Known() {
		return false
	}
	switch t.Kind {
	case KindInitial, KindReinspection, KindReopening:
		return true
	default:
		return false
	}
}

// String renders the type the way DOHMH publishes it.
func (t InspectionType) String() string {
	var program string
	switch t.Program {
	case ProgramCycle:
		program = programCycle
	case ProgramPrePermit:
		program = programPrePermit
	default:
		return "unknown"
	}

	var kind string
	switch t.Kind {
	case KindInitial:
		kind = kindInitial
	case KindReinspection:
		kind = kindReinspection
	case KindReopening:
		kind = kindReopening
	case KindCompliance:
		kind = kindCompliance
	default:
		kind = "Other"
	}
	return program + " / " + kind
}

// Action is the categorical outcome of an inspection visit.
type Action string

const (
	ActionNoViolations        Action = "no_violations"
	ActionViolationsCited     Action = "violations_cited"
	ActionClosedByAuthority   Action = "closed"
	ActionReClosedByAuthority Action = "reclosed"
	ActionReopenedByAuthority Action = "reopened"
	ActionOther               Action = "other"
)

// IsClosure reports whether the action closed the establishment.
func (a Action) IsClosure() bool {
	return a == ActionClosedByAuthority || a == ActionReClosedByAuthority
}

// Grade is a raw letter grade as recorded upstream. The zero value means
// no grade was recorded.
type Grade string

const (
	GradeNone Grade = ""
	GradeA    Grade = "A"
	GradeB    Grade = "B"
	GradeC    Grade = "C"
	GradeN    Grade = "N" // not yet graded
	GradeZ    Grade = "Z" // grade pending
	GradeP    Grade = "P" // grade pending, issued on reopening
)

// Present reports whether a grade was recorded.
func (g Grade) Present() bool { return g != GradeNone }

// DisplayGrade is the label published for an establishment.
type DisplayGrade string

const (
	DisplayA            DisplayGrade = "A"
	DisplayB            DisplayGrade = "B"
	DisplayC            DisplayGrade = "C"
	DisplayGradePending DisplayGrade = "Grade Pending"
	DisplayNotYetGraded DisplayGrade = "Not Yet Graded"
)

// InspectionRecord is one inspection event for one establishment.
type InspectionRecord struct {
	Permit string
	Date   time.Time
	Type   InspectionType
	Action Action
	Score  *int
	Grade  Grade
}

// HasScore reports whether the inspection was scored.
func (r InspectionRecord) HasScore() bool { return r.Score != nil }

// key identifies an inspection within a RecordStore.
type inspectionKey struct {
	permit string
	date   time.Time
	typ    InspectionType
}

func (r InspectionRecord) key() inspectionKey {
	return inspectionKey{permit: r.Permit, date: r.Date, typ: r.Type}
}

// IntPtr returns a pointer to v, for building scored records.
func IntPtr(v int) *int { return &v }
