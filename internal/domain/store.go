package domain

import (
	"cmp"
	"slices"
	"time"
)

// RecordStore is an immutable table of inspection records keyed by
// (permit, date, type). It is built once per run and shared read-only by
// the selector, resolver and discrepancy counter.
type RecordStore struct {
	records     []InspectionRecord
	byPermit    map[string][]InspectionRecord
	quarantined int
}

// NewRecordStore builds a store from records in any order. Records with an
// inspection type outside the known vocabulary are quarantined. Records
// sharing a key collapse into one; a missing score or grade is filled from
// a sibling with the same key.
func NewRecordStore(records []InspectionRecord) *RecordStore {
	s := &RecordStore{byPermit: make(map[string][]InspectionRecord)}

	index := make(map[inspectionKey]int, len(records))
	for _, rec := range records {
		if !rec.Type.Known() {
			s.quarantined++
			continue
		}
		k := rec.key()
		i, seen := index[k]
		if !seen {
			index[k] = len(s.records)
			s.records = append(s.records, rec)
			continue
		}
		existing := &s.records[i]
		if existing.Score == nil && rec.Score != nil {
			existing.Score = rec.Score
		}
		if !existing.Grade.Present() && rec.Grade.Present() {
			existing.Grade = rec.Grade
		}
		if existing.Action == ActionOther && rec.Action != ActionOther {
			existing.Action = rec.Action
		}
	}

	slices.SortStableFunc(s.records, compareRecords)
	for _, rec := range s.records {
		s.byPermit[rec.Permit] = append(s.byPermit[rec.Permit], rec)
	}
	return s
}

// compareRecords orders by permit, then newest date first, then by the
// published inspection type string so equal-date records have a fixed order.
func compareRecords(a, b InspectionRecord) int {
	if c := cmp.Compare(a.Permit, b.Permit); c != 0 {
		return c
	}
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Type.String(), b.Type.String()); c != 0 {
		return c
	}
	return cmp.Compare(a.Action, b.Action)
}

// Len returns the number of distinct inspections held.
func (s *RecordStore) Len() int { return len(s.records) }

// Quarantined returns how many records were rejected for an unknown type.
func (s *RecordStore) Quarantined() int { return s.quarantined }

// Records returns a copy of every record, ordered by permit then newest first.
func (s *RecordStore) Records() []InspectionRecord {
	return slices.Clone(s.records)
}

// ForPermit returns a copy of the permit's records, newest first.
func (s *RecordStore) ForPermit(permit string) []InspectionRecord {
	return slices.Clone(s.byPermit[permit])
}

// Permits returns every permit number in ascending order.
func (s *RecordStore) Permits() []string {
	permits := make([]string, 0, len(s.byPermit))
	for p := range s.byPermit {
		permits = append(permits, p)
	}
	slices.Sort(permits)
	return permits
}

// closuresFor returns the permit's closure records dated on or before asOf,
// newest first. The slice aliases no store memory.
func (s *RecordStore) closuresFor(permit string, asOf time.Time) []InspectionRecord {
	var out []InspectionRecord
	for _, rec := range s.byPermit[permit] {
		if rec.Action.IsClosure() && !rec.Date.After(asOf) {
			out = append(out, rec)
		}
	}
	return out
}
