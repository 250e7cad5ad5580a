package domain

import (
	"slices"
	"time"
)

// OutcomeKind classifies what the closure chain says about a reopening.
type OutcomeKind int

const (
	NoClosureFound OutcomeKind = iota
	InitialFollowsClosure
	ReinspectionFollowsClosure
	ComplianceFollowsClosure
)

func (k OutcomeKind) String() string {
	switch k {
	case InitialFollowsClosure:
		return "initial"
	case ReinspectionFollowsClosure:
		return "reinspection"
	case ComplianceFollowsClosure:
		return "compliance"
	default:
		return "none"
	}
}

// ClosureOutcome is the result of resolving a closure chain. Score and Grade
// are only set for ReinspectionFollowsClosure and carry the terminal
// re-inspection's own values.
type ClosureOutcome struct {
	Kind  OutcomeKind
	Score *int
	Grade Grade
}

// ClosureResolver resolves the closure chain preceding a reopening.
type ClosureResolver interface {
	ResolveClosureOutcome(permit string, asOf time.Time) ClosureOutcome
}

// ClosureGroup is every closure record a permit received on one date.
type ClosureGroup struct {
	Date    time.Time
	Records []InspectionRecord
}

func (g ClosureGroup) has(kind InspectionKind) bool {
	return slices.ContainsFunc(g.Records, func(r InspectionRecord) bool {
		return r.Type.Kind == kind
	})
}

// Resolver walks closure chains over a read-only RecordStore.
type Resolver struct {
	store *RecordStore
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store *RecordStore) *Resolver {
	return &Resolver{store: store}
}

// ClosureChain returns the permit's closure records dated on or before asOf,
// grouped by date, most recent group first.
func (r *Resolver) ClosureChain(permit string, asOf time.Time) []ClosureGroup {
	var groups []ClosureGroup
	for _, rec := range r.store.closuresFor(permit, asOf) {
		n := len(groups)
		if n > 0 && groups[n-1].Date.Equal(rec.Date) {
			groups[n-1].Records = append(groups[n-1].Records, rec)
			continue
		}
		groups = append(groups, ClosureGroup{Date: rec.Date, Records: []InspectionRecord{rec}})
	}
	return groups
}

// ResolveClosureOutcome scans the closure chain from the most recent group
// and stops at the first group holding an initial, re-inspection or
// compliance inspection, in that order of precedence. Groups holding only
// reopening (or other) inspections are skipped. Each group is visited once.
func (r *Resolver) ResolveClosureOutcome(permit string, asOf time.Time) ClosureOutcome {
	for _, g := range r.ClosureChain(permit, asOf) {
		switch {
		case g.has(KindInitial):
			return ClosureOutcome{Kind: InitialFollowsClosure}
		case g.has(KindReinspection):
			rec := terminalReinspection(g)
			return ClosureOutcome{Kind: ReinspectionFollowsClosure, Score: rec.Score, Grade: rec.Grade}
		case g.has(KindCompliance):
			return ClosureOutcome{Kind: ComplianceFollowsClosure}
		}
	}
	return ClosureOutcome{Kind: NoClosureFound}
}

// terminalReinspection picks the re-inspection record of a group, preferring
// one with a recorded grade, then one with a score.
func terminalReinspection(g ClosureGroup) InspectionRecord {
	var best InspectionRecord
	found := false
	for _, rec := range g.Records {
		if rec.Type.Kind != KindReinspection {
			continue
		}
		if !found || rank(rec) > rank(best) {
			best = rec
			found = true
		}
	}
	return best
}

func rank(rec InspectionRecord) int {
	switch {
	case rec.Grade.Present():
		return 2
	case rec.HasScore():
		return 1
	default:
		return 0
	}
}
