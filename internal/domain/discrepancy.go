package domain

// Discrepancy reasons.
const (
	ReasonScoreMismatch       = "grade_contradicts_score"
	ReasonGradedClosure       = "closure_not_ungraded"
	ReasonPerfectWithCitation = "perfect_score_with_violations"
)

// Inconsistency is a selected inspection whose recorded grade disagrees with
// what the grading rules derive for it.
type Inconsistency struct {
	Record   InspectionRecord
	Expected Grade
	Reason   string
}

// FindInconsistencies checks the current gradable inspection of every permit.
// The expected grade comes from Explain run over the record with its recorded
// grade cleared, so the counter and the engine share one rule table and a
// closure action is judged only through that table. Records
// the engine cannot grade (missing score, ambiguous chain) are not flagged.
func FindInconsistencies(store *RecordStore, resolver ClosureResolver) []Inconsistency {
	selected := SelectGradable(store.records)

	var out []Inconsistency
	for _, permit := range store.Permits() {
		rec, ok := selected[permit]
		if !ok || !rec.Grade.Present() {
			continue
		}
		if inc, ok := checkRecord(rec, resolver); ok {
			out = append(out, inc)
		}
	}
	return out
}

// CountInconsistencies returns len(FindInconsistencies(store, resolver)).
func CountInconsistencies(store *RecordStore, resolver ClosureResolver) int {
	return len(FindInconsistencies(store, resolver))
}

func checkRecord(rec InspectionRecord, resolver ClosureResolver) (Inconsistency, bool) {
	if rec.Grade == GradeA && rec.HasScore() && *rec.Score == 0 && rec.Action == ActionViolationsCited {
		return Inconsistency{Record: rec, Expected: GradeNone, Reason: ReasonPerfectWithCitation}, true
	}
	if !rec.HasScore() && rec.Type.Kind != KindReopening {
		return Inconsistency{}, false
	}

	cleared := rec
	cleared.Grade = GradeNone
	want := Explain(cleared, resolver)
	if want.Issue != nil || !want.Grade.Present() {
		return Inconsistency{}, false
	}
	if compatible(rec.Grade, want) {
		return Inconsistency{}, false
	}
	reason := ReasonScoreMismatch
	if want.Rule == RuleReopeningNotReopened {
		reason = ReasonGradedClosure
	}
	return Inconsistency{Record: rec, Expected: want.Grade, Reason: reason}, true
}

// compatible reports whether a recorded grade agrees with the derived one.
// A pending grade stands in for any score-derived grade other than A and for
// the pending grade that follows a closed initial inspection. Compliance
// closures and reopenings that did not reopen must match exactly.
func compatible(recorded Grade, want Inference) bool {
	if recorded == want.Grade {
		return true
	}
	if recorded != GradeZ && recorded != GradeP {
		return false
	}
	switch want.Rule {
	case RuleScoreBand, RuleClosureReinspection:
		return want.Grade != GradeA
	case RuleClosureInitial:
		return true
	}
	return false
}
