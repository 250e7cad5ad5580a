package domain

import "slices"

// GradedInspection is the canonical inspection selected for one
// establishment together with its inferred and display grades.
type GradedInspection struct {
	Record    InspectionRecord
	Inference Inference
	Display   DisplayGrade
}

// SelectGradable picks, per permit, the most recent inspection whose type is
// gradable. Records sharing the maximal date are ordered by their published
// inspection type string and the first wins.
func SelectGradable(records []InspectionRecord) map[string]InspectionRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, compareRecords)

	selected := make(map[string]InspectionRecord)
	for _, rec := range sorted {
		if !rec.Type.Gradable() {
			continue
		}
		if _, ok := selected[rec.Permit]; ok {
			continue
		}
		selected[rec.Permit] = rec
	}
	return selected
}

// NormalizeGrade maps an inferred grade onto its display label. An
// inspection with no violations always displays as A.
func NormalizeGrade(action Action, g Grade) DisplayGrade {
	if action == ActionNoViolations {
		return DisplayA
	}
	switch g {
	case GradeA:
		return DisplayA
	case GradeB:
		return DisplayB
	case GradeC:
		return DisplayC
	case GradeZ, GradeP:
		return DisplayGradePending
	default:
		return DisplayNotYetGraded
	}
}

// GradeEstablishments selects the current inspection of every permit in the
// store, infers its grade and normalizes it. Results are ordered by permit.
func GradeEstablishments(store *RecordStore, resolver ClosureResolver) []GradedInspection {
	selected := SelectGradable(store.records)

	out := make([]GradedInspection, 0, len(selected))
	for _, permit := range store.Permits() {
		rec, ok := selected[permit]
		if !ok {
			continue
		}
		inf := Explain(rec, resolver)
		if rec.Action == ActionNoViolations {
			inf = Inference{Grade: GradeA, Rule: RuleNoViolationsOverride}
		}
		out = append(out, GradedInspection{
			Record:    rec,
			Inference: inf,
			Display:   NormalizeGrade(rec.Action, inf.Grade),
		})
	}
	return out
}
