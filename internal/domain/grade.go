package domain

import "errors"

var (
	// ErrMissingScore is reported when a rule needs a score the record lacks.
	// The recorded grade is kept.
	ErrMissingScore = errors.New("missing score for grading")

	// ErrAmbiguousClosureChain is reported when a reopening has no conclusive
	// closure chain behind it. The recorded grade is kept.
	ErrAmbiguousClosureChain = errors.New("ambiguous closure chain")
)

// Rule names the branch of the grading rule table that produced a grade.
type Rule string

const (
	RuleRecorded             Rule = "recorded"
	RuleRegradeReinspection  Rule = "regrade_reinspection"
	RuleScoreBand            Rule = "score_band"
	RuleReopeningNotReopened Rule = "reopening_not_reopened"
	RuleClosureInitial       Rule = "closure_initial"
	RuleClosureReinspection  Rule = "closure_reinspection"
	RuleClosureLowScore      Rule = "closure_low_score"
	RuleClosureCompliance    Rule = "closure_compliance"
	RuleClosureNotFound      Rule = "closure_not_found"
	RuleNoViolationsOverride Rule = "no_violations"
)

// Inference explains how a grade was derived. Issue is ErrMissingScore or
// ErrAmbiguousClosureChain when the engine fell back to the recorded grade.
type Inference struct {
	Grade   Grade
	Rule    Rule
	Closure *ClosureOutcome
	Issue   error
}

// Score band boundaries, inclusive.
const (
	maxScoreA = 13
	maxScoreB = 28
)

// InferGrade computes the canonical grade for one inspection record.
func InferGrade(rec InspectionRecord, resolver ClosureResolver) Grade {
	return Explain(rec, resolver).Grade
}

// Explain applies the grading rules in precedence order, first match wins:
//
//  1. A recorded N on a non-closure re-inspection is regraded from its score.
//  2. A recorded grade on a reopening defers to the closure chain.
//  3. An absent grade is derived from the score band, and reopenings defer
//     to the closure chain.
//  4. Anything else keeps the recorded grade.
//
// Explain is pure: it reads the resolver and never mutates rec.
func Explain(rec InspectionRecord, resolver ClosureResolver) Inference {
	kind := rec.Type.Kind
	if !rec.Type.Known() {
		return Inference{Grade: rec.Grade, Rule: RuleRecorded}
	}

	if rec.Grade.Present() {
		switch {
		case kind == KindReinspection && !rec.Action.IsClosure() && rec.Grade == GradeN:
			if !rec.HasScore() {
				return Inference{Grade: rec.Grade, Rule: RuleRegradeReinspection, Issue: ErrMissingScore}
			}
			return Inference{Grade: reinspectionBand(*rec.Score), Rule: RuleRegradeReinspection}
		case kind == KindReopening:
			return explainReopening(rec, resolver)
		}
		return Inference{Grade: rec.Grade, Rule: RuleRecorded}
	}

	if kind == KindReopening {
		return explainReopening(rec, resolver)
	}

	if !rec.HasScore() {
		inf := Inference{Grade: rec.Grade, Rule: RuleRecorded}
		if rec.Type.Gradable() {
			inf.Issue = ErrMissingScore
		}
		return inf
	}

	score := *rec.Score
	switch {
	case (kind == KindInitial || kind == KindReinspection) && score <= maxScoreA:
		return Inference{Grade: GradeA, Rule: RuleScoreBand}
	case kind == KindInitial:
		return Inference{Grade: GradeN, Rule: RuleScoreBand}
	case kind == KindReinspection:
		return Inference{Grade: reinspectionBand(score), Rule: RuleScoreBand}
	}
	return Inference{Grade: rec.Grade, Rule: RuleRecorded}
}

// reinspectionBand maps a score onto A (<=13), B (14-28) or C (>28).
func reinspectionBand(score int) Grade {
	switch {
	case score <= maxScoreA:
		return GradeA
	case score <= maxScoreB:
		return GradeB
	default:
		return GradeC
	}
}

// explainReopening resolves a reopening inspection against its closure chain.
func explainReopening(rec InspectionRecord, resolver ClosureResolver) Inference {
	if rec.Action != ActionReopenedByAuthority {
		return Inference{Grade: GradeN, Rule: RuleReopeningNotReopened}
	}
	if resolver == nil {
		return Inference{Grade: rec.Grade, Rule: RuleClosureNotFound, Issue: ErrAmbiguousClosureChain}
	}

	out := resolver.ResolveClosureOutcome(rec.Permit, rec.Date)
	inf := Inference{Closure: &out}

	switch out.Kind {
	case InitialFollowsClosure:
		inf.Grade, inf.Rule = GradeP, RuleClosureInitial
	case ComplianceFollowsClosure:
		inf.Grade, inf.Rule = GradeC, RuleClosureCompliance
	case ReinspectionFollowsClosure:
		inf.Rule = RuleClosureReinspection
		switch {
		case out.Grade.Present():
			inf.Grade = out.Grade
		case out.Score == nil:
			inf.Grade, inf.Issue = rec.Grade, ErrMissingScore
		case *out.Score >= maxScoreB:
			// A closed re-inspection at exactly 28 reopens as C.
			inf.Grade = GradeC
		case *out.Score > maxScoreA:
			inf.Grade = GradeB
		default:
			inf.Grade, inf.Rule = rec.Grade, RuleClosureLowScore
		}
	default:
		inf.Grade, inf.Rule, inf.Issue = rec.Grade, RuleClosureNotFound, ErrAmbiguousClosureChain
	}
	return inf
}
