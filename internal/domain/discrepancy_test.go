package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInconsistencies(t *testing.T) {
	tests := []struct {
		name     string
		records  []InspectionRecord
		reason   string
		expected Grade
	}{
		{
			name: "consistent reinspection",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(20), Grade: GradeB},
			},
		},
		{
			name: "grade contradicts score",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(35), Grade: GradeA},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeC,
		},
		{
			name: "ungraded reinspection counted",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(10), Grade: GradeN},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeA,
		},
		{
			name: "pending compatible with B",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(20), Grade: GradeZ},
			},
		},
		{
			name: "pending not compatible with A",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(9), Grade: GradeZ},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeA,
		},
		{
			name: "closed initial graded above the A band",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleInitial, Action: ActionClosedByAuthority, Score: IntPtr(60), Grade: GradeC},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeN,
		},
		{
			name: "closed reinspection graded by its score",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionClosedByAuthority, Score: IntPtr(30), Grade: GradeC},
			},
		},
		{
			name: "reclosed reopening carrying a grade",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionClosedByAuthority, Score: IntPtr(40)},
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReClosedByAuthority, Grade: GradeC},
			},
			reason:   ReasonGradedClosure,
			expected: GradeN,
		},
		{
			name: "pending initial above the A band agrees",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleInitial, Action: ActionViolationsCited, Score: IntPtr(20), Grade: GradeZ},
			},
		},
		{
			name: "pending reopening after compliance closure",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleCompliance, Action: ActionClosedByAuthority, Score: IntPtr(12)},
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReopenedByAuthority, Grade: GradeZ},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeC,
		},
		{
			name: "pending reopening after reinspection closure agrees",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionClosedByAuthority, Score: IntPtr(35)},
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReopenedByAuthority, Grade: GradeZ},
			},
		},
		{
			name: "perfect score with citations",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleInitial, Action: ActionViolationsCited, Score: IntPtr(0), Grade: GradeA},
			},
			reason: ReasonPerfectWithCitation,
		},
		{
			name: "reopening disagrees with closure chain",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionClosedByAuthority, Score: IntPtr(40)},
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReopenedByAuthority, Grade: GradeA},
			},
			reason:   ReasonScoreMismatch,
			expected: GradeC,
		},
		{
			name: "reopening with pending grade agrees",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleInitial, Action: ActionClosedByAuthority, Score: IntPtr(50), Grade: GradeN},
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReopenedByAuthority, Grade: GradeP},
			},
		},
		{
			name: "ambiguous chain not counted",
			records: []InspectionRecord{
				{Permit: "1", Date: day(2), Type: CycleReopening, Action: ActionReopenedByAuthority, Grade: GradeA},
			},
		},
		{
			name: "older records ignored",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(35), Grade: GradeA},
				{Permit: "1", Date: day(2), Type: CycleInitial, Action: ActionViolationsCited, Score: IntPtr(8), Grade: GradeA},
			},
		},
		{
			name: "ungraded selection ignored",
			records: []InspectionRecord{
				{Permit: "1", Date: day(1), Type: CycleInitial, Action: ActionViolationsCited, Score: IntPtr(20)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewRecordStore(tt.records)
			found := FindInconsistencies(store, NewResolver(store))

			if tt.reason == "" {
				assert.Empty(t, found)
				return
			}
			require.Len(t, found, 1)
			assert.Equal(t, tt.reason, found[0].Reason)
			assert.Equal(t, tt.expected, found[0].Expected)
		})
	}
}

func TestCountInconsistencies(t *testing.T) {
	store := NewRecordStore([]InspectionRecord{
		{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(35), Grade: GradeA},
		{Permit: "2", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(35), Grade: GradeC},
		{Permit: "3", Date: day(1), Type: CycleInitial, Action: ActionClosedByAuthority, Score: IntPtr(35), Grade: GradeB},
	})

	resolver := NewResolver(store)
	assert.Equal(t, 2, CountInconsistencies(store, resolver))
	assert.Equal(t, 1, CountInconsistencies(NewRecordStore([]InspectionRecord{
		{Permit: "1", Date: day(1), Type: CycleReinspection, Action: ActionClosedByAuthority, Score: IntPtr(30), Grade: GradeC},
		{Permit: "2", Date: day(1), Type: CycleInitial, Action: ActionViolationsCited, Score: IntPtr(20), Grade: GradeZ},
		{Permit: "3", Date: day(1), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(35), Grade: GradeA},
	}), nil))
	assert.Equal(t, CountInconsistencies(store, resolver), len(FindInconsistencies(store, resolver)))
}
