package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// day returns the n-th day of January 2024, so tests can order records by
// small integers.
func day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

func TestNewRecordStore(t *testing.T) {
	t.Run("orders by permit then newest first", func(t *testing.T) {
		store := NewRecordStore([]InspectionRecord{
			{Permit: "2", Date: day(1), Type: CycleInitial},
			{Permit: "1", Date: day(1), Type: CycleInitial},
			{Permit: "1", Date: day(5), Type: CycleReinspection},
			{Permit: "1", Date: day(3), Type: CycleInitial},
		})

		got := store.Records()
		require.Len(t, got, 4)
		assert.Equal(t, []time.Time{day(5), day(3), day(1)}, []time.Time{got[0].Date, got[1].Date, got[2].Date})
		assert.Equal(t, "2", got[3].Permit)
		assert.Equal(t, []string{"1", "2"}, store.Permits())
	})

	t.Run("quarantines unknown types", func(t *testing.T) {
		store := NewRecordStore([]InspectionRecord{
			{Permit: "1", Date: day(1), Type: CycleInitial},
			{Permit: "1", Date: day(2), Type: InspectionType{}},
		})

		assert.Equal(t, 1, store.Len())
		assert.Equal(t, 1, store.Quarantined())
	})

	t.Run("merges rows of one inspection", func(t *testing.T) {
		store := NewRecordStore([]InspectionRecord{
			{Permit: "1", Date: day(2), Type: CycleReinspection, Action: ActionOther},
			{Permit: "1", Date: day(2), Type: CycleReinspection, Action: ActionViolationsCited, Score: IntPtr(20)},
			{Permit: "1", Date: day(2), Type: CycleReinspection, Action: ActionViolationsCited, Grade: GradeB},
		})

		want := []InspectionRecord{{
			Permit: "1",
			Date:   day(2),
			Type:   CycleReinspection,
			Action: ActionViolationsCited,
			Score:  IntPtr(20),
			Grade:  GradeB,
		}}
		if diff := cmp.Diff(want, store.Records()); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("equal dates ordered by type string", func(t *testing.T) {
		store := NewRecordStore([]InspectionRecord{
			{Permit: "1", Date: day(2), Type: CycleReinspection},
			{Permit: "1", Date: day(2), Type: CycleInitial},
		})

		got := store.ForPermit("1")
		require.Len(t, got, 2)
		assert.Equal(t, CycleInitial, got[0].Type)
		assert.Equal(t, CycleReinspection, got[1].Type)
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		store := NewRecordStore([]InspectionRecord{{Permit: "1", Date: day(1), Type: CycleInitial, Grade: GradeA}})

		got := store.ForPermit("1")
		got[0].Grade = GradeC

		assert.Equal(t, GradeA, store.ForPermit("1")[0].Grade)
		assert.Equal(t, GradeA, store.Records()[0].Grade)
	})

	t.Run("empty", func(t *testing.T) {
		store := NewRecordStore(nil)
		assert.Zero(t, store.Len())
		assert.Empty(t, store.Permits())
		assert.Empty(t, store.ForPermit("1"))
	})
}
