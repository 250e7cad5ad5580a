package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/fixture"
	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
	"github.com/couchcryptid/restaurant-grades-etl/internal/pipeline"
)

func TestPipeline_WithMockJSONData(t *testing.T) {
	src := &mockSource{rows: readSampleRows(t)}
	sink := &mockSink{name: "memory"}
	metrics := newTestMetrics()
	p := pipeline.New(src, []pipeline.Sink{sink}, discardLogger(), metrics)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	got := make(map[string]domain.DisplayGrade, len(report.Restaurants))
	for _, r := range report.Restaurants {
		got[r.Permit] = r.Grade
	}
	want := map[string]domain.DisplayGrade{
		"40000001": domain.DisplayA,            // initial, recorded A
		"40000002": domain.DisplayA,            // re-inspection supersedes ungraded initial
		"40000003": domain.DisplayC,            // re-inspection, recorded C
		"40000005": domain.DisplayA,            // no violations
		"40000007": domain.DisplayNotYetGraded, // unknown program, quarantined
		"40000008": domain.DisplayNotYetGraded, // initial above the A band
		"40000009": domain.DisplayC,            // recorded C contradicting score 10
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("display grades mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, report.Violations, 9)
	assert.Equal(t, 1, report.Inconsistencies)

	carmine, ok := p.Latest("40000001")
	require.True(t, ok)
	assert.Equal(t, "7 CARMINE STREET", carmine.Address)
	assert.Equal(t, domain.ImageURL(domain.DisplayA), carmine.ImageURL)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues("sentinel_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues("missing_permit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsQuarantined))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Inconsistencies))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InferenceRules.WithLabelValues(string(domain.RuleNoViolationsOverride))))
}

func readSampleRows(t *testing.T) []domain.RawInspection {
	t.Helper()

	rows, err := fixture.Read(filepath.Join("..", "..", "data", "mock", "inspections_sample.json"))
	require.NoError(t, err)
	return rows
}
