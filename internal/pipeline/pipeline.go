package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

// InspectionSource reads every row of the inspection dataset.
type InspectionSource interface {
	FetchInspections(ctx context.Context) ([]domain.RawInspection, error)
}

// SnapshotSource loads the restaurant rows published by a previous run.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// Sink publishes a finished report.
type Sink interface {
	Name() string
	WriteReport(ctx context.Context, report domain.Report) error
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithSnapshotSource fills missing restaurant fields from a previous run.
func WithSnapshotSource(s SnapshotSource) Option {
	return func(p *Pipeline) { p.snapshot = s }
}

// WithGeocoder enables forward geocoding of restaurants without coordinates.
func WithGeocoder(g domain.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// WithClock replaces the scheduler's time source.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithInterval sets the delay between scheduled runs.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.interval = d }
}

// Pipeline runs the fetch-grade-publish cycle and keeps the latest report.
type Pipeline struct {
	source   InspectionSource
	snapshot SnapshotSource
	geocoder domain.Geocoder
	sinks    []Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	interval time.Duration

	ready  atomic.Bool
	latest atomic.Pointer[domain.Report]
}

// New creates a Pipeline reading from source and publishing to sinks.
func New(source InspectionSource, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		interval: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no grading run has completed yet")
	}
	return nil
}

// Latest returns the restaurant row for permit from the most recent report.
func (p *Pipeline) Latest(permit string) (domain.Restaurant, bool) {
	r := p.latest.Load()
	if r == nil {
		return domain.Restaurant{}, false
	}
	return r.Restaurant(permit)
}

// Run grades immediately and then once per interval until ctx is cancelled.
// A failed run is logged and retried on the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "sinks", len(p.sinks))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("grading run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce fetches the dataset, grades every establishment, assembles the
// report and publishes it to all sinks concurrently.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.Report, error) {
	start := p.clock.Now()

	raws, err := p.source.FetchInspections(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return domain.Report{}, fmt.Errorf("fetch inspections: %w", err)
	}

	rows := p.parse(raws)
	grading := domain.GradeRows(rows)
	p.recordGrading(grading)

	report := domain.BuildReport(ctx, rows, grading, p.loadSnapshot(ctx), p.geocoder, p.logger)
	for _, r := range report.Restaurants {
		p.metrics.EstablishmentsGraded.WithLabelValues(string(r.Grade)).Inc()
	}

	if err := p.publish(ctx, report); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return report, err
	}

	p.latest.Store(&report)
	p.ready.Store(true)
	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.SetToCurrentTime()
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())

	p.logger.Info("grading run complete",
		"rows", len(rows),
		"restaurants", len(report.Restaurants),
		"violations", len(report.Violations),
		"inconsistencies", report.Inconsistencies,
		"quarantined", grading.Quarantined,
	)
	return report, nil
}

// parse converts raw rows, dropping rows the domain rejects.
func (p *Pipeline) parse(raws []domain.RawInspection) []domain.Row {
	rows := make([]domain.Row, 0, len(raws))
	for _, raw := range raws {
		row, err := domain.ParseRow(raw)
		if err != nil {
			p.metrics.RowsDropped.WithLabelValues(dropReason(err)).Inc()
			p.logger.Debug("dropping inspection row", "permit", raw.Camis, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSentinelDate):
		return "sentinel_date"
	case errors.Is(err, domain.ErrMissingPermit):
		return "missing_permit"
	default:
		return "invalid"
	}
}

func (p *Pipeline) recordGrading(g domain.Grading) {
	p.metrics.RowsQuarantined.Add(float64(g.Quarantined))
	p.metrics.Inconsistencies.Set(float64(len(g.Inconsistencies)))

	for _, gi := range g.Graded {
		inf := gi.Inference
		p.metrics.InferenceRules.WithLabelValues(string(inf.Rule)).Inc()
		if inf.Closure != nil {
			p.metrics.ClosureOutcomes.WithLabelValues(inf.Closure.Kind.String()).Inc()
		}
		if inf.Issue != nil {
			p.logger.Debug("grade inference issue",
				"permit", gi.Record.Permit,
				"rule", inf.Rule,
				"error", inf.Issue,
			)
		}
	}
}

// loadSnapshot returns the previous run's restaurants. A failed load only
// costs the fill step, so it is logged and the run continues.
func (p *Pipeline) loadSnapshot(ctx context.Context) domain.Snapshot {
	if p.snapshot == nil {
		return nil
	}
	snap, err := p.snapshot.LoadSnapshot(ctx)
	if err != nil {
		p.logger.Warn("snapshot load failed, continuing without it", "error", err)
		return nil
	}
	p.metrics.SnapshotRows.Set(float64(len(snap)))
	return snap
}

func (p *Pipeline) publish(ctx context.Context, report domain.Report) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range p.sinks {
		g.Go(func() error {
			start := time.Now()
			err := s.WriteReport(gctx, report)
			p.metrics.SinkWriteDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				return fmt.Errorf("sink %s: %w", s.Name(), err)
			}
			p.logger.Debug("report published", "sink", s.Name())
			return nil
		})
	}
	return g.Wait()
}
