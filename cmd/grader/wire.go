package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/rotisserie/eris"

	kafkaadapter "github.com/couchcryptid/restaurant-grades-etl/internal/adapter/kafka"
	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/odata"
	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/workbook"
	"github.com/couchcryptid/restaurant-grades-etl/internal/config"
	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
	"github.com/couchcryptid/restaurant-grades-etl/internal/pipeline"
)

// outputs holds the sinks and snapshot source built from config, plus
// everything that must be closed on shutdown.
type outputs struct {
	sinks    []pipeline.Sink
	snapshot pipeline.SnapshotSource
	closers  []namedCloser
}

type namedCloser struct {
	name string
	io.Closer
}

func (o *outputs) close(logger *slog.Logger) {
	for _, c := range o.closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "component", c.name, "error", err)
		}
	}
}

// buildOutputs wires the workbook, SQLite and Kafka sinks. SQLite doubles as
// the snapshot source when configured; otherwise the workbook at
// SnapshotPath is read.
func buildOutputs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*outputs, error) {
	out := &outputs{}

	if cfg.WorkbookPath != "" {
		out.sinks = append(out.sinks, workbook.NewWriter(cfg.WorkbookPath, logger))
	}
	if cfg.SnapshotPath != "" {
		out.snapshot = workbook.NewReader(cfg.SnapshotPath)
	}

	if cfg.SQLitePath != "" {
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate sqlite")
		}
		out.sinks = append(out.sinks, st)
		out.snapshot = st
		out.closers = append(out.closers, namedCloser{name: "sqlite", Closer: st})
	}

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		out.sinks = append(out.sinks, w)
		out.closers = append(out.closers, namedCloser{name: "kafka", Closer: w})
	}

	if len(out.sinks) == 0 {
		logger.Warn("no sinks configured, reports are only served over HTTP")
	}
	return out, nil
}

// buildGeocoder returns nil when Mapbox geocoding is disabled.
func buildGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.MapboxEnabled {
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
	metrics.GeocodeEnabled.Set(1)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}

// buildPipeline assembles the full pipeline against the OData source.
func buildPipeline(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*pipeline.Pipeline, *outputs, error) {
	out, err := buildOutputs(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	source := odata.NewClient(cfg.InspectionsURL, cfg.InspectionsTimeout, cfg.InspectionsRateLimit, logger, metrics)

	opts := []pipeline.Option{pipeline.WithInterval(cfg.RunInterval)}
	if out.snapshot != nil {
		opts = append(opts, pipeline.WithSnapshotSource(out.snapshot))
	}
	if g := buildGeocoder(cfg, metrics, logger); g != nil {
		opts = append(opts, pipeline.WithGeocoder(g))
	}

	return pipeline.New(source, out.sinks, logger, metrics, opts...), out, nil
}
