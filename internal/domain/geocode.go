package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills missing coordinates by forward geocoding the
// restaurant's address. If geocoder is nil, coordinates are already known or
// geocoding fails, the restaurant is returned with GeoSource set accordingly
// (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, r Restaurant, geocoder Geocoder, logger *slog.Logger) Restaurant {
	if geocoder == nil {
		return r
	}
	if r.Geo.Known() {
		if r.GeoSource == "" {
			r.GeoSource = GeoSourceOriginal
		}
		return r
	}

	query := GeocodeQuery(r)
	if query == "" {
		r.GeoSource = GeoSourceOriginal
		return r
	}

	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"permit", r.Permit,
			"query", query,
			"error", err,
		)
		r.GeoSource = GeoSourceFailed
		return r
	}
	if result.Lat != 0 || result.Lon != 0 {
		r.Geo = Geo{Lat: result.Lat, Lon: result.Lon}
		r.FormattedAddress = result.FormattedAddress
		r.GeoSource = GeoSourceForward
		return r
	}

	r.GeoSource = GeoSourceOriginal
	return r
}
