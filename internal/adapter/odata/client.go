// Package odata pages through the NYC Open Data OData v4 feed of DOHMH
// restaurant inspection results.
package odata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/restaurant-grades-etl/internal/domain"
	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

const (
	// maxPages bounds a single fetch in case the server keeps returning the
	// same next link.
	maxPages = 10000

	maxAttempts = 4
	maxBackoff  = 10 * time.Second
)

// statusError is a non-200 page response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// Client fetches every inspection row by following @odata.nextLink.
// It implements pipeline.InspectionSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OData client for baseURL that requests at most rps
// pages per second.
func NewClient(baseURL string, timeout time.Duration, rps float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		backoff:    500 * time.Millisecond,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchInspections returns every row of the dataset. A failure on any page
// fails the whole fetch.
func (c *Client) FetchInspections(ctx context.Context) ([]domain.RawInspection, error) {
	var rows []domain.RawInspection
	next := c.baseURL
	seen := make(map[string]bool)

	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, eris.Errorf("odata: exceeded %d pages", maxPages)
		}
		if seen[next] {
			return nil, eris.Errorf("odata: next link loops back to %s", next)
		}
		seen[next] = true

		p, err := c.fetchPageWithRetry(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, v := range p.Value {
			rows = append(rows, v.toRaw())
		}
		c.metrics.InspectionsPages.Inc()
		c.metrics.RowsFetched.Add(float64(len(p.Value)))
		c.logger.Debug("fetched inspections page", "page", pages+1, "rows", len(p.Value))

		next, err = resolveNext(next, p.NextLink)
		if err != nil {
			return nil, err
		}
	}

	c.logger.Info("fetched inspections", "rows", len(rows))
	return rows, nil
}

// fetchPageWithRetry retries network failures and 5xx responses with
// exponential backoff.
func (c *Client) fetchPageWithRetry(ctx context.Context, pageURL string) (page, error) {
	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		p, err := c.fetchPage(ctx, pageURL)
		if err == nil || attempt == maxAttempts || !retryable(err) || ctx.Err() != nil {
			return p, err
		}
		c.logger.Warn("inspections page failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return page{}, eris.Wrap(ctx.Err(), "odata: retry cancelled")
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return page{}, eris.Wrap(err, "odata: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return page{}, eris.Wrap(err, "odata: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return page{}, eris.Wrap(err, "odata: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return page{}, eris.Wrap(&statusError{code: resp.StatusCode, body: string(body)}, "odata")
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var p page
	if err := dec.Decode(&p); err != nil {
		return page{}, eris.Wrap(err, "odata: decode page")
	}
	return p, nil
}

// resolveNext resolves a possibly relative next link against the current page.
func resolveNext(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", eris.Wrapf(err, "odata: parse page url %q", current)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", eris.Wrapf(err, "odata: parse next link %q", next)
	}
	return base.ResolveReference(ref).String(), nil
}

// OData response types.

type page struct {
	Value    []record `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

// record is one dataset row. The feed types some columns as numbers, so
// every value is decoded loosely and rendered back to a string.
type record map[string]any

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func (r record) toRaw() domain.RawInspection {
	return domain.RawInspection{
		Camis:                r.str("camis"),
		DBA:                  r.str("dba"),
		Boro:                 r.str("boro"),
		Building:             r.str("building"),
		Street:               r.str("street"),
		Zipcode:              r.str("zipcode"),
		Phone:                r.str("phone"),
		CuisineDescription:   r.str("cuisine_description"),
		InspectionDate:       r.str("inspection_date"),
		Action:               r.str("action"),
		ViolationCode:        r.str("violation_code"),
		ViolationDescription: r.str("violation_description"),
		CriticalFlag:         r.str("critical_flag"),
		Score:                r.str("score"),
		Grade:                r.str("grade"),
		GradeDate:            r.str("grade_date"),
		InspectionType:       r.str("inspection_type"),
		Latitude:             r.str("latitude"),
		Longitude:            r.str("longitude"),
	}
}
