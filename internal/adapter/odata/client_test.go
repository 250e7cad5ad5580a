package odata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		backoff:    time.Millisecond,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func TestClient_FetchInspections_FollowsNextLink(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("$skiptoken") {
		case "":
			fmt.Fprintf(w, `{"@odata.context":"x","value":[{"camis":"41234567","dba":"CAFE","score":12,"grade":"A","inspection_date":"2024-01-02T00:00:00.000","latitude":40.7,"__id":"row-1"}],"@odata.nextLink":"%s/?$skiptoken=2"}`, srv.URL)
		case "2":
			fmt.Fprint(w, `{"value":[{"camis":"50000001","score":null,"grade":null},{"camis":"50000002","score":"None"}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	rows, err := c.FetchInspections(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "41234567", rows[0].Camis)
	assert.Equal(t, "12", rows[0].Score)
	assert.Equal(t, "A", rows[0].Grade)
	assert.Equal(t, "40.7", rows[0].Latitude)
	assert.Empty(t, rows[1].Score)
	assert.Equal(t, "None", rows[2].Score)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.InspectionsPages))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.metrics.RowsFetched))
}

func TestClient_FetchInspections_RelativeNextLink(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/feed" {
			fmt.Fprint(w, `{"value":[{"camis":"1"}],"@odata.nextLink":"feed2"}`)
			return
		}
		assert.Equal(t, "/feed2", r.URL.Path)
		fmt.Fprint(w, `{"value":[{"camis":"2"}]}`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL + "/feed").FetchInspections(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, calls)
}

func TestClient_FetchInspections_ServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchInspections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, maxAttempts, calls)
}

func TestClient_FetchInspections_RetriesTransientFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"value":[{"camis":"41234567"}]}`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL).FetchInspections(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, calls)
}

func TestClient_FetchInspections_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchInspections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, calls)
}

func TestClient_FetchInspections_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchInspections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode page")
}

func TestClient_FetchInspections_LoopingNextLink(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"value":[],"@odata.nextLink":"%s/"}`, srv.URL)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL + "/").FetchInspections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loops")
}

func TestClient_FetchInspections_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).FetchInspections(ctx)
	require.Error(t, err)
}

func TestNewClient_RateLimit(t *testing.T) {
	c := NewClient("http://example.invalid", time.Second, 0.5, slog.Default(), observability.NewMetricsForTesting())
	assert.Equal(t, rate.Limit(0.5), c.limiter.Limit())
	assert.Equal(t, 1, c.limiter.Burst())
}
