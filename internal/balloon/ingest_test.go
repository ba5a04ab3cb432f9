package balloon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"go.uber.org/zap/zaptest"
)

// fakeFeed serves canned slices; hours missing from payloads block until the
// request context expires.
type fakeFeed struct {
	payloads map[int]string
	failures map[int]error
	mu       sync.Mutex
	calls    []int
}

func (f *fakeFeed) FetchSlice(ctx context.Context, hoursAgo int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, hoursAgo)
	f.mu.Unlock()

	if err, ok := f.failures[hoursAgo]; ok {
		return nil, err
	}
	if p, ok := f.payloads[hoursAgo]; ok {
		return []byte(p), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func feedConfig() *config.FeedConfig {
	return &config.FeedConfig{Slices: 24, Timeout: 5, Concurrency: 1, Resource: "balloons"}
}

func emptyPayloads() map[int]string {
	payloads := make(map[int]string, 24)
	for h := 0; h < 24; h++ {
		payloads[h] = `[]`
	}
	return payloads
}

func newTestIngester(t *testing.T, cfg *config.FeedConfig, feed FeedClient) *Ingester {
	t.Helper()
	ing := NewIngester(cfg, feed, zaptest.NewLogger(t), nil)
	ing.SetClock(clockwork.NewFakeClockAt(normalizeNow))
	return ing
}

func TestIngester_EndToEnd(t *testing.T) {
	payloads := emptyPayloads()
	payloads[0] = `[[10,20,5],[91,20,3]]`
	delete(payloads, 1)

	ing := newTestIngester(t, feedConfig(), &fakeFeed{payloads: payloads})
	ing.timeout = 20 * time.Millisecond

	report := ing.Collect(context.Background())

	require.Len(t, report.AllBalloons, 2)
	assert.Equal(t, Observation{ID: "balloon-00-0", Lat: 10, Lon: 20, AltitudeKm: 5, HoursAgo: 0, CapturedAt: normalizeNow}, report.AllBalloons[0])
	assert.Equal(t, Observation{ID: "balloon-00-1", Lat: 91, Lon: 20, AltitudeKm: 3, HoursAgo: 0, CapturedAt: normalizeNow}, report.AllBalloons[1])

	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Errors[0].HoursAgo)
	assert.Equal(t, "01", report.Errors[0].Hour)
	assert.Contains(t, report.Errors[0].Message, context.DeadlineExceeded.Error())

	assert.Len(t, report.ByHour, 23)
	assert.Equal(t, 2, report.TotalBalloons)
	assert.Equal(t, 2, report.Stats.TotalActive)
	assert.Equal(t, 2, report.Stats.Hemispheres.Northern)
	assert.True(t, report.Success)
	assert.Equal(t, normalizeNow, report.LastUpdated)
}

func TestIngester_OneFailedSlice(t *testing.T) {
	payloads := emptyPayloads()
	for h := 0; h < 24; h++ {
		payloads[h] = fmt.Sprintf(`[[%d, 1, 1]]`, h+1)
	}
	feed := &fakeFeed{payloads: payloads, failures: map[int]error{7: errors.New("status 503")}}

	result := newTestIngester(t, feedConfig(), feed).Fetch(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 7, result.Errors[0].HoursAgo)
	assert.Equal(t, "status 503", result.Errors[0].Message)
	assert.Len(t, result.Slices, 23)
	assert.Len(t, result.Observations, 23)
	for _, o := range result.Observations {
		assert.NotEqual(t, 7, o.HoursAgo)
	}
	for _, s := range result.Slices {
		assert.NotEqual(t, 7, s.HoursAgo)
	}
}

func TestIngester_SequentialByDefault(t *testing.T) {
	feed := &fakeFeed{payloads: emptyPayloads()}

	newTestIngester(t, feedConfig(), feed).Fetch(context.Background())

	want := make([]int, 24)
	for h := range want {
		want[h] = h
	}
	assert.Equal(t, want, feed.calls)
}

func TestIngester_ConcurrentFetchKeepsOrder(t *testing.T) {
	payloads := emptyPayloads()
	for h := 0; h < 24; h++ {
		payloads[h] = fmt.Sprintf(`[[%d, 1, 1], [%d, 2, 2]]`, h, h)
	}
	cfg := feedConfig()
	cfg.Concurrency = 8

	result := newTestIngester(t, cfg, &fakeFeed{payloads: payloads}).Fetch(context.Background())

	require.Len(t, result.Slices, 24)
	require.Len(t, result.Observations, 48)
	for i, s := range result.Slices {
		assert.Equal(t, i, s.HoursAgo)
		assert.Equal(t, 2, s.Count)
	}
	for i := 1; i < len(result.Observations); i++ {
		assert.LessOrEqual(t, result.Observations[i-1].HoursAgo, result.Observations[i].HoursAgo)
	}
}

func TestIngester_HTTPFeed(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/00.json":
			_, _ = w.Write([]byte(`[{"latitude": 12, "longitude": -40, "alt": 18}]`))
		case "/01.json":
			_, _ = w.Write([]byte(`{"balloons": [{"lat": -12, "lon": 40, "height": 11}]}`))
		case "/02.json":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	cfg := feedConfig()
	cfg.Slices = 4
	feed := NewHTTPFeed(srv.URL+"/", time.Second, zaptest.NewLogger(t))

	result := newTestIngester(t, cfg, feed).Fetch(context.Background())

	assert.Equal(t, int32(4), requests.Load())
	require.Len(t, result.Observations, 2)
	assert.Equal(t, 12.0, result.Observations[0].Lat)
	assert.Equal(t, -12.0, result.Observations[1].Lat)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].HoursAgo)
	assert.Contains(t, result.Errors[0].Message, "404")
	assert.Len(t, result.Slices, 3)
}

func TestHTTPFeed_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := NewHTTPFeed(srv.URL, time.Second, zaptest.NewLogger(t)).FetchSlice(context.Background(), 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}
