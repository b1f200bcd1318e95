package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
	"github.com/guttosm/avpulse/internal/normalize"
	"github.com/guttosm/avpulse/internal/slicing"
	"github.com/guttosm/avpulse/internal/storage"
)

var serviceNow = time.Date(2021, 7, 29, 12, 0, 0, 0, time.UTC)

// stubFetcher serves canned payloads keyed by the upstream function (and
// slice, for intraday), recording every request it saw.
type stubFetcher struct {
	mu       sync.Mutex
	requests []map[string]string
	payloads map[string][]byte
	failOn   string // slice id that should fail, "" for none
}

func (f *stubFetcher) Fetch(_ context.Context, params map[string]string) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, params)
	f.mu.Unlock()

	if f.failOn != "" && params["slice"] == f.failOn {
		return nil, errors.New("boom")
	}

	key := params["function"]
	if s := params["slice"]; s != "" {
		key += ":" + s
	}
	body, ok := f.payloads[key]
	if !ok {
		return nil, fmt.Errorf("no stub payload for %s", key)
	}
	return body, nil
}

func newIntradayStub(windows []slicing.Window) *stubFetcher {
	payloads := make(map[string][]byte)
	// one synthetic bar per slice, timestamped so concatenation order is
	// observable: slice i gets day i+1
	for i, w := range windows {
		csv := fmt.Sprintf("time,open,high,low,close,volume\n2021-07-%02d 09:30:00,%d,2,0.5,1.5,10\n", i+1, i+1)
		payloads["TIME_SERIES_INTRADAY_EXTENDED:"+string(w)] = []byte(csv)
	}
	return &stubFetcher{payloads: payloads}
}

func TestGetTimeSeries_SlicedConcatenationOrder(t *testing.T) {
	planner := slicing.NewPlanner(func() time.Time { return serviceNow }, 0)
	start := serviceNow.AddDate(0, -4, 0)
	end := serviceNow
	windows := planner.PlanSlices(&start, &end)
	if len(windows) < 3 {
		t.Fatalf("test needs at least 3 windows, got %d", len(windows))
	}

	fetcher := newIntradayStub(windows)
	svc := NewSeriesService(fetcher, Options{Planner: planner, MaxParallel: 4})

	// bounds: no filtering (bars are timestamped inside July 2021)
	filterStart := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	out, err := svc.GetTimeSeries(context.Background(), "IBM", models.Interval5Min, nil, &filterStart, &end)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != len(windows) {
		t.Fatalf("bars = %d, want %d", len(out), len(windows))
	}
	// slice i carries open == i+1; concatenation must follow planned order
	for i, b := range out {
		if open, _ := b.Number("open"); open != float64(i+1) {
			t.Fatalf("bar %d open = %v, want %d (results out of request order)", i, open, i+1)
		}
	}
}

func TestGetTimeSeries_SliceFailureFailsRequest(t *testing.T) {
	planner := slicing.NewPlanner(func() time.Time { return serviceNow }, 0)
	start := serviceNow.AddDate(0, -4, 0)
	end := serviceNow
	windows := planner.PlanSlices(&start, &end)

	fetcher := newIntradayStub(windows)
	fetcher.failOn = string(windows[len(windows)-1])
	svc := NewSeriesService(fetcher, Options{Planner: planner, MaxParallel: 2})

	if _, err := svc.GetTimeSeries(context.Background(), "IBM", models.Interval5Min, nil, &start, &end); err == nil {
		t.Fatalf("expected error when one slice fails")
	}
}

const dailyStubPayload = `{
	"Meta Data": {"1. Information": "Daily", "2. Symbol": "IBM"},
	"Time Series (Daily)": {
		"2021-07-29": {"1. open": "141.39", "4. close": "141.93", "6. volume": "100"},
		"2021-07-28": {"1. open": "142.70", "4. close": "141.77", "6. volume": "200"}
	}
}`

func TestGetTimeSeries_DailyJSONPath(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{
		"TIME_SERIES_DAILY_ADJUSTED": []byte(dailyStubPayload),
	}}
	svc := NewSeriesService(fetcher, Options{})

	out, err := svc.GetTimeSeries(context.Background(), "IBM", models.IntervalDaily, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("bars = %d, want 2", len(out))
	}
	if open, _ := out[0].Number("open"); open != 141.39 {
		t.Fatalf("first open = %v", open)
	}

	if len(fetcher.requests) != 1 {
		t.Fatalf("requests = %d, want 1 (daily is a single unparameterized query)", len(fetcher.requests))
	}
	if fn := fetcher.requests[0]["function"]; fn != "TIME_SERIES_DAILY_ADJUSTED" {
		t.Fatalf("function = %q", fn)
	}
}

func TestGetTimeSeries_UpstreamErrorPropagates(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{
		"TIME_SERIES_DAILY_ADJUSTED": []byte(`{"Error Message": "Invalid API call."}`),
	}}
	svc := NewSeriesService(fetcher, Options{})

	_, err := svc.GetTimeSeries(context.Background(), "IBM", models.IntervalDaily, nil, nil, nil)
	var upstream *normalize.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Message != "Invalid API call." {
		t.Fatalf("message = %q", upstream.Message)
	}
}

func TestGetTimeSeries_PeriodNeedsDailyOrFiner(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{}}
	svc := NewSeriesService(fetcher, Options{})

	p := models.PeriodQuarter
	_, err := svc.GetTimeSeries(context.Background(), "IBM", models.IntervalWeekly, &p, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "daily or intraday") {
		t.Fatalf("expected interval/period mismatch error, got %v", err)
	}
}

func TestGetTimeSeries_SyntheticWeekAggregation(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{
		"TIME_SERIES_DAILY_ADJUSTED": []byte(dailyStubPayload),
	}}
	svc := NewSeriesService(fetcher, Options{})

	p := models.PeriodWeek
	out, err := svc.GetTimeSeries(context.Background(), "IBM", models.IntervalDaily, &p, nil, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// both stub days fall in one ISO week
	if len(out) != 1 {
		t.Fatalf("buckets = %d, want 1", len(out))
	}
	if vol, _ := out[0].Number("volume"); vol != 300 {
		t.Fatalf("volume = %v, want 300", vol)
	}
}

func TestGetQuote(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{
		"GLOBAL_QUOTE": []byte(`{"Global Quote": {"01. symbol": "IBM", "05. price": "141.93"}}`),
	}}
	svc := NewSeriesService(fetcher, Options{})

	rec, err := svc.GetQuote(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, ok := rec.Get("Price"); !ok || v.Number != 141.93 {
		t.Fatalf("Price = %+v (%v)", v, ok)
	}
}

// write-through failures must not fail the request
type failingCache struct{}

func (failingCache) SaveBars(string, models.Interval, models.Series) error {
	return errors.New("disk full")
}
func (failingCache) GetBars(string, models.Interval, *time.Time, *time.Time) (models.Series, error) {
	return nil, nil
}
func (failingCache) Ping() error  { return nil }
func (failingCache) Close() error { return nil }

var _ storage.BarsRepository = failingCache{}

func TestGetTimeSeries_CacheFailureIsBestEffort(t *testing.T) {
	fetcher := &stubFetcher{payloads: map[string][]byte{
		"TIME_SERIES_DAILY_ADJUSTED": []byte(dailyStubPayload),
	}}
	svc := NewSeriesService(fetcher, Options{Cache: failingCache{}})

	out, err := svc.GetTimeSeries(context.Background(), "IBM", models.IntervalDaily, nil, nil, nil)
	if err != nil {
		t.Fatalf("cache failure leaked: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("bars = %d, want 2", len(out))
	}
}
