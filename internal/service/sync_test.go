package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/service"
)

// mockFetcher is a hand-written test double for service.FeedFetcher.
// SyncAll fetches pairs concurrently, so call recording is mutex-guarded.
type mockFetcher struct {
	fetch func(ctx context.Context, url string) ([]byte, error)

	mu   sync.Mutex
	urls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	return m.fetch(ctx, url)
}

var _ service.FeedFetcher = (*mockFetcher)(nil)

// calendar builds a minimal VCALENDAR wrapping the given VEVENT bodies.
// iCal requires CRLF line endings.
func calendar(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Airbnb Inc//Hosting Calendar 1.0//EN\r\n")
	for _, ev := range events {
		b.WriteString("BEGIN:VEVENT\r\n")
		b.WriteString(ev)
		b.WriteString("END:VEVENT\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func stayEvent(uid, start, end, summary string) string {
	return "UID:" + uid + "\r\n" +
		"DTSTART;VALUE=DATE:" + start + "\r\n" +
		"DTEND;VALUE=DATE:" + end + "\r\n" +
		"SUMMARY:" + summary + "\r\n"
}

// recordingExternal counts prunes and collects upserted intervals,
// mutex-guarded for the concurrent SyncAll tests.
type recordingExternal struct {
	mockExternalRepo

	mu        sync.Mutex
	prunes    int
	intervals []domain.BusyInterval
}

func newRecordingExternal() *recordingExternal {
	r := &recordingExternal{}
	r.pruneExpired = func(context.Context, string, domain.FeedSource) (int64, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.prunes++
		return 0, nil
	}
	r.upsert = func(_ context.Context, interval domain.BusyInterval) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.intervals = append(r.intervals, interval)
		return nil
	}
	return r
}

// ---- SyncUnit tests --------------------------------------------------------

func TestSyncService_SyncUnit_Success(t *testing.T) {
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return calendar(
				stayEvent("e1@airbnb", "20260601", "20260605", "Reserved: Alice"),
				stayEvent("e2@airbnb", "20260610", "20260612", "Reserved"),
			), nil
		},
	}
	external := newRecordingExternal()
	svc := service.NewSyncService(nil, fetcher, external, nil)

	result := svc.SyncUnit(context.Background(), "unit-1", "Creekside Cabin",
		"https://airbnb.example/feed.ics", domain.SourceAirbnb)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	assert.Empty(t, result.Err)
	assert.Equal(t, "Creekside Cabin", result.Unit)
	assert.Equal(t, domain.SourceAirbnb, result.Source)

	assert.Equal(t, 1, external.prunes, "expired rows are pruned once per sync")
	require.Len(t, external.intervals, 2)
	assert.Equal(t, "unit-1", external.intervals[0].UnitID)
	assert.Equal(t, domain.SourceAirbnb, external.intervals[0].Source)
	assert.Equal(t, "Alice", external.intervals[0].GuestName)
}

func TestSyncService_SyncUnit_SkipsDegenerateSpans(t *testing.T) {
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return calendar(
				stayEvent("good@feed", "20260601", "20260605", "Reserved"),
				// Zero-length marker event: start equals end.
				stayEvent("marker@feed", "20260610", "20260610", "Blocked"),
			), nil
		},
	}
	external := newRecordingExternal()
	svc := service.NewSyncService(nil, fetcher, external, nil)

	result := svc.SyncUnit(context.Background(), "unit-1", "Creekside Cabin",
		"https://airbnb.example/feed.ics", domain.SourceAirbnb)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count, "degenerate spans are not stored")
	assert.Len(t, external.intervals, 1)
}

func TestSyncService_SyncUnit_FetchFailureContained(t *testing.T) {
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return nil, domain.ErrFeedUnavailable
		},
	}
	external := newRecordingExternal()
	svc := service.NewSyncService(nil, fetcher, external, nil)

	result := svc.SyncUnit(context.Background(), "unit-1", "Creekside Cabin",
		"https://airbnb.example/feed.ics", domain.SourceAirbnb)

	// Failure is folded into the result, never returned as an error.
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "fetch")
	assert.Empty(t, external.intervals, "nothing stored on a failed fetch")
	assert.Equal(t, 0, external.prunes, "nothing pruned on a failed fetch")
}

func TestSyncService_SyncUnit_ParseFailureContained(t *testing.T) {
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return []byte("<html>rate limited</html>"), nil
		},
	}
	external := newRecordingExternal()
	svc := service.NewSyncService(nil, fetcher, external, nil)

	result := svc.SyncUnit(context.Background(), "unit-1", "Creekside Cabin",
		"https://airbnb.example/feed.ics", domain.SourceAirbnb)

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "parse")
	assert.Empty(t, external.intervals)
}

func TestSyncService_SyncUnit_StoreFailureContained(t *testing.T) {
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return calendar(stayEvent("e@feed", "20260601", "20260605", "Reserved")), nil
		},
	}
	external := newRecordingExternal()
	external.upsert = func(context.Context, domain.BusyInterval) error {
		return errors.New("db exploded")
	}
	svc := service.NewSyncService(nil, fetcher, external, nil)

	result := svc.SyncUnit(context.Background(), "unit-1", "Creekside Cabin",
		"https://airbnb.example/feed.ics", domain.SourceAirbnb)

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "store")
}

// ---- SyncAll tests ---------------------------------------------------------

func TestSyncService_SyncAll_EnumeratesConfiguredPairs(t *testing.T) {
	units := &mockUnitSource{
		units: func(context.Context) ([]domain.Unit, error) {
			return []domain.Unit{
				{ID: "unit-1", Name: "Creekside Cabin", FeedURLs: map[domain.FeedSource]string{
					domain.SourceAirbnb:  "https://airbnb.example/1.ics",
					domain.SourceHipcamp: "https://hipcamp.example/1.ics",
				}},
				{ID: "unit-2", Name: "Meadow Yurt", FeedURLs: map[domain.FeedSource]string{
					domain.SourceVRBO: "https://vrbo.example/2.ics",
				}},
				// No feeds configured: contributes no pairs.
				{ID: "unit-3", Name: "Hilltop Tent"},
			}, nil
		},
	}
	fetcher := &mockFetcher{
		fetch: func(context.Context, string) ([]byte, error) {
			return calendar(stayEvent("e@feed", "20260601", "20260605", "Reserved")), nil
		},
	}
	svc := service.NewSyncService(units, fetcher, newRecordingExternal(), nil)

	results, err := svc.SyncAll(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 3, "one result per configured (unit, source) pair")
	for _, res := range results {
		assert.True(t, res.Success, "pair %s/%s", res.Unit, res.Source)
		assert.Equal(t, 1, res.Count)
	}
	assert.ElementsMatch(t, []string{
		"https://airbnb.example/1.ics",
		"https://hipcamp.example/1.ics",
		"https://vrbo.example/2.ics",
	}, fetcher.urls)
}

func TestSyncService_SyncAll_PartialFailureReported(t *testing.T) {
	units := &mockUnitSource{
		units: func(context.Context) ([]domain.Unit, error) {
			return []domain.Unit{
				{ID: "unit-1", Name: "Creekside Cabin", FeedURLs: map[domain.FeedSource]string{
					domain.SourceAirbnb: "https://airbnb.example/1.ics",
					domain.SourceVRBO:   "https://vrbo.example/1.ics",
				}},
			}, nil
		},
	}
	fetcher := &mockFetcher{
		fetch: func(_ context.Context, url string) ([]byte, error) {
			if strings.Contains(url, "vrbo") {
				return nil, domain.ErrFeedUnavailable
			}
			return calendar(stayEvent("e@feed", "20260601", "20260605", "Reserved")), nil
		},
	}
	svc := service.NewSyncService(units, fetcher, newRecordingExternal(), nil)

	results, err := svc.SyncAll(context.Background())

	require.NoError(t, err, "one platform's outage must not abort the run")
	require.Len(t, results, 2)

	bySource := map[domain.FeedSource]service.SyncResult{}
	for _, res := range results {
		bySource[res.Source] = res
	}
	assert.True(t, bySource[domain.SourceAirbnb].Success)
	assert.False(t, bySource[domain.SourceVRBO].Success)
}

func TestSyncService_SyncAll_UnitEnumerationFailure(t *testing.T) {
	cmsErr := errors.New("cms unreachable")
	units := &mockUnitSource{
		units: func(context.Context) ([]domain.Unit, error) { return nil, cmsErr },
	}
	svc := service.NewSyncService(units, &mockFetcher{}, newRecordingExternal(), nil)

	_, err := svc.SyncAll(context.Background())

	assert.ErrorIs(t, err, cmsErr)
}
