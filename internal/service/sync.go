package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/BrainsyETH/dillardmill/internal/domain"
	"github.com/BrainsyETH/dillardmill/internal/ical"
	"github.com/BrainsyETH/dillardmill/internal/repo"
)

// FeedFetcher retrieves a raw calendar document for one feed URL.
// Implemented by feed.Fetcher; mocked in tests.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// UnitSource yields the rental units authored in the CMS. The booking core
// only ever reads units. Implemented by cms.Client; mocked in tests.
type UnitSource interface {
	Units(ctx context.Context) ([]domain.Unit, error)
	Unit(ctx context.Context, id string) (domain.Unit, error)
}

// SyncResult is one entry in a sync report, one per (unit, source) pair.
// Err is a message rather than an error value because results cross the HTTP
// boundary as JSON.
type SyncResult struct {
	Unit    string            `json:"unit"`
	Source  domain.FeedSource `json:"source"`
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Err     string            `json:"error,omitempty"`
}

// syncConcurrency bounds how many feeds are fetched at once during SyncAll.
// Platform rate limits make unbounded fan-out counterproductive.
const syncConcurrency = 4

// SyncService reconciles external platform calendars into the external
// booking store: fetch feed, parse events, prune expired rows, upsert the
// fresh intervals.
type SyncService struct {
	units    UnitSource
	fetcher  FeedFetcher
	external repo.ExternalRepo
	log      *slog.Logger
}

// NewSyncService constructs a SyncService.
func NewSyncService(units UnitSource, fetcher FeedFetcher, external repo.ExternalRepo, log *slog.Logger) *SyncService {
	if log == nil {
		log = slog.Default()
	}
	return &SyncService{units: units, fetcher: fetcher, external: external, log: log}
}

// SyncUnit reconciles one (unit, source) pair from its feed URL.
//
// Failures never propagate as errors past this boundary: a fetch, parse, or
// storage problem is folded into the returned result so one platform's outage
// cannot abort sync for other units or platforms. unitLabel is the display
// name used in the report; unitID keys the stored rows.
func (s *SyncService) SyncUnit(ctx context.Context, unitID, unitLabel, feedURL string, source domain.FeedSource) SyncResult {
	result := SyncResult{Unit: unitLabel, Source: source}

	fail := func(stage string, err error) SyncResult {
		s.log.Error("calendar sync failed",
			"unit", unitID, "source", source, "stage", stage, "error", err)
		result.Success = false
		result.Err = fmt.Sprintf("%s: %v", stage, err)
		return result
	}

	body, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return fail("fetch", err)
	}

	stays, err := ical.Parse(body)
	if err != nil {
		return fail("parse", err)
	}

	// Routine pruning, independent of what the new fetch contained: rows
	// whose stay has fully ended no longer affect availability.
	pruned, err := s.external.PruneExpired(ctx, unitID, source)
	if err != nil {
		return fail("prune", err)
	}

	count := 0
	for _, stay := range stays {
		if !stay.CheckIn.Before(stay.CheckOut) {
			// Degenerate span (some platforms emit zero-length marker
			// events); it cannot block any night.
			continue
		}
		err := s.external.Upsert(ctx, domain.BusyInterval{
			UnitID:    unitID,
			Source:    source,
			CheckIn:   stay.CheckIn,
			CheckOut:  stay.CheckOut,
			GuestName: stay.GuestName,
		})
		if err != nil {
			return fail("store", err)
		}
		count++
	}

	s.log.Info("calendar synced",
		"unit", unitID, "source", source, "count", count, "pruned", pruned)

	result.Success = true
	result.Count = count
	return result
}

// SyncAll reconciles every configured (unit, source) pair and returns one
// result per pair. Pairs run concurrently with a small limit; each pair's
// writes are isolated by the (unit, source, check_in) upsert key, so pairs
// never contend. Partial failures are reported in the results, not escalated.
//
// The only hard error is failing to enumerate units from the CMS, in which
// case there is nothing to sync at all.
func (s *SyncService) SyncAll(ctx context.Context) ([]SyncResult, error) {
	units, err := s.units.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.SyncService.SyncAll: %w", err)
	}

	type pair struct {
		unit   domain.Unit
		source domain.FeedSource
		url    string
	}
	var pairs []pair
	for _, u := range units {
		for _, source := range []domain.FeedSource{domain.SourceAirbnb, domain.SourceHipcamp, domain.SourceVRBO} {
			if url := u.FeedURLs[source]; url != "" {
				pairs = append(pairs, pair{unit: u, source: source, url: url})
			}
		}
	}

	results := make([]SyncResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = s.SyncUnit(gctx, p.unit.ID, p.unit.Name, p.url, p.source)
			return nil // per-pair failures live in the result entry
		})
	}
	// Goroutines fold their failures into result entries and never return
	// errors, so Wait only synchronizes.
	_ = g.Wait()

	return results, nil
}
