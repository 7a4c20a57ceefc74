package outbreak

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// Source tags where a result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceFresh    Source = "fresh"
	SourceFallback Source = "fallback_cache"
)

// Result is the outcome of a cache-aside lookup.
type Result struct {
	Scope     types.Scope
	StateName string
	Diseases  []types.Disease
	Source    Source
	CachedAt  time.Time
}

// CacheStore is the slice of the store the service needs. Implemented by
// loaders.PostgresClient.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, scope types.Scope, stateName string, date time.Time) (*loaders.OutbreakCacheEntry, error)
	GetLatestCacheEntryBefore(ctx context.Context, scope types.Scope, stateName string, before time.Time) (*loaders.OutbreakCacheEntry, error)
	SaveCacheEntry(ctx context.Context, entry *loaders.OutbreakCacheEntry) error
}

// Service implements the cache-aside pattern over the Fetcher: serve today's
// cached entry when present, fetch and persist on a miss, degrade to the most
// recent stale entry when the fetch fails.
type Service struct {
	store   CacheStore
	fetcher Fetcher
	loc     *time.Location
}

func NewService(store CacheStore, fetcher Fetcher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, fetcher: fetcher, loc: loc}
}

// Today returns the current calendar date in the reporting timezone.
// Cache keys are date-only; there is no time-of-day distinction.
func (s *Service) Today() time.Time {
	now := time.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// GetOutbreakData returns the disease list for a state ("" for nationwide)
// for today, minimizing calls to the external fetcher.
func (s *Service) GetOutbreakData(ctx context.Context, stateName string) (*Result, error) {
	scope := types.ScopeFor(stateName)
	today := s.Today()

	entry, err := s.store.GetCacheEntry(ctx, scope, stateName, today)
	if err != nil {
		// A failed read is treated as a miss; the fetch path below still works.
		utils.Zlog.Warn("Cache lookup failed, treating as miss",
			zap.String("scope", string(scope)),
			zap.String("state", stateName),
			zap.Error(err))
	}
	if entry != nil {
		return &Result{
			Scope:     scope,
			StateName: stateName,
			Diseases:  entry.Diseases,
			Source:    SourceCache,
			CachedAt:  entry.CreatedAt,
		}, nil
	}

	list, raw, fetchErr := s.fetcher.FetchDiseaseData(ctx, stateName)
	if fetchErr == nil {
		now := time.Now()
		saveEntry := &loaders.OutbreakCacheEntry{
			Scope:       scope,
			StateName:   stateName,
			QueryDate:   today,
			RawResponse: raw,
			Diseases:    list.Diseases,
			CreatedAt:   now,
		}
		// Best-effort caching: the fresh result is returned even when
		// persistence fails.
		if err := s.store.SaveCacheEntry(ctx, saveEntry); err != nil {
			utils.Zlog.Warn("Failed to persist outbreak cache entry",
				zap.String("scope", string(scope)),
				zap.String("state", stateName),
				zap.Error(err))
		}
		return &Result{
			Scope:     scope,
			StateName: stateName,
			Diseases:  list.Diseases,
			Source:    SourceFresh,
			CachedAt:  now,
		}, nil
	}

	utils.Zlog.Warn("Outbreak fetch failed, trying stale cache",
		zap.String("scope", string(scope)),
		zap.String("state", stateName),
		zap.Error(fetchErr))

	stale, err := s.store.GetLatestCacheEntryBefore(ctx, scope, stateName, today)
	if err != nil {
		utils.Zlog.Warn("Stale cache lookup failed",
			zap.String("scope", string(scope)),
			zap.String("state", stateName),
			zap.Error(err))
	}
	if stale != nil {
		return &Result{
			Scope:     scope,
			StateName: stateName,
			Diseases:  stale.Diseases,
			Source:    SourceFallback,
			CachedAt:  stale.CreatedAt,
		}, nil
	}

	return nil, fmt.Errorf("%w: fetch failed and no cached data for %s: %v",
		ErrNoDataAvailable, scopeLabel(scope, stateName), fetchErr)
}

func scopeLabel(scope types.Scope, stateName string) string {
	if scope == types.ScopeNationwide {
		return "nationwide"
	}
	return stateName
}
