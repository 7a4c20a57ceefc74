package outbreak

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/types"
)

type fakeStore struct {
	entries map[string]*loaders.OutbreakCacheEntry
	saveErr error
	getErr  error
	saved   int
	lookups int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*loaders.OutbreakCacheEntry)}
}

func cacheKey(scope types.Scope, stateName string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", scope, stateName, date.Format("2006-01-02"))
}

func (f *fakeStore) GetCacheEntry(ctx context.Context, scope types.Scope, stateName string, date time.Time) (*loaders.OutbreakCacheEntry, error) {
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[cacheKey(scope, stateName, date)], nil
}

func (f *fakeStore) GetLatestCacheEntryBefore(ctx context.Context, scope types.Scope, stateName string, before time.Time) (*loaders.OutbreakCacheEntry, error) {
	var best *loaders.OutbreakCacheEntry
	for _, e := range f.entries {
		if e.Scope != scope || e.StateName != stateName || !e.QueryDate.Before(before) {
			continue
		}
		if best == nil || e.QueryDate.After(best.QueryDate) {
			best = e
		}
	}
	return best, nil
}

func (f *fakeStore) SaveCacheEntry(ctx context.Context, entry *loaders.OutbreakCacheEntry) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved++
	f.entries[cacheKey(entry.Scope, entry.StateName, entry.QueryDate)] = entry
	return nil
}

type fakeFetcher struct {
	list  *types.DiseaseList
	err   error
	calls int
}

func (f *fakeFetcher) FetchDiseaseData(ctx context.Context, stateName string) (*types.DiseaseList, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.list, "raw response", nil
}

func testDiseases() []types.Disease {
	return []types.Disease{{Name: "Chikungunya", RiskLevel: "medium", Symptoms: []string{"joint pain"}}}
}

func TestGetOutbreakDataFreshThenCache(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{list: &types.DiseaseList{Diseases: testDiseases()}}
	svc := NewService(store, fetcher, time.UTC)

	first, err := svc.GetOutbreakData(context.Background(), "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, first.Source)
	assert.Equal(t, types.ScopeState, first.Scope)
	assert.Equal(t, 1, store.saved)

	second, err := svc.GetOutbreakData(context.Background(), "Maharashtra")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Diseases, second.Diseases)
	assert.Equal(t, 1, fetcher.calls, "second same-day call must not hit the fetcher")
}

func TestGetOutbreakDataNationwideScope(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{list: &types.DiseaseList{Diseases: testDiseases()}}
	svc := NewService(store, fetcher, time.UTC)

	res, err := svc.GetOutbreakData(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, types.ScopeNationwide, res.Scope)
	assert.Empty(t, res.StateName)
}

func TestGetOutbreakDataStaleFallback(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeFetcher{err: ErrFetchFailed}, time.UTC)

	yesterday := svc.Today().AddDate(0, 0, -1)
	store.entries[cacheKey(types.ScopeState, "Kerala", yesterday)] = &loaders.OutbreakCacheEntry{
		Scope:     types.ScopeState,
		StateName: "Kerala",
		QueryDate: yesterday,
		Diseases:  testDiseases(),
		CreatedAt: yesterday,
	}

	res, err := svc.GetOutbreakData(context.Background(), "Kerala")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "Chikungunya", res.Diseases[0].Name)
}

func TestGetOutbreakDataNoDataAvailable(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeFetcher{err: ErrFetchFailed}, time.UTC)

	_, err := svc.GetOutbreakData(context.Background(), "Kerala")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestGetOutbreakDataSaveFailureStillReturnsFresh(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("connection reset")
	fetcher := &fakeFetcher{list: &types.DiseaseList{Diseases: testDiseases()}}
	svc := NewService(store, fetcher, time.UTC)

	res, err := svc.GetOutbreakData(context.Background(), "Bihar")
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, res.Source)
	assert.NotEmpty(t, res.Diseases)
}

func TestGetOutbreakDataReadErrorTreatedAsMiss(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("timeout")
	fetcher := &fakeFetcher{list: &types.DiseaseList{Diseases: testDiseases()}}
	svc := NewService(store, fetcher, time.UTC)

	res, err := svc.GetOutbreakData(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, res.Source)
}
