package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/outbreak"
	"github.com/swasthya-labs/arogya-bot/internal/types"
)

type fakeAlertStore struct {
	prefs        []loaders.AlertPreference
	prefsErr     error
	knownNames   []string
	savedEntries []*loaders.OutbreakCacheEntry
	upserted     [][]types.Disease
	history      []string
	cacheSwept   time.Time
	historySwept time.Time
	deactivated  time.Time
}

func (f *fakeAlertStore) ListEnabledPreferences(ctx context.Context) ([]loaders.AlertPreference, error) {
	return f.prefs, f.prefsErr
}

func (f *fakeAlertStore) SaveCacheEntry(ctx context.Context, entry *loaders.OutbreakCacheEntry) error {
	f.savedEntries = append(f.savedEntries, entry)
	return nil
}

func (f *fakeAlertStore) UpsertKnownDiseases(ctx context.Context, diseases []types.Disease) error {
	f.upserted = append(f.upserted, diseases)
	return nil
}

func (f *fakeAlertStore) ListActiveDiseaseNames(ctx context.Context) ([]string, error) {
	return f.knownNames, nil
}

func (f *fakeAlertStore) DeactivateStaleDiseases(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deactivated = cutoff
	return 1, nil
}

func (f *fakeAlertStore) InsertAlertHistory(ctx context.Context, phoneNumber string, diseaseNames []string, kind string) error {
	f.history = append(f.history, phoneNumber)
	return nil
}

func (f *fakeAlertStore) DeleteCacheOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cacheSwept = cutoff
	return 2, nil
}

func (f *fakeAlertStore) DeleteAlertHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.historySwept = cutoff
	return 3, nil
}

type fakeProvider struct {
	result *outbreak.Result
	err    error
}

func (f *fakeProvider) GetOutbreakData(ctx context.Context, stateName string) (*outbreak.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.StateName = stateName
	return &res, nil
}

func (f *fakeProvider) Today() time.Time {
	return time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
}

type fakeDispatchFetcher struct {
	list *types.DiseaseList
	err  error
}

func (f *fakeDispatchFetcher) FetchDiseaseData(ctx context.Context, stateName string) (*types.DiseaseList, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.list, "raw", nil
}

type fakeSender struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) (string, error) {
	if f.failFor[to] {
		return "", errors.New("invalid phone number")
	}
	f.sent = append(f.sent, to)
	return "wamid.test", nil
}

func dengue() types.Disease {
	return types.Disease{Name: "Dengue", RiskLevel: "high", Symptoms: []string{"fever"}}
}

func newTestDispatcher(store *fakeAlertStore, provider *fakeProvider, fetcher *fakeDispatchFetcher, sender *fakeSender) *Dispatcher {
	return NewDispatcher(store, provider, fetcher, sender, 0, 7)
}

func TestRunHourlyAlertsBroadcastsNewDiseases(t *testing.T) {
	store := &fakeAlertStore{
		prefs: []loaders.AlertPreference{
			{PhoneNumber: "919800000001", State: "Maharashtra", AlertEnabled: true},
			{PhoneNumber: "919800000002", State: "Kerala", AlertEnabled: true},
		},
		knownNames: []string{"Seasonal Flu"},
	}
	provider := &fakeProvider{result: &outbreak.Result{Diseases: []types.Disease{dengue()}, Source: outbreak.SourceCache}}
	fetcher := &fakeDispatchFetcher{list: &types.DiseaseList{Diseases: []types.Disease{dengue()}}}
	sender := &fakeSender{}

	d := newTestDispatcher(store, provider, fetcher, sender)
	d.RunHourlyAlerts(context.Background())

	assert.Equal(t, []string{"919800000001", "919800000002"}, sender.sent)
	assert.Equal(t, []string{"919800000001", "919800000002"}, store.history)
	require.NotEmpty(t, store.savedEntries, "collection must refresh the nationwide cache")
	assert.Equal(t, types.ScopeNationwide, store.savedEntries[0].Scope)
}

func TestRunHourlyAlertsNoNewDiseasesIsQuiet(t *testing.T) {
	store := &fakeAlertStore{
		prefs:      []loaders.AlertPreference{{PhoneNumber: "919800000001", AlertEnabled: true}},
		knownNames: []string{"dengue"},
	}
	fetcher := &fakeDispatchFetcher{list: &types.DiseaseList{Diseases: []types.Disease{dengue()}}}
	sender := &fakeSender{}

	d := newTestDispatcher(store, &fakeProvider{result: &outbreak.Result{}}, fetcher, sender)
	d.RunHourlyAlerts(context.Background())

	assert.Empty(t, sender.sent, "known diseases must not trigger a broadcast")
}

func TestRunHourlyAlertsFetchFailureAbortsRunOnly(t *testing.T) {
	store := &fakeAlertStore{
		prefs: []loaders.AlertPreference{{PhoneNumber: "919800000001", AlertEnabled: true}},
	}
	fetcher := &fakeDispatchFetcher{err: outbreak.ErrFetchFailed}
	sender := &fakeSender{}

	d := newTestDispatcher(store, &fakeProvider{result: &outbreak.Result{}}, fetcher, sender)
	d.RunHourlyAlerts(context.Background())

	assert.Empty(t, sender.sent)
	assert.Empty(t, store.savedEntries, "failed collection must not touch the cache")
}

func TestBroadcastContinuesPastSendFailures(t *testing.T) {
	store := &fakeAlertStore{
		prefs: []loaders.AlertPreference{
			{PhoneNumber: "bad-number", State: "Goa", AlertEnabled: true},
			{PhoneNumber: "919800000003", State: "Goa", AlertEnabled: true},
		},
		knownNames: nil,
	}
	provider := &fakeProvider{result: &outbreak.Result{Diseases: []types.Disease{dengue()}}}
	fetcher := &fakeDispatchFetcher{list: &types.DiseaseList{Diseases: []types.Disease{dengue()}}}
	sender := &fakeSender{failFor: map[string]bool{"bad-number": true}}

	d := newTestDispatcher(store, provider, fetcher, sender)
	d.RunHourlyAlerts(context.Background())

	assert.Equal(t, []string{"919800000003"}, sender.sent)
	assert.Equal(t, []string{"919800000003"}, store.history, "history only for successful sends")
}

func TestRunDailySummarySendsToAllSubscribers(t *testing.T) {
	store := &fakeAlertStore{
		prefs: []loaders.AlertPreference{
			{PhoneNumber: "919800000001", State: "Maharashtra", AlertEnabled: true},
			{PhoneNumber: "919800000002", State: "", AlertEnabled: true},
		},
	}
	provider := &fakeProvider{result: &outbreak.Result{Diseases: []types.Disease{dengue()}}}

	d := newTestDispatcher(store, provider, &fakeDispatchFetcher{}, &fakeSender{})
	sender := &fakeSender{}
	d.sender = sender
	d.RunDailySummary(context.Background())

	assert.Len(t, sender.sent, 2)
}

func TestRunDailySummarySkipsUserWithNoData(t *testing.T) {
	store := &fakeAlertStore{
		prefs: []loaders.AlertPreference{{PhoneNumber: "919800000001", State: "Goa", AlertEnabled: true}},
	}
	provider := &fakeProvider{err: outbreak.ErrNoDataAvailable}
	sender := &fakeSender{}

	d := newTestDispatcher(store, provider, &fakeDispatchFetcher{}, sender)
	d.RunDailySummary(context.Background())

	assert.Empty(t, sender.sent)
}

func TestRunAIScanRefreshesLedgerAndCache(t *testing.T) {
	store := &fakeAlertStore{}
	fetcher := &fakeDispatchFetcher{list: &types.DiseaseList{Diseases: []types.Disease{dengue()}}}

	d := newTestDispatcher(store, &fakeProvider{result: &outbreak.Result{}}, fetcher, &fakeSender{})
	d.RunAIScan(context.Background())

	require.Len(t, store.savedEntries, 1)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "Dengue", store.upserted[0][0].Name)
}

func TestRunCleanupSweepsAllRetentionWindows(t *testing.T) {
	store := &fakeAlertStore{}

	d := newTestDispatcher(store, &fakeProvider{result: &outbreak.Result{}}, &fakeDispatchFetcher{}, &fakeSender{})
	d.RunCleanup(context.Background())

	now := time.Now()
	assert.WithinDuration(t, now.AddDate(0, 0, -7), store.cacheSwept, time.Minute)
	assert.WithinDuration(t, now.AddDate(0, 0, -30), store.deactivated, time.Minute)
	assert.WithinDuration(t, now.AddDate(0, 0, -60), store.historySwept, time.Minute)
}
