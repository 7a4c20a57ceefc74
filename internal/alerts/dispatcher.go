package alerts

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/outbreak"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

const (
	diseaseRetentionWindow = 30 * 24 * time.Hour
	historyRetentionDays   = 60
)

// MessageSender pushes a text message to one recipient. Implemented by the
// WhatsApp client.
type MessageSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// Store is the slice of the database the dispatcher needs. Implemented by
// loaders.PostgresClient.
type Store interface {
	ListEnabledPreferences(ctx context.Context) ([]loaders.AlertPreference, error)
	SaveCacheEntry(ctx context.Context, entry *loaders.OutbreakCacheEntry) error
	UpsertKnownDiseases(ctx context.Context, diseases []types.Disease) error
	ListActiveDiseaseNames(ctx context.Context) ([]string, error)
	DeactivateStaleDiseases(ctx context.Context, cutoff time.Time) (int64, error)
	InsertAlertHistory(ctx context.Context, phoneNumber string, diseaseNames []string, kind string) error
	DeleteCacheOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAlertHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutbreakProvider resolves per-location disease data through the cache.
type OutbreakProvider interface {
	GetOutbreakData(ctx context.Context, stateName string) (*outbreak.Result, error)
	Today() time.Time
}

// Dispatcher pushes disease information to subscribed users on a schedule.
type Dispatcher struct {
	store          Store
	outbreaks      OutbreakProvider
	fetcher        outbreak.Fetcher
	sender         MessageSender
	sendDelay      time.Duration
	cacheRetention time.Duration
}

func NewDispatcher(store Store, outbreaks OutbreakProvider, fetcher outbreak.Fetcher, sender MessageSender, sendDelay time.Duration, cacheRetentionDays int) *Dispatcher {
	if cacheRetentionDays <= 0 {
		cacheRetentionDays = 7
	}
	return &Dispatcher{
		store:          store,
		outbreaks:      outbreaks,
		fetcher:        fetcher,
		sender:         sender,
		sendDelay:      sendDelay,
		cacheRetention: time.Duration(cacheRetentionDays) * 24 * time.Hour,
	}
}

// RunHourlyAlerts is the collect-then-alert cycle: fetch nationwide data
// directly (this path refreshes the cache), diff the disease names against
// the known-disease ledger, and broadcast only when something new appeared.
func (d *Dispatcher) RunHourlyAlerts(ctx context.Context) {
	newDiseases, err := d.collect(ctx)
	if err != nil {
		utils.Zlog.Error("Alert collection failed, skipping this run", zap.Error(err))
		return
	}
	if len(newDiseases) == 0 {
		utils.Zlog.Debug("No new diseases detected, nothing to broadcast")
		return
	}

	utils.Zlog.Info("New disease outbreaks detected",
		zap.Int("count", len(newDiseases)))
	d.broadcast(ctx, "outbreak", func(pref loaders.AlertPreference) (string, []string, error) {
		diseases, err := d.resolveForUser(ctx, pref)
		if err != nil {
			return "", nil, err
		}
		return FormatAlertMessage(diseases, pref.State, pref.District), diseaseNames(diseases), nil
	})
}

// RunAIScan refreshes the nationwide cache entry and the known-disease
// ledger without sending anything.
func (d *Dispatcher) RunAIScan(ctx context.Context) {
	list, raw, err := d.fetcher.FetchDiseaseData(ctx, "")
	if err != nil {
		utils.Zlog.Error("AI scan fetch failed", zap.Error(err))
		return
	}

	entry := &loaders.OutbreakCacheEntry{
		Scope:       types.ScopeNationwide,
		QueryDate:   d.outbreaks.Today(),
		RawResponse: raw,
		Diseases:    list.Diseases,
		CreatedAt:   time.Now(),
	}
	if err := d.store.SaveCacheEntry(ctx, entry); err != nil {
		utils.Zlog.Warn("AI scan failed to refresh cache entry", zap.Error(err))
	}
	if err := d.store.UpsertKnownDiseases(ctx, list.Diseases); err != nil {
		utils.Zlog.Warn("AI scan failed to update disease ledger", zap.Error(err))
	}

	utils.Zlog.Info("AI scan completed", zap.Int("diseases", len(list.Diseases)))
}

// RunDailySummary sends the morning summary to every subscribed user.
func (d *Dispatcher) RunDailySummary(ctx context.Context) {
	today := d.outbreaks.Today()
	d.broadcast(ctx, "daily_summary", func(pref loaders.AlertPreference) (string, []string, error) {
		diseases, err := d.resolveForUser(ctx, pref)
		if err != nil {
			return "", nil, err
		}
		return FormatDailySummary(diseases, today, pref.State, pref.District), diseaseNames(diseases), nil
	})
}

// RunCleanup sweeps expired cache rows, stale ledger entries, and old alert
// history.
func (d *Dispatcher) RunCleanup(ctx context.Context) {
	now := time.Now()

	removed, err := d.store.DeleteCacheOlderThan(ctx, now.Add(-d.cacheRetention))
	if err != nil {
		utils.Zlog.Error("Cleanup: cache sweep failed", zap.Error(err))
	}

	deactivated, err := d.store.DeactivateStaleDiseases(ctx, now.Add(-diseaseRetentionWindow))
	if err != nil {
		utils.Zlog.Error("Cleanup: disease ledger sweep failed", zap.Error(err))
	}

	purged, err := d.store.DeleteAlertHistoryOlderThan(ctx, now.AddDate(0, 0, -historyRetentionDays))
	if err != nil {
		utils.Zlog.Error("Cleanup: alert history sweep failed", zap.Error(err))
	}

	utils.Zlog.Info("Cleanup completed",
		zap.Int64("cache_rows_removed", removed),
		zap.Int64("diseases_deactivated", deactivated),
		zap.Int64("history_rows_purged", purged))
}

// collect fetches nationwide data directly (bypassing the cache), refreshes
// the cache and ledger, and returns diseases not previously known.
func (d *Dispatcher) collect(ctx context.Context) ([]types.Disease, error) {
	known, err := d.store.ListActiveDiseaseNames(ctx)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[normalizeName(name)] = true
	}

	list, raw, err := d.fetcher.FetchDiseaseData(ctx, "")
	if err != nil {
		return nil, err
	}

	entry := &loaders.OutbreakCacheEntry{
		Scope:       types.ScopeNationwide,
		QueryDate:   d.outbreaks.Today(),
		RawResponse: raw,
		Diseases:    list.Diseases,
		CreatedAt:   time.Now(),
	}
	if err := d.store.SaveCacheEntry(ctx, entry); err != nil {
		utils.Zlog.Warn("Failed to refresh nationwide cache during collection", zap.Error(err))
	}
	if err := d.store.UpsertKnownDiseases(ctx, list.Diseases); err != nil {
		utils.Zlog.Warn("Failed to update disease ledger during collection", zap.Error(err))
	}

	var fresh []types.Disease
	for _, disease := range list.Diseases {
		if !knownSet[normalizeName(disease.Name)] {
			fresh = append(fresh, disease)
		}
	}
	return fresh, nil
}

// broadcast iterates enabled users, builds a per-user message, and sends it.
// A failure for one user is logged and skipped; one bad phone number must
// not block the rest of the run.
func (d *Dispatcher) broadcast(ctx context.Context, kind string, build func(loaders.AlertPreference) (string, []string, error)) {
	prefs, err := d.store.ListEnabledPreferences(ctx)
	if err != nil {
		utils.Zlog.Error("Failed to load alert subscribers", zap.Error(err))
		return
	}
	if len(prefs) == 0 {
		utils.Zlog.Debug("No subscribed users, skipping broadcast", zap.String("kind", kind))
		return
	}

	sent, failed := 0, 0
	for i, pref := range prefs {
		body, names, err := build(pref)
		if err != nil {
			failed++
			utils.Zlog.Warn("Failed to build alert for user",
				zap.String("phone", pref.PhoneNumber),
				zap.String("kind", kind),
				zap.Error(err))
			continue
		}

		if _, err := d.sender.SendText(ctx, pref.PhoneNumber, body); err != nil {
			failed++
			utils.Zlog.Warn("Failed to send alert, skipping user",
				zap.String("phone", pref.PhoneNumber),
				zap.String("kind", kind),
				zap.Error(err))
			continue
		}
		sent++

		if err := d.store.InsertAlertHistory(ctx, pref.PhoneNumber, names, kind); err != nil {
			utils.Zlog.Warn("Failed to record alert history",
				zap.String("phone", pref.PhoneNumber),
				zap.Error(err))
		}

		// Spacing between sends keeps us under the messaging platform's
		// rate limits.
		if d.sendDelay > 0 && i < len(prefs)-1 {
			select {
			case <-ctx.Done():
				utils.Zlog.Warn("Broadcast cancelled mid-run",
					zap.String("kind", kind),
					zap.Int("sent", sent))
				return
			case <-time.After(d.sendDelay):
			}
		}
	}

	utils.Zlog.Info("Alert broadcast completed",
		zap.String("kind", kind),
		zap.Int("sent", sent),
		zap.Int("failed", failed))
}

// resolveForUser fetches the disease list for a user's stored state through
// the cache-aside service.
func (d *Dispatcher) resolveForUser(ctx context.Context, pref loaders.AlertPreference) ([]types.Disease, error) {
	result, err := d.outbreaks.GetOutbreakData(ctx, pref.State)
	if err != nil {
		return nil, err
	}
	return result.Diseases, nil
}

func diseaseNames(diseases []types.Disease) []string {
	names := make([]string, 0, len(diseases))
	for _, d := range diseases {
		names = append(names, d.Name)
	}
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
