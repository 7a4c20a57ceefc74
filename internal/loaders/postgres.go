package loaders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

type PostgresClient struct {
	dsn  string
	pool *pgxpool.Pool
}

// AlertPreference represents a row from user_alert_preferences.
type AlertPreference struct {
	PhoneNumber  string
	State        string
	District     string
	Pincode      string
	StateID      *int
	AlertEnabled bool
	Frequency    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OutbreakCacheEntry represents a row from outbreak_cache.
// StateName is empty for nationwide entries.
type OutbreakCacheEntry struct {
	ID          string
	Scope       types.Scope
	StateName   string
	QueryDate   time.Time
	RawResponse string
	Diseases    []types.Disease
	CreatedAt   time.Time
}

// StateRecord is static reference data from the states table.
type StateRecord struct {
	ID               int
	Name             string
	Code             string
	Region           string
	IsUnionTerritory bool
}

func NewPostgresClient(dsn string, maxConns int) (*PostgresClient, error) {
	client := &PostgresClient{
		dsn: dsn,
	}

	pool, err := client.createConnectionPool(maxConns)
	if err != nil {
		return nil, err
	}

	client.pool = pool
	utils.Zlog.Info("Connected to PostgreSQL database with connection pool")
	return client, nil
}

func (c *PostgresClient) createConnectionPool(maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Postgres DSN: %w", err)
	}

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = 60 * time.Minute
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	return pool, nil
}

func (c *PostgresClient) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *PostgresClient) GetPool() *pgxpool.Pool {
	return c.pool
}

// ---- User alert preferences ----

// UpsertAlertPreference creates or re-enables a user's alert registration.
// Keyed on phone number so repeat registrations stay idempotent.
func (c *PostgresClient) UpsertAlertPreference(ctx context.Context, pref *AlertPreference) error {
	frequency := pref.Frequency
	if frequency == "" {
		frequency = "daily"
	}

	query := `
		INSERT INTO user_alert_preferences
			(phone_number, state, district, pincode, state_id, alert_enabled, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (phone_number)
		DO UPDATE SET
			state = EXCLUDED.state,
			district = EXCLUDED.district,
			pincode = EXCLUDED.pincode,
			state_id = EXCLUDED.state_id,
			alert_enabled = EXCLUDED.alert_enabled,
			frequency = EXCLUDED.frequency,
			updated_at = NOW()
	`

	_, err := c.pool.Exec(ctx, query,
		pref.PhoneNumber, pref.State, pref.District, pref.Pincode,
		pref.StateID, pref.AlertEnabled, frequency)
	if err != nil {
		return fmt.Errorf("failed to upsert alert preference: %w", err)
	}
	return nil
}

// GetAlertPreference returns the preference row for a phone number, or nil if
// the user never registered.
func (c *PostgresClient) GetAlertPreference(ctx context.Context, phoneNumber string) (*AlertPreference, error) {
	query := `
		SELECT phone_number, state, district, pincode, state_id, alert_enabled, frequency, created_at, updated_at
		FROM user_alert_preferences
		WHERE phone_number = $1
	`

	var pref AlertPreference
	err := c.pool.QueryRow(ctx, query, phoneNumber).Scan(
		&pref.PhoneNumber, &pref.State, &pref.District, &pref.Pincode,
		&pref.StateID, &pref.AlertEnabled, &pref.Frequency,
		&pref.CreatedAt, &pref.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert preference: %w", err)
	}
	return &pref, nil
}

// ListEnabledPreferences returns all users with alerts turned on.
func (c *PostgresClient) ListEnabledPreferences(ctx context.Context) ([]AlertPreference, error) {
	query := `
		SELECT phone_number, state, district, pincode, state_id, alert_enabled, frequency, created_at, updated_at
		FROM user_alert_preferences
		WHERE alert_enabled = true
		ORDER BY phone_number
	`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled preferences: %w", err)
	}
	defer rows.Close()

	var prefs []AlertPreference
	for rows.Next() {
		var pref AlertPreference
		if err := rows.Scan(
			&pref.PhoneNumber, &pref.State, &pref.District, &pref.Pincode,
			&pref.StateID, &pref.AlertEnabled, &pref.Frequency,
			&pref.CreatedAt, &pref.UpdatedAt,
		); err != nil {
			utils.Zlog.Warn("Failed to scan alert preference row", zap.Error(err))
			continue
		}
		prefs = append(prefs, pref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert preferences: %w", err)
	}
	return prefs, nil
}

// DisableAlerts soft-disables a registration: the row is kept so the user's
// state selection survives a later re-enable.
func (c *PostgresClient) DisableAlerts(ctx context.Context, phoneNumber string) error {
	query := `
		UPDATE user_alert_preferences
		SET alert_enabled = false, updated_at = NOW()
		WHERE phone_number = $1
	`

	_, err := c.pool.Exec(ctx, query, phoneNumber)
	if err != nil {
		return fmt.Errorf("failed to disable alerts: %w", err)
	}
	return nil
}

// DeleteUserData hard-deletes everything stored for a phone number.
func (c *PostgresClient) DeleteUserData(ctx context.Context, phoneNumber string) error {
	if _, err := c.pool.Exec(ctx,
		`DELETE FROM alert_history WHERE phone_number = $1`, phoneNumber); err != nil {
		return fmt.Errorf("failed to delete alert history: %w", err)
	}
	if _, err := c.pool.Exec(ctx,
		`DELETE FROM user_alert_preferences WHERE phone_number = $1`, phoneNumber); err != nil {
		return fmt.Errorf("failed to delete alert preference: %w", err)
	}
	return nil
}

// ---- Outbreak cache ----

// GetCacheEntry looks up the cache row for (scope, state, date).
// Returns nil without error on a miss.
func (c *PostgresClient) GetCacheEntry(ctx context.Context, scope types.Scope, stateName string, date time.Time) (*OutbreakCacheEntry, error) {
	query := `
		SELECT id, scope, state_name, query_date, raw_response, diseases, created_at
		FROM outbreak_cache
		WHERE scope = $1 AND state_name = $2 AND query_date = $3
	`

	return c.scanCacheEntry(c.pool.QueryRow(ctx, query, string(scope), stateName, date))
}

// GetLatestCacheEntryBefore returns the most recent cache row for the scope
// strictly older than the given date. Used as the stale fallback after a
// fetch failure.
func (c *PostgresClient) GetLatestCacheEntryBefore(ctx context.Context, scope types.Scope, stateName string, before time.Time) (*OutbreakCacheEntry, error) {
	query := `
		SELECT id, scope, state_name, query_date, raw_response, diseases, created_at
		FROM outbreak_cache
		WHERE scope = $1 AND state_name = $2 AND query_date < $3
		ORDER BY query_date DESC
		LIMIT 1
	`

	return c.scanCacheEntry(c.pool.QueryRow(ctx, query, string(scope), stateName, before))
}

func (c *PostgresClient) scanCacheEntry(row pgx.Row) (*OutbreakCacheEntry, error) {
	var entry OutbreakCacheEntry
	var scope string
	var diseasesJSON []byte

	err := row.Scan(&entry.ID, &scope, &entry.StateName, &entry.QueryDate,
		&entry.RawResponse, &diseasesJSON, &entry.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	entry.Scope = types.Scope(scope)
	if err := json.Unmarshal(diseasesJSON, &entry.Diseases); err != nil {
		return nil, fmt.Errorf("failed to parse cached diseases: %w", err)
	}
	return &entry, nil
}

// SaveCacheEntry upserts a cache row. Concurrent misses for the same day may
// both write; the later write wins, which is fine since content is equivalent
// for the same (scope, state, date).
func (c *PostgresClient) SaveCacheEntry(ctx context.Context, entry *OutbreakCacheEntry) error {
	diseasesJSON, err := json.Marshal(entry.Diseases)
	if err != nil {
		return fmt.Errorf("failed to marshal diseases: %w", err)
	}

	query := `
		INSERT INTO outbreak_cache (id, scope, state_name, query_date, raw_response, diseases, created_at)
		VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (scope, state_name, query_date)
		DO UPDATE SET
			raw_response = EXCLUDED.raw_response,
			diseases = EXCLUDED.diseases,
			created_at = NOW()
	`

	_, err = c.pool.Exec(ctx, query,
		string(entry.Scope), entry.StateName, entry.QueryDate, entry.RawResponse, diseasesJSON)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

// DeleteCacheOlderThan removes cache rows with a query date strictly before
// the cutoff. Returns the number of rows removed.
func (c *PostgresClient) DeleteCacheOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.pool.Exec(ctx,
		`DELETE FROM outbreak_cache WHERE query_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old cache entries: %w", err)
	}
	return result.RowsAffected(), nil
}

// ---- Canonical states ----

// GetStateByName matches a free-text state name against the states table
// using case-normalized equality.
func (c *PostgresClient) GetStateByName(ctx context.Context, name string) (*StateRecord, error) {
	query := `
		SELECT id, name, code, region, is_union_territory
		FROM states
		WHERE LOWER(name) = LOWER(TRIM($1))
	`

	var s StateRecord
	err := c.pool.QueryRow(ctx, query, name).Scan(
		&s.ID, &s.Name, &s.Code, &s.Region, &s.IsUnionTerritory)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state by name: %w", err)
	}
	return &s, nil
}

// GetStateByID returns a canonical state record by its id.
func (c *PostgresClient) GetStateByID(ctx context.Context, id int) (*StateRecord, error) {
	query := `
		SELECT id, name, code, region, is_union_territory
		FROM states
		WHERE id = $1
	`

	var s StateRecord
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Code, &s.Region, &s.IsUnionTerritory)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state by id: %w", err)
	}
	return &s, nil
}

// ListStates returns all canonical states ordered by name.
func (c *PostgresClient) ListStates(ctx context.Context) ([]StateRecord, error) {
	query := `
		SELECT id, name, code, region, is_union_territory
		FROM states
		ORDER BY name
	`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	var states []StateRecord
	for rows.Next() {
		var s StateRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Region, &s.IsUnionTerritory); err != nil {
			utils.Zlog.Warn("Failed to scan state row", zap.Error(err))
			continue
		}
		states = append(states, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating states: %w", err)
	}
	return states, nil
}

// ---- Known disease ledger ----

// UpsertKnownDiseases records the diseases seen in the latest scan. last_seen_at
// drives the 30-day inactivity sweep.
func (c *PostgresClient) UpsertKnownDiseases(ctx context.Context, diseases []types.Disease) error {
	query := `
		INSERT INTO diseases (name, risk_level, last_seen_at, active)
		VALUES ($1, $2, NOW(), true)
		ON CONFLICT (name)
		DO UPDATE SET
			risk_level = EXCLUDED.risk_level,
			last_seen_at = NOW(),
			active = true
	`

	successCount := 0
	for _, d := range diseases {
		if d.Name == "" {
			continue
		}
		if _, err := c.pool.Exec(ctx, query, d.Name, d.RiskLevel); err != nil {
			utils.Zlog.Warn("Failed to upsert disease",
				zap.String("disease", d.Name),
				zap.Error(err))
			continue
		}
		successCount++
	}

	if successCount == 0 && len(diseases) > 0 {
		return fmt.Errorf("failed to upsert any diseases")
	}
	return nil
}

// ListActiveDiseaseNames returns the names of diseases currently marked active.
func (c *PostgresClient) ListActiveDiseaseNames(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT name FROM diseases WHERE active = true ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active diseases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diseases: %w", err)
	}
	return names, nil
}

// DeactivateStaleDiseases marks diseases not seen since the cutoff as inactive.
func (c *PostgresClient) DeactivateStaleDiseases(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.pool.Exec(ctx,
		`UPDATE diseases SET active = false WHERE active = true AND last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale diseases: %w", err)
	}
	return result.RowsAffected(), nil
}

// ---- Alert history ----

// InsertAlertHistory records one delivered alert for retention auditing.
func (c *PostgresClient) InsertAlertHistory(ctx context.Context, phoneNumber string, diseaseNames []string, kind string) error {
	query := `
		INSERT INTO alert_history (id, phone_number, disease_names, kind, sent_at)
		VALUES (gen_random_uuid()::text, $1, $2, $3, NOW())
	`

	_, err := c.pool.Exec(ctx, query, phoneNumber, diseaseNames, kind)
	if err != nil {
		return fmt.Errorf("failed to insert alert history: %w", err)
	}
	return nil
}

// DeleteAlertHistoryOlderThan removes alert history rows sent before the cutoff.
func (c *PostgresClient) DeleteAlertHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.pool.Exec(ctx,
		`DELETE FROM alert_history WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alert history: %w", err)
	}
	return result.RowsAffected(), nil
}
