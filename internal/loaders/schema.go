package loaders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS states (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		code TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		is_union_territory BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS user_alert_preferences (
		phone_number TEXT PRIMARY KEY,
		state TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		pincode TEXT NOT NULL DEFAULT '',
		state_id INTEGER REFERENCES states(id),
		alert_enabled BOOLEAN NOT NULL DEFAULT true,
		frequency TEXT NOT NULL DEFAULT 'daily',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS outbreak_cache (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		state_name TEXT NOT NULL DEFAULT '',
		query_date DATE NOT NULL,
		raw_response TEXT NOT NULL DEFAULT '',
		diseases JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (scope, state_name, query_date)
	)`,
	`CREATE TABLE IF NOT EXISTS diseases (
		name TEXT PRIMARY KEY,
		risk_level TEXT NOT NULL DEFAULT '',
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS alert_history (
		id TEXT PRIMARY KEY,
		phone_number TEXT NOT NULL,
		disease_names TEXT[] NOT NULL,
		kind TEXT NOT NULL DEFAULT 'outbreak',
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alert_history_sent_at ON alert_history (sent_at)`,
	`CREATE INDEX IF NOT EXISTS idx_outbreak_cache_query_date ON outbreak_cache (query_date)`,
}

// seedStates is the canonical list of Indian states and union territories.
type seedState struct {
	name   string
	code   string
	region string
	isUT   bool
}

var seedStates = []seedState{
	{"Andhra Pradesh", "AP", "South", false},
	{"Arunachal Pradesh", "AR", "Northeast", false},
	{"Assam", "AS", "Northeast", false},
	{"Bihar", "BR", "East", false},
	{"Chhattisgarh", "CG", "Central", false},
	{"Goa", "GA", "West", false},
	{"Gujarat", "GJ", "West", false},
	{"Haryana", "HR", "North", false},
	{"Himachal Pradesh", "HP", "North", false},
	{"Jharkhand", "JH", "East", false},
	{"Karnataka", "KA", "South", false},
	{"Kerala", "KL", "South", false},
	{"Madhya Pradesh", "MP", "Central", false},
	{"Maharashtra", "MH", "West", false},
	{"Manipur", "MN", "Northeast", false},
	{"Meghalaya", "ML", "Northeast", false},
	{"Mizoram", "MZ", "Northeast", false},
	{"Nagaland", "NL", "Northeast", false},
	{"Odisha", "OD", "East", false},
	{"Punjab", "PB", "North", false},
	{"Rajasthan", "RJ", "North", false},
	{"Sikkim", "SK", "Northeast", false},
	{"Tamil Nadu", "TN", "South", false},
	{"Telangana", "TG", "South", false},
	{"Tripura", "TR", "Northeast", false},
	{"Uttar Pradesh", "UP", "North", false},
	{"Uttarakhand", "UK", "North", false},
	{"West Bengal", "WB", "East", false},
	{"Andaman and Nicobar Islands", "AN", "South", true},
	{"Chandigarh", "CH", "North", true},
	{"Dadra and Nagar Haveli and Daman and Diu", "DN", "West", true},
	{"Delhi", "DL", "North", true},
	{"Jammu and Kashmir", "JK", "North", true},
	{"Ladakh", "LA", "North", true},
	{"Lakshadweep", "LD", "South", true},
	{"Puducherry", "PY", "South", true},
}

// EnsureSchema creates missing tables and seeds the static states reference
// data. Safe to run on every startup.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	query := `
		INSERT INTO states (name, code, region, is_union_territory)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING
	`
	for _, s := range seedStates {
		if _, err := c.pool.Exec(ctx, query, s.name, s.code, s.region, s.isUT); err != nil {
			utils.Zlog.Warn("Failed to seed state",
				zap.String("state", s.name),
				zap.Error(err))
		}
	}

	utils.Zlog.Info("Database schema ensured", zap.Int("seed_states", len(seedStates)))
	return nil
}
