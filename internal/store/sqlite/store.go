// Package sqlite stores alert configurations. The engine reads a full
// snapshot on a refresh interval; writes come from whatever manages the
// alert lifecycle (CLI seeding, an admin surface, tests).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"market-alert-engine/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the alert-config repository.
type Store struct {
	db *sqlx.DB
}

// New opens the database with WAL mode and creates the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps sqlite happy under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			id           TEXT    PRIMARY KEY,
			user_id      TEXT    NOT NULL,
			kind         TEXT    NOT NULL,
			enabled      INTEGER NOT NULL DEFAULT 1,
			symbols      TEXT    NOT NULL DEFAULT '[]',
			timeframe    TEXT    NOT NULL DEFAULT '',
			cooldown_min INTEGER NOT NULL DEFAULT 0,
			params       TEXT    NOT NULL,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_enabled ON alerts (enabled);
	`)
	return err
}

// alertRow is the persisted shape of one alert config.
type alertRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Kind        string `db:"kind"`
	Enabled     bool   `db:"enabled"`
	Symbols     string `db:"symbols"`
	Timeframe   string `db:"timeframe"`
	CooldownMin int    `db:"cooldown_min"`
	Params      string `db:"params"`
}

// LoadAll reads every enabled alert config. Rows that fail to decode or
// validate are logged and skipped; one bad row must not take the engine
// down.
func (s *Store) LoadAll(ctx context.Context) ([]model.AlertConfig, error) {
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, kind, enabled, symbols, timeframe, cooldown_min, params
		 FROM alerts WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite select alerts: %w", err)
	}

	configs := make([]model.AlertConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := rowToConfig(row)
		if err != nil {
			log.Printf("[sqlite] skipping alert %s: %v", row.ID, err)
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Upsert inserts or replaces an alert config.
func (s *Store) Upsert(ctx context.Context, cfg model.AlertConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	row, err := configToRow(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, kind, enabled, symbols, timeframe, cooldown_min, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			kind = excluded.kind,
			enabled = excluded.enabled,
			symbols = excluded.symbols,
			timeframe = excluded.timeframe,
			cooldown_min = excluded.cooldown_min,
			params = excluded.params,
			updated_at = strftime('%s', 'now')`,
		row.ID, row.UserID, row.Kind, row.Enabled, row.Symbols, row.Timeframe, row.CooldownMin, row.Params)
	if err != nil {
		return fmt.Errorf("sqlite upsert alert %s: %w", cfg.ID, err)
	}
	return nil
}

// SetEnabled flips an alert without touching its parameters.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET enabled = ?, updated_at = strftime('%s', 'now') WHERE id = ?`,
		enabled, id)
	if err != nil {
		return fmt.Errorf("sqlite enable alert %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an alert config.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite delete alert %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func configToRow(cfg model.AlertConfig) (alertRow, error) {
	symbols, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return alertRow{}, fmt.Errorf("marshal symbols: %w", err)
	}

	var spec interface{}
	switch cfg.Kind {
	case model.KindRSIThreshold:
		spec = cfg.RSI
	case model.KindCompositeThreshold:
		spec = cfg.Composite
	case model.KindIndicatorFlip:
		spec = cfg.Flip
	case model.KindLeaderChange:
		spec = cfg.Leader
	case model.KindPairMismatch:
		spec = cfg.Mismatch
	default:
		return alertRow{}, fmt.Errorf("unknown kind %q", cfg.Kind)
	}
	params, err := json.Marshal(spec)
	if err != nil {
		return alertRow{}, fmt.Errorf("marshal params: %w", err)
	}

	return alertRow{
		ID:          cfg.ID,
		UserID:      cfg.UserID,
		Kind:        string(cfg.Kind),
		Enabled:     cfg.Enabled,
		Symbols:     string(symbols),
		Timeframe:   string(cfg.Timeframe),
		CooldownMin: cfg.CooldownMin,
		Params:      string(params),
	}, nil
}

func rowToConfig(row alertRow) (model.AlertConfig, error) {
	cfg := model.AlertConfig{
		ID:          row.ID,
		UserID:      row.UserID,
		Kind:        model.AlertKind(row.Kind),
		Enabled:     row.Enabled,
		Timeframe:   model.Timeframe(row.Timeframe),
		CooldownMin: row.CooldownMin,
	}
	if err := json.Unmarshal([]byte(row.Symbols), &cfg.Symbols); err != nil {
		return cfg, fmt.Errorf("decode symbols: %w", err)
	}

	raw := []byte(row.Params)
	var err error
	switch cfg.Kind {
	case model.KindRSIThreshold:
		cfg.RSI = &model.RSIThresholdSpec{}
		err = json.Unmarshal(raw, cfg.RSI)
	case model.KindCompositeThreshold:
		cfg.Composite = &model.CompositeThresholdSpec{}
		err = json.Unmarshal(raw, cfg.Composite)
	case model.KindIndicatorFlip:
		cfg.Flip = &model.IndicatorFlipSpec{}
		err = json.Unmarshal(raw, cfg.Flip)
	case model.KindLeaderChange:
		cfg.Leader = &model.LeaderChangeSpec{}
		err = json.Unmarshal(raw, cfg.Leader)
	case model.KindPairMismatch:
		cfg.Mismatch = &model.PairMismatchSpec{}
		err = json.Unmarshal(raw, cfg.Mismatch)
	default:
		return cfg, fmt.Errorf("unknown kind %q", row.Kind)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode %s params: %w", row.Kind, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
