package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

// schemaStatements create the signal lifecycle and decision audit tables.
// Signals use ReplacingMergeTree keyed by id so status updates are plain
// re-inserts with a newer updated_at version; reads collapse with FINAL.
var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS tradepulse`,
	`CREATE TABLE IF NOT EXISTS tradepulse.signals (
        id          String,
        symbol      LowCardinality(String),
        direction   LowCardinality(String),
        entry_price Float64,
        status      LowCardinality(String),
        match_ratio Float64,
        created_at  DateTime64(3),
        updated_at  DateTime64(3)
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS tradepulse.decisions (
        ts          DateTime64(3),
        symbol      LowCardinality(String),
        context     LowCardinality(String),
        direction   LowCardinality(String),
        decision    LowCardinality(String),
        reason      String,
        tech_score  Float64,
        match_ratio Float64,
        grade       LowCardinality(String),
        confidence  Float64,
        payload     String
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(ts)
    ORDER BY (symbol, ts)`,
}

// CHSignalStore implements SignalStore backed by ClickHouse.
type CHSignalStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.SignalStore = (*CHSignalStore)(nil)

func NewCHSignalStore(ch *pkgch.Client) *CHSignalStore {
	return &CHSignalStore{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSignalStore) Init(ctx context.Context) error {
	if err := s.ch.InitSchema(ctx, schemaStatements); err != nil {
		return fmt.Errorf("signal store init: %w", err)
	}
	return nil
}

func (s *CHSignalStore) SaveSignal(ctx context.Context, sig *models.Signal) error {
	now := time.Now().UTC()
	created := sig.CreatedAt
	if created.IsZero() {
		created = now
	}
	const q = `INSERT INTO tradepulse.signals
        (id, symbol, direction, entry_price, status, match_ratio, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		sig.ID,
		sig.Symbol,
		string(sig.Direction),
		sig.EntryPrice,
		string(sig.Status),
		sig.MatchRatio,
		created,
		now,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_signal error",
				applogger.String("id", sig.ID),
				applogger.String("symbol", sig.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

func (s *CHSignalStore) GetPending(ctx context.Context, limit int) ([]*models.Signal, error) {
	return s.getByStatus(ctx, models.SignalPending, limit)
}

// GetActive returns signals currently treated as open positions.
func (s *CHSignalStore) GetActive(ctx context.Context, limit int) ([]*models.Signal, error) {
	return s.getByStatus(ctx, models.SignalActive, limit)
}

func (s *CHSignalStore) getByStatus(ctx context.Context, status models.SignalStatus, limit int) ([]*models.Signal, error) {
	start := time.Now()
	const q = `
        SELECT id, symbol, direction, entry_price, status, match_ratio, created_at, updated_at
        FROM tradepulse.signals FINAL
        WHERE status = ?
        ORDER BY created_at ASC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, string(status), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_signals query error",
				applogger.String("status", string(status)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get signals: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Signal, 0, limit)
	for rows.Next() {
		var (
			sig models.Signal
			dir string
			st  string
		)
		if err := rows.Scan(&sig.ID, &sig.Symbol, &dir, &sig.EntryPrice, &st, &sig.MatchRatio, &sig.CreatedAt, &sig.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Direction = models.Direction(dir)
		sig.Status = models.SignalStatus(st)
		out = append(out, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_signals ok",
			applogger.String("status", string(status)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHSignalStore) MarkReactivated(ctx context.Context, id string) error {
	return s.updateSignal(ctx, id, func(sig *models.Signal) {
		sig.Status = models.SignalReactivated
	})
}

func (s *CHSignalStore) UpdateMatchRatio(ctx context.Context, id string, matchRatio float64) error {
	return s.updateSignal(ctx, id, func(sig *models.Signal) {
		sig.MatchRatio = matchRatio
	})
}

// updateSignal reads the current row, applies mutate and re-inserts with a
// fresh version. Missing ids are a no-op so retries stay idempotent.
func (s *CHSignalStore) updateSignal(ctx context.Context, id string, mutate func(*models.Signal)) error {
	const q = `
        SELECT id, symbol, direction, entry_price, status, match_ratio, created_at, updated_at
        FROM tradepulse.signals FINAL
        WHERE id = ?
        LIMIT 1`
	var (
		sig models.Signal
		dir string
		st  string
	)
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&sig.ID, &sig.Symbol, &dir, &sig.EntryPrice, &st, &sig.MatchRatio, &sig.CreatedAt, &sig.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load signal %s: %w", id, err)
	}
	sig.Direction = models.Direction(dir)
	sig.Status = models.SignalStatus(st)

	mutate(&sig)
	return s.SaveSignal(ctx, &sig)
}

func (s *CHSignalStore) SaveDecision(ctx context.Context, d *models.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	const q = `INSERT INTO tradepulse.decisions
        (ts, symbol, context, direction, decision, reason, tech_score, match_ratio, grade, confidence, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		ts,
		d.Symbol,
		string(d.Context),
		string(d.Direction),
		string(d.Kind),
		d.Reason,
		d.Scores.TechnicalScore,
		d.Scores.MatchRatio,
		string(d.Scores.Grade),
		d.Scores.Confidence,
		string(payload),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_decision error",
				applogger.String("symbol", d.Symbol),
				applogger.String("decision", string(d.Kind)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save decision: %w", err)
	}
	return nil
}

func (s *CHSignalStore) GetDecisions(ctx context.Context, symbol string, limit int) ([]*models.Decision, error) {
	const q = `
        SELECT payload
        FROM tradepulse.decisions
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("get decisions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Decision, 0, limit)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		var d models.Decision
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			if s.l != nil {
				s.l.Warn("clickhouse decision payload corrupt",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			continue
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSignalStore) Close() error {
	return nil // pool owned by pkg client
}
