// Package store persists signals to PostgreSQL, following the same
// pool lifecycle and upsert-by-id style as the engine's other
// collaborators.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/signalengine/pkg/models"
)

// PostgresStore wraps a pgx connection pool. The zero value is not
// usable; build with Connect.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies connectivity.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("[Store] connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("[Store] signals schema initialized")
	return nil
}

// Insert writes a new signal row and returns its store-assigned id.
// Satisfies pipeline.Store.
func (s *PostgresStore) Insert(ctx context.Context, p models.ForwardPayload) (string, error) {
	if s == nil || s.pool == nil {
		return "", errNotConnected
	}
	sql := `
		INSERT INTO signals
			(pair, signal_type, level, pattern_sequence, box_details,
			 entry, stop_losses, targets, risk_reward, target_hits, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active')
		RETURNING id;
	`
	boxDetails, err := json.Marshal(p.BoxDetails)
	if err != nil {
		return "", fmt.Errorf("marshal box_details: %w", err)
	}
	targetHits, err := json.Marshal(make([]*models.Hit, len(p.Targets)))
	if err != nil {
		return "", fmt.Errorf("marshal target_hits: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx, sql,
		p.Pair, p.SignalType, p.Level, p.PatternSequence, boxDetails,
		p.Entry, p.StopLosses, p.Targets, p.RiskReward, targetHits,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateTargetHit records the hit at targets[idx].
func (s *PostgresStore) UpdateTargetHit(ctx context.Context, id string, idx int, hit models.Hit) error {
	if s == nil || s.pool == nil {
		return errNotConnected
	}
	sql := `
		UPDATE signals
		SET target_hits = jsonb_set(target_hits, $2, $3::jsonb, true)
		WHERE id = $1;
	`
	path := fmt.Sprintf("{%d}", idx)
	payload := fmt.Sprintf(`{"timestamp":%q,"price":%v}`, hit.Timestamp.Format(rfc3339Milli), hit.Price)
	_, err := s.pool.Exec(ctx, sql, id, path, payload)
	return err
}

// UpdateStopLossHit records the stop-loss hit.
func (s *PostgresStore) UpdateStopLossHit(ctx context.Context, id string, hit models.Hit) error {
	if s == nil || s.pool == nil {
		return errNotConnected
	}
	sql := `UPDATE signals SET stop_loss_hit = $2 WHERE id = $1;`
	payload := fmt.Sprintf(`{"timestamp":%q,"price":%v}`, hit.Timestamp.Format(rfc3339Milli), hit.Price)
	_, err := s.pool.Exec(ctx, sql, id, payload)
	return err
}

// UpdateStatus records a settlement transition.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.Status, settledPrice float64) error {
	if s == nil || s.pool == nil {
		return errNotConnected
	}
	sql := `UPDATE signals SET status = $2, settled_price = $3 WHERE id = $1;`
	_, err := s.pool.Exec(ctx, sql, id, status, settledPrice)
	return err
}

var errNotConnected = fmt.Errorf("store: not connected")

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// Pool exposes the underlying pool for diagnostics (mirrors the
// teacher's GetPool). Nothing in the engine calls it today.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}
