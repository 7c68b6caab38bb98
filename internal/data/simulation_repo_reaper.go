package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations.
// Two-arg pg_try_advisory_xact_lock(major, minor); major 2000 is reserved for the hydrosim reaper.
const (
	advisoryLockReaperMajor     = 2000
	advisoryLockReaperFailStale = 1
	advisoryLockReaperDelete    = 2
)

// StaleRunMessage is recorded on simulations the reaper fails.
const StaleRunMessage = "simulation exceeded maximum run time and was marked failed"

func tryAdvisoryLock(ctx context.Context, tx *sql.Tx, minor int) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, minor).
		Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}

// FailStaleRunning marks running simulations started before maxAge ago as failed.
// Processes up to batchSize rows per call. Concurrent reapers skip via advisory lock.
func (r *SimulationRepo) FailStaleRunning(ctx context.Context, maxAge time.Duration, batchSize int) ([]string, error) {
	var ids []string
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := tryAdvisoryLock(ctx, tx, advisoryLockReaperFailStale)
			if err != nil || !locked {
				return err
			}

			now := r.timeProvider.Now().UTC()
			rows, err := tx.QueryContext(ctx, `
				UPDATE simulations
				SET status = 'failed',
				    error_message = $1,
				    completed_at = NULL,
				    updated_at = $2
				WHERE id IN (
					SELECT id FROM simulations
					WHERE status = 'running'
					  AND started_at < $3
					ORDER BY started_at
					LIMIT $4
					FOR UPDATE SKIP LOCKED
				)
				RETURNING id
			`, StaleRunMessage, now, now.Add(-maxAge), batchSize)
			if err != nil {
				return fmt.Errorf("fail stale running simulations: %w", err)
			}
			defer func() { _ = rows.Close() }()
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return fmt.Errorf("scan id: %w", err)
				}
				ids = append(ids, id)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteOldSimulations deletes simulations in params.Status not updated within params.MaxAge.
func (r *SimulationRepo) DeleteOldSimulations(ctx context.Context, params core.DeleteOldSimulationsParams) (int64, error) {
	var deleted int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			locked, err := tryAdvisoryLock(ctx, tx, advisoryLockReaperDelete)
			if err != nil || !locked {
				return err
			}

			cutoff := r.timeProvider.Now().UTC().Add(-params.MaxAge)
			res, err := tx.ExecContext(ctx, `
				DELETE FROM simulations
				WHERE id IN (
					SELECT id FROM simulations
					WHERE status = $1
					  AND updated_at < $2
					ORDER BY updated_at
					LIMIT $3
				)
			`, string(params.Status), cutoff, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete old simulations: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			deleted = n
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
