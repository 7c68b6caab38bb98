package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data"
)

// FailStaleRunning marks running simulations started before maxAge ago as failed.
func (s *Store) FailStaleRunning(ctx context.Context, maxAge time.Duration, batchSize int) ([]string, error) {
	now := s.timeProvider.Now().UTC()
	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE simulations
			SET status = 'failed',
			    error_message = ?,
			    completed_at = NULL,
			    updated_at = ?
			WHERE id IN (
				SELECT id FROM simulations
				WHERE status = 'running' AND started_at < ?
				ORDER BY started_at
				LIMIT ?
			)
			RETURNING id`,
			data.StaleRunMessage, now.UnixMilli(), now.Add(-maxAge).UnixMilli(), batchSize)
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
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteOldSimulations deletes simulations in params.Status not updated within params.MaxAge.
func (s *Store) DeleteOldSimulations(ctx context.Context, params core.DeleteOldSimulationsParams) (int64, error) {
	cutoff := s.timeProvider.Now().UTC().Add(-params.MaxAge)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM simulations
		WHERE id IN (
			SELECT id FROM simulations
			WHERE status = ? AND updated_at < ?
			ORDER BY updated_at
			LIMIT ?
		)`, string(params.Status), cutoff.UnixMilli(), params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old simulations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
