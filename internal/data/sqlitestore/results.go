package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/target/hydrosim/internal/domain/model"
)

func upsertResults(ctx context.Context, tx *sql.Tx, results []*model.ResultSet, now time.Time) error {
	if len(results) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO simulation_results (id, simulation_id, result_type, data, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (simulation_id, result_type)
		DO UPDATE SET data = excluded.data, metadata = excluded.metadata, created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rs := range results {
		if rs.ID == "" {
			rs.ID = uuid.NewString()
		}
		if rs.CreatedAt.IsZero() {
			rs.CreatedAt = now
		}
		meta, err := rs.Metadata.Value()
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			rs.ID, rs.SimulationID, string(rs.ResultType), string(rs.Data), meta, rs.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("store %s results: %w", rs.ResultType, err)
		}
	}
	return nil
}

// ListBySimulation returns stored result sets, optionally restricted to types.
func (s *Store) ListBySimulation(
	ctx context.Context,
	simulationID string,
	types ...model.ResultType,
) ([]*model.ResultSet, error) {
	if _, err := uuid.Parse(simulationID); err != nil {
		return nil, nil
	}
	query := `SELECT id, simulation_id, result_type, data, metadata, created_at
		FROM simulation_results WHERE simulation_id = ?`
	args := []any{simulationID}
	if len(types) > 0 {
		marks := make([]string, len(types))
		for i, t := range types {
			marks[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND result_type IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY CASE result_type
		WHEN 'daily' THEN 1 WHEN 'monthly' THEN 2 WHEN 'annual' THEN 3 ELSE 4 END`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ResultSet
	for rows.Next() {
		var (
			rs          model.ResultSet
			resultType  string
			payload     string
			meta        string
			createdAtMs int64
		)
		if err := rows.Scan(&rs.ID, &rs.SimulationID, &resultType, &payload, &meta, &createdAtMs); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := rs.Metadata.Scan(meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		rs.ResultType = model.ResultType(resultType)
		rs.Data = []byte(payload)
		rs.CreatedAt = fromMillis(createdAtMs)
		out = append(out, &rs)
	}
	return out, rows.Err()
}
