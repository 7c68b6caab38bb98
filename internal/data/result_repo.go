package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/hydrosim/internal/data/pgxutil"
	"github.com/target/hydrosim/internal/domain/model"
)

type resultRow struct {
	ID           string    `db:"id"`
	SimulationID string    `db:"simulation_id"`
	ResultType   string    `db:"result_type"`
	Data         []byte    `db:"data"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
}

// resultOrder sorts result sets daily, monthly, annual, indicators.
const resultOrder = `
  CASE result_type
    WHEN 'daily' THEN 1
    WHEN 'monthly' THEN 2
    WHEN 'annual' THEN 3
    ELSE 4
  END`

// ListBySimulation returns stored result sets, optionally restricted to types.
func (r *SimulationRepo) ListBySimulation(
	ctx context.Context,
	simulationID string,
	types ...model.ResultType,
) ([]*model.ResultSet, error) {
	if _, err := uuid.Parse(simulationID); err != nil {
		return nil, nil
	}
	query := `SELECT id, simulation_id, result_type, data, metadata, created_at
		FROM simulation_results WHERE simulation_id = $1`
	args := []any{simulationID}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += ` AND result_type = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY ` + resultOrder

	var out []*model.ResultSet
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, query, args...)
		if qerr != nil {
			return qerr
		}
		collected, qerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[resultRow])
		if qerr != nil {
			return qerr
		}
		out = make([]*model.ResultSet, 0, len(collected))
		for _, row := range collected {
			rs := &model.ResultSet{
				ID:           row.ID,
				SimulationID: row.SimulationID,
				ResultType:   model.ResultType(row.ResultType),
				Data:         row.Data,
				CreatedAt:    row.CreatedAt,
			}
			if err := rs.Metadata.Scan(row.Metadata); err != nil {
				return fmt.Errorf("decode metadata: %w", err)
			}
			out = append(out, rs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return out, nil
}
