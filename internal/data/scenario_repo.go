package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/hydrosim/internal/data/pgxutil"
	"github.com/target/hydrosim/internal/domain/model"
)

const scenarioColumns = `id, simulation_id, name, description, parameters, is_baseline, created_at, updated_at`

type scenarioRow struct {
	ID           string     `db:"id"`
	SimulationID string     `db:"simulation_id"`
	Name         string     `db:"name"`
	Description  *string    `db:"description"`
	Parameters   []byte     `db:"parameters"`
	IsBaseline   bool       `db:"is_baseline"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}

func (r *scenarioRow) toModel() (*model.Scenario, error) {
	sc := &model.Scenario{
		ID:           r.ID,
		SimulationID: r.SimulationID,
		Name:         r.Name,
		Description:  r.Description,
		IsBaseline:   r.IsBaseline,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if err := sc.Parameters.Scan(r.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters for scenario %s: %w", r.ID, err)
	}
	return sc, nil
}

// CreateScenario inserts a scenario. ID and creation time are assigned when empty.
func (r *SimulationRepo) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if sc == nil {
		return errors.New("scenario is required")
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = r.timeProvider.Now().UTC()
	sc.UpdatedAt = nil

	params, err := configJSON(sc.Parameters)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO scenarios (id, simulation_id, name, description, parameters, is_baseline, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		sc.ID, sc.SimulationID, sc.Name, sc.Description, params, sc.IsBaseline, sc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}
	return nil
}

// ListScenarios returns the scenarios of a simulation, oldest first.
func (r *SimulationRepo) ListScenarios(ctx context.Context, simulationID string) ([]*model.Scenario, error) {
	if _, err := uuid.Parse(simulationID); err != nil {
		return nil, nil
	}
	var out []*model.Scenario
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+scenarioColumns+` FROM scenarios
			WHERE simulation_id = $1 ORDER BY created_at, id`, simulationID)
		if qerr != nil {
			return qerr
		}
		collected, qerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[scenarioRow])
		if qerr != nil {
			return qerr
		}
		out = make([]*model.Scenario, 0, len(collected))
		for _, row := range collected {
			sc, convErr := row.toModel()
			if convErr != nil {
				return convErr
			}
			out = append(out, sc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return out, nil
}

// DeleteScenario removes one scenario of a simulation.
func (r *SimulationRepo) DeleteScenario(ctx context.Context, simulationID, scenarioID string) error {
	if _, err := uuid.Parse(scenarioID); err != nil {
		return model.ErrScenarioNotFound
	}
	if _, err := uuid.Parse(simulationID); err != nil {
		return model.ErrScenarioNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM scenarios WHERE id = $1 AND simulation_id = $2`, scenarioID, simulationID)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrScenarioNotFound
	}
	return nil
}
