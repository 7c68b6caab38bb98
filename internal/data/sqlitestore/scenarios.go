package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/target/hydrosim/internal/domain/model"
)

const scenarioColumns = `id, simulation_id, name, description, parameters, is_baseline, created_at, updated_at`

func scanScenario(row rowScanner) (*model.Scenario, error) {
	var (
		sc          model.Scenario
		description sql.NullString
		params      string
		createdMs   int64
		updatedMs   sql.NullInt64
	)
	if err := row.Scan(
		&sc.ID, &sc.SimulationID, &sc.Name, &description, &params, &sc.IsBaseline, &createdMs, &updatedMs,
	); err != nil {
		return nil, err
	}
	if err := sc.Parameters.Scan(params); err != nil {
		return nil, fmt.Errorf("decode parameters for scenario %s: %w", sc.ID, err)
	}
	sc.Description = fromNullString(description)
	sc.CreatedAt = fromMillis(createdMs)
	sc.UpdatedAt = fromNullMillis(updatedMs)
	return &sc, nil
}

// CreateScenario inserts a scenario. ID and creation time are assigned when empty.
func (s *Store) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if sc == nil {
		return errors.New("scenario is required")
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = s.timeProvider.Now().UTC()
	sc.UpdatedAt = nil

	params, err := sc.Parameters.Value()
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, simulation_id, name, description, parameters, is_baseline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.SimulationID, sc.Name, sc.Description, params, sc.IsBaseline, sc.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}
	return nil
}

// ListScenarios returns the scenarios of a simulation, oldest first.
func (s *Store) ListScenarios(ctx context.Context, simulationID string) ([]*model.Scenario, error) {
	if _, err := uuid.Parse(simulationID); err != nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+scenarioColumns+` FROM scenarios
		WHERE simulation_id = ? ORDER BY created_at, id`, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return out, nil
}

// DeleteScenario removes one scenario of a simulation.
func (s *Store) DeleteScenario(ctx context.Context, simulationID, scenarioID string) error {
	if _, err := uuid.Parse(scenarioID); err != nil {
		return model.ErrScenarioNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scenarios WHERE id = ? AND simulation_id = ?`, scenarioID, simulationID)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrScenarioNotFound
	}
	return nil
}
