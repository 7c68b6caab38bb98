package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/target/hydrosim/internal/domain/model"
)

const simulationColumns = `id, owner_id, name, description, status, model_type, time_step,
	start_date, end_date, configuration, progress, attempt, error_message,
	created_at, updated_at, started_at, completed_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (*model.Simulation, error) {
	var (
		sim                       model.Simulation
		status, modelType, step   string
		startDate, endDate, cfg   string
		description, errorMessage sql.NullString
		createdMs, updatedMs      int64
		startedMs, completedMs    sql.NullInt64
	)
	if err := row.Scan(
		&sim.ID, &sim.OwnerID, &sim.Name, &description, &status, &modelType, &step,
		&startDate, &endDate, &cfg, &sim.Progress, &sim.Attempt, &errorMessage,
		&createdMs, &updatedMs, &startedMs, &completedMs,
	); err != nil {
		return nil, err
	}
	var err error
	if sim.StartDate, err = model.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("decode start_date for %s: %w", sim.ID, err)
	}
	if sim.EndDate, err = model.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("decode end_date for %s: %w", sim.ID, err)
	}
	if err = sim.Configuration.Scan(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration for %s: %w", sim.ID, err)
	}
	sim.Status = model.SimulationStatus(status)
	sim.ModelType = model.ModelType(modelType)
	sim.TimeStep = model.TimeStep(step)
	sim.Description = fromNullString(description)
	sim.ErrorMessage = fromNullString(errorMessage)
	sim.CreatedAt = fromMillis(createdMs)
	sim.UpdatedAt = fromMillis(updatedMs)
	sim.StartedAt = fromNullMillis(startedMs)
	sim.CompletedAt = fromNullMillis(completedMs)
	return &sim, nil
}

// Create inserts a new PENDING simulation. ID and timestamps are assigned when empty.
func (s *Store) Create(ctx context.Context, sim *model.Simulation) error {
	if sim == nil {
		return errors.New("simulation is required")
	}
	now := s.timeProvider.Now().UTC()
	if sim.ID == "" {
		sim.ID = uuid.NewString()
	}
	sim.Status = model.SimulationStatusPending
	sim.CreatedAt, sim.UpdatedAt = now, now

	cfg, err := sim.Configuration.Value()
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO simulations (
			id, owner_id, name, description, status, model_type, time_step,
			start_date, end_date, configuration, progress, attempt, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		sim.ID, sim.OwnerID, sim.Name, sim.Description, string(sim.Status),
		string(sim.ModelType), string(sim.TimeStep), sim.StartDate.String(), sim.EndDate.String(),
		cfg, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

// GetByID returns the simulation or model.ErrSimulationNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	sim, err := scanSimulation(s.db.QueryRowContext(ctx,
		`SELECT `+simulationColumns+` FROM simulations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSimulationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	return sim, nil
}

func listWhere(opts model.SimulationListOptions) (string, []any) {
	var conds []string
	var args []any
	if opts.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*opts.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns simulations newest first.
func (s *Store) List(ctx context.Context, opts model.SimulationListOptions) ([]*model.Simulation, error) {
	where, args := listWhere(opts)
	query := `SELECT ` + simulationColumns + ` FROM simulations` + where + ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Simulation
	for rows.Next() {
		sim, scanErr := scanSimulation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", scanErr)
		}
		out = append(out, sim)
	}
	return out, rows.Err()
}

// Count returns the number of simulations matching opts, ignoring pagination.
func (s *Store) Count(ctx context.Context, opts model.SimulationListOptions) (int, error) {
	where, args := listWhere(opts)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulations`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count simulations: %w", err)
	}
	return n, nil
}

// CountByStatus returns per-status counts for an owner.
func (s *Store) CountByStatus(ctx context.Context, ownerID string) (map[model.SimulationStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM simulations WHERE owner_id = ? GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count simulations by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[model.SimulationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[model.SimulationStatus(status)] = n
	}
	return out, rows.Err()
}

// resolveMiss explains why a conditional write matched no row.
func (s *Store) resolveMiss(ctx context.Context, id string, stateErr error) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}

// Update changes name, description or configuration of a non-running simulation.
func (s *Store) Update(ctx context.Context, id string, req model.UpdateSimulationRequest) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	var cfg any
	if req.Configuration != nil {
		v, err := req.Configuration.Value()
		if err != nil {
			return nil, fmt.Errorf("encode configuration: %w", err)
		}
		cfg = v
	}

	sim, err := scanSimulation(s.db.QueryRowContext(ctx, `
		UPDATE simulations
		SET name = COALESCE(?, name),
		    description = COALESCE(?, description),
		    configuration = COALESCE(?, configuration),
		    updated_at = ?
		WHERE id = ? AND status <> 'running'
		RETURNING `+simulationColumns,
		req.Name, req.Description, cfg, s.nowMillis(), id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update simulation: %w", err)
	}
	return sim, nil
}

// Delete removes a non-running simulation; results cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrSimulationNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ? AND status <> 'running'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return s.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	return nil
}

// BeginRun starts a new attempt unless one is already running.
func (s *Store) BeginRun(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	now := s.nowMillis()
	var sim *model.Simulation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var qerr error
		sim, qerr = scanSimulation(tx.QueryRowContext(ctx, `
			UPDATE simulations
			SET status = 'running',
			    attempt = attempt + 1,
			    progress = 0,
			    error_message = NULL,
			    completed_at = NULL,
			    started_at = ?,
			    updated_at = ?
			WHERE id = ? AND status <> 'running'
			RETURNING `+simulationColumns, now, now, id))
		if qerr != nil {
			return qerr
		}
		if _, qerr = tx.ExecContext(ctx, `DELETE FROM simulation_results WHERE simulation_id = ?`, id); qerr != nil {
			return fmt.Errorf("clear previous results: %w", qerr)
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}
	return sim, nil
}

// Cancel moves a running simulation to CANCELLED.
func (s *Store) Cancel(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	sim, err := scanSimulation(s.db.QueryRowContext(ctx, `
		UPDATE simulations
		SET status = 'cancelled', updated_at = ?
		WHERE id = ? AND status = 'running'
		RETURNING `+simulationColumns, s.nowMillis(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.resolveMiss(ctx, id, model.ErrSimulationNotRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel simulation: %w", err)
	}
	return sim, nil
}

// UpdateProgress raises progress for a running attempt. Lower values are ignored.
func (s *Store) UpdateProgress(ctx context.Context, run model.Run, pct float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE simulations
		SET progress = MAX(progress, ?), updated_at = ?
		WHERE id = ? AND attempt = ? AND status = 'running'`,
		pct, s.nowMillis(), run.SimulationID, run.Attempt)
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}
	return affected(res)
}

// Complete persists results and marks the attempt COMPLETED atomically.
// Returns false without writing anything if the attempt is no longer running.
func (s *Store) Complete(ctx context.Context, run model.Run, results []*model.ResultSet) (bool, error) {
	now := s.timeProvider.Now().UTC()
	applied := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		var attempt int
		err := tx.QueryRowContext(ctx,
			`SELECT status, attempt FROM simulations WHERE id = ?`, run.SimulationID,
		).Scan(&status, &attempt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read simulation: %w", err)
		}
		if status != string(model.SimulationStatusRunning) || attempt != run.Attempt {
			return nil
		}

		if err := upsertResults(ctx, tx, results, now); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE simulations
			SET status = 'completed',
			    progress = 100,
			    error_message = NULL,
			    completed_at = ?,
			    updated_at = ?
			WHERE id = ?`, now.UnixMilli(), now.UnixMilli(), run.SimulationID); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete simulation: %w", err)
	}
	return applied, nil
}

// Fail marks a running attempt FAILED.
func (s *Store) Fail(ctx context.Context, run model.Run, msg string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE simulations
		SET status = 'failed',
		    error_message = ?,
		    completed_at = NULL,
		    updated_at = ?
		WHERE id = ? AND attempt = ? AND status = 'running'`,
		msg, s.nowMillis(), run.SimulationID, run.Attempt)
	if err != nil {
		return false, fmt.Errorf("failed to fail simulation: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
