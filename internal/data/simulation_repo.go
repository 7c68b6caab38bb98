// Package data implements the Postgres and Redis adapters behind the core ports.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/data/pgxutil"
	"github.com/target/hydrosim/internal/domain/model"
)

// RepoConfig holds configuration options for the simulation repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// SimulationRepo provides Postgres operations for simulations, their results and
// scenarios, and saved model configurations.
type SimulationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

var _ core.Store = (*SimulationRepo)(nil)

// NewSimulationRepo creates a new SimulationRepo with the given database connection and configuration.
func NewSimulationRepo(db *sql.DB, cfg RepoConfig) *SimulationRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "simulation_repo"),
	}
}

const simulationColumns = `
  id,
  owner_id,
  name,
  description,
  status,
  model_type,
  time_step,
  start_date,
  end_date,
  configuration,
  progress,
  attempt,
  error_message,
  created_at,
  updated_at,
  started_at,
  completed_at
`

// simulationRow mirrors the simulations table for pgx.RowToAddrOfStructByName.
type simulationRow struct {
	ID            string     `db:"id"`
	OwnerID       string     `db:"owner_id"`
	Name          string     `db:"name"`
	Description   *string    `db:"description"`
	Status        string     `db:"status"`
	ModelType     string     `db:"model_type"`
	TimeStep      string     `db:"time_step"`
	StartDate     time.Time  `db:"start_date"`
	EndDate       time.Time  `db:"end_date"`
	Configuration []byte     `db:"configuration"`
	Progress      float64    `db:"progress"`
	Attempt       int        `db:"attempt"`
	ErrorMessage  *string    `db:"error_message"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	StartedAt     *time.Time `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

func (r *simulationRow) toModel() (*model.Simulation, error) {
	sim := &model.Simulation{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Name:         r.Name,
		Description:  r.Description,
		Status:       model.SimulationStatus(r.Status),
		ModelType:    model.ModelType(r.ModelType),
		TimeStep:     model.TimeStep(r.TimeStep),
		StartDate:    model.NewDate(r.StartDate),
		EndDate:      model.NewDate(r.EndDate),
		Progress:     r.Progress,
		Attempt:      r.Attempt,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
	if err := sim.Configuration.Scan(r.Configuration); err != nil {
		return nil, fmt.Errorf("decode configuration for %s: %w", r.ID, err)
	}
	return sim, nil
}

// querier is satisfied by both *pgx.Conn and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func collectSimulation(ctx context.Context, q querier, query string, args ...any) (*model.Simulation, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[simulationRow])
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func collectSimulations(ctx context.Context, q querier, query string, args ...any) ([]*model.Simulation, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[simulationRow])
	if err != nil {
		return nil, err
	}
	out := make([]*model.Simulation, 0, len(collected))
	for _, row := range collected {
		sim, convErr := row.toModel()
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, sim)
	}
	return out, nil
}

func configJSON(cfg model.SimulationConfig) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode configuration: %w", err)
	}
	return string(b), nil
}

// Create inserts a new PENDING simulation. ID and timestamps are assigned when empty.
func (r *SimulationRepo) Create(ctx context.Context, sim *model.Simulation) error {
	if sim == nil {
		return errors.New("simulation is required")
	}
	now := r.timeProvider.Now().UTC()
	if sim.ID == "" {
		sim.ID = uuid.NewString()
	}
	sim.Status = model.SimulationStatusPending
	sim.CreatedAt, sim.UpdatedAt = now, now

	cfg, err := configJSON(sim.Configuration)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO simulations (
			id, owner_id, name, description, status, model_type, time_step,
			start_date, end_date, configuration, progress, attempt, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, 0, 0, $11, $11)
	`
	_, err = r.DB.ExecContext(ctx, query,
		sim.ID, sim.OwnerID, sim.Name, sim.Description, string(sim.Status),
		string(sim.ModelType), string(sim.TimeStep), sim.StartDate.Time, sim.EndDate.Time, cfg, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

// GetByID returns the simulation or model.ErrSimulationNotFound.
func (r *SimulationRepo) GetByID(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	var sim *model.Simulation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qerr error
		sim, qerr = collectSimulation(ctx, conn,
			`SELECT `+simulationColumns+` FROM simulations WHERE id = $1`, id)
		return qerr
	})
	if errors.Is(err, pgx.ErrNoRows) {
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
		args = append(args, opts.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns simulations newest first.
func (r *SimulationRepo) List(ctx context.Context, opts model.SimulationListOptions) ([]*model.Simulation, error) {
	where, args := listWhere(opts)
	query := `SELECT ` + simulationColumns + ` FROM simulations` + where + ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var sims []*model.Simulation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qerr error
		sims, qerr = collectSimulations(ctx, conn, query, args...)
		return qerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	return sims, nil
}

// Count returns the number of simulations matching opts, ignoring pagination.
func (r *SimulationRepo) Count(ctx context.Context, opts model.SimulationListOptions) (int, error) {
	where, args := listWhere(opts)
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulations`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count simulations: %w", err)
	}
	return n, nil
}

// CountByStatus returns per-status counts for an owner.
func (r *SimulationRepo) CountByStatus(ctx context.Context, ownerID string) (map[model.SimulationStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM simulations WHERE owner_id = $1 GROUP BY status`, ownerID)
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
func (r *SimulationRepo) resolveMiss(ctx context.Context, id string, stateErr error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}

// Update changes name, description or configuration of a non-running simulation.
func (r *SimulationRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateSimulationRequest,
) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	var cfg *string
	if req.Configuration != nil {
		s, err := configJSON(*req.Configuration)
		if err != nil {
			return nil, err
		}
		cfg = &s
	}

	query := `
		UPDATE simulations
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    configuration = COALESCE($4::jsonb, configuration),
		    updated_at = $5
		WHERE id = $1 AND status <> 'running'
		RETURNING ` + simulationColumns

	var sim *model.Simulation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qerr error
		sim, qerr = collectSimulation(ctx, conn, query, id, req.Name, req.Description, cfg, r.timeProvider.Now().UTC())
		return qerr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update simulation: %w", err)
	}
	return sim, nil
}

// Delete removes a non-running simulation; results cascade.
func (r *SimulationRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrSimulationNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM simulations WHERE id = $1 AND status <> 'running'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return r.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	return nil
}

// BeginRun starts a new attempt unless one is already running.
func (r *SimulationRepo) BeginRun(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	now := r.timeProvider.Now().UTC()
	var sim *model.Simulation
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var qerr error
			sim, qerr = collectSimulation(ctx, tx, `
				UPDATE simulations
				SET status = 'running',
				    attempt = attempt + 1,
				    progress = 0,
				    error_message = NULL,
				    completed_at = NULL,
				    started_at = $2,
				    updated_at = $2
				WHERE id = $1 AND status <> 'running'
				RETURNING `+simulationColumns, id, now)
			if qerr != nil {
				return qerr
			}
			if _, qerr = tx.Exec(ctx, `DELETE FROM simulation_results WHERE simulation_id = $1`, id); qerr != nil {
				return fmt.Errorf("clear previous results: %w", qerr)
			}
			return nil
		},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.resolveMiss(ctx, id, model.ErrSimulationRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}
	return sim, nil
}

// Cancel moves a running simulation to CANCELLED.
func (r *SimulationRepo) Cancel(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrSimulationNotFound
	}
	var sim *model.Simulation
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qerr error
		sim, qerr = collectSimulation(ctx, conn, `
			UPDATE simulations
			SET status = 'cancelled', updated_at = $2
			WHERE id = $1 AND status = 'running'
			RETURNING `+simulationColumns, id, r.timeProvider.Now().UTC())
		return qerr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.resolveMiss(ctx, id, model.ErrSimulationNotRunning)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel simulation: %w", err)
	}
	return sim, nil
}

// UpdateProgress raises progress for a running attempt. Lower values are ignored.
func (r *SimulationRepo) UpdateProgress(ctx context.Context, run model.Run, pct float64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE simulations
		SET progress = GREATEST(progress, $3), updated_at = $4
		WHERE id = $1 AND attempt = $2 AND status = 'running'
	`, run.SimulationID, run.Attempt, pct, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Complete persists results and marks the attempt COMPLETED atomically.
// Returns false without writing anything if the attempt is no longer running.
func (r *SimulationRepo) Complete(ctx context.Context, run model.Run, results []*model.ResultSet) (bool, error) {
	now := r.timeProvider.Now().UTC()
	applied := false
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			applied = false
			var status string
			var attempt int
			err := tx.QueryRow(ctx,
				`SELECT status, attempt FROM simulations WHERE id = $1 FOR UPDATE`, run.SimulationID,
			).Scan(&status, &attempt)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("lock simulation: %w", err)
			}
			if status != string(model.SimulationStatusRunning) || attempt != run.Attempt {
				return nil
			}

			if err := upsertResults(ctx, tx, results, now); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `
				UPDATE simulations
				SET status = 'completed',
				    progress = 100,
				    error_message = NULL,
				    completed_at = $2,
				    updated_at = $2
				WHERE id = $1
			`, run.SimulationID, now); err != nil {
				return fmt.Errorf("mark completed: %w", err)
			}
			applied = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete simulation: %w", err)
	}
	return applied, nil
}

func upsertResults(ctx context.Context, tx pgx.Tx, results []*model.ResultSet, now time.Time) error {
	batch := &pgx.Batch{}
	for _, rs := range results {
		if rs.ID == "" {
			rs.ID = uuid.NewString()
		}
		if rs.CreatedAt.IsZero() {
			rs.CreatedAt = now
		}
		meta, err := json.Marshal(rs.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO simulation_results (id, simulation_id, result_type, data, metadata, created_at)
			VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
			ON CONFLICT (simulation_id, result_type)
			DO UPDATE SET data = EXCLUDED.data, metadata = EXCLUDED.metadata, created_at = EXCLUDED.created_at
		`, rs.ID, rs.SimulationID, string(rs.ResultType), string(rs.Data), string(meta), rs.CreatedAt)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return nil
}

// Fail marks a running attempt FAILED.
func (r *SimulationRepo) Fail(ctx context.Context, run model.Run, msg string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE simulations
		SET status = 'failed',
		    error_message = $3,
		    completed_at = NULL,
		    updated_at = $4
		WHERE id = $1 AND attempt = $2 AND status = 'running'
	`, run.SimulationID, run.Attempt, msg, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to fail simulation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
