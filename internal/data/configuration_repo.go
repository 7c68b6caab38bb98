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

const configurationColumns = `id, owner_id, name, description, model_type, parameters,
  is_template, is_public, created_at`

type configurationRow struct {
	ID          string    `db:"id"`
	OwnerID     string    `db:"owner_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	ModelType   string    `db:"model_type"`
	Parameters  []byte    `db:"parameters"`
	IsTemplate  bool      `db:"is_template"`
	IsPublic    bool      `db:"is_public"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *configurationRow) toModel() (*model.ModelConfiguration, error) {
	cfg := &model.ModelConfiguration{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Description: r.Description,
		ModelType:   model.ModelType(r.ModelType),
		IsTemplate:  r.IsTemplate,
		IsPublic:    r.IsPublic,
		CreatedAt:   r.CreatedAt,
	}
	if err := cfg.Parameters.Scan(r.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters for configuration %s: %w", r.ID, err)
	}
	return cfg, nil
}

// CreateConfiguration saves a model configuration. ID and creation time are assigned when empty.
func (r *SimulationRepo) CreateConfiguration(ctx context.Context, cfg *model.ModelConfiguration) error {
	if cfg == nil {
		return errors.New("configuration is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.CreatedAt = r.timeProvider.Now().UTC()

	params, err := configJSON(cfg.Parameters)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO model_configurations (
			id, owner_id, name, description, model_type, parameters, is_template, is_public, created_at
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)`,
		cfg.ID, cfg.OwnerID, cfg.Name, cfg.Description, string(cfg.ModelType), params,
		cfg.IsTemplate, cfg.IsPublic, cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	return nil
}

// ListConfigurations returns the owner's configurations and all public ones, oldest first.
func (r *SimulationRepo) ListConfigurations(ctx context.Context, ownerID string) ([]*model.ModelConfiguration, error) {
	var out []*model.ModelConfiguration
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qerr := conn.Query(ctx, `SELECT `+configurationColumns+` FROM model_configurations
			WHERE owner_id = $1 OR is_public ORDER BY created_at, id`, ownerID)
		if qerr != nil {
			return qerr
		}
		collected, qerr := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[configurationRow])
		if qerr != nil {
			return qerr
		}
		out = make([]*model.ModelConfiguration, 0, len(collected))
		for _, row := range collected {
			cfg, convErr := row.toModel()
			if convErr != nil {
				return convErr
			}
			out = append(out, cfg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	return out, nil
}

// DeleteConfiguration removes a configuration created by ownerID.
func (r *SimulationRepo) DeleteConfiguration(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrConfigurationNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM model_configurations WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrConfigurationNotFound
	}
	return nil
}
