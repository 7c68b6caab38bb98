package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/target/hydrosim/internal/domain/model"
)

const configurationColumns = `id, owner_id, name, description, model_type, parameters,
	is_template, is_public, created_at`

func scanConfiguration(row rowScanner) (*model.ModelConfiguration, error) {
	var (
		cfg              model.ModelConfiguration
		description      sql.NullString
		modelType, param string
		createdMs        int64
	)
	if err := row.Scan(
		&cfg.ID, &cfg.OwnerID, &cfg.Name, &description, &modelType, &param,
		&cfg.IsTemplate, &cfg.IsPublic, &createdMs,
	); err != nil {
		return nil, err
	}
	if err := cfg.Parameters.Scan(param); err != nil {
		return nil, fmt.Errorf("decode parameters for configuration %s: %w", cfg.ID, err)
	}
	cfg.ModelType = model.ModelType(modelType)
	cfg.Description = fromNullString(description)
	cfg.CreatedAt = fromMillis(createdMs)
	return &cfg, nil
}

// CreateConfiguration saves a model configuration. ID and creation time are assigned when empty.
func (s *Store) CreateConfiguration(ctx context.Context, cfg *model.ModelConfiguration) error {
	if cfg == nil {
		return errors.New("configuration is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.CreatedAt = s.timeProvider.Now().UTC()

	params, err := cfg.Parameters.Value()
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_configurations (
			id, owner_id, name, description, model_type, parameters, is_template, is_public, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.OwnerID, cfg.Name, cfg.Description, string(cfg.ModelType), params,
		cfg.IsTemplate, cfg.IsPublic, cfg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	return nil
}

// ListConfigurations returns the owner's configurations and all public ones, oldest first.
func (s *Store) ListConfigurations(ctx context.Context, ownerID string) ([]*model.ModelConfiguration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+configurationColumns+` FROM model_configurations
		WHERE owner_id = ? OR is_public = 1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ModelConfiguration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	return out, nil
}

// DeleteConfiguration removes a configuration created by ownerID.
func (s *Store) DeleteConfiguration(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrConfigurationNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM model_configurations WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete configuration: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrConfigurationNotFound
	}
	return nil
}
