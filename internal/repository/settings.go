package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// SettingsRepository manages administration threshold settings. The table
// holds at most one row per scope: one global row and one row per group,
// enforced by unique indexes and upsert writes.
type SettingsRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *pgxpool.Pool, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

const settingsColumns = `id, scope, group_id, threshold_before, threshold_after, updated_by, created_at, updated_at`

func scanSettings(row pgx.Row) (*model.AdministrationSettings, error) {
	var s model.AdministrationSettings
	err := row.Scan(
		&s.ID,
		&s.Scope,
		&s.GroupID,
		&s.ThresholdBefore,
		&s.ThresholdAfter,
		&s.UpdatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindGlobal retrieves the global settings record
func (r *SettingsRepository) FindGlobal(ctx context.Context) (*model.AdministrationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM administration_settings WHERE scope = 'global'`

	s, err := scanSettings(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("global settings: %w", model.ErrNotFound)
		}
		r.logger.Error("failed to find global settings", zap.Error(err))
		return nil, fmt.Errorf("failed to find global settings: %w", err)
	}

	return s, nil
}

// FindByGroup retrieves the settings record scoped to a group
func (r *SettingsRepository) FindByGroup(ctx context.Context, groupID string) (*model.AdministrationSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM administration_settings WHERE scope = 'group' AND group_id = $1`

	s, err := scanSettings(r.db.QueryRow(ctx, query, groupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("settings for group %s: %w", groupID, model.ErrNotFound)
		}
		r.logger.Error("failed to find group settings", zap.Error(err), zap.String("group_id", groupID))
		return nil, fmt.Errorf("failed to find group settings: %w", err)
	}

	return s, nil
}

// Upsert creates or replaces the settings record for its scope
func (r *SettingsRepository) Upsert(ctx context.Context, s *model.AdministrationSettings) error {
	var query string
	var args []interface{}

	if s.Scope == model.ScopeGroup {
		query = `
			INSERT INTO administration_settings (
				id, scope, group_id, threshold_before, threshold_after, updated_by, created_at, updated_at
			) VALUES ($1, 'group', $2, $3, $4, $5, NOW(), NOW())
			ON CONFLICT (group_id) WHERE scope = 'group'
			DO UPDATE SET threshold_before = $3, threshold_after = $4, updated_by = $5, updated_at = NOW()
		`
		args = []interface{}{s.ID, s.GroupID, s.ThresholdBefore, s.ThresholdAfter, s.UpdatedBy}
	} else {
		query = `
			INSERT INTO administration_settings (
				id, scope, group_id, threshold_before, threshold_after, updated_by, created_at, updated_at
			) VALUES ($1, 'global', NULL, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (scope) WHERE scope = 'global'
			DO UPDATE SET threshold_before = $2, threshold_after = $3, updated_by = $4, updated_at = NOW()
		`
		args = []interface{}{s.ID, s.ThresholdBefore, s.ThresholdAfter, s.UpdatedBy}
	}

	_, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to upsert settings",
			zap.Error(err),
			zap.String("scope", string(s.Scope)),
		)
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}
