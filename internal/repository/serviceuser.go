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

// ServiceUserRepository manages service user data
type ServiceUserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewServiceUserRepository creates a new ServiceUserRepository
func NewServiceUserRepository(db *pgxpool.Pool, logger *zap.Logger) *ServiceUserRepository {
	return &ServiceUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new service user record
func (r *ServiceUserRepository) Create(ctx context.Context, su *model.ServiceUser) error {
	query := `
		INSERT INTO service_users (id, name, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query, su.ID, su.Name, su.GroupID)
	if err != nil {
		r.logger.Error("failed to create service user",
			zap.Error(err),
			zap.String("service_user_id", su.ID),
		)
		return fmt.Errorf("failed to create service user: %w", err)
	}

	return nil
}

// FindByID retrieves a service user by ID, including group membership
func (r *ServiceUserRepository) FindByID(ctx context.Context, serviceUserID string) (*model.ServiceUser, error) {
	query := `
		SELECT id, name, group_id, created_at, updated_at, deleted_at
		FROM service_users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var su model.ServiceUser
	err := r.db.QueryRow(ctx, query, serviceUserID).Scan(
		&su.ID,
		&su.Name,
		&su.GroupID,
		&su.CreatedAt,
		&su.UpdatedAt,
		&su.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("service user %s: %w", serviceUserID, model.ErrNotFound)
		}
		r.logger.Error("failed to find service user", zap.Error(err), zap.String("service_user_id", serviceUserID))
		return nil, fmt.Errorf("failed to find service user: %w", err)
	}

	return &su, nil
}
