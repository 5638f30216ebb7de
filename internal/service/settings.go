package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/schedule"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// SettingsRepositoryInterface defines the interface for settings data access
type SettingsRepositoryInterface interface {
	FindGlobal(ctx context.Context) (*model.AdministrationSettings, error)
	FindByGroup(ctx context.Context, groupID string) (*model.AdministrationSettings, error)
	Upsert(ctx context.Context, s *model.AdministrationSettings) error
}

// ServiceUserDirectory defines the service user lookup the resolver needs
type ServiceUserDirectory interface {
	FindByID(ctx context.Context, serviceUserID string) (*model.ServiceUser, error)
}

// SettingsService resolves the effective administration threshold settings
// for a scope. Resolution order: group override, then global, then the
// hard-coded default of 30 minutes either side of the scheduled time.
type SettingsService struct {
	repo         SettingsRepositoryInterface
	serviceUsers ServiceUserDirectory
	logger       *zap.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo SettingsRepositoryInterface, serviceUsers ServiceUserDirectory, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:         repo,
		serviceUsers: serviceUsers,
		logger:       logger,
	}
}

// defaultSettings is returned when no settings record is configured at all.
// The absence of a record is the documented default, not a failure.
func defaultSettings() *model.AdministrationSettings {
	return &model.AdministrationSettings{
		Scope:           model.ScopeGlobal,
		ThresholdBefore: schedule.DefaultThresholdBefore,
		ThresholdAfter:  schedule.DefaultThresholdAfter,
	}
}

// ResolveForServiceUser resolves the effective settings for a service user,
// honouring a group-scoped override when the user belongs to a group.
func (s *SettingsService) ResolveForServiceUser(ctx context.Context, serviceUserID string) (*model.AdministrationSettings, error) {
	su, err := s.serviceUsers.FindByID(ctx, serviceUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	return s.ResolveForGroup(ctx, su.GroupID)
}

// ResolveForGroup resolves the effective settings for an optional group scope
func (s *SettingsService) ResolveForGroup(ctx context.Context, groupID *string) (*model.AdministrationSettings, error) {
	if groupID != nil {
		settings, err := s.repo.FindByGroup(ctx, *groupID)
		if err == nil {
			return settings, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}

	settings, err := s.repo.FindGlobal(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	s.logger.Debug("no administration settings configured, using defaults")
	return defaultSettings(), nil
}

// Get retrieves the settings record for an explicit scope without falling
// back to defaults. Used by the settings admin surface.
func (s *SettingsService) Get(ctx context.Context, scope model.SettingsScope, groupID *string) (*model.AdministrationSettings, error) {
	if scope == model.ScopeGroup {
		if groupID == nil {
			return nil, fmt.Errorf("group scope requires a group id: %w", model.ErrInvalidInput)
		}
		return s.repo.FindByGroup(ctx, *groupID)
	}
	return s.repo.FindGlobal(ctx)
}

// Put creates or replaces the settings record for a scope
func (s *SettingsService) Put(ctx context.Context, settings *model.AdministrationSettings) (*model.AdministrationSettings, error) {
	if settings.ThresholdBefore < 0 || settings.ThresholdAfter < 0 {
		return nil, fmt.Errorf("thresholds must not be negative: %w", model.ErrInvalidInput)
	}
	if settings.Scope == model.ScopeGroup && settings.GroupID == nil {
		return nil, fmt.Errorf("group scope requires a group id: %w", model.ErrInvalidInput)
	}
	if settings.Scope != model.ScopeGroup && settings.Scope != model.ScopeGlobal {
		return nil, fmt.Errorf("unknown settings scope %q: %w", settings.Scope, model.ErrInvalidInput)
	}

	if settings.ID == "" {
		settings.ID = uuid.New().String()
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		s.logger.Error("failed to store settings",
			zap.Error(err),
			zap.String("scope", string(settings.Scope)),
		)
		return nil, fmt.Errorf("failed to store settings: %w", err)
	}

	s.logger.Info("administration settings updated",
		zap.String("scope", string(settings.Scope)),
		zap.Int("threshold_before", settings.ThresholdBefore),
		zap.Int("threshold_after", settings.ThresholdAfter),
	)

	return settings, nil
}
