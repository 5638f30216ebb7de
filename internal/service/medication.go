package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/audit"
	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// MedicationService manages the active medication lifecycle. Every mutation
// leaves an audit trail entry; nothing is ever deleted.
type MedicationService struct {
	medications  *repository.MedicationRepository
	serviceUsers *repository.ServiceUserRepository
	trail        *audit.Trail
	logger       *zap.Logger
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(
	medications *repository.MedicationRepository,
	serviceUsers *repository.ServiceUserRepository,
	trail *audit.Trail,
	logger *zap.Logger,
) *MedicationService {
	return &MedicationService{
		medications:  medications,
		serviceUsers: serviceUsers,
		trail:        trail,
		logger:       logger,
	}
}

// validateAdministrationTimes rejects schedule entries that are not wall
// clock times in HH:MM form.
func validateAdministrationTimes(times []string) error {
	for _, t := range times {
		parts := strings.Split(t, ":")
		if len(parts) != 2 || len(t) != 5 {
			return fmt.Errorf("administration time %q is not in HH:MM form: %w", t, model.ErrInvalidInput)
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil || hour < 0 || hour > 23 {
			return fmt.Errorf("administration time %q has an invalid hour: %w", t, model.ErrInvalidInput)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return fmt.Errorf("administration time %q has an invalid minute: %w", t, model.ErrInvalidInput)
		}
	}
	return nil
}

func (s *MedicationService) validate(med *model.ActiveMedication) error {
	if med.Name == "" {
		return fmt.Errorf("medication name is required: %w", model.ErrInvalidInput)
	}
	if med.QuantityPerDose < 0 || med.DosesPerDay < 0 || med.QuantityInStock < 0 {
		return fmt.Errorf("quantities must not be negative: %w", model.ErrInvalidInput)
	}
	if med.EndDate != nil && med.EndDate.Before(med.StartDate) {
		return fmt.Errorf("end date before start date: %w", model.ErrInvalidInput)
	}
	return validateAdministrationTimes(med.AdministrationTimes)
}

// Create registers a new active medication for a service user. The initial
// stock is recorded as a pharmacy receipt in the audit trail so that stock
// reconstruction sees it.
func (s *MedicationService) Create(ctx context.Context, serviceUserID, actorID string, med *model.ActiveMedication) (*model.ActiveMedication, error) {
	if _, err := s.serviceUsers.FindByID(ctx, serviceUserID); err != nil {
		return nil, err
	}

	med.ID = uuid.New().String()
	med.ServiceUserID = serviceUserID
	med.Active = true
	med.Version = 1

	if err := s.validate(med); err != nil {
		return nil, err
	}

	if err := s.medications.Create(ctx, med); err != nil {
		return nil, err
	}

	category := model.StockFromPharmacy
	if err := s.trail.Log(ctx, model.MedicationUpdate{
		MedicationID:  med.ID,
		ServiceUserID: serviceUserID,
		ActorID:       actorID,
		Type:          model.UpdateNewMedication,
		Category:      &category,
		QuantityDelta: med.QuantityInStock,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("medication created",
		zap.String("medication_id", med.ID),
		zap.String("service_user_id", serviceUserID),
		zap.String("name", med.Name),
	)

	return med, nil
}

// List retrieves a service user's medications
func (s *MedicationService) List(ctx context.Context, serviceUserID string, activeOnly bool) ([]model.ActiveMedication, error) {
	if _, err := s.serviceUsers.FindByID(ctx, serviceUserID); err != nil {
		return nil, err
	}
	return s.medications.FindByServiceUser(ctx, serviceUserID, activeOnly)
}

// Get retrieves a medication by ID
func (s *MedicationService) Get(ctx context.Context, medicationID string) (*model.ActiveMedication, error) {
	return s.medications.FindByID(ctx, medicationID)
}

// Update edits a medication's prescription fields. Changed fields are
// diffed against the stored record and written to the audit trail. Stock is
// not editable here; AdjustStock owns stock movement.
func (s *MedicationService) Update(ctx context.Context, medicationID, actorID string, updated *model.ActiveMedication) (*model.ActiveMedication, error) {
	existing, err := s.medications.FindByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}

	updated.ID = existing.ID
	updated.ServiceUserID = existing.ServiceUserID
	updated.QuantityInStock = existing.QuantityInStock
	updated.Active = existing.Active
	updated.Version = existing.Version

	if err := s.validate(updated); err != nil {
		return nil, err
	}

	changes := diffMedication(existing, updated)
	if len(changes) == 0 {
		return existing, nil
	}

	if err := s.medications.Update(ctx, updated); err != nil {
		return nil, err
	}

	if err := s.trail.Log(ctx, model.MedicationUpdate{
		MedicationID:  medicationID,
		ServiceUserID: existing.ServiceUserID,
		ActorID:       actorID,
		Type:          model.UpdateFieldChange,
		Changes:       changes,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("medication updated",
		zap.String("medication_id", medicationID),
		zap.Int("changed_fields", len(changes)),
	)

	return updated, nil
}

// Deactivate soft-ends a medication as of endDate
func (s *MedicationService) Deactivate(ctx context.Context, medicationID, actorID string, endDate time.Time) error {
	med, err := s.medications.FindByID(ctx, medicationID)
	if err != nil {
		return err
	}
	if !med.Active {
		return fmt.Errorf("medication %s is already deactivated: %w", medicationID, model.ErrNotActive)
	}

	if err := s.medications.Deactivate(ctx, medicationID, endDate); err != nil {
		return err
	}

	if err := s.trail.Log(ctx, model.MedicationUpdate{
		MedicationID:  medicationID,
		ServiceUserID: med.ServiceUserID,
		ActorID:       actorID,
		Type:          model.UpdateDeactivated,
	}); err != nil {
		return err
	}

	s.logger.Info("medication deactivated",
		zap.String("medication_id", medicationID),
		zap.Time("end_date", endDate),
	)

	return nil
}

// StockAdjustment describes a categorized stock movement
type StockAdjustment struct {
	Category model.StockCategory
	Quantity float64
	Note     *string
	ActorID  string
}

// AdjustStock applies a categorized stock movement. The category determines
// the sign except for "other", where the caller supplies a signed quantity.
// The stock change and its audit entry commit as one transaction.
func (s *MedicationService) AdjustStock(ctx context.Context, medicationID string, adj StockAdjustment) (*model.ActiveMedication, error) {
	if adj.Quantity == 0 {
		return nil, fmt.Errorf("stock adjustment quantity must not be zero: %w", model.ErrInvalidInput)
	}
	if adj.Category == model.StockAdministered {
		// Administered stock changes only enter through the dispense path,
		// which records them once; a manual adjustment would double-count.
		return nil, fmt.Errorf("administered stock changes are recorded by dispensing: %w", model.ErrInvalidInput)
	}
	if adj.Category != model.StockOther && adj.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be positive for category %s: %w", adj.Category, model.ErrInvalidInput)
	}

	med, err := s.medications.FindByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}

	delta := adj.Category.Delta(adj.Quantity)

	updateType := model.UpdateStockIncrease
	if delta < 0 {
		updateType = model.UpdateStockDecrease
	}

	var newStock float64
	var lastErr error
	for attempt := 0; attempt < dispenseRetries; attempt++ {
		newStock, lastErr = s.adjustOnce(ctx, med, delta, updateType, adj)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, repository.ErrVersionMismatch) {
			return nil, lastErr
		}

		med, err = s.medications.FindByID(ctx, medicationID)
		if err != nil {
			return nil, err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if newStock < 0 {
		s.logger.Warn("medication stock is negative after adjustment",
			zap.String("medication_id", medicationID),
			zap.Float64("quantity_in_stock", newStock),
		)
	}

	s.logger.Info("medication stock adjusted",
		zap.String("medication_id", medicationID),
		zap.String("category", string(adj.Category)),
		zap.Float64("delta", delta),
		zap.Float64("quantity_in_stock", newStock),
	)

	return s.medications.FindByID(ctx, medicationID)
}

func (s *MedicationService) adjustOnce(ctx context.Context, med *model.ActiveMedication, delta float64, updateType model.UpdateType, adj StockAdjustment) (float64, error) {
	tx, err := s.medications.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	newStock, err := s.medications.AdjustStockTx(ctx, tx, med.ID, delta, med.Version)
	if err != nil {
		return 0, err
	}

	category := adj.Category
	if err := s.trail.LogTx(ctx, tx, model.MedicationUpdate{
		MedicationID:  med.ID,
		ServiceUserID: med.ServiceUserID,
		ActorID:       adj.ActorID,
		Type:          updateType,
		Category:      &category,
		QuantityDelta: delta,
		Note:          adj.Note,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	return newStock, nil
}

// History retrieves the audit trail for a medication within a time range
func (s *MedicationService) History(ctx context.Context, medicationID string, start, end time.Time) ([]model.MedicationUpdate, error) {
	if _, err := s.medications.FindByID(ctx, medicationID); err != nil {
		return nil, err
	}
	return s.trail.FindByMedicationAndRange(ctx, medicationID, start, end)
}

func diffMedication(old, new *model.ActiveMedication) map[string]model.FieldChange {
	changes := make(map[string]model.FieldChange)

	addChange := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changes[field] = model.FieldChange{OldValue: oldVal, NewValue: newVal}
		}
	}

	addChange("name", old.Name, new.Name)
	addChange("dose_amount", strconv.FormatFloat(old.DoseAmount, 'f', -1, 64), strconv.FormatFloat(new.DoseAmount, 'f', -1, 64))
	addChange("dose_unit", old.DoseUnit, new.DoseUnit)
	addChange("quantity_per_dose", strconv.FormatFloat(old.QuantityPerDose, 'f', -1, 64), strconv.FormatFloat(new.QuantityPerDose, 'f', -1, 64))
	addChange("doses_per_day", strconv.Itoa(old.DosesPerDay), strconv.Itoa(new.DosesPerDay))
	addChange("frequency", old.Frequency, new.Frequency)
	addChange("administration_times", strings.Join(old.AdministrationTimes, ","), strings.Join(new.AdministrationTimes, ","))
	addChange("start_date", old.StartDate.Format("2006-01-02"), new.StartDate.Format("2006-01-02"))
	addChange("prescriber", old.Prescriber, new.Prescriber)

	oldEnd, newEnd := "", ""
	if old.EndDate != nil {
		oldEnd = old.EndDate.Format("2006-01-02")
	}
	if new.EndDate != nil {
		newEnd = new.EndDate.Format("2006-01-02")
	}
	addChange("end_date", oldEnd, newEnd)

	return changes
}
