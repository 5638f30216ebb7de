package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/audit"
	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/internal/schedule"
	"github.com/caredose/medadmin-backend/internal/security"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// dispenseRetries bounds how often a dispense retries after losing an
// optimistic concurrency race on the stock row.
const dispenseRetries = 3

// AdministrationService implements the medication administration workflow:
// current-moment availability, the dispense write path, and MAR chart
// generation over a date range.
type AdministrationService struct {
	serviceUsers *repository.ServiceUserRepository
	medications  *repository.MedicationRepository
	records      *repository.RecordRepository
	settings     *SettingsService
	trail        *audit.Trail
	encryptor    *security.Encryptor
	loc          *time.Location
	logger       *zap.Logger
}

// NewAdministrationService creates a new AdministrationService
func NewAdministrationService(
	serviceUsers *repository.ServiceUserRepository,
	medications *repository.MedicationRepository,
	records *repository.RecordRepository,
	settings *SettingsService,
	trail *audit.Trail,
	encryptor *security.Encryptor,
	loc *time.Location,
	logger *zap.Logger,
) *AdministrationService {
	return &AdministrationService{
		serviceUsers: serviceUsers,
		medications:  medications,
		records:      records,
		settings:     settings,
		trail:        trail,
		encryptor:    encryptor,
		loc:          loc,
		logger:       logger,
	}
}

// MedicationAvailability pairs a medication with its current dosing state
type MedicationAvailability struct {
	Medication     model.ActiveMedication  `json:"medication"`
	Classification schedule.Classification `json:"classification"`
	DaysRemaining  int                     `json:"days_remaining"`
}

// Availability classifies every active medication of a service user at the
// reference time.
func (s *AdministrationService) Availability(ctx context.Context, serviceUserID string, now time.Time) ([]MedicationAvailability, error) {
	su, err := s.serviceUsers.FindByID(ctx, serviceUserID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.ResolveForGroup(ctx, su.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	medications, err := s.medications.FindByServiceUser(ctx, serviceUserID, true)
	if err != nil {
		return nil, err
	}

	now = now.In(s.loc)
	dayStart, dayEnd := dayBounds(now)

	results := make([]MedicationAvailability, 0, len(medications))
	for _, med := range medications {
		windows := schedule.ComputeWindows(med.AdministrationTimes, now, s.loc, settings.ThresholdBefore, settings.ThresholdAfter)

		records, err := s.records.FindByMedicationAndRange(ctx, med.ID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}

		results = append(results, MedicationAvailability{
			Medication:     med,
			Classification: schedule.Classify(now, windows, records),
			DaysRemaining:  med.DaysRemaining(),
		})
	}

	s.logger.Info("availability classified",
		zap.String("service_user_id", serviceUserID),
		zap.Int("medication_count", len(results)),
	)

	return results, nil
}

// DispenseRequest carries the parameters of a dispense operation
type DispenseRequest struct {
	MedicationID string
	Quantity     float64
	Outcome      model.Outcome
	Notes        *string
	ActorID      string
}

// Dispense records an administration event. The record insert, the stock
// decrement, and the audit entry commit as a single transaction. A dispense
// inside a scheduled window whose slot already has a record is rejected as a
// duplicate.
func (s *AdministrationService) Dispense(ctx context.Context, serviceUserID string, req DispenseRequest) (*model.AdministrationRecord, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("dispense quantity must be positive: %w", model.ErrInvalidInput)
	}

	med, err := s.medications.FindByID(ctx, req.MedicationID)
	if err != nil {
		return nil, err
	}
	if med.ServiceUserID != serviceUserID {
		return nil, fmt.Errorf("medication %s does not belong to service user %s: %w", req.MedicationID, serviceUserID, model.ErrNotFound)
	}
	if !med.Active {
		return nil, fmt.Errorf("medication %s: %w", req.MedicationID, model.ErrNotActive)
	}

	now := time.Now().In(s.loc)

	if err := s.checkDuplicateSlot(ctx, med, serviceUserID, now); err != nil {
		return nil, err
	}

	if req.Quantity > med.QuantityInStock {
		// Accepted anyway: partial doses and correction workflows push
		// stock negative in the real world. Flagged, not blocked.
		s.logger.Warn("dispense exceeds quantity in stock",
			zap.String("medication_id", med.ID),
			zap.Float64("quantity", req.Quantity),
			zap.Float64("quantity_in_stock", med.QuantityInStock),
		)
	}

	outcome := req.Outcome
	if outcome == "" {
		outcome = model.OutcomeAdministered
	}

	notes, err := s.encryptNotes(req.Notes)
	if err != nil {
		return nil, err
	}

	rec := &model.AdministrationRecord{
		ID:            uuid.New().String(),
		ServiceUserID: serviceUserID,
		MedicationID:  med.ID,
		Quantity:      req.Quantity,
		Outcome:       outcome,
		Notes:         notes,
		Timestamp:     now,
	}

	var lastErr error
	for attempt := 0; attempt < dispenseRetries; attempt++ {
		lastErr = s.dispenseOnce(ctx, med, rec, req)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, repository.ErrVersionMismatch) {
			return nil, lastErr
		}

		// Lost the optimistic concurrency race; reload and retry
		med, err = s.medications.FindByID(ctx, req.MedicationID)
		if err != nil {
			return nil, err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	s.logger.Info("medication dispensed",
		zap.String("record_id", rec.ID),
		zap.String("medication_id", med.ID),
		zap.String("service_user_id", serviceUserID),
		zap.Float64("quantity", req.Quantity),
		zap.String("outcome", string(outcome)),
	)

	rec.Notes = req.Notes
	return rec, nil
}

// dispenseOnce runs one transactional attempt of the dispense side effects
func (s *AdministrationService) dispenseOnce(ctx context.Context, med *model.ActiveMedication, rec *model.AdministrationRecord, req DispenseRequest) error {
	tx, err := s.medications.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.records.CreateTx(ctx, tx, rec); err != nil {
		return err
	}

	newStock, err := s.medications.AdjustStockTx(ctx, tx, med.ID, -req.Quantity, med.Version)
	if err != nil {
		return err
	}

	if newStock < 0 {
		s.logger.Warn("medication stock is negative after dispense",
			zap.String("medication_id", med.ID),
			zap.Float64("quantity_in_stock", newStock),
		)
	}

	category := model.StockAdministered
	if err := s.trail.LogTx(ctx, tx, model.MedicationUpdate{
		MedicationID:  med.ID,
		ServiceUserID: rec.ServiceUserID,
		ActorID:       req.ActorID,
		Type:          model.UpdateStockDecrease,
		Category:      &category,
		QuantityDelta: -req.Quantity,
		Timestamp:     rec.Timestamp,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit dispense: %w", err)
	}

	return nil
}

// checkDuplicateSlot rejects a dispense when the current scheduled slot
// already holds a record, guarding against retried submissions.
func (s *AdministrationService) checkDuplicateSlot(ctx context.Context, med *model.ActiveMedication, serviceUserID string, now time.Time) error {
	settings, err := s.settings.ResolveForServiceUser(ctx, serviceUserID)
	if err != nil {
		return err
	}

	windows := schedule.ComputeWindows(med.AdministrationTimes, now, s.loc, settings.ThresholdBefore, settings.ThresholdAfter)
	if len(windows) == 0 {
		return nil
	}

	dayStart, dayEnd := dayBounds(now)
	records, err := s.records.FindByMedicationAndRange(ctx, med.ID, dayStart, dayEnd)
	if err != nil {
		return err
	}

	matched := schedule.MatchRecords(windows, records)
	for i := range windows {
		if windows[i].Contains(now) && matched[i] != nil {
			return fmt.Errorf("slot %s already has an administration record: %w", windows[i].ScheduledTime, model.ErrConflict)
		}
	}

	return nil
}

// MARChart is the reconciled medication administration record chart for one
// service user over a date range, indexed for direct UI consumption.
type MARChart struct {
	ServiceUser     *model.ServiceUser                            `json:"service_user"`
	Medications     []model.ActiveMedication                      `json:"medications"`
	DateRange       []string                                      `json:"date_range"`
	Windows         map[string]map[string][]schedule.SlotResult   `json:"windows"`
	Administrations map[string]map[string][]model.AdministrationRecord `json:"administrations"`
	Settings        *model.AdministrationSettings                 `json:"settings"`
}

// BuildMARChart reconciles administration records against scheduled windows
// for every calendar date in [startDate, endDate] and every medication whose
// active period overlaps the range.
func (s *AdministrationService) BuildMARChart(ctx context.Context, serviceUserID string, startDate, endDate time.Time) (*MARChart, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date before start date: %w", model.ErrInvalidInput)
	}

	su, err := s.serviceUsers.FindByID(ctx, serviceUserID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.ResolveForGroup(ctx, su.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings: %w", err)
	}

	startDate = startOfDay(startDate.In(s.loc))
	endDate = startOfDay(endDate.In(s.loc))
	rangeEnd := endDate.AddDate(0, 0, 1)

	medications, err := s.medications.FindActiveOverlapping(ctx, serviceUserID, startDate, rangeEnd)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)

	chart := &MARChart{
		ServiceUser:     su,
		Medications:     medications,
		Windows:         make(map[string]map[string][]schedule.SlotResult),
		Administrations: make(map[string]map[string][]model.AdministrationRecord),
		Settings:        settings,
	}

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		chart.DateRange = append(chart.DateRange, d.Format("2006-01-02"))
	}

	for _, med := range medications {
		records, err := s.records.FindByMedicationAndRange(ctx, med.ID, startDate, rangeEnd)
		if err != nil {
			return nil, err
		}
		if err := s.decryptRecordNotes(records); err != nil {
			return nil, err
		}

		byDate := groupRecordsByDate(records, s.loc)

		chart.Windows[med.ID] = make(map[string][]schedule.SlotResult)
		chart.Administrations[med.ID] = make(map[string][]model.AdministrationRecord)

		for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
			dateStr := d.Format("2006-01-02")
			dayRecords := byDate[dateStr]

			windows := schedule.ComputeWindows(med.AdministrationTimes, d, s.loc, settings.ThresholdBefore, settings.ThresholdAfter)
			chart.Windows[med.ID][dateStr] = schedule.Reconcile(windows, dayRecords, now)
			chart.Administrations[med.ID][dateStr] = dayRecords
		}
	}

	s.logger.Info("MAR chart built",
		zap.String("service_user_id", serviceUserID),
		zap.Int("medication_count", len(medications)),
		zap.Int("day_count", len(chart.DateRange)),
	)

	return chart, nil
}

func (s *AdministrationService) encryptNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	encrypted, err := s.encryptor.Encrypt(*notes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt notes: %w", err)
	}
	return &encrypted, nil
}

func (s *AdministrationService) decryptRecordNotes(records []model.AdministrationRecord) error {
	for i := range records {
		if records[i].Notes == nil {
			continue
		}
		plain, err := s.encryptor.Decrypt(*records[i].Notes)
		if err != nil {
			return fmt.Errorf("failed to decrypt notes for record %s: %w", records[i].ID, err)
		}
		records[i].Notes = &plain
	}
	return nil
}

// groupRecordsByDate buckets records by their calendar date in loc
func groupRecordsByDate(records []model.AdministrationRecord, loc *time.Location) map[string][]model.AdministrationRecord {
	byDate := make(map[string][]model.AdministrationRecord)
	for _, rec := range records {
		dateStr := rec.Timestamp.In(loc).Format("2006-01-02")
		byDate[dateStr] = append(byDate[dateStr], rec)
	}
	return byDate
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := startOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
