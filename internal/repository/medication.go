package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// ErrVersionMismatch indicates a concurrent stock update won the race; the
// caller should reload the medication and retry.
var ErrVersionMismatch = errors.New("medication version mismatch")

// MedicationRepository manages active medication data
type MedicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewMedicationRepository creates a new MedicationRepository
func NewMedicationRepository(db *pgxpool.Pool, logger *zap.Logger) *MedicationRepository {
	return &MedicationRepository{
		db:     db,
		logger: logger,
	}
}

const medicationColumns = `
	id, service_user_id, name, dose_amount, dose_unit,
	quantity_in_stock, quantity_per_dose, doses_per_day, frequency,
	administration_times, start_date, end_date, prescriber,
	active, version, created_at, updated_at
`

func scanMedication(row pgx.Row) (*model.ActiveMedication, error) {
	var med model.ActiveMedication
	err := row.Scan(
		&med.ID,
		&med.ServiceUserID,
		&med.Name,
		&med.DoseAmount,
		&med.DoseUnit,
		&med.QuantityInStock,
		&med.QuantityPerDose,
		&med.DosesPerDay,
		&med.Frequency,
		&med.AdministrationTimes,
		&med.StartDate,
		&med.EndDate,
		&med.Prescriber,
		&med.Active,
		&med.Version,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &med, nil
}

// Create creates a new active medication record
func (r *MedicationRepository) Create(ctx context.Context, med *model.ActiveMedication) error {
	query := `
		INSERT INTO active_medications (
			id, service_user_id, name, dose_amount, dose_unit,
			quantity_in_stock, quantity_per_dose, doses_per_day, frequency,
			administration_times, start_date, end_date, prescriber,
			active, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		med.ID,
		med.ServiceUserID,
		med.Name,
		med.DoseAmount,
		med.DoseUnit,
		med.QuantityInStock,
		med.QuantityPerDose,
		med.DosesPerDay,
		med.Frequency,
		med.AdministrationTimes,
		med.StartDate,
		med.EndDate,
		med.Prescriber,
		med.Active,
	)

	if err != nil {
		r.logger.Error("failed to create medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
			zap.String("service_user_id", med.ServiceUserID),
		)
		return fmt.Errorf("failed to create medication: %w", err)
	}

	return nil
}

// FindByID retrieves a medication by ID
func (r *MedicationRepository) FindByID(ctx context.Context, medicationID string) (*model.ActiveMedication, error) {
	query := `SELECT ` + medicationColumns + ` FROM active_medications WHERE id = $1`

	med, err := scanMedication(r.db.QueryRow(ctx, query, medicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medication %s: %w", medicationID, model.ErrNotFound)
		}
		r.logger.Error("failed to find medication", zap.Error(err), zap.String("medication_id", medicationID))
		return nil, fmt.Errorf("failed to find medication: %w", err)
	}

	return med, nil
}

// FindByServiceUser retrieves medications for a service user, sorted by name.
// With activeOnly set, deactivated medications are excluded.
func (r *MedicationRepository) FindByServiceUser(ctx context.Context, serviceUserID string, activeOnly bool) ([]model.ActiveMedication, error) {
	query := `SELECT ` + medicationColumns + ` FROM active_medications WHERE service_user_id = $1`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, serviceUserID)
	if err != nil {
		r.logger.Error("failed to find medications", zap.Error(err), zap.String("service_user_id", serviceUserID))
		return nil, fmt.Errorf("failed to find medications: %w", err)
	}
	defer rows.Close()

	var medications []model.ActiveMedication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			r.logger.Error("failed to scan medication", zap.Error(err))
			continue
		}
		medications = append(medications, *med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medications", zap.Error(err))
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	return medications, nil
}

// FindActiveOverlapping retrieves a service user's medications whose active
// period overlaps the given date range, deactivated ones included so that
// historical MAR charts stay complete.
func (r *MedicationRepository) FindActiveOverlapping(ctx context.Context, serviceUserID string, start, end time.Time) ([]model.ActiveMedication, error) {
	query := `SELECT ` + medicationColumns + `
		FROM active_medications
		WHERE service_user_id = $1
		  AND start_date <= $3
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, serviceUserID, start, end)
	if err != nil {
		r.logger.Error("failed to find medications in range",
			zap.Error(err),
			zap.String("service_user_id", serviceUserID),
		)
		return nil, fmt.Errorf("failed to find medications in range: %w", err)
	}
	defer rows.Close()

	var medications []model.ActiveMedication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			r.logger.Error("failed to scan medication", zap.Error(err))
			continue
		}
		medications = append(medications, *med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medications", zap.Error(err))
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	return medications, nil
}

// FindOverlapping retrieves every medication, across all service users, whose
// active period overlaps the given date range. Deactivated medications are
// included, same as FindActiveOverlapping.
func (r *MedicationRepository) FindOverlapping(ctx context.Context, start, end time.Time) ([]model.ActiveMedication, error) {
	query := `SELECT ` + medicationColumns + `
		FROM active_medications
		WHERE start_date <= $2
		  AND (end_date IS NULL OR end_date >= $1)
		ORDER BY service_user_id, name ASC
	`

	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		r.logger.Error("failed to find medications in range", zap.Error(err))
		return nil, fmt.Errorf("failed to find medications in range: %w", err)
	}
	defer rows.Close()

	var medications []model.ActiveMedication
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			r.logger.Error("failed to scan medication", zap.Error(err))
			continue
		}
		medications = append(medications, *med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medications", zap.Error(err))
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	return medications, nil
}

// Update updates the editable fields of a medication record
func (r *MedicationRepository) Update(ctx context.Context, med *model.ActiveMedication) error {
	query := `
		UPDATE active_medications
		SET name = $1, dose_amount = $2, dose_unit = $3,
		    quantity_per_dose = $4, doses_per_day = $5, frequency = $6,
		    administration_times = $7, start_date = $8, end_date = $9,
		    prescriber = $10, active = $11, updated_at = NOW()
		WHERE id = $12
	`

	result, err := r.db.Exec(ctx, query,
		med.Name,
		med.DoseAmount,
		med.DoseUnit,
		med.QuantityPerDose,
		med.DosesPerDay,
		med.Frequency,
		med.AdministrationTimes,
		med.StartDate,
		med.EndDate,
		med.Prescriber,
		med.Active,
		med.ID,
	)

	if err != nil {
		r.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		return fmt.Errorf("failed to update medication: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("medication %s: %w", med.ID, model.ErrNotFound)
	}

	return nil
}

// Deactivate soft-ends a medication. History keeps referencing it; nothing is
// deleted.
func (r *MedicationRepository) Deactivate(ctx context.Context, medicationID string, endDate time.Time) error {
	query := `
		UPDATE active_medications
		SET active = false, end_date = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.Exec(ctx, query, endDate, medicationID)
	if err != nil {
		r.logger.Error("failed to deactivate medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("medication %s: %w", medicationID, model.ErrNotFound)
	}

	return nil
}

// AdjustStockTx applies a signed stock delta inside a transaction, guarded by
// an optimistic version check. Two concurrent adjustments against the same
// medication cannot both succeed on the same version.
func (r *MedicationRepository) AdjustStockTx(ctx context.Context, tx pgx.Tx, medicationID string, delta float64, expectedVersion int64) (float64, error) {
	query := `
		UPDATE active_medications
		SET quantity_in_stock = quantity_in_stock + $1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING quantity_in_stock
	`

	var newStock float64
	err := tx.QueryRow(ctx, query, delta, medicationID, expectedVersion).Scan(&newStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("medication %s at version %d: %w", medicationID, expectedVersion, ErrVersionMismatch)
		}
		r.logger.Error("failed to adjust stock",
			zap.Error(err),
			zap.String("medication_id", medicationID),
			zap.Float64("delta", delta),
		)
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return newStock, nil
}

// Begin starts a transaction on the underlying pool
func (r *MedicationRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}
