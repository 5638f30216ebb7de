package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// RecordRepository manages the append-only administration record store.
// Records are only ever inserted; there are no update or delete paths.
type RecordRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *pgxpool.Pool, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `id, service_user_id, medication_id, quantity, outcome, notes, timestamp, created_at`

func scanRecord(row pgx.Row) (*model.AdministrationRecord, error) {
	var rec model.AdministrationRecord
	err := row.Scan(
		&rec.ID,
		&rec.ServiceUserID,
		&rec.MedicationID,
		&rec.Quantity,
		&rec.Outcome,
		&rec.Notes,
		&rec.Timestamp,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateTx inserts an administration record inside a transaction, so that the
// record, the stock decrement, and the audit entry commit or roll back as one.
func (r *RecordRepository) CreateTx(ctx context.Context, tx pgx.Tx, rec *model.AdministrationRecord) error {
	query := `
		INSERT INTO administration_records (
			id, service_user_id, medication_id, quantity, outcome, notes, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := tx.Exec(ctx, query,
		rec.ID,
		rec.ServiceUserID,
		rec.MedicationID,
		rec.Quantity,
		rec.Outcome,
		rec.Notes,
		rec.Timestamp,
	)

	if err != nil {
		r.logger.Error("failed to create administration record",
			zap.Error(err),
			zap.String("medication_id", rec.MedicationID),
			zap.String("service_user_id", rec.ServiceUserID),
		)
		return fmt.Errorf("failed to create administration record: %w", err)
	}

	return nil
}

// FindByMedicationAndRange retrieves records for a medication within a time
// range, ordered by timestamp ascending.
func (r *RecordRepository) FindByMedicationAndRange(ctx context.Context, medicationID string, start, end time.Time) ([]model.AdministrationRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM administration_records
		WHERE medication_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`

	return r.queryRecords(ctx, query, medicationID, start, end)
}

func (r *RecordRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]model.AdministrationRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query administration records", zap.Error(err))
		return nil, fmt.Errorf("failed to query administration records: %w", err)
	}
	defer rows.Close()

	var records []model.AdministrationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("failed to scan administration record", zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating administration records", zap.Error(err))
		return nil, fmt.Errorf("error iterating administration records: %w", err)
	}

	return records, nil
}

// StockEvent is a signed stock change drawn from the event store: an
// administration record or a stock-changing medication update.
type StockEvent struct {
	ID        string              `json:"id"`
	Kind      string              `json:"kind"` // administration or update
	Category  model.StockCategory `json:"category"`
	Delta     float64             `json:"delta"`
	Timestamp time.Time           `json:"timestamp"`
}

// FindStockEventsSince retrieves all stock-changing events for a medication
// after the given instant, newest first. Used to reconstruct historical stock
// levels by walking backward from the current quantity.
//
// A dispense commits both an administration record and an audit entry with
// category 'administered' for the same movement; the audit copy is excluded
// here so each dispense counts exactly once.
func (r *RecordRepository) FindStockEventsSince(ctx context.Context, medicationID string, since time.Time) ([]StockEvent, error) {
	query := `
		SELECT id, 'administration' AS kind, 'administered' AS category, -quantity AS delta, timestamp
		FROM administration_records
		WHERE medication_id = $1 AND timestamp > $2
		UNION ALL
		SELECT id, 'update' AS kind, category, quantity_delta AS delta, timestamp
		FROM medication_updates
		WHERE medication_id = $1 AND timestamp > $2
		  AND category IS NOT NULL AND category <> 'administered'
		ORDER BY timestamp DESC
	`

	rows, err := r.db.Query(ctx, query, medicationID, since)
	if err != nil {
		r.logger.Error("failed to query stock events",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		return nil, fmt.Errorf("failed to query stock events: %w", err)
	}
	defer rows.Close()

	var events []StockEvent
	for rows.Next() {
		var ev StockEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Category, &ev.Delta, &ev.Timestamp); err != nil {
			r.logger.Error("failed to scan stock event", zap.Error(err))
			continue
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating stock events", zap.Error(err))
		return nil, fmt.Errorf("error iterating stock events: %w", err)
	}

	return events, nil
}
