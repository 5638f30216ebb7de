// Package audit writes the medication audit trail: append-only
// MedicationUpdate entries recording every stock change, activation change,
// and field-level edit. Entries are never mutated or deleted by this service.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/pkg/model"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so entries can be
// written standalone or inside the transaction of the change they record.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Trail handles medication audit logging
type Trail struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewTrail creates a new audit trail
func NewTrail(db *pgxpool.Pool, logger *zap.Logger) *Trail {
	return &Trail{
		db:     db,
		logger: logger,
	}
}

const insertQuery = `
	INSERT INTO medication_updates (
		id, medication_id, service_user_id, actor_id, type,
		category, quantity_delta, changes, note, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Log appends an audit entry
func (t *Trail) Log(ctx context.Context, entry model.MedicationUpdate) error {
	return t.log(ctx, t.db, entry)
}

// LogTx appends an audit entry inside a transaction, so the entry commits or
// rolls back with the change it records.
func (t *Trail) LogTx(ctx context.Context, tx pgx.Tx, entry model.MedicationUpdate) error {
	return t.log(ctx, tx, entry)
}

func (t *Trail) log(ctx context.Context, db execer, entry model.MedicationUpdate) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	var changes []byte
	if len(entry.Changes) > 0 {
		var err error
		changes, err = json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal changes: %w", err)
		}
	}

	t.logger.Info("medication audit entry",
		zap.String("medication_id", entry.MedicationID),
		zap.String("service_user_id", entry.ServiceUserID),
		zap.String("type", string(entry.Type)),
		zap.Float64("quantity_delta", entry.QuantityDelta),
		zap.Time("timestamp", entry.Timestamp),
	)

	_, err := db.Exec(ctx, insertQuery,
		entry.ID,
		entry.MedicationID,
		entry.ServiceUserID,
		entry.ActorID,
		entry.Type,
		entry.Category,
		entry.QuantityDelta,
		changes,
		entry.Note,
		entry.Timestamp,
	)

	if err != nil {
		t.logger.Error("failed to write medication audit entry",
			zap.Error(err),
			zap.String("medication_id", entry.MedicationID),
			zap.String("type", string(entry.Type)),
		)
		return fmt.Errorf("failed to write medication audit entry: %w", err)
	}

	return nil
}

// FindByMedicationAndRange retrieves audit entries for a medication within a
// time range, ordered by timestamp ascending.
func (t *Trail) FindByMedicationAndRange(ctx context.Context, medicationID string, start, end time.Time) ([]model.MedicationUpdate, error) {
	query := `
		SELECT id, medication_id, service_user_id, actor_id, type,
		       category, quantity_delta, changes, note, timestamp
		FROM medication_updates
		WHERE medication_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`

	rows, err := t.db.Query(ctx, query, medicationID, start, end)
	if err != nil {
		t.logger.Error("failed to query medication audit entries",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		return nil, fmt.Errorf("failed to query medication audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.MedicationUpdate
	for rows.Next() {
		var entry model.MedicationUpdate
		var changes []byte
		err := rows.Scan(
			&entry.ID,
			&entry.MedicationID,
			&entry.ServiceUserID,
			&entry.ActorID,
			&entry.Type,
			&entry.Category,
			&entry.QuantityDelta,
			&changes,
			&entry.Note,
			&entry.Timestamp,
		)
		if err != nil {
			t.logger.Error("failed to scan medication audit entry", zap.Error(err))
			continue
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				t.logger.Warn("failed to unmarshal audit changes", zap.Error(err), zap.String("entry_id", entry.ID))
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		t.logger.Error("error iterating medication audit entries", zap.Error(err))
		return nil, fmt.Errorf("error iterating medication audit entries: %w", err)
	}

	return entries, nil
}
