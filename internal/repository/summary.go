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

// SummaryRepository stores generated weekly summary snapshots. Each
// generation is a fresh snapshot tied to its date range; overlapping
// snapshots may coexist.
type SummaryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSummaryRepository creates a new SummaryRepository
func NewSummaryRepository(db *pgxpool.Pool, logger *zap.Logger) *SummaryRepository {
	return &SummaryRepository{
		db:     db,
		logger: logger,
	}
}

const summaryColumns = `
	id, service_user_id, medication_id, medication_name,
	period_start, period_end, initial_stock, final_stock,
	from_pharmacy, quantity_administered, leaving_home, returning_home,
	returned_to_pharmacy, lost, damaged, other,
	days_remaining, incomplete, entry_ids, generated_at
`

// Save persists a weekly summary snapshot
func (r *SummaryRepository) Save(ctx context.Context, s *model.WeeklySummary) error {
	query := `
		INSERT INTO weekly_summaries (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.ServiceUserID,
		s.MedicationID,
		s.MedicationName,
		s.PeriodStart,
		s.PeriodEnd,
		s.InitialStock,
		s.FinalStock,
		s.FromPharmacy,
		s.QuantityAdministered,
		s.LeavingHome,
		s.ReturningHome,
		s.ReturnedToPharmacy,
		s.Lost,
		s.Damaged,
		s.Other,
		s.DaysRemaining,
		s.Incomplete,
		s.EntryIDs,
		s.GeneratedAt,
	)

	if err != nil {
		r.logger.Error("failed to save weekly summary",
			zap.Error(err),
			zap.String("medication_id", s.MedicationID),
		)
		return fmt.Errorf("failed to save weekly summary: %w", err)
	}

	return nil
}

// FindByRange retrieves summaries whose period overlaps the given range
func (r *SummaryRepository) FindByRange(ctx context.Context, start, end time.Time) ([]model.WeeklySummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM weekly_summaries
		WHERE period_start <= $2 AND period_end >= $1
		ORDER BY period_start DESC, medication_name ASC
	`

	return r.querySummaries(ctx, query, start, end)
}

// FindByMedication retrieves the most recent summaries for a medication,
// newest first, capped at limit.
func (r *SummaryRepository) FindByMedication(ctx context.Context, medicationID string, limit int) ([]model.WeeklySummary, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM weekly_summaries
		WHERE medication_id = $1
		ORDER BY period_start DESC
		LIMIT $2
	`

	return r.querySummaries(ctx, query, medicationID, limit)
}

func (r *SummaryRepository) querySummaries(ctx context.Context, query string, args ...interface{}) ([]model.WeeklySummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query weekly summaries", zap.Error(err))
		return nil, fmt.Errorf("failed to query weekly summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.WeeklySummary
	for rows.Next() {
		var s model.WeeklySummary
		err := rows.Scan(
			&s.ID,
			&s.ServiceUserID,
			&s.MedicationID,
			&s.MedicationName,
			&s.PeriodStart,
			&s.PeriodEnd,
			&s.InitialStock,
			&s.FinalStock,
			&s.FromPharmacy,
			&s.QuantityAdministered,
			&s.LeavingHome,
			&s.ReturningHome,
			&s.ReturnedToPharmacy,
			&s.Lost,
			&s.Damaged,
			&s.Other,
			&s.DaysRemaining,
			&s.Incomplete,
			&s.EntryIDs,
			&s.GeneratedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan weekly summary", zap.Error(err))
			continue
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating weekly summaries", zap.Error(err))
		return nil, fmt.Errorf("error iterating weekly summaries: %w", err)
	}

	return summaries, nil
}

// SaveReport persists a generated MAR report record
func (r *SummaryRepository) SaveReport(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (id, service_user_id, date_range_start, date_range_end, file_path, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		report.ID,
		report.ServiceUserID,
		report.DateRangeStart,
		report.DateRangeEnd,
		report.FilePath,
		report.GeneratedAt,
	)

	if err != nil {
		r.logger.Error("failed to save report record",
			zap.Error(err),
			zap.String("report_id", report.ID),
		)
		return fmt.Errorf("failed to save report record: %w", err)
	}

	return nil
}

// GetReportByID retrieves a report record by ID
func (r *SummaryRepository) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	query := `
		SELECT id, service_user_id, date_range_start, date_range_end, file_path, generated_at, created_at
		FROM reports
		WHERE id = $1
	`

	var report model.Report
	err := r.db.QueryRow(ctx, query, reportID).Scan(
		&report.ID,
		&report.ServiceUserID,
		&report.DateRangeStart,
		&report.DateRangeEnd,
		&report.FilePath,
		&report.GeneratedAt,
		&report.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", reportID, model.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get report record", zap.Error(err), zap.String("report_id", reportID))
		return nil, fmt.Errorf("failed to get report record: %w", err)
	}

	return &report, nil
}
