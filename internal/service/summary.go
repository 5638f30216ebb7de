package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/repository"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// trendStableBand is the relative change below which a trend is reported as
// stable rather than increasing or decreasing.
const trendStableBand = 0.05

// anomalyFactor flags a weekly category total as anomalous when it exceeds
// this multiple of the rolling average over the preceding weeks.
const anomalyFactor = 2.0

// SummaryService produces derived stock and usage aggregates: weekly
// summaries reconstructed from the event history, usage trends, and anomaly
// flags. All outputs are recomputable from the underlying records.
type SummaryService struct {
	medications *repository.MedicationRepository
	records     *repository.RecordRepository
	summaries   *repository.SummaryRepository
	loc         *time.Location
	logger      *zap.Logger
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	medications *repository.MedicationRepository,
	records *repository.RecordRepository,
	summaries *repository.SummaryRepository,
	loc *time.Location,
	logger *zap.Logger,
) *SummaryService {
	return &SummaryService{
		medications: medications,
		records:     records,
		summaries:   summaries,
		loc:         loc,
		logger:      logger,
	}
}

// GenerateWeeklySummary builds a summary snapshot per medication whose active
// period overlaps [periodStart, periodEnd); a medication deactivated during
// the period is still summarized. An empty serviceUserID covers every service
// user. Historical stock levels are reconstructed by walking backward from
// the current quantity through the signed stock events, so the summary never
// depends on mutable state other than the medication row itself.
func (s *SummaryService) GenerateWeeklySummary(ctx context.Context, serviceUserID string, periodStart, periodEnd time.Time) ([]model.WeeklySummary, error) {
	if !periodEnd.After(periodStart) {
		return nil, fmt.Errorf("period end must be after period start: %w", model.ErrInvalidInput)
	}

	periodStart = periodStart.In(s.loc)
	periodEnd = periodEnd.In(s.loc)

	var medications []model.ActiveMedication
	var err error
	if serviceUserID == "" {
		medications, err = s.medications.FindOverlapping(ctx, periodStart, periodEnd)
	} else {
		medications, err = s.medications.FindActiveOverlapping(ctx, serviceUserID, periodStart, periodEnd)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	summaries := make([]model.WeeklySummary, 0, len(medications))

	for _, med := range medications {
		summary, err := s.summarizeMedication(ctx, &med, periodStart, periodEnd, now)
		if err != nil {
			return nil, err
		}

		if err := s.summaries.Save(ctx, summary); err != nil {
			return nil, err
		}

		summaries = append(summaries, *summary)
	}

	s.logger.Info("weekly summaries generated",
		zap.String("service_user_id", serviceUserID),
		zap.Time("period_start", periodStart),
		zap.Time("period_end", periodEnd),
		zap.Int("medication_count", len(summaries)),
	)

	return summaries, nil
}

func (s *SummaryService) summarizeMedication(ctx context.Context, med *model.ActiveMedication, periodStart, periodEnd, now time.Time) (*model.WeeklySummary, error) {
	events, err := s.records.FindStockEventsSince(ctx, med.ID, periodStart)
	if err != nil {
		return nil, err
	}

	summary := buildSummary(med, events, periodStart, periodEnd, now)

	if summary.FinalStock < 0 {
		s.logger.Warn("reconstructed stock is negative",
			zap.String("medication_id", med.ID),
			zap.Float64("final_stock", summary.FinalStock),
			zap.Time("period_end", periodEnd),
		)
	}

	return summary, nil
}

// buildSummary aggregates the stock events of one medication into a summary
// snapshot for [periodStart, periodEnd).
func buildSummary(med *model.ActiveMedication, events []repository.StockEvent, periodStart, periodEnd, now time.Time) *model.WeeklySummary {
	// Events arrive newest first. Current stock minus everything that
	// happened after an instant is the stock at that instant.
	initialStock := med.QuantityInStock
	finalStock := med.QuantityInStock
	for _, ev := range events {
		initialStock -= ev.Delta
		if ev.Timestamp.After(periodEnd) || ev.Timestamp.Equal(periodEnd) {
			finalStock -= ev.Delta
		}
	}

	summary := &model.WeeklySummary{
		ID:             uuid.New().String(),
		ServiceUserID:  med.ServiceUserID,
		MedicationID:   med.ID,
		MedicationName: med.Name,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		InitialStock:   initialStock,
		FinalStock:     finalStock,
		DaysRemaining:  med.DaysRemaining(),
		Incomplete:     med.StartDate.After(periodStart),
		GeneratedAt:    now,
	}

	for _, ev := range events {
		if ev.Timestamp.Before(periodStart) || !ev.Timestamp.Before(periodEnd) {
			continue
		}
		summary.EntryIDs = append(summary.EntryIDs, ev.ID)
		amount := math.Abs(ev.Delta)

		switch ev.Category {
		case model.StockFromPharmacy:
			summary.FromPharmacy += amount
		case model.StockAdministered:
			summary.QuantityAdministered += amount
		case model.StockLeavingHome:
			summary.LeavingHome += amount
		case model.StockReturningHome:
			summary.ReturningHome += amount
		case model.StockReturnedToPharmacy:
			summary.ReturnedToPharmacy += amount
		case model.StockLost:
			summary.Lost += amount
		case model.StockDamaged:
			summary.Damaged += amount
		default:
			// Named buckets hold unsigned magnitudes; the catch-all keeps
			// the signed delta so it nets corrections in either direction.
			summary.Other += ev.Delta
		}
	}

	return summary
}

// GetSummaries retrieves stored summaries whose period overlaps the range
func (s *SummaryService) GetSummaries(ctx context.Context, start, end time.Time) ([]model.WeeklySummary, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("range end must be after range start: %w", model.ErrInvalidInput)
	}
	return s.summaries.FindByRange(ctx, start, end)
}

// TrendDirection labels how a usage metric moves across a window of weeks
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendMetric describes the movement of one usage metric
type TrendMetric struct {
	Direction     TrendDirection `json:"direction"`
	ChangePercent float64        `json:"change_percent"`
	Average       float64        `json:"average"`
}

// TrendReport summarizes usage movement for one medication over recent weeks
type TrendReport struct {
	MedicationID   string      `json:"medication_id"`
	MedicationName string      `json:"medication_name"`
	Weeks          int         `json:"weeks"`
	Administered   TrendMetric `json:"administered"`
	FromPharmacy   TrendMetric `json:"from_pharmacy"`
	Wastage        TrendMetric `json:"wastage"`
}

// Trends computes usage trends for a medication from its most recent stored
// summaries. The comparison splits the window in half and compares averages;
// fewer than two summaries yields a stable report.
func (s *SummaryService) Trends(ctx context.Context, medicationID string, weeks int) (*TrendReport, error) {
	if weeks <= 0 {
		weeks = 8
	}

	summaries, err := s.summaries.FindByMedication(ctx, medicationID, weeks)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("no summaries for medication %s: %w", medicationID, model.ErrNotFound)
	}

	// FindByMedication returns newest first; trend analysis wants
	// chronological order.
	chronological := make([]model.WeeklySummary, len(summaries))
	for i, sum := range summaries {
		chronological[len(summaries)-1-i] = sum
	}

	administered := make([]float64, len(chronological))
	fromPharmacy := make([]float64, len(chronological))
	wastage := make([]float64, len(chronological))
	for i, sum := range chronological {
		administered[i] = sum.QuantityAdministered
		fromPharmacy[i] = sum.FromPharmacy
		wastage[i] = sum.Lost + sum.Damaged
	}

	return &TrendReport{
		MedicationID:   medicationID,
		MedicationName: chronological[0].MedicationName,
		Weeks:          len(chronological),
		Administered:   computeTrend(administered),
		FromPharmacy:   computeTrend(fromPharmacy),
		Wastage:        computeTrend(wastage),
	}, nil
}

// computeTrend compares the average of the first half of the series against
// the second half.
func computeTrend(values []float64) TrendMetric {
	metric := TrendMetric{
		Direction: TrendStable,
		Average:   mean(values),
	}
	if len(values) < 2 {
		return metric
	}

	mid := len(values) / 2
	firstHalf := mean(values[:mid])
	secondHalf := mean(values[mid:])

	if firstHalf == 0 {
		if secondHalf > 0 {
			metric.Direction = TrendIncreasing
			metric.ChangePercent = 100
		}
		return metric
	}

	change := (secondHalf - firstHalf) / firstHalf
	metric.ChangePercent = change * 100

	switch {
	case change > trendStableBand:
		metric.Direction = TrendIncreasing
	case change < -trendStableBand:
		metric.Direction = TrendDecreasing
	}

	return metric
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// AnomalyType classifies a detected anomaly
type AnomalyType string

const (
	AnomalySpike         AnomalyType = "category-spike"
	AnomalyNegativeStock AnomalyType = "negative-stock"
)

// Anomaly flags a week whose stock movement looks wrong
type Anomaly struct {
	Type      AnomalyType         `json:"type"`
	Category  model.StockCategory `json:"category,omitempty"`
	WeekStart time.Time           `json:"week_start"`
	Observed  float64             `json:"observed"`
	Expected  float64             `json:"expected"`
	Message   string              `json:"message"`
}

// Anomalies scans a medication's stored summaries for weeks where a category
// total exceeds twice the rolling average of the preceding weeks, or where
// the reconstructed stock went negative. Flags are advisory; nothing is
// blocked or mutated.
func (s *SummaryService) Anomalies(ctx context.Context, medicationID string, weeks int) ([]Anomaly, error) {
	if weeks <= 0 {
		weeks = 12
	}

	summaries, err := s.summaries.FindByMedication(ctx, medicationID, weeks)
	if err != nil {
		return nil, err
	}

	chronological := make([]model.WeeklySummary, len(summaries))
	for i, sum := range summaries {
		chronological[len(summaries)-1-i] = sum
	}

	var anomalies []Anomaly
	categories := []struct {
		category model.StockCategory
		value    func(model.WeeklySummary) float64
	}{
		{model.StockAdministered, func(w model.WeeklySummary) float64 { return w.QuantityAdministered }},
		{model.StockFromPharmacy, func(w model.WeeklySummary) float64 { return w.FromPharmacy }},
		{model.StockLost, func(w model.WeeklySummary) float64 { return w.Lost }},
		{model.StockDamaged, func(w model.WeeklySummary) float64 { return w.Damaged }},
		{model.StockLeavingHome, func(w model.WeeklySummary) float64 { return w.LeavingHome }},
	}

	for i, week := range chronological {
		if week.FinalStock < 0 {
			anomalies = append(anomalies, Anomaly{
				Type:      AnomalyNegativeStock,
				WeekStart: week.PeriodStart,
				Observed:  week.FinalStock,
				Message:   fmt.Sprintf("reconstructed stock for %s is negative (%.2f)", week.MedicationName, week.FinalStock),
			})
		}

		if i == 0 {
			continue
		}

		for _, c := range categories {
			var total float64
			for _, prior := range chronological[:i] {
				total += c.value(prior)
			}
			rolling := total / float64(i)
			observed := c.value(week)

			if rolling > 0 && observed > anomalyFactor*rolling {
				anomalies = append(anomalies, Anomaly{
					Type:      AnomalySpike,
					Category:  c.category,
					WeekStart: week.PeriodStart,
					Observed:  observed,
					Expected:  rolling,
					Message: fmt.Sprintf("%s total %.2f for %s exceeds twice the rolling average %.2f",
						c.category, observed, week.MedicationName, rolling),
				})
			}
		}
	}

	if len(anomalies) > 0 {
		s.logger.Warn("stock anomalies detected",
			zap.String("medication_id", medicationID),
			zap.Int("count", len(anomalies)),
		)
	}

	return anomalies, nil
}
