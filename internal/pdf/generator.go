package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/caredose/medadmin-backend/internal/schedule"
	"github.com/caredose/medadmin-backend/pkg/model"
)

// PDFGenerator renders MAR charts as printable PDF documents
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// MedicationChart is the reconciled schedule of one medication across the
// report range, keyed by date string.
type MedicationChart struct {
	Medication model.ActiveMedication
	Days       map[string][]schedule.SlotResult
}

// ReportData contains all data needed for MAR report generation
type ReportData struct {
	ServiceUserName string
	FacilityName    string
	DateRange       string
	Dates           []string
	Charts          []MedicationChart
	Summaries       []model.WeeklySummary
}

// statusGlyph maps a reconciled slot status to the mark printed in the chart
// grid. The legend below the grid explains the marks.
func statusGlyph(status schedule.SlotStatus) string {
	switch status {
	case schedule.StatusOnTime:
		return "X"
	case schedule.StatusLate:
		return "L"
	case schedule.StatusMissed:
		return "M"
	default:
		return "-"
	}
}

// Generate creates a MAR chart PDF from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating MAR report PDF",
		zap.String("service_user", data.ServiceUserName),
		zap.String("date_range", data.DateRange),
		zap.Int("medication_count", len(data.Charts)),
	)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	pdf.AddPage()

	g.addTitle(pdf, "Medication Administration Record", data)

	for _, chart := range data.Charts {
		g.addMedicationChart(pdf, chart, data.Dates)
	}

	g.addLegend(pdf)
	g.addStockSummary(pdf, data.Summaries)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("MAR report PDF generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and header information
func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, title string, data *ReportData) {
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Service User: %s", data.ServiceUserName), "", 1, "L", false, 0, "")
	if data.FacilityName != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Facility: %s", data.FacilityName), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("Period: %s", data.DateRange), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// addMedicationChart renders the date-by-time grid for one medication.
// Rows are the medication's scheduled times, columns the report dates.
func (g *PDFGenerator) addMedicationChart(pdf *gofpdf.Fpdf, chart MedicationChart, dates []string) {
	med := chart.Medication

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	header := fmt.Sprintf("%s  (%.4g %s per dose, %dx daily)", med.Name, med.DoseAmount, med.DoseUnit, med.DosesPerDay)
	pdf.CellFormat(0, 9, header, "", 1, "L", true, 0, "")
	pdf.Ln(2)

	if len(med.AdministrationTimes) == 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, "No administration schedule configured.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	timeColWidth := 22.0
	dateColWidth := (267.0 - timeColWidth) / float64(len(dates))
	if dateColWidth > 25 {
		dateColWidth = 25
	}

	// Header row: dates as day numbers
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(timeColWidth, 7, "Time", "1", 0, "C", false, 0, "")
	for _, date := range dates {
		label := date
		if t, err := time.Parse("2006-01-02", date); err == nil {
			label = t.Format("02 Jan")
		}
		pdf.CellFormat(dateColWidth, 7, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	// One row per scheduled time, reading each day's slot results in order.
	// Slot i of a day corresponds to scheduled time i because both are sorted.
	pdf.SetFont("Arial", "", 9)
	for i, schedTime := range med.AdministrationTimes {
		pdf.CellFormat(timeColWidth, 7, schedTime, "1", 0, "C", false, 0, "")
		for _, date := range dates {
			glyph := ""
			if slots := chart.Days[date]; i < len(slots) {
				glyph = statusGlyph(slots[i].Status)
			}
			pdf.CellFormat(dateColWidth, 7, glyph, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(5)
}

// addLegend explains the chart glyphs
func (g *PDFGenerator) addLegend(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 7, "Legend", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "X = administered on time    L = administered late    M = missed    - = pending", "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

// addStockSummary adds the stock movement section
func (g *PDFGenerator) addStockSummary(pdf *gofpdf.Fpdf, summaries []model.WeeklySummary) {
	if len(summaries) == 0 {
		return
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 9, "Stock Summary", "", 1, "L", true, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	for _, s := range summaries {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 6, s.MedicationName, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("  Opening stock: %.2f    Closing stock: %.2f    Days remaining: %d",
			s.InitialStock, s.FinalStock, s.DaysRemaining), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("  Received: %.2f    Administered: %.2f    Returned: %.2f    Lost/Damaged: %.2f",
			s.FromPharmacy, s.QuantityAdministered, s.ReturnedToPharmacy, s.Lost+s.Damaged), "", 1, "L", false, 0, "")
		if s.Incomplete {
			pdf.CellFormat(0, 5, "  Note: history does not cover the full period; opening stock is partial.", "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
	}
	pdf.Ln(3)
}
