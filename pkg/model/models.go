package model

import "time"

// ServiceUser represents a person receiving care
type ServiceUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	GroupID   *string    `json:"group_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Group represents a care group of service users
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveMedication represents a prescription instance for one service user
type ActiveMedication struct {
	ID                  string     `json:"id"`
	ServiceUserID       string     `json:"service_user_id"`
	Name                string     `json:"name"`
	DoseAmount          float64    `json:"dose_amount"`
	DoseUnit            string     `json:"dose_unit"`
	QuantityInStock     float64    `json:"quantity_in_stock"`
	QuantityPerDose     float64    `json:"quantity_per_dose"`
	DosesPerDay         int        `json:"doses_per_day"`
	Frequency           string     `json:"frequency"`
	AdministrationTimes []string   `json:"administration_times,omitempty"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Prescriber          string     `json:"prescriber,omitempty"`
	Active              bool       `json:"active"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// DaysRemaining returns how many full days of doses the current stock covers.
// A medication consuming nothing per day reports zero rather than dividing by zero.
func (m *ActiveMedication) DaysRemaining() int {
	perDay := m.QuantityPerDose * float64(m.DosesPerDay)
	if perDay <= 0 || m.QuantityInStock <= 0 {
		return 0
	}
	return int(m.QuantityInStock / perDay)
}

// SettingsScope represents the scope of an administration settings record
type SettingsScope string

const (
	ScopeGlobal SettingsScope = "global"
	ScopeGroup  SettingsScope = "group"
)

// AdministrationSettings holds the before/after tolerance thresholds (minutes)
// applied around scheduled administration times. At most one record exists per
// scope: one global record and one per group. Group settings override global
// for service users belonging to that group.
type AdministrationSettings struct {
	ID              string        `json:"id"`
	Scope           SettingsScope `json:"scope"`
	GroupID         *string       `json:"group_id,omitempty"`
	ThresholdBefore int           `json:"threshold_before"`
	ThresholdAfter  int           `json:"threshold_after"`
	UpdatedBy       string        `json:"updated_by,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Outcome represents the recorded outcome of an administration attempt
type Outcome string

const (
	OutcomeAdministered   Outcome = "administered"
	OutcomeRefused        Outcome = "refused"
	OutcomeNauseaVomiting Outcome = "nausea-vomiting"
	OutcomeHospital       Outcome = "hospital"
	OutcomeOnLeave        Outcome = "on-leave"
	OutcomeDestroyed      Outcome = "destroyed"
	OutcomeSleeping       Outcome = "sleeping"
	OutcomePulseAbnormal  Outcome = "pulse-abnormal"
	OutcomeNotRequired    Outcome = "not-required"
	OutcomeMissed         Outcome = "missed"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeOther          Outcome = "other"
)

// AdministrationRecord is an append-only record of a dispense event.
// Records are never mutated or deleted once created.
type AdministrationRecord struct {
	ID            string    `json:"id"`
	ServiceUserID string    `json:"service_user_id"`
	MedicationID  string    `json:"medication_id"`
	Quantity      float64   `json:"quantity"`
	Outcome       Outcome   `json:"outcome"`
	Notes         *string   `json:"notes,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CreatedAt     time.Time `json:"created_at"`
}

// UpdateType classifies a medication audit trail entry
type UpdateType string

const (
	UpdateNewMedication UpdateType = "new_medication"
	UpdateStockIncrease UpdateType = "stock_increase"
	UpdateStockDecrease UpdateType = "stock_decrease"
	UpdateActivated     UpdateType = "activated"
	UpdateDeactivated   UpdateType = "deactivated"
	UpdateFieldChange   UpdateType = "field_change"
)

// StockCategory is the reason a medication's stock quantity changed
type StockCategory string

const (
	StockFromPharmacy       StockCategory = "fromPharmacy"
	StockAdministered       StockCategory = "administered"
	StockLeavingHome        StockCategory = "leavingHome"
	StockReturningHome      StockCategory = "returningHome"
	StockReturnedToPharmacy StockCategory = "returnedToPharmacy"
	StockLost               StockCategory = "lost"
	StockDamaged            StockCategory = "damaged"
	StockOther              StockCategory = "other"
)

// Delta returns the signed stock change for the given absolute quantity.
// Receiving from the pharmacy and returning home add stock; everything else
// removes it. "other" is passed through as signed by the caller.
func (c StockCategory) Delta(quantity float64) float64 {
	switch c {
	case StockFromPharmacy, StockReturningHome:
		return quantity
	case StockOther:
		return quantity
	default:
		return -quantity
	}
}

// FieldChange captures a single field-level change in an audit entry
type FieldChange struct {
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// MedicationUpdate is an append-only audit trail entry for a medication.
// Entries are never mutated or deleted by this service.
type MedicationUpdate struct {
	ID            string                 `json:"id"`
	MedicationID  string                 `json:"medication_id"`
	ServiceUserID string                 `json:"service_user_id"`
	ActorID       string                 `json:"actor_id,omitempty"`
	Type          UpdateType             `json:"type"`
	Category      *StockCategory         `json:"category,omitempty"`
	QuantityDelta float64                `json:"quantity_delta"`
	Changes       map[string]FieldChange `json:"changes,omitempty"`
	Note          *string                `json:"note,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// WeeklySummary is a derived stock/usage aggregate for one medication over a
// date range. Each generation is a fresh snapshot tied to its range; snapshots
// with overlapping ranges may coexist.
type WeeklySummary struct {
	ID                   string    `json:"id"`
	ServiceUserID        string    `json:"service_user_id"`
	MedicationID         string    `json:"medication_id"`
	MedicationName       string    `json:"medication_name"`
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
	InitialStock         float64   `json:"initial_stock"`
	FinalStock           float64   `json:"final_stock"`
	FromPharmacy         float64   `json:"from_pharmacy"`
	QuantityAdministered float64   `json:"quantity_administered"`
	LeavingHome          float64   `json:"leaving_home"`
	ReturningHome        float64   `json:"returning_home"`
	ReturnedToPharmacy   float64   `json:"returned_to_pharmacy"`
	Lost                 float64   `json:"lost"`
	Damaged              float64   `json:"damaged"`
	Other                float64   `json:"other"`
	DaysRemaining        int       `json:"days_remaining"`
	Incomplete           bool      `json:"incomplete"`
	EntryIDs             []string  `json:"entry_ids,omitempty"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Report represents a generated MAR report archived in blob storage
type Report struct {
	ID             string    `json:"id"`
	ServiceUserID  string    `json:"service_user_id"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	FilePath       string    `json:"file_path"`
	GeneratedAt    time.Time `json:"generated_at"`
	CreatedAt      time.Time `json:"created_at"`
}
