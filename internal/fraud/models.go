package fraud

import (
	"time"

	"github.com/google/uuid"
)

// Urgency represents the submitter's declared timing for the requested service
type Urgency string

const (
	UrgencyUrgent    Urgency = "urgent"
	UrgencyThisWeek  Urgency = "this_week"
	UrgencyThisMonth Urgency = "this_month"
	UrgencyFlexible  Urgency = "flexible"
)

// RiskLevel represents the risk classification of a scored lead
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Risk thresholds. Classification is descending-first-match, and the decision
// booleans are derived from the same constants.
const (
	thresholdLow      = 30
	thresholdMedium   = 60
	thresholdHigh     = 80
	thresholdCritical = 90
)

// RiskLevelFromScore derives the risk level from a total score (0-100)
func RiskLevelFromScore(score int) RiskLevel {
	switch {
	case score >= thresholdCritical:
		return RiskLevelCritical
	case score >= thresholdHigh:
		return RiskLevelHigh
	case score >= thresholdMedium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Lead is a normalized service-request submission under evaluation
type Lead struct {
	ContactPhone   string     `json:"contact_phone"`
	ContactEmail   string     `json:"contact_email"`
	Address        string     `json:"address"`
	LocationSuburb string     `json:"location_suburb"`
	LocationCity   string     `json:"location_city"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Urgency        Urgency    `json:"urgency"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

// SubmissionHistoryEntry is one prior submission by the same contact.
// Entries may arrive in any order; evaluators select by timestamp.
type SubmissionHistoryEntry struct {
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// PartialScore is the contribution of a single evaluator
type PartialScore struct {
	Score           int      `json:"score"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

// FraudScore is the aggregated, clamped score with its derived risk level
type FraudScore struct {
	TotalScore      int       `json:"total_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Reasons         []string  `json:"reasons"`
	Recommendations []string  `json:"recommendations"`
}

// FraudDetectionResult is the full outcome returned to the ingestion pipeline.
// The decision booleans are functions of the total score alone: two leads with
// the same score receive identical decisions regardless of which rules fired.
type FraudDetectionResult struct {
	IsFraud              bool       `json:"is_fraud"`
	FraudScore           FraudScore `json:"fraud_score"`
	VerificationRequired bool       `json:"verification_required"`
	ManualReviewRequired bool       `json:"manual_review_required"`
	AutoApprove          bool       `json:"auto_approve"`
}

// LeadAssessment is a persisted fraud evaluation of a single lead
type LeadAssessment struct {
	ID           uuid.UUID            `json:"id"`
	ContactEmail string               `json:"contact_email"`
	ContactPhone string               `json:"contact_phone"`
	LeadTitle    string               `json:"lead_title"`
	Result       FraudDetectionResult `json:"result"`
	CreatedAt    time.Time            `json:"created_at"`
}

// FraudAlertStatus represents the review status of a fraud alert
type FraudAlertStatus string

const (
	AlertStatusPending       FraudAlertStatus = "pending"
	AlertStatusInvestigating FraudAlertStatus = "investigating"
	AlertStatusConfirmed     FraudAlertStatus = "confirmed"
	AlertStatusFalsePositive FraudAlertStatus = "false_positive"
	AlertStatusResolved      FraudAlertStatus = "resolved"
)

// FraudAlert represents a lead flagged for manual review
type FraudAlert struct {
	ID             uuid.UUID              `json:"id"`
	AssessmentID   uuid.UUID              `json:"assessment_id"`
	ContactEmail   string                 `json:"contact_email"`
	ContactPhone   string                 `json:"contact_phone"`
	AlertLevel     RiskLevel              `json:"alert_level"`
	Status         FraudAlertStatus       `json:"status"`
	Description    string                 `json:"description"`
	Details        map[string]interface{} `json:"details"`
	RiskScore      int                    `json:"risk_score"`
	DetectedAt     time.Time              `json:"detected_at"`
	InvestigatedAt *time.Time             `json:"investigated_at,omitempty"`
	InvestigatedBy *uuid.UUID             `json:"investigated_by,omitempty"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	ActionTaken    string                 `json:"action_taken,omitempty"`
}

// CheckLeadRequest is the inbound payload for a fraud check.
// Contact fields are deliberately not required: missing data is treated as a
// risk signal by the engine, not as a malformed request.
type CheckLeadRequest struct {
	ContactPhone   string                   `json:"contact_phone"`
	ContactEmail   string                   `json:"contact_email"`
	Address        string                   `json:"address"`
	LocationSuburb string                   `json:"location_suburb"`
	LocationCity   string                   `json:"location_city"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description"`
	Urgency        string                   `json:"urgency" validate:"omitempty,urgency"`
	SubmittedAt    *time.Time               `json:"submitted_at,omitempty"`
	History        []SubmissionHistoryEntry `json:"history,omitempty"`
}

// Lead converts the request into the engine's input record
func (r *CheckLeadRequest) Lead() *Lead {
	return &Lead{
		ContactPhone:   r.ContactPhone,
		ContactEmail:   r.ContactEmail,
		Address:        r.Address,
		LocationSuburb: r.LocationSuburb,
		LocationCity:   r.LocationCity,
		Title:          r.Title,
		Description:    r.Description,
		Urgency:        Urgency(r.Urgency),
		SubmittedAt:    r.SubmittedAt,
	}
}

// InvestigateAlertRequest marks an alert as under investigation
type InvestigateAlertRequest struct {
	Notes string `json:"notes"`
}

// ResolveAlertRequest closes out an alert
type ResolveAlertRequest struct {
	Confirmed   bool   `json:"confirmed"`
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken"`
}
