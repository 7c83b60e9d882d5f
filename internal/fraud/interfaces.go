package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the contract for fraud repository operations
type RepositoryInterface interface {
	// Assessment operations
	CreateAssessment(ctx context.Context, assessment *LeadAssessment) error
	GetAssessmentByID(ctx context.Context, id uuid.UUID) (*LeadAssessment, error)
	ListAssessments(ctx context.Context, limit, offset int) ([]LeadAssessment, int64, error)
	ListAssessmentsByContact(ctx context.Context, email, phone string, limit, offset int) ([]LeadAssessment, int64, error)

	// Submission history operations
	RecordSubmission(ctx context.Context, email, phone, title, description string, at time.Time) error
	GetSubmissionHistory(ctx context.Context, email, phone string, limit int) ([]SubmissionHistoryEntry, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert *FraudAlert) error
	GetAlertByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	GetPendingAlerts(ctx context.Context, limit, offset int) ([]FraudAlert, int64, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status FraudAlertStatus, investigatorID uuid.UUID, notes, actionTaken string) error
}

// ResultCache caches assessments keyed by lead fingerprint so resubmitted
// identical leads skip re-evaluation.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*LeadAssessment, bool)
	Set(ctx context.Context, fingerprint string, assessment *LeadAssessment)
}

// AlertPublisher notifies downstream consumers of new fraud alerts
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *FraudAlert) error
}
