package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/richxcame/lead-intake/pkg/common"
	"github.com/richxcame/lead-intake/pkg/logger"
)

// Service orchestrates lead scoring: it gathers submission history, runs the
// engine, persists the assessment, raises alerts for high-risk leads and
// caches results by lead fingerprint.
type Service struct {
	engine       *Engine
	repo         RepositoryInterface
	cache        ResultCache
	publisher    AlertPublisher
	historyLimit int
	now          func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithCache wires in an assessment cache
func WithCache(cache ResultCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithAlertPublisher wires in an alert publisher
func WithAlertPublisher(p AlertPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithHistoryLimit caps how many prior submissions are fetched per check
func WithHistoryLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithServiceClock overrides the service's clock for tests
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a fraud service
func NewService(engine *Engine, repo RepositoryInterface, opts ...ServiceOption) *Service {
	s := &Service{
		engine:       engine,
		repo:         repo,
		cache:        noopCache{},
		publisher:    noopPublisher{},
		historyLimit: 50,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckLead scores a lead and persists the assessment.
// When the caller supplies no history, prior submissions by the same contact
// are loaded from the repository. A lead whose fingerprint was recently
// assessed is served from cache without re-evaluation.
func (s *Service) CheckLead(ctx context.Context, req *CheckLeadRequest) (*LeadAssessment, error) {
	lead := req.Lead()
	fingerprint := Fingerprint(lead)

	if cached, ok := s.cache.Get(ctx, fingerprint); ok {
		assessmentCacheHits.Inc()
		return cached, nil
	}

	history := req.History
	if len(history) == 0 {
		loaded, err := s.repo.GetSubmissionHistory(ctx, req.ContactEmail, req.ContactPhone, s.historyLimit)
		if err != nil {
			// History is a scoring enrichment, not a prerequisite.
			logger.Warn("failed to load submission history",
				zap.String("contact_email", req.ContactEmail),
				zap.Error(err))
		} else {
			history = loaded
		}
	}

	result := s.engine.Evaluate(ctx, lead, history)
	recordAssessment(result)

	assessment := &LeadAssessment{
		ID:           uuid.New(),
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		LeadTitle:    req.Title,
		Result:       result,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.CreateAssessment(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	if err := s.repo.RecordSubmission(ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, assessment.CreatedAt); err != nil {
		logger.Warn("failed to record submission", zap.Error(err))
	}

	if result.ManualReviewRequired {
		s.raiseAlert(ctx, assessment)
	}

	s.cache.Set(ctx, fingerprint, assessment)

	return assessment, nil
}

// raiseAlert creates and publishes an alert for a high-risk assessment.
// Alert failures are logged, not returned: the assessment itself already
// carries the manual-review decision.
func (s *Service) raiseAlert(ctx context.Context, assessment *LeadAssessment) {
	score := assessment.Result.FraudScore

	alert := &FraudAlert{
		ID:           uuid.New(),
		AssessmentID: assessment.ID,
		ContactEmail: assessment.ContactEmail,
		ContactPhone: assessment.ContactPhone,
		AlertLevel:   score.RiskLevel,
		Status:       AlertStatusPending,
		Description:  fmt.Sprintf("Lead scored %d (%s risk)", score.TotalScore, score.RiskLevel),
		Details: map[string]interface{}{
			"reasons":         score.Reasons,
			"recommendations": score.Recommendations,
			"is_fraud":        assessment.Result.IsFraud,
		},
		RiskScore:  score.TotalScore,
		DetectedAt: s.now().UTC(),
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		logger.Error("failed to create fraud alert",
			zap.String("assessment_id", assessment.ID.String()),
			zap.Error(err))
		return
	}

	recordAlert(alert.AlertLevel)

	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		logger.Warn("failed to publish fraud alert",
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err))
	}
}

// GetAssessment fetches a single assessment by ID
func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*LeadAssessment, error) {
	assessment, err := s.repo.GetAssessmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("assessment not found", err)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// ListAssessments returns a page of assessments, newest first
func (s *Service) ListAssessments(ctx context.Context, limit, offset int) ([]LeadAssessment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	assessments, total, err := s.repo.ListAssessments(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	if assessments == nil {
		assessments = []LeadAssessment{}
	}
	return assessments, total, nil
}

// GetAssessmentsByContact returns a page of assessments for a contact,
// matched by email or phone, newest first.
func (s *Service) GetAssessmentsByContact(ctx context.Context, email, phone string, limit, offset int) ([]LeadAssessment, int64, error) {
	if email == "" && phone == "" {
		return nil, 0, common.NewBadRequestError("email or phone is required", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	assessments, total, err := s.repo.ListAssessmentsByContact(ctx, email, phone, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments by contact: %w", err)
	}
	if assessments == nil {
		assessments = []LeadAssessment{}
	}
	return assessments, total, nil
}

// GetPendingAlerts returns a page of alerts awaiting review
func (s *Service) GetPendingAlerts(ctx context.Context, limit, offset int) ([]FraudAlert, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := s.repo.GetPendingAlerts(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get pending alerts: %w", err)
	}
	if alerts == nil {
		alerts = []FraudAlert{}
	}
	return alerts, total, nil
}

// GetAlert fetches a single alert by ID
func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	alert, err := s.repo.GetAlertByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("alert not found", err)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// InvestigateAlert moves a pending alert into investigation
func (s *Service) InvestigateAlert(ctx context.Context, id, investigatorID uuid.UUID, req *InvestigateAlertRequest) (*FraudAlert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status != AlertStatusPending {
		return nil, common.NewConflictError("alert is not pending")
	}

	if err := s.repo.UpdateAlertStatus(ctx, id, AlertStatusInvestigating, investigatorID, req.Notes, ""); err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	return s.GetAlert(ctx, id)
}

// ResolveAlert closes an alert as confirmed fraud or a false positive
func (s *Service) ResolveAlert(ctx context.Context, id, investigatorID uuid.UUID, req *ResolveAlertRequest) (*FraudAlert, error) {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	if alert.Status == AlertStatusConfirmed || alert.Status == AlertStatusFalsePositive || alert.Status == AlertStatusResolved {
		return nil, common.NewConflictError("alert is already resolved")
	}

	status := AlertStatusFalsePositive
	if req.Confirmed {
		status = AlertStatusConfirmed
	}

	if err := s.repo.UpdateAlertStatus(ctx, id, status, investigatorID, req.Notes, req.ActionTaken); err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	return s.GetAlert(ctx, id)
}
