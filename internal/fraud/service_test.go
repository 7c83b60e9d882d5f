package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/lead-intake/pkg/common"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateAssessment(ctx context.Context, assessment *LeadAssessment) error {
	args := m.Called(ctx, assessment)
	return args.Error(0)
}

func (m *mockRepository) GetAssessmentByID(ctx context.Context, id uuid.UUID) (*LeadAssessment, error) {
	args := m.Called(ctx, id)
	assessment, _ := args.Get(0).(*LeadAssessment)
	return assessment, args.Error(1)
}

func (m *mockRepository) ListAssessments(ctx context.Context, limit, offset int) ([]LeadAssessment, int64, error) {
	args := m.Called(ctx, limit, offset)
	assessments, _ := args.Get(0).([]LeadAssessment)
	return assessments, int64(args.Int(1)), args.Error(2)
}

func (m *mockRepository) ListAssessmentsByContact(ctx context.Context, email, phone string, limit, offset int) ([]LeadAssessment, int64, error) {
	args := m.Called(ctx, email, phone, limit, offset)
	assessments, _ := args.Get(0).([]LeadAssessment)
	return assessments, int64(args.Int(1)), args.Error(2)
}

func (m *mockRepository) RecordSubmission(ctx context.Context, email, phone, title, description string, at time.Time) error {
	args := m.Called(ctx, email, phone, title, description, at)
	return args.Error(0)
}

func (m *mockRepository) GetSubmissionHistory(ctx context.Context, email, phone string, limit int) ([]SubmissionHistoryEntry, error) {
	args := m.Called(ctx, email, phone, limit)
	entries, _ := args.Get(0).([]SubmissionHistoryEntry)
	return entries, args.Error(1)
}

func (m *mockRepository) CreateAlert(ctx context.Context, alert *FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *mockRepository) GetAlertByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	args := m.Called(ctx, id)
	alert, _ := args.Get(0).(*FraudAlert)
	return alert, args.Error(1)
}

func (m *mockRepository) GetPendingAlerts(ctx context.Context, limit, offset int) ([]FraudAlert, int64, error) {
	args := m.Called(ctx, limit, offset)
	alerts, _ := args.Get(0).([]FraudAlert)
	return alerts, int64(args.Int(1)), args.Error(2)
}

func (m *mockRepository) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status FraudAlertStatus, investigatorID uuid.UUID, notes, actionTaken string) error {
	args := m.Called(ctx, id, status, investigatorID, notes, actionTaken)
	return args.Error(0)
}

// mockPublisher implements AlertPublisher for testing
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAlert(ctx context.Context, alert *FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// stubCache is a pre-seeded in-memory cache
type stubCache struct {
	entries map[string]*LeadAssessment
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*LeadAssessment)}
}

func (c *stubCache) Get(ctx context.Context, fingerprint string) (*LeadAssessment, bool) {
	assessment, ok := c.entries[fingerprint]
	return assessment, ok
}

func (c *stubCache) Set(ctx context.Context, fingerprint string, assessment *LeadAssessment) {
	c.entries[fingerprint] = assessment
	c.sets++
}

func testEngine() *Engine {
	return NewEngine(DefaultRuleConfig(), WithClock(fixedClock()))
}

func cleanRequest() *CheckLeadRequest {
	lead := cleanLead()
	return &CheckLeadRequest{
		ContactPhone:   lead.ContactPhone,
		ContactEmail:   lead.ContactEmail,
		Address:        lead.Address,
		LocationSuburb: lead.LocationSuburb,
		LocationCity:   lead.LocationCity,
		Title:          lead.Title,
		Description:    lead.Description,
		Urgency:        string(lead.Urgency),
	}
}

func riskyRequest() *CheckLeadRequest {
	lead := riskyLead()
	return &CheckLeadRequest{
		ContactPhone:   lead.ContactPhone,
		ContactEmail:   lead.ContactEmail,
		Address:        lead.Address,
		LocationSuburb: lead.LocationSuburb,
		LocationCity:   lead.LocationCity,
		Title:          lead.Title,
		Description:    lead.Description,
		Urgency:        string(lead.Urgency),
	}
}

// ============================================================
// CheckLead
// ============================================================

func TestCheckLead_CleanLeadAutoApproved(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	req := cleanRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.MatchedBy(func(a *LeadAssessment) bool {
		return a.Result.AutoApprove && a.Result.FraudScore.TotalScore == 0
	})).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	require.NotNil(t, assessment)
	assert.Equal(t, RiskLevelLow, assessment.Result.FraudScore.RiskLevel)
	assert.True(t, assessment.Result.AutoApprove)
	assert.NotEqual(t, uuid.Nil, assessment.ID)
	repo.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestCheckLead_HighRiskRaisesAlert(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	publisher := new(mockPublisher)
	service := NewService(testEngine(), repo, WithAlertPublisher(publisher))
	req := riskyRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()
	repo.On("CreateAlert", ctx, mock.MatchedBy(func(a *FraudAlert) bool {
		return a.Status == AlertStatusPending &&
			a.AlertLevel == RiskLevelCritical &&
			a.RiskScore == 100 &&
			a.ContactEmail == req.ContactEmail
	})).Return(nil).Once()
	publisher.On("PublishAlert", ctx, mock.Anything).Return(nil).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	assert.True(t, assessment.Result.IsFraud)
	assert.True(t, assessment.Result.ManualReviewRequired)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCheckLead_SuppliedHistorySkipsLookup(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)

	req := cleanRequest()
	req.History = []SubmissionHistoryEntry{
		{CreatedAt: fixedClock()().Add(-48 * time.Hour), Title: "earlier", Description: "earlier body"},
	}

	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()

	_, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetSubmissionHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestCheckLead_HistoryLookupFailureDoesNotBlockScoring(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	req := cleanRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return(nil, errors.New("db timeout")).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	assert.True(t, assessment.Result.AutoApprove)
	repo.AssertExpectations(t)
}

func TestCheckLead_CacheHitSkipsEvaluation(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	cache := newStubCache()
	service := NewService(testEngine(), repo, WithCache(cache))

	req := cleanRequest()
	cached := &LeadAssessment{ID: uuid.New(), ContactEmail: req.ContactEmail}
	cache.entries[Fingerprint(req.Lead())] = cached

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, cached.ID, assessment.ID)
	repo.AssertNotCalled(t, "CreateAssessment", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "GetSubmissionHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckLead_ResultIsCached(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	cache := newStubCache()
	service := NewService(testEngine(), repo, WithCache(cache))
	req := cleanRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	cachedEntry, ok := cache.Get(ctx, Fingerprint(req.Lead()))
	require.True(t, ok)
	assert.Equal(t, assessment.ID, cachedEntry.ID)
	repo.AssertExpectations(t)
}

func TestCheckLead_PersistFailureReturnsError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	req := cleanRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(errors.New("insert failed")).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.Error(t, err)
	assert.Nil(t, assessment)
	assert.Contains(t, err.Error(), "create assessment")
	repo.AssertExpectations(t)
}

func TestCheckLead_AlertFailureDoesNotFailCheck(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	req := riskyRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 50).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()
	repo.On("CreateAlert", ctx, mock.Anything).Return(errors.New("alerts table locked")).Once()

	assessment, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	assert.True(t, assessment.Result.ManualReviewRequired)
	repo.AssertExpectations(t)
}

func TestCheckLead_HistoryLimitOption(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo, WithHistoryLimit(10))
	req := cleanRequest()

	repo.On("GetSubmissionHistory", ctx, req.ContactEmail, req.ContactPhone, 10).Return([]SubmissionHistoryEntry{}, nil).Once()
	repo.On("CreateAssessment", ctx, mock.Anything).Return(nil).Once()
	repo.On("RecordSubmission", ctx, req.ContactEmail, req.ContactPhone, req.Title, req.Description, mock.Anything).Return(nil).Once()

	_, err := service.CheckLead(ctx, req)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// ============================================================
// Assessments
// ============================================================

func TestGetAssessment_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	id := uuid.New()

	repo.On("GetAssessmentByID", ctx, id).Return(nil, pgx.ErrNoRows).Once()

	assessment, err := service.GetAssessment(ctx, id)

	require.Error(t, err)
	assert.Nil(t, assessment)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
	repo.AssertExpectations(t)
}

func TestListAssessments_ClampsPagination(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)

	repo.On("ListAssessments", ctx, 20, 0).Return([]LeadAssessment{}, 0, nil).Once()

	assessments, total, err := service.ListAssessments(ctx, -5, -1)

	require.NoError(t, err)
	assert.NotNil(t, assessments)
	assert.Equal(t, int64(0), total)
	repo.AssertExpectations(t)
}

func TestGetAssessmentsByContact_RequiresContact(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)

	assessments, total, err := service.GetAssessmentsByContact(ctx, "", "", 20, 0)

	require.Error(t, err)
	assert.Nil(t, assessments)
	assert.Equal(t, int64(0), total)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
	repo.AssertNotCalled(t, "ListAssessmentsByContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetAssessmentsByContact_ByEmail(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)

	stored := []LeadAssessment{{ID: uuid.New(), ContactEmail: "jane.doe@webmail.co.za"}}
	repo.On("ListAssessmentsByContact", ctx, "jane.doe@webmail.co.za", "", 20, 0).Return(stored, 1, nil).Once()

	assessments, total, err := service.GetAssessmentsByContact(ctx, "jane.doe@webmail.co.za", "", -3, -1)

	require.NoError(t, err)
	require.Len(t, assessments, 1)
	assert.Equal(t, stored[0].ID, assessments[0].ID)
	assert.Equal(t, int64(1), total)
	repo.AssertExpectations(t)
}

// ============================================================
// Alert workflow
// ============================================================

func pendingAlert(id uuid.UUID) *FraudAlert {
	return &FraudAlert{
		ID:           id,
		AssessmentID: uuid.New(),
		ContactEmail: "winner@mailinator.com",
		AlertLevel:   RiskLevelHigh,
		Status:       AlertStatusPending,
		RiskScore:    85,
		DetectedAt:   time.Now(),
	}
}

func TestInvestigateAlert_Success(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	alertID := uuid.New()
	investigatorID := uuid.New()

	investigating := pendingAlert(alertID)
	investigating.Status = AlertStatusInvestigating

	repo.On("GetAlertByID", ctx, alertID).Return(pendingAlert(alertID), nil).Once()
	repo.On("UpdateAlertStatus", ctx, alertID, AlertStatusInvestigating, investigatorID, "checking submission trail", "").Return(nil).Once()
	repo.On("GetAlertByID", ctx, alertID).Return(investigating, nil).Once()

	alert, err := service.InvestigateAlert(ctx, alertID, investigatorID, &InvestigateAlertRequest{Notes: "checking submission trail"})

	require.NoError(t, err)
	assert.Equal(t, AlertStatusInvestigating, alert.Status)
	repo.AssertExpectations(t)
}

func TestInvestigateAlert_NotPending(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	alertID := uuid.New()

	resolved := pendingAlert(alertID)
	resolved.Status = AlertStatusConfirmed

	repo.On("GetAlertByID", ctx, alertID).Return(resolved, nil).Once()

	alert, err := service.InvestigateAlert(ctx, alertID, uuid.New(), &InvestigateAlertRequest{})

	require.Error(t, err)
	assert.Nil(t, alert)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.StatusCode)
	repo.AssertNotCalled(t, "UpdateAlertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveAlert_Confirmed(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	alertID := uuid.New()
	investigatorID := uuid.New()

	confirmed := pendingAlert(alertID)
	confirmed.Status = AlertStatusConfirmed

	repo.On("GetAlertByID", ctx, alertID).Return(pendingAlert(alertID), nil).Once()
	repo.On("UpdateAlertStatus", ctx, alertID, AlertStatusConfirmed, investigatorID, "duplicate ring", "blocked contact").Return(nil).Once()
	repo.On("GetAlertByID", ctx, alertID).Return(confirmed, nil).Once()

	alert, err := service.ResolveAlert(ctx, alertID, investigatorID, &ResolveAlertRequest{
		Confirmed:   true,
		Notes:       "duplicate ring",
		ActionTaken: "blocked contact",
	})

	require.NoError(t, err)
	assert.Equal(t, AlertStatusConfirmed, alert.Status)
	repo.AssertExpectations(t)
}

func TestResolveAlert_FalsePositive(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	alertID := uuid.New()
	investigatorID := uuid.New()

	cleared := pendingAlert(alertID)
	cleared.Status = AlertStatusFalsePositive

	repo.On("GetAlertByID", ctx, alertID).Return(pendingAlert(alertID), nil).Once()
	repo.On("UpdateAlertStatus", ctx, alertID, AlertStatusFalsePositive, investigatorID, "legitimate customer", "").Return(nil).Once()
	repo.On("GetAlertByID", ctx, alertID).Return(cleared, nil).Once()

	alert, err := service.ResolveAlert(ctx, alertID, investigatorID, &ResolveAlertRequest{
		Confirmed: false,
		Notes:     "legitimate customer",
	})

	require.NoError(t, err)
	assert.Equal(t, AlertStatusFalsePositive, alert.Status)
	repo.AssertExpectations(t)
}

func TestResolveAlert_AlreadyResolved(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)
	alertID := uuid.New()

	done := pendingAlert(alertID)
	done.Status = AlertStatusFalsePositive

	repo.On("GetAlertByID", ctx, alertID).Return(done, nil).Once()

	alert, err := service.ResolveAlert(ctx, alertID, uuid.New(), &ResolveAlertRequest{Confirmed: true})

	require.Error(t, err)
	assert.Nil(t, alert)
	repo.AssertNotCalled(t, "UpdateAlertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetPendingAlerts_NilBecomesEmptySlice(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	service := NewService(testEngine(), repo)

	repo.On("GetPendingAlerts", ctx, 20, 0).Return(nil, 0, nil).Once()

	alerts, total, err := service.GetPendingAlerts(ctx, 20, 0)

	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Len(t, alerts, 0)
	assert.Equal(t, int64(0), total)
	repo.AssertExpectations(t)
}
