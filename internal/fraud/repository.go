package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles fraud assessment data operations
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAssessment persists a lead assessment. The full detection result is
// stored as JSONB so the score breakdown survives rule changes.
func (r *Repository) CreateAssessment(ctx context.Context, assessment *LeadAssessment) error {
	resultJSON, err := json.Marshal(assessment.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lead_assessments (
			id, contact_email, contact_phone, lead_title, total_score,
			risk_level, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Exec(ctx, query,
		assessment.ID,
		assessment.ContactEmail,
		assessment.ContactPhone,
		assessment.LeadTitle,
		assessment.Result.FraudScore.TotalScore,
		assessment.Result.FraudScore.RiskLevel,
		resultJSON,
		assessment.CreatedAt,
	)

	return err
}

// GetAssessmentByID retrieves an assessment by ID
func (r *Repository) GetAssessmentByID(ctx context.Context, id uuid.UUID) (*LeadAssessment, error) {
	query := `
		SELECT id, contact_email, contact_phone, lead_title, result, created_at
		FROM lead_assessments
		WHERE id = $1
	`

	var assessment LeadAssessment
	var resultJSON []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&assessment.ID,
		&assessment.ContactEmail,
		&assessment.ContactPhone,
		&assessment.LeadTitle,
		&resultJSON,
		&assessment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resultJSON, &assessment.Result); err != nil {
		return nil, err
	}

	return &assessment, nil
}

// ListAssessments retrieves a page of assessments with the total count
func (r *Repository) ListAssessments(ctx context.Context, limit, offset int) ([]LeadAssessment, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM lead_assessments`
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, contact_email, contact_phone, lead_title, result, created_at
		FROM lead_assessments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assessments := make([]LeadAssessment, 0)
	for rows.Next() {
		var assessment LeadAssessment
		var resultJSON []byte

		err := rows.Scan(
			&assessment.ID,
			&assessment.ContactEmail,
			&assessment.ContactPhone,
			&assessment.LeadTitle,
			&resultJSON,
			&assessment.CreatedAt,
		)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(resultJSON, &assessment.Result); err != nil {
			continue
		}

		assessments = append(assessments, assessment)
	}

	return assessments, total, nil
}

// ListAssessmentsByContact retrieves a page of assessments matching the
// contact's email or phone, newest first, with the total count.
func (r *Repository) ListAssessmentsByContact(ctx context.Context, email, phone string, limit, offset int) ([]LeadAssessment, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM lead_assessments
		WHERE (contact_email = $1 AND $1 <> '') OR (contact_phone = $2 AND $2 <> '')
	`
	if err := r.db.QueryRow(ctx, countQuery, email, phone).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, contact_email, contact_phone, lead_title, result, created_at
		FROM lead_assessments
		WHERE (contact_email = $1 AND $1 <> '') OR (contact_phone = $2 AND $2 <> '')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, email, phone, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assessments := make([]LeadAssessment, 0)
	for rows.Next() {
		var assessment LeadAssessment
		var resultJSON []byte

		err := rows.Scan(
			&assessment.ID,
			&assessment.ContactEmail,
			&assessment.ContactPhone,
			&assessment.LeadTitle,
			&resultJSON,
			&assessment.CreatedAt,
		)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(resultJSON, &assessment.Result); err != nil {
			continue
		}

		assessments = append(assessments, assessment)
	}

	return assessments, total, nil
}

// RecordSubmission appends a submission to the contact's history
func (r *Repository) RecordSubmission(ctx context.Context, email, phone, title, description string, at time.Time) error {
	query := `
		INSERT INTO lead_submissions (contact_email, contact_phone, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, email, phone, title, description, at)
	return err
}

// GetSubmissionHistory retrieves prior submissions matching the contact's
// email or phone, newest first.
func (r *Repository) GetSubmissionHistory(ctx context.Context, email, phone string, limit int) ([]SubmissionHistoryEntry, error) {
	if email == "" && phone == "" {
		return nil, nil
	}

	query := `
		SELECT created_at, title, description
		FROM lead_submissions
		WHERE (contact_email = $1 AND $1 <> '') OR (contact_phone = $2 AND $2 <> '')
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, email, phone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]SubmissionHistoryEntry, 0)
	for rows.Next() {
		var entry SubmissionHistoryEntry
		if err := rows.Scan(&entry.CreatedAt, &entry.Title, &entry.Description); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// CreateAlert creates a new fraud alert
func (r *Repository) CreateAlert(ctx context.Context, alert *FraudAlert) error {
	detailsJSON, err := json.Marshal(alert.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fraud_alerts (
			id, assessment_id, contact_email, contact_phone, alert_level,
			status, description, details, risk_score, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.AssessmentID,
		alert.ContactEmail,
		alert.ContactPhone,
		alert.AlertLevel,
		alert.Status,
		alert.Description,
		detailsJSON,
		alert.RiskScore,
		alert.DetectedAt,
	)

	return err
}

// GetAlertByID retrieves a fraud alert by ID
func (r *Repository) GetAlertByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	query := `
		SELECT id, assessment_id, contact_email, contact_phone, alert_level,
		       status, description, details, risk_score, detected_at,
		       investigated_at, investigated_by, resolved_at, notes, action_taken
		FROM fraud_alerts
		WHERE id = $1
	`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetPendingAlerts retrieves alerts awaiting review with the total count.
// Highest alert levels come first so critical leads surface on page one.
func (r *Repository) GetPendingAlerts(ctx context.Context, limit, offset int) ([]FraudAlert, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM fraud_alerts WHERE status IN ('pending', 'investigating')`
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, assessment_id, contact_email, contact_phone, alert_level,
		       status, description, details, risk_score, detected_at,
		       investigated_at, investigated_by, resolved_at, notes, action_taken
		FROM fraud_alerts
		WHERE status IN ('pending', 'investigating')
		ORDER BY risk_score DESC, detected_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts := make([]FraudAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			continue
		}
		alerts = append(alerts, *alert)
	}

	return alerts, total, nil
}

// UpdateAlertStatus updates the review status of a fraud alert
func (r *Repository) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status FraudAlertStatus, investigatorID uuid.UUID, notes, actionTaken string) error {
	query := `
		UPDATE fraud_alerts
		SET status = $2,
		    investigated_at = COALESCE(investigated_at, NOW()),
		    investigated_by = $3,
		    resolved_at = CASE WHEN $2 IN ('confirmed', 'false_positive', 'resolved') THEN NOW() ELSE resolved_at END,
		    notes = COALESCE(NULLIF($4, ''), notes),
		    action_taken = COALESCE(NULLIF($5, ''), action_taken)
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, status, investigatorID, notes, actionTaken)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*FraudAlert, error) {
	var alert FraudAlert
	var detailsJSON []byte
	var investigatedAt, resolvedAt sql.NullTime
	var investigatedBy sql.NullString
	var notes, actionTaken sql.NullString

	err := row.Scan(
		&alert.ID,
		&alert.AssessmentID,
		&alert.ContactEmail,
		&alert.ContactPhone,
		&alert.AlertLevel,
		&alert.Status,
		&alert.Description,
		&detailsJSON,
		&alert.RiskScore,
		&alert.DetectedAt,
		&investigatedAt,
		&investigatedBy,
		&resolvedAt,
		&notes,
		&actionTaken,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(detailsJSON, &alert.Details); err != nil {
		alert.Details = make(map[string]interface{})
	}

	if investigatedAt.Valid {
		alert.InvestigatedAt = &investigatedAt.Time
	}
	if investigatedBy.Valid {
		investigatedByUUID, _ := uuid.Parse(investigatedBy.String)
		alert.InvestigatedBy = &investigatedByUUID
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if notes.Valid {
		alert.Notes = notes.String
	}
	if actionTaken.Valid {
		alert.ActionTaken = actionTaken.String
	}

	return &alert, nil
}
