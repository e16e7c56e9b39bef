package repository

import (
	"context"
	"fmt"

	"surveyguard/internal/models"
	"surveyguard/internal/reports"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// scopeWhere narrows a query to the denormalized hierarchy columns. Every
// result table carries survey/platform/respondent ids, so each level is a
// plain filter, never a join up the hierarchy.
func scopeWhere(q *gorm.DB, scope reports.Scope) *gorm.DB {
	q = q.Where("survey_id = ?", scope.SurveyID)
	if scope.PlatformID != "" {
		q = q.Where("platform_id = ?", scope.PlatformID)
	}
	if scope.RespondentID != "" {
		q = q.Where("respondent_id = ?", scope.RespondentID)
	}
	return q
}

func rangeWhere(q *gorm.DB, column string, dr reports.DateRange) *gorm.DB {
	if !dr.From.IsZero() {
		q = q.Where(column+" >= ?", dr.From)
	}
	if !dr.To.IsZero() {
		q = q.Where(column+" <= ?", dr.To)
	}
	return q
}

// LatestDetections returns the newest detection result per session within
// scope and range. Results are append-only, so DISTINCT ON picks the row
// with max analyzed_at per session.
func (s *Store) LatestDetections(ctx context.Context, scope reports.Scope, dr reports.DateRange) ([]models.DetectionResult, error) {
	var rows []models.DetectionResult
	q := s.db.WithContext(ctx).
		Model(&models.DetectionResult{}).
		Select("DISTINCT ON (session_id) *").
		Order("session_id, analyzed_at DESC")
	q = rangeWhere(scopeWhere(q, scope), "analyzed_at", dr)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("latest detections: %w", err)
	}
	return rows, nil
}

// LatestFrauds returns the newest fraud indicator per session within scope
// and range.
func (s *Store) LatestFrauds(ctx context.Context, scope reports.Scope, dr reports.DateRange) ([]models.FraudIndicator, error) {
	var rows []models.FraudIndicator
	q := s.db.WithContext(ctx).
		Model(&models.FraudIndicator{}).
		Select("DISTINCT ON (session_id) *").
		Order("session_id, analyzed_at DESC")
	q = rangeWhere(scopeWhere(q, scope), "analyzed_at", dr)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("latest fraud indicators: %w", err)
	}
	return rows, nil
}

// GridQuestionRows returns one cell row per (session, question). The
// pattern verdict is replicated onto every cell of a question, so any one
// cell represents the question.
func (s *Store) GridQuestionRows(ctx context.Context, scope reports.Scope, dr reports.DateRange) ([]models.GridResponse, error) {
	var rows []models.GridResponse
	q := s.db.WithContext(ctx).
		Model(&models.GridResponse{}).
		Select("DISTINCT ON (session_id, question_id) *").
		Order("session_id, question_id, created_at DESC")
	q = rangeWhere(scopeWhere(q, scope), "created_at", dr)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("grid question rows: %w", err)
	}
	return rows, nil
}

// TimingRows returns the timing analyses within scope and range.
func (s *Store) TimingRows(ctx context.Context, scope reports.Scope, dr reports.DateRange) ([]models.TimingAnalysis, error) {
	var rows []models.TimingAnalysis
	q := s.db.WithContext(ctx).Model(&models.TimingAnalysis{})
	q = rangeWhere(scopeWhere(q, scope), "created_at", dr)
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("timing rows: %w", err)
	}
	return rows, nil
}

// SessionDetail assembles the full per-session shape for the finest scope.
func (s *Store) SessionDetail(ctx context.Context, sessionID uuid.UUID) (*reports.SessionDetail, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	detection, err := s.LatestDetectionResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fraud, err := s.LatestFraudIndicator(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	grid, err := s.GridResponsesForSession(ctx, sessionID, "")
	if err != nil {
		return nil, err
	}
	timing, err := s.TimingAnalysesForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &reports.SessionDetail{
		Session:   session,
		Detection: detection,
		Fraud:     fraud,
		Grid:      grid,
		Timing:    timing,
	}, nil
}
