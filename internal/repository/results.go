package repository

import (
	"context"
	"errors"
	"fmt"

	"surveyguard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveDetectionResult appends a new verdict row. Detection results are
// append-only; "latest" is always max(analyzed_at) per session.
func (s *Store) SaveDetectionResult(ctx context.Context, result *models.DetectionResult) error {
	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("%w: detection result for session %s: %v",
			models.ErrPersistenceFailure, result.SessionID, err)
	}
	return nil
}

// SaveFraudIndicator appends a fraud evaluation row.
func (s *Store) SaveFraudIndicator(ctx context.Context, ind *models.FraudIndicator) error {
	if err := s.db.WithContext(ctx).Create(ind).Error; err != nil {
		return fmt.Errorf("%w: fraud indicator for session %s: %v",
			models.ErrPersistenceFailure, ind.SessionID, err)
	}
	return nil
}

// ReplaceGridResponses swaps the cell rows for one (session, question) in a
// single transaction. Re-running an analysis replaces rather than appends,
// so recomputation over the same stored answers stays idempotent.
func (s *Store) ReplaceGridResponses(ctx context.Context, sessionID uuid.UUID, questionID string, rows []*models.GridResponse) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND question_id = ?", sessionID, questionID).
			Delete(&models.GridResponse{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: grid responses for session %s question %s: %v",
			models.ErrPersistenceFailure, sessionID, questionID, err)
	}
	return nil
}

// ReplaceTimingAnalyses swaps the per-question timing rows for one session
// in a single transaction.
func (s *Store) ReplaceTimingAnalyses(ctx context.Context, sessionID uuid.UUID, rows []*models.TimingAnalysis) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&models.TimingAnalysis{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: timing analyses for session %s: %v",
			models.ErrPersistenceFailure, sessionID, err)
	}
	return nil
}

// LatestDetectionResult returns the newest verdict for a session, or nil
// when the session has never been analyzed.
func (s *Store) LatestDetectionResult(ctx context.Context, sessionID uuid.UUID) (*models.DetectionResult, error) {
	var result models.DetectionResult
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("analyzed_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest detection result for session %s: %w", sessionID, err)
	}
	return &result, nil
}

// LatestFraudIndicator returns the newest fraud evaluation for a session,
// or nil when none exists.
func (s *Store) LatestFraudIndicator(ctx context.Context, sessionID uuid.UUID) (*models.FraudIndicator, error) {
	var ind models.FraudIndicator
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("analyzed_at DESC").
		First(&ind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest fraud indicator for session %s: %w", sessionID, err)
	}
	return &ind, nil
}

// GridResponsesForSession returns the stored cell rows for one session,
// optionally narrowed to one question.
func (s *Store) GridResponsesForSession(ctx context.Context, sessionID uuid.UUID, questionID string) ([]models.GridResponse, error) {
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if questionID != "" {
		q = q.Where("question_id = ?", questionID)
	}
	var rows []models.GridResponse
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("grid responses for session %s: %w", sessionID, err)
	}
	return rows, nil
}

// TimingAnalysesForSession returns the stored timing rows for one session.
func (s *Store) TimingAnalysesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.TimingAnalysis, error) {
	var rows []models.TimingAnalysis
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("timing analyses for session %s: %w", sessionID, err)
	}
	return rows, nil
}
