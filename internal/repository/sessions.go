package repository

import (
	"context"
	"fmt"
	"time"

	"surveyguard/internal/models"

	"github.com/google/uuid"
)

// GetSession loads one session by id.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &session, nil
}

// EventsForSession returns the session's events in timestamp order. The
// extractors re-sort defensively, but reading ordered keeps the hot path
// on the (session_id, timestamp) index.
func (s *Store) EventsForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load events for session %s: %w", sessionID, err)
	}
	return events, nil
}

// AnswersForSession returns every answer row for a session.
func (s *Store) AnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("load answers for session %s: %w", sessionID, err)
	}
	return answers, nil
}

// CountSessionsByIP counts distinct other sessions sharing an IP since the
// given time.
func (s *Store) CountSessionsByIP(ctx context.Context, ip string, since time.Time, exclude uuid.UUID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("ip_address = ? AND created_at >= ? AND id <> ?", ip, since, exclude).
		Count(&n).Error
	return int(n), err
}

// CountSessionsByFingerprint counts distinct other sessions sharing a
// device fingerprint since the given time.
func (s *Store) CountSessionsByFingerprint(ctx context.Context, fingerprint string, since time.Time, exclude uuid.UUID) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("device_fingerprint = ? AND created_at >= ? AND id <> ?", fingerprint, since, exclude).
		Count(&n).Error
	return int(n), err
}

// CountSessionsByRespondent counts the respondent's sessions since the
// given time, the submission-velocity input.
func (s *Store) CountSessionsByRespondent(ctx context.Context, respondentID string, since time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("respondent_id = ? AND created_at >= ?", respondentID, since).
		Count(&n).Error
	return int(n), err
}

// OpenAnswersForQuestion returns other sessions' open-ended answers to the
// same question within the same survey, the duplicate-detection corpus.
func (s *Store) OpenAnswersForQuestion(ctx context.Context, surveyID, questionID string, exclude uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := s.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.id = answers.session_id").
		Where("sessions.survey_id = ? AND answers.question_id = ? AND answers.session_id <> ?",
			surveyID, questionID, exclude).
		Where("answers.question_type = ?", models.QuestionOpenEnded).
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("load comparison answers for question %s: %w", questionID, err)
	}
	return answers, nil
}

// UnanalyzedSessions lists completed sessions with no detection result yet,
// the scheduler's work queue.
func (s *Store) UnanalyzedSessions(ctx context.Context, limit int) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("is_completed = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM detection_results dr WHERE dr.session_id = sessions.id)").
		Order("last_activity ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list unanalyzed sessions: %w", err)
	}
	return sessions, nil
}
