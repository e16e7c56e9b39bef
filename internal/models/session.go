package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one respondent's attempt at one survey on one platform.
// Created on the first ingested event, touched on every subsequent one.
type Session struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SurveyID          string    `gorm:"index:idx_sessions_hierarchy,priority:1;not null" json:"surveyId"`
	PlatformID        string    `gorm:"index:idx_sessions_hierarchy,priority:2;not null" json:"platformId"`
	RespondentID      string    `gorm:"index:idx_sessions_hierarchy,priority:3;not null" json:"respondentId"`
	Attempt           int       `gorm:"default:1" json:"attempt"`
	CreatedAt         time.Time `json:"createdAt"`
	LastActivity      time.Time `json:"lastActivity"`
	IsActive          bool      `json:"isActive"`
	IsCompleted       bool      `json:"isCompleted"`
	IPAddress         string    `gorm:"index" json:"ipAddress"`
	DeviceFingerprint string    `gorm:"index" json:"deviceFingerprint"`
	UserAgent         string    `json:"userAgent"`
}

// The hierarchy fields on every result entity must equal the owning
// session's fields. The factories below are the only way result rows are
// created, so the copy happens exactly once.

// NewDetectionResult stamps a fresh bot-detection verdict for this session.
func (s *Session) NewDetectionResult() *DetectionResult {
	return &DetectionResult{
		ID:           uuid.New(),
		SessionID:    s.ID,
		SurveyID:     s.SurveyID,
		PlatformID:   s.PlatformID,
		RespondentID: s.RespondentID,
		MethodScores: MethodScores{},
		AnalyzedAt:   time.Now().UTC(),
	}
}

// NewFraudIndicator stamps a fraud evaluation for this session.
func (s *Session) NewFraudIndicator() *FraudIndicator {
	return &FraudIndicator{
		ID:           uuid.New(),
		SessionID:    s.ID,
		SurveyID:     s.SurveyID,
		PlatformID:   s.PlatformID,
		RespondentID: s.RespondentID,
		AnalyzedAt:   time.Now().UTC(),
	}
}

// NewGridResponse stamps one grid-cell result row for this session.
func (s *Session) NewGridResponse(questionID, rowID, columnID string) *GridResponse {
	return &GridResponse{
		ID:           uuid.New(),
		SessionID:    s.ID,
		SurveyID:     s.SurveyID,
		PlatformID:   s.PlatformID,
		RespondentID: s.RespondentID,
		QuestionID:   questionID,
		RowID:        rowID,
		ColumnID:     columnID,
	}
}

// NewTimingAnalysis stamps a per-question timing result for this session.
func (s *Session) NewTimingAnalysis(questionID string) *TimingAnalysis {
	return &TimingAnalysis{
		ID:           uuid.New(),
		SessionID:    s.ID,
		SurveyID:     s.SurveyID,
		PlatformID:   s.PlatformID,
		RespondentID: s.RespondentID,
		QuestionID:   questionID,
	}
}
