package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Fraud sub-score reasons recorded in FlagReasons.
const (
	FraudReasonIPReuse          = "ip_reuse"
	FraudReasonFingerprintReuse = "fingerprint_reuse"
	FraudReasonDuplicateAnswers = "duplicate_answers"
	FraudReasonHighVelocity     = "high_velocity"
)

// FraudIndicator is the fraud evaluation for one session: IP and device
// fingerprint reuse, duplicate open-ended answers, and submission velocity.
type FraudIndicator struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	SurveyID     string    `gorm:"index:idx_fraud_hierarchy,priority:1;not null" json:"surveyId"`
	PlatformID   string    `gorm:"index:idx_fraud_hierarchy,priority:2;not null" json:"platformId"`
	RespondentID string    `gorm:"index:idx_fraud_hierarchy,priority:3;not null" json:"respondentId"`

	OverallFraudScore float64   `json:"overallFraudScore"`
	IsDuplicate       bool      `json:"isDuplicate"`
	RiskLevel         RiskLevel `json:"riskLevel"`

	IPUsageCount    int     `json:"ipUsageCount"`
	IPSessionsToday int     `json:"ipSessionsToday"`
	IPRiskScore     float64 `json:"ipRiskScore"`

	FingerprintUsageCount int     `json:"fingerprintUsageCount"`
	FingerprintRiskScore  float64 `json:"fingerprintRiskScore"`

	DuplicateSimilarity float64 `json:"duplicateSimilarity"`
	DuplicateCount      int     `json:"duplicateCount"`
	DuplicateRiskScore  float64 `json:"duplicateRiskScore"`

	ResponsesPerHour  float64 `json:"responsesPerHour"`
	VelocityRiskScore float64 `json:"velocityRiskScore"`

	FlagReasons pq.StringArray `gorm:"type:text[]" json:"flagReasons"`
	AnalyzedAt  time.Time      `gorm:"index" json:"analyzedAt"`
}
