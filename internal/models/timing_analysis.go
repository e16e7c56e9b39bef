package models

import (
	"time"

	"github.com/google/uuid"
)

// AnomalyType classifies the timing verdict for one question.
type AnomalyType string

const (
	AnomalySpeeder   AnomalyType = "speeder"
	AnomalyFlatliner AnomalyType = "flatliner"
	AnomalyOutlier   AnomalyType = "outlier"
	AnomalyNone      AnomalyType = "none"
)

// TimingAnalysis is the per-question timing verdict for one session.
// AnomalyScore is the z-score of this question's time against the
// population of times for the same question across the survey.
// ThresholdUsed records whichever constant produced the classification.
type TimingAnalysis struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	SurveyID     string    `gorm:"index:idx_timing_hierarchy,priority:1;not null" json:"surveyId"`
	PlatformID   string    `gorm:"index:idx_timing_hierarchy,priority:2;not null" json:"platformId"`
	RespondentID string    `gorm:"index:idx_timing_hierarchy,priority:3;not null" json:"respondentId"`

	QuestionID     string  `gorm:"index;not null" json:"questionId"`
	QuestionTimeMS float64 `json:"questionTimeMs"`

	IsSpeeder     bool        `json:"isSpeeder"`
	IsFlatliner   bool        `json:"isFlatliner"`
	ThresholdUsed float64     `json:"thresholdUsed"`
	AnomalyScore  float64     `json:"anomalyScore"`
	AnomalyType   AnomalyType `json:"anomalyType"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
