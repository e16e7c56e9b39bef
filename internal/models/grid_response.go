package models

import (
	"time"

	"github.com/google/uuid"
)

// PatternType classifies a respondent's row of answers on one grid question.
type PatternType string

const (
	PatternStraightLine    PatternType = "straight_line"
	PatternDiagonal        PatternType = "diagonal"
	PatternReverseDiagonal PatternType = "reverse_diagonal"
	PatternZigzag          PatternType = "zigzag"
	PatternNone            PatternType = "none"
)

// GridResponse is one grid cell for one session. The pattern fields
// (IsStraightLined, PatternType, VarianceScore, SatisficingScore) are
// computed once per question and copied onto every cell of that question,
// matching the hierarchy denormalization on the id columns.
type GridResponse struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	SurveyID     string    `gorm:"index:idx_grid_hierarchy,priority:1;not null" json:"surveyId"`
	PlatformID   string    `gorm:"index:idx_grid_hierarchy,priority:2;not null" json:"platformId"`
	RespondentID string    `gorm:"index:idx_grid_hierarchy,priority:3;not null" json:"respondentId"`

	QuestionID string `gorm:"index;not null" json:"questionId"`
	RowID      string `json:"rowId"`
	ColumnID   string `json:"columnId"`

	ResponseValue  string  `json:"responseValue"`
	ResponseTimeMS float64 `json:"responseTimeMs"`

	IsStraightLined  bool        `json:"isStraightLined"`
	PatternType      PatternType `json:"patternType"`
	VarianceScore    float64     `json:"varianceScore"`
	SatisficingScore float64     `json:"satisficingScore"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
