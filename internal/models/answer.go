package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Question types the engine distinguishes. Anything else is passed through
// untouched by the detectors.
const (
	QuestionOpenEnded      = "open_ended"
	QuestionGrid           = "grid"
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
)

// GridCell is one (row, column) selection inside a grid/matrix answer.
// ColumnIndex is the zero-based position of the chosen column on the scale.
type GridCell struct {
	RowID       string `json:"rowId"`
	ColumnID    string `json:"columnId"`
	ColumnIndex int    `json:"columnIndex"`
	Value       string `json:"value"`
}

// GridCells stores the cell tuples as a JSONB column.
type GridCells []GridCell

func (g GridCells) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

func (g *GridCells) Scan(src any) error {
	if src == nil {
		*g = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("grid cells: unexpected column type %T", src)
	}
	return json.Unmarshal(b, g)
}

// Answer is one survey-question response belonging to a session.
type Answer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	QuestionID     string    `gorm:"index;not null" json:"questionId"`
	QuestionType   string    `gorm:"not null" json:"questionType"`
	Value          string    `json:"value"`
	GridCells      GridCells `gorm:"type:jsonb" json:"gridCells,omitempty"`
	ResponseTimeMS float64   `json:"responseTimeMs"`
}
