package models

import (
	"github.com/google/uuid"
)

// Event types as recorded by the capture widget.
const (
	EventKeyDown   = "keydown"
	EventKeyUp     = "keyup"
	EventMouseMove = "mousemove"
	EventClick     = "click"
	EventScroll    = "scroll"
	EventPageView  = "pageview"
)

// Event is one behavioral observation belonging to a session. Immutable once
// stored. Timestamps are epoch milliseconds as reported by the browser;
// extraction sorts by timestamp, so out-of-order ingestion is harmless.
type Event struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	Type      string    `gorm:"not null" json:"type"`
	Timestamp float64   `gorm:"not null" json:"timestamp"`

	ElementID  string `json:"elementId,omitempty"`
	QuestionID string `json:"questionId,omitempty"`

	// Keystroke payload.
	Key string `json:"key,omitempty"`

	// Pointer payload.
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	TargetX float64 `json:"targetX,omitempty"`
	TargetY float64 `json:"targetY,omitempty"`

	// Device payload, present on pageview events.
	ScreenW int `json:"screenW,omitempty"`
	ScreenH int `json:"screenH,omitempty"`
}
