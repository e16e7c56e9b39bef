package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MethodName identifies one bot-detection method scorer.
type MethodName string

const (
	MethodKeystroke   MethodName = "keystroke_analysis"
	MethodMouse       MethodName = "mouse_analysis"
	MethodTiming      MethodName = "timing_analysis"
	MethodDevice      MethodName = "device_analysis"
	MethodNetwork     MethodName = "network_analysis"
	MethodTextQuality MethodName = "text_quality"
)

// PatternName identifies a flagged behavioral pattern. Keeping these typed
// (instead of free-form map keys) stops silent typos between scorers and
// the aggregator.
type PatternName string

const (
	PatternUniformKeystrokes  PatternName = "uniform_keystrokes"
	PatternPasteBurst         PatternName = "paste_burst"
	PatternImpossibleTyping   PatternName = "impossible_typing_speed"
	PatternMachinePath        PatternName = "machine_mouse_path"
	PatternUniformVelocity    PatternName = "uniform_mouse_velocity"
	PatternTeleportingPointer PatternName = "teleporting_pointer"
	PatternPerfectClicks      PatternName = "perfect_click_precision"
	PatternSpeedingAnswers    PatternName = "speeding_answers"
	PatternUniformTiming      PatternName = "uniform_response_times"
	PatternAutomationAgent    PatternName = "automation_user_agent"
	PatternMissingDevice      PatternName = "missing_device_signals"
	PatternDatacenterIP       PatternName = "datacenter_ip"
	PatternLowTextQuality     PatternName = "low_text_quality"
	PatternStraightLining     PatternName = "straight_lining"
	PatternDuplicateAnswers   PatternName = "duplicate_answers"
)

// Flag is one flagged pattern with its supporting numbers. Observed is the
// measured value, Threshold the limit it crossed, Confidence how strongly
// the method believes the pattern is present.
type Flag struct {
	Name       PatternName `json:"name"`
	Confidence float64     `json:"confidence"`
	Observed   float64     `json:"observed"`
	Threshold  float64     `json:"threshold"`
	Detail     string      `json:"detail,omitempty"`
}

// FlagList stores flags as a JSONB column.
type FlagList []Flag

func (f FlagList) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func (f *FlagList) Scan(src any) error {
	if src == nil {
		*f = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("flag list: unexpected column type %T", src)
	}
	return json.Unmarshal(b, f)
}

// Merge folds flags from one method into the list, keeping the
// highest-confidence entry when two methods report the same pattern.
func (f FlagList) Merge(other []Flag) FlagList {
	out := f
	for _, fl := range other {
		replaced := false
		for i := range out {
			if out[i].Name == fl.Name {
				if fl.Confidence > out[i].Confidence {
					out[i] = fl
				}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, fl)
		}
	}
	return out
}

// MethodScores maps method name to its [0,1] score, JSONB-stored.
type MethodScores map[MethodName]float64

func (m MethodScores) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MethodScores) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("method scores: unexpected column type %T", src)
	}
	return json.Unmarshal(b, m)
}

// RiskLevel buckets a composite score for triage.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DetectionResult is one bot-detection verdict for a session. Append-only:
// every analysis run inserts a new row and "latest" is max(analyzed_at).
type DetectionResult struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sessionId"`
	SurveyID     string    `gorm:"index:idx_detection_hierarchy,priority:1;not null" json:"surveyId"`
	PlatformID   string    `gorm:"index:idx_detection_hierarchy,priority:2;not null" json:"platformId"`
	RespondentID string    `gorm:"index:idx_detection_hierarchy,priority:3;not null" json:"respondentId"`

	IsBot            *bool        `json:"isBot"`
	ConfidenceScore  float64      `json:"confidenceScore"`
	RiskLevel        RiskLevel    `json:"riskLevel"`
	MethodScores     MethodScores `gorm:"type:jsonb" json:"methodScores"`
	FlaggedPatterns  FlagList     `gorm:"type:jsonb" json:"flaggedPatterns"`
	AnalysisSummary  string       `json:"analysisSummary"`
	ProcessingTimeMS int64        `json:"processingTimeMs"`
	AnalyzedAt       time.Time    `gorm:"index" json:"analyzedAt"`
}
