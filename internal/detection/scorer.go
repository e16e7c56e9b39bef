package detection

import (
	"surveyguard/internal/models"
)

// MethodResult is the outcome of one detection method for one session.
// Score is bot-likeness in [0,1]. A method that lacks sufficient data
// reports Applicable=false and is excluded from the composite; it never
// contributes a silent zero.
type MethodResult struct {
	Score      float64       `json:"score"`
	Applicable bool          `json:"applicable"`
	SampleSize int           `json:"sampleSize,omitempty"`
	Flags      []models.Flag `json:"flags,omitempty"`
}

func notApplicable(sampleSize int) MethodResult {
	return MethodResult{Applicable: false, SampleSize: sampleSize}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
