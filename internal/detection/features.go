package detection

import (
	"math"
	"sort"

	"surveyguard/internal/models"

	"go.uber.org/zap"
)

// SessionFeatures is the normalized view of one session's raw rows that the
// method scorers consume. Building it is pure: given the same stored events
// and answers it always produces the same features, which is what makes
// re-running an analysis idempotent.
type SessionFeatures struct {
	Session *models.Session

	// Sorted by timestamp ascending.
	KeyEvents  []models.Event
	MouseMoves []models.Event
	Clicks     []models.Event
	PageViews  []models.Event

	Answers     []models.Answer
	OpenAnswers []models.Answer

	// Per-question response time in milliseconds.
	ResponseTimes map[string]float64

	EventCount    int
	SkippedEvents int
}

// ExtractFeatures turns raw event/answer rows into a SessionFeatures set.
// Rows with an unusable timestamp or missing type are counted and skipped;
// a bad row never aborts the analysis.
func ExtractFeatures(session *models.Session, events []models.Event, answers []models.Answer, log *zap.Logger) *SessionFeatures {
	f := &SessionFeatures{
		Session:       session,
		Answers:       answers,
		ResponseTimes: make(map[string]float64, len(answers)),
	}

	for _, e := range events {
		if e.Type == "" || e.Timestamp <= 0 {
			f.SkippedEvents++
			if log != nil {
				log.Debug("Skipping malformed event",
					zap.String("sessionID", session.ID.String()),
					zap.String("type", e.Type),
					zap.Float64("timestamp", e.Timestamp))
			}
			continue
		}
		f.EventCount++

		switch e.Type {
		case models.EventKeyDown, models.EventKeyUp:
			f.KeyEvents = append(f.KeyEvents, e)
		case models.EventMouseMove:
			f.MouseMoves = append(f.MouseMoves, e)
		case models.EventClick:
			f.Clicks = append(f.Clicks, e)
		case models.EventPageView:
			f.PageViews = append(f.PageViews, e)
		}
	}

	// Inter-event timing features require timestamp order; ingestion order
	// is not trusted.
	sortByTimestamp(f.KeyEvents)
	sortByTimestamp(f.MouseMoves)
	sortByTimestamp(f.Clicks)
	sortByTimestamp(f.PageViews)

	for _, a := range answers {
		if a.QuestionID == "" {
			f.SkippedEvents++
			continue
		}
		if a.ResponseTimeMS > 0 {
			f.ResponseTimes[a.QuestionID] = a.ResponseTimeMS
		}
		if a.QuestionType == models.QuestionOpenEnded {
			f.OpenAnswers = append(f.OpenAnswers, a)
		}
	}

	return f
}

func sortByTimestamp(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}

// mean and sampleStdDev are shared by several scorers. sampleStdDev uses
// Bessel's correction and needs at least two values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64, avg float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		d := v - avg
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// coefficientOfVariation is stddev/mean; the scorers use it as a
// uniformity signal since automated input is far more regular than
// human input.
func coefficientOfVariation(values []float64) float64 {
	avg := mean(values)
	if avg == 0 {
		return 0
	}
	return sampleStdDev(values, avg) / avg
}

// filterIQR drops values outside [Q1-1.5*IQR, Q3+1.5*IQR]. The filtered
// slice is only used when it retains more than half the samples.
func filterIQR(values []float64) []float64 {
	if len(values) <= 10 {
		return values
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := sorted[len(sorted)/4]
	q3 := sorted[(len(sorted)*3)/4]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lower && v <= upper {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) <= len(values)/2 {
		return values
	}
	return filtered
}
