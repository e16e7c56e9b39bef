package detection

import (
	"math"
	"sort"

	"surveyguard/internal/models"
)

const (
	// Fewer keydown events than this and the method is not applicable.
	minKeystrokeSamples = 10

	// Inter-key rhythm below this coefficient of variation is machine-like;
	// human typing rarely drops under 0.3.
	uniformRhythmCV = 0.15

	// Hold times this uniform point at synthetic key events.
	uniformHoldCV = 0.10

	// Intervals under this many milliseconds in long runs indicate text
	// injected programmatically rather than typed.
	pasteBurstIntervalMS = 5.0
	pasteBurstRunLength  = 8

	// Sustained content-key rate in keys/second beyond human capability.
	impossibleKeysPerSecond = 15.0
)

// scoreKeystrokes rates how machine-like the session's typing is. It looks
// at rhythm uniformity, hold-time uniformity, paste bursts, and sustained
// typing speed, after the same percentile/IQR de-noising the interaction
// metrics always get.
func scoreKeystrokes(f *SessionFeatures) MethodResult {
	keydowns := make([]models.Event, 0, len(f.KeyEvents))
	for _, e := range f.KeyEvents {
		if e.Type == models.EventKeyDown {
			keydowns = append(keydowns, e)
		}
	}

	if len(keydowns) < minKeystrokeSamples {
		return notApplicable(len(keydowns))
	}

	var flags []models.Flag
	var components []float64

	intervals := interKeyIntervals(keydowns)
	if trimmed := trimIntervalTail(intervals); len(trimmed) >= 3 {
		cv := coefficientOfVariation(trimmed)
		uniformity := clamp01((0.5 - cv) / 0.5)
		components = append(components, uniformity)

		if cv < uniformRhythmCV {
			flags = append(flags, models.Flag{
				Name:       models.PatternUniformKeystrokes,
				Confidence: uniformity,
				Observed:   cv,
				Threshold:  uniformRhythmCV,
				Detail:     "inter-key intervals are too regular for human typing",
			})
		}
	}

	if holds := keyHoldTimes(f.KeyEvents); len(holds) >= 5 {
		filtered := filterIQR(holds)
		cv := coefficientOfVariation(filtered)
		uniformity := clamp01((0.4 - cv) / 0.4)
		components = append(components, uniformity)

		if cv < uniformHoldCV {
			flags = append(flags, models.Flag{
				Name:       models.PatternUniformKeystrokes,
				Confidence: uniformity,
				Observed:   cv,
				Threshold:  uniformHoldCV,
				Detail:     "key hold times are nearly identical",
			})
		}
	}

	if burst, runLen := longestBurstRun(intervals); runLen >= pasteBurstRunLength {
		burstScore := clamp01(float64(runLen) / float64(len(intervals)))
		components = append(components, math.Max(burstScore, 0.8))
		flags = append(flags, models.Flag{
			Name:       models.PatternPasteBurst,
			Confidence: math.Max(burstScore, 0.8),
			Observed:   float64(runLen),
			Threshold:  pasteBurstRunLength,
			Detail:     burst,
		})
	}

	if rate, n := contentKeyRate(keydowns); n >= 5 && rate > 0 {
		speedScore := clamp01((rate - impossibleKeysPerSecond/2) / impossibleKeysPerSecond)
		components = append(components, speedScore)

		if rate > impossibleKeysPerSecond {
			flags = append(flags, models.Flag{
				Name:       models.PatternImpossibleTyping,
				Confidence: clamp01(rate / (impossibleKeysPerSecond * 2)),
				Observed:   rate,
				Threshold:  impossibleKeysPerSecond,
				Detail:     "sustained typing speed beyond human capability",
			})
		}
	}

	if len(components) == 0 {
		return notApplicable(len(keydowns))
	}

	return MethodResult{
		Score:      clamp01(mean(components)),
		Applicable: true,
		SampleSize: len(keydowns),
		Flags:      flags,
	}
}

func interKeyIntervals(keydowns []models.Event) []float64 {
	intervals := make([]float64, 0, len(keydowns))
	for i := 1; i < len(keydowns); i++ {
		intervals = append(intervals, keydowns[i].Timestamp-keydowns[i-1].Timestamp)
	}
	return intervals
}

// trimIntervalTail drops the long-pause tail (above 1.5x the 95th
// percentile) so a thinking pause doesn't mask an otherwise robotic rhythm.
func trimIntervalTail(intervals []float64) []float64 {
	if len(intervals) < 3 {
		return intervals
	}
	sorted := make([]float64, len(intervals))
	copy(sorted, intervals)
	sort.Float64s(sorted)

	p95idx := int(float64(len(sorted)) * 0.95)
	if p95idx >= len(sorted) {
		p95idx = len(sorted) - 1
	}
	maxInterval := sorted[p95idx] * 1.5

	trimmed := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv <= maxInterval {
			trimmed = append(trimmed, iv)
		}
	}
	return trimmed
}

// keyHoldTimes pairs keydown/keyup by key. Holds outside [20ms, 1000ms]
// are discarded as capture noise.
func keyHoldTimes(events []models.Event) []float64 {
	holds := make([]float64, 0)
	downAt := make(map[string]float64)

	for _, e := range events {
		switch e.Type {
		case models.EventKeyDown:
			downAt[e.Key] = e.Timestamp
		case models.EventKeyUp:
			if t, ok := downAt[e.Key]; ok {
				hold := e.Timestamp - t
				if hold >= 20 && hold <= 1000 {
					holds = append(holds, hold)
				}
				delete(downAt, e.Key)
			}
		}
	}
	return holds
}

// longestBurstRun finds the longest run of consecutive sub-threshold
// intervals, the signature of injected text.
func longestBurstRun(intervals []float64) (string, int) {
	longest, current := 0, 0
	for _, iv := range intervals {
		if iv < pasteBurstIntervalMS {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	if longest == 0 {
		return "", 0
	}
	return "run of near-instant keystrokes consistent with injected text", longest
}

// contentKeyRate is content keys per second over the keydown span.
func contentKeyRate(keydowns []models.Event) (float64, int) {
	contentKeys := 0
	for _, e := range keydowns {
		if len(e.Key) == 1 || e.Key == "Space" || e.Key == "Enter" {
			contentKeys++
		}
	}
	span := (keydowns[len(keydowns)-1].Timestamp - keydowns[0].Timestamp) / 1000
	if span <= 0 || contentKeys == 0 {
		return 0, contentKeys
	}
	return float64(contentKeys) / span, contentKeys
}
