package detection

import (
	"surveyguard/internal/models"
)

const (
	// Fewer answered questions than this and the method is not applicable.
	minTimedAnswers = 3

	// Answers faster than this are speeding for the purposes of the bot
	// method score; the per-question speeder verdicts live in the timing
	// anomaly detector.
	methodSpeederMS = 2000.0

	// Response times below this coefficient of variation across questions
	// are suspiciously uniform.
	uniformTimingCV = 0.20
)

// scoreTiming rates timing-based bot evidence across the session's answers:
// a high share of speeding answers and response times too uniform across
// questions of different lengths.
func scoreTiming(f *SessionFeatures) MethodResult {
	times := make([]float64, 0, len(f.ResponseTimes))
	for _, t := range f.ResponseTimes {
		times = append(times, t)
	}

	if len(times) < minTimedAnswers {
		return notApplicable(len(times))
	}

	var flags []models.Flag
	var components []float64

	speeders := 0
	for _, t := range times {
		if t < methodSpeederMS {
			speeders++
		}
	}
	speederShare := float64(speeders) / float64(len(times))
	components = append(components, speederShare)

	if speederShare > 0.5 {
		flags = append(flags, models.Flag{
			Name:       models.PatternSpeedingAnswers,
			Confidence: speederShare,
			Observed:   speederShare,
			Threshold:  0.5,
			Detail:     "majority of questions answered implausibly fast",
		})
	}

	cv := coefficientOfVariation(times)
	uniformity := clamp01((0.6 - cv) / 0.6)
	components = append(components, uniformity)

	if cv < uniformTimingCV {
		flags = append(flags, models.Flag{
			Name:       models.PatternUniformTiming,
			Confidence: uniformity,
			Observed:   cv,
			Threshold:  uniformTimingCV,
			Detail:     "response times barely vary across questions",
		})
	}

	return MethodResult{
		Score:      clamp01(mean(components)),
		Applicable: true,
		SampleSize: len(times),
		Flags:      flags,
	}
}
