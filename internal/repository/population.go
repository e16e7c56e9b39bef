package repository

import (
	"context"
	"fmt"

	"surveyguard/internal/anomaly"
)

// BuildPopulationSnapshot computes per-question response-time mean and
// stddev across every session of a survey. The snapshot is taken once per
// batch run and shared read-only by all session analyses in that run, so
// concurrent analyses never race on a mutable population statistic.
func (s *Store) BuildPopulationSnapshot(ctx context.Context, surveyID string) (*anomaly.PopulationSnapshot, error) {
	type row struct {
		QuestionID string
		Mean       float64
		StdDev     float64
		N          int
	}

	var rows []row
	err := s.db.WithContext(ctx).Raw(`
		SELECT answers.question_id                           AS question_id,
		       AVG(answers.response_time_ms)                 AS mean,
		       COALESCE(STDDEV_SAMP(answers.response_time_ms), 0) AS std_dev,
		       COUNT(*)                                      AS n
		FROM answers
		JOIN sessions ON sessions.id = answers.session_id
		WHERE sessions.survey_id = ? AND answers.response_time_ms > 0
		GROUP BY answers.question_id`, surveyID).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("build population snapshot for survey %s: %w", surveyID, err)
	}

	stats := make(map[string]anomaly.QuestionStats, len(rows))
	for _, r := range rows {
		stats[r.QuestionID] = anomaly.QuestionStats{Mean: r.Mean, StdDev: r.StdDev, N: r.N}
	}
	return anomaly.NewSnapshot(stats), nil
}

// MedianResponseTime returns the median response time for one question
// across the survey, the grid detector's speed baseline. Zero when no
// timed answers exist yet.
func (s *Store) MedianResponseTime(ctx context.Context, surveyID, questionID string) (float64, error) {
	var median float64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY answers.response_time_ms), 0)
		FROM answers
		JOIN sessions ON sessions.id = answers.session_id
		WHERE sessions.survey_id = ? AND answers.question_id = ? AND answers.response_time_ms > 0`,
		surveyID, questionID).Scan(&median).Error
	if err != nil {
		return 0, fmt.Errorf("median response time for question %s: %w", questionID, err)
	}
	return median, nil
}
