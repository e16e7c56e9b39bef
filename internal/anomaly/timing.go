// Package anomaly flags per-question response times: speeders, flatliners,
// and statistical outliers against the survey-wide population.
package anomaly

import (
	"surveyguard/internal/config"
	"surveyguard/internal/models"
)

// QuestionStats is the population mean/stddev of response times for one
// question across all sessions in a survey.
type QuestionStats struct {
	Mean   float64
	StdDev float64
	N      int
}

// PopulationSnapshot is the read-only cross-session statistic a batch run
// shares. It is built once at the start of a run and passed by value into
// each session's analysis; nothing mutates it afterwards.
type PopulationSnapshot struct {
	stats map[string]QuestionStats
}

func NewSnapshot(stats map[string]QuestionStats) *PopulationSnapshot {
	if stats == nil {
		stats = map[string]QuestionStats{}
	}
	return &PopulationSnapshot{stats: stats}
}

// Stats returns the population stats for a question, if known.
func (s *PopulationSnapshot) Stats(questionID string) (QuestionStats, bool) {
	if s == nil {
		return QuestionStats{}, false
	}
	st, ok := s.stats[questionID]
	return st, ok
}

// Detector evaluates timing for one session against a snapshot.
type Detector struct {
	cfg config.TimingConfig
}

func NewDetector(cfg config.TimingConfig) *Detector {
	return &Detector{cfg: cfg}
}

// EvaluateSession produces one TimingAnalysis per answered question.
// Answers without a usable response time are skipped.
func (d *Detector) EvaluateSession(session *models.Session, answers []models.Answer, snapshot *PopulationSnapshot) []*models.TimingAnalysis {
	out := make([]*models.TimingAnalysis, 0, len(answers))
	for _, a := range answers {
		if a.QuestionID == "" || a.ResponseTimeMS <= 0 {
			continue
		}
		out = append(out, d.Evaluate(session, a.QuestionID, a.ResponseTimeMS, snapshot))
	}
	return out
}

// Evaluate classifies one question time. Speeder is exclusive below the
// threshold (1999ms fires, 2000ms does not); flatliner is exclusive above
// (300001ms fires, 300000ms does not). The z-score is computed against the
// snapshot; outlier only applies when neither flat threshold already fired.
func (d *Detector) Evaluate(session *models.Session, questionID string, timeMS float64, snapshot *PopulationSnapshot) *models.TimingAnalysis {
	t := session.NewTimingAnalysis(questionID)
	t.QuestionTimeMS = timeMS
	t.IsSpeeder = timeMS < d.cfg.SpeederThresholdMS
	t.IsFlatliner = timeMS > d.cfg.FlatlinerThresholdMS

	if st, ok := snapshot.Stats(questionID); ok && st.StdDev > 0 {
		t.AnomalyScore = (timeMS - st.Mean) / st.StdDev
	}

	z := t.AnomalyScore
	if z < 0 {
		z = -z
	}

	switch {
	case t.IsSpeeder:
		t.AnomalyType = models.AnomalySpeeder
		t.ThresholdUsed = d.cfg.SpeederThresholdMS
	case t.IsFlatliner:
		t.AnomalyType = models.AnomalyFlatliner
		t.ThresholdUsed = d.cfg.FlatlinerThresholdMS
	case z > d.cfg.AnomalyZThreshold:
		t.AnomalyType = models.AnomalyOutlier
		t.ThresholdUsed = d.cfg.AnomalyZThreshold
	default:
		t.AnomalyType = models.AnomalyNone
	}

	return t
}
