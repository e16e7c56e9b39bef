// Package reports rolls per-session results up the Survey → Platform →
// Respondent → Session hierarchy. Every scope filters the denormalized id
// columns on the result tables directly; no joins walk the hierarchy.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"surveyguard/internal/models"

	"github.com/google/uuid"
)

// Scope narrows a report. SurveyID is required; each further field narrows
// one hierarchy level. A set SessionID switches the output to the detailed
// per-session shape.
type Scope struct {
	SurveyID     string
	PlatformID   string
	RespondentID string
	SessionID    uuid.UUID
}

func (s Scope) Validate() error {
	if s.SurveyID == "" {
		return fmt.Errorf("report scope requires a survey id")
	}
	return nil
}

// DateRange bounds a report by result recency. Zero values mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Store is the read surface the aggregator needs. All list queries return
// the latest result per session within scope and range.
type Store interface {
	LatestDetections(ctx context.Context, scope Scope, dr DateRange) ([]models.DetectionResult, error)
	LatestFrauds(ctx context.Context, scope Scope, dr DateRange) ([]models.FraudIndicator, error)
	// GridQuestionRows returns one representative cell row per
	// (session, question); the pattern fields are replicated across a
	// question's cells, so one row carries the whole verdict.
	GridQuestionRows(ctx context.Context, scope Scope, dr DateRange) ([]models.GridResponse, error)
	TimingRows(ctx context.Context, scope Scope, dr DateRange) ([]models.TimingAnalysis, error)
	SessionDetail(ctx context.Context, sessionID uuid.UUID) (*SessionDetail, error)
}

// Summary is the aggregate shape returned for survey, platform, and
// respondent scopes.
type Summary struct {
	TotalSessions int `json:"totalSessions"`

	BotCount int     `json:"botCount"`
	BotRate  float64 `json:"botRate"`

	DuplicateCount int     `json:"duplicateCount"`
	DuplicateRate  float64 `json:"duplicateRate"`

	HighRiskCount int     `json:"highRiskCount"`
	HighRiskRate  float64 `json:"highRiskRate"`

	AvgConfidenceScore  float64 `json:"avgConfidenceScore"`
	AvgFraudScore       float64 `json:"avgFraudScore"`
	AvgVarianceScore    float64 `json:"avgVarianceScore"`
	AvgSatisficingScore float64 `json:"avgSatisficingScore"`

	SpeederSessions   int     `json:"speederSessions"`
	SpeederRate       float64 `json:"speederRate"`
	FlatlinerSessions int     `json:"flatlinerSessions"`
	FlatlinerRate     float64 `json:"flatlinerRate"`

	RiskLevelDistribution map[models.RiskLevel]int   `json:"riskLevelDistribution"`
	PatternDistribution   map[models.PatternType]int `json:"patternDistribution"`
	FraudReasonBreakdown  map[string]int             `json:"fraudReasonBreakdown"`

	TopOffenders []Offender `json:"topOffenders,omitempty"`
}

// Offender is one respondent ranked by fraud evidence within the scope.
type Offender struct {
	RespondentID  string  `json:"respondentId"`
	Sessions      int     `json:"sessions"`
	AvgFraudScore float64 `json:"avgFraudScore"`
	FlaggedBots   int     `json:"flaggedBots"`
}

// SessionDetail is the shape returned for the finest scope: every raw
// result field for one session instead of aggregate counts.
type SessionDetail struct {
	Session   *models.Session         `json:"session"`
	Detection *models.DetectionResult `json:"detection,omitempty"`
	Fraud     *models.FraudIndicator  `json:"fraud,omitempty"`
	Grid      []models.GridResponse   `json:"grid,omitempty"`
	Timing    []models.TimingAnalysis `json:"timing,omitempty"`
}

// Report is the aggregator output: exactly one of Summary or Session is
// set, depending on scope granularity.
type Report struct {
	Scope   Scope          `json:"-"`
	From    time.Time      `json:"from,omitempty"`
	To      time.Time      `json:"to,omitempty"`
	Summary *Summary       `json:"summary,omitempty"`
	Session *SessionDetail `json:"session,omitempty"`
}

// Aggregator serves the reporting queries.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate produces a report for a scope and date range. A session-level
// scope returns the detailed shape; everything broader returns aggregates.
func (a *Aggregator) Aggregate(ctx context.Context, scope Scope, dr DateRange) (*Report, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	report := &Report{Scope: scope, From: dr.From, To: dr.To}

	if scope.SessionID != uuid.Nil {
		detail, err := a.store.SessionDetail(ctx, scope.SessionID)
		if err != nil {
			return nil, fmt.Errorf("session detail: %w", err)
		}
		report.Session = detail
		return report, nil
	}

	detections, err := a.store.LatestDetections(ctx, scope, dr)
	if err != nil {
		return nil, fmt.Errorf("detections: %w", err)
	}
	frauds, err := a.store.LatestFrauds(ctx, scope, dr)
	if err != nil {
		return nil, fmt.Errorf("fraud indicators: %w", err)
	}
	gridRows, err := a.store.GridQuestionRows(ctx, scope, dr)
	if err != nil {
		return nil, fmt.Errorf("grid rows: %w", err)
	}
	timings, err := a.store.TimingRows(ctx, scope, dr)
	if err != nil {
		return nil, fmt.Errorf("timing rows: %w", err)
	}

	report.Summary = Summarize(detections, frauds, gridRows, timings)
	return report, nil
}

// Summarize folds result rows into the aggregate shape. It is pure, which
// is what makes the rollup property hold: summarizing the union of two
// disjoint scopes produces the sum of their counts.
func Summarize(detections []models.DetectionResult, frauds []models.FraudIndicator, gridRows []models.GridResponse, timings []models.TimingAnalysis) *Summary {
	s := &Summary{
		RiskLevelDistribution: make(map[models.RiskLevel]int),
		PatternDistribution:   make(map[models.PatternType]int),
		FraudReasonBreakdown:  make(map[string]int),
	}

	s.TotalSessions = len(detections)

	var confidenceSum float64
	for _, d := range detections {
		confidenceSum += d.ConfidenceScore
		if d.IsBot != nil && *d.IsBot {
			s.BotCount++
		}
		if d.RiskLevel == models.RiskHigh || d.RiskLevel == models.RiskCritical {
			s.HighRiskCount++
		}
		if d.RiskLevel != "" {
			s.RiskLevelDistribution[d.RiskLevel]++
		}
	}

	var fraudSum float64
	perRespondent := make(map[string]*Offender)
	for _, f := range frauds {
		fraudSum += f.OverallFraudScore
		if f.IsDuplicate {
			s.DuplicateCount++
		}
		for _, reason := range f.FlagReasons {
			s.FraudReasonBreakdown[reasonKey(reason)]++
		}

		o := perRespondent[f.RespondentID]
		if o == nil {
			o = &Offender{RespondentID: f.RespondentID}
			perRespondent[f.RespondentID] = o
		}
		o.Sessions++
		o.AvgFraudScore += f.OverallFraudScore
	}
	for _, d := range detections {
		if o, ok := perRespondent[d.RespondentID]; ok && d.IsBot != nil && *d.IsBot {
			o.FlaggedBots++
		}
	}

	var varianceSum, satisficingSum float64
	for _, g := range gridRows {
		varianceSum += g.VarianceScore
		satisficingSum += g.SatisficingScore
		s.PatternDistribution[g.PatternType]++
	}

	// Timing rates are relative to the sessions that actually have timing
	// rows. Timing can be recomputed for sessions with no detection result
	// yet, so TotalSessions is the wrong denominator here.
	timedSessions := make(map[uuid.UUID]struct{})
	speederSessions := make(map[uuid.UUID]struct{})
	flatlinerSessions := make(map[uuid.UUID]struct{})
	for _, t := range timings {
		timedSessions[t.SessionID] = struct{}{}
		if t.IsSpeeder {
			speederSessions[t.SessionID] = struct{}{}
		}
		if t.IsFlatliner {
			flatlinerSessions[t.SessionID] = struct{}{}
		}
	}
	s.SpeederSessions = len(speederSessions)
	s.FlatlinerSessions = len(flatlinerSessions)

	if s.TotalSessions > 0 {
		n := float64(s.TotalSessions)
		s.BotRate = float64(s.BotCount) / n
		s.HighRiskRate = float64(s.HighRiskCount) / n
		s.AvgConfidenceScore = confidenceSum / n
	}
	if len(timedSessions) > 0 {
		n := float64(len(timedSessions))
		s.SpeederRate = float64(s.SpeederSessions) / n
		s.FlatlinerRate = float64(s.FlatlinerSessions) / n
	}
	if len(frauds) > 0 {
		s.DuplicateRate = float64(s.DuplicateCount) / float64(len(frauds))
		s.AvgFraudScore = fraudSum / float64(len(frauds))
	}
	if len(gridRows) > 0 {
		s.AvgVarianceScore = varianceSum / float64(len(gridRows))
		s.AvgSatisficingScore = satisficingSum / float64(len(gridRows))
	}

	s.TopOffenders = rankOffenders(perRespondent, 10)
	return s
}

// rankOffenders orders respondents by average fraud score, ties broken by
// flagged bot count then id for a stable ordering.
func rankOffenders(perRespondent map[string]*Offender, limit int) []Offender {
	out := make([]Offender, 0, len(perRespondent))
	for _, o := range perRespondent {
		if o.Sessions > 0 {
			o.AvgFraudScore /= float64(o.Sessions)
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgFraudScore != out[j].AvgFraudScore {
			return out[i].AvgFraudScore > out[j].AvgFraudScore
		}
		if out[i].FlaggedBots != out[j].FlaggedBots {
			return out[i].FlaggedBots > out[j].FlaggedBots
		}
		return out[i].RespondentID < out[j].RespondentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// reasonKey strips the supporting numbers off a stored flag reason,
// leaving the reason name for the breakdown counts.
func reasonKey(reason string) string {
	for i := 0; i < len(reason); i++ {
		if reason[i] == ':' {
			return reason[:i]
		}
	}
	return reason
}
