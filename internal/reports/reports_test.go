package reports

import (
	"context"
	"testing"
	"time"

	"surveyguard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore serves in-memory result rows, filtered the same way the SQL
// layer filters the denormalized columns.
type stubStore struct {
	detections []models.DetectionResult
	frauds     []models.FraudIndicator
	gridRows   []models.GridResponse
	timings    []models.TimingAnalysis
	detail     *SessionDetail
}

func matches(scope Scope, surveyID, platformID, respondentID string) bool {
	if scope.SurveyID != surveyID {
		return false
	}
	if scope.PlatformID != "" && scope.PlatformID != platformID {
		return false
	}
	if scope.RespondentID != "" && scope.RespondentID != respondentID {
		return false
	}
	return true
}

func (s *stubStore) LatestDetections(_ context.Context, scope Scope, _ DateRange) ([]models.DetectionResult, error) {
	var out []models.DetectionResult
	for _, d := range s.detections {
		if matches(scope, d.SurveyID, d.PlatformID, d.RespondentID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubStore) LatestFrauds(_ context.Context, scope Scope, _ DateRange) ([]models.FraudIndicator, error) {
	var out []models.FraudIndicator
	for _, f := range s.frauds {
		if matches(scope, f.SurveyID, f.PlatformID, f.RespondentID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *stubStore) GridQuestionRows(_ context.Context, scope Scope, _ DateRange) ([]models.GridResponse, error) {
	var out []models.GridResponse
	for _, g := range s.gridRows {
		if matches(scope, g.SurveyID, g.PlatformID, g.RespondentID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubStore) TimingRows(_ context.Context, scope Scope, _ DateRange) ([]models.TimingAnalysis, error) {
	var out []models.TimingAnalysis
	for _, t := range s.timings {
		if matches(scope, t.SurveyID, t.PlatformID, t.RespondentID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubStore) SessionDetail(_ context.Context, _ uuid.UUID) (*SessionDetail, error) {
	return s.detail, nil
}

func boolPtr(b bool) *bool { return &b }

// seedStore spreads sessions over two platforms under one survey.
func seedStore() *stubStore {
	store := &stubStore{}

	type seed struct {
		platform  string
		isBot     bool
		risk      models.RiskLevel
		fraud     float64
		duplicate bool
		speeder   bool
	}
	seeds := []seed{
		{"panel-a", true, models.RiskHigh, 0.8, true, true},
		{"panel-a", false, models.RiskLow, 0.1, false, false},
		{"panel-a", false, models.RiskMedium, 0.4, false, true},
		{"panel-b", true, models.RiskCritical, 0.9, true, false},
		{"panel-b", false, models.RiskLow, 0.2, false, false},
	}

	for i, sd := range seeds {
		sessionID := uuid.New()
		respondent := "r" + string(rune('0'+i))

		store.detections = append(store.detections, models.DetectionResult{
			SessionID:    sessionID,
			SurveyID:     "sv1",
			PlatformID:   sd.platform,
			RespondentID: respondent,
			IsBot:        boolPtr(sd.isBot),
			RiskLevel:    sd.risk,
			AnalyzedAt:   time.Now(),
		})
		store.frauds = append(store.frauds, models.FraudIndicator{
			SessionID:         sessionID,
			SurveyID:          "sv1",
			PlatformID:        sd.platform,
			RespondentID:      respondent,
			OverallFraudScore: sd.fraud,
			IsDuplicate:       sd.duplicate,
		})
		store.gridRows = append(store.gridRows, models.GridResponse{
			SessionID:    sessionID,
			SurveyID:     "sv1",
			PlatformID:   sd.platform,
			RespondentID: respondent,
			PatternType:  models.PatternStraightLine,
		})
		store.timings = append(store.timings, models.TimingAnalysis{
			SessionID:    sessionID,
			SurveyID:     "sv1",
			PlatformID:   sd.platform,
			RespondentID: respondent,
			IsSpeeder:    sd.speeder,
		})
	}
	return store
}

func TestAggregate_SurveyEqualsSumOfPlatforms(t *testing.T) {
	agg := NewAggregator(seedStore())
	ctx := context.Background()

	survey, err := agg.Aggregate(ctx, Scope{SurveyID: "sv1"}, DateRange{})
	require.NoError(t, err)
	require.NotNil(t, survey.Summary)

	platformA, err := agg.Aggregate(ctx, Scope{SurveyID: "sv1", PlatformID: "panel-a"}, DateRange{})
	require.NoError(t, err)
	platformB, err := agg.Aggregate(ctx, Scope{SurveyID: "sv1", PlatformID: "panel-b"}, DateRange{})
	require.NoError(t, err)

	a, b, total := platformA.Summary, platformB.Summary, survey.Summary

	assert.Equal(t, total.TotalSessions, a.TotalSessions+b.TotalSessions)
	assert.Equal(t, total.BotCount, a.BotCount+b.BotCount)
	assert.Equal(t, total.DuplicateCount, a.DuplicateCount+b.DuplicateCount)
	assert.Equal(t, total.HighRiskCount, a.HighRiskCount+b.HighRiskCount)
	assert.Equal(t, total.SpeederSessions, a.SpeederSessions+b.SpeederSessions)

	for _, level := range []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical} {
		assert.Equal(t, total.RiskLevelDistribution[level],
			a.RiskLevelDistribution[level]+b.RiskLevelDistribution[level],
			"risk distribution for %s must roll up", level)
	}
	assert.Equal(t, total.PatternDistribution[models.PatternStraightLine],
		a.PatternDistribution[models.PatternStraightLine]+b.PatternDistribution[models.PatternStraightLine])
}

func TestAggregate_SummaryContents(t *testing.T) {
	agg := NewAggregator(seedStore())

	report, err := agg.Aggregate(context.Background(), Scope{SurveyID: "sv1"}, DateRange{})
	require.NoError(t, err)
	s := report.Summary
	require.NotNil(t, s)

	assert.Equal(t, 5, s.TotalSessions)
	assert.Equal(t, 2, s.BotCount)
	assert.InDelta(t, 0.4, s.BotRate, 1e-9)
	assert.Equal(t, 2, s.DuplicateCount)
	assert.Equal(t, 2, s.HighRiskCount)
	assert.Equal(t, 2, s.SpeederSessions)
	assert.InDelta(t, 0.48, s.AvgFraudScore, 1e-9)

	// Top offenders ranked by fraud score, highest first.
	require.NotEmpty(t, s.TopOffenders)
	assert.InDelta(t, 0.9, s.TopOffenders[0].AvgFraudScore, 1e-9)
}

func TestAggregate_SessionScopeReturnsDetailShape(t *testing.T) {
	sessionID := uuid.New()
	store := seedStore()
	store.detail = &SessionDetail{
		Session: &models.Session{ID: sessionID, SurveyID: "sv1"},
	}
	agg := NewAggregator(store)

	report, err := agg.Aggregate(context.Background(),
		Scope{SurveyID: "sv1", SessionID: sessionID}, DateRange{})
	require.NoError(t, err)

	// The finest scope switches shape: detail set, aggregate absent.
	assert.Nil(t, report.Summary)
	require.NotNil(t, report.Session)
	assert.Equal(t, sessionID, report.Session.Session.ID)
}

func TestAggregate_RequiresSurvey(t *testing.T) {
	agg := NewAggregator(seedStore())

	_, err := agg.Aggregate(context.Background(), Scope{}, DateRange{})
	assert.Error(t, err)
}

func TestSummarize_TimingRatesUseTimedSessionDenominator(t *testing.T) {
	// Timing can be recomputed for sessions that have no detection result
	// yet; the speeder and flatliner rates stay within [0, 1] regardless.
	detections := []models.DetectionResult{
		{SessionID: uuid.New(), SurveyID: "sv1", RiskLevel: models.RiskLow},
	}
	var timings []models.TimingAnalysis
	for i := 0; i < 4; i++ {
		timings = append(timings, models.TimingAnalysis{
			SessionID:   uuid.New(),
			SurveyID:    "sv1",
			IsSpeeder:   i < 3,
			IsFlatliner: i == 3,
		})
	}

	s := Summarize(detections, nil, nil, timings)

	assert.Equal(t, 1, s.TotalSessions)
	assert.Equal(t, 3, s.SpeederSessions)
	assert.InDelta(t, 0.75, s.SpeederRate, 1e-9)
	assert.InDelta(t, 0.25, s.FlatlinerRate, 1e-9)
	assert.LessOrEqual(t, s.SpeederRate, 1.0)
}

func TestSummarize_EmptyInput(t *testing.T) {
	s := Summarize(nil, nil, nil, nil)
	assert.Equal(t, 0, s.TotalSessions)
	assert.Equal(t, 0.0, s.BotRate)
	assert.Empty(t, s.TopOffenders)
}
