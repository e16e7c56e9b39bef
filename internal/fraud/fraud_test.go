package fraud

import (
	"context"
	"strings"
	"testing"
	"time"

	"surveyguard/internal/config"
	"surveyguard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubStore serves canned cross-session counts and comparison answers.
type stubStore struct {
	ipCount          int
	fingerprintCount int
	respondentCount  int
	otherAnswers     []models.Answer
}

func (s *stubStore) CountSessionsByIP(_ context.Context, _ string, _ time.Time, _ uuid.UUID) (int, error) {
	return s.ipCount, nil
}

func (s *stubStore) CountSessionsByFingerprint(_ context.Context, _ string, _ time.Time, _ uuid.UUID) (int, error) {
	return s.fingerprintCount, nil
}

func (s *stubStore) OpenAnswersForQuestion(_ context.Context, _, _ string, _ uuid.UUID) ([]models.Answer, error) {
	return s.otherAnswers, nil
}

func (s *stubStore) CountSessionsByRespondent(_ context.Context, _ string, _ time.Time) (int, error) {
	return s.respondentCount, nil
}

func fraudConfig() config.FraudConfig {
	return config.FraudConfig{
		DuplicateSimilarityThreshold: 0.85,
		IPUsageCap:                   10,
		FingerprintUsageCap:          10,
		VelocityCeilingPerHour:       20,
		LookbackDays:                 30,
	}
}

func riskLevels() map[string]float64 {
	return map[string]float64{"medium": 0.3, "high": 0.7, "critical": 0.9}
}

func fraudSession() *models.Session {
	return &models.Session{
		ID:                uuid.New(),
		SurveyID:          "sv1",
		PlatformID:        "pf1",
		RespondentID:      "rs1",
		IPAddress:         "198.51.100.7",
		DeviceFingerprint: "fp-abc123",
	}
}

func TestEvaluate_CleanSession(t *testing.T) {
	store := &stubStore{}
	d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	ind, err := d.Evaluate(context.Background(), fraudSession(), nil)
	require.NoError(t, err)

	assert.False(t, ind.IsDuplicate)
	assert.Equal(t, models.RiskLow, ind.RiskLevel)
	assert.Empty(t, ind.FlagReasons)
	assert.Less(t, ind.OverallFraudScore, 0.3)
}

func TestEvaluate_DuplicateAnswers(t *testing.T) {
	text := "honestly the checkout flow felt smooth although shipping estimates were vague and support responses arrived quite late during holidays"
	nearDuplicate := strings.Replace(text, "holidays", "weekends", 1)

	otherSession := uuid.New()
	store := &stubStore{
		otherAnswers: []models.Answer{
			{SessionID: otherSession, QuestionID: "q_open", Value: nearDuplicate},
		},
	}
	d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	answers := []models.Answer{
		{QuestionID: "q_open", QuestionType: models.QuestionOpenEnded, Value: text},
	}

	ind, err := d.Evaluate(context.Background(), fraudSession(), answers)
	require.NoError(t, err)

	assert.True(t, ind.IsDuplicate)
	assert.Equal(t, 1, ind.DuplicateCount)
	assert.GreaterOrEqual(t, ind.DuplicateSimilarity, 0.85)
	require.Len(t, ind.FlagReasons, 1)
	assert.Contains(t, ind.FlagReasons[0], models.FraudReasonDuplicateAnswers)
}

func TestEvaluate_BelowSimilarityThresholdIsNotDuplicate(t *testing.T) {
	store := &stubStore{
		otherAnswers: []models.Answer{
			{SessionID: uuid.New(), QuestionID: "q_open", Value: "the quick brown fox leaps"},
		},
	}
	d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	answers := []models.Answer{
		{QuestionID: "q_open", QuestionType: models.QuestionOpenEnded, Value: "the quick brown fox jumps"},
	}

	ind, err := d.Evaluate(context.Background(), fraudSession(), answers)
	require.NoError(t, err)

	assert.False(t, ind.IsDuplicate)
	assert.Equal(t, 0, ind.DuplicateCount)
	assert.Greater(t, ind.DuplicateSimilarity, 0.0)
}

func TestEvaluate_IPReuseSaturatesAtCap(t *testing.T) {
	store := &stubStore{ipCount: 10}
	d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	ind, err := d.Evaluate(context.Background(), fraudSession(), nil)
	require.NoError(t, err)

	assert.Equal(t, 10, ind.IPUsageCount)
	assert.InDelta(t, 1.0, ind.IPRiskScore, 1e-9)

	found := false
	for _, reason := range ind.FlagReasons {
		if strings.HasPrefix(reason, models.FraudReasonIPReuse) {
			found = true
		}
	}
	assert.True(t, found, "expected an ip_reuse flag reason")
}

func TestEvaluate_IPRiskIsMonotonic(t *testing.T) {
	var prev float64
	for _, count := range []int{0, 2, 5, 10, 25} {
		store := &stubStore{ipCount: count}
		d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

		ind, err := d.Evaluate(context.Background(), fraudSession(), nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ind.IPRiskScore, prev, "risk must not drop as reuse grows")
		assert.LessOrEqual(t, ind.IPRiskScore, 1.0)
		prev = ind.IPRiskScore
	}
}

func TestEvaluate_VelocityCeiling(t *testing.T) {
	// 30 responses/hour against a ceiling of 20.
	store := &stubStore{respondentCount: 30}
	d := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	ind, err := d.Evaluate(context.Background(), fraudSession(), nil)
	require.NoError(t, err)

	assert.Equal(t, 30.0, ind.ResponsesPerHour)
	assert.InDelta(t, 0.75, ind.VelocityRiskScore, 1e-9)

	found := false
	for _, reason := range ind.FlagReasons {
		if strings.HasPrefix(reason, models.FraudReasonHighVelocity) {
			found = true
		}
	}
	assert.True(t, found, "expected a high_velocity flag reason")
}

func TestEvaluate_SubScoreWeights(t *testing.T) {
	cfg := fraudConfig()
	cfg.SubScoreWeights = map[string]float64{
		models.FraudReasonIPReuse:          3,
		models.FraudReasonFingerprintReuse: 1,
		models.FraudReasonDuplicateAnswers: 1,
		models.FraudReasonHighVelocity:     1,
	}

	store := &stubStore{ipCount: 10}
	weighted := NewDetector(cfg, riskLevels(), store, nil, zap.NewNop())
	equal := NewDetector(fraudConfig(), riskLevels(), store, nil, zap.NewNop())

	wInd, err := weighted.Evaluate(context.Background(), fraudSession(), nil)
	require.NoError(t, err)
	eInd, err := equal.Evaluate(context.Background(), fraudSession(), nil)
	require.NoError(t, err)

	// The IP sub-score is the only elevated one; tripling its weight must
	// raise the overall score.
	assert.Greater(t, wInd.OverallFraudScore, eInd.OverallFraudScore)
}

func TestEvaluate_HierarchyCopiedFromSession(t *testing.T) {
	session := fraudSession()
	d := NewDetector(fraudConfig(), riskLevels(), &stubStore{}, nil, zap.NewNop())

	ind, err := d.Evaluate(context.Background(), session, nil)
	require.NoError(t, err)

	assert.Equal(t, session.ID, ind.SessionID)
	assert.Equal(t, session.SurveyID, ind.SurveyID)
	assert.Equal(t, session.PlatformID, ind.PlatformID)
	assert.Equal(t, session.RespondentID, ind.RespondentID)
}
