package detection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surveyguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openAnswerFeatures() *SessionFeatures {
	session := botSession()
	return ExtractFeatures(session, nil, []models.Answer{
		{QuestionID: "q_open", QuestionType: models.QuestionOpenEnded, Value: "good good good", ResponseTimeMS: 900},
	}, zap.NewNop())
}

func TestTextQuality_ScoresLowQualityText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"qualityScore": 0.1, "flags": ["repetitive text"]}`))
	}))
	defer srv.Close()

	client := NewTextQualityClient(srv.URL, "", time.Second)
	r, err := client.Score(context.Background(), openAnswerFeatures())
	require.NoError(t, err)

	assert.True(t, r.Applicable)
	assert.InDelta(t, 0.9, r.Score, 1e-9)
	require.Len(t, r.Flags, 1)
	assert.Equal(t, models.PatternLowTextQuality, r.Flags[0].Name)
	assert.Equal(t, "repetitive text", r.Flags[0].Detail)
}

func TestTextQuality_ServerErrorIsUnavailableNotZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewTextQualityClient(srv.URL, "", time.Second)
	r, err := client.Score(context.Background(), openAnswerFeatures())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalScorerUnavailable)
	assert.False(t, r.Applicable)
}

func TestTextQuality_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewTextQualityClient(srv.URL, "", 20*time.Millisecond)
	_, err := client.Score(context.Background(), openAnswerFeatures())

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalScorerUnavailable)
}

func TestTextQuality_DisabledWithoutEndpoint(t *testing.T) {
	client := NewTextQualityClient("", "", time.Second)
	r, err := client.Score(context.Background(), openAnswerFeatures())

	require.NoError(t, err)
	assert.False(t, r.Applicable)
}

// An unavailable external scorer must drop out of the composite, not sink
// the whole analysis.
func TestAnalyze_ExternalScorerUnavailableExcluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := detectionConfig()
	cfg.EnabledMethods["text_quality"] = true
	a := NewAnalyzer(cfg, NewTextQualityClient(srv.URL, "", time.Second), zap.NewNop())

	session := botSession()
	answers := append(botAnswers(session.ID), models.Answer{
		SessionID: session.ID, QuestionID: "q_open",
		QuestionType: models.QuestionOpenEnded, Value: "fine", ResponseTimeMS: 900,
	})

	result, err := a.Analyze(context.Background(), session, botEvents(session.ID, 30), answers, Corroboration{})
	require.NoError(t, err)
	assert.NotContains(t, result.MethodScores, models.MethodTextQuality)
	assert.Greater(t, result.ConfidenceScore, 0.0)
}
