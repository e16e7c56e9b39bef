package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() *Session {
	return &Session{
		ID:           uuid.New(),
		SurveyID:     "sv1",
		PlatformID:   "pf1",
		RespondentID: "rs1",
	}
}

// The hierarchy columns on every result entity must equal the owning
// session's, written once at creation through the factories.
func TestSessionFactories_CopyHierarchyFields(t *testing.T) {
	s := newSession()

	d := s.NewDetectionResult()
	assert.Equal(t, s.ID, d.SessionID)
	assert.Equal(t, s.SurveyID, d.SurveyID)
	assert.Equal(t, s.PlatformID, d.PlatformID)
	assert.Equal(t, s.RespondentID, d.RespondentID)
	assert.False(t, d.AnalyzedAt.IsZero())
	assert.Nil(t, d.IsBot)

	f := s.NewFraudIndicator()
	assert.Equal(t, s.ID, f.SessionID)
	assert.Equal(t, s.SurveyID, f.SurveyID)
	assert.Equal(t, s.PlatformID, f.PlatformID)
	assert.Equal(t, s.RespondentID, f.RespondentID)

	g := s.NewGridResponse("q1", "row1", "col2")
	assert.Equal(t, s.ID, g.SessionID)
	assert.Equal(t, s.SurveyID, g.SurveyID)
	assert.Equal(t, s.PlatformID, g.PlatformID)
	assert.Equal(t, s.RespondentID, g.RespondentID)
	assert.Equal(t, "q1", g.QuestionID)

	ta := s.NewTimingAnalysis("q1")
	assert.Equal(t, s.ID, ta.SessionID)
	assert.Equal(t, s.SurveyID, ta.SurveyID)
	assert.Equal(t, s.PlatformID, ta.PlatformID)
	assert.Equal(t, s.RespondentID, ta.RespondentID)
}

func TestFlagListMerge_KeepsHighestConfidence(t *testing.T) {
	list := FlagList{
		{Name: PatternUniformKeystrokes, Confidence: 0.6, Observed: 0.12},
	}

	merged := list.Merge([]Flag{
		{Name: PatternUniformKeystrokes, Confidence: 0.9, Observed: 0.05},
		{Name: PatternPasteBurst, Confidence: 0.8},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, PatternUniformKeystrokes, merged[0].Name)
	assert.Equal(t, 0.9, merged[0].Confidence)
	assert.Equal(t, 0.05, merged[0].Observed)
	assert.Equal(t, PatternPasteBurst, merged[1].Name)
}

func TestFlagListMerge_LowerConfidenceDoesNotReplace(t *testing.T) {
	list := FlagList{
		{Name: PatternDatacenterIP, Confidence: 0.8},
	}

	merged := list.Merge([]Flag{
		{Name: PatternDatacenterIP, Confidence: 0.3},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, 0.8, merged[0].Confidence)
}
