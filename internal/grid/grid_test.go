package grid

import (
	"testing"

	"surveyguard/internal/config"
	"surveyguard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg() config.GridConfig {
	return config.GridConfig{StraightLineThreshold: 0.8}
}

// cells builds one grid answer from column indices; values mirror the
// column choice the way a Likert capture reports them.
func cells(columns ...int) []models.GridCell {
	out := make([]models.GridCell, len(columns))
	for i, col := range columns {
		out[i] = models.GridCell{
			RowID:       string(rune('a' + i)),
			ColumnID:    string(rune('0' + col)),
			ColumnIndex: col,
			Value:       string(rune('0' + col)),
		}
	}
	return out
}

func TestClassify_StraightLining(t *testing.T) {
	tests := []struct {
		name    string
		columns []int
		lined   bool
		pattern models.PatternType
	}{
		{
			name:    "nine of ten rows identical",
			columns: []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 4},
			lined:   true,
			pattern: models.PatternStraightLine,
		},
		{
			name:    "exactly 80 percent is inclusive",
			columns: []int{1, 1, 1, 1, 1, 1, 1, 1, 3, 4},
			lined:   true,
			pattern: models.PatternStraightLine,
		},
		{
			name:    "below 80 percent is not lined",
			columns: []int{1, 1, 1, 1, 1, 1, 1, 3, 4, 0},
			lined:   false,
		},
		{
			name:    "all rows identical",
			columns: []int{3, 3, 3, 3, 3},
			lined:   true,
			pattern: models.PatternStraightLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(cells(tt.columns...), 5, 0, 0, cfg())
			assert.Equal(t, tt.lined, a.IsStraightLined)
			if tt.pattern != "" {
				assert.Equal(t, tt.pattern, a.PatternType)
			}
		})
	}
}

func TestClassify_PatternTypes(t *testing.T) {
	tests := []struct {
		name    string
		columns []int
		want    models.PatternType
	}{
		{"diagonal", []int{0, 1, 2, 3, 4}, models.PatternDiagonal},
		{"reverse diagonal", []int{4, 3, 2, 1, 0}, models.PatternReverseDiagonal},
		{"diagonal with one reversal", []int{0, 1, 2, 3, 2}, models.PatternDiagonal},
		{"reverse with one reversal", []int{4, 3, 2, 1, 2}, models.PatternReverseDiagonal},
		{"zigzag period two", []int{0, 4, 0, 4, 0, 4}, models.PatternZigzag},
		{"zigzag period three", []int{0, 2, 4, 0, 2, 4}, models.PatternZigzag},
		{"no pattern", []int{0, 3, 1, 4, 2}, models.PatternNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Classify(cells(tt.columns...), 5, 0, 0, cfg())
			assert.Equal(t, tt.want, a.PatternType)
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// A single row trivially satisfies every definition; straight_line
	// wins the listed priority.
	a := Classify(cells(2), 5, 0, 0, cfg())
	assert.Equal(t, models.PatternStraightLine, a.PatternType)

	// A fully identical sequence is also a degenerate zigzag; it must
	// still be reported as straight_line.
	a = Classify(cells(1, 1, 1, 1), 5, 0, 0, cfg())
	assert.Equal(t, models.PatternStraightLine, a.PatternType)
}

func TestClassify_VarianceScore(t *testing.T) {
	// Identical answers carry zero variance.
	a := Classify(cells(2, 2, 2, 2), 5, 0, 0, cfg())
	assert.Equal(t, 0.0, a.VarianceScore)

	// Half the rows at each extreme is the maximal spread the scale
	// width allows.
	a = Classify(cells(0, 0, 4, 4), 5, 0, 0, cfg())
	assert.InDelta(t, 1.0, a.VarianceScore, 1e-9)

	// Moderate spread lands strictly between.
	a = Classify(cells(1, 2, 3, 2), 5, 0, 0, cfg())
	assert.Greater(t, a.VarianceScore, 0.0)
	assert.Less(t, a.VarianceScore, 1.0)
}

func TestClassify_SatisficingScore(t *testing.T) {
	// Straight-lined, zero variance, answered far below the survey
	// median: maximal satisficing evidence.
	fast := Classify(cells(2, 2, 2, 2), 5, 1000, 4000, cfg())
	assert.Greater(t, fast.SatisficingScore, 0.85)

	// Same answers at the median lose the speed component.
	slow := Classify(cells(2, 2, 2, 2), 5, 4000, 4000, cfg())
	assert.Less(t, slow.SatisficingScore, fast.SatisficingScore)

	// High-variance, unhurried answering scores low.
	varied := Classify(cells(0, 4, 1, 3), 5, 6000, 4000, cfg())
	assert.Less(t, varied.SatisficingScore, 0.4)
}

func TestAnalyzeQuestion_ReplicatesVerdictOntoEveryCell(t *testing.T) {
	session := &models.Session{
		ID:           uuid.New(),
		SurveyID:     "sv1",
		PlatformID:   "pf1",
		RespondentID: "rs1",
	}
	answer := models.Answer{
		QuestionID:     "q_grid",
		QuestionType:   models.QuestionGrid,
		GridCells:      cells(2, 2, 2, 2, 2),
		ResponseTimeMS: 1500,
	}

	rows := AnalyzeQuestion(session, answer, 5, 4000, cfg())
	require.Len(t, rows, 5)

	first := rows[0]
	for _, r := range rows {
		assert.Equal(t, first.IsStraightLined, r.IsStraightLined)
		assert.Equal(t, first.PatternType, r.PatternType)
		assert.Equal(t, first.VarianceScore, r.VarianceScore)
		assert.Equal(t, first.SatisficingScore, r.SatisficingScore)

		// Hierarchy columns must mirror the owning session.
		assert.Equal(t, session.ID, r.SessionID)
		assert.Equal(t, session.SurveyID, r.SurveyID)
		assert.Equal(t, session.PlatformID, r.PlatformID)
		assert.Equal(t, session.RespondentID, r.RespondentID)
		assert.Equal(t, "q_grid", r.QuestionID)
	}
	assert.True(t, first.IsStraightLined)
	assert.Equal(t, models.PatternStraightLine, first.PatternType)
}

func TestClassify_EmptyCells(t *testing.T) {
	a := Classify(nil, 5, 0, 0, cfg())
	assert.False(t, a.IsStraightLined)
	assert.Equal(t, models.PatternNone, a.PatternType)
	assert.Equal(t, 0.0, a.VarianceScore)
}
