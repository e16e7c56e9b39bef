// Package grid classifies grid/matrix answer rows into satisficing
// patterns: straight-lining, diagonals, zigzags.
package grid

import (
	"time"

	"surveyguard/internal/config"
	"surveyguard/internal/models"
)

// QuestionAnalysis is the per-question verdict that gets replicated onto
// every cell row of that question for the session.
type QuestionAnalysis struct {
	IsStraightLined  bool
	PatternType      models.PatternType
	VarianceScore    float64
	SatisficingScore float64
}

// AnalyzeQuestion classifies one session's answer to one grid question and
// materializes the denormalized cell rows. scaleWidth is the number of
// columns the question offers; medianResponseMS is the median response time
// for this question across the survey (0 when unknown).
func AnalyzeQuestion(session *models.Session, answer models.Answer, scaleWidth int, medianResponseMS float64, cfg config.GridConfig) []*models.GridResponse {
	analysis := Classify(answer.GridCells, scaleWidth, answer.ResponseTimeMS, medianResponseMS, cfg)

	now := time.Now().UTC()
	rows := make([]*models.GridResponse, 0, len(answer.GridCells))
	for _, cell := range answer.GridCells {
		r := session.NewGridResponse(answer.QuestionID, cell.RowID, cell.ColumnID)
		r.ResponseValue = cell.Value
		r.ResponseTimeMS = answer.ResponseTimeMS
		r.IsStraightLined = analysis.IsStraightLined
		r.PatternType = analysis.PatternType
		r.VarianceScore = analysis.VarianceScore
		r.SatisficingScore = analysis.SatisficingScore
		r.CreatedAt = now
		rows = append(rows, r)
	}
	return rows
}

// Classify computes the pattern verdict for one ordered row sequence.
func Classify(cells []models.GridCell, scaleWidth int, responseTimeMS, medianResponseMS float64, cfg config.GridConfig) QuestionAnalysis {
	analysis := QuestionAnalysis{PatternType: models.PatternNone}
	if len(cells) == 0 {
		return analysis
	}

	threshold := cfg.StraightLineThreshold
	if threshold <= 0 {
		threshold = 0.8
	}

	// The boundary is inclusive: exactly 80% identical is straight-lined.
	identicalShare := modalValueShare(cells)
	analysis.IsStraightLined = identicalShare >= threshold

	columns := make([]int, len(cells))
	for i, c := range cells {
		columns[i] = c.ColumnIndex
	}

	// Straight-lining wins the priority order outright: a row set that is
	// 80%+ identical is reported as straight_line even when the leftover
	// rows would also fit a diagonal reading.
	if analysis.IsStraightLined {
		analysis.PatternType = models.PatternStraightLine
	} else {
		analysis.PatternType = classifyPattern(columns)
	}
	analysis.VarianceScore = normalizedVariance(columns, scaleWidth)
	analysis.SatisficingScore = satisficingScore(analysis, responseTimeMS, medianResponseMS)

	return analysis
}

// modalValueShare is the fraction of rows carrying the most common value.
func modalValueShare(cells []models.GridCell) float64 {
	counts := make(map[string]int, len(cells))
	max := 0
	for _, c := range cells {
		counts[c.Value]++
		if counts[c.Value] > max {
			max = counts[c.Value]
		}
	}
	return float64(max) / float64(len(cells))
}

// classifyPattern resolves ties in priority order: straight_line beats
// diagonal beats reverse_diagonal beats zigzag.
func classifyPattern(columns []int) models.PatternType {
	if len(columns) < 2 {
		if len(columns) == 1 {
			return models.PatternStraightLine
		}
		return models.PatternNone
	}

	if allEqual(columns) {
		return models.PatternStraightLine
	}

	ups, downs, reversals := directionStats(columns)
	switch {
	case ups > 0 && downs == 0:
		return models.PatternDiagonal
	case downs > 0 && ups == 0:
		return models.PatternReverseDiagonal
	case reversals == 1 && ups > downs && columns[len(columns)-1] > columns[0]:
		return models.PatternDiagonal
	case reversals == 1 && downs > ups && columns[len(columns)-1] < columns[0]:
		return models.PatternReverseDiagonal
	}

	if isZigzag(columns) {
		return models.PatternZigzag
	}
	return models.PatternNone
}

func allEqual(columns []int) bool {
	for _, c := range columns[1:] {
		if c != columns[0] {
			return false
		}
	}
	return true
}

// directionStats counts increasing and decreasing steps and the number of
// direction reversals between consecutive non-flat steps.
func directionStats(columns []int) (ups, downs, reversals int) {
	lastSign := 0
	for i := 1; i < len(columns); i++ {
		d := columns[i] - columns[i-1]
		sign := 0
		switch {
		case d > 0:
			ups++
			sign = 1
		case d < 0:
			downs++
			sign = -1
		}
		if sign != 0 {
			if lastSign != 0 && sign != lastSign {
				reversals++
			}
			lastSign = sign
		}
	}
	return ups, downs, reversals
}

// isZigzag reports whether the sequence repeats with some period no longer
// than half its length. A constant sequence never reaches here; the
// straight-line check wins first.
func isZigzag(columns []int) bool {
	n := len(columns)
	for period := 2; period <= n/2; period++ {
		matches := true
		for i := period; i < n; i++ {
			if columns[i] != columns[i-period] {
				matches = false
				break
			}
		}
		if matches {
			return true
		}
	}
	return false
}

// normalizedVariance scales the population variance of the chosen column
// indices to [0,1], where 1 is the maximal spread the scale width allows
// (half the answers at each extreme).
func normalizedVariance(columns []int, scaleWidth int) float64 {
	if len(columns) == 0 || scaleWidth < 2 {
		return 0
	}

	var sum float64
	for _, c := range columns {
		sum += float64(c)
	}
	avg := sum / float64(len(columns))

	var variance float64
	for _, c := range columns {
		d := float64(c) - avg
		variance += d * d
	}
	variance /= float64(len(columns))

	half := float64(scaleWidth-1) / 2
	maxVariance := half * half
	if maxVariance <= 0 {
		return 0
	}

	score := variance / maxVariance
	if score > 1 {
		score = 1
	}
	return score
}

// satisficingScore combines low variance, straight-lining, and
// below-median response time. Higher means more evidence of
// minimal-effort answering.
func satisficingScore(a QuestionAnalysis, responseTimeMS, medianResponseMS float64) float64 {
	lowVariance := 1 - a.VarianceScore

	lined := 0.0
	if a.IsStraightLined {
		lined = 1.0
	}

	fast := 0.0
	if medianResponseMS > 0 && responseTimeMS > 0 && responseTimeMS < medianResponseMS {
		fast = (medianResponseMS - responseTimeMS) / medianResponseMS
	}

	score := 0.4*lowVariance + 0.3*lined + 0.3*fast
	if score > 1 {
		score = 1
	}
	return score
}
