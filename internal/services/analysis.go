// Package services orchestrates the detectors: loading a session's stored
// rows, fanning the analyses out, and persisting the result rows.
package services

import (
	"context"
	"fmt"

	"surveyguard/internal/anomaly"
	"surveyguard/internal/config"
	"surveyguard/internal/detection"
	"surveyguard/internal/fraud"
	"surveyguard/internal/grid"
	"surveyguard/internal/models"
	"surveyguard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AnalysisService runs the full per-session pipeline. It is stateless
// across sessions; analyses for different sessions run fully in parallel.
type AnalysisService struct {
	store    *repository.Store
	analyzer *detection.Analyzer
	fraud    *fraud.Detector
	timing   *anomaly.Detector
	catalog  *models.Catalog
	gridCfg  config.GridConfig
	log      *zap.Logger
}

func NewAnalysisService(store *repository.Store, analyzer *detection.Analyzer, fraudDet *fraud.Detector, timingDet *anomaly.Detector, catalog *models.Catalog, gridCfg config.GridConfig, log *zap.Logger) *AnalysisService {
	return &AnalysisService{
		store:    store,
		analyzer: analyzer,
		fraud:    fraudDet,
		timing:   timingDet,
		catalog:  catalog,
		gridCfg:  gridCfg,
		log:      log,
	}
}

// sessionRows is everything one analysis reads.
type sessionRows struct {
	session *models.Session
	events  []models.Event
	answers []models.Answer
}

func (s *AnalysisService) load(ctx context.Context, sessionID uuid.UUID) (*sessionRows, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	events, err := s.store.EventsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AnswersForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &sessionRows{session: session, events: events, answers: answers}, nil
}

// AnalyzeSession runs the whole pipeline for one session: fraud, grid, and
// timing first (concurrently, they are independent), then the bot-score
// aggregation, which consults their verdicts for the critical-tier
// corroboration policy. All result rows are persisted. snapshot may be nil
// for a one-off analysis; batch runs pass one shared immutable snapshot.
func (s *AnalysisService) AnalyzeSession(ctx context.Context, sessionID uuid.UUID, snapshot *anomaly.PopulationSnapshot) (*models.DetectionResult, error) {
	rows, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if snapshot == nil {
		snapshot, err = s.store.BuildPopulationSnapshot(ctx, rows.session.SurveyID)
		if err != nil {
			return nil, err
		}
	}

	var (
		fraudInd   *models.FraudIndicator
		gridRows   []*models.GridResponse
		timingRows []*models.TimingAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fraudInd, err = s.fraud.Evaluate(gctx, rows.session, rows.answers)
		return err
	})
	g.Go(func() error {
		var err error
		gridRows, err = s.analyzeGrids(gctx, rows)
		return err
	})
	g.Go(func() error {
		timingRows = s.timing.EvaluateSession(rows.session, rows.answers, snapshot)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("session %s pre-analysis: %w", sessionID, err)
	}

	corro := detection.Corroboration{
		FraudFlagged:  fraudFlagged(fraudInd),
		GridFlagged:   gridFlagged(gridRows),
		TimingFlagged: timingFlagged(timingRows),
	}

	result, err := s.analyzer.Analyze(ctx, rows.session, rows.events, rows.answers, corro)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, rows.session, result, fraudInd, gridRows, timingRows); err != nil {
		return nil, err
	}
	return result, nil
}

// ComputeFraud evaluates and persists the fraud indicator alone.
func (s *AnalysisService) ComputeFraud(ctx context.Context, sessionID uuid.UUID) (*models.FraudIndicator, error) {
	rows, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ind, err := s.fraud.Evaluate(ctx, rows.session, rows.answers)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveFraudIndicator(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

// ComputeGridAnalysis classifies one grid question for one session and
// persists the cell rows.
func (s *AnalysisService) ComputeGridAnalysis(ctx context.Context, sessionID uuid.UUID, questionID string) ([]*models.GridResponse, error) {
	rows, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for _, a := range rows.answers {
		if a.QuestionID != questionID || len(a.GridCells) == 0 {
			continue
		}
		result, err := s.analyzeGridQuestion(ctx, rows.session, a)
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceGridResponses(ctx, sessionID, questionID, result); err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: no grid answer for question %s", models.ErrInsufficientData, questionID)
}

// ComputeTiming evaluates and persists per-question timing for one session.
func (s *AnalysisService) ComputeTiming(ctx context.Context, sessionID uuid.UUID) ([]*models.TimingAnalysis, error) {
	rows, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.BuildPopulationSnapshot(ctx, rows.session.SurveyID)
	if err != nil {
		return nil, err
	}
	out := s.timing.EvaluateSession(rows.session, rows.answers, snapshot)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no timed answers", models.ErrInsufficientData)
	}
	if err := s.store.ReplaceTimingAnalyses(ctx, sessionID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalysisService) analyzeGrids(ctx context.Context, rows *sessionRows) ([]*models.GridResponse, error) {
	var out []*models.GridResponse
	for _, a := range rows.answers {
		if len(a.GridCells) == 0 {
			continue
		}
		result, err := s.analyzeGridQuestion(ctx, rows.session, a)
		if err != nil {
			return nil, err
		}
		out = append(out, result...)
	}
	return out, nil
}

func (s *AnalysisService) analyzeGridQuestion(ctx context.Context, session *models.Session, a models.Answer) ([]*models.GridResponse, error) {
	scaleWidth := len(a.GridCells)
	if q, ok := s.catalog.Question(session.SurveyID, a.QuestionID); ok && q.ScaleWidth > 0 {
		scaleWidth = q.ScaleWidth
	}

	median, err := s.store.MedianResponseTime(ctx, session.SurveyID, a.QuestionID)
	if err != nil {
		// The speed baseline is an enrichment; a missing median only
		// weakens the satisficing score.
		s.log.Warn("Median response time unavailable",
			zap.String("questionID", a.QuestionID), zap.Error(err))
		median = 0
	}

	return grid.AnalyzeQuestion(session, a, scaleWidth, median, s.gridCfg), nil
}

// persist writes every result row for one analysis run. The detection and
// fraud rows append; grid and timing rows replace, keeping recomputation
// idempotent.
func (s *AnalysisService) persist(ctx context.Context, session *models.Session, result *models.DetectionResult, fraudInd *models.FraudIndicator, gridRows []*models.GridResponse, timingRows []*models.TimingAnalysis) error {
	if err := s.store.SaveDetectionResult(ctx, result); err != nil {
		return err
	}
	if err := s.store.SaveFraudIndicator(ctx, fraudInd); err != nil {
		return err
	}

	byQuestion := make(map[string][]*models.GridResponse)
	for _, r := range gridRows {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], r)
	}
	for questionID, rows := range byQuestion {
		if err := s.store.ReplaceGridResponses(ctx, session.ID, questionID, rows); err != nil {
			return err
		}
	}

	return s.store.ReplaceTimingAnalyses(ctx, session.ID, timingRows)
}

func fraudFlagged(ind *models.FraudIndicator) bool {
	if ind == nil {
		return false
	}
	return ind.IsDuplicate || ind.RiskLevel == models.RiskHigh || ind.RiskLevel == models.RiskCritical
}

func gridFlagged(rows []*models.GridResponse) bool {
	for _, r := range rows {
		if r.IsStraightLined || r.SatisficingScore >= 0.7 {
			return true
		}
	}
	return false
}

func timingFlagged(rows []*models.TimingAnalysis) bool {
	for _, r := range rows {
		if r.AnomalyType != models.AnomalyNone {
			return true
		}
	}
	return false
}
