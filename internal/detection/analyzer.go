package detection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"surveyguard/internal/config"
	"surveyguard/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// methodOrder fixes the iteration order everywhere results are combined,
// so two runs over the same rows produce byte-identical output.
var methodOrder = []models.MethodName{
	models.MethodKeystroke,
	models.MethodMouse,
	models.MethodTiming,
	models.MethodDevice,
	models.MethodNetwork,
	models.MethodTextQuality,
}

// Analyzer turns one session's stored rows into a DetectionResult. It is
// stateless: safe to share across concurrent per-session analyses.
type Analyzer struct {
	cfg         config.DetectionConfig
	textQuality *TextQualityClient
	log         *zap.Logger
}

func NewAnalyzer(cfg config.DetectionConfig, textQuality *TextQualityClient, log *zap.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, textQuality: textQuality, log: log}
}

// Corroboration carries whether the independent detectors flagged the same
// session. The critical risk tier is only reachable with corroboration when
// the policy requires it.
type Corroboration struct {
	FraudFlagged  bool
	GridFlagged   bool
	TimingFlagged bool
}

func (c Corroboration) Any() bool {
	return c.FraudFlagged || c.GridFlagged || c.TimingFlagged
}

// Analyze runs every enabled, applicable method scorer concurrently, joins
// them, and combines the scores into a composite verdict. Fails with
// ErrInsufficientData when too few events exist or no method is applicable.
func (a *Analyzer) Analyze(ctx context.Context, session *models.Session, events []models.Event, answers []models.Answer, corro Corroboration) (*models.DetectionResult, error) {
	started := time.Now()

	features := ExtractFeatures(session, events, answers, a.log)
	if features.SkippedEvents > 0 {
		a.log.Warn("Skipped malformed rows during extraction",
			zap.String("sessionID", session.ID.String()),
			zap.Int("skipped", features.SkippedEvents))
	}

	if features.EventCount < a.cfg.MinEventsForAnalysis {
		return nil, fmt.Errorf("%w: %d events, need %d",
			models.ErrInsufficientData, features.EventCount, a.cfg.MinEventsForAnalysis)
	}

	results := a.runScorers(ctx, features)

	composite, available := a.composite(results)
	if available == 0 {
		return nil, fmt.Errorf("%w: no applicable detection method", models.ErrInsufficientData)
	}

	result := session.NewDetectionResult()
	result.ConfidenceScore = composite
	isBot := composite >= a.cfg.ConfidenceThreshold
	result.IsBot = &isBot
	result.RiskLevel = a.riskLevel(composite, corro)

	for _, name := range methodOrder {
		r, ok := results[name]
		if !ok || !r.Applicable {
			continue
		}
		result.MethodScores[name] = r.Score
		result.FlaggedPatterns = result.FlaggedPatterns.Merge(r.Flags)
	}

	result.AnalysisSummary = summarize(composite, result.RiskLevel, results)
	result.ProcessingTimeMS = time.Since(started).Milliseconds()

	return result, nil
}

// runScorers fans the enabled methods out on an errgroup and joins them.
// Scorers only read the shared features, so they can run fully in parallel;
// the map writes are serialized with a mutex.
func (a *Analyzer) runScorers(ctx context.Context, features *SessionFeatures) map[models.MethodName]MethodResult {
	type scorerFunc func(context.Context) (MethodResult, error)

	scorers := map[models.MethodName]scorerFunc{
		models.MethodKeystroke: func(context.Context) (MethodResult, error) { return scoreKeystrokes(features), nil },
		models.MethodMouse:     func(context.Context) (MethodResult, error) { return scoreMouse(features), nil },
		models.MethodTiming:    func(context.Context) (MethodResult, error) { return scoreTiming(features), nil },
		models.MethodDevice:    func(context.Context) (MethodResult, error) { return scoreDevice(features), nil },
		models.MethodNetwork:   func(context.Context) (MethodResult, error) { return scoreNetwork(features), nil },
		models.MethodTextQuality: func(ctx context.Context) (MethodResult, error) {
			return a.textQuality.Score(ctx, features)
		},
	}

	var mu sync.Mutex
	results := make(map[models.MethodName]MethodResult, len(scorers))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range methodOrder {
		if !a.cfg.EnabledMethods[string(name)] {
			continue
		}
		name := name
		score := scorers[name]
		g.Go(func() error {
			r, err := score(gctx)
			if err != nil {
				// An unavailable external scorer downgrades to
				// not-applicable; it must not sink the analysis.
				if errors.Is(err, models.ErrExternalScorerUnavailable) {
					a.log.Warn("Method scorer unavailable, excluding from composite",
						zap.String("method", string(name)), zap.Error(err))
					r = notApplicable(r.SampleSize)
				} else {
					return err
				}
			}
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}

	// Scorers other than text quality cannot fail; text quality failures
	// are converted above, so Wait only propagates context cancellation.
	if err := g.Wait(); err != nil {
		a.log.Warn("Scorer fan-out interrupted", zap.Error(err))
	}

	return results
}

// composite is the weighted mean over applicable methods. Weights come from
// configuration; a method without a configured weight gets 1.0, so the
// default is equal weighting.
func (a *Analyzer) composite(results map[models.MethodName]MethodResult) (float64, int) {
	var weighted, totalWeight float64
	available := 0

	for _, name := range methodOrder {
		r, ok := results[name]
		if !ok || !r.Applicable {
			continue
		}
		w := 1.0
		if cw, ok := a.cfg.MethodWeights[string(name)]; ok && cw > 0 {
			w = cw
		}
		weighted += r.Score * w
		totalWeight += w
		available++
	}

	if totalWeight == 0 {
		return 0, 0
	}
	return weighted / totalWeight, available
}

// riskLevel buckets the composite score. The critical tier additionally
// requires corroboration from the fraud/grid/timing detectors when the
// policy says so; without it the session tops out at high.
func (a *Analyzer) riskLevel(score float64, corro Corroboration) models.RiskLevel {
	threshold := func(name string, fallback float64) float64 {
		if v, ok := a.cfg.RiskLevels[name]; ok {
			return v
		}
		return fallback
	}

	critical := threshold("critical", 0.9)
	high := threshold("high", 0.7)
	medium := threshold("medium", 0.3)

	switch {
	case score >= critical:
		if a.cfg.CriticalRequiresCorroboration && !corro.Any() {
			return models.RiskHigh
		}
		return models.RiskCritical
	case score >= high:
		return models.RiskHigh
	case score >= medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// summarize renders the human-readable one-liner stored on the result.
func summarize(composite float64, level models.RiskLevel, results map[models.MethodName]MethodResult) string {
	parts := make([]string, 0, len(results))
	for _, name := range methodOrder {
		r, ok := results[name]
		if !ok {
			continue
		}
		if !r.Applicable {
			parts = append(parts, fmt.Sprintf("%s: n/a", name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %.2f", name, r.Score))
	}
	return fmt.Sprintf("bot confidence %.2f (%s risk): %s", composite, level, strings.Join(parts, ", "))
}
