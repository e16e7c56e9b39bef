// Package fraud evaluates duplicate-response similarity, IP and device
// fingerprint reuse, and submission velocity for one session.
package fraud

import (
	"context"
	"fmt"
	"time"

	"surveyguard/internal/config"
	"surveyguard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the cross-session read surface the detector needs. The
// repository implements it; tests use stubs.
type Store interface {
	// CountSessionsByIP counts distinct other sessions sharing the IP
	// since the given time.
	CountSessionsByIP(ctx context.Context, ip string, since time.Time, exclude uuid.UUID) (int, error)

	// CountSessionsByFingerprint counts distinct other sessions sharing
	// the device fingerprint since the given time.
	CountSessionsByFingerprint(ctx context.Context, fingerprint string, since time.Time, exclude uuid.UUID) (int, error)

	// OpenAnswersForQuestion returns other sessions' open-ended answers to
	// the same question within the same survey.
	OpenAnswersForQuestion(ctx context.Context, surveyID, questionID string, exclude uuid.UUID) ([]models.Answer, error)

	// CountSessionsByRespondent counts the respondent's sessions since the
	// given time, for submission velocity.
	CountSessionsByRespondent(ctx context.Context, respondentID string, since time.Time) (int, error)
}

// Detector computes a FraudIndicator per session.
type Detector struct {
	cfg        config.FraudConfig
	riskLevels map[string]float64
	store      Store
	cache      *VelocityCache
	log        *zap.Logger
}

func NewDetector(cfg config.FraudConfig, riskLevels map[string]float64, store Store, cache *VelocityCache, log *zap.Logger) *Detector {
	return &Detector{cfg: cfg, riskLevels: riskLevels, store: store, cache: cache, log: log}
}

// Evaluate runs the four sub-analyses and combines them into the overall
// fraud score. Sub-scores are weighted per configuration, equal by default.
func (d *Detector) Evaluate(ctx context.Context, session *models.Session, answers []models.Answer) (*models.FraudIndicator, error) {
	ind := session.NewFraudIndicator()
	lookback := time.Now().UTC().AddDate(0, 0, -d.lookbackDays())

	if err := d.analyzeIP(ctx, session, lookback, ind); err != nil {
		return nil, err
	}
	if err := d.analyzeFingerprint(ctx, session, lookback, ind); err != nil {
		return nil, err
	}
	if err := d.analyzeDuplicates(ctx, session, answers, ind); err != nil {
		return nil, err
	}
	if err := d.analyzeVelocity(ctx, session, ind); err != nil {
		return nil, err
	}

	ind.OverallFraudScore = d.combine(ind)
	ind.IsDuplicate = ind.DuplicateCount > 0 && ind.DuplicateSimilarity >= d.cfg.DuplicateSimilarityThreshold
	ind.RiskLevel = d.riskLevel(ind.OverallFraudScore)

	return ind, nil
}

func (d *Detector) analyzeIP(ctx context.Context, session *models.Session, lookback time.Time, ind *models.FraudIndicator) error {
	if session.IPAddress == "" {
		return nil
	}

	usage, err := d.cachedCount(ctx, ipUsageKey(session.IPAddress, d.lookbackDays()), func() (int, error) {
		return d.store.CountSessionsByIP(ctx, session.IPAddress, lookback, session.ID)
	})
	if err != nil {
		return fmt.Errorf("ip usage count: %w", err)
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	today, err := d.cachedCount(ctx, ipTodayKey(session.IPAddress), func() (int, error) {
		return d.store.CountSessionsByIP(ctx, session.IPAddress, midnight, session.ID)
	})
	if err != nil {
		return fmt.Errorf("ip sessions today: %w", err)
	}

	capN := float64(d.cfg.IPUsageCap)
	if capN <= 0 {
		capN = 10
	}

	ind.IPUsageCount = usage
	ind.IPSessionsToday = today
	// Saturating: reuse at or beyond the cap pins the sub-score at 1.
	ind.IPRiskScore = clamp01(0.7*float64(usage)/capN + 0.3*float64(today)/capN)

	if float64(usage) >= capN {
		ind.FlagReasons = append(ind.FlagReasons,
			fmt.Sprintf("%s: %d sessions share IP in %d-day window (cap %d)",
				models.FraudReasonIPReuse, usage, d.lookbackDays(), d.cfg.IPUsageCap))
	}
	return nil
}

func (d *Detector) analyzeFingerprint(ctx context.Context, session *models.Session, lookback time.Time, ind *models.FraudIndicator) error {
	if session.DeviceFingerprint == "" {
		return nil
	}

	usage, err := d.cachedCount(ctx, fingerprintKey(session.DeviceFingerprint, d.lookbackDays()), func() (int, error) {
		return d.store.CountSessionsByFingerprint(ctx, session.DeviceFingerprint, lookback, session.ID)
	})
	if err != nil {
		return fmt.Errorf("fingerprint usage count: %w", err)
	}

	capN := float64(d.cfg.FingerprintUsageCap)
	if capN <= 0 {
		capN = 10
	}

	ind.FingerprintUsageCount = usage
	ind.FingerprintRiskScore = clamp01(float64(usage) / capN)

	if float64(usage) >= capN {
		ind.FlagReasons = append(ind.FlagReasons,
			fmt.Sprintf("%s: %d sessions share device fingerprint (cap %d)",
				models.FraudReasonFingerprintReuse, usage, d.cfg.FingerprintUsageCap))
	}
	return nil
}

// analyzeDuplicates compares this session's open-ended answers pairwise
// against other sessions' answers to the same questions. DuplicateCount is
// the number of distinct other sessions with at least one answer over the
// similarity threshold.
func (d *Detector) analyzeDuplicates(ctx context.Context, session *models.Session, answers []models.Answer, ind *models.FraudIndicator) error {
	maxSim := 0.0
	dupSessions := make(map[uuid.UUID]struct{})

	for _, a := range answers {
		if a.QuestionType != models.QuestionOpenEnded || a.Value == "" {
			continue
		}

		others, err := d.store.OpenAnswersForQuestion(ctx, session.SurveyID, a.QuestionID, session.ID)
		if err != nil {
			return fmt.Errorf("duplicate answers lookup: %w", err)
		}

		for _, other := range others {
			if other.Value == "" {
				continue
			}
			sim := TokenSimilarity(a.Value, other.Value)
			if sim > maxSim {
				maxSim = sim
			}
			if sim >= d.cfg.DuplicateSimilarityThreshold {
				dupSessions[other.SessionID] = struct{}{}
			}
		}
	}

	ind.DuplicateSimilarity = maxSim
	ind.DuplicateCount = len(dupSessions)
	ind.DuplicateRiskScore = maxSim

	if ind.DuplicateCount > 0 {
		ind.FlagReasons = append(ind.FlagReasons,
			fmt.Sprintf("%s: %d other sessions exceed %.2f similarity (max %.2f)",
				models.FraudReasonDuplicateAnswers, ind.DuplicateCount,
				d.cfg.DuplicateSimilarityThreshold, maxSim))
	}
	return nil
}

func (d *Detector) analyzeVelocity(ctx context.Context, session *models.Session, ind *models.FraudIndicator) error {
	hourAgo := time.Now().UTC().Add(-time.Hour)
	count, err := d.cachedCount(ctx, respondentHourKey(session.RespondentID), func() (int, error) {
		return d.store.CountSessionsByRespondent(ctx, session.RespondentID, hourAgo)
	})
	if err != nil {
		return fmt.Errorf("velocity count: %w", err)
	}

	ceiling := d.cfg.VelocityCeilingPerHour
	if ceiling <= 0 {
		ceiling = 20
	}

	rph := float64(count)
	ind.ResponsesPerHour = rph
	// Below the ceiling risk grows gently; past it the score climbs toward
	// saturation at twice the ceiling.
	if rph <= ceiling {
		ind.VelocityRiskScore = 0.5 * rph / ceiling
	} else {
		ind.VelocityRiskScore = clamp01(0.5 + 0.5*(rph-ceiling)/ceiling)
	}

	if rph > ceiling {
		ind.FlagReasons = append(ind.FlagReasons,
			fmt.Sprintf("%s: %.0f responses/hour exceeds ceiling %.0f",
				models.FraudReasonHighVelocity, rph, ceiling))
	}
	return nil
}

// cachedCount consults the velocity cache first and falls back to the
// database count on a miss, repopulating the cache.
func (d *Detector) cachedCount(ctx context.Context, key string, count func() (int, error)) (int, error) {
	if n, ok := d.cache.Get(ctx, key); ok {
		return n, nil
	}
	n, err := count()
	if err != nil {
		return 0, err
	}
	d.cache.Put(ctx, key, n)
	return n, nil
}

// combine is the weighted mean of the four sub-scores. Weights come from
// configuration keyed by flag reason name; missing weights default to 1.
func (d *Detector) combine(ind *models.FraudIndicator) float64 {
	weight := func(name string) float64 {
		if w, ok := d.cfg.SubScoreWeights[name]; ok && w > 0 {
			return w
		}
		return 1.0
	}

	var weighted, total float64
	for _, part := range []struct {
		name  string
		score float64
	}{
		{models.FraudReasonIPReuse, ind.IPRiskScore},
		{models.FraudReasonFingerprintReuse, ind.FingerprintRiskScore},
		{models.FraudReasonDuplicateAnswers, ind.DuplicateRiskScore},
		{models.FraudReasonHighVelocity, ind.VelocityRiskScore},
	} {
		w := weight(part.name)
		weighted += part.score * w
		total += w
	}

	if total == 0 {
		return 0
	}
	return weighted / total
}

func (d *Detector) riskLevel(score float64) models.RiskLevel {
	threshold := func(name string, fallback float64) float64 {
		if v, ok := d.riskLevels[name]; ok {
			return v
		}
		return fallback
	}

	switch {
	case score >= threshold("critical", 0.9):
		return models.RiskCritical
	case score >= threshold("high", 0.7):
		return models.RiskHigh
	case score >= threshold("medium", 0.3):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func (d *Detector) lookbackDays() int {
	if d.cfg.LookbackDays <= 0 {
		return 30
	}
	return d.cfg.LookbackDays
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
