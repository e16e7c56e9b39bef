package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"surveyguard/internal/anomaly"
	"surveyguard/internal/config"
	"surveyguard/internal/models"
	"surveyguard/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sweepBatchSize caps how many sessions one sweep picks up; anything left
// over is caught by the next tick.
const sweepBatchSize = 200

// Scheduler periodically sweeps for completed-but-unanalyzed sessions and
// fans their analyses out in parallel. Per-session analysis is stateless,
// so the only shared value is the immutable population snapshot taken once
// per survey per sweep.
type Scheduler struct {
	cfg      config.SchedulerConfig
	store    *repository.Store
	analysis *AnalysisService
	log      *zap.Logger
}

func NewScheduler(cfg config.SchedulerConfig, store *repository.Store, analysis *AnalysisService, log *zap.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, store: store, analysis: analysis, log: log}
}

// Start runs the sweep loop in a goroutine until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	s.log.Info("Starting analysis scheduler", zap.Duration("interval", interval))
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Analysis scheduler stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

func (s *Scheduler) runSweep(ctx context.Context) {
	sessions, err := s.store.UnanalyzedSessions(ctx, sweepBatchSize)
	if err != nil {
		s.log.Error("Failed to list unanalyzed sessions", zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		return
	}
	s.log.Debug("Analysis sweep starting", zap.Int("sessions", len(sessions)))

	// One snapshot per survey for the whole sweep. Each session analysis
	// reads the snapshot; nothing mutates it after this point.
	snapshots := make(map[string]*anomaly.PopulationSnapshot)
	for _, session := range sessions {
		if _, ok := snapshots[session.SurveyID]; ok {
			continue
		}
		snap, err := s.store.BuildPopulationSnapshot(ctx, session.SurveyID)
		if err != nil {
			s.log.Error("Failed to build population snapshot",
				zap.String("surveyID", session.SurveyID), zap.Error(err))
			snap = anomaly.NewSnapshot(nil)
		}
		snapshots[session.SurveyID] = snap
	}

	maxConcurrent := s.cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	var analyzed atomic.Int64
	for _, session := range sessions {
		session := session
		snapshot := snapshots[session.SurveyID]
		g.Go(func() error {
			_, err := s.analysis.AnalyzeSession(gctx, session.ID, snapshot)
			switch {
			case err == nil:
				analyzed.Add(1)
			case errors.Is(err, models.ErrInsufficientData):
				// Not yet analyzable; the session stays in the queue
				// and a later sweep retries once more data exists.
				s.log.Debug("Session not yet analyzable",
					zap.String("sessionID", session.ID.String()), zap.Error(err))
			default:
				// One session's failure never blocks the rest of
				// the sweep.
				s.log.Error("Session analysis failed",
					zap.String("sessionID", session.ID.String()), zap.Error(err))
			}
			return nil
		})
	}
	g.Wait()

	s.log.Info("Analysis sweep finished",
		zap.Int("candidates", len(sessions)),
		zap.Int64("analyzed", analyzed.Load()))
}
