package cron

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tutorai/tutorai-backend/internal/indexer/service"
	"github.com/tutorai/tutorai-backend/internal/logger"
)

// Embedder is the slice of the indexer service the scheduler drives.
type Embedder interface {
	EmbedPending(ctx context.Context, documentID *int64, batchSize, maxRetries int) (*service.EmbedReport, error)
}

// Scheduler drains pending chunks on a fixed interval so documents finish
// embedding without manual /embed calls.
type Scheduler struct {
	svc        Embedder
	interval   time.Duration
	batchSize  int
	maxRetries int
	cron       *cron.Cron
	running    atomic.Bool
}

func NewScheduler(svc Embedder, interval time.Duration, batchSize, maxRetries int) *Scheduler {
	return &Scheduler{
		svc:        svc,
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		cron:       cron.New(),
	}
}

// Start registers the embed pass and kicks off the cron loop.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runEmbedPass); err != nil {
		return fmt.Errorf("schedule embed pass: %w", err)
	}

	s.cron.Start()
	logger.Info().Dur("interval", s.interval).Int("batch_size", s.batchSize).Msg("embed scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runEmbedPass is single-flight: if the previous pass is still embedding,
// this tick is skipped rather than stacked.
func (s *Scheduler) runEmbedPass() {
	if !s.running.CompareAndSwap(false, true) {
		logger.Debug().Msg("embed pass still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.interval*4)
	defer cancel()

	report, err := s.svc.EmbedPending(ctx, nil, s.batchSize, s.maxRetries)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled embed pass failed")
		return
	}

	if report.Processed > 0 {
		logger.Info().Int("processed", report.Processed).Int("succeeded", report.Succeeded).Int("failed", report.Failed).Msg("scheduled embed pass")
	}
}
