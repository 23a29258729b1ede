package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/scirius/backend/internal/logger"
)

// DefaultRunTimeout bounds one scheduled refresh of all sources.
const DefaultRunTimeout = 30 * time.Minute

// Scheduler refreshes every source on a cron schedule.
type Scheduler struct {
	sources     *SourceService
	cron        *cron.Cron
	cronLog     cron.Logger
	spec        string
	concurrency int
	runTimeout  time.Duration
	log         *logrus.Entry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewScheduler validates spec (standard cron syntax or descriptors such as
// "@every 6h") and prepares a stopped scheduler. A stopped scheduler can be
// started again.
func NewScheduler(sources *SourceService, spec string, concurrency int) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	log := logger.Component("scheduler")
	return &Scheduler{
		sources:     sources,
		cronLog:     cron.PrintfLogger(log),
		spec:        spec,
		concurrency: concurrency,
		runTimeout:  DefaultRunTimeout,
		log:         log,
	}, nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	c := cron.New(
		cron.WithLogger(s.cronLog),
		cron.WithChain(cron.Recover(s.cronLog), cron.SkipIfStillRunning(s.cronLog)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return err
	}
	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	s.log.WithFields(logrus.Fields{"schedule": s.spec, "concurrency": s.concurrency}).Info("source sync scheduler started")
	return nil
}

// Stop cancels in-flight refreshes and waits for the running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("source sync scheduler stopped")
}

// RunOnce refreshes every source and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	results, err := s.sources.RefreshAll(ctx, s.concurrency)
	entry := s.log.WithFields(logrus.Fields{
		"updated":  len(results),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("scheduled source sync finished with errors")
		return
	}
	entry.Info("scheduled source sync finished")
}
