package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/robfig/cron/v3"
)

// CycleRunner runs one poll cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Scheduler runs the worker once at start and then on a fixed interval. A
// tick that arrives while a cycle is still running is skipped.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	logger   *logger.Logger

	cron    *cron.Cron
	job     cron.Job
	ctx     context.Context
	running atomic.Bool
	eager   sync.WaitGroup
	errs    chan error
}

// NewScheduler creates a scheduler for runner
func NewScheduler(runner CycleRunner, interval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   log,
		errs:     make(chan error, 1),
	}
	cl := cronLogger{log: log}
	s.cron = cron.New(cron.WithLogger(cl))
	s.job = cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(func() { s.tick() }))
	return s
}

// Start fires one cycle immediately and schedules the rest. Cycles run with
// ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Schedule(cron.Every(s.interval), s.job)
	s.cron.Start()

	s.logger.Info().Dur("interval", s.interval).Msg("Scheduler started")

	s.eager.Add(1)
	go func() {
		defer s.eager.Done()
		s.job.Run()
	}()
}

// Stop stops scheduling new cycles. The returned context is done once a
// running cycle has finished.
func (s *Scheduler) Stop() context.Context {
	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.eager.Wait()
		cancel()
	}()
	return ctx
}

// Errors delivers process-fatal cycle errors
func (s *Scheduler) Errors() <-chan error {
	return s.errs
}

// tick runs one cycle unless one is already in flight. It reports whether a
// cycle ran.
func (s *Scheduler) tick() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Previous cycle still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	report, err := s.runner.RunCycle(s.ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Int("extracted", report.Extracted).
			Int("new", report.New).
			Int("delivered", report.Delivered).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Str("boundary", report.Boundary).
			Dur("elapsed", report.Duration).
			Msg("Cycle finished")
	case errors.Is(err, ErrLeaseHeld):
		s.logger.Info().Msg("Another process holds the cycle lease, skipping cycle")
	case apperrors.IsFatal(err):
		s.logger.Error().Err(err).Dur("elapsed", report.Duration).Msg("Cycle failed fatally")
		select {
		case s.errs <- err:
		default:
		}
	default:
		s.logger.Error().Err(err).Dur("elapsed", report.Duration).Msg("Cycle failed, retrying on next tick")
	}
	return true
}

// cronLogger adapts the component logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(fmt.Sprintf("cron: %s", msg))
}
