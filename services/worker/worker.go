package worker

import (
	"context"
	"errors"
	"time"

	"sjsage522/jobfeedworker/internal/crawler"
	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"
	"sjsage522/jobfeedworker/services/cache"
	"sjsage522/jobfeedworker/services/notifier"
	"sjsage522/jobfeedworker/services/store"
)

// ErrLeaseHeld is returned when another process is running a cycle
var ErrLeaseHeld = errors.New("cycle lease is held by another process")

// Notifier delivers one record
type Notifier interface {
	Notify(ctx context.Context, rec crawler.JobRecord) (notifier.Outcome, error)
}

// CycleReport summarizes one poll cycle
type CycleReport struct {
	Extracted int
	New       int
	Delivered int
	Failed    int
	// Skipped counts records without a link, which cannot be deduplicated
	Skipped int
	// Boundary is the first already-seen link, where the walk stopped
	Boundary string
	Duration time.Duration
}

// Options configures a Worker
type Options struct {
	Lease    cache.Lease
	LeaseKey string
	LeaseTTL time.Duration
	Logger   *logger.Logger
}

// Worker runs poll cycles: load, extract, diff, notify, persist
type Worker struct {
	crawler  crawler.Crawler
	store    store.Store
	notifier Notifier
	lease    cache.Lease
	leaseKey string
	leaseTTL time.Duration
	logger   *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(c crawler.Crawler, s store.Store, n Notifier, opts Options) *Worker {
	w := &Worker{
		crawler:  c,
		store:    s,
		notifier: n,
		lease:    opts.Lease,
		leaseKey: opts.LeaseKey,
		leaseTTL: opts.LeaseTTL,
		logger:   opts.Logger,
	}
	if w.lease == nil {
		w.lease = cache.NoopLease{}
	}
	if w.leaseKey == "" {
		w.leaseKey = "jobfeed_cycle"
	}
	if w.leaseTTL <= 0 {
		w.leaseTTL = 10 * time.Minute
	}
	if w.logger == nil {
		w.logger = logger.Nop()
	}
	return w
}

// RunCycle performs one poll cycle. Load errors are process-fatal,
// extraction errors abort the cycle before the store is touched, delivery
// errors only affect their record, and the seen set is persisted once every
// notify attempt has resolved.
func (w *Worker) RunCycle(ctx context.Context) (report CycleReport, err error) {
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	acquired, err := w.lease.Acquire(w.leaseKey, w.leaseTTL)
	if err != nil {
		return report, apperrors.NewLease(w.leaseKey, "acquire failed", err)
	}
	if !acquired {
		return report, ErrLeaseHeld
	}
	defer func() {
		if err := w.lease.Release(w.leaseKey); err != nil {
			w.logger.Warn().Err(err).Str("key", w.leaseKey).Msg("Failed to release cycle lease")
		}
	}()

	seen, err := w.store.Load(ctx)
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeLoad) {
			err = apperrors.NewLoad("store", "load failed", err)
		}
		return report, err
	}

	records, err := w.crawler.Extract(ctx)
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeExtraction) {
			err = apperrors.NewExtraction("feed", "extract failed", err)
		}
		return report, err
	}
	report.Extracted = len(records)

	for _, rec := range records {
		if rec.Link == "" {
			report.Skipped++
			w.logger.Warn().Str("title", rec.Title).Msg("Skipping job card without a link")
			continue
		}
		// The feed is newest-first: everything past the first seen link is
		// assumed to have been handled by an earlier cycle.
		if store.Contains(seen, rec.Link) {
			report.Boundary = rec.Link
			break
		}

		// Marked before sending; a failed delivery is never retried.
		store.Insert(seen, rec.Link)
		report.New++

		outcome, err := w.notifier.Notify(ctx, rec)
		if err != nil || outcome == notifier.Failed {
			report.Failed++
			w.logger.Error().Err(err).Str("link", rec.Link).Str("title", rec.Title).Msg("Delivery failed, record stays marked as seen")
			continue
		}
		report.Delivered++
	}

	// Persist even when the parent context is done: the notifications above
	// have already gone out.
	if err := w.store.Persist(context.WithoutCancel(ctx), seen); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypePersist) {
			err = apperrors.NewPersist("store", "persist failed", err)
		}
		return report, err
	}

	return report, nil
}
