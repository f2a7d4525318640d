// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
	"github.com/shampsdev/gopadel-sub001/internal/processor"
)

// Reconciler settles payments the gateway never called back about.
type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration) (int, error)
}

// Auditor checks stored state for integrity violations.
type Auditor interface {
	Audit(ctx context.Context) (processor.AuditReport, error)
}

// Config sets the job intervals. A zero AuditInterval disables the audit job.
type Config struct {
	ReconcileInterval time.Duration
	// ReconcileAfter is how old a pending payment must be before it is polled.
	ReconcileAfter time.Duration
	AuditInterval  time.Duration
}

// Scheduler wraps a gocron scheduler with the service jobs registered.
type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs. Nothing runs until Start.
func New(cfg Config, reconciler Reconciler, auditor Auditor) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: cron, ctx: ctx, cancel: cancel}

	if reconciler != nil && cfg.ReconcileInterval > 0 {
		_, err := cron.NewJob(
			gocron.DurationJob(cfg.ReconcileInterval),
			gocron.NewTask(func() {
				n, err := reconciler.Reconcile(s.ctx, cfg.ReconcileAfter)
				if err != nil {
					log.Error("Payment reconciliation failed", "error", err)
					return
				}
				if n > 0 {
					log.Info("Reconciled payments", "count", n)
				}
			}),
			gocron.WithName("payment-reconcile"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
		}
	}

	if auditor != nil && cfg.AuditInterval > 0 {
		_, err := cron.NewJob(
			gocron.DurationJob(cfg.AuditInterval),
			gocron.NewTask(func() {
				if _, err := auditor.Audit(s.ctx); err != nil {
					log.Error("Consistency audit failed", "error", err)
				}
			}),
			gocron.WithName("consistency-audit"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule audit: %w", err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Jobs())
}

// Run starts the jobs and blocks until ctx is done, then shuts down.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	log.Info("Scheduler started", "jobs", s.Jobs())
	<-ctx.Done()
	return s.Shutdown()
}

// Shutdown stops the jobs and waits for running ones to finish.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	log.Info("Scheduler stopped")
	return nil
}
