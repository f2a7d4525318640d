package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls     atomic.Int32
	olderThan atomic.Int64
}

func (c *countingReconciler) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	c.calls.Add(1)
	c.olderThan.Store(int64(olderThan))
	return 0, nil
}

type countingAuditor struct {
	calls atomic.Int32
}

func (c *countingAuditor) Audit(ctx context.Context) (processor.AuditReport, error) {
	c.calls.Add(1)
	return processor.AuditReport{}, nil
}

func TestSchedulerRunsJobs(t *testing.T) {
	r := &countingReconciler{}
	a := &countingAuditor{}
	s, err := New(Config{
		ReconcileInterval: 20 * time.Millisecond,
		ReconcileAfter:    time.Minute,
		AuditInterval:     20 * time.Millisecond,
	}, r, a)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.calls.Load() > 0 && a.calls.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(time.Minute), r.olderThan.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestSchedulerSkipsDisabledAudit(t *testing.T) {
	s, err := New(Config{ReconcileInterval: time.Minute}, &countingReconciler{}, &countingAuditor{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
}
