package registration_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentRegisterAdmitsOne(t *testing.T) {
	h := setup(t)
	e := h.Event(t, testdb.WithMaxUsers(1))
	h.Member(t, "A", 3)
	h.Member(t, "B", 3)

	var admitted, full atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	for _, id := range []string{"A", "B"} {
		g.Go(func() error {
			_, err := h.svc.Register(ctx, testdb.Actor(id), e.ID)
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, lifecycle.ErrEventFull):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(1), full.Load())
	assert.Equal(t, 1, h.Occupied(t, e.ID))
}

func TestConcurrentRegisterNeverOverbooks(t *testing.T) {
	const (
		capacity = 3
		players  = 12
	)
	h := setup(t)
	e := h.Event(t, testdb.WithMaxUsers(capacity))
	for i := range players {
		h.Member(t, fmt.Sprintf("p%d", i), 3)
	}

	var g errgroup.Group
	for i := range players {
		g.Go(func() error {
			_, err := h.svc.Register(context.Background(), testdb.Actor(fmt.Sprintf("p%d", i)), e.ID)
			if err != nil && !errors.Is(err, lifecycle.ErrEventFull) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, capacity, h.Occupied(t, e.ID))
	assert.Equal(t, lifecycle.EventStatusFull, h.Status(t, e.ID))
}
