package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/pubsub"
	"github.com/shampsdev/gopadel-sub001/internal/registration"
	"github.com/shampsdev/gopadel-sub001/internal/store"
	"github.com/shampsdev/gopadel-sub001/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	*testdb.Fixture
	svc     registration.Service
	pubsub  *pubsub.MockPubSubClient
	metrics *metrics.Mock
}

func setup(t *testing.T) *harness {
	t.Helper()
	f := testdb.New(t)
	ps := pubsub.NewMock()
	m := metrics.NewMock()
	return &harness{Fixture: f, svc: registration.New(f.Store, ps, m), pubsub: ps, metrics: m}
}

// pay confirms the user's PENDING registration the way the payment coordinator does.
func (h *harness) pay(t *testing.T, e *lifecycle.Event, userID string) {
	t.Helper()
	ctx := context.Background()
	err := h.Store.Atomically(ctx, func(q store.Queries) error {
		reg, err := q.GetRegistration(ctx, e.ID, userID)
		if err != nil {
			return err
		}
		return registration.ApplyPay(ctx, q, e, reg, "pay-"+userID, time.Now())
	})
	require.NoError(t, err)
}

func TestScenarioA_TournamentFillsUp(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithMaxUsers(2))
	for _, id := range []string{"A", "B", "C"} {
		h.Member(t, id, 3)
	}

	regA, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, regA.Status)

	h.pay(t, e, "A")
	got, err := h.svc.Get(ctx, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, got.Status)
	assert.Equal(t, lifecycle.EventStatusRegistration, h.Status(t, e.ID))

	regB, err := h.svc.Register(ctx, testdb.Actor("B"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, regB.Status)
	assert.Equal(t, 2, h.Occupied(t, e.ID))
	assert.Equal(t, lifecycle.EventStatusFull, h.Status(t, e.ID))

	_, err = h.svc.Register(ctx, testdb.Actor("C"), e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrEventFull)
	_, err = h.svc.Get(ctx, e.ID, "C")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	assert.Equal(t, 1, h.metrics.Transitions(string(lifecycle.ActionRegister), metrics.OutcomeRejected))
}

func TestScenarioC_GameApprovalRespectsCapacity(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithType(lifecycle.EventTypeGame), testdb.WithMaxUsers(1))
	h.Member(t, "A", 3)
	h.Member(t, "B", 3)
	organizer := testdb.Actor("org")

	regA, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInvited, regA.Status)
	assert.Equal(t, 0, h.Occupied(t, e.ID))

	regA, err = h.svc.Approve(ctx, organizer, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, regA.Status)
	assert.Equal(t, lifecycle.EventStatusFull, h.Status(t, e.ID))

	regB, err := h.svc.Register(ctx, testdb.Actor("B"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInvited, regB.Status)

	_, err = h.svc.Approve(ctx, organizer, e.ID, "B")
	assert.ErrorIs(t, err, lifecycle.ErrEventFull)

	regB, err = h.svc.Get(ctx, e.ID, "B")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInvited, regB.Status)
	assert.Equal(t, 1, h.Occupied(t, e.ID))
}

func TestRegisterIsIdempotent(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t)
	h.Member(t, "A", 3)

	first, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	second, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	regs, err := h.svc.ListForEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, regs, 1)
	assert.Len(t, h.pubsub.Messages(pubsub.EventRegistrationChanged), 1)
}

func TestRankGateWinsOverCapacity(t *testing.T) {
	tests := []struct {
		name string
		rank float64
		full bool
	}{
		{"below min with free slots", 0.5, false},
		{"at max with free slots", 4.0, false},
		{"below min on full event", 0.5, true},
		{"above max on full event", 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setup(t)
			ctx := context.Background()
			e := h.Event(t, testdb.WithRankRange(1, 4), testdb.WithMaxUsers(1))
			if tt.full {
				h.Member(t, "holder", 2)
				_, err := h.svc.Register(ctx, testdb.Actor("holder"), e.ID)
				require.NoError(t, err)
			}
			h.Member(t, "U", tt.rank)

			_, err := h.svc.Register(ctx, testdb.Actor("U"), e.ID)
			assert.ErrorIs(t, err, lifecycle.ErrRankNotAllowed)
		})
	}
}

func TestRegisterRejectsUnsetRankRange(t *testing.T) {
	h := setup(t)
	e := h.Event(t, testdb.WithoutRankRange())
	h.Member(t, "A", 3)

	_, err := h.svc.Register(context.Background(), testdb.Actor("A"), e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrRankNotAllowed)
	assert.ErrorIs(t, err, lifecycle.ErrRankRangeUnset)
}

func TestRegisterOnClosedEvent(t *testing.T) {
	for _, status := range []lifecycle.EventStatus{lifecycle.EventStatusCompleted, lifecycle.EventStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			h := setup(t)
			e := h.Event(t, testdb.WithStatus(status))
			h.Member(t, "A", 3)
			_, err := h.svc.Register(context.Background(), testdb.Actor("A"), e.ID)
			assert.ErrorIs(t, err, lifecycle.ErrEventClosed)
		})
	}
}

func TestFreeEventConfirmsImmediately(t *testing.T) {
	h := setup(t)
	e := h.Event(t, testdb.WithPrice("0"))
	h.Member(t, "A", 3)

	reg, err := h.svc.Register(context.Background(), testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, reg.Status)
}

func TestCancelReleasesSlotAndPublishes(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithMaxUsers(1))
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.EventStatusFull, h.Status(t, e.ID))

	_, err = h.svc.CancelAfterPayment(ctx, testdb.Actor("A"), e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	reg, err := h.svc.Cancel(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelledBeforePayment, reg.Status)
	assert.Equal(t, lifecycle.EventStatusRegistration, h.Status(t, e.ID))

	freed := h.pubsub.Messages(pubsub.EventSlotFreed)
	require.Len(t, freed, 1)
	assert.Equal(t, e.ID, freed[0].EventID)
	assert.Equal(t, string(lifecycle.StatusPending), freed[0].PreviousStatus)
}

func TestReactivationKeepsRegistrationIdentity(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t)
	h.Member(t, "A", 3)

	first, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	h.pay(t, e, "A")
	_, err = h.svc.CancelAfterPayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	again, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, lifecycle.StatusPending, again.Status)
	assert.Nil(t, again.PaymentID)

	_, err = h.svc.CancelBeforePayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	again, err = h.svc.Reactivate(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, lifecycle.StatusPending, again.Status)
}

func TestReactivationIgnoresNarrowedRankRange(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithRankRange(1, 4))
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	h.pay(t, e, "A")
	_, err = h.svc.CancelAfterPayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	lo, hi := 5.0, 9.0
	e.RankMin, e.RankMax = &lo, &hi
	require.NoError(t, h.Store.UpdateEvent(ctx, e))

	reg, err := h.svc.Reactivate(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, reg.Status)

	_, err = h.svc.CancelBeforePayment(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	reg, err = h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err, "register on a cancelled registration reactivates it")
	assert.Equal(t, lifecycle.StatusPending, reg.Status)

	h.Member(t, "B", 3)
	_, err = h.svc.Register(ctx, testdb.Actor("B"), e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrRankNotAllowed, "first registration still checks the new range")
}

func TestGameLeaveAndReactivate(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithType(lifecycle.EventTypeGame), testdb.WithMaxUsers(1))
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, testdb.Actor("org"), e.ID, "A")
	require.NoError(t, err)

	reg, err := h.svc.Leave(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusLeft, reg.Status)
	assert.Equal(t, lifecycle.EventStatusRegistration, h.Status(t, e.ID))

	reg, err = h.svc.Reactivate(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInvited, reg.Status)
	assert.Len(t, h.pubsub.Messages(pubsub.EventApprovalRequested), 2)
}

func TestRejectedGameRegistrationCannotRegisterAgain(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithType(lifecycle.EventTypeGame))
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	reg, err := h.svc.Reject(ctx, testdb.Actor("org"), e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, reg.Status)

	_, err = h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestApproveRequiresOrganizerOrAdmin(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t, testdb.WithType(lifecycle.EventTypeGame))
	h.Member(t, "A", 3)
	h.Member(t, "B", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	_, err = h.svc.Approve(ctx, testdb.Actor("B"), e.ID, "A")
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)

	reg, err := h.svc.Approve(ctx, lifecycle.Actor{UserID: "B", IsAdmin: true}, e.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusConfirmed, reg.Status)
}

func TestApproveNotApplicableToTournaments(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t)
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, testdb.Actor("org"), e.ID, "A")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestAdmissionRemovesWaitlistEntry(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e := h.Event(t)
	h.Member(t, "A", 3)
	require.NoError(t, h.Store.InsertWaitlistEntry(ctx, &lifecycle.WaitlistEntry{EventID: e.ID, UserID: "A", JoinedAt: time.Now()}))

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e.ID)
	require.NoError(t, err)

	_, err = h.Store.GetWaitlistEntry(ctx, e.ID, "A")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	conflicts, err := h.Store.WaitlistConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestListForUser(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	e1 := h.Event(t)
	e2 := h.Event(t, testdb.WithType(lifecycle.EventTypeGame))
	h.Member(t, "A", 3)

	_, err := h.svc.Register(ctx, testdb.Actor("A"), e1.ID)
	require.NoError(t, err)
	_, err = h.svc.Register(ctx, testdb.Actor("A"), e2.ID)
	require.NoError(t, err)

	regs, err := h.svc.ListForUser(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}
