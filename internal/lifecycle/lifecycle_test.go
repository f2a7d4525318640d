package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(v float64) *float64 { return &v }

func TestCheckEligibility(t *testing.T) {
	event := func(status lifecycle.EventStatus, min, max *float64) *lifecycle.Event {
		return &lifecycle.Event{Status: status, RankMin: min, RankMax: max, MaxUsers: 4}
	}

	tests := []struct {
		name    string
		event   *lifecycle.Event
		rank    float64
		wantErr error
	}{
		{"rank at lower bound is allowed", event(lifecycle.EventStatusRegistration, rank(2), rank(4)), 2, nil},
		{"rank at upper bound is rejected", event(lifecycle.EventStatusRegistration, rank(2), rank(4)), 4, lifecycle.ErrRankNotAllowed},
		{"rank below range is rejected", event(lifecycle.EventStatusRegistration, rank(2), rank(4)), 1.5, lifecycle.ErrRankNotAllowed},
		{"unset range rejects registration", event(lifecycle.EventStatusRegistration, nil, nil), 3, lifecycle.ErrRankRangeUnset},
		{"full event still passes the gate", event(lifecycle.EventStatusFull, rank(0), rank(7)), 3, nil},
		{"completed event is closed", event(lifecycle.EventStatusCompleted, rank(0), rank(7)), 3, lifecycle.ErrEventClosed},
		{"cancelled event wins over rank", event(lifecycle.EventStatusCancelled, rank(0), rank(1)), 3, lifecycle.ErrEventClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := lifecycle.CheckEligibility(tt.event, &lifecycle.User{Rank: tt.rank})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unset range is reported as rank not allowed", func(t *testing.T) {
		err := lifecycle.CheckEligibility(event(lifecycle.EventStatusRegistration, rank(1), nil), &lifecycle.User{Rank: 3})
		assert.ErrorIs(t, err, lifecycle.ErrRankNotAllowed)
	})
}

func TestCanRegister(t *testing.T) {
	open := &lifecycle.Event{Status: lifecycle.EventStatusRegistration, RankMin: rank(1), RankMax: rank(3)}
	assert.True(t, lifecycle.CanRegister(open, &lifecycle.User{Rank: 2}))
	assert.False(t, lifecycle.CanRegister(open, &lifecycle.User{Rank: 3}))

	full := &lifecycle.Event{Status: lifecycle.EventStatusFull, RankMin: rank(1), RankMax: rank(3)}
	assert.False(t, lifecycle.CanRegister(full, &lifecycle.User{Rank: 2}))

	unrestricted := &lifecycle.Event{Status: lifecycle.EventStatusRegistration}
	assert.True(t, lifecycle.CanRegister(unrestricted, &lifecycle.User{Rank: 9}))
}

func TestLedger(t *testing.T) {
	assert.NoError(t, lifecycle.Admit(1, 2))
	assert.ErrorIs(t, lifecycle.Admit(2, 2), lifecycle.ErrEventFull)

	assert.Equal(t, lifecycle.EventStatusFull, lifecycle.DeriveStatus(lifecycle.EventStatusRegistration, 2, 2))
	assert.Equal(t, lifecycle.EventStatusRegistration, lifecycle.DeriveStatus(lifecycle.EventStatusFull, 1, 2))
	assert.Equal(t, lifecycle.EventStatusCompleted, lifecycle.DeriveStatus(lifecycle.EventStatusCompleted, 0, 2))
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		typ    lifecycle.EventType
		from   lifecycle.RegistrationStatus
		action lifecycle.Action
		want   lifecycle.RegistrationStatus
	}{
		{"tournament register", lifecycle.EventTypeTournament, lifecycle.StatusNone, lifecycle.ActionRegister, lifecycle.StatusPending},
		{"tournament pay", lifecycle.EventTypeTournament, lifecycle.StatusPending, lifecycle.ActionPay, lifecycle.StatusConfirmed},
		{"tournament cancel before payment", lifecycle.EventTypeTournament, lifecycle.StatusPending, lifecycle.ActionCancelBeforePayment, lifecycle.StatusCancelledBeforePayment},
		{"tournament cancel after payment", lifecycle.EventTypeTournament, lifecycle.StatusConfirmed, lifecycle.ActionCancelAfterPayment, lifecycle.StatusCancelledAfterPayment},
		{"tournament reactivate after payment", lifecycle.EventTypeTournament, lifecycle.StatusCancelledAfterPayment, lifecycle.ActionReactivate, lifecycle.StatusPending},
		{"training follows the paid flow", lifecycle.EventTypeTraining, lifecycle.StatusNone, lifecycle.ActionRegister, lifecycle.StatusPending},
		{"game register", lifecycle.EventTypeGame, lifecycle.StatusNone, lifecycle.ActionRegister, lifecycle.StatusInvited},
		{"game approve", lifecycle.EventTypeGame, lifecycle.StatusInvited, lifecycle.ActionApprove, lifecycle.StatusConfirmed},
		{"game reject", lifecycle.EventTypeGame, lifecycle.StatusInvited, lifecycle.ActionReject, lifecycle.StatusCancelled},
		{"game leave", lifecycle.EventTypeGame, lifecycle.StatusConfirmed, lifecycle.ActionLeave, lifecycle.StatusLeft},
		{"game reactivate", lifecycle.EventTypeGame, lifecycle.StatusLeft, lifecycle.ActionReactivate, lifecycle.StatusInvited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lifecycle.Next(tt.typ, tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("illegal moves are invalid transitions", func(t *testing.T) {
		illegal := []struct {
			typ    lifecycle.EventType
			from   lifecycle.RegistrationStatus
			action lifecycle.Action
		}{
			{lifecycle.EventTypeTournament, lifecycle.StatusConfirmed, lifecycle.ActionPay},
			{lifecycle.EventTypeTournament, lifecycle.StatusPending, lifecycle.ActionApprove},
			{lifecycle.EventTypeGame, lifecycle.StatusConfirmed, lifecycle.ActionApprove},
			{lifecycle.EventTypeGame, lifecycle.StatusCancelled, lifecycle.ActionReactivate},
			{lifecycle.EventTypeGame, lifecycle.StatusInvited, lifecycle.ActionPay},
		}
		for _, m := range illegal {
			_, err := lifecycle.Next(m.typ, m.from, m.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, lifecycle.ErrInvalidTransition), "%s %s %s", m.typ, m.from, m.action)
		}
	})
}

func TestAdmitsAndReleases(t *testing.T) {
	assert.True(t, lifecycle.Admits(lifecycle.StatusNone, lifecycle.StatusPending))
	assert.True(t, lifecycle.Admits(lifecycle.StatusInvited, lifecycle.StatusConfirmed))
	assert.False(t, lifecycle.Admits(lifecycle.StatusPending, lifecycle.StatusConfirmed))
	assert.False(t, lifecycle.Admits(lifecycle.StatusNone, lifecycle.StatusInvited))

	assert.True(t, lifecycle.Releases(lifecycle.StatusConfirmed, lifecycle.StatusLeft))
	assert.False(t, lifecycle.Releases(lifecycle.StatusInvited, lifecycle.StatusCancelled))
}

func TestCancelAction(t *testing.T) {
	a, err := lifecycle.CancelAction(lifecycle.EventTypeTournament, lifecycle.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionCancelBeforePayment, a)

	a, err = lifecycle.CancelAction(lifecycle.EventTypeTournament, lifecycle.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionCancelAfterPayment, a)

	a, err = lifecycle.CancelAction(lifecycle.EventTypeGame, lifecycle.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActionLeave, a)

	_, err = lifecycle.CancelAction(lifecycle.EventTypeGame, lifecycle.StatusCancelled)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}
