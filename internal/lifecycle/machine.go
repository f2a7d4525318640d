package lifecycle

// Action is a trigger of the registration state machine.
type Action string

const (
	ActionRegister            Action = "register"
	ActionApprove             Action = "approve"
	ActionReject              Action = "reject"
	ActionPay                 Action = "pay"
	ActionCancelBeforePayment Action = "cancel_before_payment"
	ActionCancelAfterPayment  Action = "cancel_after_payment"
	ActionLeave               Action = "leave"
	ActionReactivate          Action = "reactivate"
)

// Flow groups event types that share a registration lifecycle.
type Flow string

const (
	// FlowPaid is self-service registration that is confirmed by payment.
	FlowPaid Flow = "paid"
	// FlowApproval is registration that is confirmed by the organizer.
	FlowApproval Flow = "approval"
)

// FlowOf returns the lifecycle flow used by an event type.
func FlowOf(t EventType) Flow {
	if t == EventTypeGame {
		return FlowApproval
	}
	return FlowPaid
}

type transitionKey struct {
	flow   Flow
	from   RegistrationStatus
	action Action
}

var transitions = map[transitionKey]RegistrationStatus{
	{FlowPaid, StatusNone, ActionRegister}:                     StatusPending,
	{FlowPaid, StatusPending, ActionPay}:                       StatusConfirmed,
	{FlowPaid, StatusPending, ActionCancelBeforePayment}:       StatusCancelledBeforePayment,
	{FlowPaid, StatusConfirmed, ActionCancelAfterPayment}:      StatusCancelledAfterPayment,
	{FlowPaid, StatusCancelledBeforePayment, ActionReactivate}: StatusPending,
	{FlowPaid, StatusCancelledAfterPayment, ActionReactivate}:  StatusPending,
	{FlowApproval, StatusNone, ActionRegister}:                 StatusInvited,
	{FlowApproval, StatusInvited, ActionApprove}:               StatusConfirmed,
	{FlowApproval, StatusInvited, ActionReject}:                StatusCancelled,
	{FlowApproval, StatusConfirmed, ActionLeave}:               StatusLeft,
	{FlowApproval, StatusInvited, ActionLeave}:                 StatusLeft,
	{FlowApproval, StatusLeft, ActionReactivate}:               StatusInvited,
}

// Next returns the status reached by applying action to a registration of an
// event of type t currently in status from.
func Next(t EventType, from RegistrationStatus, action Action) (RegistrationStatus, error) {
	to, ok := transitions[transitionKey{FlowOf(t), from, action}]
	if !ok {
		return from, &TransitionError{Type: t, From: from, Action: action}
	}
	return to, nil
}

// Admits reports whether the move from -> to takes a new slot and so must pass the ledger.
func Admits(from, to RegistrationStatus) bool {
	return !from.Occupying() && to.Occupying()
}

// Releases reports whether the move from -> to frees a slot.
func Releases(from, to RegistrationStatus) bool {
	return from.Occupying() && !to.Occupying()
}

// CancelAction picks the cancel-style action that is legal from the current status.
func CancelAction(t EventType, from RegistrationStatus) (Action, error) {
	for _, a := range []Action{ActionCancelBeforePayment, ActionCancelAfterPayment, ActionLeave} {
		if _, err := Next(t, from, a); err == nil {
			return a, nil
		}
	}
	return "", &TransitionError{Type: t, From: from, Action: "cancel"}
}
