package lifecycle

// CanRegister is the display predicate for the register affordance.
// A missing rank range counts as no restriction here; CheckEligibility is stricter.
func CanRegister(e *Event, u *User) bool {
	if e.Status != EventStatusRegistration {
		return false
	}
	if e.RankMin == nil || e.RankMax == nil {
		return true
	}
	return inRange(e, u.Rank)
}

// CheckEligibility gates any transition into an occupying or invited status.
// Closed events are rejected first, then rank. Capacity is the ledger's concern.
func CheckEligibility(e *Event, u *User) error {
	if e.Status.Closed() {
		return ErrEventClosed
	}
	if e.RankMin == nil || e.RankMax == nil {
		return ErrRankRangeUnset
	}
	if !inRange(e, u.Rank) {
		return ErrRankNotAllowed
	}
	return nil
}

func inRange(e *Event, rank float64) bool {
	return *e.RankMin <= rank && rank < *e.RankMax
}
