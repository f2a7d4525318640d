package lifecycle

// Admit decides whether one more occupying registration fits.
func Admit(occupied, maxUsers int) error {
	if occupied >= maxUsers {
		return ErrEventFull
	}
	return nil
}

// DeriveStatus returns the event status implied by the occupied slot count.
// Terminal statuses are never changed.
func DeriveStatus(current EventStatus, occupied, maxUsers int) EventStatus {
	if current.Closed() {
		return current
	}
	if occupied >= maxUsers {
		return EventStatusFull
	}
	return EventStatusRegistration
}
