package catalog

import (
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// CreateInput describes a new event. The creator becomes its organizer.
type CreateInput struct {
	Name      string              `json:"name"`
	Type      lifecycle.EventType `json:"type"`
	RankMin   *float64            `json:"rankMin"`
	RankMax   *float64            `json:"rankMax"`
	MaxUsers  int                 `json:"maxUsers"`
	Price     decimal.Decimal     `json:"price"`
	StartTime time.Time           `json:"startTime"`
	EndTime   time.Time           `json:"endTime"`
	ClubID    string              `json:"clubId"`
	CourtID   string              `json:"courtId"`
}

// Patch is a partial event update. Nil fields are left unchanged.
type Patch struct {
	Name      *string                `json:"name"`
	RankMin   *float64               `json:"rankMin"`
	RankMax   *float64               `json:"rankMax"`
	MaxUsers  *int                   `json:"maxUsers"`
	Price     *decimal.Decimal       `json:"price"`
	StartTime *time.Time             `json:"startTime"`
	EndTime   *time.Time             `json:"endTime"`
	ClubID    *string                `json:"clubId"`
	CourtID   *string                `json:"courtId"`
	Status    *lifecycle.EventStatus `json:"status"`
}

// EventView is an event with the participation facts derived for one viewer.
type EventView struct {
	lifecycle.Event
	Occupied         int                          `json:"occupied"`
	IsFull           bool                         `json:"isFull"`
	CanRegister      bool                         `json:"canRegister"`
	UserStatus       lifecycle.RegistrationStatus `json:"userStatus,omitempty"`
	WaitlistPosition int                          `json:"waitlistPosition,omitempty"`
	Leaderboard      []lifecycle.LeaderboardEntry `json:"leaderboard,omitempty"`
}
