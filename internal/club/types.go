package club

import (
	"database/sql"
	"sync"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// store handles all database operations for the club.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Member is a user of the club. Rank is maintained by admins and gates event registration.
type Member = lifecycle.User
