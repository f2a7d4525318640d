package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{"users", "events", "registrations", "waitlist_entries", "payments", "leaderboard_entries"} {
		t.Run(table, func(t *testing.T) {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, "Querying for %s table should not produce an error", table)
			assert.Equal(t, table, name)
		})
	}
}

func TestInitDB_EnforcesOneRegistrationPerUser(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec(`INSERT INTO users (id, name, rank, created_at) VALUES ('u1', 'User', 1, 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO events (id, name, type, max_users, organizer_id, start_time, end_time, created_at, updated_at)
		VALUES ('e1', 'Cup', 'tournament', 2, 'u1', 0, 0, 0, 0)`)
	require.NoError(t, err)

	insert := `INSERT INTO registrations (id, event_id, user_id, status, created_at, updated_at) VALUES (?, 'e1', 'u1', 'PENDING', 0, 0)`
	_, err = db.Exec(insert, "r1")
	require.NoError(t, err)
	_, err = db.Exec(insert, "r2")
	assert.Error(t, err, "a second registration row for the same user and event must be rejected")
}

func TestInitDB_MissingMigrations(t *testing.T) {
	_, _, err := InitDB(":memory:", "", "", "./does-not-exist")
	assert.Error(t, err)
}
