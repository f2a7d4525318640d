package store

import (
	"context"
	"fmt"

	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

func (s *store) OccupancyReport(ctx context.Context) ([]Occupancy, error) {
	list, args := inOccupying()
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.max_users, COUNT(r.id)
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id AND r.status IN `+list+`
		GROUP BY e.id, e.max_users`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build occupancy report: %w", err)
	}
	defer rows.Close()

	var report []Occupancy
	for rows.Next() {
		var o Occupancy
		if err := rows.Scan(&o.EventID, &o.MaxUsers, &o.Occupied); err != nil {
			return nil, fmt.Errorf("failed to scan occupancy: %w", err)
		}
		report = append(report, o)
	}
	return report, rows.Err()
}

func (s *store) DuplicateRegistrations(ctx context.Context) ([]Duplicate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, user_id, COUNT(*) FROM registrations
		GROUP BY event_id, user_id HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan duplicate registrations: %w", err)
	}
	defer rows.Close()

	var dups []Duplicate
	for rows.Next() {
		var d Duplicate
		if err := rows.Scan(&d.EventID, &d.UserID, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate: %w", err)
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}

func (s *store) WaitlistConflicts(ctx context.Context) ([]lifecycle.WaitlistEntry, error) {
	list, args := inOccupying()
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.seq, w.event_id, w.user_id, w.joined_at
		FROM waitlist_entries w
		JOIN registrations r ON r.event_id = w.event_id AND r.user_id = w.user_id
		WHERE r.status IN `+list+`
		ORDER BY w.event_id, w.joined_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan waitlist conflicts: %w", err)
	}
	defer rows.Close()
	return scanWaitlist(rows)
}

func (s *store) LeaderboardViolations(ctx context.Context) ([]lifecycle.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.event_id, l.place, l.user_id
		FROM leaderboard_entries l
		LEFT JOIN registrations r ON r.event_id = l.event_id AND r.user_id = l.user_id
		WHERE r.status IS NULL OR r.status != ?
		ORDER BY l.event_id, l.place`, string(lifecycle.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("failed to scan leaderboard violations: %w", err)
	}
	defer rows.Close()
	return scanLeaderboard(rows)
}
