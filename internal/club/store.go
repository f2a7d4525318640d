package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

// New creates a new ClubStore.
func New(db *sql.DB) ClubStore {
	return &store{
		db: db,
	}
}

const memberColumns = "id, name, rank, telegram_id, is_admin, created_at"

// AddMember inserts the member or updates name, rank, telegram id and admin flag of an existing one.
func (s *store) AddMember(ctx context.Context, member Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertMember(ctx, s.db, member)
}

func (s *store) UpsertMembers(ctx context.Context, members []Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range members {
		if err := upsertMember(ctx, tx, m); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit members: %w", err)
	}
	log.Info("Upserted members", "count", len(members))
	return nil
}

func upsertMember(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, m Member) error {
	if m.ID == "" {
		return fmt.Errorf("member id is required: %w", lifecycle.ErrInvalidInput)
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, name, rank, telegram_id, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rank = excluded.rank,
			telegram_id = excluded.telegram_id,
			is_admin = excluded.is_admin`,
		m.ID, m.Name, m.Rank, m.TelegramID, m.IsAdmin, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", m.ID, err)
	}
	log.Debug("Upserted member", "memberID", m.ID, "rank", m.Rank)
	return nil
}

func (s *store) GetMember(ctx context.Context, memberID string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := scanMember(s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM users WHERE id = ?", memberID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, lifecycle.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (s *store) GetMembers(ctx context.Context, memberIDs []string) ([]Member, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(memberIDs)), ",")
	return s.queryMembers(ctx, "SELECT "+memberColumns+" FROM users WHERE id IN ("+placeholders+") ORDER BY name", toAnySlice(memberIDs)...)
}

func (s *store) GetAllMembers(ctx context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryMembers(ctx, "SELECT "+memberColumns+" FROM users ORDER BY name")
}

// GetMembersSortedByRank returns all members, highest rank first.
func (s *store) GetMembersSortedByRank(ctx context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryMembers(ctx, "SELECT "+memberColumns+" FROM users ORDER BY rank DESC, name")
}

func (s *store) IsKnownMember(ctx context.Context, memberID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", memberID).Scan(&exists)
	if err != nil {
		log.Error("Failed to check if member exists", "error", err, "memberID", memberID)
		return false
	}
	return exists
}

// SetRank changes a member's rank. Existing registrations are not re-checked.
func (s *store) SetRank(ctx context.Context, memberID string, rank float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE users SET rank = ? WHERE id = ?", rank, memberID)
	if err != nil {
		return fmt.Errorf("failed to set rank: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", memberID, lifecycle.ErrNotFound)
	}
	log.Info("Updated member rank", "memberID", memberID, "rank", rank)
	return nil
}

func (s *store) queryMembers(ctx context.Context, query string, args ...any) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("Failed to query members", "error", err)
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			log.Error("Failed to scan member row", "error", err)
			continue
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func scanMember(scanner interface{ Scan(...any) error }) (*Member, error) {
	var (
		m          Member
		telegramID sql.NullInt64
		createdAt  int64
	)
	if err := scanner.Scan(&m.ID, &m.Name, &m.Rank, &telegramID, &m.IsAdmin, &createdAt); err != nil {
		return nil, err
	}
	if telegramID.Valid {
		m.TelegramID = &telegramID.Int64
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &m, nil
}

func toAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
