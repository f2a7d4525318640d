package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-sqlite3"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
)

const maxTxAttempts = 3

var _ Store = (*store)(nil)

// New creates a new entity Store.
func New(db *sql.DB) Store {
	return &store{
		db:      db,
		queries: &queries{db: db},
	}
}

func (s *store) Atomically(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isConflict(err) {
			return err
		}
		log.Warn("Transaction conflict, retrying", "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	return err
}

func (s *store) runTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, lifecycle.ErrNotFound)
}

// inOccupying renders the occupying statuses as a SQL list with its arguments.
func inOccupying() (string, []any) {
	marks := make([]string, len(lifecycle.OccupyingStatuses))
	args := make([]any, len(lifecycle.OccupyingStatuses))
	for i, st := range lifecycle.OccupyingStatuses {
		marks[i] = "?"
		args[i] = string(st)
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// --- events ---

const eventColumns = `id, name, type, status, rank_min, rank_max, max_users, price, organizer_id,
	start_time, end_time, club_id, court_id, created_at, updated_at`

func (q *queries) InsertEvent(ctx context.Context, e *lifecycle.Event) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, string(e.Type), string(e.Status), e.RankMin, e.RankMax, e.MaxUsers, e.Price, e.OrganizerID,
		millis(e.StartTime), millis(e.EndTime), nullString(e.ClubID), nullString(e.CourtID),
		millis(e.CreatedAt), millis(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (q *queries) UpdateEvent(ctx context.Context, e *lifecycle.Event) error {
	res, err := q.db.ExecContext(ctx, `UPDATE events SET name = ?, type = ?, status = ?, rank_min = ?, rank_max = ?,
		max_users = ?, price = ?, start_time = ?, end_time = ?, club_id = ?, court_id = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, string(e.Type), string(e.Status), e.RankMin, e.RankMax, e.MaxUsers, e.Price,
		millis(e.StartTime), millis(e.EndTime), nullString(e.ClubID), nullString(e.CourtID), millis(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return checkAffected(res, "event", e.ID)
}

func (q *queries) SetEventStatus(ctx context.Context, eventID string, status lifecycle.EventStatus) error {
	res, err := q.db.ExecContext(ctx, `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), millis(time.Now()), eventID)
	if err != nil {
		return fmt.Errorf("failed to set event status: %w", err)
	}
	return checkAffected(res, "event", eventID)
}

func (q *queries) GetEvent(ctx context.Context, eventID string) (*lifecycle.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("event", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (q *queries) ListEvents(ctx context.Context) ([]lifecycle.Event, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []lifecycle.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(scanner interface{ Scan(...any) error }) (*lifecycle.Event, error) {
	var (
		e                                      lifecycle.Event
		typ, status                            string
		rankMin, rankMax                       sql.NullFloat64
		clubID, courtID                        sql.NullString
		startTime, endTime, createdAt, updated int64
	)
	err := scanner.Scan(&e.ID, &e.Name, &typ, &status, &rankMin, &rankMax, &e.MaxUsers, &e.Price, &e.OrganizerID,
		&startTime, &endTime, &clubID, &courtID, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	e.Type = lifecycle.EventType(typ)
	e.Status = lifecycle.EventStatus(status)
	if rankMin.Valid {
		e.RankMin = &rankMin.Float64
	}
	if rankMax.Valid {
		e.RankMax = &rankMax.Float64
	}
	e.ClubID = clubID.String
	e.CourtID = courtID.String
	e.StartTime = fromMillis(startTime)
	e.EndTime = fromMillis(endTime)
	e.CreatedAt = fromMillis(createdAt)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

// --- users ---

func (q *queries) GetUser(ctx context.Context, userID string) (*lifecycle.User, error) {
	var (
		u          lifecycle.User
		telegramID sql.NullInt64
		createdAt  int64
	)
	err := q.db.QueryRowContext(ctx, `SELECT id, name, rank, telegram_id, is_admin, created_at FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Rank, &telegramID, &u.IsAdmin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if telegramID.Valid {
		u.TelegramID = &telegramID.Int64
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

// --- registrations ---

const registrationColumns = `id, event_id, user_id, status, payment_id, created_at, updated_at`

func (q *queries) CountOccupying(ctx context.Context, eventID string) (int, error) {
	list, args := inOccupying()
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status IN `+list,
		append([]any{eventID}, args...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count occupying registrations: %w", err)
	}
	return n, nil
}

func (q *queries) InsertRegistration(ctx context.Context, r *lifecycle.Registration) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO registrations (`+registrationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.EventID, r.UserID, string(r.Status), r.PaymentID, millis(r.CreatedAt), millis(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (q *queries) UpdateRegistration(ctx context.Context, r *lifecycle.Registration) error {
	res, err := q.db.ExecContext(ctx, `UPDATE registrations SET status = ?, payment_id = ?, updated_at = ? WHERE id = ?`,
		string(r.Status), r.PaymentID, millis(r.UpdatedAt), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	return checkAffected(res, "registration", r.ID)
}

func (q *queries) GetRegistration(ctx context.Context, eventID, userID string) (*lifecycle.Registration, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("registration", eventID+"/"+userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return r, nil
}

func (q *queries) GetRegistrationByID(ctx context.Context, registrationID string) (*lifecycle.Registration, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, registrationID)
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("registration", registrationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return r, nil
}

func (q *queries) ListRegistrations(ctx context.Context, eventID string) ([]lifecycle.Registration, error) {
	return q.listRegistrations(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? ORDER BY created_at, id`, eventID)
}

func (q *queries) ListUserRegistrations(ctx context.Context, userID string) ([]lifecycle.Registration, error) {
	return q.listRegistrations(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

func (q *queries) listRegistrations(ctx context.Context, query string, args ...any) ([]lifecycle.Registration, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []lifecycle.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *r)
	}
	return regs, rows.Err()
}

func scanRegistration(scanner interface{ Scan(...any) error }) (*lifecycle.Registration, error) {
	var (
		r                  lifecycle.Registration
		status             string
		paymentID          sql.NullString
		createdAt, updated int64
	)
	if err := scanner.Scan(&r.ID, &r.EventID, &r.UserID, &status, &paymentID, &createdAt, &updated); err != nil {
		return nil, err
	}
	r.Status = lifecycle.RegistrationStatus(status)
	if paymentID.Valid {
		r.PaymentID = &paymentID.String
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}

// --- waitlist ---

func (q *queries) InsertWaitlistEntry(ctx context.Context, w *lifecycle.WaitlistEntry) error {
	res, err := q.db.ExecContext(ctx, `INSERT INTO waitlist_entries (event_id, user_id, joined_at) VALUES (?, ?, ?)`,
		w.EventID, w.UserID, millis(w.JoinedAt))
	if err != nil {
		return fmt.Errorf("failed to insert waitlist entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read waitlist sequence: %w", err)
	}
	w.Seq = seq
	return nil
}

func (q *queries) GetWaitlistEntry(ctx context.Context, eventID, userID string) (*lifecycle.WaitlistEntry, error) {
	var (
		w        lifecycle.WaitlistEntry
		joinedAt int64
	)
	err := q.db.QueryRowContext(ctx, `SELECT seq, event_id, user_id, joined_at FROM waitlist_entries WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&w.Seq, &w.EventID, &w.UserID, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("waitlist entry", eventID+"/"+userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	w.JoinedAt = fromMillis(joinedAt)
	return &w, nil
}

func (q *queries) DeleteWaitlistEntry(ctx context.Context, eventID, userID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete waitlist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (q *queries) ListWaitlist(ctx context.Context, eventID string) ([]lifecycle.WaitlistEntry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT seq, event_id, user_id, joined_at FROM waitlist_entries
		WHERE event_id = ? ORDER BY joined_at ASC, seq ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	defer rows.Close()
	return scanWaitlist(rows)
}

func scanWaitlist(rows *sql.Rows) ([]lifecycle.WaitlistEntry, error) {
	var entries []lifecycle.WaitlistEntry
	for rows.Next() {
		var (
			w        lifecycle.WaitlistEntry
			joinedAt int64
		)
		if err := rows.Scan(&w.Seq, &w.EventID, &w.UserID, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		w.JoinedAt = fromMillis(joinedAt)
		entries = append(entries, w)
	}
	return entries, rows.Err()
}

// --- payments ---

const paymentColumns = `id, registration_id, amount, currency, status, confirmation_token, payment_link, created_at, updated_at`

func (q *queries) InsertPayment(ctx context.Context, p *lifecycle.Payment) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RegistrationID, p.Amount, p.Currency, string(p.Status), p.ConfirmationToken, p.PaymentLink,
		millis(p.CreatedAt), millis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (q *queries) GetPayment(ctx context.Context, paymentID string) (*lifecycle.Payment, error) {
	p, err := scanPayment(q.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payment", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (q *queries) GetPaymentByToken(ctx context.Context, token string) (*lifecycle.Payment, error) {
	p, err := scanPayment(q.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE confirmation_token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("payment", token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by token: %w", err)
	}
	return p, nil
}

func (q *queries) UpdatePaymentStatus(ctx context.Context, paymentID string, status lifecycle.PaymentStatus) error {
	res, err := q.db.ExecContext(ctx, `UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), millis(time.Now()), paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return checkAffected(res, "payment", paymentID)
}

func (q *queries) ListRegistrationPayments(ctx context.Context, registrationID string) ([]lifecycle.Payment, error) {
	return q.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE registration_id = ? ORDER BY created_at`, registrationID)
}

func (q *queries) ListPendingPayments(ctx context.Context, createdBefore time.Time) ([]lifecycle.Payment, error) {
	return q.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE status = ? AND created_at < ? ORDER BY created_at`,
		string(lifecycle.PaymentPending), millis(createdBefore))
}

func (q *queries) listPayments(ctx context.Context, query string, args ...any) ([]lifecycle.Payment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []lifecycle.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(scanner interface{ Scan(...any) error }) (*lifecycle.Payment, error) {
	var (
		p                  lifecycle.Payment
		status             string
		createdAt, updated int64
	)
	err := scanner.Scan(&p.ID, &p.RegistrationID, &p.Amount, &p.Currency, &status, &p.ConfirmationToken, &p.PaymentLink,
		&createdAt, &updated)
	if err != nil {
		return nil, err
	}
	p.Status = lifecycle.PaymentStatus(status)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

// --- leaderboard ---

func (q *queries) GetLeaderboard(ctx context.Context, eventID string) ([]lifecycle.LeaderboardEntry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT event_id, place, user_id FROM leaderboard_entries WHERE event_id = ? ORDER BY place`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()
	return scanLeaderboard(rows)
}

func (q *queries) ReplaceLeaderboard(ctx context.Context, eventID string, entries []lifecycle.LeaderboardEntry) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}
	for _, entry := range entries {
		_, err := q.db.ExecContext(ctx, `INSERT INTO leaderboard_entries (event_id, place, user_id) VALUES (?, ?, ?)`,
			eventID, entry.Place, entry.UserID)
		if err != nil {
			return fmt.Errorf("failed to insert leaderboard place %d: %w", entry.Place, err)
		}
	}
	return nil
}

func scanLeaderboard(rows *sql.Rows) ([]lifecycle.LeaderboardEntry, error) {
	var entries []lifecycle.LeaderboardEntry
	for rows.Next() {
		var e lifecycle.LeaderboardEntry
		if err := rows.Scan(&e.EventID, &e.Place, &e.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- helpers ---

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
