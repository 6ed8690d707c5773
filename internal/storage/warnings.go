package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrWarningNotFound = errors.New("warning not found")

type Warning struct {
	ID            string
	GuildID       string
	UserID        string
	ModeratorID   string
	Reason        string
	Severity      string
	IssuedAt      time.Time
	ExpiresAt     *time.Time
	Removed       bool
	RemovedBy     string
	RemovalReason string
	RemovedAt     *time.Time
}

// NewWarning describes a warning to issue. A zero Duration is permanent.
type NewWarning struct {
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	Severity    string
	Duration    time.Duration
}

// Expired reports whether w has a deadline at or before now.
func (w Warning) Expired(now time.Time) bool {
	return w.ExpiresAt != nil && !now.Before(*w.ExpiresAt)
}

func (w Warning) Active(now time.Time) bool {
	return !w.Removed && !w.Expired(now)
}

func (s *Store) AddWarning(ctx context.Context, in NewWarning) (Warning, error) {
	now := s.clock.Now()
	w := Warning{
		ID:          uuid.NewString(),
		GuildID:     in.GuildID,
		UserID:      in.UserID,
		ModeratorID: in.ModeratorID,
		Reason:      in.Reason,
		Severity:    in.Severity,
		IssuedAt:    now,
	}
	if w.Severity == "" {
		w.Severity = "minor"
	}
	var expires any
	if in.Duration > 0 {
		at := now.Add(in.Duration)
		w.ExpiresAt = &at
		expires = at.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (id, guild_id, user_id, moderator_id, reason, severity, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.GuildID, w.UserID, w.ModeratorID, w.Reason, w.Severity, now.Unix(), expires)
	if err != nil {
		return Warning{}, err
	}
	return w, nil
}

func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, reason, severity, issued_at, expires_at,
		removed, COALESCE(removed_by, ''), COALESCE(removal_reason, ''), removed_at
		FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY issued_at ASC, rowid ASC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		w, err := scanWarning(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) ActiveWarnings(ctx context.Context, guildID, userID string) (int, error) {
	warnings, err := s.ListWarnings(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	count := 0
	for _, w := range warnings {
		if w.Active(now) {
			count++
		}
	}
	return count, nil
}

// RemoveWarning soft-deletes a warning and returns its updated state.
func (s *Store) RemoveWarning(ctx context.Context, guildID, warningID, removedBy, reason string) (result Warning, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Warning{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, reason, severity, issued_at, expires_at,
		removed, COALESCE(removed_by, ''), COALESCE(removal_reason, ''), removed_at
		FROM warnings
		WHERE guild_id = ? AND id = ?
	`, guildID, warningID)
	result, err = scanWarning(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrWarningNotFound
		}
		return Warning{}, err
	}

	now := s.clock.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE warnings SET removed = 1, removed_by = ?, removal_reason = ?, removed_at = ?
		WHERE id = ?
	`, removedBy, reason, now.Unix(), warningID)
	if err != nil {
		return Warning{}, err
	}
	if err = tx.Commit(); err != nil {
		return Warning{}, err
	}

	result.Removed = true
	result.RemovedBy = removedBy
	result.RemovalReason = reason
	result.RemovedAt = &now
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarning(row rowScanner) (Warning, error) {
	var w Warning
	var issued int64
	var expires, removedAt sql.NullInt64
	var removed int
	if err := row.Scan(&w.ID, &w.GuildID, &w.UserID, &w.ModeratorID, &w.Reason, &w.Severity, &issued, &expires,
		&removed, &w.RemovedBy, &w.RemovalReason, &removedAt); err != nil {
		return Warning{}, err
	}
	w.IssuedAt = time.Unix(issued, 0)
	w.Removed = removed == 1
	if expires.Valid {
		at := time.Unix(expires.Int64, 0)
		w.ExpiresAt = &at
	}
	if removedAt.Valid {
		at := time.Unix(removedAt.Int64, 0)
		w.RemovedAt = &at
	}
	return w, nil
}
