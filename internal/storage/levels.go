package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type UserLevel struct {
	GuildID       string
	UserID        string
	Level         int
	XP            int
	TotalXP       int
	LastMessageAt time.Time
}

type XPAward struct {
	UserLevel
	Awarded   bool
	LeveledUp bool
}

func (s *Store) GetLevel(ctx context.Context, guildID, userID string) (UserLevel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, level, xp, total_xp, last_message_at
		FROM user_levels WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	lvl, err := scanLevel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return UserLevel{GuildID: guildID, UserID: userID, Level: 1}, nil
	}
	return lvl, err
}

// AwardXP adds gain to the user's XP unless the last award is within cooldown.
// When XP reaches required(level) the level increments and XP restarts at zero.
func (s *Store) AwardXP(ctx context.Context, guildID, userID string, gain int, cooldown time.Duration, required func(level int) int) (award XPAward, err error) {
	now := s.clock.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return XPAward{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT guild_id, user_id, level, xp, total_xp, last_message_at
		FROM user_levels WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	lvl, scanErr := scanLevel(row)
	switch {
	case errors.Is(scanErr, sql.ErrNoRows):
		lvl = UserLevel{GuildID: guildID, UserID: userID, Level: 1}
	case scanErr != nil:
		err = scanErr
		return XPAward{}, err
	}

	if !lvl.LastMessageAt.IsZero() && now.Sub(lvl.LastMessageAt) < cooldown {
		err = tx.Commit()
		return XPAward{UserLevel: lvl}, err
	}

	lvl.XP += gain
	lvl.TotalXP += gain
	lvl.LastMessageAt = now
	award = XPAward{UserLevel: lvl, Awarded: true}
	if lvl.XP >= required(lvl.Level) {
		award.Level++
		award.XP = 0
		award.LeveledUp = true
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_levels (guild_id, user_id, level, xp, total_xp, last_message_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			level = excluded.level,
			xp = excluded.xp,
			total_xp = excluded.total_xp,
			last_message_at = excluded.last_message_at
	`, guildID, userID, award.Level, award.XP, award.TotalXP, now.UnixMilli())
	if err != nil {
		return XPAward{}, err
	}
	if err = tx.Commit(); err != nil {
		return XPAward{}, err
	}
	return award, nil
}

func scanLevel(row rowScanner) (UserLevel, error) {
	var lvl UserLevel
	var last int64
	if err := row.Scan(&lvl.GuildID, &lvl.UserID, &lvl.Level, &lvl.XP, &lvl.TotalXP, &last); err != nil {
		return UserLevel{}, err
	}
	if last > 0 {
		lvl.LastMessageAt = time.UnixMilli(last)
	}
	return lvl, nil
}
