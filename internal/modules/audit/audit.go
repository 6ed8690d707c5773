// Package audit persists moderation events and mirrors them to the
// structured log.
package audit

import (
	"context"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/storage"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Sink interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

type Logger struct {
	sink   Sink
	clock  clock.Clock
	logger *zap.Logger
}

func NewLogger(sink Sink, clk clock.Clock, logger *zap.Logger) *Logger {
	if clk == nil {
		clk = clock.Real()
	}
	return &Logger{sink: sink, clock: clk, logger: logger}
}

// Log never fails the caller: a storage error is reported on the structured
// log only.
func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.clock.Now(),
	}
	if l.sink != nil {
		if err := l.sink.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("persist audit entry failed", zap.String("guild_id", guildID), zap.String("event", event), zap.Error(err))
		}
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}
