// Package antiraid watches guild join rates and raises an alert when a burst
// of joins lands inside the configured window.
package antiraid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/config"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/logging"
	"guardian-automod/internal/modules/audit"
)

type ActionLogger interface {
	LogAction(ctx context.Context, guildID string, kind embeds.ActionKind, payload any, actor *logging.Actor) bool
}

type Auditor interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

type Module struct {
	mu      sync.Mutex
	joins   map[string][]time.Time
	alerted map[string]bool
	cfg     config.RaidConfig
	actions ActionLogger
	audit   Auditor
	clock   clock.Clock
	logger  *zap.Logger
}

func New(cfg config.RaidConfig, actions ActionLogger, auditor Auditor, clk clock.Clock, logger *zap.Logger) *Module {
	if clk == nil {
		clk = clock.Real()
	}
	return &Module{
		joins:   make(map[string][]time.Time),
		alerted: make(map[string]bool),
		cfg:     cfg,
		actions: actions,
		audit:   auditor,
		clock:   clk,
		logger:  logger,
	}
}

// HandleJoin records a join and reports whether the guild is in a burst. The
// alert is raised once per burst; it re-arms when the window drains below the
// threshold.
func (m *Module) HandleJoin(ctx context.Context, guildID string, user embeds.UserRef) bool {
	if guildID == "" || m.cfg.Joins <= 0 {
		return false
	}
	count, first := m.record(guildID)
	if count < m.cfg.Joins {
		return false
	}
	if !first {
		return true
	}

	detail := fmt.Sprintf("%d joins in %ds (threshold %d)", count, m.cfg.WindowSeconds, m.cfg.Joins)
	m.logger.Warn("join burst", zap.String("guild_id", guildID), zap.Int("joins", count))
	m.audit.Log(ctx, audit.LevelWarn, guildID, user.ID, "anti_raid", detail)
	m.actions.LogAction(ctx, guildID, embeds.KindAutomodAction, embeds.Automod{
		User:        &user,
		Violation:   "join_burst",
		Action:      "alert",
		Detail:      detail,
		Description: "Possible raid in progress",
	}, nil)
	return true
}

func (m *Module) record(guildID string) (count int, first bool) {
	now := m.clock.Now()
	cutoff := now.Add(-time.Duration(m.cfg.WindowSeconds) * time.Second)

	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.joins[guildID]
	idx := 0
	for idx < len(entries) && !entries[idx].After(cutoff) {
		idx++
	}
	entries = append(entries[idx:], now)
	m.joins[guildID] = entries

	count = len(entries)
	if count < m.cfg.Joins {
		delete(m.alerted, guildID)
		return count, false
	}
	if m.alerted[guildID] {
		return count, false
	}
	m.alerted[guildID] = true
	return count, true
}
