// Package spamtrack tracks per (guild, user) posting windows for link spam,
// rapid posting and cross-channel duplicates.
package spamtrack

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/config"
)

type Limits struct {
	LinkWindow         time.Duration
	MaxLinks           int
	NewAccountMaxLinks int
	NewAccountAge      time.Duration
	RapidWindow        time.Duration
	RapidMessages      int
	DupWindow          time.Duration
	DupChannels        int
}

func LimitsFromConfig(cfg config.SpamConfig) Limits {
	return Limits{
		LinkWindow:         time.Duration(cfg.WindowSeconds) * time.Second,
		MaxLinks:           cfg.MaxLinks,
		NewAccountMaxLinks: cfg.NewAccountMaxLinks,
		NewAccountAge:      time.Duration(cfg.NewAccountDays) * 24 * time.Hour,
		RapidWindow:        time.Duration(cfg.RapidWindowSeconds) * time.Second,
		RapidMessages:      cfg.RapidMessages,
		DupWindow:          time.Duration(cfg.DupWindowSeconds) * time.Second,
		DupChannels:        cfg.DupChannelThreshold,
	}
}

type Tracker struct {
	store  WindowStore
	clock  clock.Clock
	limits Limits
	logger *zap.Logger
}

func NewTracker(store WindowStore, limits Limits, clk clock.Clock, logger *zap.Logger) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracker{store: store, clock: clk, limits: limits, logger: logger}
}

// IsLinkSpam records a link-bearing message and reports whether the user has
// posted more than the allowed number in the link window. Accounts younger
// than NewAccountAge get the lower limit. A zero createdAt is treated as old.
func (t *Tracker) IsLinkSpam(ctx context.Context, guildID, userID, messageID string, createdAt time.Time) bool {
	now := t.clock.Now()
	count, ok := t.observe(ctx, "links", guildID, userID, "", messageID, t.limits.LinkWindow, now)
	if !ok {
		return false
	}
	limit := t.limits.MaxLinks
	if !createdAt.IsZero() && now.Sub(createdAt) < t.limits.NewAccountAge {
		limit = t.limits.NewAccountMaxLinks
	}
	return count > limit
}

func (t *Tracker) IsRapidPosting(ctx context.Context, guildID, userID, messageID string) bool {
	count, ok := t.observe(ctx, "rapid", guildID, userID, "", messageID, t.limits.RapidWindow, t.clock.Now())
	return ok && count >= t.limits.RapidMessages
}

// IsCrossChannelSpam reports whether the same content was posted in at least
// DupChannels distinct channels within the duplicate window.
func (t *Tracker) IsCrossChannelSpam(ctx context.Context, guildID, userID, content, channelID string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	if normalized == "" {
		return false
	}
	count, ok := t.observe(ctx, "dup", guildID, userID, contentHash(normalized), channelID, t.limits.DupWindow, t.clock.Now())
	return ok && count >= t.limits.DupChannels
}

func (t *Tracker) observe(ctx context.Context, kind, guildID, userID, suffix, member string, window time.Duration, now time.Time) (int, bool) {
	if window <= 0 {
		return 0, false
	}
	if member == "" {
		member = strconv.FormatInt(now.UnixNano(), 10)
	}
	key := kind + ":" + guildID + ":" + userID
	if suffix != "" {
		key += ":" + suffix
	}
	count, err := t.store.Observe(ctx, key, member, window, now)
	if err != nil {
		t.logger.Warn("spam window unavailable", zap.String("kind", kind), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return 0, false
	}
	return count, true
}

func contentHash(content string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return strconv.FormatUint(h.Sum64(), 16)
}
