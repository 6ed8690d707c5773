// Package violation enforces a detected violation: it removes the message,
// warns or times out the author, posts a short-lived notice and records the
// action. Each step is attempted on its own; a failing step is logged and the
// rest still run.
package violation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/logging"
	"guardian-automod/internal/modules/audit"
	"guardian-automod/internal/modules/blockeddomains"
	"guardian-automod/internal/modules/blockedwords"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/storage"
	"guardian-automod/internal/utils"
)

const (
	NoticeLifetime    = 10 * time.Second
	FallbackLifetime  = 5 * time.Second
	EscalationTimeout = 24 * time.Hour

	escalationReason = "Auto-escalation: Multiple warnings"
)

type Platform interface {
	BotUserID() string
	DeleteMessage(channelID, messageID string) error
	SendNotice(channelID, content, mentionUserID string) (string, error)
	TimeoutMember(guildID, userID string, until time.Time, reason string) error
}

type Warnings interface {
	AddWarning(ctx context.Context, in storage.NewWarning) (storage.Warning, error)
	ActiveWarnings(ctx context.Context, guildID, userID string) (int, error)
	RemoveWarning(ctx context.Context, guildID, warningID, removedBy, reason string) (storage.Warning, error)
}

type ActionLogger interface {
	LogAction(ctx context.Context, guildID string, kind embeds.ActionKind, payload any, actor *logging.Actor) bool
}

type Auditor interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

// Target is the offending message.
type Target struct {
	GuildID     string
	ChannelID   string
	ChannelName string
	MessageID   string
	Content     string
	Author      embeds.UserRef
	Moderatable bool
}

// Outcome reports which enforcement steps took effect.
type Outcome struct {
	Deleted   bool
	Warned    bool
	WarningID string
	TimedOut  bool
	Escalated bool
	Notified  bool
}

type Handler struct {
	platform Platform
	warnings Warnings
	actions  ActionLogger
	audit    Auditor
	clock    clock.Clock
	logger   *zap.Logger
}

func New(platform Platform, warnings Warnings, actions ActionLogger, auditor Auditor, clk clock.Clock, logger *zap.Logger) *Handler {
	if clk == nil {
		clk = clock.Real()
	}
	return &Handler{
		platform: platform,
		warnings: warnings,
		actions:  actions,
		audit:    auditor,
		clock:    clk,
		logger:   logger,
	}
}

// Handle enforces one of the pipeline's violation kinds. With forceTimeout a
// moderatable author is timed out for the kind's duration; otherwise, or when
// the timeout cannot be applied, the author is warned.
func (h *Handler) Handle(ctx context.Context, t Target, kind Kind, forceTimeout bool) Outcome {
	rule := RuleFor(kind)
	var out Outcome
	out.Deleted = h.deleteMessage(t, kind)

	var consequence string
	if forceTimeout && t.Moderatable {
		if h.timeout(t, rule.Timeout, rule.Reason) {
			out.TimedOut = true
			consequence = "You have been timed out for " + utils.FormatDuration(rule.Timeout) + "."
			h.actions.LogAction(ctx, t.GuildID, embeds.KindTimeout, embeds.Timeout{
				User:     userRef(t.Author),
				Duration: utils.FormatDuration(rule.Timeout),
				Reason:   rule.Reason,
			}, actorOf(t))
		}
	}
	if !out.TimedOut {
		if w, ok := h.warn(ctx, t, rule.Reason, rule.Severity); ok {
			out.Warned = true
			out.WarningID = w.ID
			consequence = "You have been issued a warning."
		}
	}

	content := "🚨 <@" + t.Author.ID + ">, " + rule.Notice
	if consequence != "" {
		content += " " + consequence
	}
	out.Notified = h.notify(t, content, NoticeLifetime)

	h.audit.Log(ctx, auditLevel(rule.Severity), t.GuildID, t.Author.ID, string(kind),
		fmt.Sprintf("deleted=%t warned=%t timed_out=%t", out.Deleted, out.Warned, out.TimedOut))
	return out
}

func (h *Handler) HandleBlockedWord(ctx context.Context, t Target, match blockedwords.Match, cfg policy.BlockedWords) Outcome {
	var out Outcome
	out.Deleted = h.deleteMessage(t, BlockedWord)

	if cfg.AutoWarn {
		reason := fmt.Sprintf("Used blocked word: %q (severity: %s)", match.Term, match.Severity)
		if w, ok := h.warn(ctx, t, reason, match.Severity); ok {
			out.Warned = true
			out.WarningID = w.ID
			if cfg.AutoEscalation {
				out.Escalated = h.escalate(ctx, t, cfg.EscalationThresholds.Timeout)
				out.TimedOut = out.Escalated
			}
		}
	}
	if !out.Escalated {
		h.actions.LogAction(ctx, t.GuildID, embeds.KindAutomodAction, embeds.Automod{
			User:      userRef(t.Author),
			Channel:   channelRef(t),
			Violation: string(BlockedWord),
			Action:    enforcementName(out),
			Detail:    match.Term,
		}, actorOf(t))
	}

	if out.Deleted {
		suffix := "Please follow server rules."
		if cfg.AutoWarn {
			suffix = "You have been issued a warning."
		}
		content := "🚨 <@" + t.Author.ID + ">, your message contained a blocked word (`" + match.Term + "`) and has been removed. " + suffix
		out.Notified = h.notify(t, content, NoticeLifetime)
	}
	if !out.Notified {
		out.Notified = h.notify(t, "<@"+t.Author.ID+">, your message contained a blocked word. Please follow server rules.", FallbackLifetime)
	}

	h.audit.Log(ctx, audit.LevelWarn, t.GuildID, t.Author.ID, string(BlockedWord),
		fmt.Sprintf("term=%s token=%s severity=%s escalated=%t", match.Term, match.Token, match.Severity, out.Escalated))
	return out
}

func (h *Handler) HandleBlockedDomain(ctx context.Context, t Target, match blockeddomains.Match, cfg policy.BlockedDomains) Outcome {
	var out Outcome
	if cfg.DeleteMessages {
		out.Deleted = h.deleteMessage(t, BlockedDomain)
	}

	if cfg.AutoWarn {
		reason := fmt.Sprintf("Posted blocked domain: %q", match.Domain)
		if w, ok := h.warn(ctx, t, reason, match.Severity); ok {
			out.Warned = true
			out.WarningID = w.ID
			if cfg.AutoEscalation {
				out.Escalated = h.escalate(ctx, t, cfg.EscalationThresholds.Timeout)
				out.TimedOut = out.Escalated
			}
		}
	}
	if !out.Escalated {
		h.actions.LogAction(ctx, t.GuildID, embeds.KindAutomodAction, embeds.Automod{
			User:      userRef(t.Author),
			Channel:   channelRef(t),
			Violation: string(BlockedDomain),
			Action:    enforcementName(out),
			Detail:    match.Domain,
		}, actorOf(t))
	}

	state := "flagged"
	if out.Deleted {
		state = "removed"
	}
	content := "<@" + t.Author.ID + ">, your message contained a blocked domain and has been " + state + "."
	if cfg.AutoWarn {
		content += " You have been issued a warning."
	}
	out.Notified = h.notify(t, content, NoticeLifetime)

	h.audit.Log(ctx, audit.LevelWarn, t.GuildID, t.Author.ID, string(BlockedDomain),
		fmt.Sprintf("domain=%s severity=%s escalated=%t", match.Domain, match.Severity, out.Escalated))
	return out
}

// RemoveWarning withdraws a warning on behalf of moderator and logs the
// removal against the warned user.
func (h *Handler) RemoveWarning(ctx context.Context, guildID, warningID string, moderator embeds.UserRef, reason string) (storage.Warning, error) {
	w, err := h.warnings.RemoveWarning(ctx, guildID, warningID, moderator.ID, reason)
	if err != nil {
		return storage.Warning{}, fmt.Errorf("remove warning %s: %w", warningID, err)
	}
	h.actions.LogAction(ctx, guildID, embeds.KindWarningRemoved, embeds.WarningRemoved{
		User:          &embeds.UserRef{ID: w.UserID},
		Moderator:     userRef(moderator),
		WarningID:     w.ID,
		RemovalReason: reason,
	}, &logging.Actor{ID: moderator.ID, Bot: moderator.Bot})
	h.audit.Log(ctx, audit.LevelInfo, guildID, w.UserID, "warning_removed", "warning="+w.ID+" by="+moderator.ID)
	return w, nil
}

// escalate times the author out once their active warnings reach threshold.
func (h *Handler) escalate(ctx context.Context, t Target, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	active, err := h.warnings.ActiveWarnings(ctx, t.GuildID, t.Author.ID)
	if err != nil {
		h.logger.Warn("count active warnings failed", zap.String("guild_id", t.GuildID), zap.String("user_id", t.Author.ID), zap.Error(err))
		return false
	}
	if active < threshold {
		return false
	}
	if !t.Moderatable {
		h.logger.Info("escalation skipped, member not moderatable", zap.String("guild_id", t.GuildID), zap.String("user_id", t.Author.ID), zap.Int("warnings", active))
		return false
	}
	if !h.timeout(t, EscalationTimeout, escalationReason) {
		return false
	}
	h.actions.LogAction(ctx, t.GuildID, embeds.KindAutoEscalation, embeds.Escalation{
		User:         userRef(t.Author),
		Action:       "timeout",
		Duration:     "24 hours",
		Reason:       escalationReason,
		WarningCount: active,
		Description:  "**" + t.Author.Tag + "** auto-escalated to 24h timeout",
	}, actorOf(t))
	h.audit.Log(ctx, audit.LevelCrit, t.GuildID, t.Author.ID, "auto_escalation", "warnings="+strconv.Itoa(active))
	return true
}

func (h *Handler) deleteMessage(t Target, kind Kind) bool {
	if err := h.platform.DeleteMessage(t.ChannelID, t.MessageID); err != nil {
		h.logger.Warn("delete violating message failed", zap.String("guild_id", t.GuildID), zap.String("channel_id", t.ChannelID), zap.String("violation", string(kind)), zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) timeout(t Target, d time.Duration, reason string) bool {
	until := h.clock.Now().Add(d)
	if err := h.platform.TimeoutMember(t.GuildID, t.Author.ID, until, reason); err != nil {
		h.logger.Warn("timeout failed", zap.String("guild_id", t.GuildID), zap.String("user_id", t.Author.ID), zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) warn(ctx context.Context, t Target, reason string, severity policy.Severity) (storage.Warning, bool) {
	w, err := h.warnings.AddWarning(ctx, storage.NewWarning{
		GuildID:     t.GuildID,
		UserID:      t.Author.ID,
		ModeratorID: h.platform.BotUserID(),
		Reason:      reason,
		Severity:    string(severity),
	})
	if err != nil {
		h.logger.Warn("issue warning failed", zap.String("guild_id", t.GuildID), zap.String("user_id", t.Author.ID), zap.Error(err))
		return storage.Warning{}, false
	}
	h.actions.LogAction(ctx, t.GuildID, embeds.KindWarningAdded, embeds.Warning{
		User:      userRef(t.Author),
		Moderator: &embeds.UserRef{ID: h.platform.BotUserID(), Tag: "Auto-Moderation"},
		WarningID: w.ID,
		Reason:    reason,
		Severity:  w.Severity,
	}, actorOf(t))
	return w, true
}

// notify posts content and schedules its removal after lifetime.
func (h *Handler) notify(t Target, content string, lifetime time.Duration) bool {
	noticeID, err := h.platform.SendNotice(t.ChannelID, content, t.Author.ID)
	if err != nil {
		h.logger.Warn("send violation notice failed", zap.String("guild_id", t.GuildID), zap.String("channel_id", t.ChannelID), zap.Error(err))
		return false
	}
	h.clock.AfterFunc(lifetime, func() {
		if err := h.platform.DeleteMessage(t.ChannelID, noticeID); err != nil {
			h.logger.Debug("notice already gone", zap.String("channel_id", t.ChannelID), zap.Error(err))
		}
	})
	return true
}

func enforcementName(out Outcome) string {
	switch {
	case out.TimedOut:
		return "timeout"
	case out.Warned:
		return "warning"
	case out.Deleted:
		return "delete"
	}
	return "flag"
}

func auditLevel(sev policy.Severity) string {
	if sev == policy.SeveritySevere {
		return audit.LevelCrit
	}
	return audit.LevelWarn
}

func userRef(u embeds.UserRef) *embeds.UserRef {
	ref := u
	return &ref
}

func channelRef(t Target) *embeds.ChannelRef {
	return &embeds.ChannelRef{ID: t.ChannelID, Name: t.ChannelName}
}

func actorOf(t Target) *logging.Actor {
	return &logging.Actor{ID: t.Author.ID, Bot: t.Author.Bot}
}
