// Package pipeline runs the ordered moderation checks over an inbound guild
// message. The first enforced violation stops processing; messages that pass
// every check are handed to the downstream features.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/analyzer"
	"guardian-automod/internal/clock"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/modules/audit"
	"guardian-automod/internal/modules/blockeddomains"
	"guardian-automod/internal/modules/blockedwords"
	"guardian-automod/internal/modules/linkscan"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/utils"
	"guardian-automod/internal/violation"
)

const (
	formattingTimeoutScore = 15
	highThreatScore        = 25
	newAccountScore        = 15
	newAccountAge          = 24 * time.Hour
)

// Message is an inbound guild message with the author facts the checks need.
type Message struct {
	ID              string
	GuildID         string
	ChannelID       string
	ChannelName     string
	Content         string
	Author          embeds.UserRef
	AuthorCreatedAt time.Time
	// IsAdmin holds for Administrator, ManageMessages or ManageGuild.
	IsAdmin     bool
	Moderatable bool
}

func (m Message) target() violation.Target {
	return violation.Target{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		ChannelName: m.ChannelName,
		MessageID:   m.ID,
		Content:     m.Content,
		Author:      m.Author,
		Moderatable: m.Moderatable,
	}
}

type Step string

const (
	StepIgnored       Step = "ignored"
	StepCustomCommand Step = "custom_command"
	StepBlockedWord   Step = "blocked_word"
	StepKeyword       Step = "keyword"
	StepBypass        Step = "bypass"
	StepFormatting    Step = "formatting"
	StepHighThreat    Step = "high_threat"
	StepNewAccount    Step = "new_account"
	StepMentions      Step = "mentions"
	StepBlockedDomain Step = "blocked_domain"
	StepAdultSite     Step = "adult_site"
	StepLinkSpam      Step = "link_spam"
	StepRapidPosting  Step = "rapid_posting"
	StepCrossChannel  Step = "cross_channel"
	StepInvite        Step = "invite"
	StepFeatures      Step = "features"
)

// Result names the step that ended processing and, for enforcement steps,
// the violation that was handled.
type Result struct {
	Step      Step
	Violation violation.Kind
	Score     int
}

func (r Result) Enforced() bool { return r.Violation != "" }

type Policies interface {
	BlockedWords(guildID string) policy.BlockedWords
	BlockedDomains(guildID string) policy.BlockedDomains
}

type Enforcer interface {
	Handle(ctx context.Context, t violation.Target, kind violation.Kind, forceTimeout bool) violation.Outcome
	HandleBlockedWord(ctx context.Context, t violation.Target, match blockedwords.Match, cfg policy.BlockedWords) violation.Outcome
	HandleBlockedDomain(ctx context.Context, t violation.Target, match blockeddomains.Match, cfg policy.BlockedDomains) violation.Outcome
}

type SpamTracker interface {
	IsLinkSpam(ctx context.Context, guildID, userID, messageID string, createdAt time.Time) bool
	IsRapidPosting(ctx context.Context, guildID, userID, messageID string) bool
	IsCrossChannelSpam(ctx context.Context, guildID, userID, content, channelID string) bool
}

// CommandDispatcher runs guild custom commands. handled stops the pipeline.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg Message) (handled bool, err error)
}

type InviteResolver interface {
	IsAdultInvite(ctx context.Context, code string) (bool, error)
}

// Feature is a downstream consumer of messages that passed moderation.
type Feature interface {
	Name() string
	HandleMessage(ctx context.Context, msg Message) error
}

type Auditor interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

type Settings struct {
	MaxMentions        int
	AllowedLinkChannel string
}

type Deps struct {
	Policies Policies
	Enforcer Enforcer
	Spam     SpamTracker
	Links    *linkscan.Scanner
	Commands CommandDispatcher
	Invites  InviteResolver
	Features []Feature
	Audit    Auditor
	Clock    clock.Clock
	Logger   *zap.Logger
}

type Pipeline struct {
	deps     Deps
	settings Settings
}

func New(deps Deps, settings Settings) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Links == nil {
		deps.Links = linkscan.New(nil)
	}
	return &Pipeline{deps: deps, settings: settings}
}

func (p *Pipeline) Handle(ctx context.Context, msg Message) Result {
	if msg.Author.Bot || msg.GuildID == "" {
		return Result{Step: StepIgnored}
	}
	log := p.deps.Logger.With(zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID))

	if p.deps.Commands != nil {
		handled, err := p.deps.Commands.Dispatch(ctx, msg)
		if err != nil {
			log.Warn("custom command failed", zap.Error(err))
		}
		if handled {
			return Result{Step: StepCustomCommand}
		}
	}

	content := msg.Content
	target := msg.target()
	wordsCfg := p.deps.Policies.BlockedWords(msg.GuildID)
	exempt := wordsCfg.BypassAdmins && msg.IsAdmin

	if !exempt && wordsCfg.Enabled {
		if match, ok := blockedwords.Find(content, wordsCfg); ok {
			log.Info("blocked word", zap.String("term", match.Term), zap.String("severity", string(match.Severity)))
			p.deps.Enforcer.HandleBlockedWord(ctx, target, match, wordsCfg)
			return Result{Step: StepBlockedWord, Violation: violation.BlockedWord}
		}
	}

	report := analyzer.Analyze(content, msg.AuthorCreatedAt, p.deps.Clock.Now())
	log.Debug("suspicion analysis", zap.Int("score", report.Score), zap.Bool("bypass", report.Bypass), zap.Bool("formatting", report.Formatting))

	if analyzer.MatchesKeyword(content) || analyzer.MatchesPartial(content) {
		if !msg.IsAdmin {
			return p.enforce(ctx, target, StepKeyword, violation.BlockedKeyword, true, report.Score)
		}
		p.deps.Audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.Author.ID, "keyword_admin_bypass", "keyword match not enforced for admin")
	}

	if !exempt && report.Bypass {
		return p.enforce(ctx, target, StepBypass, violation.BypassAttempt, true, report.Score)
	}
	if !exempt && report.Formatting {
		return p.enforce(ctx, target, StepFormatting, violation.SuspiciousFormatting, report.Score >= formattingTimeoutScore, report.Score)
	}
	if !exempt && report.Score >= highThreatScore {
		return p.enforce(ctx, target, StepHighThreat, violation.HighThreat, true, report.Score)
	}
	if !exempt && !msg.AuthorCreatedAt.IsZero() {
		if p.deps.Clock.Now().Sub(msg.AuthorCreatedAt) < newAccountAge && report.Score >= newAccountScore {
			return p.enforce(ctx, target, StepNewAccount, violation.AccountTooNew, true, report.Score)
		}
	}
	if mentions := utils.CountMentions(content); mentions > p.settings.MaxMentions {
		if !exempt {
			return p.enforce(ctx, target, StepMentions, violation.PingSpam, false, report.Score)
		}
		log.Info("mention limit not enforced for admin", zap.Int("mentions", mentions))
	}

	if urls := utils.ExtractURLs(content); len(urls) > 0 {
		if res, stop := p.checkURLs(ctx, msg, target, urls, report.Score); stop {
			return res
		}
	}

	if !msg.IsAdmin && p.deps.Invites != nil {
		for _, code := range utils.ExtractInviteCodes(content) {
			adult, err := p.deps.Invites.IsAdultInvite(ctx, code)
			if err != nil {
				log.Debug("invite lookup failed", zap.String("code", code), zap.Error(err))
				continue
			}
			if adult {
				return p.enforce(ctx, target, StepInvite, violation.AdultInvite, false, report.Score)
			}
		}
	}

	p.runFeatures(ctx, msg)
	return Result{Step: StepFeatures, Score: report.Score}
}

func (p *Pipeline) checkURLs(ctx context.Context, msg Message, target violation.Target, urls []string, score int) (Result, bool) {
	if msg.IsAdmin {
		return Result{}, false
	}

	domainsCfg := p.deps.Policies.BlockedDomains(msg.GuildID)
	if domainsCfg.Enabled {
		if match, ok := blockeddomains.Find(urls, msg.ChannelID, domainsCfg); ok {
			p.deps.Enforcer.HandleBlockedDomain(ctx, target, match, domainsCfg)
			return Result{Step: StepBlockedDomain, Violation: violation.BlockedDomain, Score: score}, true
		}
	}

	if p.settings.AllowedLinkChannel != "" && msg.ChannelID != p.settings.AllowedLinkChannel {
		for _, u := range urls {
			if !p.deps.Links.IsWhitelistedURL(u) && p.deps.Links.IsAdultSite(u) {
				return p.enforce(ctx, target, StepAdultSite, violation.AdultSite, false, score), true
			}
		}
	}

	for _, u := range urls {
		if category := p.deps.Links.Classify(u); category == linkscan.CategoryPhishing || category == linkscan.CategoryMalware {
			p.deps.Audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.Author.ID, "suspicious_link", fmt.Sprintf("category=%s url=%s", category, u))
		}
	}

	if p.deps.Spam != nil {
		if p.deps.Spam.IsLinkSpam(ctx, msg.GuildID, msg.Author.ID, msg.ID, msg.AuthorCreatedAt) {
			return p.enforce(ctx, target, StepLinkSpam, violation.LinkSpam, true, score), true
		}
		if p.deps.Spam.IsRapidPosting(ctx, msg.GuildID, msg.Author.ID, msg.ID) {
			return p.enforce(ctx, target, StepRapidPosting, violation.RapidPosting, true, score), true
		}
		if p.deps.Spam.IsCrossChannelSpam(ctx, msg.GuildID, msg.Author.ID, msg.Content, msg.ChannelID) {
			return p.enforce(ctx, target, StepCrossChannel, violation.CrossChannelSpam, true, score), true
		}
	}
	return Result{}, false
}

func (p *Pipeline) enforce(ctx context.Context, target violation.Target, step Step, kind violation.Kind, forceTimeout bool, score int) Result {
	p.deps.Logger.Info("violation",
		zap.String("guild_id", target.GuildID),
		zap.String("user_id", target.Author.ID),
		zap.String("violation", string(kind)),
		zap.Bool("force_timeout", forceTimeout),
		zap.Int("score", score),
	)
	p.deps.Enforcer.Handle(ctx, target, kind, forceTimeout)
	return Result{Step: step, Violation: kind, Score: score}
}

// runFeatures gives every feature the message. A feature that fails or
// panics is logged and the rest still run.
func (p *Pipeline) runFeatures(ctx context.Context, msg Message) {
	for _, f := range p.deps.Features {
		if err := runFeature(ctx, f, msg); err != nil {
			p.deps.Logger.Warn("feature failed", zap.String("feature", f.Name()), zap.String("guild_id", msg.GuildID), zap.Error(err))
		}
	}
}

func runFeature(ctx context.Context, f Feature, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f.HandleMessage(ctx, msg)
}
