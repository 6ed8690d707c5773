package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/config"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/modules/blockeddomains"
	"guardian-automod/internal/modules/blockedwords"
	"guardian-automod/internal/modules/linkscan"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/spamtrack"
	"guardian-automod/internal/violation"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time                              { return c.now }
func (c fixedClock) AfterFunc(time.Duration, func()) clock.Timer { return nil }

type fakePolicies struct {
	words   policy.BlockedWords
	domains policy.BlockedDomains
}

func (p *fakePolicies) BlockedWords(string) policy.BlockedWords     { return p.words }
func (p *fakePolicies) BlockedDomains(string) policy.BlockedDomains { return p.domains }

type enforcement struct {
	kind  violation.Kind
	force bool
	term  string
}

type fakeEnforcer struct{ calls []enforcement }

func (e *fakeEnforcer) Handle(_ context.Context, _ violation.Target, kind violation.Kind, force bool) violation.Outcome {
	e.calls = append(e.calls, enforcement{kind: kind, force: force})
	return violation.Outcome{}
}

func (e *fakeEnforcer) HandleBlockedWord(_ context.Context, _ violation.Target, m blockedwords.Match, _ policy.BlockedWords) violation.Outcome {
	e.calls = append(e.calls, enforcement{kind: violation.BlockedWord, term: m.Term})
	return violation.Outcome{}
}

func (e *fakeEnforcer) HandleBlockedDomain(_ context.Context, _ violation.Target, m blockeddomains.Match, _ policy.BlockedDomains) violation.Outcome {
	e.calls = append(e.calls, enforcement{kind: violation.BlockedDomain, term: m.Domain})
	return violation.Outcome{}
}

type fakeSpam struct {
	link, rapid, dup bool
	checked          []string
}

func (s *fakeSpam) IsLinkSpam(context.Context, string, string, string, time.Time) bool {
	s.checked = append(s.checked, "link")
	return s.link
}

func (s *fakeSpam) IsRapidPosting(context.Context, string, string, string) bool {
	s.checked = append(s.checked, "rapid")
	return s.rapid
}

func (s *fakeSpam) IsCrossChannelSpam(context.Context, string, string, string, string) bool {
	s.checked = append(s.checked, "dup")
	return s.dup
}

type fakeCommands struct{ handles string }

func (c *fakeCommands) Dispatch(_ context.Context, msg Message) (bool, error) {
	return c.handles != "" && msg.Content == c.handles, nil
}

type fakeInvites struct{ adult map[string]bool }

func (i *fakeInvites) IsAdultInvite(_ context.Context, code string) (bool, error) {
	if code == "broken" {
		return false, errors.New("unknown invite")
	}
	return i.adult[code], nil
}

type fakeAudit struct{ events []string }

func (a *fakeAudit) Log(_ context.Context, _, _, _, event, _ string) {
	a.events = append(a.events, event)
}

type recordingFeature struct {
	name string
	err  error
	boom bool
	seen []string
}

func (f *recordingFeature) Name() string { return f.name }

func (f *recordingFeature) HandleMessage(_ context.Context, msg Message) error {
	if f.boom {
		panic("feature exploded")
	}
	f.seen = append(f.seen, msg.ID)
	return f.err
}

type harness struct {
	now      time.Time
	policies *fakePolicies
	enforcer *fakeEnforcer
	spam     *fakeSpam
	audit    *fakeAudit
	feature  *recordingFeature
	pipeline *Pipeline
}

func newHarness() *harness {
	h := &harness{
		now:      time.Unix(1_700_000_000, 0),
		policies: &fakePolicies{words: policy.DefaultBlockedWords(), domains: policy.DefaultBlockedDomains()},
		enforcer: &fakeEnforcer{},
		spam:     &fakeSpam{},
		audit:    &fakeAudit{},
		feature:  &recordingFeature{name: "recorder"},
	}
	h.policies.words.BlockedWords = []string{"foo"}
	h.policies.domains.BlockedDomains = []string{"bad.example"}
	h.pipeline = New(Deps{
		Policies: h.policies,
		Enforcer: h.enforcer,
		Spam:     h.spam,
		Commands: &fakeCommands{handles: "!rules"},
		Invites:  &fakeInvites{adult: map[string]bool{"lewd": true}},
		Features: []Feature{
			&recordingFeature{name: "panics", boom: true},
			&recordingFeature{name: "fails", err: errors.New("nope")},
			h.feature,
		},
		Audit:  h.audit,
		Clock:  fixedClock{now: h.now},
		Logger: zap.NewNop(),
	}, Settings{MaxMentions: 3, AllowedLinkChannel: "links"})
	return h
}

func message(content string) Message {
	return Message{
		ID:          "m1",
		GuildID:     "g1",
		ChannelID:   "c1",
		Content:     content,
		Author:      embeds.UserRef{ID: "u1", Tag: "alice"},
		Moderatable: true,
	}
}

func (h *harness) only(t *testing.T, kind violation.Kind, force bool) {
	t.Helper()
	if len(h.enforcer.calls) != 1 {
		t.Fatalf("expected exactly one enforcement, got %+v", h.enforcer.calls)
	}
	got := h.enforcer.calls[0]
	if got.kind != kind || got.force != force {
		t.Fatalf("expected %s force=%t, got %+v", kind, force, got)
	}
	if len(h.feature.seen) != 0 {
		t.Fatalf("features must not run after an enforcement")
	}
}

func TestIgnoresBotsAndDirectMessages(t *testing.T) {
	h := newHarness()
	bot := message("foo")
	bot.Author.Bot = true
	if res := h.pipeline.Handle(context.Background(), bot); res.Step != StepIgnored {
		t.Fatalf("bot message should be ignored, got %s", res.Step)
	}
	dm := message("foo")
	dm.GuildID = ""
	if res := h.pipeline.Handle(context.Background(), dm); res.Step != StepIgnored {
		t.Fatalf("direct message should be ignored, got %s", res.Step)
	}
	if len(h.enforcer.calls) != 0 {
		t.Fatalf("ignored messages are never enforced")
	}
}

func TestCustomCommandStopsProcessing(t *testing.T) {
	h := newHarness()
	res := h.pipeline.Handle(context.Background(), message("!rules"))
	if res.Step != StepCustomCommand || len(h.feature.seen) != 0 {
		t.Fatalf("custom command should stop processing, got %s", res.Step)
	}
}

func TestBlockedWordWinsOverLaterChecks(t *testing.T) {
	h := newHarness()
	res := h.pipeline.Handle(context.Background(), message("foobar this is porn"))
	if res.Violation != violation.BlockedWord {
		t.Fatalf("expected blocked word, got %+v", res)
	}
	h.only(t, violation.BlockedWord, false)
	if h.enforcer.calls[0].term != "foo" {
		t.Fatalf("expected term foo, got %q", h.enforcer.calls[0].term)
	}
}

func TestBlockedWordAdminBypass(t *testing.T) {
	h := newHarness()
	admin := message("foo fighters")
	admin.IsAdmin = true
	if res := h.pipeline.Handle(context.Background(), admin); res.Enforced() {
		t.Fatalf("admin should bypass blocked words, got %+v", res)
	}

	h = newHarness()
	h.policies.words.BypassAdmins = false
	if res := h.pipeline.Handle(context.Background(), admin); res.Violation != violation.BlockedWord {
		t.Fatalf("without bypass_admins admins are checked, got %+v", res)
	}

	h = newHarness()
	h.policies.words.Enabled = false
	if res := h.pipeline.Handle(context.Background(), message("foo fighters")); res.Enforced() {
		t.Fatalf("disabled blocked words should not enforce, got %+v", res)
	}
}

func TestKeywordEnforcedForMembersLoggedForAdmins(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("this is porn stuff"))
	h.only(t, violation.BlockedKeyword, true)

	h = newHarness()
	admin := message("this is porn stuff")
	admin.IsAdmin = true
	res := h.pipeline.Handle(context.Background(), admin)
	if res.Enforced() || res.Step != StepFeatures {
		t.Fatalf("admin keyword match should fall through, got %+v", res)
	}
	if len(h.audit.events) != 1 || h.audit.events[0] != "keyword_admin_bypass" {
		t.Fatalf("admin keyword match should be audited, got %v", h.audit.events)
	}
}

func TestAdminWithoutBypassFlagHitsLaterChecks(t *testing.T) {
	h := newHarness()
	h.policies.words.BypassAdmins = false
	admin := message("this is porn stuff")
	admin.IsAdmin = true
	h.pipeline.Handle(context.Background(), admin)
	h.only(t, violation.BypassAttempt, true)
	if len(h.audit.events) != 1 {
		t.Fatalf("keyword step is still skipped for admins, got %v", h.audit.events)
	}
}

func TestBypassAttempt(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("check out p0rn"))
	h.only(t, violation.BypassAttempt, true)
}

func TestSuspiciousFormattingSeverityDependsOnScore(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("hello***world"))
	h.only(t, violation.SuspiciousFormatting, false)

	h = newHarness()
	young := message("hello***world")
	young.AuthorCreatedAt = h.now.Add(-48 * time.Hour)
	h.pipeline.Handle(context.Background(), young)
	h.only(t, violation.SuspiciousFormatting, true)
}

func TestHighThreatAndNewAccount(t *testing.T) {
	h := newHarness()
	shouting := message("AAAAAAAAAAAAAAAAAAAAAAAA")
	shouting.AuthorCreatedAt = h.now.Add(-time.Hour)
	res := h.pipeline.Handle(context.Background(), shouting)
	if res.Score < 25 {
		t.Fatalf("expected a high score, got %d", res.Score)
	}
	h.only(t, violation.HighThreat, true)

	h = newHarness()
	fresh := message("hello there friend")
	fresh.AuthorCreatedAt = h.now.Add(-time.Hour)
	h.pipeline.Handle(context.Background(), fresh)
	h.only(t, violation.AccountTooNew, true)

	h = newHarness()
	old := message("hello there friend")
	old.AuthorCreatedAt = h.now.Add(-30 * 24 * time.Hour)
	if res := h.pipeline.Handle(context.Background(), old); res.Enforced() {
		t.Fatalf("old account with ordinary text should pass, got %+v", res)
	}
}

func TestMentionLimit(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("<@1> <@2> <@3> <@4>"))
	h.only(t, violation.PingSpam, false)

	h = newHarness()
	if res := h.pipeline.Handle(context.Background(), message("<@1> <@2> <@3>")); res.Enforced() {
		t.Fatalf("three mentions are allowed, got %+v", res)
	}
}

func TestBlockedDomain(t *testing.T) {
	h := newHarness()
	res := h.pipeline.Handle(context.Background(), message("see https://bad.example/x"))
	if res.Step != StepBlockedDomain {
		t.Fatalf("expected blocked domain step, got %+v", res)
	}
	h.only(t, violation.BlockedDomain, false)

	h = newHarness()
	h.policies.domains.AllowedChannels = []string{"c1"}
	if res := h.pipeline.Handle(context.Background(), message("see https://bad.example/x")); res.Step == StepBlockedDomain {
		t.Fatalf("allowed channels skip the domain check")
	}
}

func TestAdultSiteOnlyOutsideLinkChannel(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("check https://redtube.com/v"))
	h.only(t, violation.AdultSite, false)

	h = newHarness()
	inLinks := message("check https://redtube.com/v")
	inLinks.ChannelID = "links"
	if res := h.pipeline.Handle(context.Background(), inLinks); res.Enforced() {
		t.Fatalf("adult site check is skipped in the link channel, got %+v", res)
	}
}

func TestSpamChecksInOrder(t *testing.T) {
	h := newHarness()
	h.spam.rapid = true
	h.spam.dup = true
	h.pipeline.Handle(context.Background(), message("look https://docs.golang.org"))
	h.only(t, violation.RapidPosting, true)
	if len(h.spam.checked) != 2 || h.spam.checked[0] != "link" {
		t.Fatalf("expected link then rapid checks, got %v", h.spam.checked)
	}

	h = newHarness()
	h.spam.dup = true
	h.pipeline.Handle(context.Background(), message("look https://docs.golang.org"))
	h.only(t, violation.CrossChannelSpam, true)
}

func TestAdminsSkipURLAndInviteChecks(t *testing.T) {
	h := newHarness()
	h.spam.link = true
	admin := message("see https://bad.example/x discord.gg/lewd")
	admin.IsAdmin = true
	if res := h.pipeline.Handle(context.Background(), admin); res.Enforced() {
		t.Fatalf("admins skip link and invite checks, got %+v", res)
	}
	if len(h.spam.checked) != 0 {
		t.Fatalf("spam windows should not be touched for admins")
	}
}

func TestAdultInvite(t *testing.T) {
	h := newHarness()
	h.pipeline.Handle(context.Background(), message("join discord.gg/broken or discord.gg/lewd"))
	h.only(t, violation.AdultInvite, false)
}

func TestFeaturesAreIsolated(t *testing.T) {
	h := newHarness()
	msg := message("good morning everyone")
	res := h.pipeline.Handle(context.Background(), msg)
	if res.Step != StepFeatures || res.Enforced() {
		t.Fatalf("clean message should reach features, got %+v", res)
	}
	if len(h.feature.seen) != 1 || h.feature.seen[0] != "m1" {
		t.Fatalf("later features must run after one panics or fails")
	}
}

func TestManyCleanLinksFromEstablishedAccountReachFeatures(t *testing.T) {
	h := newHarness()
	clk := fixedClock{now: h.now}
	h.pipeline.deps.Spam = spamtrack.NewTracker(spamtrack.NewMemoryStore(), spamtrack.LimitsFromConfig(config.DefaultConfig().Spam), clk, zap.NewNop())
	h.pipeline.deps.Links = linkscan.New(nil)

	msg := message("reading list: https://go.dev https://pkg.go.dev https://github.com " +
		"https://gitlab.com https://golang.org https://docs.python.org")
	msg.AuthorCreatedAt = h.now.Add(-10 * 24 * time.Hour)

	res := h.pipeline.Handle(context.Background(), msg)
	if res.Step != StepFeatures || res.Enforced() {
		t.Fatalf("expected the message to reach features, got %+v", res)
	}
	if len(h.enforcer.calls) != 0 {
		t.Fatalf("expected no enforcement, got %+v", h.enforcer.calls)
	}
	if len(h.feature.seen) != 1 || h.feature.seen[0] != "m1" {
		t.Fatalf("feature should see the message once, got %v", h.feature.seen)
	}
}
