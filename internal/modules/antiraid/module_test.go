package antiraid

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/config"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/logging"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time                              { return c.now }
func (c *fakeClock) AfterFunc(time.Duration, func()) clock.Timer { return nil }

type countingActions struct{ kinds []embeds.ActionKind }

func (a *countingActions) LogAction(_ context.Context, _ string, kind embeds.ActionKind, _ any, _ *logging.Actor) bool {
	a.kinds = append(a.kinds, kind)
	return true
}

type countingAudit struct{ events []string }

func (a *countingAudit) Log(_ context.Context, _, _, _, event, _ string) {
	a.events = append(a.events, event)
}

func TestJoinBurstAlertsOnce(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	actions := &countingActions{}
	auditor := &countingAudit{}
	module := New(config.RaidConfig{Joins: 3, WindowSeconds: 5}, actions, auditor, clk, zap.NewNop())
	ctx := context.Background()
	user := embeds.UserRef{ID: "u1"}

	if module.HandleJoin(ctx, "g1", user) || module.HandleJoin(ctx, "g1", user) {
		t.Fatalf("two joins are not a burst")
	}
	if !module.HandleJoin(ctx, "g1", user) {
		t.Fatalf("expected a burst on the third join")
	}
	if !module.HandleJoin(ctx, "g1", user) {
		t.Fatalf("burst continues on the fourth join")
	}
	if len(actions.kinds) != 1 || actions.kinds[0] != embeds.KindAutomodAction {
		t.Fatalf("expected one automod record, got %v", actions.kinds)
	}
	if len(auditor.events) != 1 || auditor.events[0] != "anti_raid" {
		t.Fatalf("expected one audit entry, got %v", auditor.events)
	}

	clk.now = clk.now.Add(10 * time.Second)
	if module.HandleJoin(ctx, "g1", user) {
		t.Fatalf("window should have drained")
	}
	module.HandleJoin(ctx, "g1", user)
	module.HandleJoin(ctx, "g1", user)
	if len(actions.kinds) != 2 {
		t.Fatalf("a new burst should alert again, got %d records", len(actions.kinds))
	}
}

func TestJoinsArePerGuild(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	module := New(config.RaidConfig{Joins: 2, WindowSeconds: 5}, &countingActions{}, &countingAudit{}, clk, zap.NewNop())
	ctx := context.Background()
	module.HandleJoin(ctx, "g1", embeds.UserRef{})
	if module.HandleJoin(ctx, "g2", embeds.UserRef{}) {
		t.Fatalf("joins in another guild must not count")
	}
}
