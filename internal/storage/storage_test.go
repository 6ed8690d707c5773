package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"guardian-automod/internal/clock"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(time.Duration, func()) clock.Timer { return stubTimer{} }

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store.SetClock(clk)
	return store, clk
}

func TestMigrateIsRepeatable(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAuditLogs(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	old := AuditLog{GuildID: "g1", UserID: "u1", Level: "warn", Event: "old", CreatedAt: clk.now.Add(-48 * time.Hour)}
	if err := store.AddAuditLog(ctx, old); err != nil {
		t.Fatalf("add audit log: %v", err)
	}
	if err := store.AddAuditLog(ctx, AuditLog{GuildID: "g1", UserID: "u1", Level: "info", Event: "new"}); err != nil {
		t.Fatalf("add audit log: %v", err)
	}

	logs, err := store.ListAuditLogs(ctx, "g1", clk.now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "new" {
		t.Fatalf("unexpected logs %+v", logs)
	}

	removed, err := store.CleanupAuditLogs(ctx, 1)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed row, got %d", removed)
	}
}

func TestWarningsActiveCount(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	permanent, err := store.AddWarning(ctx, NewWarning{GuildID: "g1", UserID: "u1", ModeratorID: "bot", Reason: "first", Severity: "severe"})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}
	if permanent.ID == "" || permanent.ExpiresAt != nil {
		t.Fatalf("unexpected warning %+v", permanent)
	}
	if _, err := store.AddWarning(ctx, NewWarning{GuildID: "g1", UserID: "u1", ModeratorID: "bot", Reason: "temp", Duration: time.Hour}); err != nil {
		t.Fatalf("add warning: %v", err)
	}
	third, err := store.AddWarning(ctx, NewWarning{GuildID: "g1", UserID: "u1", ModeratorID: "bot", Reason: "third"})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}

	count, err := store.ActiveWarnings(ctx, "g1", "u1")
	if err != nil || count != 3 {
		t.Fatalf("expected 3 active, got %d (%v)", count, err)
	}

	clk.now = clk.now.Add(2 * time.Hour)
	count, _ = store.ActiveWarnings(ctx, "g1", "u1")
	if count != 2 {
		t.Fatalf("expected expired warning to drop out, got %d", count)
	}

	removed, err := store.RemoveWarning(ctx, "g1", third.ID, "mod", "appeal accepted")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed.Removed || removed.RemovalReason != "appeal accepted" {
		t.Fatalf("unexpected removal %+v", removed)
	}
	count, _ = store.ActiveWarnings(ctx, "g1", "u1")
	if count != 1 {
		t.Fatalf("expected 1 active after removal, got %d", count)
	}

	if _, err := store.RemoveWarning(ctx, "g1", "missing", "mod", ""); !errors.Is(err, ErrWarningNotFound) {
		t.Fatalf("expected ErrWarningNotFound, got %v", err)
	}

	list, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 listed warnings, got %d (%v)", len(list), err)
	}
	if list[0].Severity != "severe" || list[1].Severity != "minor" {
		t.Fatalf("unexpected severities %q %q", list[0].Severity, list[1].Severity)
	}
}

func TestAwardXPCooldownAndLevelUp(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()
	required := func(level int) int { return 20 * level }

	award, err := store.AwardXP(ctx, "g1", "u1", 15, 2*time.Minute, required)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if !award.Awarded || award.LeveledUp || award.XP != 15 {
		t.Fatalf("unexpected first award %+v", award)
	}

	clk.now = clk.now.Add(time.Minute)
	award, _ = store.AwardXP(ctx, "g1", "u1", 15, 2*time.Minute, required)
	if award.Awarded || award.XP != 15 {
		t.Fatalf("expected cooldown to block award, got %+v", award)
	}

	clk.now = clk.now.Add(2 * time.Minute)
	award, _ = store.AwardXP(ctx, "g1", "u1", 10, 2*time.Minute, required)
	if !award.LeveledUp || award.Level != 2 || award.XP != 0 || award.TotalXP != 25 {
		t.Fatalf("expected level up, got %+v", award)
	}

	stored, err := store.GetLevel(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get level: %v", err)
	}
	if stored.Level != 2 || stored.TotalXP != 25 {
		t.Fatalf("unexpected stored level %+v", stored)
	}

	fresh, _ := store.GetLevel(ctx, "g1", "nobody")
	if fresh.Level != 1 || fresh.XP != 0 {
		t.Fatalf("unexpected default level %+v", fresh)
	}
}
