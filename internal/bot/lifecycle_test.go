package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestGuildMemberGuard(t *testing.T) {
	if _, ok := guildMember(nil); ok {
		t.Fatalf("nil member must be rejected")
	}
	if _, ok := guildMember(&discordgo.Member{GuildID: "g1"}); ok {
		t.Fatalf("member without user must be rejected")
	}
	if _, ok := guildMember(&discordgo.Member{User: &discordgo.User{ID: "u1"}}); ok {
		t.Fatalf("member without guild must be rejected")
	}
	// A gateway event with no embedded member must not panic.
	event := &discordgo.GuildMemberAdd{}
	if _, ok := guildMember(event.Member); ok {
		t.Fatalf("empty event must be rejected")
	}
	m, ok := guildMember(&discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "u1"}})
	if !ok || m.GuildID != "g1" {
		t.Fatalf("valid member rejected")
	}
}

func TestBanEntry(t *testing.T) {
	ban := discordgo.AuditLogActionMemberBanAdd
	kick := discordgo.AuditLogActionMemberKick
	log := &discordgo.GuildAuditLog{
		Users: []*discordgo.User{{ID: "mod1", Username: "mod"}},
		AuditLogEntries: []*discordgo.AuditLogEntry{
			{TargetID: "u2", UserID: "mod1", ActionType: &ban, Reason: "other"},
			{TargetID: "u1", UserID: "mod1", ActionType: &kick, Reason: "kicked"},
			{TargetID: "u1", UserID: "mod1", ActionType: &ban, Reason: "raiding"},
		},
	}
	mod, reason := banEntry(log, "u1")
	if mod == nil || mod.Username != "mod" || reason != "raiding" {
		t.Fatalf("unexpected ban entry %+v %q", mod, reason)
	}

	log.Users = nil
	if mod, _ := banEntry(log, "u1"); mod == nil || mod.ID != "mod1" {
		t.Fatalf("moderator id should survive a missing user list, got %+v", mod)
	}
	if mod, reason := banEntry(log, "u9"); mod != nil || reason != "" {
		t.Fatalf("unknown target should have no moderator")
	}
	if mod, _ := banEntry(nil, "u1"); mod != nil {
		t.Fatalf("nil log should have no moderator")
	}
	if actorOf(nil) != nil || userRef(nil) != nil {
		t.Fatalf("missing moderator must leave the actor empty")
	}
}

func TestCloseWithinHonorsContext(t *testing.T) {
	if err := closeWithin(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	boom := errors.New("boom")
	if err := closeWithin(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("close error should be wrapped, got %v", err)
	}

	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := closeWithin(ctx, func() error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
