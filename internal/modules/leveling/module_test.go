package leveling

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/config"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/storage"
)

type fakeStore struct {
	gains    []int
	cooldown time.Duration
	levelUp  bool
	required int
}

func (s *fakeStore) AwardXP(_ context.Context, guildID, userID string, gain int, cooldown time.Duration, required func(int) int) (storage.XPAward, error) {
	s.gains = append(s.gains, gain)
	s.cooldown = cooldown
	s.required = required(1)
	award := storage.XPAward{UserLevel: storage.UserLevel{GuildID: guildID, UserID: userID, Level: 1, XP: gain}, Awarded: true}
	if s.levelUp {
		award.Level = 2
		award.XP = 0
		award.LeveledUp = true
	}
	return award, nil
}

type fakePoster struct{ embeds []*discordgo.MessageEmbed }

func (p *fakePoster) SendEmbed(_ string, embed *discordgo.MessageEmbed) error {
	p.embeds = append(p.embeds, embed)
	return nil
}

func TestRequiredXP(t *testing.T) {
	cases := map[int]int{0: 500, 1: 500, 2: 1000, 3: 2000, 5: 8000}
	for level, want := range cases {
		if got := RequiredXP(500, level); got != want {
			t.Fatalf("level %d: expected %d, got %d", level, want, got)
		}
	}
}

func TestRequiredXPSaturates(t *testing.T) {
	prev := 0
	for level := 1; level <= 200; level++ {
		got := RequiredXP(500, level)
		if got < prev {
			t.Fatalf("level %d: required XP went down from %d to %d", level, prev, got)
		}
		prev = got
	}
	if got := RequiredXP(500, 64); got != math.MaxInt {
		t.Fatalf("expected saturation at level 64, got %d", got)
	}
	if got := RequiredXP(0, 10); got != 0 {
		t.Fatalf("zero base should stay zero, got %d", got)
	}
}

func testConfig() config.LevelingConfig {
	return config.LevelingConfig{Enabled: true, CooldownSeconds: 120, MinXP: 5, MaxXP: 15, BaseXP: 500}
}

func msg() pipeline.Message {
	return pipeline.Message{ID: "m1", GuildID: "g1", ChannelID: "c1", Author: embeds.UserRef{ID: "u1"}}
}

func TestGainWithinRange(t *testing.T) {
	store := &fakeStore{}
	m := New(store, &fakePoster{}, testConfig(), zap.NewNop())
	for i := 0; i < 200; i++ {
		if err := m.HandleMessage(context.Background(), msg()); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	for _, g := range store.gains {
		if g < 5 || g > 15 {
			t.Fatalf("gain %d out of range", g)
		}
	}
	if store.cooldown != 2*time.Minute || store.required != 500 {
		t.Fatalf("unexpected cooldown %v or curve %d", store.cooldown, store.required)
	}
}

func TestLevelUpAnnounced(t *testing.T) {
	poster := &fakePoster{}
	m := New(&fakeStore{levelUp: true}, poster, testConfig(), zap.NewNop())
	if err := m.HandleMessage(context.Background(), msg()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(poster.embeds) != 1 {
		t.Fatalf("expected one announcement")
	}
	e := poster.embeds[0]
	if e.Title != "🎉 Level Up!" || e.Description != "<@u1> reached level **2**!" || e.Fields[1].Value != "1000" {
		t.Fatalf("unexpected announcement %+v", e)
	}
}

func TestDisabled(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig()
	cfg.Enabled = false
	_ = New(store, &fakePoster{}, cfg, zap.NewNop()).HandleMessage(context.Background(), msg())
	if len(store.gains) != 0 {
		t.Fatalf("disabled leveling must not award xp")
	}
}
