// Package leveling awards message XP with a per-member cooldown and announces
// level-ups in the channel.
package leveling

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/config"
	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/storage"
)

const levelUpColor = 0xFFD700

type Store interface {
	AwardXP(ctx context.Context, guildID, userID string, gain int, cooldown time.Duration, required func(level int) int) (storage.XPAward, error)
}

type Poster interface {
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

type Module struct {
	store  Store
	poster Poster
	cfg    config.LevelingConfig
	roll   func(n int) int
	logger *zap.Logger
}

func New(store Store, poster Poster, cfg config.LevelingConfig, logger *zap.Logger) *Module {
	return &Module{store: store, poster: poster, cfg: cfg, roll: rand.Intn, logger: logger}
}

// RequiredXP is the XP needed to leave level: base doubled per level above one,
// saturating at math.MaxInt.
func RequiredXP(base, level int) int {
	if base <= 0 {
		return 0
	}
	if level < 1 {
		level = 1
	}
	xp := base
	for i := 1; i < level; i++ {
		if xp > math.MaxInt/2 {
			return math.MaxInt
		}
		xp *= 2
	}
	return xp
}

func (m *Module) Name() string { return "leveling" }

func (m *Module) HandleMessage(ctx context.Context, msg pipeline.Message) error {
	if !m.cfg.Enabled {
		return nil
	}
	award, err := m.store.AwardXP(ctx, msg.GuildID, msg.Author.ID, m.gain(),
		time.Duration(m.cfg.CooldownSeconds)*time.Second,
		func(level int) int { return RequiredXP(m.cfg.BaseXP, level) })
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if !award.LeveledUp {
		return nil
	}

	m.logger.Info("level up", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Int("level", award.Level))
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Level Up!",
		Description: fmt.Sprintf("<@%s> reached level **%d**!", msg.Author.ID, award.Level),
		Color:       levelUpColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "New Level", Value: strconv.Itoa(award.Level), Inline: true},
			{Name: "XP for Next Level", Value: strconv.Itoa(RequiredXP(m.cfg.BaseXP, award.Level)), Inline: true},
		},
	}
	if err := m.poster.SendEmbed(msg.ChannelID, embed); err != nil {
		return fmt.Errorf("announce level up: %w", err)
	}
	return nil
}

func (m *Module) gain() int {
	lo, hi := m.cfg.MinXP, m.cfg.MaxXP
	if hi < lo {
		hi = lo
	}
	return lo + m.roll(hi-lo+1)
}
