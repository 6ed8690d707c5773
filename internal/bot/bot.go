// Package bot binds the gateway events and slash commands to the moderation
// pipeline and the logging manager.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/analytics"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/logging"
	"guardian-automod/internal/modules/antiraid"
	"guardian-automod/internal/modules/audit"
	"guardian-automod/internal/modules/linkscan"
	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/storage"
	"guardian-automod/internal/violation"
)

// ReadySetter is flipped once the gateway session is open.
type ReadySetter interface {
	SetReady(ready bool)
}

// WarningLister reads a member's warning history.
type WarningLister interface {
	ListWarnings(ctx context.Context, guildID, userID string) ([]storage.Warning, error)
}

type Services struct {
	Pipeline  *pipeline.Pipeline
	Logging   *logging.Manager
	AntiRaid  *antiraid.Module
	Audit     *audit.Logger
	Analytics *analytics.Service
	Policies  *policy.Store
	Enforcer  *violation.Handler
	Warnings  WarningLister
	Links     *linkscan.Scanner
	Health    ReadySetter
}

type Bot struct {
	gateway *Gateway
	session *discordgo.Session
	svc     Services
	logger  *zap.Logger
}

func New(gateway *Gateway, svc Services, logger *zap.Logger) *Bot {
	return &Bot{
		gateway: gateway,
		session: gateway.Session(),
		svc:     svc,
		logger:  logger,
	}
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onGuildBanAdd)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	if b.svc.Health != nil {
		b.svc.Health.SetReady(true)
	}
	return nil
}

// Close marks the bot unready and closes the gateway session, giving up when
// ctx ends first.
func (b *Bot) Close(ctx context.Context) error {
	if b.svc.Health != nil {
		b.svc.Health.SetReady(false)
	}
	if b.session == nil {
		return nil
	}
	return closeWithin(ctx, b.session.Close)
}

func closeWithin(ctx context.Context, closeFn func() error) error {
	done := make(chan error, 1)
	go func() { done <- closeFn() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close gateway: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close gateway: %w", ctx.Err())
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func userRef(u *discordgo.User) *embeds.UserRef {
	if u == nil {
		return nil
	}
	return &embeds.UserRef{
		ID:        u.ID,
		Tag:       userTag(u),
		AvatarURL: u.AvatarURL(""),
		Bot:       u.Bot,
	}
}

func userTag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func actorOf(u *discordgo.User) *logging.Actor {
	if u == nil {
		return nil
	}
	return &logging.Actor{ID: u.ID, Bot: u.Bot}
}

// accountCreated derives the account creation time from the snowflake id.
func accountCreated(userID string) time.Time {
	created, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return time.Time{}
	}
	return created
}
