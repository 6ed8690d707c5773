package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/embeds"
	"guardian-automod/internal/pipeline"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	ids := make([]string, 0, len(event.Guilds))
	for _, g := range event.Guilds {
		if g != nil {
			ids = append(ids, g.ID)
		}
	}
	res := b.svc.Logging.InitializeGuilds(context.Background(), ids)
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(ids)),
		zap.Int("logging_initialized", res.Initialized),
		zap.Int("logging_failed", res.Failed),
	)
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.GuildID == "" {
		return
	}
	b.svc.Pipeline.Handle(context.Background(), b.pipelineMessage(msg.Message))
}

func (b *Bot) pipelineMessage(m *discordgo.Message) pipeline.Message {
	author := userRef(m.Author)
	out := pipeline.Message{
		ID:              m.ID,
		GuildID:         m.GuildID,
		ChannelID:       m.ChannelID,
		ChannelName:     b.gateway.ChannelName(m.ChannelID),
		Content:         m.Content,
		Author:          *author,
		AuthorCreatedAt: accountCreated(m.Author.ID),
	}
	if m.Author.Bot {
		return out
	}
	out.IsAdmin = b.gateway.IsModerator(m.GuildID, m.Author.ID)
	out.Moderatable = b.gateway.Moderatable(m.GuildID, m.Author.ID)
	return out
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, event *discordgo.MessageUpdate) {
	if event.GuildID == "" || event.BeforeUpdate == nil {
		return
	}
	before := event.BeforeUpdate
	author := event.Author
	if author == nil {
		author = before.Author
	}
	if author == nil || before.Content == event.Content {
		return
	}
	b.svc.Logging.LogAction(context.Background(), event.GuildID, embeds.KindMessageEdit, embeds.MessageEdit{
		Author:  userRef(author),
		Channel: b.channelRef(event.ChannelID),
		Before:  before.Content,
		After:   event.Content,
	}, actorOf(author))
}

func (b *Bot) onMessageDelete(_ *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" || event.BeforeDelete == nil || event.BeforeDelete.Author == nil {
		return
	}
	before := event.BeforeDelete
	b.svc.Logging.LogAction(context.Background(), event.GuildID, embeds.KindMessageDelete, embeds.MessageDelete{
		Author:  userRef(before.Author),
		Channel: b.channelRef(event.ChannelID),
		Content: before.Content,
	}, actorOf(before.Author))
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, event *discordgo.GuildMemberAdd) {
	member, ok := guildMember(event.Member)
	if !ok {
		return
	}
	ctx := context.Background()
	b.svc.Logging.LogAction(ctx, member.GuildID, embeds.KindMemberJoin, memberPayload(member, b.gateway.memberCount(member.GuildID)), actorOf(member.User))
	if b.svc.AntiRaid != nil {
		b.svc.AntiRaid.HandleJoin(ctx, member.GuildID, *userRef(member.User))
	}
}

func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, event *discordgo.GuildMemberRemove) {
	member, ok := guildMember(event.Member)
	if !ok {
		return
	}
	b.svc.Logging.LogAction(context.Background(), member.GuildID, embeds.KindMemberLeave, memberPayload(member, b.gateway.memberCount(member.GuildID)), actorOf(member.User))
}

// guildMember checks the embedded member before any promoted field is read.
func guildMember(m *discordgo.Member) (*discordgo.Member, bool) {
	if m == nil || m.GuildID == "" || m.User == nil {
		return nil, false
	}
	return m, true
}

func memberPayload(m *discordgo.Member, count int) embeds.Member {
	return embeds.Member{
		User:           userRef(m.User),
		MemberCount:    count,
		AccountCreated: accountCreated(m.User.ID),
		JoinedAt:       m.JoinedAt,
	}
}

// onGuildBanAdd credits the ban to the moderator found in the audit log. When
// none is found the record has no actor, so actor-based filters do not apply.
func (b *Bot) onGuildBanAdd(_ *discordgo.Session, event *discordgo.GuildBanAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	moderator, reason := b.gateway.BanModerator(event.GuildID, event.User.ID)
	b.svc.Logging.LogAction(context.Background(), event.GuildID, embeds.KindBan, embeds.Sanction{
		User:      userRef(event.User),
		Moderator: userRef(moderator),
		Reason:    reason,
	}, actorOf(moderator))
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.GuildID == "" {
		return
	}
	before := ""
	if event.BeforeUpdate != nil {
		before = event.BeforeUpdate.ChannelID
	}
	kind, channelID, ok := voiceTransition(before, event.ChannelID)
	if !ok {
		return
	}

	var user *discordgo.User
	if event.Member != nil {
		user = event.Member.User
	}
	if user == nil {
		user, _ = session.User(event.UserID)
	}
	if user == nil {
		return
	}
	ctx := context.Background()
	if kind == embeds.KindVoiceMove {
		b.svc.Logging.LogAction(ctx, event.GuildID, kind, embeds.Generic{
			"user":         user.ID,
			"from_channel": before,
			"to_channel":   event.ChannelID,
		}, actorOf(user))
		return
	}
	b.svc.Logging.LogAction(ctx, event.GuildID, kind, embeds.Voice{
		User:    userRef(user),
		Channel: b.channelRef(channelID),
	}, actorOf(user))
}

// voiceTransition classifies a voice state change. Mute and deafen updates
// keep the channel and are not logged.
func voiceTransition(before, after string) (embeds.ActionKind, string, bool) {
	switch {
	case before == after:
		return "", "", false
	case before == "":
		return embeds.KindVoiceJoin, after, true
	case after == "":
		return embeds.KindVoiceLeave, before, true
	default:
		return embeds.KindVoiceMove, after, true
	}
}

func (b *Bot) channelRef(channelID string) *embeds.ChannelRef {
	return &embeds.ChannelRef{ID: channelID, Name: b.gateway.ChannelName(channelID)}
}
