package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/analyzer"
)

const (
	stateMessageCache = 500
	banAuditLookback  = 5

	moderatorPermissions  = discordgo.PermissionAdministrator | discordgo.PermissionManageMessages | discordgo.PermissionManageServer
	logChannelPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks
)

// Gateway adapts the discordgo session to the narrow platform interfaces the
// moderation, logging and feature packages depend on.
type Gateway struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func NewGateway(token string, logger *zap.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates
	// Before-content for edits and deletes comes from the state cache.
	session.State.MaxMessageCount = stateMessageCache
	return &Gateway{session: session, logger: logger}, nil
}

func (g *Gateway) Session() *discordgo.Session { return g.session }

func (g *Gateway) BotUserID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

func (g *Gateway) DeleteMessage(channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID)
}

// SendNotice posts content allowing only mentionUserID to be pinged.
func (g *Gateway) SendNotice(channelID, content, mentionUserID string) (string, error) {
	msg, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{mentionUserID},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *Gateway) TimeoutMember(guildID, userID string, until time.Time, reason string) error {
	if err := g.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		return err
	}
	g.logger.Info("member timed out", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Time("until", until), zap.String("reason", reason))
	return nil
}

func (g *Gateway) SendMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

func (g *Gateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (g *Gateway) AddReaction(channelID, messageID, emoji string) error {
	return g.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (g *Gateway) GuildOwnerID(guildID string) (string, error) {
	guild, err := g.guild(guildID)
	if err != nil {
		return "", err
	}
	return guild.OwnerID, nil
}

func (g *Gateway) IsAdministrator(guildID, userID string) bool {
	guild, err := g.guild(guildID)
	if err != nil {
		return false
	}
	return memberPermissions(guild, g.member(guildID, userID))&discordgo.PermissionAdministrator != 0
}

// IsModerator holds for Administrator, Manage Messages or Manage Server.
func (g *Gateway) IsModerator(guildID, userID string) bool {
	guild, err := g.guild(guildID)
	if err != nil {
		return false
	}
	return memberPermissions(guild, g.member(guildID, userID))&moderatorPermissions != 0
}

// Moderatable reports whether the bot can time the user out: the owner and
// administrators are immune and the bot's top role must sit above theirs.
func (g *Gateway) Moderatable(guildID, userID string) bool {
	guild, err := g.guild(guildID)
	if err != nil || userID == guild.OwnerID {
		return false
	}
	target := g.member(guildID, userID)
	self := g.member(guildID, g.BotUserID())
	if target == nil || self == nil {
		return false
	}
	if memberPermissions(guild, target)&discordgo.PermissionAdministrator != 0 {
		return false
	}
	if memberPermissions(guild, self)&(discordgo.PermissionModerateMembers|discordgo.PermissionAdministrator) == 0 {
		return false
	}
	return topRolePosition(guild, self) > topRolePosition(guild, target)
}

func (g *Gateway) ChannelInGuild(guildID, channelID string) bool {
	ch := g.channel(channelID)
	return ch != nil && ch.GuildID == guildID
}

func (g *Gateway) ChannelName(channelID string) string {
	if ch := g.channel(channelID); ch != nil {
		return ch.Name
	}
	return ""
}

// BanModerator looks up who banned userID in the guild audit log. A nil user
// means the entry was not found or the bot cannot read the audit log.
func (g *Gateway) BanModerator(guildID, userID string) (*discordgo.User, string) {
	entries, err := g.session.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionMemberBanAdd), banAuditLookback)
	if err != nil {
		g.logger.Debug("ban audit lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil, ""
	}
	return banEntry(entries, userID)
}

// banEntry returns the moderator and reason of the newest ban of targetID.
func banEntry(log *discordgo.GuildAuditLog, targetID string) (*discordgo.User, string) {
	if log == nil {
		return nil, ""
	}
	for _, entry := range log.AuditLogEntries {
		if entry == nil || entry.TargetID != targetID {
			continue
		}
		if entry.ActionType != nil && *entry.ActionType != discordgo.AuditLogActionMemberBanAdd {
			continue
		}
		for _, u := range log.Users {
			if u != nil && u.ID == entry.UserID {
				return u, entry.Reason
			}
		}
		return &discordgo.User{ID: entry.UserID}, entry.Reason
	}
	return nil, ""
}

func (g *Gateway) CanSendEmbeds(_, channelID string) bool {
	botID := g.BotUserID()
	if botID == "" {
		return false
	}
	perms, err := g.session.State.UserChannelPermissions(botID, channelID)
	if err != nil {
		perms, err = g.session.UserChannelPermissions(botID, channelID)
		if err != nil {
			return false
		}
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&logChannelPermissions == logChannelPermissions
}

// IsAdultInvite resolves code and classifies its target guild by its NSFW
// level or a prohibited term in its name.
func (g *Gateway) IsAdultInvite(_ context.Context, code string) (bool, error) {
	invite, err := g.session.Invite(code)
	if err != nil {
		return false, fmt.Errorf("resolve invite %s: %w", code, err)
	}
	if invite == nil || invite.Guild == nil {
		return false, nil
	}
	return adultGuild(invite.Guild), nil
}

func adultGuild(guild *discordgo.Guild) bool {
	switch guild.NSFWLevel {
	case discordgo.GuildNSFWLevelExplicit, discordgo.GuildNSFWLevelAgeRestricted:
		return true
	}
	for _, text := range []string{guild.Name, guild.VanityURLCode} {
		if strings.TrimSpace(text) != "" && (analyzer.MatchesKeyword(text) || analyzer.MatchesPartial(text)) {
			return true
		}
	}
	return false
}

func (g *Gateway) guild(guildID string) (*discordgo.Guild, error) {
	guild, err := g.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild, nil
	}
	guild, err = g.session.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w", guildID, err)
	}
	return guild, nil
}

func (g *Gateway) member(guildID, userID string) *discordgo.Member {
	if userID == "" {
		return nil
	}
	member, err := g.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = g.session.GuildMember(guildID, userID)
	return member
}

func (g *Gateway) channel(channelID string) *discordgo.Channel {
	ch, err := g.session.State.Channel(channelID)
	if err == nil && ch != nil {
		return ch
	}
	ch, err = g.session.Channel(channelID)
	if err != nil {
		return nil
	}
	return ch
}

func (g *Gateway) memberCount(guildID string) int {
	guild, err := g.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return 0
	}
	return guild.MemberCount
}

// memberPermissions folds @everyone and the member's roles. The owner holds
// every permission.
func memberPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	perms := int64(0)
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}

func topRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	top := 0
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Position > top {
				top = role.Position
			}
		}
	}
	return top
}
