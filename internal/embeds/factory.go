// Package embeds renders audit-log records as Discord embeds. Every ActionKind
// has one layout; kinds without a dedicated layout fall through to a generic
// record carrying the payload as JSON.
package embeds

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	json "github.com/goccy/go-json"
)

var ErrPayloadMismatch = errors.New("payload does not match action kind")

const (
	ColorEdit      = 0xFFA500
	ColorDelete    = 0xFF0000
	ColorJoin      = 0x00FF00
	ColorLeave     = 0xFF4444
	ColorWarning   = 0xFFFF00
	ColorRemoved   = 0x00FF00
	ColorBan       = 0x8B0000
	ColorKick      = 0xFF8C00
	ColorTimeout   = 0xFFA500
	ColorPurge     = 0xFFA500
	ColorCommand   = 0x3498DB
	ColorGeneric   = 0x808080
	ColorError     = 0xFF0000
	ColorVoiceJoin = 0x00FF00
	ColorVoiceLeft = 0xFF4444
)

const (
	unknown          = "Unknown"
	noReason         = "No reason provided"
	noContent        = "*No content*"
	fieldValueLimit  = 1024
	editContentLimit = 800
	deleteLimit      = 1000
	reasonLimit      = 900
	genericJSONLimit = 1000
)

type Factory struct {
	now func() time.Time
}

func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

// Build renders kind with its payload. A payload of the wrong type for a
// dedicated layout returns ErrPayloadMismatch.
func (f *Factory) Build(kind ActionKind, payload any) (*discordgo.MessageEmbed, error) {
	var (
		embed *discordgo.MessageEmbed
		ok    bool
	)
	switch kind {
	case KindMessageEdit:
		var p MessageEdit
		if p, ok = asPayload[MessageEdit](payload); ok {
			embed = f.messageEdit(p)
		}
	case KindMessageDelete:
		var p MessageDelete
		if p, ok = asPayload[MessageDelete](payload); ok {
			embed = f.messageDelete(p)
		}
	case KindMemberJoin:
		var p Member
		if p, ok = asPayload[Member](payload); ok {
			embed = f.memberJoin(p)
		}
	case KindMemberLeave:
		var p Member
		if p, ok = asPayload[Member](payload); ok {
			embed = f.memberLeave(p)
		}
	case KindWarning, KindWarningAdded:
		var p Warning
		if p, ok = asPayload[Warning](payload); ok {
			embed = f.warning(p)
		}
	case KindWarningRemoved:
		var p WarningRemoved
		if p, ok = asPayload[WarningRemoved](payload); ok {
			embed = f.warningRemoved(p)
		}
	case KindBan:
		var p Sanction
		if p, ok = asPayload[Sanction](payload); ok {
			embed = f.sanction("🔨 Member Banned", "was banned", ColorBan, p)
		}
	case KindKick:
		var p Sanction
		if p, ok = asPayload[Sanction](payload); ok {
			embed = f.sanction("🦵 Member Kicked", "was kicked", ColorKick, p)
		}
	case KindTimeout:
		var p Timeout
		if p, ok = asPayload[Timeout](payload); ok {
			embed = f.timeout(p)
		}
	case KindPurge:
		var p Purge
		if p, ok = asPayload[Purge](payload); ok {
			embed = f.purge(p)
		}
	case KindVoiceJoin:
		var p Voice
		if p, ok = asPayload[Voice](payload); ok {
			embed = f.voice("🔊 Voice Channel Joined", "joined voice channel", ColorVoiceJoin, p)
		}
	case KindVoiceLeave:
		var p Voice
		if p, ok = asPayload[Voice](payload); ok {
			embed = f.voice("🔇 Voice Channel Left", "left voice channel", ColorVoiceLeft, p)
		}
	case KindCommandUsage:
		var p CommandUsage
		if p, ok = asPayload[CommandUsage](payload); ok {
			embed = f.commandUsage(p)
		}
	default:
		return f.generic(kind, payload)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w (got %T)", kind, ErrPayloadMismatch, payload)
	}
	return embed, nil
}

// ErrorEmbed is posted in place of a record whose builder failed.
func (f *Factory) ErrorEmbed(kind ActionKind, err error) *discordgo.MessageEmbed {
	msg := unknown
	if err != nil {
		msg = err.Error()
	}
	return &discordgo.MessageEmbed{
		Title:       "🚨 Logging Error",
		Description: "Failed to create log embed for action: `" + string(kind) + "`",
		Color:       ColorError,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Error", Value: codeBlock(cut(msg, reasonLimit))},
		},
		Timestamp: f.timestamp(),
	}
}

func asPayload[T any](payload any) (T, bool) {
	switch p := payload.(type) {
	case T:
		return p, true
	case *T:
		if p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}

func (f *Factory) messageEdit(p MessageEdit) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📝 Message Edited",
		Description: "**User:** " + userTag(p.Author) + "\n**Channel:** " + channelName(p.Channel),
		Color:       ColorEdit,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User ID", Value: "`" + userID(p.Author) + "`", Inline: true},
			{Name: "💬 Channel", Value: channelMention(p.Channel), Inline: true},
			{Name: "📝 Before", Value: contentBlock(p.Before, editContentLimit)},
			{Name: "✅ After", Value: contentBlock(p.After, editContentLimit)},
		},
		Thumbnail: thumbnail(p.Author),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) messageDelete(p MessageDelete) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🗑️ Message Deleted",
		Description: "**User:** " + userTag(p.Author) + "\n**Channel:** " + channelName(p.Channel),
		Color:       ColorDelete,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User ID", Value: "`" + userID(p.Author) + "`", Inline: true},
			{Name: "💬 Channel", Value: channelMention(p.Channel), Inline: true},
			{Name: "📝 Content", Value: contentBlock(p.Content, deleteLimit)},
		},
		Thumbnail: thumbnail(p.Author),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) memberJoin(p Member) *discordgo.MessageEmbed {
	age := "Unknown days"
	if !p.AccountCreated.IsZero() {
		days := int(math.Floor(f.now().Sub(p.AccountCreated).Hours() / 24))
		if days < 0 {
			days = 0
		}
		age = strconv.Itoa(days) + " days"
	}
	return &discordgo.MessageEmbed{
		Title:       "📥 Member Joined",
		Description: "**" + userTag(p.User) + "** joined the server",
		Color:       ColorJoin,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "📊 Member Count", Value: "**" + memberCount(p.MemberCount) + "**", Inline: true},
			{Name: "📅 Account Age", Value: age, Inline: true},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) memberLeave(p Member) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📤 Member Left",
		Description: "**" + userTag(p.User) + "** left the server",
		Color:       ColorLeave,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "📊 Member Count", Value: "**" + memberCount(p.MemberCount) + "**", Inline: true},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) warning(p Warning) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚠️ Warning Issued",
		Description: "Warning issued to **" + userTag(p.User) + "**",
		Color:       ColorWarning,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "👮 Moderator", Value: userTag(p.Moderator), Inline: true},
			{Name: "🆔 Warning ID", Value: "`" + orUnknown(p.WarningID) + "`", Inline: true},
			{Name: "📝 Reason", Value: reasonBlock(p.Reason)},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) warningRemoved(p WarningRemoved) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Warning Removed",
		Description: "Warning removed from **" + userTag(p.User) + "**",
		Color:       ColorRemoved,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "👮 Moderator", Value: userTag(p.Moderator), Inline: true},
			{Name: "🆔 Warning ID", Value: "`" + orUnknown(p.WarningID) + "`", Inline: true},
			{Name: "📝 Reason", Value: reasonBlock(p.RemovalReason)},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) sanction(title, verb string, color int, p Sanction) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: "**" + userTag(p.User) + "** " + verb,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "👮 Moderator", Value: userTag(p.Moderator), Inline: true},
			{Name: "📝 Reason", Value: reasonBlock(p.Reason)},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) timeout(p Timeout) *discordgo.MessageEmbed {
	moderator := "Auto-Moderation"
	if p.Moderator != nil && p.Moderator.Tag != "" {
		moderator = p.Moderator.Tag
	}
	return &discordgo.MessageEmbed{
		Title:       "🔇 Member Timed Out",
		Description: "**" + userTag(p.User) + "** was timed out",
		Color:       ColorTimeout,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User) + "\n`" + userID(p.User) + "`", Inline: true},
			{Name: "👮 Moderator", Value: moderator, Inline: true},
			{Name: "⏱️ Duration", Value: orUnknown(p.Duration), Inline: true},
			{Name: "📝 Reason", Value: reasonBlock(p.Reason)},
		},
		Thumbnail: thumbnail(p.User),
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) purge(p Purge) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🗑️ Messages Purged",
		Description: "Messages purged by **" + userTag(p.Moderator) + "**",
		Color:       ColorPurge,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👮 Moderator", Value: userTag(p.Moderator), Inline: true},
			{Name: "💬 Channel", Value: channelMention(p.Channel), Inline: true},
			{Name: "📊 Messages Deleted", Value: strconv.Itoa(p.MessageCount), Inline: true},
		},
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) voice(title, verb string, color int, p Voice) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: "**" + userTag(p.User) + "** " + verb,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User), Inline: true},
			{Name: "🎤 Channel", Value: channelName(p.Channel), Inline: true},
		},
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) commandUsage(p CommandUsage) *discordgo.MessageEmbed {
	channel := unknown
	if p.ChannelID != "" {
		channel = "<#" + p.ChannelID + ">"
	}
	return &discordgo.MessageEmbed{
		Title:       "📝 Command Used",
		Description: "Command: `" + orUnknown(p.CommandName) + "`",
		Color:       ColorCommand,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👤 User", Value: userTag(p.User), Inline: true},
			{Name: "📍 Channel", Value: channel, Inline: true},
		},
		Timestamp: f.timestamp(),
	}
}

func (f *Factory) generic(kind ActionKind, payload any) (*discordgo.MessageEmbed, error) {
	details := "{}"
	if payload != nil {
		raw, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("%s: encode details: %w", kind, err)
		}
		details = string(raw)
	}
	return &discordgo.MessageEmbed{
		Title:       "📋 " + strings.ToUpper(strings.ReplaceAll(string(kind), "_", " ")),
		Description: "Action performed",
		Color:       ColorGeneric,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Event Details", Value: "```json\n" + cut(details, genericJSONLimit) + "```"},
		},
		Timestamp: f.timestamp(),
	}, nil
}

func (f *Factory) timestamp() string {
	return f.now().UTC().Format(time.RFC3339)
}

func userTag(u *UserRef) string {
	if u == nil || u.Tag == "" {
		return unknown
	}
	return u.Tag
}

func userID(u *UserRef) string {
	if u == nil || u.ID == "" {
		return unknown
	}
	return u.ID
}

func thumbnail(u *UserRef) *discordgo.MessageEmbedThumbnail {
	if u == nil || u.AvatarURL == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL}
}

func channelName(c *ChannelRef) string {
	switch {
	case c == nil:
		return unknown
	case c.Name != "":
		return c.Name
	case c.ID != "":
		return c.ID
	}
	return unknown
}

func channelMention(c *ChannelRef) string {
	if c == nil || c.ID == "" {
		return channelName(c)
	}
	return "<#" + c.ID + ">"
}

func memberCount(n int) string {
	if n <= 0 {
		return unknown
	}
	return strconv.Itoa(n)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

func contentBlock(content string, limit int) string {
	if content == "" {
		return noContent
	}
	return cut(codeBlock(cut(content, limit)), fieldValueLimit)
}

func reasonBlock(reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = noReason
	}
	return codeBlock(cut(reason, reasonLimit))
}

func codeBlock(s string) string {
	return "```" + s + "```"
}

// cut keeps at most n runes of s.
func cut(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
