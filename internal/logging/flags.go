package logging

import "guardian-automod/internal/embeds"

// Flag is one switch of a guild's logging matrix.
type Flag string

const (
	FlagEnabled               Flag = "enabled"
	FlagLogBotMessages        Flag = "log_bot_messages"
	FlagLogMessageEdits       Flag = "log_message_edits"
	FlagLogMessageDeletes     Flag = "log_message_deletes"
	FlagLogMemberJoins        Flag = "log_member_joins"
	FlagLogMemberLeaves       Flag = "log_member_leaves"
	FlagLogWarnings           Flag = "log_warnings"
	FlagLogBans               Flag = "log_bans"
	FlagLogKicks              Flag = "log_kicks"
	FlagLogTimeouts           Flag = "log_timeouts"
	FlagLogRoleChanges        Flag = "log_role_changes"
	FlagLogChannelChanges     Flag = "log_channel_changes"
	FlagLogAdminActions       Flag = "log_admin_actions"
	FlagIgnoreAdminActions    Flag = "ignore_admin_actions"
	FlagIgnoreOwnerActions    Flag = "ignore_owner_actions"
	FlagLogAutomodActions     Flag = "log_automod_actions"
	FlagLogVoiceEvents        Flag = "log_voice_events"
	FlagLogNicknameChanges    Flag = "log_nickname_changes"
	FlagLogAvatarChanges      Flag = "log_avatar_changes"
	FlagLogEmojiChanges       Flag = "log_emoji_changes"
	FlagLogStickerChanges     Flag = "log_sticker_changes"
	FlagLogThreadEvents       Flag = "log_thread_events"
	FlagLogInviteEvents       Flag = "log_invite_events"
	FlagLogWebhookEvents      Flag = "log_webhook_events"
	FlagLogCommandUsage       Flag = "log_command_usage"
	FlagLogButtonInteractions Flag = "log_button_interactions"
	FlagLogModalInteractions  Flag = "log_modal_interactions"
)

var allFlags = []Flag{
	FlagEnabled, FlagLogBotMessages, FlagLogMessageEdits, FlagLogMessageDeletes,
	FlagLogMemberJoins, FlagLogMemberLeaves, FlagLogWarnings, FlagLogBans, FlagLogKicks,
	FlagLogTimeouts, FlagLogRoleChanges, FlagLogChannelChanges, FlagLogAdminActions,
	FlagIgnoreAdminActions, FlagIgnoreOwnerActions, FlagLogAutomodActions, FlagLogVoiceEvents,
	FlagLogNicknameChanges, FlagLogAvatarChanges, FlagLogEmojiChanges, FlagLogStickerChanges,
	FlagLogThreadEvents, FlagLogInviteEvents, FlagLogWebhookEvents, FlagLogCommandUsage,
	FlagLogButtonInteractions, FlagLogModalInteractions,
}

// Config maps every flag to its value. Flags missing from a stored document
// read as false.
type Config map[Flag]bool

func AllFlags() []Flag {
	return append([]Flag(nil), allFlags...)
}

func ParseFlag(value string) (Flag, bool) {
	for _, f := range allFlags {
		if string(f) == value {
			return f, true
		}
	}
	return "", false
}

// DefaultConfig is the only place the full flag set and its defaults live.
func DefaultConfig() Config {
	cfg := make(Config, len(allFlags))
	for _, f := range allFlags {
		cfg[f] = true
	}
	cfg[FlagLogBotMessages] = false
	cfg[FlagIgnoreAdminActions] = false
	cfg[FlagIgnoreOwnerActions] = false
	cfg[FlagLogButtonInteractions] = false
	cfg[FlagLogModalInteractions] = false
	return cfg
}

func (c Config) Enabled(f Flag) bool { return c[f] }

func (c Config) clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// FlagFor maps an action kind to the flag that gates it. Kinds without a flag
// are always logged while logging is enabled.
func FlagFor(kind embeds.ActionKind) (Flag, bool) {
	switch kind {
	case embeds.KindMessageEdit:
		return FlagLogMessageEdits, true
	case embeds.KindMessageDelete, embeds.KindPurge:
		return FlagLogMessageDeletes, true
	case embeds.KindMemberJoin:
		return FlagLogMemberJoins, true
	case embeds.KindMemberLeave:
		return FlagLogMemberLeaves, true
	case embeds.KindWarning, embeds.KindWarningAdded, embeds.KindWarningRemoved, embeds.KindWarningAppeal:
		return FlagLogWarnings, true
	case embeds.KindBan:
		return FlagLogBans, true
	case embeds.KindKick:
		return FlagLogKicks, true
	case embeds.KindTimeout:
		return FlagLogTimeouts, true
	case embeds.KindRoleChange:
		return FlagLogRoleChanges, true
	case embeds.KindChannelChange:
		return FlagLogChannelChanges, true
	case embeds.KindAdminAction:
		return FlagLogAdminActions, true
	case embeds.KindAutomodAction:
		return FlagLogAutomodActions, true
	case embeds.KindVoiceJoin, embeds.KindVoiceLeave, embeds.KindVoiceMove:
		return FlagLogVoiceEvents, true
	case embeds.KindNicknameChange:
		return FlagLogNicknameChanges, true
	case embeds.KindAvatarChange:
		return FlagLogAvatarChanges, true
	case embeds.KindEmojiCreate, embeds.KindEmojiDelete, embeds.KindEmojiUpdate:
		return FlagLogEmojiChanges, true
	case embeds.KindStickerCreate, embeds.KindStickerDelete, embeds.KindStickerUpdate:
		return FlagLogStickerChanges, true
	case embeds.KindThreadCreate, embeds.KindThreadDelete, embeds.KindThreadUpdate:
		return FlagLogThreadEvents, true
	case embeds.KindInviteCreate, embeds.KindInviteDelete:
		return FlagLogInviteEvents, true
	case embeds.KindWebhookCreate, embeds.KindWebhookDelete, embeds.KindWebhookUpdate:
		return FlagLogWebhookEvents, true
	case embeds.KindCommandUsage:
		return FlagLogCommandUsage, true
	case embeds.KindButtonInteraction:
		return FlagLogButtonInteractions, true
	case embeds.KindModalInteraction:
		return FlagLogModalInteractions, true
	case embeds.KindAutoEscalation:
		return "", false
	}
	return "", false
}
