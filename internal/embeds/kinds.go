package embeds

// ActionKind names a loggable event. The set is closed: ParseActionKind rejects
// anything not declared here.
type ActionKind string

const (
	KindMessageEdit       ActionKind = "message_edit"
	KindMessageDelete     ActionKind = "message_delete"
	KindPurge             ActionKind = "purge"
	KindMemberJoin        ActionKind = "member_join"
	KindMemberLeave       ActionKind = "member_leave"
	KindWarning           ActionKind = "warning"
	KindWarningAdded      ActionKind = "warning_added"
	KindWarningRemoved    ActionKind = "warning_removed"
	KindWarningAppeal     ActionKind = "warning_appeal"
	KindBan               ActionKind = "ban"
	KindKick              ActionKind = "kick"
	KindTimeout           ActionKind = "timeout"
	KindRoleChange        ActionKind = "role_change"
	KindChannelChange     ActionKind = "channel_change"
	KindAdminAction       ActionKind = "admin_action"
	KindAutomodAction     ActionKind = "automod_action"
	KindAutoEscalation    ActionKind = "auto_escalation"
	KindVoiceJoin         ActionKind = "voice_join"
	KindVoiceLeave        ActionKind = "voice_leave"
	KindVoiceMove         ActionKind = "voice_move"
	KindNicknameChange    ActionKind = "nickname_change"
	KindAvatarChange      ActionKind = "avatar_change"
	KindEmojiCreate       ActionKind = "emoji_create"
	KindEmojiDelete       ActionKind = "emoji_delete"
	KindEmojiUpdate       ActionKind = "emoji_update"
	KindStickerCreate     ActionKind = "sticker_create"
	KindStickerDelete     ActionKind = "sticker_delete"
	KindStickerUpdate     ActionKind = "sticker_update"
	KindThreadCreate      ActionKind = "thread_create"
	KindThreadDelete      ActionKind = "thread_delete"
	KindThreadUpdate      ActionKind = "thread_update"
	KindInviteCreate      ActionKind = "invite_create"
	KindInviteDelete      ActionKind = "invite_delete"
	KindWebhookCreate     ActionKind = "webhook_create"
	KindWebhookDelete     ActionKind = "webhook_delete"
	KindWebhookUpdate     ActionKind = "webhook_update"
	KindCommandUsage      ActionKind = "command_usage"
	KindButtonInteraction ActionKind = "button_interaction"
	KindModalInteraction  ActionKind = "modal_interaction"
)

var allKinds = []ActionKind{
	KindMessageEdit, KindMessageDelete, KindPurge, KindMemberJoin, KindMemberLeave,
	KindWarning, KindWarningAdded, KindWarningRemoved, KindWarningAppeal,
	KindBan, KindKick, KindTimeout, KindRoleChange, KindChannelChange,
	KindAdminAction, KindAutomodAction, KindAutoEscalation,
	KindVoiceJoin, KindVoiceLeave, KindVoiceMove, KindNicknameChange, KindAvatarChange,
	KindEmojiCreate, KindEmojiDelete, KindEmojiUpdate,
	KindStickerCreate, KindStickerDelete, KindStickerUpdate,
	KindThreadCreate, KindThreadDelete, KindThreadUpdate,
	KindInviteCreate, KindInviteDelete,
	KindWebhookCreate, KindWebhookDelete, KindWebhookUpdate,
	KindCommandUsage, KindButtonInteraction, KindModalInteraction,
}

var kindSet = func() map[ActionKind]struct{} {
	set := make(map[ActionKind]struct{}, len(allKinds))
	for _, k := range allKinds {
		set[k] = struct{}{}
	}
	return set
}()

func AllKinds() []ActionKind {
	return append([]ActionKind(nil), allKinds...)
}

func ParseActionKind(value string) (ActionKind, bool) {
	kind := ActionKind(value)
	_, ok := kindSet[kind]
	return kind, ok
}

func (k ActionKind) String() string { return string(k) }
