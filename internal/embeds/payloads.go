package embeds

import "time"

// Payloads carry optional fields: a nil ref or an empty string renders as a
// placeholder instead of failing the record.

type UserRef struct {
	ID        string `json:"id"`
	Tag       string `json:"tag"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
}

type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type MessageEdit struct {
	Author  *UserRef    `json:"author,omitempty"`
	Channel *ChannelRef `json:"channel,omitempty"`
	Before  string      `json:"before"`
	After   string      `json:"after"`
}

type MessageDelete struct {
	Author  *UserRef    `json:"author,omitempty"`
	Channel *ChannelRef `json:"channel,omitempty"`
	Content string      `json:"content"`
}

// Member is the payload of member_join and member_leave. A zero MemberCount
// or AccountCreated is unknown.
type Member struct {
	User           *UserRef  `json:"user,omitempty"`
	MemberCount    int       `json:"member_count,omitempty"`
	AccountCreated time.Time `json:"account_created,omitempty"`
	JoinedAt       time.Time `json:"joined_at,omitempty"`
}

type Warning struct {
	User      *UserRef `json:"user,omitempty"`
	Moderator *UserRef `json:"moderator,omitempty"`
	WarningID string   `json:"warning_id"`
	Reason    string   `json:"reason"`
	Severity  string   `json:"severity,omitempty"`
}

type WarningRemoved struct {
	User          *UserRef `json:"user,omitempty"`
	Moderator     *UserRef `json:"moderator,omitempty"`
	WarningID     string   `json:"warning_id"`
	RemovalReason string   `json:"removal_reason"`
}

// Sanction is the payload of ban and kick.
type Sanction struct {
	User      *UserRef `json:"user,omitempty"`
	Moderator *UserRef `json:"moderator,omitempty"`
	Reason    string   `json:"reason"`
}

type Timeout struct {
	User      *UserRef `json:"user,omitempty"`
	Moderator *UserRef `json:"moderator,omitempty"`
	Duration  string   `json:"duration"`
	Reason    string   `json:"reason"`
}

type Purge struct {
	Moderator    *UserRef    `json:"moderator,omitempty"`
	Channel      *ChannelRef `json:"channel,omitempty"`
	MessageCount int         `json:"message_count"`
}

type Voice struct {
	User    *UserRef    `json:"user,omitempty"`
	Channel *ChannelRef `json:"channel,omitempty"`
}

type CommandUsage struct {
	User        *UserRef `json:"user,omitempty"`
	CommandName string   `json:"command_name"`
	ChannelID   string   `json:"channel_id"`
}

type Escalation struct {
	User         *UserRef `json:"user,omitempty"`
	Action       string   `json:"action"`
	Duration     string   `json:"duration"`
	Reason       string   `json:"reason"`
	WarningCount int      `json:"warning_count"`
	Description  string   `json:"description,omitempty"`
}

// Automod describes an enforcement taken by the moderation pipeline.
type Automod struct {
	User        *UserRef    `json:"user,omitempty"`
	Channel     *ChannelRef `json:"channel,omitempty"`
	Violation   string      `json:"violation"`
	Action      string      `json:"action"`
	Detail      string      `json:"detail,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Generic carries free-form details for kinds without a dedicated layout.
type Generic map[string]any
