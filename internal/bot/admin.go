package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/embeds"
	"guardian-automod/internal/modules/linkscan"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/storage"
	"guardian-automod/internal/utils"
)

const maxListedTerms = 40

var severityChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Minor", Value: string(policy.SeverityMinor)},
	{Name: "Moderate", Value: string(policy.SeverityModerate)},
	{Name: "Severe", Value: string(policy.SeveritySevere)},
}

func adminCommandDefinitions() []*discordgo.ApplicationCommand {
	str := func(name, desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: desc, Required: required}
	}
	severity := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "severity",
		Description: "Severity tier (default minor)",
		Choices:     severityChoices,
	}
	sub := func(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: desc, Options: opts}
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "warnings",
			Description:              "Review and withdraw member warnings",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				sub("list", "List a member's warnings", &discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to look up", Required: true,
				}),
				sub("remove", "Withdraw a warning", str("id", "Warning id", true), str("reason", "Why it is withdrawn", false)),
			},
		},
		{
			Name:                     "blockedwords",
			Description:              "Manage the blocked word list",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				sub("add", "Block a word", str("word", "Word to block", true), severity),
				sub("remove", "Unblock a word", str("word", "Word to unblock", true)),
				sub("list", "Show blocked words"),
			},
		},
		{
			Name:                     "blockeddomains",
			Description:              "Manage the blocked domain list",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				sub("add", "Block a domain", str("domain", "Domain to block", true), severity),
				sub("remove", "Unblock a domain", str("domain", "Domain to unblock", true)),
				sub("list", "Show blocked domains"),
				sub("check", "Check how a link would be treated", str("url", "Link to check", true)),
			},
		},
		{
			Name:                     "customcommand",
			Description:              "Manage custom prefix commands",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				sub("set", "Create or replace a command",
					str("name", "Command name", true),
					str("response", "Reply text; {user} mentions the caller", true),
					str("prefix", "Prefix (default !)", false)),
				sub("disable", "Disable a command", str("name", "Command name", true)),
			},
		},
		{
			Name:                     "autoreact",
			Description:              "Manage automatic reactions",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				sub("add", "React to messages containing a trigger", str("trigger", "Trigger text", true), str("emoji", "Emoji to add", true)),
				sub("clear", "Remove every automatic reaction"),
			},
		},
	}
}

func (b *Bot) handleWarningsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	switch sub {
	case "list":
		opt := findOption(options, "user")
		if opt == nil {
			b.respond(session, interaction, "❌ Pick a member.", true)
			return
		}
		userID := opt.UserValue(nil).ID
		list, err := b.svc.Warnings.ListWarnings(ctx, guildID, userID)
		if err != nil {
			b.logger.Warn("list warnings failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
			b.respond(session, interaction, "❌ Could not load warnings.", true)
			return
		}
		b.respondEmbed(session, interaction, warningsEmbed(userID, list, time.Now()), true)
	case "remove":
		id := strings.TrimSpace(stringOption(options, "id"))
		reason := stringOption(options, "reason")
		if reason == "" {
			reason = "No reason provided"
		}
		moderator := userRef(interaction.Member.User)
		w, err := b.svc.Enforcer.RemoveWarning(ctx, guildID, id, *moderator, reason)
		if err != nil {
			b.logger.Warn("remove warning failed", zap.String("guild_id", guildID), zap.String("warning_id", id), zap.Error(err))
			b.respond(session, interaction, "❌ Could not remove warning `"+id+"`.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("✅ Warning `%s` for <@%s> removed.", w.ID, w.UserID), true)
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
	}
}

func (b *Bot) handleBlockedWordsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	cfg := b.svc.Policies.BlockedWords(guildID)
	word := strings.ToLower(strings.TrimSpace(stringOption(options, "word")))
	var reply string
	switch sub {
	case "add":
		sev, ok := severityOption(options)
		if !ok || word == "" {
			b.respond(session, interaction, "❌ Give a word and a valid severity.", true)
			return
		}
		cfg = cfg.WithWord(word, sev)
		reply = fmt.Sprintf("✅ `%s` blocked (%s).", word, sev)
	case "remove":
		if !policy.Listed(cfg.BlockedWords, word) {
			b.respond(session, interaction, "❌ `"+word+"` is not blocked.", true)
			return
		}
		cfg = cfg.WithoutWord(word)
		reply = "✅ `" + word + "` unblocked."
	case "list":
		b.respondEmbed(session, interaction, termListEmbed("🚫 Blocked Words", cfg.BlockedWords, cfg.Severity), true)
		return
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
		return
	}
	if err := b.svc.Policies.UpdateBlockedWords(ctx, guildID, cfg); err != nil {
		b.logger.Warn("update blocked words failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respond(session, interaction, "❌ Failed to save blocked words.", true)
		return
	}
	b.respond(session, interaction, reply, true)
}

func (b *Bot) handleBlockedDomainsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	cfg := b.svc.Policies.BlockedDomains(guildID)
	domain := utils.DomainOf(stringOption(options, "domain"))
	var reply string
	switch sub {
	case "add":
		sev, ok := severityOption(options)
		if !ok || domain == "" {
			b.respond(session, interaction, "❌ Give a domain and a valid severity.", true)
			return
		}
		cfg = cfg.WithDomain(domain, sev)
		reply = fmt.Sprintf("✅ `%s` blocked (%s).", domain, sev)
	case "remove":
		if !policy.Listed(cfg.BlockedDomains, domain) {
			b.respond(session, interaction, "❌ `"+domain+"` is not blocked.", true)
			return
		}
		cfg = cfg.WithoutDomain(domain)
		reply = "✅ `" + domain + "` unblocked."
	case "list":
		b.respondEmbed(session, interaction, termListEmbed("🌐 Blocked Domains", cfg.BlockedDomains, cfg.Severity), true)
		return
	case "check":
		raw := stringOption(options, "url")
		b.respondEmbed(session, interaction, linkCheckEmbed(raw, cfg, b.svc.Links), true)
		return
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
		return
	}
	if err := b.svc.Policies.UpdateBlockedDomains(ctx, guildID, cfg); err != nil {
		b.logger.Warn("update blocked domains failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respond(session, interaction, "❌ Failed to save blocked domains.", true)
		return
	}
	b.respond(session, interaction, reply, true)
}

func (b *Bot) handleCustomCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	name := strings.ToLower(strings.TrimSpace(stringOption(options, "name")))
	if name == "" || strings.ContainsAny(name, " \t\n") {
		b.respond(session, interaction, "❌ Command names are a single word.", true)
		return
	}
	var cmd policy.CustomCommand
	switch sub {
	case "set":
		cmd = policy.CustomCommand{
			Response:    stringOption(options, "response"),
			Prefix:      strings.TrimSpace(stringOption(options, "prefix")),
			Enabled:     true,
			CommandType: policy.CommandPrefix,
		}
	case "disable":
		existing, ok := b.svc.Policies.CustomCommands(guildID)[name]
		if !ok {
			b.respond(session, interaction, "❌ No command named `"+name+"`.", true)
			return
		}
		existing.Enabled = false
		cmd = existing
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
		return
	}
	if err := b.svc.Policies.SetCustomCommand(ctx, guildID, name, cmd); err != nil {
		b.logger.Warn("save custom command failed", zap.String("guild_id", guildID), zap.String("command", name), zap.Error(err))
		b.respond(session, interaction, "❌ Failed to save the command.", true)
		return
	}
	if sub == "disable" {
		b.respond(session, interaction, "✅ `"+name+"` disabled.", true)
		return
	}
	b.respond(session, interaction, "✅ `"+commandPrefix(cmd)+name+"` saved.", true)
}

func (b *Bot) handleAutoReactCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	var (
		reacts []policy.AutoReaction
		reply  string
	)
	switch sub {
	case "add":
		trigger := strings.TrimSpace(stringOption(options, "trigger"))
		emoji := strings.TrimSpace(stringOption(options, "emoji"))
		if trigger == "" || emoji == "" {
			b.respond(session, interaction, "❌ Give a trigger and an emoji.", true)
			return
		}
		reacts = append(b.svc.Policies.AutoReactions(guildID), policy.AutoReaction{Trigger: trigger, Emoji: emoji})
		reply = fmt.Sprintf("✅ Messages containing `%s` get %s.", trigger, emoji)
	case "clear":
		reply = "✅ Automatic reactions cleared."
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
		return
	}
	if err := b.svc.Policies.SetAutoReactions(ctx, guildID, reacts); err != nil {
		b.logger.Warn("save auto reactions failed", zap.String("guild_id", guildID), zap.Error(err))
		b.respond(session, interaction, "❌ Failed to save automatic reactions.", true)
		return
	}
	b.respond(session, interaction, reply, true)
}

func severityOption(options []*discordgo.ApplicationCommandInteractionDataOption) (policy.Severity, bool) {
	raw := stringOption(options, "severity")
	if raw == "" {
		return policy.SeverityMinor, true
	}
	return policy.ParseSeverity(raw)
}

func commandPrefix(cmd policy.CustomCommand) string {
	if cmd.Prefix == "" {
		return "!"
	}
	return cmd.Prefix
}

func warningsEmbed(userID string, list []storage.Warning, now time.Time) *discordgo.MessageEmbed {
	active := 0
	lines := make([]string, 0, len(list))
	for _, w := range list {
		state := "active"
		switch {
		case w.Removed:
			state = "removed"
		case w.Expired(now):
			state = "expired"
		default:
			active++
		}
		lines = append(lines, fmt.Sprintf("`%s` %s <t:%d:d> %s", w.ID, state, w.IssuedAt.Unix(), utils.Truncate(w.Reason, 60)))
	}
	desc := "No warnings on record."
	if len(lines) > 0 {
		desc = utils.Truncate(strings.Join(lines, "\n"), 4000)
	}
	return commandEmbed("⚠️ Warnings", "<@"+userID+">\n"+desc, colorInfo, []*discordgo.MessageEmbedField{
		{Name: "Active", Value: fmt.Sprintf("%d", active), Inline: true},
		{Name: "Total", Value: fmt.Sprintf("%d", len(list)), Inline: true},
	})
}

// termListEmbed groups terms by severity, most severe first.
func termListEmbed(title string, terms []string, severity func(string) policy.Severity) *discordgo.MessageEmbed {
	if len(terms) == 0 {
		return commandEmbed(title, "Nothing is blocked.", colorInfo, nil)
	}
	byTier := map[policy.Severity][]string{}
	for _, t := range terms {
		sev := severity(t)
		byTier[sev] = append(byTier[sev], t)
	}
	var fields []*discordgo.MessageEmbedField
	for _, tier := range []policy.Severity{policy.SeveritySevere, policy.SeverityModerate, policy.SeverityMinor} {
		listed := byTier[tier]
		if len(listed) == 0 {
			continue
		}
		sort.Strings(listed)
		more := ""
		if len(listed) > maxListedTerms {
			more = fmt.Sprintf(" (+%d more)", len(listed)-maxListedTerms)
			listed = listed[:maxListedTerms]
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  strings.ToUpper(string(tier[:1])) + string(tier[1:]),
			Value: utils.Truncate("`"+strings.Join(listed, "`, `")+"`"+more, 1024),
		})
	}
	return commandEmbed(title, fmt.Sprintf("%d entries", len(terms)), colorInfo, fields)
}

func linkCheckEmbed(raw string, cfg policy.BlockedDomains, links *linkscan.Scanner) *discordgo.MessageEmbed {
	domain := utils.DomainOf(raw)
	if domain == "" {
		return commandEmbed("🔎 Link Check", "That does not look like a link.", colorFailure, nil)
	}
	blocked := "No"
	if policy.Listed(cfg.BlockedDomains, domain) {
		blocked = "Yes (" + string(cfg.Severity(domain)) + ")"
	}
	category, color := "None", colorSuccess
	if links.IsSuspiciousURL(raw) {
		category, color = string(links.Classify(raw)), colorFailure
	} else if blocked != "No" {
		color = colorFailure
	}
	return commandEmbed("🔎 Link Check", "`"+domain+"`", color, []*discordgo.MessageEmbedField{
		{Name: "Blocked Here", Value: blocked, Inline: true},
		{Name: "Known Threat", Value: category, Inline: true},
		{Name: "Allowlisted", Value: yesNo(links.IsWhitelistedURL(raw)), Inline: true},
	})
}

// samplePayload builds a typed record for a test log of kind.
func samplePayload(kind embeds.ActionKind, user *embeds.UserRef, channelID string) any {
	channel := &embeds.ChannelRef{ID: channelID}
	const reason = "Test log record"
	switch kind {
	case embeds.KindMessageEdit:
		return embeds.MessageEdit{Author: user, Channel: channel, Before: "before", After: "after"}
	case embeds.KindMessageDelete:
		return embeds.MessageDelete{Author: user, Channel: channel, Content: "deleted message"}
	case embeds.KindMemberJoin, embeds.KindMemberLeave:
		return embeds.Member{User: user}
	case embeds.KindWarning, embeds.KindWarningAdded:
		return embeds.Warning{User: user, Moderator: user, WarningID: "test", Reason: reason, Severity: string(policy.SeverityMinor)}
	case embeds.KindWarningRemoved:
		return embeds.WarningRemoved{User: user, Moderator: user, WarningID: "test", RemovalReason: reason}
	case embeds.KindBan, embeds.KindKick:
		return embeds.Sanction{User: user, Moderator: user, Reason: reason}
	case embeds.KindTimeout:
		return embeds.Timeout{User: user, Moderator: user, Duration: "5m", Reason: reason}
	case embeds.KindPurge:
		return embeds.Purge{Moderator: user, Channel: channel, MessageCount: 1}
	case embeds.KindVoiceJoin, embeds.KindVoiceLeave:
		return embeds.Voice{User: user, Channel: channel}
	case embeds.KindCommandUsage:
		return embeds.CommandUsage{User: user, CommandName: "testlogging test", ChannelID: channelID}
	default:
		return embeds.Generic{"user_id": user.ID, "channel_id": channelID, "reason": reason}
	}
}
