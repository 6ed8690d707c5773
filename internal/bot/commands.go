package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/analytics"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/logging"
	"guardian-automod/internal/modules/audit"
)

const (
	colorInfo    = 0x0099FF
	colorSuccess = 0x00FF00
	colorFailure = 0xFF0000

	defaultStatsDays = 7
)

var manageGuild int64 = discordgo.PermissionManageServer

// toggleChoices are the flags exposed by /logging toggle, in display order.
var toggleChoices = []struct {
	name string
	flag logging.Flag
}{
	{"All Logging", logging.FlagEnabled},
	{"Bot Messages", logging.FlagLogBotMessages},
	{"Message Edits", logging.FlagLogMessageEdits},
	{"Message Deletes", logging.FlagLogMessageDeletes},
	{"Member Joins", logging.FlagLogMemberJoins},
	{"Member Leaves", logging.FlagLogMemberLeaves},
	{"Warnings", logging.FlagLogWarnings},
	{"Bans", logging.FlagLogBans},
	{"Kicks", logging.FlagLogKicks},
	{"Timeouts", logging.FlagLogTimeouts},
	{"Role Changes", logging.FlagLogRoleChanges},
	{"Channel Changes", logging.FlagLogChannelChanges},
	{"Admin Actions", logging.FlagLogAdminActions},
	{"Auto-Mod Actions", logging.FlagLogAutomodActions},
	{"Voice Events", logging.FlagLogVoiceEvents},
	{"Command Usage", logging.FlagLogCommandUsage},
	{"Ignore Admin Actions", logging.FlagIgnoreAdminActions},
	{"Ignore Owner Actions", logging.FlagIgnoreOwnerActions},
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(toggleChoices))
	for _, c := range toggleChoices {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c.name, Value: string(c.flag)})
	}
	return append([]*discordgo.ApplicationCommand{
		{
			Name:                     "logging",
			Description:              "Manage server logging settings",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "View current logging configuration",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "toggle",
					Description: "Toggle specific logging features",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "feature",
							Description: "The logging feature to toggle",
							Required:    true,
							Choices:     choices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set or clear the log channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Channel that receives log records; omit to clear",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
			},
		},
		{
			Name:                     "testlogging",
			Description:              "Test the logging system configuration",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "Check logging system status"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "initialize", Description: "Initialize logging configuration for this server"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "test",
					Description: "Send a test log message",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "kind",
							Description: "Action kind to render, e.g. ban or voice_join (default command_usage)",
						},
					},
				},
			},
		},
		{
			Name:                     "modstats",
			Description:              "Summarize recent moderation activity",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "How many days to cover (default 7)",
					MinValue:    floatPtr(1),
					MaxValue:    90,
				},
			},
		},
	}, adminCommandDefinitions()...)
}

func floatPtr(v float64) *float64 { return &v }

func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}
	return nil
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respond(session, interaction, "❌ This command can only be used in a server.", true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	user := interaction.Member.User
	if !b.gateway.IsModerator(interaction.GuildID, user.ID) {
		b.respond(session, interaction, "❌ You need moderation permissions to use this command.", true)
		return
	}

	sub, options := subcommand(data.Options)
	switch data.Name {
	case "logging":
		b.handleLoggingCommand(ctx, session, interaction, sub, options)
	case "testlogging":
		b.handleTestLoggingCommand(ctx, session, interaction, sub, options)
	case "modstats":
		b.handleStatsCommand(ctx, session, interaction, data.Options)
	case "warnings":
		b.handleWarningsCommand(ctx, session, interaction, sub, options)
	case "blockedwords":
		b.handleBlockedWordsCommand(ctx, session, interaction, sub, options)
	case "blockeddomains":
		b.handleBlockedDomainsCommand(ctx, session, interaction, sub, options)
	case "customcommand":
		b.handleCustomCommand(ctx, session, interaction, sub, options)
	case "autoreact":
		b.handleAutoReactCommand(ctx, session, interaction, sub, options)
	default:
		return
	}
	b.svc.Audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, "command", strings.TrimSpace(data.Name+" "+sub))
}

func (b *Bot) handleLoggingCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	switch sub {
	case "status":
		cfg := b.svc.Logging.GetConfig(ctx, guildID)
		b.respondEmbed(session, interaction, loggingStatusEmbed(cfg), true)
	case "toggle":
		raw := stringOption(options, "feature")
		flag, ok := logging.ParseFlag(raw)
		if !ok {
			b.respond(session, interaction, "❌ Unknown logging feature.", true)
			return
		}
		next := !b.svc.Logging.GetConfig(ctx, guildID).Enabled(flag)
		if err := b.svc.Logging.UpdateConfig(ctx, guildID, map[logging.Flag]bool{flag: next}); err != nil {
			b.logger.Warn("logging toggle failed", zap.String("guild_id", guildID), zap.String("flag", raw), zap.Error(err))
			b.respond(session, interaction, "❌ Failed to update logging configuration. Please try again.", true)
			return
		}
		state, color := "disabled", colorFailure
		if next {
			state, color = "enabled", colorSuccess
		}
		b.logger.Info("logging setting changed", zap.String("guild_id", guildID), zap.String("flag", raw), zap.Bool("value", next))
		b.respondEmbed(session, interaction, commandEmbed("✅ Logging Updated", fmt.Sprintf("**%s** has been %s.", flagTitle(flag), state), color, nil), true)
	case "channel":
		channelID := ""
		if opt := findOption(options, "channel"); opt != nil {
			channelID = opt.ChannelValue(nil).ID
		}
		if channelID != "" && !b.gateway.CanSendEmbeds(guildID, channelID) {
			b.respond(session, interaction, "❌ I can't send embeds in <#"+channelID+">.", true)
			return
		}
		if err := b.svc.Logging.SetLogChannel(ctx, guildID, channelID); err != nil {
			b.logger.Warn("set log channel failed", zap.String("guild_id", guildID), zap.Error(err))
			b.respond(session, interaction, "❌ Failed to save the log channel.", true)
			return
		}
		if channelID == "" {
			b.respond(session, interaction, "✅ Log channel cleared.", true)
			return
		}
		b.respond(session, interaction, "✅ Log records will be sent to <#"+channelID+">.", true)
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
	}
}

func (b *Bot) handleTestLoggingCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, sub string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID := interaction.GuildID
	switch sub {
	case "status":
		cfg := b.svc.Logging.GetConfig(ctx, guildID)
		channel := "❌ Not configured"
		if id, err := b.svc.Logging.ResolveLogChannel(guildID); err == nil {
			channel = "✅ <#" + id + ">"
		} else if !errors.Is(err, logging.ErrNoLogChannel) || b.svc.Logging.LogChannelID(guildID) != "" {
			channel = "⚠️ " + err.Error()
		}
		color := colorFailure
		if cfg.Enabled(logging.FlagEnabled) {
			color = colorSuccess
		}
		b.respondEmbed(session, interaction, commandEmbed("🔍 Logging System Status", "", color, []*discordgo.MessageEmbedField{
			{Name: "📊 Configuration Status", Value: "✅ Loaded", Inline: true},
			{Name: "🔧 Logging Enabled", Value: yesNo(cfg.Enabled(logging.FlagEnabled)), Inline: true},
			{Name: "📝 Log Channel", Value: channel, Inline: true},
			{Name: "📈 Active Features", Value: activeFeatures(cfg), Inline: false},
		}), true)
	case "initialize":
		err := b.svc.Logging.InitializeGuild(ctx, guildID)
		desc, status, color := "✅ Logging configuration has been initialized successfully.", "Initialized", colorSuccess
		if err != nil {
			b.logger.Warn("logging initialize failed", zap.String("guild_id", guildID), zap.Error(err))
			desc, status, color = "❌ Failed to initialize logging configuration.", "Failed", colorFailure
		}
		b.respondEmbed(session, interaction, commandEmbed("🔧 Logging Initialization", desc, color, []*discordgo.MessageEmbedField{
			{Name: "Guild", Value: guildID, Inline: true},
			{Name: "Status", Value: status, Inline: true},
		}), true)
	case "test":
		kind := embeds.KindCommandUsage
		if raw := strings.TrimSpace(stringOption(options, "kind")); raw != "" {
			parsed, ok := embeds.ParseActionKind(strings.ToLower(raw))
			if !ok {
				b.respond(session, interaction, "❌ Unknown action kind `"+raw+"`.", true)
				return
			}
			kind = parsed
		}
		user := interaction.Member.User
		sent := b.svc.Logging.LogAction(ctx, guildID, kind, samplePayload(kind, userRef(user), interaction.ChannelID), actorOf(user))
		desc, result, color := "✅ Test log message sent successfully!", "Success", colorSuccess
		if !sent {
			desc, result, color = "❌ Failed to send test log message.", "Failed", colorFailure
		}
		b.respondEmbed(session, interaction, commandEmbed("🧪 Test Log Message", desc, color, []*discordgo.MessageEmbedField{
			{Name: "Result", Value: result, Inline: true},
			{Name: "Kind", Value: "`" + string(kind) + "`", Inline: true},
			{Name: "Timestamp", Value: fmt.Sprintf("<t:%d:f>", time.Now().Unix()), Inline: true},
		}), true)
	default:
		b.respond(session, interaction, "❌ Unknown subcommand.", true)
	}
}

func (b *Bot) handleStatsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	days := defaultStatsDays
	if opt := findOption(options, "days"); opt != nil {
		days = int(opt.IntValue())
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	report, err := b.svc.Analytics.Report(ctx, interaction.GuildID, since)
	if err != nil {
		b.logger.Warn("modstats failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respond(session, interaction, "❌ Could not load moderation stats.", true)
		return
	}
	b.respondEmbed(session, interaction, statsEmbed(report, days), true)
}

func statsEmbed(report analytics.Report, days int) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Total", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "By Level", Value: formatLevels(report), Inline: true},
	}
	top := report.TopEvents(5)
	if len(top) > 0 {
		lines := make([]string, 0, len(top))
		for _, e := range top {
			lines = append(lines, fmt.Sprintf("`%s` %d", e.Event, e.Count))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top Events", Value: strings.Join(lines, "\n")})
	}
	return commandEmbed("📊 Moderation Stats", fmt.Sprintf("Activity over the last %d day(s)", days), colorInfo, fields)
}

func formatLevels(report analytics.Report) string {
	return fmt.Sprintf("INFO: %d | WARN: %d | CRIT: %d", report.ByLevel[audit.LevelInfo], report.ByLevel[audit.LevelWarn], report.ByLevel[audit.LevelCrit])
}

func loggingStatusEmbed(cfg logging.Config) *discordgo.MessageEmbed {
	mark := func(f logging.Flag) string {
		if cfg.Enabled(f) {
			return "✅"
		}
		return "❌"
	}
	field := func(name string, lines ...string) *discordgo.MessageEmbedField {
		return &discordgo.MessageEmbedField{Name: name, Value: strings.Join(lines, "\n"), Inline: true}
	}
	return commandEmbed("📋 Logging Configuration", "Current logging settings for this server", colorInfo, []*discordgo.MessageEmbedField{
		field("🔧 General", "Enabled: "+mark(logging.FlagEnabled), "Bot Messages: "+mark(logging.FlagLogBotMessages)),
		field("💬 Messages", "Edits: "+mark(logging.FlagLogMessageEdits), "Deletes: "+mark(logging.FlagLogMessageDeletes)),
		field("👥 Members", "Joins: "+mark(logging.FlagLogMemberJoins), "Leaves: "+mark(logging.FlagLogMemberLeaves)),
		field("⚖️ Moderation", "Warnings: "+mark(logging.FlagLogWarnings), "Bans: "+mark(logging.FlagLogBans), "Kicks: "+mark(logging.FlagLogKicks), "Timeouts: "+mark(logging.FlagLogTimeouts)),
		field("🎭 Server", "Roles: "+mark(logging.FlagLogRoleChanges), "Channels: "+mark(logging.FlagLogChannelChanges)),
		field("👑 Special", "Admin Actions: "+mark(logging.FlagLogAdminActions), "Auto-Mod: "+mark(logging.FlagLogAutomodActions)),
		field("🔊 Activity", "Voice: "+mark(logging.FlagLogVoiceEvents), "Commands: "+mark(logging.FlagLogCommandUsage)),
		field("🚫 Ignore Settings", "Admins: "+mark(logging.FlagIgnoreAdminActions), "Owner: "+mark(logging.FlagIgnoreOwnerActions)),
	})
}

var featureLabels = []struct {
	flag  logging.Flag
	label string
}{
	{logging.FlagLogMessageEdits, "Message Edits"},
	{logging.FlagLogMessageDeletes, "Message Deletes"},
	{logging.FlagLogMemberJoins, "Member Joins"},
	{logging.FlagLogMemberLeaves, "Member Leaves"},
	{logging.FlagLogWarnings, "Warnings"},
	{logging.FlagLogBans, "Bans"},
	{logging.FlagLogKicks, "Kicks"},
	{logging.FlagLogTimeouts, "Timeouts"},
}

func activeFeatures(cfg logging.Config) string {
	var active []string
	for _, f := range featureLabels {
		if cfg.Enabled(f.flag) {
			active = append(active, f.label)
		}
	}
	if len(active) == 0 {
		return "None active"
	}
	return strings.Join(active, ", ")
}

// flagTitle turns log_message_edits into Log Message Edits.
func flagTitle(f logging.Flag) string {
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func yesNo(v bool) string {
	if v {
		return "✅ Yes"
	}
	return "❌ No"
}

func subcommand(options []*discordgo.ApplicationCommandInteractionDataOption) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", options
	}
	return options[0].Name, options[0].Options
}

func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func stringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt := findOption(options, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}
