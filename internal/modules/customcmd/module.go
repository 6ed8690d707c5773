// Package customcmd answers guild-defined text commands. Each command may set
// its own prefix; "!" is the default and also the legacy fallback.
package customcmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/utils"
)

const (
	defaultPrefix = "!"
	maxMessageLen = 2000
)

type Commands interface {
	CustomCommands(guildID string) map[string]policy.CustomCommand
}

type Sender interface {
	SendMessage(channelID, content string) error
}

type Dispatcher struct {
	commands Commands
	sender   Sender
	logger   *zap.Logger
}

func New(commands Commands, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{commands: commands, sender: sender, logger: logger}
}

// Dispatch reports whether the message invoked a command. Slash-only and
// disabled commands never match.
func (d *Dispatcher) Dispatch(_ context.Context, msg pipeline.Message) (bool, error) {
	cmds := d.commands.CustomCommands(msg.GuildID)
	if len(cmds) == 0 {
		return false, nil
	}
	lower := strings.ToLower(msg.Content)

	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := cmds[name]
		if !usable(cmd) {
			continue
		}
		prefix := cmd.Prefix
		if prefix == "" {
			prefix = defaultPrefix
		}
		if strings.HasPrefix(lower, strings.ToLower(prefix+name)) {
			return d.respond(msg, name, cmd)
		}
	}

	if strings.HasPrefix(msg.Content, defaultPrefix) {
		fields := strings.Fields(msg.Content[len(defaultPrefix):])
		if len(fields) > 0 {
			name := strings.ToLower(fields[0])
			if cmd, ok := cmds[name]; ok && usable(cmd) {
				return d.respond(msg, name, cmd)
			}
		}
	}
	return false, nil
}

func (d *Dispatcher) respond(msg pipeline.Message, name string, cmd policy.CustomCommand) (bool, error) {
	response := utils.Truncate(strings.ReplaceAll(cmd.Response, "{user}", "<@"+msg.Author.ID+">"), maxMessageLen)
	if err := d.sender.SendMessage(msg.ChannelID, response); err != nil {
		return false, fmt.Errorf("custom command %s: %w", name, err)
	}
	d.logger.Debug("custom command", zap.String("guild_id", msg.GuildID), zap.String("command", name))
	return true, nil
}

func usable(cmd policy.CustomCommand) bool {
	return cmd.Enabled && cmd.CommandType != policy.CommandSlash && cmd.Response != ""
}
