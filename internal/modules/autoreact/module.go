// Package autoreact adds configured emoji reactions to messages containing a
// trigger phrase.
package autoreact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/policy"
)

type Reactions interface {
	AutoReactions(guildID string) []policy.AutoReaction
}

type Reactor interface {
	AddReaction(channelID, messageID, emoji string) error
}

type Module struct {
	reactions Reactions
	reactor   Reactor
}

func New(reactions Reactions, reactor Reactor) *Module {
	return &Module{reactions: reactions, reactor: reactor}
}

func (m *Module) Name() string { return "autoreact" }

// HandleMessage matches triggers case-insensitively. Every matching rule is
// tried; failures are joined into one error.
func (m *Module) HandleMessage(_ context.Context, msg pipeline.Message) error {
	content := strings.ToLower(msg.Content)
	var errs []error
	for _, r := range m.reactions.AutoReactions(msg.GuildID) {
		trigger := strings.ToLower(strings.TrimSpace(r.Trigger))
		if trigger == "" || r.Emoji == "" || !strings.Contains(content, trigger) {
			continue
		}
		if err := m.reactor.AddReaction(msg.ChannelID, msg.ID, r.Emoji); err != nil {
			errs = append(errs, fmt.Errorf("react %s: %w", r.Emoji, err))
		}
	}
	return errors.Join(errs...)
}
