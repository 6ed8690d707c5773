// Package logging decides whether an action is recorded for a guild, where it
// goes, and renders it through the embed factory.
package logging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guardian-automod/internal/embeds"
	"guardian-automod/internal/storage"
)

var (
	ErrUnknownFlag  = errors.New("unknown logging flag")
	ErrNoLogChannel = errors.New("no usable log channel")
)

// Directory is the slice of the chat platform the manager needs.
type Directory interface {
	GuildOwnerID(guildID string) (string, error)
	IsAdministrator(guildID, userID string) bool
	ChannelInGuild(guildID, channelID string) bool
	CanSendEmbeds(guildID, channelID string) bool
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// Actor is the user an action is attributed to.
type Actor struct {
	ID  string
	Bot bool
}

type InitResult struct {
	Initialized int
	Failed      int
}

type Manager struct {
	mu           sync.Mutex
	configTable  storage.Table[map[string]bool]
	channelTable storage.Table[string]
	configs      map[string]Config
	channels     map[string]string

	dir     Directory
	factory *embeds.Factory
	logger  *zap.Logger
}

// NewManager loads both documents once. A missing or corrupt document is
// logged and the manager starts from an empty state.
func NewManager(ctx context.Context, configs storage.Table[map[string]bool], channels storage.Table[string], dir Directory, factory *embeds.Factory, logger *zap.Logger) *Manager {
	m := &Manager{
		configTable:  configs,
		channelTable: channels,
		configs:      make(map[string]Config),
		channels:     make(map[string]string),
		dir:          dir,
		factory:      factory,
		logger:       logger,
	}

	rawConfigs, err := configs.Load(ctx)
	if err != nil {
		logger.Warn("logging config unreadable, starting empty", zap.Error(err))
	}
	for guildID, raw := range rawConfigs {
		m.configs[guildID] = fromDocument(raw)
	}

	rawChannels, err := channels.Load(ctx)
	if err != nil {
		logger.Warn("log channel map unreadable, starting empty", zap.Error(err))
	}
	for guildID, channelID := range rawChannels {
		if channelID != "" {
			m.channels[guildID] = channelID
		}
	}
	return m
}

// GetConfig returns the guild's flags. The first read of an unseen guild
// stores and persists the defaults.
func (m *Manager) GetConfig(ctx context.Context, guildID string) Config {
	cfg, err := m.ensure(ctx, guildID)
	if err != nil {
		m.logger.Warn("persist default logging config failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	return cfg
}

// UpdateConfig merges updates into the guild's flags. Flags outside the known
// set are rejected and nothing is written.
func (m *Manager) UpdateConfig(ctx context.Context, guildID string, updates map[Flag]bool) error {
	if guildID == "" {
		return fmt.Errorf("update logging config: empty guild id")
	}
	for flag := range updates {
		if _, ok := ParseFlag(string(flag)); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFlag, flag)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		cfg = DefaultConfig()
	}
	cfg = cfg.clone()
	for flag, value := range updates {
		cfg[flag] = value
	}
	m.configs[guildID] = cfg
	if err := m.saveConfigsLocked(ctx); err != nil {
		return fmt.Errorf("update logging config: %w", err)
	}
	return nil
}

func (m *Manager) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	if guildID == "" {
		return fmt.Errorf("set log channel: empty guild id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if channelID == "" {
		delete(m.channels, guildID)
	} else {
		m.channels[guildID] = channelID
	}
	doc := make(map[string]string, len(m.channels))
	for g, c := range m.channels {
		doc[g] = c
	}
	if err := m.channelTable.Save(ctx, doc); err != nil {
		return fmt.Errorf("save log channels: %w", err)
	}
	return nil
}

func (m *Manager) LogChannelID(guildID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[guildID]
}

// ResolveLogChannel checks the configured channel on every call: it must still
// exist in the guild and accept embeds from the bot.
func (m *Manager) ResolveLogChannel(guildID string) (string, error) {
	channelID := m.LogChannelID(guildID)
	if channelID == "" {
		return "", fmt.Errorf("%w: none configured", ErrNoLogChannel)
	}
	if !m.dir.ChannelInGuild(guildID, channelID) {
		return "", fmt.Errorf("%w: channel %s not found", ErrNoLogChannel, channelID)
	}
	if !m.dir.CanSendEmbeds(guildID, channelID) {
		return "", fmt.Errorf("%w: missing permissions in %s", ErrNoLogChannel, channelID)
	}
	return channelID, nil
}

func (m *Manager) ShouldLog(ctx context.Context, guildID string, kind embeds.ActionKind, actor *Actor) bool {
	if guildID == "" || kind == "" {
		return false
	}
	cfg := m.GetConfig(ctx, guildID)
	if !cfg[FlagEnabled] {
		return false
	}
	if actor != nil && actor.ID != "" {
		if actor.Bot && !cfg[FlagLogBotMessages] {
			return false
		}
		if cfg[FlagIgnoreOwnerActions] {
			if ownerID, err := m.dir.GuildOwnerID(guildID); err == nil && ownerID == actor.ID {
				return false
			}
		}
		if cfg[FlagIgnoreAdminActions] && m.dir.IsAdministrator(guildID, actor.ID) {
			return false
		}
	}
	flag, ok := FlagFor(kind)
	if !ok {
		return true
	}
	return cfg[flag]
}

// LogAction gates, renders and sends one record. It reports whether a record
// reached the log channel and never panics outward.
func (m *Manager) LogAction(ctx context.Context, guildID string, kind embeds.ActionKind, payload any, actor *Actor) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("log action panicked", zap.String("guild_id", guildID), zap.String("action", string(kind)), zap.Any("panic", r))
			sent = false
		}
	}()

	if guildID == "" || kind == "" || payload == nil {
		m.logger.Warn("log action missing parameters", zap.String("guild_id", guildID), zap.String("action", string(kind)))
		return false
	}
	if !m.ShouldLog(ctx, guildID, kind, actor) {
		m.logger.Debug("log action filtered", zap.String("guild_id", guildID), zap.String("action", string(kind)))
		return false
	}
	channelID, err := m.ResolveLogChannel(guildID)
	if err != nil {
		m.logger.Info("log action skipped", zap.String("guild_id", guildID), zap.String("action", string(kind)), zap.Error(err))
		return false
	}

	embed := m.render(kind, payload)
	if err := m.dir.SendEmbed(channelID, embed); err != nil {
		m.logger.Warn("send log record failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.String("action", string(kind)), zap.Error(err))
		return false
	}
	m.logger.Info("action logged", zap.String("guild_id", guildID), zap.String("action", string(kind)))
	return true
}

func (m *Manager) InitializeGuild(ctx context.Context, guildID string) error {
	_, err := m.ensure(ctx, guildID)
	return err
}

func (m *Manager) InitializeGuilds(ctx context.Context, guildIDs []string) InitResult {
	var res InitResult
	for _, guildID := range guildIDs {
		if err := m.InitializeGuild(ctx, guildID); err != nil {
			m.logger.Warn("initialize guild logging failed", zap.String("guild_id", guildID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Initialized++
	}
	m.logger.Info("logging initialization complete", zap.Int("initialized", res.Initialized), zap.Int("failed", res.Failed))
	return res
}

func (m *Manager) render(kind embeds.ActionKind, payload any) (embed *discordgo.MessageEmbed) {
	defer func() {
		if r := recover(); r != nil {
			embed = m.factory.ErrorEmbed(kind, fmt.Errorf("panic: %v", r))
		}
	}()
	built, err := m.factory.Build(kind, payload)
	if err != nil {
		m.logger.Warn("build log record failed", zap.String("action", string(kind)), zap.Error(err))
		return m.factory.ErrorEmbed(kind, err)
	}
	return built
}

func (m *Manager) ensure(ctx context.Context, guildID string) (Config, error) {
	if guildID == "" {
		return DefaultConfig(), fmt.Errorf("empty guild id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[guildID]; ok {
		return cfg.clone(), nil
	}
	cfg := DefaultConfig()
	m.configs[guildID] = cfg
	m.logger.Info("created default logging config", zap.String("guild_id", guildID))
	if err := m.saveConfigsLocked(ctx); err != nil {
		return cfg.clone(), err
	}
	return cfg.clone(), nil
}

func (m *Manager) saveConfigsLocked(ctx context.Context) error {
	doc := make(map[string]map[string]bool, len(m.configs))
	for guildID, cfg := range m.configs {
		doc[guildID] = toDocument(cfg)
	}
	return m.configTable.Save(ctx, doc)
}

// fromDocument keeps only known flags, so stray keys on disk are never
// written back.
func fromDocument(raw map[string]bool) Config {
	cfg := make(Config, len(raw))
	for key, value := range raw {
		if flag, ok := ParseFlag(key); ok {
			cfg[flag] = value
		}
	}
	return cfg
}

func toDocument(cfg Config) map[string]bool {
	out := make(map[string]bool, len(cfg))
	for flag, value := range cfg {
		out[string(flag)] = value
	}
	return out
}
