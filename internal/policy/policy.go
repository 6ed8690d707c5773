package policy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"guardian-automod/internal/storage"
)

// GlobalKey is the document entry consulted when a guild has none of its own.
const GlobalKey = "global"

type Severity string

const (
	SeveritySevere   Severity = "severe"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

var severityOrder = []Severity{SeveritySevere, SeverityModerate, SeverityMinor}

type EscalationThresholds struct {
	Timeout int `json:"timeout"`
	Kick    int `json:"kick"`
	Ban     int `json:"ban"`
}

type BlockedWords struct {
	Enabled              bool                  `json:"enabled"`
	BlockedWords         []string              `json:"blocked_words"`
	Whitelist            []string              `json:"whitelist"`
	SeverityLevels       map[Severity][]string `json:"severity_levels"`
	AutoWarn             bool                  `json:"auto_warn"`
	AutoEscalation       bool                  `json:"auto_escalation"`
	EscalationThresholds EscalationThresholds  `json:"escalation_thresholds"`
	BypassAdmins         bool                  `json:"bypass_admins"`
}

type BlockedDomains struct {
	Enabled              bool                  `json:"enabled"`
	BlockedDomains       []string              `json:"blocked_domains"`
	Whitelist            []string              `json:"whitelist"`
	AllowedChannels      []string              `json:"allowed_channels"`
	SeverityLevels       map[Severity][]string `json:"severity_levels"`
	AutoWarn             bool                  `json:"auto_warn"`
	AutoEscalation       bool                  `json:"auto_escalation"`
	EscalationThresholds EscalationThresholds  `json:"escalation_thresholds"`
	DeleteMessages       bool                  `json:"delete_messages"`
}

type CommandType string

const (
	CommandPrefix CommandType = "prefix"
	CommandSlash  CommandType = "slash"
)

type CustomCommand struct {
	Response    string      `json:"response"`
	Prefix      string      `json:"prefix,omitempty"`
	Enabled     bool        `json:"enabled"`
	CommandType CommandType `json:"command_type,omitempty"`
}

type AutoReaction struct {
	Trigger string `json:"trigger"`
	Emoji   string `json:"emoji"`
}

func DefaultBlockedWords() BlockedWords {
	return BlockedWords{
		Enabled:              true,
		BlockedWords:         []string{},
		Whitelist:            []string{},
		SeverityLevels:       map[Severity][]string{},
		AutoWarn:             true,
		AutoEscalation:       true,
		EscalationThresholds: EscalationThresholds{Timeout: 3, Kick: 5, Ban: 7},
		BypassAdmins:         true,
	}
}

func DefaultBlockedDomains() BlockedDomains {
	return BlockedDomains{
		Enabled:              true,
		BlockedDomains:       []string{},
		Whitelist:            []string{},
		AllowedChannels:      []string{},
		SeverityLevels:       map[Severity][]string{},
		AutoWarn:             true,
		AutoEscalation:       true,
		EscalationThresholds: EscalationThresholds{Timeout: 3, Kick: 5, Ban: 7},
		DeleteMessages:       true,
	}
}

// Severity returns the first tier listing term, or minor.
func (c BlockedWords) Severity(term string) Severity {
	return severityOf(c.SeverityLevels, term)
}

func (c BlockedDomains) Severity(domain string) Severity {
	return severityOf(c.SeverityLevels, domain)
}

func severityOf(levels map[Severity][]string, term string) Severity {
	term = strings.ToLower(term)
	for _, tier := range severityOrder {
		for _, listed := range levels[tier] {
			if strings.ToLower(listed) == term {
				return tier
			}
		}
	}
	return SeverityMinor
}

// Tables are the persisted documents behind a Store.
type Tables struct {
	BlockedWords   storage.Table[BlockedWords]
	BlockedDomains storage.Table[BlockedDomains]
	CustomCommands storage.Table[map[string]CustomCommand]
	AutoReactions  storage.Table[[]AutoReaction]
}

// Store caches every policy document and writes the whole document back on change.
type Store struct {
	tables Tables
	logger *zap.Logger

	mu       sync.RWMutex
	words    map[string]BlockedWords
	domains  map[string]BlockedDomains
	commands map[string]map[string]CustomCommand
	reacts   map[string][]AutoReaction
}

// New loads every document once. A document that fails to load starts empty.
func New(ctx context.Context, tables Tables, logger *zap.Logger) *Store {
	s := &Store{tables: tables, logger: logger}
	s.words = loadOrEmpty(ctx, tables.BlockedWords, logger, "blocked_words")
	s.domains = loadOrEmpty(ctx, tables.BlockedDomains, logger, "blocked_domains")
	s.commands = loadOrEmpty(ctx, tables.CustomCommands, logger, "custom_commands")
	s.reacts = loadOrEmpty(ctx, tables.AutoReactions, logger, "auto_reactions")
	return s
}

func loadOrEmpty[V any](ctx context.Context, table storage.Table[V], logger *zap.Logger, name string) map[string]V {
	if table == nil {
		return map[string]V{}
	}
	entries, err := table.Load(ctx)
	if err != nil {
		logger.Warn("policy document unreadable, starting empty", zap.String("document", name), zap.Error(err))
		return map[string]V{}
	}
	return entries
}

func lookup[V any](entries map[string]V, guildID string) (V, bool) {
	if v, ok := entries[guildID]; ok {
		return v, true
	}
	v, ok := entries[GlobalKey]
	return v, ok
}

func (s *Store) BlockedWords(guildID string) BlockedWords {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := lookup(s.words, guildID); ok {
		return withWordDefaults(cfg)
	}
	return DefaultBlockedWords()
}

func (s *Store) BlockedDomains(guildID string) BlockedDomains {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := lookup(s.domains, guildID); ok {
		return withDomainDefaults(cfg)
	}
	return DefaultBlockedDomains()
}

func (s *Store) CustomCommands(guildID string) map[string]CustomCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmds := s.commands[guildID]
	out := make(map[string]CustomCommand, len(cmds))
	for name, cmd := range cmds {
		out[name] = cmd
	}
	return out
}

func (s *Store) AutoReactions(guildID string) []AutoReaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reacts, ok := lookup(s.reacts, guildID)
	if !ok {
		return nil
	}
	return append([]AutoReaction(nil), reacts...)
}

func (s *Store) UpdateBlockedWords(ctx context.Context, guildID string, cfg BlockedWords) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[guildID] = normalizeWords(cfg)
	return save(ctx, s.tables.BlockedWords, s.words, "blocked_words")
}

func (s *Store) UpdateBlockedDomains(ctx context.Context, guildID string, cfg BlockedDomains) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[guildID] = normalizeDomains(cfg)
	return save(ctx, s.tables.BlockedDomains, s.domains, "blocked_domains")
}

func (s *Store) SetCustomCommand(ctx context.Context, guildID, name string, cmd CustomCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commands[guildID] == nil {
		s.commands[guildID] = map[string]CustomCommand{}
	}
	s.commands[guildID][strings.ToLower(name)] = cmd
	return save(ctx, s.tables.CustomCommands, s.commands, "custom_commands")
}

func (s *Store) SetAutoReactions(ctx context.Context, guildID string, reacts []AutoReaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reacts[guildID] = append([]AutoReaction(nil), reacts...)
	return save(ctx, s.tables.AutoReactions, s.reacts, "auto_reactions")
}

func save[V any](ctx context.Context, table storage.Table[V], entries map[string]V, name string) error {
	if table == nil {
		return nil
	}
	if err := table.Save(ctx, entries); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func withWordDefaults(cfg BlockedWords) BlockedWords {
	if cfg.EscalationThresholds.Timeout <= 0 {
		cfg.EscalationThresholds = DefaultBlockedWords().EscalationThresholds
	}
	return cfg
}

func withDomainDefaults(cfg BlockedDomains) BlockedDomains {
	if cfg.EscalationThresholds.Timeout <= 0 {
		cfg.EscalationThresholds = DefaultBlockedDomains().EscalationThresholds
	}
	return cfg
}

func normalizeWords(cfg BlockedWords) BlockedWords {
	cfg.BlockedWords = lowerAll(cfg.BlockedWords)
	cfg.Whitelist = lowerAll(cfg.Whitelist)
	return cfg
}

func normalizeDomains(cfg BlockedDomains) BlockedDomains {
	cfg.BlockedDomains = lowerAll(cfg.BlockedDomains)
	cfg.Whitelist = lowerAll(cfg.Whitelist)
	return cfg
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
