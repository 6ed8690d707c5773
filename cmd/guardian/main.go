package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"guardian-automod/internal/analytics"
	"guardian-automod/internal/bot"
	"guardian-automod/internal/clock"
	"guardian-automod/internal/config"
	"guardian-automod/internal/embeds"
	"guardian-automod/internal/health"
	"guardian-automod/internal/logging"
	"guardian-automod/internal/modules/antiraid"
	"guardian-automod/internal/modules/audit"
	"guardian-automod/internal/modules/autoreact"
	"guardian-automod/internal/modules/customcmd"
	"guardian-automod/internal/modules/leveling"
	"guardian-automod/internal/modules/linkscan"
	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/policy"
	"guardian-automod/internal/spamtrack"
	"guardian-automod/internal/storage"
	"guardian-automod/internal/violation"
)

const auditCleanupInterval = 24 * time.Hour

// documents picks the backend for the JSON policy and logging documents.
type documents struct {
	cfg   config.Config
	store *storage.Store
	pool  *pgxpool.Pool
}

func openTable[V any](d documents, name string) storage.Table[V] {
	switch d.cfg.Storage.Backend {
	case "sqlite":
		return storage.NewSQLiteTable[V](d.store, name)
	case "postgres":
		return storage.NewPostgresTable[V](d.pool, name)
	default:
		return storage.NewJSONTable[V](d.cfg.DataFile(name + ".json"))
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	docs := documents{cfg: cfg, store: store}
	if cfg.Storage.Backend == "postgres" {
		pool, err := storage.NewPostgresPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer pool.Close()
		docs.pool = pool
	}
	logger.Info("document storage ready", zap.String("backend", cfg.Storage.Backend))

	policies := policy.New(ctx, policy.Tables{
		BlockedWords:   openTable[policy.BlockedWords](docs, "blocked_words"),
		BlockedDomains: openTable[policy.BlockedDomains](docs, "blocked_domains"),
		CustomCommands: openTable[map[string]policy.CustomCommand](docs, "custom_commands"),
		AutoReactions:  openTable[[]policy.AutoReaction](docs, "auto_reactions"),
	}, logger)

	gateway, err := bot.NewGateway(cfg.DiscordToken, logger)
	if err != nil {
		logger.Fatal("gateway init failed", zap.Error(err))
	}

	clk := clock.Real()
	factory := embeds.NewFactory(clk.Now)
	manager := logging.NewManager(ctx,
		openTable[map[string]bool](docs, "logging_config"),
		openTable[string](docs, "log_channels"),
		gateway, factory, logger)

	auditLogger := audit.NewLogger(store, clk, logger)
	enforcer := violation.New(gateway, store, manager, auditLogger, clk, logger)

	var windows spamtrack.WindowStore
	if cfg.Redis.Enabled {
		client := spamtrack.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		windows = spamtrack.NewRedisStore(client, "guardian:spam:")
	} else {
		memory := spamtrack.NewMemoryStore()
		go memory.RunSweeper(ctx, time.Duration(cfg.Spam.SweepIntervalSeconds)*time.Second, clk.Now)
		windows = memory
	}
	tracker := spamtrack.NewTracker(windows, spamtrack.LimitsFromConfig(cfg.Spam), clk, logger)

	features := []pipeline.Feature{autoreact.New(policies, gateway)}
	if cfg.Leveling.Enabled {
		features = append(features, leveling.New(store, gateway, cfg.Leveling, logger))
	}
	links := linkscan.New(cfg.LinkWhitelist)
	moderation := pipeline.New(pipeline.Deps{
		Policies: policies,
		Enforcer: enforcer,
		Spam:     tracker,
		Links:    links,
		Commands: customcmd.New(policies, gateway, logger),
		Invites:  gateway,
		Features: features,
		Audit:    auditLogger,
		Clock:    clk,
		Logger:   logger,
	}, pipeline.Settings{
		MaxMentions:        cfg.MaxMentions,
		AllowedLinkChannel: cfg.AllowedLinkChannel,
	})

	var server *health.Server
	if cfg.Health.Enabled {
		server = health.NewServer(cfg.Health.Addr)
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.Start(); err != nil {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	svc := bot.Services{
		Pipeline:  moderation,
		Logging:   manager,
		AntiRaid:  antiraid.New(cfg.Raid, manager, auditLogger, clk, logger),
		Audit:     auditLogger,
		Analytics: analytics.New(store),
		Policies:  policies,
		Enforcer:  enforcer,
		Warnings:  store,
		Links:     links,
	}
	if server != nil {
		svc.Health = server
	}
	botSvc := bot.New(gateway, svc, logger)
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	go cleanupAuditLogs(ctx, store, cfg.AuditRetentionDays, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	if err := botSvc.Close(shutdownCtx); err != nil {
		logger.Warn("bot close failed", zap.Error(err))
	}
}

func cleanupAuditLogs(ctx context.Context, store *storage.Store, retentionDays int, logger *zap.Logger) {
	if retentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(auditCleanupInterval)
	defer ticker.Stop()
	for {
		removed, err := store.CleanupAuditLogs(ctx, retentionDays)
		if err != nil {
			logger.Warn("audit cleanup failed", zap.Error(err))
		} else if removed > 0 {
			logger.Info("audit logs pruned", zap.Int64("removed", removed))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
