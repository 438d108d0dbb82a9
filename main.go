package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/overwatchkr/overwatch-bot/overwatch"
	"github.com/overwatchkr/overwatch-bot/overwatch/autovc"
	"github.com/overwatchkr/overwatch-bot/overwatch/commands"
	"github.com/overwatchkr/overwatch-bot/overwatch/database"
	"github.com/overwatchkr/overwatch-bot/overwatch/database/repositories"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy/cooldown"
	"github.com/overwatchkr/overwatch-bot/overwatch/economy/shop"
	"github.com/overwatchkr/overwatch-bot/overwatch/gateway"
	"github.com/overwatchkr/overwatch-bot/overwatch/handlers"
	"github.com/overwatchkr/overwatch-bot/overwatch/logger"
	"github.com/overwatchkr/overwatch-bot/overwatch/migration"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(slog.LevelInfo)))

	slog.Info("Starting Overwatch Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	shouldImportLegacy := flag.Bool("import-legacy", false, "Import users and shop items from the legacy Mongo bot")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := overwatch.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := overwatch.New(*cfg, version, commit)
	b.DB = db
	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.ShopRepository = repositories.NewShopRepository(db.BunDB())
	b.AutoVCRepository = repositories.NewAutoVCRepository(db.BunDB())
	b.ModerationRepository = repositories.NewModerationRepository(db.BunDB())

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	b.Cooldowns = cooldown.NewTracker()
	b.Cooldowns.StartCleanupRoutine(runCtx, 10*time.Minute)

	if *shouldImportLegacy {
		importer, closeImporter, err := migration.Connect(ctx, db.BunDB(), cfg.Legacy.MongoURI, cfg.Legacy.Database)
		if err != nil {
			slog.Error("Legacy import setup failed", slog.Any("error", err))
			os.Exit(-1)
		}
		if err := importer.ImportAll(ctx); err != nil {
			closeImporter()
			slog.Error("Legacy import failed", slog.Any("error", err))
			os.Exit(-1)
		}
		closeImporter()
	}

	h := handler.New()

	// Economy
	h.Command("/잔고", handlers.WrapWithLogging("잔고", commands.BalanceHandler(b)))
	h.Command("/인벤토리", handlers.WrapWithLogging("인벤토리", commands.InventoryHandler(b)))
	h.Command("/송금", handlers.WrapWithLogging("송금", commands.TransferHandler(b)))
	h.Command("/랭킹", handlers.WrapWithLogging("랭킹", commands.RankingHandler(b)))
	h.Command("/활동량", handlers.WrapWithLogging("활동량", commands.ActivityHandler(b)))

	// Games
	h.Command("/노동", handlers.WrapWithLogging("노동", commands.LaborHandler(b)))
	h.Command("/사다리", handlers.WrapWithLogging("사다리", commands.LadderHandler(b)))
	h.Command("/슬롯", handlers.WrapWithLogging("슬롯", commands.SlotsHandler(b)))

	// Shop
	commands.NewShopHandler(b).Register(h)
	commands.NewShopAdminHandler(b).Register(h)

	// Admin economy
	h.Command("/지급", handlers.WrapWithLogging("지급", commands.GrantHandler(b)))
	h.Command("/잔고초기화", handlers.WrapWithLogging("잔고초기화", commands.ResetBalancesHandler(b)))

	// Voice channels
	voiceHandler := commands.NewVoiceHandler(b)
	h.Route("/자동통화방", func(r handler.Router) {
		r.Command("/설정", handlers.WrapWithLogging("자동통화방-설정", voiceHandler.HandleConfigure))
		r.Command("/삭제", handlers.WrapWithLogging("자동통화방-삭제", voiceHandler.HandleRemoveGenerator))
	})
	h.Route("/통화방", func(r handler.Router) {
		r.Command("/이름", handlers.WrapWithLogging("통화방-이름", voiceHandler.HandleRename))
		r.Command("/인원", handlers.WrapWithLogging("통화방-인원", voiceHandler.HandleSetLimit))
	})

	// Moderation
	h.Command("/경고", handlers.WrapWithLogging("경고", commands.WarnHandler(b)))
	h.Command("/차단", handlers.WrapWithLogging("차단", commands.BanHandler(b)))
	h.Command("/유저정보", handlers.WrapWithLogging("유저정보", commands.UserInfoHandler(b)))

	// Social / system
	h.Command("/생일등록", handlers.WrapWithLogging("생일등록", commands.BirthdayHandler(b)))
	h.Command("/version", commands.VersionHandler(b))

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		handlers.MessageHandler(b),
		handlers.VoiceStateHandler(b),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	// The grant and voice subsystems talk to the platform through one adapter
	// over the client.
	gw := gateway.New(b.Client)

	b.ShopCoordinator = shop.NewCoordinator(b.UserRepository, b.ShopRepository, gw, cfg.Bot.GuildID)
	b.ShopCoordinator.StartSweeps(runCtx, time.Duration(cfg.Economy.SweepIntervalSeconds())*time.Second)

	b.VoiceManager = autovc.NewManager(b.AutoVCRepository, gw)
	if err := b.VoiceManager.Restore(ctx); err != nil {
		slog.Error("Failed to restore managed voice channels", slog.Any("error", err))
		os.Exit(-1)
	}
	b.VoiceManager.StartReconciler(runCtx, time.Duration(cfg.AutoVC.ReconcileIntervalSeconds())*time.Second)

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
