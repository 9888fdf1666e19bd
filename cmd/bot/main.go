package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"killergame/internal/config"
	"killergame/internal/game"
	"killergame/internal/store"
	"killergame/internal/telegram"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := initLogger(cfg.Bot.LogLevel)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	st, err := store.NewSQLiteStore(cfg.Store.Path, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	if cfg.Store.PurgeSchedule != "" {
		janitor, err := st.StartJanitor(cfg.Store.PurgeSchedule, cfg.Store.PurgeAge)
		if err != nil {
			logger.Fatal("janitor init failed", zap.Error(err))
		}
		defer janitor.Stop()
	}

	bot, err := telegram.NewBot(cfg.Bot, logger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	engine := game.NewEngine(game.Settings{
		MinPlayers:       cfg.Game.MinPlayers,
		MaxPlayers:       cfg.Game.MaxPlayers,
		NicknameTimeout:  cfg.Game.NicknameTimeout,
		VoteDeadline:     cfg.Game.VoteDeadline,
		CurseDeleteDelay: cfg.Game.CurseDeleteDelay,
	}, st, bot, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resume whatever was mid-game before the last shutdown, then go live.
	if err := engine.Recover(ctx); err != nil {
		logger.Fatal("recovery failed", zap.Error(err))
	}

	if cfg.Ops.Addr != "" {
		opsSrv := startOps(cfg.Ops.Addr, st, logger)
		defer opsSrv.Shutdown(context.Background())
	}

	if err := bot.Run(ctx, engine, cfg.Bot); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}

func initLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
