package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vchess/vchess-go/internal/boardsync"
	appcfg "github.com/vchess/vchess-go/internal/config"
	"github.com/vchess/vchess-go/internal/game"
	"github.com/vchess/vchess-go/internal/httpapi"
	"github.com/vchess/vchess-go/internal/msgcat"
	"github.com/vchess/vchess-go/internal/obslog"
	"github.com/vchess/vchess-go/internal/session"
	"github.com/vchess/vchess-go/internal/stats"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	opts, err := game.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	gameStore := game.NewRedisStore(rdb)
	sessions := session.NewRedisStore(rdb)

	ctrl := boardsync.NewController(gameStore, game.NewRulesEngine(), sessions, cat, boardsync.Options{
		InitialTimeLeft: cfg.InitialTimeLeft,
	})

	if cfg.DatabaseURL != "" {
		repo, err := stats.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("stats repo init error: %v", err)
		}
		defer repo.Close()
		ctrl.AttachStatistics(repo)
	} else {
		obslog.L().Warn("stats_disabled", zap.String("reason", "DATABASE_URL not set"))
	}

	app := fiber.New()
	app.Use(recoverer.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Viewer-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	httpapi.NewHandler(ctrl, cfg.RefreshInterval).Register(app)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			obslog.L().Fatal("listen_error", zap.Error(err))
		}
	}()
	obslog.L().Info("server_start", zap.String("addr", cfg.ListenAddr))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	obslog.L().Info("server_shutdown")
	_ = app.Shutdown()
}
