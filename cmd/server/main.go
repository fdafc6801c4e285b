package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/PRobi23/doodlekong/crypto"
	"github.com/PRobi23/doodlekong/game"
	"github.com/PRobi23/doodlekong/migrations"
	"github.com/PRobi23/doodlekong/session"
	"github.com/PRobi23/doodlekong/shared/configs"
	"github.com/PRobi23/doodlekong/shared/logger"
	"github.com/PRobi23/doodlekong/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// RegisterRoutes mounts the room API and the drawing socket.
func RegisterRoutes(r *gin.Engine, h *game.GameHandler, sessions gin.HandlerFunc) {
	{
		api := r.Group("/api")
		api.POST("/createRoom", h.CreateRoomHandler)
		api.GET("/getRooms", h.GetRoomsHandler)
		api.GET("/joinRoom", h.JoinRoomHandler)
	}
	{
		ws := r.Group("/ws")
		ws.Use(sessions)
		ws.GET("/draw", h.DrawSocketHandler)
	}
}

// RoomConfigs overlays the configured timings on the room defaults. Zero
// values keep the default.
func RoomConfigs(g configs.GameConfig) game.RoomConfigs {
	c := game.DefaultRoomConfigs()
	overlay := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	overlay(&c.WaitingForStart, g.WaitingForStart)
	overlay(&c.NewRound, g.NewRound)
	overlay(&c.GameRunning, g.GameRunning)
	overlay(&c.ShowWord, g.ShowWord)
	overlay(&c.GracePeriod, g.GracePeriod)
	c.HeartbeatInterval = g.HeartbeatInterval
	if g.ChatRate > 0 {
		c.ChatLimit = rate.Limit(g.ChatRate)
	}
	if g.ChatBurst > 0 {
		c.ChatBurst = g.ChatBurst
	}
	return c
}

// wordBank picks the word source. The postgres bank is migrated, seeded with
// the embedded list when empty and backed by it when a query fails.
func wordBank(ctx context.Context, cfg configs.WordsConfig, logger zerolog.Logger) (game.WordBank, func(), error) {
	embedded := game.NewDefaultWordBank()
	if cfg.Source != "postgres" {
		logger.Info().Int("words", embedded.Len()).Msg("using embedded word bank")
		return embedded, func() {}, nil
	}

	if err := migrations.Migrate(cfg.PostgresURL); err != nil {
		return nil, nil, err
	}
	repo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}

	count, err := repo.CountWords(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	if count == 0 {
		inserted, err := repo.SeedWords(ctx, game.DefaultWords())
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		logger.Info().Int64("inserted", inserted).Msg("seeded word table")
	}

	return game.NewFallbackWordBank(repo, embedded), repo.Close, nil
}

func main() {
	configPath := flag.String("config", os.Getenv("DOODLEKONG_CONFIG"), "path to a config file")
	flag.Parse()

	cfg, err := configs.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	logger, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("setting up logger")
	}
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	words, closeWords, err := wordBank(ctx, cfg.Words, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("source", cfg.Words.Source).Msg("preparing word bank")
	}
	defer closeWords()

	tickerGen := game.NewTickerGen()
	registry := game.NewRegistry(cfg.Game.MaxRoomSize, RoomConfigs(cfg.Game), words, tickerGen, logger)
	dispatcher := game.NewDispatcher(registry, tickerGen, cfg.Game.SendBuffer, cfg.Server.PingInterval, logger)
	gameHandler := game.NewGameHandler(registry, dispatcher, cfg.Server.AllowedOrigins, cfg.Server.ReadTimeout, logger)

	tokenManager := crypto.NewJWTManager(cfg.Session.Key, cfg.Session.MaxAge)
	cookie := session.DefaultCookieConfig()
	cookie.Name = cfg.Session.CookieName
	cookie.MaxAge = tokenManager.MaxAge()
	cookie.Secure = cfg.Session.Secure

	r := CreateServer(cfg.Server.AllowedOrigins)
	RegisterRoutes(r, gameHandler, session.Middleware(tokenManager, cookie, time.Now, logger))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()
	logger.Info().Str("addr", cfg.Server.Addr).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, closing rooms")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := registry.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("rooms did not close in time")
	}
	logger.Info().Msg("shutting down now")
}
