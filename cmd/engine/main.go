package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mossboard/internal/config"
	"mossboard/internal/database"
	"mossboard/internal/engine"
	"mossboard/internal/handlers"
	"mossboard/internal/logger"
	"mossboard/internal/middleware"
	"mossboard/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}()

	metrics := utils.NewMetricsCollector()
	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, metrics, log)

	server := handlers.NewServer(system, eng, metrics, auth, log)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/user/register", server.HandleUserRegistration())
	mux.HandleFunc("/user/login", server.HandleUserLogin())
	mux.HandleFunc("/user", server.HandleGetUser())

	// Reads work anonymously but pick up the viewer when a token is present
	mux.HandleFunc("/comment/tree", auth.OptionalAuth(server.HandleCommentTree()))
	mux.HandleFunc("/post/get", auth.OptionalAuth(server.HandlePostGet()))

	// Writes require authentication
	mux.HandleFunc("/post", auth.RequireAuth(server.HandlePost()))
	mux.HandleFunc("/post/archive", auth.RequireAuth(server.HandleArchivePost()))
	mux.HandleFunc("/post/vote", auth.RequireAuth(server.HandlePostVote()))
	mux.HandleFunc("/comment", auth.RequireAuth(server.HandleComment()))
	mux.HandleFunc("/comment/vote", auth.RequireAuth(server.HandleCommentVote()))
	mux.HandleFunc("/votes/mine", auth.RequireAuth(server.HandleMyVotes()))

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	handler := middleware.CORSMiddleware(corsConfig)(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("db", cfg.Database.Type).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func openStore(cfg *config.Config, log zerolog.Logger) (database.Adapter, error) {
	switch cfg.Database.Type {
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Database.URI, log)
		if err != nil {
			return nil, err
		}
		if err := db.InitializeTables(context.Background()); err != nil {
			return nil, err
		}
		return db, nil
	case "mongo":
		return database.NewMongoDB(cfg.Database.URI, log)
	case "memory":
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}
