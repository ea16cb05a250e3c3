package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/edupal/backend/internal/config"
	"github.com/zhouzirui/edupal/backend/internal/handler"
	"github.com/zhouzirui/edupal/backend/internal/logging"
	"github.com/zhouzirui/edupal/backend/internal/model/dashboard"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/chat"
	"github.com/zhouzirui/edupal/backend/internal/service/responder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log)

	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	catalog, err := loadCatalog(cfg.Chat.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Chat.CatalogFile).Msg("failed to load role catalog")
	}

	resp, err := responder.New(ctx, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize responder")
	}

	chatService := chat.NewService(resp, chat.Config{
		ResponseDelay: cfg.Chat.ResponseDelay,
		MaxPending:    cfg.Chat.MaxPending,
		IdleTTL:       cfg.Chat.IdleTTL,
		SweepInterval: cfg.Chat.SweepInterval,
	})
	defer chatService.Shutdown()

	router := handler.NewRouter(catalog, dashboard.NewMemoryStore(), chatService, handler.Options{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Closing sessions ends open SSE and WebSocket streams so Shutdown can drain.
	srv.RegisterOnShutdown(chatService.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Dur("response_delay", cfg.Chat.ResponseDelay).Msg("EduPal backend listening")
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		return chatService.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		chatService.Shutdown()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func loadCatalog(path string) (*role.Catalog, error) {
	if path == "" {
		return role.DefaultCatalog(), nil
	}
	catalog, err := role.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("roles", len(catalog.List())).Msg("role catalog loaded")
	return catalog, nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
