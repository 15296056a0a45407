package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndavila/comprobantes-bot/internal/config"
	"github.com/ndavila/comprobantes-bot/internal/extract"
	"github.com/ndavila/comprobantes-bot/internal/flow"
	"github.com/ndavila/comprobantes-bot/internal/logger"
	"github.com/ndavila/comprobantes-bot/internal/repository"
	"github.com/ndavila/comprobantes-bot/internal/session"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repository")
	}

	extractor, err := extract.NewService(ctx, cfg.GeminiAPIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create extraction service")
	}

	client := whatsapp.NewClient(cfg.MetaAccessToken, cfg.MetaPhoneID, log)

	// The store's expiry hook needs the controller, which needs the store;
	// the closure breaks the cycle.
	var controller *flow.Controller
	store := session.NewStore(cfg.SessionTTL, func(sender string) {
		log.Info().Str("sender", sender).Msg("session expired by inactivity")
		controller.ExpireNotice(sender)
	})
	controller = flow.NewController(store, repo, extractor, client, client, cfg.PayeeThreshold, log)

	mux := http.NewServeMux()
	whatsapp.NewWebhookHandler(cfg.VerifyToken, controller, log).Register(mux)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening for webhooks")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
