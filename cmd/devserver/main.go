// devserver serves the Authentication Service, team management, analysis and chat endpoints the
// CLI talks to, backed by in-memory stores. Accounts and teams do not survive a restart.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/analysis"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/chat"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/config"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/devserver"
	identityrepo "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/repository"
	identityservice "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/service"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/logger"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/security"
	teamservice "github.com/hariseldon84/singlebrief-full-sub000/internal/teammgmt/service"
	sbotel "github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.IsProduction()})
	defer func() { _ = log.Sync() }()

	providers, err := sbotel.NewProviders(context.Background(), cfg.OTLPEndpoint, "singlebrief-devserver", "", cfg.OTLPInsecure)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()

	signer, pub, ephemeral, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		log.Fatal("jwt keys", zap.Error(err))
	}
	if ephemeral {
		log.Warn("JWT_PRIVATE_KEY not set; signing with an ephemeral key, tokens will not survive a restart")
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	identity := identityrepo.NewMemoryRepository()
	app := devserver.New(devserver.Deps{
		Auth:      identityservice.NewAuthService(identity, security.NewHasher(cfg.BcryptCost), tokens),
		Identity:  identity,
		Directory: teamservice.NewDirectory(0),
		Analysis:  analysis.NewSimulatedService(cfg.SimulatedDelay()),
		Responder: chat.AcknowledgeResponder,
		Logger:    log.Named("devserver"),
	})

	go func() {
		log.Info("devserver listening", zap.String("addr", cfg.DevserverAddr))
		if err := app.Listen(cfg.DevserverAddr); err != nil {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down devserver...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		log.Warn("telemetry shutdown", zap.Error(err))
	}
	log.Info("devserver stopped")
}
