package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/lifeline-health/platform/pkg/auth"
	"github.com/lifeline-health/platform/pkg/common/config"
	"github.com/lifeline-health/platform/pkg/common/database"
	"github.com/lifeline-health/platform/pkg/common/kafka"
	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/emergency"
	"github.com/lifeline-health/platform/pkg/profile"
	"github.com/lifeline-health/platform/pkg/qrtoken"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	profileRepo := profile.NewRepository(db)
	if err := profileRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate profile tables")
	}
	emergencyRepo := emergency.NewRepository(db)
	if err := emergencyRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate emergency tables")
	}

	redisClient := database.GetRedis()
	defer database.CloseRedis()
	statusCache := emergency.NewStatusCache(redisClient, cfg.StatusCacheTTL)

	producer := kafka.NewProducer(cfg.EmergencyTopic)
	defer producer.Close()

	codec, err := qrtoken.New(cfg.TokenPassphrase, cfg.TokenSalt)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize token codec")
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize jwt manager")
	}

	validator := auth.TokenValidator(jwtManager)
	if cfg.OIDCIssuer != "" {
		oidc, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to initialize oidc authenticator")
		}
		validator = auth.Fallback(jwtManager, oidc)
		logger.Log.WithField("issuer", cfg.OIDCIssuer).Info("Responder SSO enabled")
	}

	profileService := profile.NewService(profileRepo)
	emergencyService := emergency.NewService(codec, emergencyRepo, cfg.TokenTTL, statusCache, producer)

	if cfg.SeedDemoData {
		profileService.SeedDemoAccounts(context.Background())
	}

	profileHandler := profile.NewHandler(profileService, jwtManager)
	emergencyHandler := emergency.NewHandler(emergencyService, profileService)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	public := router.PathPrefix("/api/v1").Subrouter()
	public.Use(auth.Recovery, auth.Logging)
	profileHandler.RegisterPublic(public)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Recovery, auth.Logging, auth.Authenticate(validator))
	profileHandler.Register(api)
	emergencyHandler.Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      http.MaxBytesHandler(router, cfg.MaxRequestBody),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Emergency service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start emergency service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down emergency service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Emergency service forced to shutdown")
	}
	logger.Log.Info("Emergency service stopped")
}
