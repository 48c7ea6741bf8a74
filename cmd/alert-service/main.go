package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lifeline-health/platform/pkg/common/config"
	"github.com/lifeline-health/platform/pkg/common/database"
	"github.com/lifeline-health/platform/pkg/common/kafka"
	"github.com/lifeline-health/platform/pkg/common/logger"
	"github.com/lifeline-health/platform/pkg/notify"
)

func main() {
	logger.Init()
	cfg := config.Load()

	rules, err := notify.LoadRules(cfg.AlertRulesPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.AlertRulesPath).
			Warn("failed to load alert rules, using defaults")
		rules = notify.DefaultRules()
	}

	redisClient := database.GetRedis()
	defer database.CloseRedis()

	notifier := notify.NewNotifier(rules, redisClient, cfg.AlertDedupeWindow)

	consumer := kafka.NewConsumer(cfg.EmergencyTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down alert service...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.EmergencyTopic).Info("Alert service consuming")
	if err := consumer.Consume(ctx, notifier.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Fatal("alert service consumer failed")
	}
	logger.Log.Info("Alert service stopped")
}
