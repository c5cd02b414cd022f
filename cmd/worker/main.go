package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/email"
	"github.com/skytide/travelbooking/internal/kafka"
	"github.com/skytide/travelbooking/internal/repository"
	"github.com/skytide/travelbooking/internal/service/quotes"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logrus.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	quoteRepo := repository.NewQuoteRepository(pool)
	quoteService := quotes.NewQuoteService(
		quoteRepo,
		producer,
		quotes.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		quotes.WithDefaultValidityDays(cfg.Quotes.DefaultValidityDays),
		quotes.WithWarningWindow(time.Duration(cfg.Quotes.ExpiryWarningDays)*24*time.Hour),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			logrus.WithError(err).Info("consumer stopped")
		}
	}()

	sweepMinutes := cfg.Worker.QuoteSweepMinutes
	if sweepMinutes <= 0 {
		sweepMinutes = 60
	}
	sweepTicker := time.NewTicker(time.Duration(sweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			report, err := quoteService.ExpireSweep(ctx)
			if err != nil {
				logrus.WithError(err).Error("quote sweep error")
				continue
			}
			if report.Expired > 0 {
				logrus.Infof("expired %d quotes", report.Expired)
			}
		case s := <-sig:
			logrus.Infof("received signal %v, shutting down", s)
			return
		}
	}
}
