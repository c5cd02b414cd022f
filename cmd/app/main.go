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
	"github.com/skytide/travelbooking/internal/bootstrap"
	"github.com/skytide/travelbooking/internal/cache"
	"github.com/skytide/travelbooking/internal/kafka"
	"github.com/skytide/travelbooking/internal/payment"
	"github.com/skytide/travelbooking/internal/provider"
	"github.com/skytide/travelbooking/internal/repository"
	"github.com/skytide/travelbooking/internal/service/booking"
	"github.com/skytide/travelbooking/internal/service/cancellation"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logrus.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(
		cfg.Redis,
		time.Duration(cfg.Quotes.OfferCacheTTLSeconds)*time.Second,
		time.Duration(cfg.Quotes.IdempotencyTTLHours)*time.Hour,
	)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := provider.NewTokenCache(cfg.Provider)
	inventory := provider.NewClient(cfg.Provider, tokens)
	payments := payment.NewClient(cfg.Payment)

	bookingRepo := repository.NewBookingRepository(pool)
	quoteRepo := repository.NewQuoteRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		inventory,
		redisCache,
		producer,
		booking.WithEventsTopic(cfg.Kafka.BookingEventsTopic),
		booking.WithPaymentVerifier(payments),
	)
	cancellationService := cancellation.NewCancellationService(
		bookingRepo,
		payments,
		inventory,
		producer,
		cancellation.WithEventsTopic(cfg.Kafka.BookingEventsTopic),
	)
	quoteService := quotes.NewQuoteService(
		quoteRepo,
		producer,
		quotes.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		quotes.WithDefaultValidityDays(cfg.Quotes.DefaultValidityDays),
		quotes.WithWarningWindow(time.Duration(cfg.Quotes.ExpiryWarningDays)*24*time.Hour),
	)

	if err := bootstrap.Run(ctx, cfg, bookingService, cancellationService, quoteService); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}
