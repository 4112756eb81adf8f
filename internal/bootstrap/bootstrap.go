// Package bootstrap builds the checkout component graph shared by the long-running server and
// the serverless functions.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Darshan-360/service-checkout/internal/adapter"
	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/config"
	"github.com/Darshan-360/service-checkout/internal/events"
	"github.com/Darshan-360/service-checkout/internal/handler"
	"github.com/Darshan-360/service-checkout/internal/platform/database"
	"github.com/Darshan-360/service-checkout/internal/platform/kafka"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/Darshan-360/service-checkout/internal/signature"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Collection names used when the store driver is not Appwrite and none are configured.
const (
	DefaultBookingsCollection = "bookings"
	DefaultPaymentsCollection = "payments"
)

const onceGuardTTL = 7 * 24 * time.Hour

// App is the wired component graph.
type App struct {
	Checkout        *application.CheckoutService
	CheckoutHandler *handler.CheckoutHandler
	BookingHandler  *handler.BookingHandler
	HealthChecks    map[string]handler.HealthCheck
	// Redis is nil unless REDIS_ADDR is set.
	Redis *redis.Client

	closers []func() error
}

// Close releases every connection opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires the checkout service from cfg.
func Build(cfg *config.ServiceConfig, logger *zap.Logger) (*App, error) {
	app := &App{HealthChecks: make(map[string]handler.HealthCheck)}

	store, err := app.buildStore(cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	gateway, err := buildGateway(cfg.Gateway, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	publisher := app.buildPublisher(cfg.KafkaConfig, logger)
	guard := app.buildOnceGuard(cfg.RedisConfig, logger)

	app.Checkout = application.NewCheckoutService(
		application.NewOrderService(gateway, logger),
		store,
		signature.NewVerifier(cfg.Gateway.KeySecret),
		publisher,
		guard,
		logger,
	)
	app.CheckoutHandler = handler.NewCheckoutHandler(app.Checkout, logger)
	app.BookingHandler = handler.NewBookingHandler(app.Checkout)
	return app, nil
}

func (a *App) buildStore(cfg *config.ServiceConfig, logger *zap.Logger) (*repository.RecordStore, error) {
	bookings := cfg.Appwrite.BookingsCollectionID
	payments := cfg.Appwrite.PaymentsCollectionID

	switch cfg.StoreDriver {
	case config.StoreAppwrite, "":
		if !cfg.Appwrite.Complete() {
			logger.Warn("appwrite admin env not fully set, bookings will not be recorded server-side")
			return repository.NewRecordStore(nil, bookings, payments, logger), nil
		}
		docs := repository.NewAppwriteDocuments(repository.AppwriteCredentials{
			Endpoint:   cfg.Appwrite.Endpoint,
			ProjectID:  cfg.Appwrite.ProjectID,
			DatabaseID: cfg.Appwrite.DatabaseID,
			APIKey:     cfg.Appwrite.APIKey,
		}, nil)
		return repository.NewRecordStore(docs, bookings, payments, logger), nil

	case config.StorePostgres:
		db, err := database.Connect(cfg.DBConfig, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.HealthChecks["postgres"] = sqlDB.PingContext

		docs := repository.NewGormDocuments(db)
		if err := docs.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate documents table: %w", err)
		}
		return repository.NewRecordStore(docs, orDefault(bookings, DefaultBookingsCollection),
			orDefault(payments, DefaultPaymentsCollection), logger), nil

	case config.StoreMemory:
		logger.Warn("using in-memory document store, records are lost on restart")
		return repository.NewRecordStore(repository.NewMemoryDocuments(),
			orDefault(bookings, DefaultBookingsCollection), orDefault(payments, DefaultPaymentsCollection), logger), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func buildGateway(cfg config.GatewayConfig, logger *zap.Logger) (adapter.PaymentGateway, error) {
	switch cfg.Driver {
	case config.GatewayMock:
		return adapter.NewMockRazorpayAdapter(logger), nil
	case config.GatewayRazorpay, "":
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			logger.Warn("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set, order creation and verification will fail")
		}
		return adapter.NewRazorpayAdapter(cfg.KeyID, cfg.KeySecret, logger), nil
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Driver)
	}
}

func (a *App) buildPublisher(cfg config.KafkaConfig, logger *zap.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, checkout events are not published")
		return events.NoopPublisher{}
	}
	producer := kafka.NewProducer(cfg.Brokers, logger)
	a.closers = append(a.closers, producer.Close)
	return events.NewKafkaPublisher(producer, cfg.Topic, logger)
}

func (a *App) buildOnceGuard(cfg config.RedisConfig, logger *zap.Logger) events.OnceGuard {
	if cfg.Addr == "" {
		return events.NewMemoryOnceGuard()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)
	a.HealthChecks["redis"] = func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
	logger.Info("redis enabled for rate limiting and once-only events", zap.String("addr", cfg.Addr))
	return events.NewRedisOnceGuard(rdb, "checkout:once:", onceGuardTTL)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
