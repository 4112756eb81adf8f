//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Darshan-360/service-checkout/internal/adapter"
	"github.com/Darshan-360/service-checkout/internal/application"
	checkoutEvents "github.com/Darshan-360/service-checkout/internal/events"
	"github.com/Darshan-360/service-checkout/internal/platform/database"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/Darshan-360/service-checkout/internal/signature"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret  = "rzp_test_secret"
	eventsTopic = "payment.events"
)

// startPostgres starts a PostgreSQL container and returns a migrated connection.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_checkout",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_checkout",
		SSLMode:  "disable",
	}

	// Poll until the server accepts connections, not just logs readiness.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, zap.NewNop())
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, repository.NewGormDocuments(db).AutoMigrate())
	return db
}

// startRedis starts a Redis container and returns a connected client.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

// startKafka starts a KRaft Kafka container with the checkout topic created.
func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, eventsTopic)
	return brokers
}

// newCheckoutService wires a checkout service over docs with the mock gateway.
func newCheckoutService(docs repository.Documents, publisher checkoutEvents.Publisher, guard checkoutEvents.OnceGuard) *application.CheckoutService {
	logger, _ := zap.NewDevelopment()
	return application.NewCheckoutService(
		application.NewOrderService(adapter.NewMockRazorpayAdapter(logger), logger),
		repository.NewRecordStore(docs, "bookings", "payments", logger),
		signature.NewVerifier(testSecret),
		publisher,
		guard,
		logger,
	)
}

// collectingHandler records every checkout event the consumer delivers.
type collectingHandler struct {
	mu      sync.Mutex
	created []checkoutEvents.OrderCreatedEvent
	paid    []checkoutEvents.PaymentPaidEvent
	failed  []checkoutEvents.PaymentFailedEvent
}

func (h *collectingHandler) OnOrderCreated(_ context.Context, e checkoutEvents.OrderCreatedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, e)
	return nil
}

func (h *collectingHandler) OnPaymentPaid(_ context.Context, e checkoutEvents.PaymentPaidEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paid = append(h.paid, e)
	return nil
}

func (h *collectingHandler) OnPaymentFailed(_ context.Context, e checkoutEvents.PaymentFailedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, e)
	return nil
}

func (h *collectingHandler) counts() (created, paid, failed int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.created), len(h.paid), len(h.failed)
}

// startConsumer runs a CheckoutEventConsumer in its own group until the test ends.
func startConsumer(t *testing.T, brokers []string, handler checkoutEvents.CheckoutEventHandler) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	groupID := fmt.Sprintf("test-checkout-%s", uuid.New().String()[:8])
	consumer := checkoutEvents.NewCheckoutEventConsumer(brokers, groupID, eventsTopic, handler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = consumer.Close()
	})
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
