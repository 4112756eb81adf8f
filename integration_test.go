//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	checkoutEvents "github.com/Darshan-360/service-checkout/internal/events"
	"github.com/Darshan-360/service-checkout/internal/platform/kafka"
	"github.com/Darshan-360/service-checkout/internal/platform/middleware"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/Darshan-360/service-checkout/internal/signature"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func amount(v int64) *int64 { return &v }

var goaTrip = &checkout.TripRef{ID: "trip_goa", Title: "Goa Getaway"}

// TestPostgres_CheckoutLifecycle runs create-order then verify-payment against the documents
// table and checks both records end up paid.
func TestPostgres_CheckoutLifecycle(t *testing.T) {
	db := startPostgres(t)
	docs := repository.NewGormDocuments(db)
	svc := newCheckoutService(docs, &checkoutEvents.RecordingPublisher{}, checkoutEvents.NewMemoryOnceGuard())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, application.CreateOrderRequest{
		Amount: amount(250000),
		Trip:   goaTrip,
		UserID: "user_1",
	})
	require.NoError(t, err)
	assert.True(t, order.ServerCreatesBookings)
	assert.True(t, order.ServerCreatesPayments)

	res, err := svc.VerifyPayment(ctx, application.VerifyPaymentRequest{
		Order: &application.OrderRef{ID: order.ID, Amount: amount(250000), Currency: "INR"},
		Razorpay: &application.GatewayConfirmation{
			PaymentID: "pay_1",
			OrderID:   order.ID,
			Signature: signature.Sign(order.ID, "pay_1", testSecret),
		},
		Trip:   goaTrip,
		UserID: "user_1",
	})
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.True(t, res.PaymentsRecorded)

	booking, err := svc.GetBooking(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.BookingPaid, booking.Status)
	assert.Equal(t, "Goa Getaway", booking.TripTitle)

	payment, err := svc.GetPayment(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentPaid, payment.Status)
	require.NotNil(t, payment.Amount)
	assert.Equal(t, int64(250000), *payment.Amount)

	// A late failure report must not downgrade the paid records.
	failRes, err := svc.RecordPaymentFailure(ctx, application.RecordFailureRequest{
		Order:   &application.OrderRef{ID: order.ID},
		Trip:    goaTrip,
		UserID:  "user_1",
		Failure: json.RawMessage(`{"code":"PAYMENT_CANCELLED"}`),
	})
	require.NoError(t, err)
	assert.True(t, failRes.PaymentsRecorded)

	payment, err = svc.GetPayment(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentPaid, payment.Status)

	bookings, err := svc.ListUserBookings(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, order.ID, bookings[0].ID)
}

// TestPostgres_ConcurrentCreateOrUpdate races several writers at one new id; the losers of the
// insert must fall back to updating and every writer reports success.
func TestPostgres_ConcurrentCreateOrUpdate(t *testing.T) {
	db := startPostgres(t)
	store := repository.NewRecordStore(repository.NewGormDocuments(db), "bookings", "payments", zap.NewNop())
	ctx := context.Background()

	const writers = 8
	results := make([]repository.Result, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.CreateOrUpdateBooking(ctx,
				checkout.NewBooking("order_race", goaTrip, "user_1", checkout.BookingPending, time.Now()))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.True(t, res.OK(), "writer %d: %s %v", i, res.Outcome, res.Err)
	}

	var rows int64
	require.NoError(t, db.Model(&repository.DocumentModel{}).
		Where("collection = ? AND id = ?", "bookings", "order_race").
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

// TestKafka_PaidEventPublishedOnce verifies a replayed confirmation reaches the topic once, with
// the once-only guard held in Redis.
func TestKafka_PaidEventPublishedOnce(t *testing.T) {
	brokers := startKafka(t)
	rdb := startRedis(t)
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(brokers, logger)
	t.Cleanup(func() { _ = producer.Close() })

	svc := newCheckoutService(repository.NewMemoryDocuments(),
		checkoutEvents.NewKafkaPublisher(producer, eventsTopic, logger),
		checkoutEvents.NewRedisOnceGuard(rdb, "test:once:", time.Hour))

	handler := &collectingHandler{}
	startConsumer(t, brokers, handler)
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, application.CreateOrderRequest{Amount: amount(1000), Trip: goaTrip, UserID: "user_1"})
	require.NoError(t, err)

	verify := application.VerifyPaymentRequest{
		Order: &application.OrderRef{ID: order.ID, Amount: amount(1000), Currency: "INR"},
		Razorpay: &application.GatewayConfirmation{
			PaymentID: "pay_1",
			Signature: signature.Sign(order.ID, "pay_1", testSecret),
		},
		Trip:   goaTrip,
		UserID: "user_1",
	}
	for i := 0; i < 3; i++ {
		_, err := svc.VerifyPayment(ctx, verify)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		created, paid, _ := handler.counts()
		return created == 1 && paid == 1
	}, 15*time.Second, 200*time.Millisecond)

	// Give any duplicate a chance to arrive before asserting there was none.
	time.Sleep(2 * time.Second)
	_, paid, _ := handler.counts()
	assert.Equal(t, 1, paid)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, order.ID, handler.paid[0].OrderID)
	assert.Equal(t, "pay_1", handler.paid[0].PaymentID)
	assert.True(t, handler.paid[0].PaymentRecorded)
}

// TestRedis_RateLimit checks the checkout limiter rejects requests past the per-window limit.
func TestRedis_RateLimit(t *testing.T) {
	rdb := startRedis(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/create-order", middleware.RateLimit(rdb, 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	status := func() int {
		req := httptest.NewRequest(http.MethodPost, "/create-order", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusTooManyRequests, status())

	ttl, err := rdb.TTL(context.Background(), "rate_limit:/create-order:203.0.113.7").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
