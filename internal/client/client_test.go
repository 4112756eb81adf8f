package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Darshan-360/service-checkout/internal/adapter"
	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/Darshan-360/service-checkout/internal/events"
	"github.com/Darshan-360/service-checkout/internal/handler"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/Darshan-360/service-checkout/internal/signature"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "rzp_test_secret"

func amount(v int64) *int64 { return &v }

func testNow() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

var testTrip = &checkout.TripRef{ID: "trip_goa", Title: "Goa Getaway"}

// newServer runs the checkout endpoints over serverDocs. A nil serverDocs leaves the server's
// record store unconfigured so every flag comes back false.
func newServer(t *testing.T, serverDocs repository.Documents) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := repository.NewRecordStore(serverDocs, "bookings", "payments", logger)
	svc := application.NewCheckoutService(
		application.NewOrderService(adapter.NewMockRazorpayAdapter(logger), logger),
		store,
		signature.NewVerifier(testSecret),
		&events.RecordingPublisher{},
		events.NewMemoryOnceGuard(),
		logger,
	)
	router := gin.New()
	handler.NewCheckoutHandler(svc, logger).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type clientFixture struct {
	flow     *Flow
	userDocs *repository.MemoryDocuments
	store    *repository.RecordStore
	shadow   *SQLiteShadowStore
}

func newClientFixture(t *testing.T, baseURL string, userDocs repository.Documents) *clientFixture {
	t.Helper()
	shadow, err := NewSQLiteShadowStore(filepath.Join(t.TempDir(), "shadow", "bookings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = shadow.Close() })

	mem, _ := userDocs.(*repository.MemoryDocuments)
	store := repository.NewRecordStore(userDocs, "bookings", "payments", zap.NewNop())
	writer := NewFallbackWriter(store, shadow, zap.NewNop())
	return &clientFixture{
		flow:     NewFlow(NewAPIClient(baseURL+handler.NetlifyPrefix, nil), writer, zap.NewNop()),
		userDocs: mem,
		store:    store,
		shadow:   shadow,
	}
}

type deniedDocuments struct{}

var errDenied = errors.New("user is not authorized to perform the requested action")

func (deniedDocuments) Get(context.Context, string, string) (*repository.Document, error) {
	return nil, repository.ErrDocumentNotFound
}

func (deniedDocuments) Update(context.Context, string, string, map[string]any) (*repository.Document, error) {
	return nil, repository.ErrDocumentNotFound
}

func (deniedDocuments) Create(context.Context, string, string, map[string]any, []string) (*repository.Document, error) {
	return nil, errDenied
}

func (deniedDocuments) ListByField(context.Context, string, string, string) ([]*repository.Document, error) {
	return nil, errDenied
}

func TestFlow_ServerSkipsWrites_ClientFillsIn(t *testing.T) {
	srv := newServer(t, nil)
	fx := newClientFixture(t, srv.URL, repository.NewMemoryDocuments())
	ctx := context.Background()

	co, res, report, err := fx.flow.Begin(ctx, application.CreateOrderRequest{
		Amount: amount(250000),
		Trip:   testTrip,
		UserID: "user_1",
	})
	require.NoError(t, err)
	assert.False(t, res.ServerCreatesBookings)
	assert.False(t, res.ServerCreatesPayments)
	assert.Equal(t, "INR", res.Currency)
	assert.True(t, report.BookingWritten)
	assert.True(t, report.PaymentWritten)

	booking, err := fx.store.FindBooking(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.BookingPending, booking.Status)
	assert.Equal(t, "Goa Getaway", booking.TripTitle)

	payment, err := fx.store.FindPayment(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentCreated, payment.Status)
	require.NotNil(t, payment.Amount)
	assert.Equal(t, int64(250000), *payment.Amount)

	result, report, err := fx.flow.Complete(ctx, co, application.GatewayConfirmation{
		PaymentID: "pay_1",
		OrderID:   co.Order.ID,
		Signature: signature.Sign(co.Order.ID, "pay_1", testSecret),
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.Recorded)
	assert.True(t, report.BookingWritten)
	assert.True(t, report.PaymentWritten)

	booking, err = fx.store.FindBooking(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.BookingPaid, booking.Status)
	assert.Equal(t, "trip_goa", booking.TripID)

	payment, err = fx.store.FindPayment(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentPaid, payment.Status)
	require.NotNil(t, payment.PaymentID)
	assert.Equal(t, "pay_1", *payment.PaymentID)
}

func TestFlow_BadSignature_WritesNothingPaid(t *testing.T) {
	srv := newServer(t, nil)
	fx := newClientFixture(t, srv.URL, repository.NewMemoryDocuments())
	ctx := context.Background()

	co, _, _, err := fx.flow.Begin(ctx, application.CreateOrderRequest{Amount: amount(1000), Trip: testTrip, UserID: "user_1"})
	require.NoError(t, err)

	_, report, err := fx.flow.Complete(ctx, co, application.GatewayConfirmation{
		PaymentID: "pay_1",
		OrderID:   co.Order.ID,
		Signature: "forged",
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, application.MsgInvalidSignature, apiErr.Message)
	assert.False(t, report.Wrote())

	payment, err := fx.store.FindPayment(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentCreated, payment.Status)
}

func TestFlow_ServerWroteEverything_NoFallback(t *testing.T) {
	serverDocs := repository.NewMemoryDocuments()
	srv := newServer(t, serverDocs)
	fx := newClientFixture(t, srv.URL, repository.NewMemoryDocuments())
	ctx := context.Background()

	co, res, report, err := fx.flow.Begin(ctx, application.CreateOrderRequest{Amount: amount(1000), Trip: testTrip, UserID: "user_1"})
	require.NoError(t, err)
	assert.True(t, res.ServerCreatesBookings)
	assert.True(t, res.ServerCreatesPayments)
	assert.False(t, report.BookingAttempted)
	assert.False(t, report.PaymentAttempted)
	assert.Equal(t, 0, fx.userDocs.Count("bookings"))
	assert.Equal(t, 1, serverDocs.Count("bookings"))

	_, report, err = fx.flow.Fail(ctx, co, json.RawMessage(`{"code":"BAD_REQUEST_ERROR"}`))
	require.NoError(t, err)
	assert.False(t, report.BookingAttempted)
	assert.Equal(t, 0, fx.userDocs.Count("payments"))
}

func TestFlow_DeniedBookingGoesToShadow(t *testing.T) {
	srv := newServer(t, nil)
	fx := newClientFixture(t, srv.URL, deniedDocuments{})
	ctx := context.Background()

	co, _, report, err := fx.flow.Begin(ctx, application.CreateOrderRequest{Amount: amount(1000), Trip: testTrip, UserID: "user_1"})
	require.NoError(t, err)
	assert.True(t, report.BookingAttempted)
	assert.False(t, report.BookingWritten)
	assert.True(t, report.BookingShadowed)
	assert.ErrorIs(t, report.BookingErr, errDenied)
	assert.False(t, report.PaymentWritten)
	assert.ErrorIs(t, report.PaymentErr, errDenied)

	lister := NewBookingLister(fx.store, fx.shadow, zap.NewNop())
	bookings := lister.ListBookings(ctx, "user_1")
	require.Len(t, bookings, 1)
	assert.Equal(t, co.Order.ID, bookings[0].ID)
	assert.Equal(t, checkout.BookingPending, bookings[0].Status)
}

func TestFlow_FailWithServerDown_WritesFailureLocally(t *testing.T) {
	srv := newServer(t, nil)
	fx := newClientFixture(t, srv.URL, repository.NewMemoryDocuments())
	ctx := context.Background()

	co, _, _, err := fx.flow.Begin(ctx, application.CreateOrderRequest{Amount: amount(1000), Trip: testTrip, UserID: "user_1"})
	require.NoError(t, err)
	srv.Close()

	res, report, err := fx.flow.Fail(ctx, co, json.RawMessage(`{"code":"PAYMENT_CANCELLED"}`))
	assert.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, report.BookingWritten)
	assert.True(t, report.PaymentWritten)

	payment, err := fx.store.FindPayment(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentFailed, payment.Status)
	assert.JSONEq(t, `{"code":"PAYMENT_CANCELLED"}`, string(payment.Failure))
}

func TestFlow_FailRejected_NoFallback(t *testing.T) {
	srv := newServer(t, nil)
	fx := newClientFixture(t, srv.URL, repository.NewMemoryDocuments())

	_, report, err := fx.flow.Fail(context.Background(), &Checkout{UserID: "user_1"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Rejected())
	assert.False(t, report.Wrote())
}

func TestFallbackWriter_FailureAfterPaidIsSkipped(t *testing.T) {
	ctx := context.Background()
	docs := repository.NewMemoryDocuments()
	store := repository.NewRecordStore(docs, "bookings", "payments", zap.NewNop())
	paid := checkout.NewPaidPayment("order_1", testTrip, "user_1", amount(1000), "INR", "pay_1", "sig", testNow())
	require.True(t, store.CreateOrUpdatePayment(ctx, paid).OK())

	writer := NewFallbackWriter(store, nil, zap.NewNop())
	report := writer.AfterFailure(ctx, application.RecordFailureRequest{
		Order:  &application.OrderRef{ID: "order_1"},
		Trip:   testTrip,
		UserID: "user_1",
	}, nil)
	assert.False(t, report.BookingAttempted)
	assert.False(t, report.PaymentAttempted)

	p, err := store.FindPayment(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentPaid, p.Status)
}

func TestFallbackWriter_VerifyNotOKWritesNothing(t *testing.T) {
	docs := repository.NewMemoryDocuments()
	writer := NewFallbackWriter(repository.NewRecordStore(docs, "bookings", "payments", nil), nil, nil)

	report := writer.AfterVerify(context.Background(), application.VerifyPaymentRequest{
		Order:    &application.OrderRef{ID: "order_1"},
		Razorpay: &application.GatewayConfirmation{PaymentID: "pay_1", Signature: "sig"},
		UserID:   "user_1",
	}, &application.RecordResult{OK: false})
	assert.False(t, report.Wrote())
	assert.Equal(t, 0, docs.Count("payments"))
}

func TestMergeBookings_StoredCopyWins(t *testing.T) {
	remote := []checkout.Booking{{ID: "order_1", Status: checkout.BookingPaid}}
	local := []checkout.Booking{
		{ID: "order_1", Status: checkout.BookingPending},
		{ID: "order_2", Status: checkout.BookingPending},
	}

	merged := mergeBookings(remote, local)
	require.Len(t, merged, 2)
	assert.Equal(t, checkout.BookingPaid, merged[0].Status)
	assert.Equal(t, "order_2", merged[1].ID)
}

func TestSQLiteShadowStore_UpsertKeepsTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteShadowStore(filepath.Join(t.TempDir(), "shadow.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, checkout.NewBooking("order_1", testTrip, "user_1", checkout.BookingPending, testNow())))
	require.NoError(t, store.Save(ctx, checkout.NewBooking("order_1", nil, "user_1", checkout.BookingFailed, testNow())))
	require.NoError(t, store.Save(ctx, checkout.NewBooking("order_9", nil, "user_2", checkout.BookingPending, testNow())))

	got, err := store.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, checkout.BookingFailed, got[0].Status)
	assert.Equal(t, "trip_goa", got[0].TripID)
	assert.Equal(t, "Goa Getaway", got[0].TripTitle)
}

func TestAPIClient_ErrorBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-order", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"Razorpay keys not configured"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL+"/", nil).CreateOrder(context.Background(), application.CreateOrderRequest{Amount: amount(1)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Razorpay keys not configured", apiErr.Message)
}
