package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalamig/storefront/internal/models"
	"github.com/lalamig/storefront/internal/repo"
)

type fakeNotifier struct {
	err    error
	called chan string
}

func newFakeNotifier(err error) *fakeNotifier {
	return &fakeNotifier{err: err, called: make(chan string, 8)}
}

func (f *fakeNotifier) OrderConfirmation(ctx context.Context, recipient string, order *models.Order) error {
	f.called <- recipient
	return f.err
}

func (f *fakeNotifier) waitCalled(t *testing.T) string {
	t.Helper()
	select {
	case recipient := <-f.called:
		return recipient
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
		return ""
	}
}

func newTestOrderService(t *testing.T, notifier Notifier) (*OrderService, UserSummary) {
	t.Helper()

	r := repo.New(initTestDB(t))

	user := &models.User{Name: "Maria", Email: "maria@example.com", PasswordHash: "x"}
	require.NoError(t, r.CreateUserIfNotExists(context.Background(), user))

	svc := &OrderService{Repo: r, Notifier: notifier}
	return svc, UserSummary{ID: user.ID, Name: user.Name, Email: user.Email}
}

// validRequest is the §-scenario cart: a×1 at 100 plus b×3 at 250.
func validRequest() SubmitOrderRequest {
	return SubmitOrderRequest{
		Items: []SubmitItem{
			{ID: "a", Name: "Ice Candy", Price: 100, Quantity: 1, Image: "/img/a.jpg"},
			{ID: "b", Name: "Halo-halo Mix", Price: 250, Quantity: 3, Image: "/img/b.jpg"},
		},
		Subtotal:    850,
		ShippingFee: 1000,
		TotalAmount: 1850,
	}
}

func countOrders(t *testing.T, svc *OrderService) int64 {
	t.Helper()
	var n int64
	require.NoError(t, svc.Repo.DB.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestOrderService_Submit_PersistsOrder(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	order, err := svc.Submit(ctx, user, validRequest())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, order.ID)

	assert.Equal(t, 850.0, order.Subtotal)
	assert.Equal(t, 1000.0, order.ShippingFee)
	assert.Equal(t, 1850.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.EqualValues(t, 1, countOrders(t, svc))

	stored, err := svc.ListOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, order.ID, stored[0].ID)
	assert.Equal(t, 1850.0, stored[0].TotalAmount)
	require.Len(t, stored[0].Items, 2)
}

func TestOrderService_Submit_EmptyItems(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)

	req := validRequest()
	req.Items = nil

	order, err := svc.Submit(context.Background(), user, req)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualValues(t, 0, countOrders(t, svc), "rejected submit must not create a record")
}

func TestOrderService_Submit_InvalidItems(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	mutations := []struct {
		name   string
		mutate func(*SubmitOrderRequest)
	}{
		{name: "missing id", mutate: func(r *SubmitOrderRequest) { r.Items[0].ID = "" }},
		{name: "missing name", mutate: func(r *SubmitOrderRequest) { r.Items[0].Name = "" }},
		{name: "missing image", mutate: func(r *SubmitOrderRequest) { r.Items[0].Image = "" }},
		{name: "negative price", mutate: func(r *SubmitOrderRequest) { r.Items[0].Price = -5 }},
		{name: "zero quantity", mutate: func(r *SubmitOrderRequest) { r.Items[0].Quantity = 0 }},
		{name: "negative quantity", mutate: func(r *SubmitOrderRequest) { r.Items[1].Quantity = -2 }},
	}

	for _, tt := range mutations {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			order, err := svc.Submit(ctx, user, req)
			require.Error(t, err)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.EqualValues(t, 0, countOrders(t, svc))
}

func TestOrderService_Submit_BadAmounts(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	mutations := []struct {
		name   string
		mutate func(*SubmitOrderRequest)
	}{
		{name: "zero subtotal", mutate: func(r *SubmitOrderRequest) { r.Subtotal = 0 }},
		{name: "negative shipping", mutate: func(r *SubmitOrderRequest) { r.ShippingFee = -1 }},
		{name: "zero total", mutate: func(r *SubmitOrderRequest) { r.TotalAmount = 0 }},
	}

	for _, tt := range mutations {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			order, err := svc.Submit(ctx, user, req)
			require.Error(t, err)
			assert.Nil(t, order)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOrderService_Submit_RejectsMismatchedTotals(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	req := validRequest()
	req.TotalAmount = 1 // client claims a peso for an 1850 cart

	order, err := svc.Submit(ctx, user, req)
	require.Error(t, err)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualValues(t, 0, countOrders(t, svc))
}

func TestOrderService_Submit_NotifierFailureDoesNotAffectOutcome(t *testing.T) {
	t.Parallel()

	notifier := newFakeNotifier(errors.New("smtp said no"))
	svc, user := newTestOrderService(t, notifier)

	order, err := svc.Submit(context.Background(), user, validRequest())
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.EqualValues(t, 1, countOrders(t, svc))

	assert.Equal(t, "maria@example.com", notifier.waitCalled(t))
}

func TestOrderService_Submit_NotificationIsFireAndForget(t *testing.T) {
	t.Parallel()

	notifier := newFakeNotifier(nil)
	svc, user := newTestOrderService(t, notifier)

	order, err := svc.Submit(context.Background(), user, validRequest())
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "maria@example.com", notifier.waitCalled(t))
}

type blockingPublisher struct {
	release   chan struct{}
	published chan string
}

func (p *blockingPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	<-p.release
	p.published <- topic
	return nil
}

func TestOrderService_Submit_DoesNotWaitForEventPublish(t *testing.T) {
	t.Parallel()

	publisher := &blockingPublisher{
		release:   make(chan struct{}),
		published: make(chan string, 1),
	}
	svc, user := newTestOrderService(t, nil)
	svc.Producer = publisher

	// Submit must return while the broker is still unreachable.
	order, err := svc.Submit(context.Background(), user, validRequest())
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Empty(t, publisher.published)

	close(publisher.release)
	select {
	case topic := <-publisher.published:
		assert.Equal(t, "order_events", topic)
	case <-time.After(2 * time.Second):
		t.Fatal("order event was never published")
	}
}

func TestOrderService_Submit_DeduplicatesByClientRequestID(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	req := validRequest()
	req.ClientRequestID = uuid.NewString()

	first, err := svc.Submit(ctx, user, req)
	require.NoError(t, err)

	retry, err := svc.Submit(ctx, user, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)
	assert.EqualValues(t, 1, countOrders(t, svc))

	// Without a request id every submission is a new order.
	fresh := validRequest()
	_, err = svc.Submit(ctx, user, fresh)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, user, fresh)
	require.NoError(t, err)
	assert.EqualValues(t, 3, countOrders(t, svc))
}

func TestOrderService_ClientRequestIDUniquePerUser(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	requestID := uuid.NewString()
	build := func(reqID string) *models.Order {
		return &models.Order{
			UserID:          user.ID,
			Subtotal:        850,
			ShippingFee:     1000,
			TotalAmount:     1850,
			Status:          models.OrderStatusPending,
			ClientRequestID: reqID,
		}
	}

	_, err := svc.Repo.CreateOrder(ctx, build(requestID))
	require.NoError(t, err)

	// A concurrent retry that slips past the lookup still cannot
	// create a second order for the same request id.
	_, err = svc.Repo.CreateOrder(ctx, build(requestID))
	require.Error(t, err)
	assert.EqualValues(t, 1, countOrders(t, svc))

	// Orders without a request id stay unconstrained.
	_, err = svc.Repo.CreateOrder(ctx, build(""))
	require.NoError(t, err)
	_, err = svc.Repo.CreateOrder(ctx, build(""))
	require.NoError(t, err)
	assert.EqualValues(t, 3, countOrders(t, svc))
}

func TestOrderService_ListOrders_NewestFirst(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, user, validRequest())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := svc.Submit(ctx, user, validRequest())
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestOrderService_ListOrders_OnlyOwnOrders(t *testing.T) {
	t.Parallel()

	svc, user := newTestOrderService(t, nil)
	ctx := context.Background()

	other := &models.User{Name: "Jose", Email: "jose@example.com", PasswordHash: "x"}
	require.NoError(t, svc.Repo.CreateUserIfNotExists(ctx, other))

	_, err := svc.Submit(ctx, user, validRequest())
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
