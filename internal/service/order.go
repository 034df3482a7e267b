package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lalamig/storefront/internal/events"
	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/models"
	"github.com/lalamig/storefront/internal/repo"
)

// Notifier is the best-effort confirmation-mail dependency. A failure
// is logged and never reaches the order response.
type Notifier interface {
	OrderConfirmation(ctx context.Context, recipient string, order *models.Order) error
}

type SubmitItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

type SubmitOrderRequest struct {
	Items           []SubmitItem `json:"items"`
	Subtotal        float64      `json:"subtotal"`
	ShippingFee     float64      `json:"shippingFee"`
	TotalAmount     float64      `json:"totalAmount"`
	ClientRequestID string       `json:"clientRequestId"`
}

// moneyTolerance absorbs float jitter when cross-checking the totals
// the client computed against our own.
const moneyTolerance = 0.005

// shippingFeePerPair is charged per started pair of items.
const shippingFeePerPair = 500

type OrderService struct {
	Repo     *repo.GormRepo
	Notifier Notifier
	Producer EventPublisher

	// NotifyTimeout bounds the detached confirmation-mail attempt.
	NotifyTimeout time.Duration
}

func (s *OrderService) notifyTimeout() time.Duration {
	if s.NotifyTimeout > 0 {
		return s.NotifyTimeout
	}
	return 30 * time.Second
}

func wellFormed(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validateItems(items []SubmitItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}
	for i := range items {
		switch {
		case items[i].ID == "":
			return fmt.Errorf("%w: item id required", ErrValidation)
		case items[i].Name == "":
			return fmt.Errorf("%w: item name required", ErrValidation)
		case items[i].Image == "":
			return fmt.Errorf("%w: item image required", ErrValidation)
		case items[i].Price < 0 || !wellFormed(items[i].Price):
			return fmt.Errorf("%w: item price must be >= 0", ErrValidation)
		case items[i].Quantity <= 0:
			return fmt.Errorf("%w: item quantity must be > 0", ErrValidation)
		}
	}
	return nil
}

// Submit validates a checkout, persists the order atomically and kicks
// off the confirmation side effects without gating the response on
// them. The caller has already authenticated the user.
func (s *OrderService) Submit(ctx context.Context, user UserSummary, req SubmitOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.submit", "userID", user.ID.String())

	if err := validateItems(req.Items); err != nil {
		l.Warn("submit_rejected", "error", err)
		return nil, err
	}

	if req.Subtotal <= 0 || !wellFormed(req.Subtotal) ||
		req.ShippingFee < 0 || !wellFormed(req.ShippingFee) ||
		req.TotalAmount <= 0 || !wellFormed(req.TotalAmount) {
		l.Warn("submit_rejected", "reason", "bad amounts")
		return nil, fmt.Errorf("%w: invalid amounts", ErrValidation)
	}

	// The client computed the totals; recompute from the item data and
	// reject mismatches instead of trusting them.
	var subtotal float64
	var itemCount int
	for i := range req.Items {
		subtotal += req.Items[i].Price * float64(req.Items[i].Quantity)
		itemCount += req.Items[i].Quantity
	}
	shippingFee := float64((itemCount+1)/2) * shippingFeePerPair
	total := subtotal + shippingFee

	if math.Abs(subtotal-req.Subtotal) > moneyTolerance ||
		math.Abs(shippingFee-req.ShippingFee) > moneyTolerance ||
		math.Abs(total-req.TotalAmount) > moneyTolerance {
		l.Warn("submit_rejected", "reason", "totals mismatch",
			"subtotal", subtotal, "shippingFee", shippingFee, "total", total)
		return nil, fmt.Errorf("%w: submitted totals do not match item data", ErrValidation)
	}

	// A retried submission with the same request id returns the order
	// it already created.
	if req.ClientRequestID != "" {
		existing, err := s.Repo.FindOrderByClientRequestID(ctx, user.ID, req.ClientRequestID)
		if err != nil {
			l.Error("submit_error", "error", err)
			return nil, err
		}
		if existing != nil {
			l.Info("submit_deduplicated", "orderID", existing.ID.String())
			return existing, nil
		}
	}

	items := make([]models.OrderItem, len(req.Items))
	for i := range req.Items {
		items[i] = models.OrderItem{
			ProductRef: req.Items[i].ID,
			Name:       req.Items[i].Name,
			UnitPrice:  req.Items[i].Price,
			Quantity:   req.Items[i].Quantity,
			Image:      req.Items[i].Image,
		}
	}

	order := &models.Order{
		UserID:          user.ID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingFee:     shippingFee,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ClientRequestID: req.ClientRequestID,
	}

	if _, err := s.Repo.CreateOrder(ctx, order); err != nil {
		// A concurrent retry may have won the unique index on
		// (user_id, client_request_id); that write is our dedup hit.
		if req.ClientRequestID != "" {
			existing, lookupErr := s.Repo.FindOrderByClientRequestID(ctx, user.ID, req.ClientRequestID)
			if lookupErr == nil && existing != nil {
				l.Info("submit_deduplicated", "orderID", existing.ID.String())
				return existing, nil
			}
		}
		l.Error("submit_error", "error", err)
		return nil, err
	}

	l.Info("submit_success", "orderID", order.ID.String(), "total", order.TotalAmount)

	// Side effects run detached from the request: the response never
	// waits on mail or kafka, and their failure never unwinds the order.
	go s.confirm(l, user.Email, order)
	go s.publish(l, order)

	return order, nil
}

func (s *OrderService) confirm(l *slog.Logger, recipient string, order *models.Order) {
	if s.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.Error("order_confirmation_panic", "orderID", order.ID.String(), "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout())
	defer cancel()

	if err := s.Notifier.OrderConfirmation(ctx, recipient, order); err != nil {
		l.Warn("order_confirmation_failed", "orderID", order.ID.String(), "error", err)
		return
	}
	l.Info("order_confirmation_sent", "orderID", order.ID.String())
}

func (s *OrderService) publish(l *slog.Logger, order *models.Order) {
	if s.Producer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.Error("order_event_panic", "orderID", order.ID.String(), "panic", r)
		}
	}()

	// Detached from the request so a slow broker cannot delay the
	// order confirmation response.
	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := map[string]interface{}{
		"type":    "order_created",
		"orderID": order.ID.String(),
		"userID":  order.UserID.String(),
		"total":   order.TotalAmount,
	}
	if err := s.Producer.PublishEvent(pubCtx, events.TopicOrderEvents, order.UserID.String(), event); err != nil {
		l.Warn("kafka_publish_error", "topic", events.TopicOrderEvents, "error", err)
	}
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID)
}
