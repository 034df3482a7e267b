package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/service"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_create")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req service.SubmitOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order payload")
	}

	order, err := h.Svc.Submit(ctx, *user, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order payload")
		}
		l.Error("create_order_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "error processing order")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"orderId": order.ID,
	})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_list")

	user, err := currentUser(c)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListOrders(ctx, user.ID)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "error fetching orders")
	}

	return c.JSON(http.StatusOK, orders)
}
