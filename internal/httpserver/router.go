package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lalamig/storefront/internal/service"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	OrderHandler   *OrderHTTP
	CatalogHandler *CatalogHTTP
	AuthSvc        *service.AuthService
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")
	authMW := RequireAuth(d.AuthSvc)

	api.POST("/register", d.AuthHandler.Register)
	api.POST("/login", d.AuthHandler.Login)
	api.GET("/verify", d.AuthHandler.Verify, authMW)

	api.POST("/orders", d.OrderHandler.CreateOrder, authMW)
	api.GET("/orders", d.OrderHandler.ListOrders, authMW)

	api.GET("/products", d.CatalogHandler.ListProducts)
	api.GET("/products/:id", d.CatalogHandler.GetProduct)
	api.POST("/products", d.CatalogHandler.CreateProduct, authMW)
	api.GET("/search", d.CatalogHandler.Search)
}
