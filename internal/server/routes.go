package server

import (
	"github.com/gauravbalpande/serverless-inventory-management/internal/config"
	"github.com/gauravbalpande/serverless-inventory-management/internal/handler"
	"github.com/gauravbalpande/serverless-inventory-management/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Shop    *handler.ShopHandler
	Product *handler.ProductHandler
	Stock   *handler.StockHandler
}

// JWT_SECRET が空なら認証なし
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	var (
		authMW []echo.MiddlewareFunc
		shopMW []echo.MiddlewareFunc
		opsMW  []echo.MiddlewareFunc
	)
	if cfg.AuthEnabled() {
		authMW = []echo.MiddlewareFunc{middleware.AuthJWT(cfg)}
		shopMW = []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.ShopScopeGuard()}
		opsMW = []echo.MiddlewareFunc{middleware.AdminRoleGuard()}
	}

	h.Shop.RegisterRoutes(e, authMW...)

	shop := e.Group("/shops/:shopId", shopMW...)
	h.Product.RegisterRoutes(shop)
	h.Stock.RegisterRoutes(shop, opsMW...)
}
