package handler

import (
	"net/http"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ShopHandler struct {
	uc *usecase.ShopUsecase
}

func NewShopHandler(uc *usecase.ShopUsecase) *ShopHandler {
	return &ShopHandler{uc: uc}
}

func (h *ShopHandler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.health)
	e.GET("/shops", h.list, mw...)
}

func (h *ShopHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *ShopHandler) list(c echo.Context) error {
	items, err := h.uc.ListShops(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ItemsResponse[model.Shop]{Items: items})
}
