package handler

import (
	"net/http"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// 一覧は { items: [...] } で返す
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Stage: he.Stage})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// ProductCreateRequest は POST /shops/:shopId/products の入力
type ProductCreateRequest struct {
	ProductID        string `json:"productId"`
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	Category         string `json:"category"`
	Unit             string `json:"unit"`
	CurrentStock     *int64 `json:"currentStock"`
	ReorderThreshold *int64 `json:"reorderThreshold"`
}

// ProductUpdateRequest は PUT の入力。currentStock は受け付けない。
type ProductUpdateRequest struct {
	Name                  *string `json:"name"`
	SKU                   *string `json:"sku"`
	Category              *string `json:"category"`
	Unit                  *string `json:"unit"`
	ReorderThreshold      *int64  `json:"reorderThreshold"`
	ClearReorderThreshold bool    `json:"clearReorderThreshold"`
}

// /shops/:shopId/products のカタログAPI
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// g は /shops/:shopId
func (h *ProductHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/products", h.list)
	g.POST("/products", h.create)
	g.PUT("/products/:productId", h.update)
	g.DELETE("/products/:productId", h.delete)
}

func (h *ProductHandler) list(c echo.Context) error {
	items, err := h.uc.ListProducts(c.Request().Context(), c.Param("shopId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ItemsResponse[model.Product]{Items: items})
}

func (h *ProductHandler) create(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	p, err := h.uc.CreateProduct(c.Request().Context(), c.Param("shopId"), usecase.CreateProductInput{
		ProductID:        req.ProductID,
		Name:             req.Name,
		SKU:              req.SKU,
		Category:         req.Category,
		Unit:             req.Unit,
		CurrentStock:     req.CurrentStock,
		ReorderThreshold: req.ReorderThreshold,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	p, err := h.uc.UpdateProduct(c.Request().Context(), c.Param("shopId"), c.Param("productId"), usecase.UpdateProductInput{
		Name:                  req.Name,
		SKU:                   req.SKU,
		Category:              req.Category,
		Unit:                  req.Unit,
		ReorderThreshold:      req.ReorderThreshold,
		ClearReorderThreshold: req.ClearReorderThreshold,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) delete(c echo.Context) error {
	if err := h.uc.DeleteProduct(c.Request().Context(), c.Param("shopId"), c.Param("productId")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
