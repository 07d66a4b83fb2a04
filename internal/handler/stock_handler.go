package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/usecase"
	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"

	"github.com/labstack/echo/v4"
)

// AdjustStockRequest は在庫調整の入力です。quantity は符号付き整数。
type AdjustStockRequest struct {
	Quantity interface{} `json:"quantity"`
	Note     string      `json:"note"`
}

// 台帳だけ書けなかったときの応答（在庫は確定済み）
type AdjustPartialResponse struct {
	ErrorResponse
	Product     model.Product     `json:"product"`
	Transaction model.Transaction `json:"transaction"`
}

// 台帳1行の応答。transactionKey は表示用の複合キー
type TransactionResponse struct {
	model.Transaction
	TransactionKey string `json:"transactionKey"`
}

func toTransactionResponses(items []model.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, TransactionResponse{Transaction: t, TransactionKey: t.Key().String()})
	}
	return out
}

// 在庫調整と台帳、照合をまとめる
type StockHandler struct {
	uc *usecase.InventoryUsecase
}

// DI
func NewStockHandler(uc *usecase.InventoryUsecase) *StockHandler {
	return &StockHandler{uc: uc}
}

// g は /shops/:shopId。ops は運用向けルートだけに掛けるミドルウェア。
func (h *StockHandler) RegisterRoutes(g *echo.Group, ops ...echo.MiddlewareFunc) {
	g.POST("/products/:productId/adjust-stock", h.adjustStock)
	g.GET("/products/:productId/transactions", h.listTransactions)

	g.GET("/ledger-gaps", h.listLedgerGaps, ops...)
	g.POST("/products/:productId/reconcile", h.reconcile, ops...)
}

func (h *StockHandler) adjustStock(c echo.Context) error {
	var req AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	qty, ok := integerQuantity(req.Quantity)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity (number) is required"})
	}

	res, err := h.uc.AdjustStock(c.Request().Context(), c.Param("shopId"), c.Param("productId"), qty, req.Note)
	if err != nil {
		if he, ok := usecase.AsHTTPError(err); ok && he.Stage == string(stock.StageLedgerWrite) {
			return c.JSON(he.Status, AdjustPartialResponse{
				ErrorResponse: ErrorResponse{Error: he.Message, Stage: he.Stage},
				Product:       res.Product,
				Transaction:   res.Transaction,
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// JSON の数値で、整数として表せるものだけ受け付ける
func integerQuantity(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func (h *StockHandler) listTransactions(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	items, err := h.uc.ListTransactions(c.Request().Context(), c.Param("shopId"), c.Param("productId"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ItemsResponse[TransactionResponse]{Items: toTransactionResponses(items)})
}

func (h *StockHandler) listLedgerGaps(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}
	// 既定は未解決のみ
	openOnly := c.QueryParam("all") != "true"

	items, err := h.uc.ListLedgerGaps(c.Request().Context(), c.Param("shopId"), openOnly, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ItemsResponse[model.LedgerGap]{Items: items})
}

func (h *StockHandler) reconcile(c echo.Context) error {
	res, err := h.uc.Reconcile(c.Request().Context(), c.Param("shopId"), c.Param("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
