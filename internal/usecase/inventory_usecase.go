package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"
	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"
)

// 在庫調整エンジンの入口（*stock.Engine が満たす）
type StockEngine interface {
	Adjust(ctx context.Context, in stock.AdjustInput) (stock.AdjustResult, error)
	ListTransactions(ctx context.Context, shopID, productID string, limit int) ([]model.Transaction, error)
}

// *stock.Reconciler が満たす
type ProductReconciler interface {
	ReconcileProduct(ctx context.Context, shopID, productID string) (stock.ReconcileResult, error)
}

type InventoryUsecase struct {
	engine     StockEngine
	reconciler ProductReconciler
	gapRepo    repo.LedgerGapRepository
}

// DI
func NewInventoryUsecase(engine StockEngine, reconciler ProductReconciler, gapRepo repo.LedgerGapRepository) *InventoryUsecase {
	return &InventoryUsecase{
		engine:     engine,
		reconciler: reconciler,
		gapRepo:    gapRepo,
	}
}

// AdjustStock は在庫を quantity だけ動かす。
// 台帳の書き込みだけ失敗した場合は、確定した結果と 500 の両方を返す。
func (u *InventoryUsecase) AdjustStock(ctx context.Context, shopID, productID string, quantity int64, note string) (stock.AdjustResult, error) {
	res, err := u.engine.Adjust(ctx, stock.AdjustInput{
		ShopID:    shopID,
		ProductID: productID,
		Delta:     quantity,
		Note:      note,
	})
	if err != nil {
		return res, stockHTTPError(err)
	}
	return res, nil
}

func (u *InventoryUsecase) ListTransactions(ctx context.Context, shopID, productID string, limit int) ([]model.Transaction, error) {
	if limit < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	items, err := u.engine.ListTransactions(ctx, shopID, productID, limit)
	if err != nil {
		return nil, stockHTTPError(err)
	}
	return items, nil
}

func (u *InventoryUsecase) ListLedgerGaps(ctx context.Context, shopID string, openOnly bool, limit int) ([]model.LedgerGap, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "shopId is required")
	}
	if limit < 0 || limit > stock.MaxHistoryLimit {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if limit == 0 {
		limit = stock.DefaultHistoryLimit
	}
	items, err := u.gapRepo.List(ctx, repo.LedgerGapFilter{ShopID: shopID, OpenOnly: openOnly, Limit: limit})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *InventoryUsecase) Reconcile(ctx context.Context, shopID, productID string) (stock.ReconcileResult, error) {
	res, err := u.reconciler.ReconcileProduct(ctx, shopID, productID)
	if err != nil {
		return res, stockHTTPError(err)
	}
	return res, nil
}

// 在庫エラーを HTTP の形にする。段階は必ず付ける。
func stockHTTPError(err error) error {
	he := &HTTPError{Status: http.StatusServiceUnavailable, Message: "store unavailable"}
	if stage, ok := stock.StageOf(err); ok {
		he.Stage = string(stage)
	}

	var se *stock.Error
	switch {
	case errors.Is(err, stock.ErrInvalidArgument):
		he.Status, he.Message = http.StatusBadRequest, "invalid argument"
		if errors.As(err, &se) && se.Err != nil {
			he.Message = se.Err.Error()
		}
	case errors.Is(err, stock.ErrNotFound):
		he.Status, he.Message = http.StatusNotFound, "Product not found"
	case errors.Is(err, stock.ErrConflict):
		he.Status, he.Message = http.StatusConflict, "stock was modified concurrently, please retry"
		//照合側の競合は理由をそのまま返す
		if errors.As(err, &se) && se.Stage != stock.StageStockUpdate && se.Err != nil {
			he.Message = se.Err.Error()
		}
	case errors.Is(err, stock.ErrLedgerWriteFailed):
		he.Status, he.Message = http.StatusInternalServerError, "stock updated but ledger write failed"
	}
	return he
}
