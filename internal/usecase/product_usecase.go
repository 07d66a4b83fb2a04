package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"
	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"

	"github.com/google/uuid"
)

type HTTPError struct {
	Status  int
	Message string
	Stage   string // 在庫調整のどの段階で失敗したか（該当するときだけ）
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

const (
	defaultCategory         = "Uncategorized"
	defaultUnit             = "pcs"
	defaultReorderThreshold = int64(10)
)

type ProductUsecase struct {
	productRepo repo.CatalogStore
	ledgerRepo  repo.LedgerStore
	ids         stock.IDGenerator
	clock       stock.Clock
}

// DI
func NewProductUsecase(productRepo repo.CatalogStore, ledgerRepo repo.LedgerStore, ids stock.IDGenerator, clock stock.Clock) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		ledgerRepo:  ledgerRepo,
		ids:         ids,
		clock:       clock,
	}
}

func (u *ProductUsecase) ListProducts(ctx context.Context, shopID string) ([]model.Product, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "shopId is required")
	}
	items, err := u.productRepo.List(ctx, shopID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

// POST /shops/:shopId/products の入力
type CreateProductInput struct {
	ProductID        string
	Name             string
	SKU              string
	Category         string
	Unit             string
	CurrentStock     *int64
	ReorderThreshold *int64
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, shopID string, in CreateProductInput) (model.Product, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "shopId is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	var opening int64
	if in.CurrentStock != nil {
		opening = *in.CurrentStock
	}
	if opening < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "currentStock must be >= 0")
	}
	threshold := defaultReorderThreshold
	if in.ReorderThreshold != nil {
		threshold = *in.ReorderThreshold
	}
	if threshold < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "reorderThreshold must be >= 0")
	}

	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		productID = uuid.NewString()
	}

	now := u.clock.Now()
	p := model.Product{
		ShopID:           shopID,
		ProductID:        productID,
		Name:             name,
		SKU:              orDefault(in.SKU, productID),
		Category:         orDefault(in.Category, defaultCategory),
		Unit:             orDefault(in.Unit, defaultUnit),
		CurrentStock:     opening,
		ReorderThreshold: &threshold,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	//削除後に同じIDで作り直した場合は、残っている台帳の続きから始める
	last, hasHistory, err := u.ledgerRepo.Last(ctx, shopID, productID)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	var prevSeq, prevBalance int64
	if hasHistory {
		prevSeq, prevBalance = last.Seq, last.BalanceAfter
	}
	p.Version = prevSeq

	//台帳の残高と初期在庫の差を最初の行にする
	var tx *model.Transaction
	if diff := opening - prevBalance; diff != 0 {
		p.Version = prevSeq + 1
		note := "opening stock"
		tx = &model.Transaction{
			ID:           u.ids.NextID(),
			ShopID:       shopID,
			ProductID:    productID,
			Seq:          p.Version,
			Type:         model.TypeForDelta(diff),
			Quantity:     diff,
			BalanceAfter: opening,
			Note:         &note,
			CreatedAt:    now,
		}
	}

	created, err := u.productRepo.Create(ctx, p, tx)
	if errors.Is(err, repo.ErrAlreadyExists) {
		return model.Product{}, NewHTTPError(http.StatusConflict, "Product already exists")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

// PUT の入力。nil は変更しない。在庫数は受け付けない。
type UpdateProductInput struct {
	Name                  *string
	SKU                   *string
	Category              *string
	Unit                  *string
	ReorderThreshold      *int64
	ClearReorderThreshold bool
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, shopID, productID string, in UpdateProductInput) (model.Product, error) {
	if strings.TrimSpace(shopID) == "" || strings.TrimSpace(productID) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "shopId and productId are required")
	}

	patch := model.ProductPatch{
		Name:                  trimmed(in.Name),
		SKU:                   trimmed(in.SKU),
		Category:              trimmed(in.Category),
		Unit:                  trimmed(in.Unit),
		ReorderThreshold:      in.ReorderThreshold,
		ClearReorderThreshold: in.ClearReorderThreshold,
	}
	if patch.Empty() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "No updatable fields provided")
	}
	if patch.Name != nil && *patch.Name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name must not be empty")
	}
	if patch.ReorderThreshold != nil && *patch.ReorderThreshold < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "reorderThreshold must be >= 0")
	}

	p, err := u.productRepo.UpdateMetadata(ctx, shopID, productID, patch, u.clock.Now())
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

func (u *ProductUsecase) DeleteProduct(ctx context.Context, shopID, productID string) error {
	if strings.TrimSpace(shopID) == "" || strings.TrimSpace(productID) == "" {
		return NewHTTPError(http.StatusBadRequest, "shopId and productId are required")
	}
	err := u.productRepo.Delete(ctx, shopID, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}
