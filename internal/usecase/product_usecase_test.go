package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks
// =====================

type CatalogRepoMock struct{ mock.Mock }

func (m *CatalogRepoMock) List(ctx context.Context, shopID string) ([]model.Product, error) {
	args := m.Called(ctx, shopID)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *CatalogRepoMock) Create(ctx context.Context, p model.Product, opening *model.Transaction) (model.Product, error) {
	args := m.Called(ctx, p, opening)
	return p, args.Error(0)
}

func (m *CatalogRepoMock) UpdateMetadata(ctx context.Context, shopID, productID string, patch model.ProductPatch, now time.Time) (model.Product, error) {
	args := m.Called(ctx, shopID, productID, patch, now)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CatalogRepoMock) Delete(ctx context.Context, shopID, productID string) error {
	args := m.Called(ctx, shopID, productID)
	return args.Error(0)
}

// Last だけ使う台帳
type historyLedger struct {
	last  model.Transaction
	found bool
	err   error
}

func (l historyLedger) Append(ctx context.Context, tx model.Transaction) error { return nil }

func (l historyLedger) Query(ctx context.Context, q repo.LedgerQuery) ([]model.Transaction, error) {
	return nil, nil
}

func (l historyLedger) Last(ctx context.Context, shopID, productID string) (model.Transaction, bool, error) {
	return l.last, l.found, l.err
}

type fixedIDs struct{ id int64 }

func (f fixedIDs) NextID() int64 { return f.id }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newProductUC(m *CatalogRepoMock) *ProductUsecase {
	return NewProductUsecase(m, historyLedger{}, fixedIDs{id: 99}, fixedClock{now})
}

func assertHTTPStatus(t *testing.T, err error, status int) *HTTPError {
	t.Helper()
	he, ok := AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	return he
}

func TestCreateProduct_DefaultsWithoutOpeningStock(t *testing.T) {
	m := new(CatalogRepoMock)
	m.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.ShopID == "shop-1" && p.Name == "Milk" &&
			p.Category == "Uncategorized" && p.Unit == "pcs" &&
			p.SKU == p.ProductID && len(p.ProductID) == 36 &&
			p.ReorderThreshold != nil && *p.ReorderThreshold == 10 &&
			p.CurrentStock == 0 && p.Version == 0
	}), (*model.Transaction)(nil)).Return(nil).Once()

	p, err := newProductUC(m).CreateProduct(context.Background(), "shop-1", CreateProductInput{Name: " Milk "})
	require.NoError(t, err)
	assert.Equal(t, now, p.CreatedAt)
	m.AssertExpectations(t)
}

func TestCreateProduct_OpeningStockWritesFirstLedgerRow(t *testing.T) {
	m := new(CatalogRepoMock)
	qty := int64(24)
	m.On("Create", mock.Anything,
		mock.MatchedBy(func(p model.Product) bool {
			return p.ProductID == "p-1" && p.SKU == "MLK" && p.CurrentStock == 24 && p.Version == 1
		}),
		mock.MatchedBy(func(tx *model.Transaction) bool {
			return tx != nil && tx.ID == 99 && tx.Seq == 1 && tx.Quantity == 24 &&
				tx.BalanceAfter == 24 && tx.Type == model.TransactionRestock
		}),
	).Return(nil).Once()

	_, err := newProductUC(m).CreateProduct(context.Background(), "shop-1",
		CreateProductInput{ProductID: "p-1", Name: "Milk", SKU: "MLK", CurrentStock: &qty})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestCreateProduct_RecreateContinuesLedger(t *testing.T) {
	prev := historyLedger{found: true, last: model.Transaction{Seq: 3, BalanceAfter: 7}}

	t.Run("stock differs from last balance", func(t *testing.T) {
		m := new(CatalogRepoMock)
		m.On("Create", mock.Anything,
			mock.MatchedBy(func(p model.Product) bool { return p.Version == 4 && p.CurrentStock == 0 }),
			mock.MatchedBy(func(tx *model.Transaction) bool {
				return tx != nil && tx.Seq == 4 && tx.Quantity == -7 && tx.BalanceAfter == 0 &&
					tx.Type == model.TransactionSale
			}),
		).Return(nil).Once()

		_, err := NewProductUsecase(m, prev, fixedIDs{id: 99}, fixedClock{now}).
			CreateProduct(context.Background(), "shop-1", CreateProductInput{ProductID: "p-1", Name: "Milk"})
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("stock equals last balance", func(t *testing.T) {
		m := new(CatalogRepoMock)
		qty := int64(7)
		m.On("Create", mock.Anything,
			mock.MatchedBy(func(p model.Product) bool { return p.Version == 3 && p.CurrentStock == 7 }),
			(*model.Transaction)(nil),
		).Return(nil).Once()

		_, err := NewProductUsecase(m, prev, fixedIDs{id: 99}, fixedClock{now}).
			CreateProduct(context.Background(), "shop-1", CreateProductInput{ProductID: "p-1", Name: "Milk", CurrentStock: &qty})
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("ledger read fails", func(t *testing.T) {
		_, err := NewProductUsecase(new(CatalogRepoMock), historyLedger{err: errors.New("down")}, fixedIDs{id: 99}, fixedClock{now}).
			CreateProduct(context.Background(), "shop-1", CreateProductInput{ProductID: "p-1", Name: "Milk"})
		assertHTTPStatus(t, err, http.StatusInternalServerError)
	})
}

func TestCreateProduct_Errors(t *testing.T) {
	neg := int64(-1)

	t.Run("name required", func(t *testing.T) {
		_, err := newProductUC(new(CatalogRepoMock)).CreateProduct(context.Background(), "shop-1", CreateProductInput{})
		assertHTTPStatus(t, err, http.StatusBadRequest)
	})
	t.Run("negative stock", func(t *testing.T) {
		_, err := newProductUC(new(CatalogRepoMock)).CreateProduct(context.Background(), "shop-1",
			CreateProductInput{Name: "Milk", CurrentStock: &neg})
		assertHTTPStatus(t, err, http.StatusBadRequest)
	})
	t.Run("duplicate", func(t *testing.T) {
		m := new(CatalogRepoMock)
		m.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(repo.ErrAlreadyExists)
		_, err := newProductUC(m).CreateProduct(context.Background(), "shop-1", CreateProductInput{ProductID: "p-1", Name: "Milk"})
		assertHTTPStatus(t, err, http.StatusConflict)
	})
	t.Run("db error", func(t *testing.T) {
		m := new(CatalogRepoMock)
		m.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
		_, err := newProductUC(m).CreateProduct(context.Background(), "shop-1", CreateProductInput{Name: "Milk"})
		assertHTTPStatus(t, err, http.StatusInternalServerError)
	})
}

func TestUpdateProduct(t *testing.T) {
	t.Run("no fields", func(t *testing.T) {
		_, err := newProductUC(new(CatalogRepoMock)).UpdateProduct(context.Background(), "shop-1", "p-1", UpdateProductInput{})
		he := assertHTTPStatus(t, err, http.StatusBadRequest)
		assert.Equal(t, "No updatable fields provided", he.Message)
	})

	t.Run("clear threshold", func(t *testing.T) {
		m := new(CatalogRepoMock)
		m.On("UpdateMetadata", mock.Anything, "shop-1", "p-1",
			model.ProductPatch{ClearReorderThreshold: true}, now).
			Return(model.Product{ShopID: "shop-1", ProductID: "p-1"}, nil).Once()

		p, err := newProductUC(m).UpdateProduct(context.Background(), "shop-1", "p-1", UpdateProductInput{ClearReorderThreshold: true})
		require.NoError(t, err)
		assert.Nil(t, p.ReorderThreshold)
		m.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		m := new(CatalogRepoMock)
		name := "Oat Milk"
		m.On("UpdateMetadata", mock.Anything, "shop-1", "nope", mock.Anything, now).Return(nil, repo.ErrNotFound)

		_, err := newProductUC(m).UpdateProduct(context.Background(), "shop-1", "nope", UpdateProductInput{Name: &name})
		assertHTTPStatus(t, err, http.StatusNotFound)
	})
}

func TestDeleteProduct(t *testing.T) {
	m := new(CatalogRepoMock)
	m.On("Delete", mock.Anything, "shop-1", "p-1").Return(nil).Once()
	m.On("Delete", mock.Anything, "shop-1", "p-2").Return(repo.ErrNotFound).Once()
	uc := newProductUC(m)

	assert.NoError(t, uc.DeleteProduct(context.Background(), "shop-1", "p-1"))
	assertHTTPStatus(t, uc.DeleteProduct(context.Background(), "shop-1", "p-2"), http.StatusNotFound)
	m.AssertExpectations(t)
}
