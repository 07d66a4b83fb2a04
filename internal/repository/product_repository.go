package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 同じキーの行がすでにある
var ErrAlreadyExists = errors.New("already exists")

// 在庫調整エンジンが使う約束。
// ConditionalSetStock は Version が expectedVersion のときだけ在庫を書き換え、
// 新しい Version を返す。条件不一致なら ok=false（エラーではない）。
type StockStore interface {
	Get(ctx context.Context, shopID, productID string) (model.Product, error)
	ConditionalSetStock(ctx context.Context, shopID, productID string, newStock, expectedVersion int64, now time.Time) (newVersion int64, ok bool, err error)
}

// 商品メタデータの保存。在庫数は触らない。
type CatalogStore interface {
	List(ctx context.Context, shopID string) ([]model.Product, error)

	// opening が nil でなければ商品と同時に台帳の初期行を書く
	Create(ctx context.Context, p model.Product, opening *model.Transaction) (model.Product, error)
	UpdateMetadata(ctx context.Context, shopID, productID string, patch model.ProductPatch, now time.Time) (model.Product, error)
	Delete(ctx context.Context, shopID, productID string) error
}

type ProductRepository interface {
	StockStore
	CatalogStore
}
