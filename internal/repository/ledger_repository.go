package repository

import (
	"context"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
)

// 台帳の検索条件
type LedgerQuery struct {
	ShopID      string
	ProductID   string
	Limit       int
	NewestFirst bool
}

// 追記専用の台帳。
// 行のIDは書き込み側が決めるので、同じ商品への同時追記は衝突しない。
type LedgerStore interface {
	Append(ctx context.Context, tx model.Transaction) error
	Query(ctx context.Context, q LedgerQuery) ([]model.Transaction, error)

	// 最新の1行。無ければ found=false
	Last(ctx context.Context, shopID, productID string) (tx model.Transaction, found bool, err error)
}
