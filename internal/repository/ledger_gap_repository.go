package repository

import (
	"context"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
)

//台帳欠損の絞り込み条件。

type LedgerGapFilter struct {
	ShopID    string
	ProductID string
	OpenOnly  bool
	Limit     int
}

// 商品の識別子
type ProductRef struct {
	ShopID    string
	ProductID string
}

// 台帳欠損の保存・一覧・解決の約束。
type LedgerGapRepository interface {
	Create(ctx context.Context, gap model.LedgerGap) error
	List(ctx context.Context, filter LedgerGapFilter) ([]model.LedgerGap, error)

	// 未解決の欠損を持つ商品
	OpenProducts(ctx context.Context, limit int) ([]ProductRef, error)

	// 指定した欠損を解決済みにする
	Resolve(ctx context.Context, ids []int64, at time.Time) error
}
