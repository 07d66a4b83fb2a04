package repository

import (
	"context"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
)

type ShopRepository interface {
	List(ctx context.Context) ([]model.Shop, error)
	FindByID(ctx context.Context, shopID string) (model.Shop, error)
	Upsert(ctx context.Context, shop model.Shop) error
}
