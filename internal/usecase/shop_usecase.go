package usecase

import (
	"context"
	"net/http"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"
)

type ShopUsecase struct {
	shopRepo repo.ShopRepository
}

func NewShopUsecase(shopRepo repo.ShopRepository) *ShopUsecase {
	return &ShopUsecase{shopRepo: shopRepo}
}

// 店舗一覧（ID順）
func (u *ShopUsecase) ListShops(ctx context.Context) ([]model.Shop, error) {
	items, err := u.shopRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}
