package repository

import (
	"context"
	"errors"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShopGormRepository struct {
	db *gorm.DB
}

var _ repo.ShopRepository = (*ShopGormRepository)(nil)

func NewShopGormRepository(db *gorm.DB) *ShopGormRepository {
	return &ShopGormRepository{db: db}
}

func (r *ShopGormRepository) List(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	if err := r.db.WithContext(ctx).Order("shop_id asc").Find(&shops).Error; err != nil {
		return []model.Shop{}, err
	}
	return shops, nil
}

func (r *ShopGormRepository) FindByID(ctx context.Context, shopID string) (model.Shop, error) {
	var s model.Shop
	err := r.db.WithContext(ctx).Where("shop_id = ?", shopID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Shop{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Shop{}, err
	}
	return s, nil
}

// 同じ shop_id があれば上書き
func (r *ShopGormRepository) Upsert(ctx context.Context, shop model.Shop) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "owner_email", "size"}),
		}).
		Create(&shop).Error
}
