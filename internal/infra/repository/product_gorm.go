package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// (shop, product) で商品を取得
func (r *ProductGormRepository) Get(ctx context.Context, shopID, productID string) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Versionが一致するときだけ在庫を更新する（CAS）
func (r *ProductGormRepository) ConditionalSetStock(ctx context.Context, shopID, productID string, newStock, expectedVersion int64, now time.Time) (int64, bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("shop_id = ? AND product_id = ? AND version = ?", shopID, productID, expectedVersion).
		Updates(map[string]interface{}{
			"current_stock": newStock,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    now,
		})

	if res.Error != nil {
		return 0, false, res.Error
	}
	//別の更新が先に入った（または削除された）
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return expectedVersion + 1, true, nil
}

// 店舗の商品一覧
func (r *ProductGormRepository) List(ctx context.Context, shopID string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("product_id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 商品の作成。初期在庫があれば台帳の初期行も同じトランザクションで書く。
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product, opening *model.Transaction) (model.Product, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if opening != nil {
			if err := tx.Create(opening).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.Product{}, repo.ErrAlreadyExists
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// メタデータだけ更新。current_stock / version は触らない。
func (r *ProductGormRepository) UpdateMetadata(ctx context.Context, shopID, productID string, patch model.ProductPatch, now time.Time) (model.Product, error) {
	fields := map[string]interface{}{
		"updated_at": now,
	}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.SKU != nil {
		fields["sku"] = *patch.SKU
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.Unit != nil {
		fields["unit"] = *patch.Unit
	}
	if patch.ClearReorderThreshold {
		fields["reorder_threshold"] = nil
	}
	if patch.ReorderThreshold != nil {
		fields["reorder_threshold"] = *patch.ReorderThreshold
	}

	var out model.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).
			Where("shop_id = ? AND product_id = ?", shopID, productID).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Where("shop_id = ? AND product_id = ?", shopID, productID).First(&out).Error
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// 商品削除（台帳は残す）
func (r *ProductGormRepository) Delete(ctx context.Context, shopID, productID string) error {
	res := r.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Delete(&model.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
