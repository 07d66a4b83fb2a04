package repository

import (
	"context"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"gorm.io/gorm"
)

type LedgerGapGormRepository struct {
	db *gorm.DB
}

var _ repo.LedgerGapRepository = (*LedgerGapGormRepository)(nil)

func NewLedgerGapGormRepository(db *gorm.DB) *LedgerGapGormRepository {
	return &LedgerGapGormRepository{db: db}
}

func (r *LedgerGapGormRepository) Create(ctx context.Context, gap model.LedgerGap) error {
	if err := r.db.WithContext(ctx).Create(&gap).Error; err != nil {
		return err
	}
	return nil
}

func (r *LedgerGapGormRepository) List(ctx context.Context, filter repo.LedgerGapFilter) ([]model.LedgerGap, error) {
	q := r.db.WithContext(ctx).Model(&model.LedgerGap{})

	if filter.ShopID != "" {
		q = q.Where("shop_id = ?", filter.ShopID)
	}
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.OpenOnly {
		q = q.Where("resolved_at IS NULL")
	}

	//古い順（Seq の小さいものから書き戻す）
	q = q.Order("id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	q = q.Limit(limit)

	var gaps []model.LedgerGap
	if err := q.Find(&gaps).Error; err != nil {
		return nil, err
	}
	return gaps, nil
}

func (r *LedgerGapGormRepository) OpenProducts(ctx context.Context, limit int) ([]repo.ProductRef, error) {
	if limit <= 0 {
		limit = 100
	}
	var refs []repo.ProductRef
	err := r.db.WithContext(ctx).
		Model(&model.LedgerGap{}).
		Where("resolved_at IS NULL").
		Distinct("shop_id", "product_id").
		Order("shop_id, product_id").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *LedgerGapGormRepository) Resolve(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.LedgerGap{}).
		Where("id IN ? AND resolved_at IS NULL", ids).
		Update("resolved_at", at).Error
}

