package repository

import (
	"context"
	"errors"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"gorm.io/gorm"
)

type LedgerGormRepository struct {
	db *gorm.DB
}

var _ repo.LedgerStore = (*LedgerGormRepository)(nil)

func NewLedgerGormRepository(db *gorm.DB) *LedgerGormRepository {
	return &LedgerGormRepository{db: db}
}

// 台帳に1行追記。(shop, product, seq) の重複は ErrAlreadyExists。
func (r *LedgerGormRepository) Append(ctx context.Context, tx model.Transaction) error {
	err := r.db.WithContext(ctx).Create(&tx).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrAlreadyExists
	}
	return err
}

func (r *LedgerGormRepository) Query(ctx context.Context, q repo.LedgerQuery) ([]model.Transaction, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("shop_id = ? AND product_id = ?", q.ShopID, q.ProductID)

	//新しい順
	if q.NewestFirst {
		tx = tx.Order("seq desc")
	} else {
		tx = tx.Order("seq asc")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []model.Transaction
	if err := tx.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *LedgerGormRepository) Last(ctx context.Context, shopID, productID string) (model.Transaction, bool, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Order("seq desc").
		First(&t).Error
	if isNotFound(err) {
		return model.Transaction{}, false, nil
	}
	if err != nil {
		return model.Transaction{}, false, err
	}
	return t, true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
