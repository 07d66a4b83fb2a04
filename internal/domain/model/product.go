package model

import "time"

// 店舗ごとの商品。(ShopID, ProductID) で一意。
// CurrentStock と Version は在庫調整エンジンだけが更新する。
type Product struct {
	ShopID           string    `gorm:"primaryKey;type:varchar(64)" json:"shopId"`
	ProductID        string    `gorm:"primaryKey;type:varchar(64)" json:"productId"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	SKU              string    `gorm:"column:sku;type:varchar(128);not null" json:"sku"`
	Category         string    `gorm:"type:varchar(128);not null" json:"category"`
	Unit             string    `gorm:"type:varchar(32);not null" json:"unit"`
	CurrentStock     int64     `gorm:"not null;default:0" json:"currentStock"`
	ReorderThreshold *int64    `json:"reorderThreshold"`
	Version          int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"not null" json:"updatedAt"`
}

// メタデータ更新の差分。nil は変更しない。
// CurrentStock はここに含めない（在庫はエンジン経由のみ）。
type ProductPatch struct {
	Name                  *string
	SKU                   *string
	Category              *string
	Unit                  *string
	ReorderThreshold      *int64
	ClearReorderThreshold bool
}

// 更新項目があるか
func (patch ProductPatch) Empty() bool {
	return patch.Name == nil && patch.SKU == nil && patch.Category == nil && patch.Unit == nil &&
		patch.ReorderThreshold == nil && !patch.ClearReorderThreshold
}

// Apply は差分を p に反映する。Clear と値の両方があれば値が勝つ。
func (patch ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.ClearReorderThreshold {
		p.ReorderThreshold = nil
	}
	if patch.ReorderThreshold != nil {
		v := *patch.ReorderThreshold
		p.ReorderThreshold = &v
	}
}
