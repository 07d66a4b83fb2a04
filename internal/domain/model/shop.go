package model

import "time"

// 店舗の規模
type ShopSize string

const (
	ShopSizeSmall  ShopSize = "small"
	ShopSizeMedium ShopSize = "medium"
	ShopSizeLarge  ShopSize = "large"
)

// 規模を正規化する。不明なら small。
func NormalizeShopSize(s string) ShopSize {
	switch ShopSize(s) {
	case ShopSizeSmall, ShopSizeMedium, ShopSizeLarge:
		return ShopSize(s)
	default:
		return ShopSizeSmall
	}
}

type Shop struct {
	ShopID     string    `gorm:"primaryKey;type:varchar(64)" json:"shopId"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	OwnerEmail string    `gorm:"type:varchar(255);not null" json:"ownerEmail"`
	Size       ShopSize  `gorm:"type:varchar(16);not null" json:"size"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
}
