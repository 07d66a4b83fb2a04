package model

import "time"

// 在庫は確定したが台帳行を書けなかった記録。
// 照合（reconcile）で補填されたら ResolvedAt が入る。
type LedgerGap struct {
	//主キー
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ShopID    string `gorm:"type:varchar(64);not null;index:idx_gap_product,priority:1" json:"shopId"`
	ProductID string `gorm:"type:varchar(64);not null;index:idx_gap_product,priority:2" json:"productId"`

	//書けなかった台帳行の内容
	Seq          int64   `gorm:"not null" json:"seq"`
	Quantity     int64   `gorm:"not null" json:"quantity"`
	BalanceAfter int64   `gorm:"not null" json:"balanceAfter"`
	Note         *string `gorm:"type:text" json:"note"`

	//失敗理由（エラー文字列）
	Reason string `gorm:"type:text;not null" json:"reason"`

	//未解決なら nil
	ResolvedAt *time.Time `gorm:"index" json:"resolvedAt"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
