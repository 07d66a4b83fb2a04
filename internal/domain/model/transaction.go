package model

import (
	"fmt"
	"time"
)

// 在庫移動の種類。数量の符号から決まる。
type TransactionType string

const (
	TransactionSale       TransactionType = "SALE"
	TransactionRestock    TransactionType = "RESTOCK"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

// TypeForDelta は delta の符号から種類を返す。
func TypeForDelta(delta int64) TransactionType {
	switch {
	case delta < 0:
		return TransactionSale
	case delta > 0:
		return TransactionRestock
	default:
		return TransactionAdjustment
	}
}

// 在庫台帳の1行。書き込み後は不変。
// (ShopID, ProductID, Seq) が商品内の順序を決める。Seq は在庫更新で確定した商品の Version。
type Transaction struct {
	ID           int64           `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ShopID       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_tx_product_seq,priority:1" json:"shopId"`
	ProductID    string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_tx_product_seq,priority:2" json:"productId"`
	Seq          int64           `gorm:"not null;uniqueIndex:idx_tx_product_seq,priority:3" json:"seq"`
	Type         TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	BalanceAfter int64           `gorm:"not null" json:"balanceAfter"`
	Note         *string         `gorm:"type:text" json:"note"`
	CreatedAt    time.Time       `gorm:"not null;index" json:"createdAt"`
}

// 台帳の複合キー（作成時刻 + 商品内連番 + 商品ID）。
type TransactionKey struct {
	CreatedAt time.Time
	Seq       int64
	ProductID string
}

func (t Transaction) Key() TransactionKey {
	return TransactionKey{CreatedAt: t.CreatedAt, Seq: t.Seq, ProductID: t.ProductID}
}

// 固定幅なので文字列比較でも時刻順に並ぶ。
func (k TransactionKey) String() string {
	return fmt.Sprintf("%019d#%012d#%s", k.CreatedAt.UnixNano(), k.Seq, k.ProductID)
}
