package stock

import (
	"fmt"
	"time"
)

// ShouldAlert は調整後の在庫がしきい値以下かを返す。
// しきい値が未設定なら在庫がいくつでも通知しない。
// 抑制期間は持たない。低在庫のまま動くたびに毎回通知する。
func ShouldAlert(postStock int64, threshold *int64) bool {
	if threshold == nil {
		return false
	}
	return postStock <= *threshold
}

// 低在庫通知の内容
type LowStockAlert struct {
	ShopID    string
	ProductID string
	Name      string
	SKU       string
	Stock     int64
	Threshold int64
	At        time.Time
}

func (a LowStockAlert) Subject() string {
	return fmt.Sprintf("Low stock alert: %s", a.Name)
}

func (a LowStockAlert) Body() string {
	return fmt.Sprintf("Low stock alert for %s (SKU: %s) in shop %s.\nCurrent stock: %d\nReorder threshold: %d",
		a.Name, a.SKU, a.ShopID, a.Stock, a.Threshold)
}

// 通知の受け渡し先。呼び出し側をブロックしてはいけない。
type AlertDispatcher interface {
	Dispatch(alert LowStockAlert)
}
