package stock

import (
	"errors"
	"fmt"
)

// どの段階で失敗したか
type Stage string

const (
	StageValidate    Stage = "validate"
	StageLoad        Stage = "load"
	StageStockUpdate Stage = "stock_update"
	StageLedgerWrite Stage = "ledger_write"
	StageQuery       Stage = "query"
)

var (
	// 入力が不正（ストアには触れていない）
	ErrInvalidArgument = errors.New("invalid argument")

	// 商品が存在しない
	ErrNotFound = errors.New("product not found")

	// 競合でリトライ上限に達した、またはタイムアウト
	ErrConflict = errors.New("concurrent adjustment conflict")

	// 在庫は確定したが台帳行を書けなかった（部分成功）
	ErrLedgerWriteFailed = errors.New("stock updated but ledger write failed")

	// ストアの障害
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error は失敗段階と種類を持つ。errors.Is は Kind と Err の両方に効く。
type Error struct {
	Stage Stage
	Kind  error
	Err   error
}

func newError(stage Stage, kind error, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StageOf は err に含まれる段階を返す。
func StageOf(err error) (Stage, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
