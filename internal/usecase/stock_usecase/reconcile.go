package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"go.uber.org/zap"
)

const backfillNote = "reconciliation backfill"

// 照合結果
type ReconcileResult struct {
	ShopID        string `json:"shopId"`
	ProductID     string `json:"productId"`
	Stock         int64  `json:"stock"`
	LedgerBalance int64  `json:"ledgerBalance"`
	Drift         int64  `json:"drift"`
	Replayed      int    `json:"replayed"`
	Backfilled    bool   `json:"backfilled"`
	GapsResolved  int    `json:"gapsResolved"`
}

type SweepResult struct {
	Products int `json:"products"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Reconciler は台帳の欠損を埋める。在庫数は書き換えない（在庫が正）。
//
// 1. 記録済みの欠損（LedgerGap）をそのままの Seq で台帳に書き戻す。
// 2. それでも最新行の balanceAfter と在庫がずれていれば、差分を1行追記する。
type Reconciler struct {
	products repository.StockStore
	ledger   repository.LedgerStore
	gaps     repository.LedgerGapRepository
	ids      IDGenerator
	clock    Clock
	log      *zap.Logger

	// 最後の在庫更新からこの時間内は、台帳の追記がまだ途中かもしれない
	settle time.Duration
}

// settle には Engine の LedgerAppendTimeout を渡す。0 なら待たない。
func NewReconciler(
	products repository.StockStore,
	ledger repository.LedgerStore,
	gaps repository.LedgerGapRepository,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
	settle time.Duration,
) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{products: products, ledger: ledger, gaps: gaps, ids: ids, clock: clock, log: log, settle: settle}
}

// ReconcileProduct は1商品を照合する。
// 欠損の書き戻しは商品が無くても行う（削除済みの商品の欠損も閉じる）。
func (r *Reconciler) ReconcileProduct(ctx context.Context, shopID, productID string) (ReconcileResult, error) {
	res := ReconcileResult{ShopID: shopID, ProductID: productID}
	if shopID == "" || productID == "" {
		return res, newError(StageValidate, ErrInvalidArgument, errors.New("shopId and productId are required"))
	}

	//記録済みの欠損を書き戻す
	resolved, err := r.replayGaps(ctx, shopID, productID, &res)
	if err != nil {
		return res, err
	}

	p, err := r.products.Get(ctx, shopID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		if len(resolved) == 0 {
			return res, newError(StageLoad, ErrNotFound, nil)
		}
		//在庫が無いので差分の補填はしない
		return res, r.resolve(ctx, resolved, &res)
	}
	if err != nil {
		return res, newError(StageLoad, ErrStoreUnavailable, err)
	}
	res.Stock = p.CurrentStock

	last, found, err := r.ledger.Last(ctx, shopID, productID)
	if err != nil {
		return res, newError(StageQuery, ErrStoreUnavailable, err)
	}
	if found {
		res.LedgerBalance = last.BalanceAfter
	}
	res.Drift = p.CurrentStock - res.LedgerBalance

	if res.Drift != 0 {
		if r.settle > 0 && r.clock.Now().Sub(p.UpdatedAt) < r.settle {
			return res, newError(StageLedgerWrite, ErrConflict,
				errors.New("latest adjustment may still be writing its ledger row, retry later"))
		}
		if found && last.Seq >= p.Version {
			return res, newError(StageLedgerWrite, ErrConflict,
				fmt.Errorf("ledger seq %d is not behind product version %d", last.Seq, p.Version))
		}
		note := backfillNote
		err := r.ledger.Append(ctx, model.Transaction{
			ID:           r.ids.NextID(),
			ShopID:       shopID,
			ProductID:    productID,
			Seq:          p.Version,
			Type:         model.TypeForDelta(res.Drift),
			Quantity:     res.Drift,
			BalanceAfter: p.CurrentStock,
			Note:         &note,
			CreatedAt:    r.clock.Now(),
		})
		if err != nil {
			return res, newError(StageLedgerWrite, ErrStoreUnavailable, err)
		}
		res.Backfilled = true
		r.log.Warn("ledger backfilled from stock",
			zap.String("shop_id", shopID), zap.String("product_id", productID),
			zap.Int64("drift", res.Drift), zap.Int64("seq", p.Version))
	}

	return res, r.resolve(ctx, resolved, &res)
}

func (r *Reconciler) replayGaps(ctx context.Context, shopID, productID string, res *ReconcileResult) ([]int64, error) {
	if r.gaps == nil {
		return nil, nil
	}
	open, err := r.gaps.List(ctx, repository.LedgerGapFilter{ShopID: shopID, ProductID: productID, OpenOnly: true})
	if err != nil {
		return nil, newError(StageQuery, ErrStoreUnavailable, err)
	}

	var resolved []int64
	for _, g := range open {
		err := r.ledger.Append(ctx, model.Transaction{
			ID:           r.ids.NextID(),
			ShopID:       g.ShopID,
			ProductID:    g.ProductID,
			Seq:          g.Seq,
			Type:         model.TypeForDelta(g.Quantity),
			Quantity:     g.Quantity,
			BalanceAfter: g.BalanceAfter,
			Note:         g.Note,
			CreatedAt:    g.CreatedAt,
		})
		switch {
		case err == nil:
			res.Replayed++
		case errors.Is(err, repository.ErrAlreadyExists):
			//追記は実は成功していた
		default:
			return resolved, newError(StageLedgerWrite, ErrStoreUnavailable, err)
		}
		resolved = append(resolved, g.ID)
	}
	return resolved, nil
}

func (r *Reconciler) resolve(ctx context.Context, ids []int64, res *ReconcileResult) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.gaps.Resolve(ctx, ids, r.clock.Now()); err != nil {
		return newError(StageLedgerWrite, ErrStoreUnavailable, err)
	}
	res.GapsResolved = len(ids)
	return nil
}

// Sweep は未解決の欠損を持つ商品をまとめて照合する。
func (r *Reconciler) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	var out SweepResult
	if r.gaps == nil {
		return out, nil
	}
	refs, err := r.gaps.OpenProducts(ctx, limit)
	if err != nil {
		return out, err
	}
	for _, ref := range refs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out.Products++
		res, err := r.ReconcileProduct(ctx, ref.ShopID, ref.ProductID)
		if err != nil {
			out.Failed++
			r.log.Error("reconcile failed",
				zap.String("shop_id", ref.ShopID), zap.String("product_id", ref.ProductID), zap.Error(err))
			continue
		}
		if res.Replayed > 0 || res.Backfilled || res.GapsResolved > 0 {
			out.Repaired++
		}
	}
	return out, nil
}
