package stock

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts  = 5
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
	MaxNoteLength       = 500
)

// 台帳行のIDを作る約束
type IDGenerator interface {
	NextID() int64
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type Options struct {
	// 条件付き書き込みの最大試行回数（1以上）
	MaxAttempts int

	// 再試行前の待ち時間の範囲。両方0なら待たない。
	BackoffMin time.Duration
	BackoffMax time.Duration

	// Adjust 全体の期限。0なら呼び出し側の ctx のみ。
	Timeout time.Duration

	// 在庫確定後の台帳追記の期限
	LedgerAppendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = o.BackoffMin
	}
	if o.LedgerAppendTimeout <= 0 {
		o.LedgerAppendTimeout = 2 * time.Second
	}
	return o
}

type AdjustInput struct {
	ShopID    string
	ProductID string
	Delta     int64
	Note      string
}

// 調整後の商品と、追記した台帳行
type AdjustResult struct {
	Product     model.Product     `json:"product"`
	Transaction model.Transaction `json:"transaction"`
	Alerted     bool              `json:"-"`
}

// Engine は在庫調整エンジン。
//
// 在庫数の更新は Version を条件にした書き込みで直列化する（楽観的並行制御）。
// 条件が外れたら最新状態を読み直して最初からやり直し、上限に達したら ErrConflict。
// プロセス内のロックは使わないので、複数インスタンスが同じ商品を更新してもよい。
type Engine struct {
	products repository.StockStore
	ledger   repository.LedgerStore
	gaps     repository.LedgerGapRepository
	alerts   AlertDispatcher
	ids      IDGenerator
	clock    Clock
	log      *zap.Logger
	opts     Options

	// テストで差し替える
	jitter func(lo, hi time.Duration) time.Duration
}

// DI。gaps と alerts は nil でもよい。
func NewEngine(
	products repository.StockStore,
	ledger repository.LedgerStore,
	gaps repository.LedgerGapRepository,
	alerts AlertDispatcher,
	ids IDGenerator,
	clock Clock,
	log *zap.Logger,
	opts Options,
) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		products: products,
		ledger:   ledger,
		gaps:     gaps,
		alerts:   alerts,
		ids:      ids,
		clock:    clock,
		log:      log,
		opts:     opts.withDefaults(),
		jitter:   randomBetween,
	}
}

func randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

// Adjust は商品の在庫に delta を加え、台帳行を追記し、低在庫なら通知する。
//
// 在庫を 0 未満に丸めることはしない（売り越しは呼び出し側の判断）。
// 台帳追記に失敗した場合は在庫を戻さず ErrLedgerWriteFailed を返す。
// このとき AdjustResult.Product には確定済みの在庫が入っている。
// 呼び出し側は同じ Adjust を再実行してはいけない（delta が二重に入る）。
func (e *Engine) Adjust(ctx context.Context, in AdjustInput) (AdjustResult, error) {
	shopID := strings.TrimSpace(in.ShopID)
	productID := strings.TrimSpace(in.ProductID)
	if shopID == "" {
		return AdjustResult{}, newError(StageValidate, ErrInvalidArgument, errors.New("shopId is required"))
	}
	if productID == "" {
		return AdjustResult{}, newError(StageValidate, ErrInvalidArgument, errors.New("productId is required"))
	}
	if len(in.Note) > MaxNoteLength {
		return AdjustResult{}, newError(StageValidate, ErrInvalidArgument, errors.New("note too long"))
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	var (
		p         model.Product
		committed bool
		lastErr   error
		now       time.Time
	)

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.backoff(ctx); err != nil {
				return AdjustResult{}, newError(StageStockUpdate, ErrConflict, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return AdjustResult{}, newError(StageStockUpdate, ErrConflict, err)
		}

		//現在の在庫とVersionを読む
		cur, err := e.products.Get(ctx, shopID, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return AdjustResult{}, newError(StageLoad, ErrNotFound, nil)
		}
		if err != nil {
			if ctx.Err() != nil {
				return AdjustResult{}, newError(StageStockUpdate, ErrConflict, ctx.Err())
			}
			lastErr = newError(StageLoad, ErrStoreUnavailable, err)
			e.log.Debug("stock read failed, retrying",
				zap.String("shop_id", shopID), zap.String("product_id", productID),
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		newStock := cur.CurrentStock + in.Delta
		now = e.clock.Now()

		//読んだVersionのままなら書き込む
		newVersion, ok, err := e.products.ConditionalSetStock(ctx, shopID, productID, newStock, cur.Version, now)
		if err != nil {
			if ctx.Err() != nil {
				return AdjustResult{}, newError(StageStockUpdate, ErrConflict, ctx.Err())
			}
			lastErr = newError(StageStockUpdate, ErrStoreUnavailable, err)
			e.log.Debug("conditional stock write failed, retrying",
				zap.String("shop_id", shopID), zap.String("product_id", productID),
				zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if !ok {
			lastErr = newError(StageStockUpdate, ErrConflict, nil)
			e.log.Debug("stock changed concurrently, retrying",
				zap.String("shop_id", shopID), zap.String("product_id", productID),
				zap.Int64("expected_version", cur.Version), zap.Int("attempt", attempt))
			continue
		}

		p = cur
		p.CurrentStock = newStock
		p.Version = newVersion
		p.UpdatedAt = now
		committed = true
		break
	}

	if !committed {
		var se *Error
		if errors.As(lastErr, &se) && errors.Is(se.Kind, ErrStoreUnavailable) {
			e.log.Warn("stock adjustment failed",
				zap.String("shop_id", shopID), zap.String("product_id", productID), zap.Error(lastErr))
			return AdjustResult{}, lastErr
		}
		e.log.Warn("stock adjustment conflict: retries exhausted",
			zap.String("shop_id", shopID), zap.String("product_id", productID),
			zap.Int("attempts", e.opts.MaxAttempts))
		return AdjustResult{}, newError(StageStockUpdate, ErrConflict, nil)
	}

	tx := model.Transaction{
		ID:           e.ids.NextID(),
		ShopID:       shopID,
		ProductID:    productID,
		Seq:          p.Version,
		Type:         model.TypeForDelta(in.Delta),
		Quantity:     in.Delta,
		BalanceAfter: p.CurrentStock,
		Note:         noteOrNil(in.Note),
		CreatedAt:    now,
	}

	//在庫は確定済み。呼び出し側がキャンセルしていても追記は試みる。
	ledgerErr := e.appendLedger(ctx, tx)

	result := AdjustResult{Product: p, Transaction: tx}
	result.Alerted = e.maybeAlert(p)

	if ledgerErr != nil {
		return result, newError(StageLedgerWrite, ErrLedgerWriteFailed, ledgerErr)
	}
	return result, nil
}

func (e *Engine) backoff(ctx context.Context) error {
	d := e.jitter(e.opts.BackoffMin, e.opts.BackoffMax)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) appendLedger(ctx context.Context, tx model.Transaction) error {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.LedgerAppendTimeout)
	defer cancel()

	err := e.ledger.Append(actx, tx)
	if err == nil {
		return nil
	}

	e.log.Error("ledger write failed after stock commit; reconciliation required",
		zap.String("shop_id", tx.ShopID),
		zap.String("product_id", tx.ProductID),
		zap.Int64("seq", tx.Seq),
		zap.Int64("quantity", tx.Quantity),
		zap.Int64("balance_after", tx.BalanceAfter),
		zap.Error(err),
	)

	if e.gaps != nil {
		gap := model.LedgerGap{
			ShopID:       tx.ShopID,
			ProductID:    tx.ProductID,
			Seq:          tx.Seq,
			Quantity:     tx.Quantity,
			BalanceAfter: tx.BalanceAfter,
			Note:         tx.Note,
			Reason:       err.Error(),
			CreatedAt:    tx.CreatedAt,
		}
		if gerr := e.gaps.Create(actx, gap); gerr != nil {
			e.log.Error("failed to record ledger gap",
				zap.String("shop_id", tx.ShopID),
				zap.String("product_id", tx.ProductID),
				zap.Int64("seq", tx.Seq),
				zap.Error(gerr),
			)
		}
	}
	return err
}

func (e *Engine) maybeAlert(p model.Product) bool {
	if !ShouldAlert(p.CurrentStock, p.ReorderThreshold) {
		return false
	}
	if e.alerts == nil {
		return true
	}
	e.alerts.Dispatch(LowStockAlert{
		ShopID:    p.ShopID,
		ProductID: p.ProductID,
		Name:      p.Name,
		SKU:       p.SKU,
		Stock:     p.CurrentStock,
		Threshold: *p.ReorderThreshold,
		At:        p.UpdatedAt,
	})
	return true
}

// ListTransactions は商品の台帳を新しい順に返す。limit<=0 なら 50件。
func (e *Engine) ListTransactions(ctx context.Context, shopID, productID string, limit int) ([]model.Transaction, error) {
	shopID = strings.TrimSpace(shopID)
	productID = strings.TrimSpace(productID)
	if shopID == "" || productID == "" {
		return nil, newError(StageValidate, ErrInvalidArgument, errors.New("shopId and productId are required"))
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	items, err := e.ledger.Query(ctx, repository.LedgerQuery{
		ShopID:      shopID,
		ProductID:   productID,
		Limit:       limit,
		NewestFirst: true,
	})
	if err != nil {
		return nil, newError(StageQuery, ErrStoreUnavailable, err)
	}
	if items == nil {
		items = []model.Transaction{}
	}
	return items, nil
}

func noteOrNil(note string) *string {
	n := strings.TrimSpace(note)
	if n == "" {
		return nil
	}
	return &n
}
