// Package memstore は店舗・商品・台帳・欠落記録をプロセス内メモリに持つ。
// 条件付き書き込みの約束は SQL / bolt 実装と同じ（STORE_DRIVER=memory とテスト用）。
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"
)

type productKey struct {
	shopID    string
	productID string
}

// 並行に呼んでよい
type Store struct {
	mu       sync.RWMutex
	shops    map[string]model.Shop
	products map[productKey]model.Product
	ledger   map[productKey][]model.Transaction
	gaps     []model.LedgerGap
	gapSeq   int64

	hookMu      sync.RWMutex
	appendHook  func(model.Transaction) error
	beforeWrite func()
}

func New() *Store {
	return &Store{
		shops:    make(map[string]model.Shop),
		products: make(map[productKey]model.Product),
		ledger:   make(map[productKey][]model.Transaction),
	}
}

// SetAppendHook は台帳追記の直前に fn を呼ぶ。エラーなら書かずに失敗させる。
func (s *Store) SetAppendHook(fn func(model.Transaction) error) {
	s.hookMu.Lock()
	s.appendHook = fn
	s.hookMu.Unlock()
}

// SetBeforeConditionalWrite は読み取り後、CAS 判定の前に fn を呼ぶ。
func (s *Store) SetBeforeConditionalWrite(fn func()) {
	s.hookMu.Lock()
	s.beforeWrite = fn
	s.hookMu.Unlock()
}

func (s *Store) Products() *Products { return &Products{s: s} }
func (s *Store) Ledger() *Ledger     { return &Ledger{s: s} }
func (s *Store) Gaps() *Gaps         { return &Gaps{s: s} }
func (s *Store) Shops() *Shops       { return &Shops{s: s} }

// 商品
type Products struct{ s *Store }

var _ repository.ProductRepository = (*Products)(nil)

func (r *Products) Get(ctx context.Context, shopID, productID string) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[productKey{shopID, productID}]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Products) ConditionalSetStock(ctx context.Context, shopID, productID string, newStock, expectedVersion int64, now time.Time) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	r.s.hookMu.RLock()
	hook := r.s.beforeWrite
	r.s.hookMu.RUnlock()
	if hook != nil {
		hook()
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := productKey{shopID, productID}
	p, ok := r.s.products[k]
	if !ok || p.Version != expectedVersion {
		return 0, false, nil
	}
	p.CurrentStock = newStock
	p.Version++
	p.UpdatedAt = now
	r.s.products[k] = p
	return p.Version, true, nil
}

func (r *Products) List(ctx context.Context, shopID string) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Product{}
	for k, p := range r.s.products {
		if k.shopID == shopID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *Products) Create(ctx context.Context, p model.Product, opening *model.Transaction) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := productKey{p.ShopID, p.ProductID}
	if _, ok := r.s.products[k]; ok {
		return model.Product{}, repository.ErrAlreadyExists
	}
	if opening != nil {
		rows := r.s.ledger[k]
		if n := len(rows); n > 0 && rows[n-1].Seq >= opening.Seq {
			return model.Product{}, repository.ErrAlreadyExists
		}
		r.s.ledger[k] = append(rows, *opening)
	}
	r.s.products[k] = p
	return p, nil
}

func (r *Products) UpdateMetadata(ctx context.Context, shopID, productID string, patch model.ProductPatch, now time.Time) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := productKey{shopID, productID}
	p, ok := r.s.products[k]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	patch.Apply(&p)
	p.UpdatedAt = now
	r.s.products[k] = p
	return p, nil
}

func (r *Products) Delete(ctx context.Context, shopID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := productKey{shopID, productID}
	if _, ok := r.s.products[k]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, k)
	return nil
}

// 台帳。行は Seq 順に保つ
type Ledger struct{ s *Store }

var _ repository.LedgerStore = (*Ledger)(nil)

func (r *Ledger) Append(ctx context.Context, tx model.Transaction) error {
	r.s.hookMu.RLock()
	hook := r.s.appendHook
	r.s.hookMu.RUnlock()
	if hook != nil {
		if err := hook(tx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := productKey{tx.ShopID, tx.ProductID}
	rows := r.s.ledger[k]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Seq >= tx.Seq })
	if i < len(rows) && rows[i].Seq == tx.Seq {
		return repository.ErrAlreadyExists
	}
	rows = append(rows, model.Transaction{})
	copy(rows[i+1:], rows[i:])
	rows[i] = tx
	r.s.ledger[k] = rows
	return nil
}

func (r *Ledger) Query(ctx context.Context, q repository.LedgerQuery) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.s.ledger[productKey{q.ShopID, q.ProductID}]
	out := make([]model.Transaction, 0, len(rows))
	if q.NewestFirst {
		for i := len(rows) - 1; i >= 0; i-- {
			out = append(out, rows[i])
		}
	} else {
		out = append(out, rows...)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *Ledger) Last(ctx context.Context, shopID, productID string) (model.Transaction, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.s.ledger[productKey{shopID, productID}]
	if len(rows) == 0 {
		return model.Transaction{}, false, nil
	}
	return rows[len(rows)-1], true, nil
}

// 台帳の欠落記録
type Gaps struct{ s *Store }

var _ repository.LedgerGapRepository = (*Gaps)(nil)

func (r *Gaps) Create(ctx context.Context, gap model.LedgerGap) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.gapSeq++
	gap.ID = r.s.gapSeq
	r.s.gaps = append(r.s.gaps, gap)
	return nil
}

func (r *Gaps) List(ctx context.Context, f repository.LedgerGapFilter) ([]model.LedgerGap, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.LedgerGap{}
	for _, g := range r.s.gaps {
		if f.ShopID != "" && g.ShopID != f.ShopID {
			continue
		}
		if f.ProductID != "" && g.ProductID != f.ProductID {
			continue
		}
		if f.OpenOnly && g.ResolvedAt != nil {
			continue
		}
		out = append(out, g)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *Gaps) OpenProducts(ctx context.Context, limit int) ([]repository.ProductRef, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[productKey]bool)
	out := []repository.ProductRef{}
	for _, g := range r.s.gaps {
		k := productKey{g.ShopID, g.ProductID}
		if g.ResolvedAt != nil || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, repository.ProductRef{ShopID: g.ShopID, ProductID: g.ProductID})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *Gaps) Resolve(ctx context.Context, ids []int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range r.s.gaps {
		if want[r.s.gaps[i].ID] && r.s.gaps[i].ResolvedAt == nil {
			t := at
			r.s.gaps[i].ResolvedAt = &t
		}
	}
	return nil
}

// 店舗
type Shops struct{ s *Store }

var _ repository.ShopRepository = (*Shops)(nil)

func (r *Shops) List(ctx context.Context) ([]model.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Shop, 0, len(r.s.shops))
	for _, sh := range r.s.shops {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out, nil
}

func (r *Shops) FindByID(ctx context.Context, shopID string) (model.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sh, ok := r.s.shops[shopID]
	if !ok {
		return model.Shop{}, repository.ErrNotFound
	}
	return sh, nil
}

func (r *Shops) Upsert(ctx context.Context, shop model.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.shops[shop.ShopID] = shop
	return nil
}
