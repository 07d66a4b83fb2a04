// Package boltstore は単一ノード向けに bbolt ファイルへ保存する。
// 書き込みトランザクションは bbolt が直列化するので、条件付き書き込みは
// 1つの Update の中で Version を比べるだけでよい。
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketShops    = []byte("shops")
	bucketProducts = []byte("products")
	bucketLedger   = []byte("ledger") // 商品ごとのサブバケット、キーは seq
	bucketGaps     = []byte("gaps")
)

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketShops, bucketProducts, bucketLedger, bucketGaps} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Products() *Products { return &Products{db: s.db} }
func (s *Store) Ledger() *Ledger     { return &Ledger{db: s.db} }
func (s *Store) Gaps() *Gaps         { return &Gaps{db: s.db} }
func (s *Store) Shops() *Shops       { return &Shops{db: s.db} }

func productKey(shopID, productID string) []byte {
	return []byte(shopID + "\x00" + productID)
}

func u64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// 台帳行は ID を json に出さないので保存用に包む
type txRecord struct {
	ID int64 `json:"id"`
	model.Transaction
}

func encodeTx(t model.Transaction) ([]byte, error) {
	return json.Marshal(txRecord{ID: t.ID, Transaction: t})
}

func decodeTx(v []byte) (model.Transaction, error) {
	var r txRecord
	if err := json.Unmarshal(v, &r); err != nil {
		return model.Transaction{}, err
	}
	r.Transaction.ID = r.ID
	return r.Transaction, nil
}

func getProduct(tx *bolt.Tx, shopID, productID string) (model.Product, error) {
	v := tx.Bucket(bucketProducts).Get(productKey(shopID, productID))
	if v == nil {
		return model.Product{}, repository.ErrNotFound
	}
	var p model.Product
	if err := json.Unmarshal(v, &p); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func putProduct(tx *bolt.Tx, p model.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketProducts).Put(productKey(p.ShopID, p.ProductID), b)
}

func appendTx(tx *bolt.Tx, t model.Transaction) error {
	b, err := tx.Bucket(bucketLedger).CreateBucketIfNotExists(productKey(t.ShopID, t.ProductID))
	if err != nil {
		return err
	}
	k := u64(t.Seq)
	if b.Get(k) != nil {
		return repository.ErrAlreadyExists
	}
	v, err := encodeTx(t)
	if err != nil {
		return err
	}
	return b.Put(k, v)
}

// Products implements repository.ProductRepository.
type Products struct{ db *bolt.DB }

var _ repository.ProductRepository = (*Products)(nil)

func (r *Products) Get(ctx context.Context, shopID, productID string) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, err
	}
	var p model.Product
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		p, err = getProduct(tx, shopID, productID)
		return err
	})
	return p, err
}

func (r *Products) ConditionalSetStock(ctx context.Context, shopID, productID string, newStock, expectedVersion int64, now time.Time) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	var (
		newVersion int64
		ok         bool
	)
	err := r.db.Update(func(tx *bolt.Tx) error {
		p, err := getProduct(tx, shopID, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.Version != expectedVersion {
			return nil
		}
		p.CurrentStock = newStock
		p.Version++
		p.UpdatedAt = now
		if err := putProduct(tx, p); err != nil {
			return err
		}
		newVersion, ok = p.Version, true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return newVersion, ok, nil
}

func (r *Products) List(ctx context.Context, shopID string) ([]model.Product, error) {
	out := []model.Product{}
	prefix := []byte(shopID + "\x00")
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketProducts).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var p model.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Products) Create(ctx context.Context, p model.Product, opening *model.Transaction) (model.Product, error) {
	err := r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketProducts).Get(productKey(p.ShopID, p.ProductID)) != nil {
			return repository.ErrAlreadyExists
		}
		if err := putProduct(tx, p); err != nil {
			return err
		}
		if opening != nil {
			return appendTx(tx, *opening)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *Products) UpdateMetadata(ctx context.Context, shopID, productID string, patch model.ProductPatch, now time.Time) (model.Product, error) {
	var p model.Product
	err := r.db.Update(func(tx *bolt.Tx) error {
		var err error
		p, err = getProduct(tx, shopID, productID)
		if err != nil {
			return err
		}
		patch.Apply(&p)
		p.UpdatedAt = now
		return putProduct(tx, p)
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Delete は商品だけ消す。台帳は履歴として残す。
func (r *Products) Delete(ctx context.Context, shopID, productID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProducts)
		k := productKey(shopID, productID)
		if b.Get(k) == nil {
			return repository.ErrNotFound
		}
		return b.Delete(k)
	})
}

// Ledger implements repository.LedgerStore.
type Ledger struct{ db *bolt.DB }

var _ repository.LedgerStore = (*Ledger)(nil)

func (r *Ledger) Append(ctx context.Context, t model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return appendTx(tx, t)
	})
}

func (r *Ledger) Query(ctx context.Context, q repository.LedgerQuery) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []model.Transaction{}
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLedger).Bucket(productKey(q.ShopID, q.ProductID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		first, next := c.First, c.Next
		if q.NewestFirst {
			first, next = c.Last, c.Prev
		}
		for k, v := first(); k != nil; k, v = next() {
			t, err := decodeTx(v)
			if err != nil {
				return err
			}
			out = append(out, t)
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Ledger) Last(ctx context.Context, shopID, productID string) (model.Transaction, bool, error) {
	var (
		t     model.Transaction
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLedger).Bucket(productKey(shopID, productID))
		if b == nil {
			return nil
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return nil
		}
		var err error
		t, err = decodeTx(v)
		found = err == nil
		return err
	})
	return t, found, err
}

// Gaps implements repository.LedgerGapRepository.
type Gaps struct{ db *bolt.DB }

var _ repository.LedgerGapRepository = (*Gaps)(nil)

func (r *Gaps) Create(ctx context.Context, gap model.LedgerGap) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGaps)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		gap.ID = int64(id)
		v, err := json.Marshal(gap)
		if err != nil {
			return err
		}
		return b.Put(u64(gap.ID), v)
	})
}

func (r *Gaps) each(tx *bolt.Tx, fn func(g model.LedgerGap) (stop bool)) error {
	c := tx.Bucket(bucketGaps).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var g model.LedgerGap
		if err := json.Unmarshal(v, &g); err != nil {
			return err
		}
		if fn(g) {
			return nil
		}
	}
	return nil
}

func (r *Gaps) List(ctx context.Context, f repository.LedgerGapFilter) ([]model.LedgerGap, error) {
	out := []model.LedgerGap{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return r.each(tx, func(g model.LedgerGap) bool {
			if f.ShopID != "" && g.ShopID != f.ShopID {
				return false
			}
			if f.ProductID != "" && g.ProductID != f.ProductID {
				return false
			}
			if f.OpenOnly && g.ResolvedAt != nil {
				return false
			}
			out = append(out, g)
			return f.Limit > 0 && len(out) >= f.Limit
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Gaps) OpenProducts(ctx context.Context, limit int) ([]repository.ProductRef, error) {
	out := []repository.ProductRef{}
	seen := map[repository.ProductRef]bool{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return r.each(tx, func(g model.LedgerGap) bool {
			ref := repository.ProductRef{ShopID: g.ShopID, ProductID: g.ProductID}
			if g.ResolvedAt != nil || seen[ref] {
				return false
			}
			seen[ref] = true
			out = append(out, ref)
			return limit > 0 && len(out) >= limit
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Gaps) Resolve(ctx context.Context, ids []int64, at time.Time) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGaps)
		for _, id := range ids {
			k := u64(id)
			v := b.Get(k)
			if v == nil {
				continue
			}
			var g model.LedgerGap
			if err := json.Unmarshal(v, &g); err != nil {
				return err
			}
			if g.ResolvedAt != nil {
				continue
			}
			t := at
			g.ResolvedAt = &t
			nv, err := json.Marshal(g)
			if err != nil {
				return err
			}
			if err := b.Put(k, nv); err != nil {
				return err
			}
		}
		return nil
	})
}

// Shops implements repository.ShopRepository.
type Shops struct{ db *bolt.DB }

var _ repository.ShopRepository = (*Shops)(nil)

func (r *Shops) List(ctx context.Context) ([]model.Shop, error) {
	out := []model.Shop{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShops).ForEach(func(k, v []byte) error {
			var sh model.Shop
			if err := json.Unmarshal(v, &sh); err != nil {
				return err
			}
			out = append(out, sh)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out, nil
}

func (r *Shops) FindByID(ctx context.Context, shopID string) (model.Shop, error) {
	var sh model.Shop
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketShops).Get([]byte(shopID))
		if v == nil {
			return repository.ErrNotFound
		}
		return json.Unmarshal(v, &sh)
	})
	return sh, err
}

func (r *Shops) Upsert(ctx context.Context, shop model.Shop) error {
	v, err := json.Marshal(shop)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShops).Put([]byte(shop.ShopID), v)
	})
}
