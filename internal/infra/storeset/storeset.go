// Package storeset は STORE_DRIVER に応じて永続化の実装を選ぶ。
package storeset

import (
	"context"
	"fmt"

	"github.com/gauravbalpande/serverless-inventory-management/internal/config"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/boltstore"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/db"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/memstore"
	infraRepo "github.com/gauravbalpande/serverless-inventory-management/internal/infra/repository"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Set struct {
	Products repo.ProductRepository
	Ledger   repo.LedgerStore
	Gaps     repo.LedgerGapRepository
	Shops    repo.ShopRepository

	// postgres のときだけ。通知（pg_notify）に使う
	Pool *pgxpool.Pool

	closers []func() error
}

// Open は cfg.StoreDriver の実装を開く。postgres ならマイグレーションも行う。
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		gdb, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(gdb); err != nil {
			_ = closeGorm(gdb)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pool, err := db.ConnectPool(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = closeGorm(gdb)
			return nil, fmt.Errorf("connect pgx pool: %w", err)
		}
		s := &Set{
			Products: infraRepo.NewProductGormRepository(gdb),
			Ledger:   infraRepo.NewLedgerGormRepository(gdb),
			Gaps:     infraRepo.NewLedgerGapGormRepository(gdb),
			Shops:    infraRepo.NewShopGormRepository(gdb),
			Pool:     pool,
		}
		s.closers = append(s.closers,
			func() error { pool.Close(); return nil },
			func() error { return closeGorm(gdb) },
		)
		log.Info("store opened", zap.String("driver", cfg.StoreDriver))
		return s, nil

	case config.StoreDriverBolt:
		bs, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		log.Info("store opened", zap.String("driver", cfg.StoreDriver), zap.String("path", cfg.BoltPath))
		return &Set{
			Products: bs.Products(),
			Ledger:   bs.Ledger(),
			Gaps:     bs.Gaps(),
			Shops:    bs.Shops(),
			closers:  []func() error{bs.Close},
		}, nil

	case config.StoreDriverMemory:
		ms := memstore.New()
		log.Warn("memory store in use; data is lost on exit")
		return &Set{
			Products: ms.Products(),
			Ledger:   ms.Ledger(),
			Gaps:     ms.Gaps(),
			Shops:    ms.Shops(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func closeGorm(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Close は開いた順の逆に閉じる。最初のエラーを返す。
func (s *Set) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
