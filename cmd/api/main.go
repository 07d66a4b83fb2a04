package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/config"
	"github.com/gauravbalpande/serverless-inventory-management/internal/handler"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/idgen"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/notify"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/storeset"
	"github.com/gauravbalpande/serverless-inventory-management/internal/jobs"
	"github.com/gauravbalpande/serverless-inventory-management/internal/logging"
	repo "github.com/gauravbalpande/serverless-inventory-management/internal/repository"
	"github.com/gauravbalpande/serverless-inventory-management/internal/server"
	"github.com/gauravbalpande/serverless-inventory-management/internal/usecase"
	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const reconcileSweepLimit = 100

func main() {
	//.env は無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//永続化
	stores, err := storeset.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}()

	ids, err := idgen.NewSnowflake(cfg.NodeID)
	if err != nil {
		return err
	}
	clock := idgen.SystemClock{}

	//低在庫通知
	var notifier repo.Notifier = notify.NewLogNotifier(log)
	if cfg.LowStockTopic != "" && stores.Pool != nil {
		notifier = notify.NewPGNotifier(stores.Pool)
	}
	dispatcher, err := stock.NewPoolDispatcher(notifier, stock.DispatcherConfig{
		Topic:   cfg.LowStockTopic,
		Workers: cfg.NotifyWorkers,
		Timeout: cfg.NotifyTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(5 * time.Second); err != nil {
			log.Warn("alert dispatcher did not drain", zap.Error(err))
		}
	}()

	//Usecase生成
	engine := stock.NewEngine(stores.Products, stores.Ledger, stores.Gaps, dispatcher, ids, clock, log, stock.Options{
		MaxAttempts:         cfg.AdjustMaxAttempts,
		BackoffMin:          cfg.AdjustBackoffMin,
		BackoffMax:          cfg.AdjustBackoffMax,
		Timeout:             cfg.AdjustTimeout,
		LedgerAppendTimeout: cfg.LedgerAppendTimeout,
	})
	reconciler := stock.NewReconciler(stores.Products, stores.Ledger, stores.Gaps, ids, clock, log, cfg.LedgerAppendTimeout)

	//定期照合
	if cfg.ReconcileCron != "" {
		sched := jobs.NewScheduler(log)
		if err := sched.AddReconcileSweep(cfg.ReconcileCron, reconciler, reconcileSweepLimit, time.Minute); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	//Handler生成
	h := server.Handlers{
		Shop:    handler.NewShopHandler(usecase.NewShopUsecase(stores.Shops)),
		Product: handler.NewProductHandler(usecase.NewProductUsecase(stores.Products, stores.Ledger, ids, clock)),
		Stock:   handler.NewStockHandler(usecase.NewInventoryUsecase(engine, reconciler, stores.Gaps)),
	}

	//Server起動
	e := server.New(cfg, log, h)
	return server.Run(ctx, e, cfg.Addr(), log)
}
