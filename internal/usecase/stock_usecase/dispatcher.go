package stock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/repository"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// PoolDispatcher は ants のワーカープールで通知を非同期に送る。
// プールが満杯なら待たずに捨ててログだけ残す。
type PoolDispatcher struct {
	pool     *ants.Pool
	notifier repository.Notifier
	topic    string
	timeout  time.Duration
	log      *zap.Logger
	wg       sync.WaitGroup
}

type DispatcherConfig struct {
	Topic   string
	Workers int
	Timeout time.Duration
}

func NewPoolDispatcher(notifier repository.Notifier, cfg DispatcherConfig, log *zap.Logger) (*PoolDispatcher, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &PoolDispatcher{
		notifier: notifier,
		topic:    cfg.Topic,
		timeout:  cfg.Timeout,
		log:      log,
	}

	pool, err := ants.NewPool(cfg.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			d.log.Error("low-stock notifier panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	return d, nil
}

func (d *PoolDispatcher) Dispatch(alert LowStockAlert) {
	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		d.publish(alert)
	})
	if err != nil {
		d.wg.Done()
		d.log.Warn("low-stock alert dropped",
			zap.String("shop_id", alert.ShopID),
			zap.String("product_id", alert.ProductID),
			zap.Error(err),
		)
	}
}

func (d *PoolDispatcher) publish(alert LowStockAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Publish(ctx, d.topic, alert.Subject(), alert.Body()); err != nil {
		d.log.Warn("failed to publish low-stock alert",
			zap.String("shop_id", alert.ShopID),
			zap.String("product_id", alert.ProductID),
			zap.Int64("stock", alert.Stock),
			zap.Error(err),
		)
		return
	}
	d.log.Debug("low-stock alert published",
		zap.String("shop_id", alert.ShopID),
		zap.String("product_id", alert.ProductID),
	)
}

// Wait は送信中の通知がすべて終わるまで待つ。
func (d *PoolDispatcher) Wait() {
	d.wg.Wait()
}

// Close は送信中の通知を最大 timeout 待ってからプールを解放する。
func (d *PoolDispatcher) Close(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = errors.New("timed out waiting for in-flight low-stock alerts")
		d.log.Warn("low-stock dispatcher closed with alerts in flight")
	}
	d.pool.Release()
	return err
}
