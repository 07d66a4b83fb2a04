// Package jobs は定期実行する運用タスク。
package jobs

import (
	"context"
	"runtime/debug"
	"time"

	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// *stock.Reconciler が満たす
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (stock.SweepResult, error)
}

type Scheduler struct {
	sched *cron.Cron
	log   *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		sched: cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser)),
		log:   log,
	}
}

// AddReconcileSweep は cron 式の周期で未解決の台帳欠損を照合する。
// 前回が終わっていなければ今回は飛ばす。
func (s *Scheduler) AddReconcileSweep(spec string, sw Sweeper, limit int, timeout time.Duration) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("reconcile sweep panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := sw.Sweep(ctx, limit)
		if err != nil {
			s.log.Error("reconcile sweep failed", zap.Error(err))
			return
		}
		if res.Products > 0 {
			s.log.Info("reconcile sweep finished",
				zap.Int("products", res.Products),
				zap.Int("repaired", res.Repaired),
				zap.Int("failed", res.Failed))
		}
	}))

	_, err := s.sched.AddJob(spec, job)
	return err
}

func (s *Scheduler) Start() { s.sched.Start() }

// Stop は実行中のジョブが終わるか ctx が切れるまで待つ
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.sched.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stopped with jobs still running")
	}
}
