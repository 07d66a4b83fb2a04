package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	stock "github.com/gauravbalpande/serverless-inventory-management/internal/usecase/stock_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type SweeperMock struct{ mock.Mock }

func (m *SweeperMock) Sweep(ctx context.Context, limit int) (stock.SweepResult, error) {
	args := m.Called(ctx, limit)
	res, _ := args.Get(0).(stock.SweepResult)
	return res, args.Error(1)
}

func TestAddReconcileSweep_RunsSweep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(zap.New(core))
	sw := new(SweeperMock)
	sw.On("Sweep", mock.Anything, 100).Return(stock.SweepResult{Products: 2, Repaired: 1, Failed: 1}, nil).Once()

	require.NoError(t, s.AddReconcileSweep("@every 10m", sw, 100, time.Second))
	entries := s.sched.Entries()
	require.Len(t, entries, 1)

	entries[0].Job.Run()

	sw.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("reconcile sweep finished").Len())
}

func TestAddReconcileSweep_LogsFailureAndPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewScheduler(zap.New(core))

	failing := new(SweeperMock)
	failing.On("Sweep", mock.Anything, 10).Return(nil, errors.New("db down"))
	require.NoError(t, s.AddReconcileSweep("0 */5 * * * *", failing, 10, time.Second))

	panicking := new(SweeperMock)
	panicking.On("Sweep", mock.Anything, 10).Run(func(mock.Arguments) { panic("boom") })
	require.NoError(t, s.AddReconcileSweep("@hourly", panicking, 10, time.Second))

	for _, e := range s.sched.Entries() {
		e.Job.Run()
	}
	assert.Equal(t, 1, logs.FilterMessage("reconcile sweep failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("reconcile sweep panicked").Len())
}

func TestAddReconcileSweep_InvalidSpec(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.AddReconcileSweep("every ten minutes", new(SweeperMock), 10, time.Second))
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(nil)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
