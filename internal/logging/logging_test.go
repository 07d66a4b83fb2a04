package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.log")

	logger, err := New("production", path)
	require.NoError(t, err)
	logger.Info("stock adjusted", zap.String("shop_id", "shop-1"))
	_ = logger.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"stock adjusted"`)
	assert.Contains(t, string(b), `"shop_id":"shop-1"`)
}

func TestNew_Development(t *testing.T) {
	logger, err := New("development", "")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	assert.Same(t, logger, zap.L())
}
