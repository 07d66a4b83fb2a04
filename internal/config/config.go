package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// 永続化の種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
	StoreDriverMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	StoreDriver string // postgres / bolt / memory
	DatabaseURL string // postgres DSN（未指定なら POSTGRES_* から組み立てる）
	BoltPath    string // bolt ファイル

	JWTSecret   string   // 空なら認証なし
	CORSOrigins []string // 許可するオリジン

	// 在庫調整
	AdjustMaxAttempts   int
	AdjustBackoffMin    time.Duration
	AdjustBackoffMax    time.Duration
	AdjustTimeout       time.Duration
	LedgerAppendTimeout time.Duration

	// 低在庫通知
	LowStockTopic string // 空ならログ出力のみ
	NotifyWorkers int
	NotifyTimeout time.Duration

	ReconcileCron string // 空なら定期照合しない
	NodeID        int64  // snowflake のノード番号

	LogMode string // development / production
	LogFile string // 空ならファイル出力なし
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BoltPath:    getenv("BOLT_PATH", "inventory.db"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),

		LowStockTopic: os.Getenv("LOW_STOCK_TOPIC"),
		ReconcileCron: getenv("RECONCILE_CRON", "@every 10m"),

		LogMode: getenv("LOG_MODE", "development"),
		LogFile: os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.AdjustMaxAttempts, err = intEnv("ADJUST_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.AdjustBackoffMin, err = msEnv("ADJUST_BACKOFF_MIN_MS", 5); err != nil {
		return Config{}, err
	}
	if cfg.AdjustBackoffMax, err = msEnv("ADJUST_BACKOFF_MAX_MS", 50); err != nil {
		return Config{}, err
	}
	if cfg.AdjustTimeout, err = msEnv("ADJUST_TIMEOUT_MS", 3000); err != nil {
		return Config{}, err
	}
	if cfg.LedgerAppendTimeout, err = msEnv("LEDGER_APPEND_TIMEOUT_MS", 2000); err != nil {
		return Config{}, err
	}
	if cfg.NotifyWorkers, err = intEnv("NOTIFY_WORKERS", 8); err != nil {
		return Config{}, err
	}
	if cfg.NotifyTimeout, err = msEnv("NOTIFY_TIMEOUT_MS", 2000); err != nil {
		return Config{}, err
	}
	nodeID, err := intEnv("NODE_ID", 1)
	if err != nil {
		return Config{}, err
	}
	cfg.NodeID = int64(nodeID)

	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = postgresDSN()
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverBolt, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, bolt, memory")
	}
	if c.StoreDriver == StoreDriverBolt && c.BoltPath == "" {
		return fmt.Errorf("BOLT_PATH is required")
	}
	if c.AdjustMaxAttempts < 1 {
		return fmt.Errorf("ADJUST_MAX_ATTEMPTS must be >= 1")
	}
	if c.AdjustBackoffMin < 0 || c.AdjustBackoffMax < c.AdjustBackoffMin {
		return fmt.Errorf("ADJUST_BACKOFF_MIN_MS must be >= 0 and <= ADJUST_BACKOFF_MAX_MS")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be >= 1")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023")
	}
	return nil
}

// Addr は echo に渡す listen アドレス
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func postgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("POSTGRES_HOST", "localhost"),
		getenv("POSTGRES_PORT", "5432"),
		getenv("POSTGRES_USER", "postgres"),
		getenv("POSTGRES_PASSWORD", "postgres"),
		getenv("POSTGRES_DB", "inventory"),
		getenv("POSTGRES_SSLMODE", "disable"),
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func msEnv(key string, defMs int) (time.Duration, error) {
	ms, err := intEnv(key, defMs)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitList(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
