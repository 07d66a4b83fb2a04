// seedshops は店舗をストアに登録する。
//
//	go run ./cmd/seedshops [shops.yaml|shops.json]
//
// ファイルを省略するとデモ用の3店舗を登録する。
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gauravbalpande/serverless-inventory-management/internal/config"
	"github.com/gauravbalpande/serverless-inventory-management/internal/domain/model"
	"github.com/gauravbalpande/serverless-inventory-management/internal/infra/storeset"
	"github.com/gauravbalpande/serverless-inventory-management/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultOwnerEmail = "unknown@example.com"

type shopEntry struct {
	ShopID     string  `yaml:"shopId"`
	Name       string  `yaml:"name"`
	OwnerEmail *string `yaml:"ownerEmail"`
	Size       string  `yaml:"size"`
	CreatedAt  string  `yaml:"createdAt"`
}

func ptr(s string) *string { return &s }

var defaultShops = []shopEntry{
	{ShopID: "demo-shop-001", Name: "Demo Shop · Small", OwnerEmail: ptr("owner@example.com"), Size: "small"},
	{ShopID: "demo-shop-002", Name: "Demo Shop · Medium", OwnerEmail: ptr("owner@example.com"), Size: "medium"},
	{ShopID: "demo-shop-003", Name: "Demo Shop · Multi-branch", OwnerEmail: ptr("owner@example.com"), Size: "large"},
}

// parseShops は配列でも単一オブジェクトでも受け付ける（JSON も YAML として読める）
func parseShops(data []byte) ([]shopEntry, error) {
	var list []shopEntry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var one shopEntry
	if err := yaml.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse shops: %w", err)
	}
	return []shopEntry{one}, nil
}

func (e shopEntry) toModel(now time.Time) (model.Shop, error) {
	id := strings.TrimSpace(e.ShopID)
	if id == "" {
		return model.Shop{}, errors.New("shopId is required")
	}
	s := model.Shop{
		ShopID:     id,
		Name:       e.Name,
		OwnerEmail: defaultOwnerEmail,
		Size:       model.NormalizeShopSize(e.Size),
		CreatedAt:  now,
	}
	if s.Name == "" {
		s.Name = id
	}
	if e.OwnerEmail != nil {
		s.OwnerEmail = *e.OwnerEmail
	}
	if e.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			return model.Shop{}, fmt.Errorf("shop %s: invalid createdAt: %w", id, err)
		}
		s.CreatedAt = t.UTC()
	}
	return s, nil
}

func loadShops(args []string) ([]shopEntry, error) {
	if len(args) == 0 {
		return defaultShops, nil
	}
	data, err := os.ReadFile(args[0])
	if errors.Is(err, fs.ErrNotExist) {
		return defaultShops, nil
	}
	if err != nil {
		return nil, err
	}
	return parseShops(data)
}

func main() {
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

	if err := run(context.Background(), cfg, log, os.Args[1:]); err != nil {
		log.Fatal("seed shops failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, args []string) error {
	entries, err := loadShops(args)
	if err != nil {
		return err
	}

	stores, err := storeset.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	now := time.Now().UTC()
	log.Info("shops to add", zap.Int("count", len(entries)), zap.String("driver", cfg.StoreDriver))
	for _, e := range entries {
		s, err := e.toModel(now)
		if err != nil {
			return err
		}
		if err := stores.Shops.Upsert(ctx, s); err != nil {
			return fmt.Errorf("upsert %s: %w", s.ShopID, err)
		}
		log.Info("shop upserted", zap.String("shopId", s.ShopID), zap.String("name", s.Name))
	}
	return nil
}
