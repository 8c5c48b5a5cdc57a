// Command seed loads a JSON fixture of stores and their promotions into the
// configured database. Records go through the service layer, so every row
// obeys the same validation as the API.
//
// Usage:
//
//	go run ./cmd/seed -file data/stores.json
//
// Stores without coordinates are geocoded from their address when
// GEOCODER_ENABLED is set, and skipped otherwise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/grocery-deals-api/internal/adapter/geoadmin"
	"github.com/couchcryptid/grocery-deals-api/internal/adapter/gormstore"
	"github.com/couchcryptid/grocery-deals-api/internal/config"
	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	"github.com/couchcryptid/grocery-deals-api/internal/service"
	"github.com/jonboulle/clockwork"
)

// fixtureStore is one store entry in the seed file.
type fixtureStore struct {
	domain.StoreInput
	Promotions []domain.PromotionInput `json:"promotions"`
}

type summary struct {
	stores     int
	promotions int
	skipped    int
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "data/stores.json", "path to the store fixture")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	ctx := context.Background()

	fixture, err := loadFixture(*file)
	if err != nil {
		return err
	}

	repo, err := gormstore.Open(ctx, cfg, clock, logger, metrics)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	var geocoder domain.Geocoder
	if cfg.GeocoderEnabled {
		geocoder = geoadmin.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderMaxRetries, logger, metrics)
	}

	svc := service.New(repo, geocoder, nil, clock, logger, metrics)
	sum, err := seed(ctx, svc, fixture, logger)
	if err != nil {
		return err
	}

	logger.Info("seed complete", "stores", sum.stores, "promotions", sum.promotions, "skipped", sum.skipped)
	return nil
}

func loadFixture(path string) ([]fixtureStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var stores []fixtureStore
	if err := json.Unmarshal(data, &stores); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return stores, nil
}

// seed creates every fixture store and its promotions. A store whose position
// cannot be resolved is skipped; any other failure aborts the run.
func seed(ctx context.Context, svc *service.Service, fixture []fixtureStore, logger *slog.Logger) (summary, error) {
	var sum summary
	for i, fs := range fixture {
		in := fs.StoreInput
		if in.Latitude == nil || in.Longitude == nil {
			coords, found, err := svc.ResolveAddress(ctx, in.Address)
			if err != nil {
				return sum, fmt.Errorf("store %d (%s): %w", i, in.Name, err)
			}
			if !found {
				logger.Warn("skipping store without coordinates", "name", in.Name, "address", in.Address)
				sum.skipped++
				continue
			}
			in.Latitude, in.Longitude = &coords.Latitude, &coords.Longitude
		}

		store, err := svc.CreateStore(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("store %d (%s): %w", i, in.Name, err)
		}
		sum.stores++

		for j, p := range fs.Promotions {
			if p.StoreID == nil {
				p.StoreID = &store.ID
			}
			if _, err := svc.CreatePromotion(ctx, store.ID, p); err != nil {
				return sum, fmt.Errorf("store %s promotion %d: %w", store.Name, j, err)
			}
			sum.promotions++
		}
	}
	return sum, nil
}
