package gormstore

import (
	"context"
	"fmt"
)

// Migrate creates or upgrades both tables, then adds what AutoMigrate cannot
// express: the PostGIS extension and the spatial index.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	postgis := isPostgres(r.db)

	if postgis {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
			return fmt.Errorf("enable postgis: %w", err)
		}
	}

	if err := db.AutoMigrate(&storeRecord{}, &promotionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_stores_lat_lon ON stores (latitude, longitude)",
	}
	if postgis {
		indexes = append(indexes,
			"CREATE INDEX IF NOT EXISTS idx_stores_geom_geography ON stores USING GIST ((geom::geography))")
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	r.logger.Info("schema migrated", "postgis", postgis)
	return nil
}
