// Package gormstore implements domain.Repository on GORM, with a PostGIS
// backend for production and an embedded SQLite backend for local runs and
// tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/grocery-deals-api/internal/config"
	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Repository persists stores and promotions. It implements domain.Repository
// and sharedobs.ReadinessChecker.
type Repository struct {
	db      *gorm.DB
	radius  radiusFinder
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open connects to the configured database, sizes the pool and, when
// DB_AUTO_MIGRATE is set, brings the schema up to date.
func Open(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(logger),
		NowFunc: func() time.Time { return clock.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.StoreDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	if cfg.StoreDriver == config.DriverSQLite {
		// One connection keeps an in-memory database alive and serializes
		// writers, which SQLite requires anyway.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(min(cfg.DBMaxOpenConns, 10))
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	r := New(db, logger, metrics)
	if cfg.DBAutoMigrate {
		if err := r.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	logger.Info("database connected", "driver", cfg.StoreDriver, "auto_migrate", cfg.DBAutoMigrate)
	return r, nil
}

// New wraps an open GORM handle. The radius strategy follows the dialect.
func New(db *gorm.DB, logger *slog.Logger, metrics *observability.Metrics) *Repository {
	var finder radiusFinder = haversineRadius{}
	if isPostgres(db) {
		finder = postgisRadius{}
	}
	return &Repository{db: db, radius: finder, logger: logger, metrics: metrics}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CheckReadiness pings the database.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (r *Repository) CreateStore(ctx context.Context, s domain.Store) (domain.Store, error) {
	defer r.observe("create_store")()

	rec := newStoreRecord(s)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Store{}, fmt.Errorf("insert store: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) GetStore(ctx context.Context, id int64) (domain.Store, error) {
	defer r.observe("get_store")()

	var rec storeRecord
	err := r.db.WithContext(ctx).
		Scopes(selectStoreColumns).
		Preload("Promotions", orderByID).
		First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Store{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Store{}, fmt.Errorf("get store %d: %w", id, err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) FindStoresWithinRadius(ctx context.Context, q domain.RadiusQuery) ([]domain.Store, error) {
	defer r.observe("find_stores_within_radius")()

	if err := q.Validate(); err != nil {
		return nil, err
	}
	recs, err := r.radius.find(r.db.WithContext(ctx).Scopes(selectStoreColumns), q)
	if err != nil {
		return nil, fmt.Errorf("find stores within %.3f km: %w", q.RadiusKm, err)
	}
	return toStores(recs), nil
}

func (r *Repository) CreatePromotion(ctx context.Context, p domain.Promotion) (domain.Promotion, error) {
	defer r.observe("create_promotion")()

	rec := newPromotionRecord(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storeExists(tx, p.StoreID); err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Promotion{}, err
	}
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("insert promotion for store %d: %w", p.StoreID, err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) ListPromotions(ctx context.Context, storeID int64, page domain.Page) ([]domain.Promotion, error) {
	defer r.observe("list_promotions")()

	var recs []promotionRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := storeExists(tx, storeID); err != nil {
			return err
		}
		return tx.Where("store_id = ?", storeID).
			Scopes(orderByID, paginate(page)).
			Find(&recs).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("list promotions for store %d: %w", storeID, err)
	}
	return toPromotions(recs), nil
}

func storeExists(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&storeRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check store %d: %w", id, err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) observe(operation string) func() {
	start := time.Now()
	return func() {
		r.metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// selectStoreColumns reads the PostGIS point back as WKT. SQLite already
// stores WKT text.
func selectStoreColumns(db *gorm.DB) *gorm.DB {
	if !isPostgres(db) {
		return db
	}
	return db.Select("stores.id, stores.name, stores.address, stores.latitude, stores.longitude, " +
		"stores.chain_name, ST_AsText(stores.geom) AS geom")
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func paginate(page domain.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(page.Skip).Limit(page.Limit)
	}
}
