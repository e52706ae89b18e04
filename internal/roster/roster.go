// Package roster caches teacher roster snapshots. Fetching a full roster
// costs one upstream call per group, so snapshots are kept for a day: a
// go-cache front absorbs repeated lookups in-process and a gorm row store
// keeps them across restarts.
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartable-app/cartable/internal/monitoring"
	"github.com/cartable-app/cartable/pkg/types"
)

// studentRow is one persisted roster entry, upserted by (account, student).
type studentRow struct {
	AccountID int       `gorm:"primaryKey;column:account_id"`
	StudentID int       `gorm:"primaryKey;column:student_id"`
	Payload   string    `gorm:"column:payload"`
	FetchedAt time.Time `gorm:"column:fetched_at;index"`
}

func (studentRow) TableName() string { return "roster_students" }

// Cache stores roster snapshots keyed by the upstream account id.
type Cache struct {
	db      *gorm.DB
	front   *gocache.Cache
	maxAge  time.Duration
	metrics *monitoring.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches lookup metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Open creates a Cache backed by the SQLite file at path. An empty path
// keeps the snapshots purely in memory.
func Open(path string, maxAge, sweepInterval time.Duration, opts ...Option) (*Cache, error) {
	c := &Cache{
		front:  gocache.New(maxAge, sweepInterval),
		maxAge: maxAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	if path == "" {
		return c, nil
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open roster database: %w", err)
	}
	if err := db.AutoMigrate(&studentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate roster schema: %w", err)
	}
	c.db = db
	return c, nil
}

// Get returns the cached roster for accountID, with false on a miss. A
// snapshot older than the max age counts as a miss and is evicted.
func (c *Cache) Get(ctx context.Context, accountID int) ([]types.Student, bool) {
	if v, ok := c.front.Get(frontKey(accountID)); ok {
		c.observe("hit_memory")
		return v.([]types.Student), true
	}
	if c.db == nil {
		c.observe("miss")
		return nil, false
	}

	var rows []studentRow
	err := c.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("student_id").
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		c.observe("miss")
		return nil, false
	}

	if time.Since(rows[0].FetchedAt) > c.maxAge {
		c.observe("stale")
		c.evictRows(ctx, accountID)
		return nil, false
	}

	students := make([]types.Student, 0, len(rows))
	for _, row := range rows {
		var s types.Student
		if err := sonic.UnmarshalString(row.Payload, &s); err != nil {
			c.observe("miss")
			return nil, false
		}
		students = append(students, s)
	}

	c.front.Set(frontKey(accountID), students, gocache.DefaultExpiration)
	c.observe("hit_store")
	return students, true
}

// Put stores a fresh roster snapshot for accountID.
func (c *Cache) Put(ctx context.Context, accountID int, students []types.Student) error {
	c.front.Set(frontKey(accountID), students, gocache.DefaultExpiration)
	if c.db == nil {
		return nil
	}

	now := time.Now()
	rows := make([]studentRow, 0, len(students))
	for _, s := range students {
		payload, err := sonic.MarshalString(s)
		if err != nil {
			return fmt.Errorf("failed to encode roster entry %d: %w", s.ID, err)
		}
		rows = append(rows, studentRow{
			AccountID: accountID,
			StudentID: s.ID,
			Payload:   payload,
			FetchedAt: now,
		})
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Drop entries for students no longer on the roster, then upsert.
		if err := tx.Where("account_id = ?", accountID).Delete(&studentRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous roster snapshot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "student_id"}},
			UpdateAll: true,
		}).Create(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to write roster snapshot: %w", err)
		}
		return nil
	})
}

// FetchedSince returns the persisted entries refreshed in [from, to].
func (c *Cache) FetchedSince(ctx context.Context, accountID int, from, to time.Time) ([]types.Student, error) {
	if c.db == nil {
		return nil, nil
	}
	var rows []studentRow
	err := c.db.WithContext(ctx).
		Where("account_id = ? AND fetched_at BETWEEN ? AND ?", accountID, from, to).
		Order("student_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query roster snapshot: %w", err)
	}
	students := make([]types.Student, 0, len(rows))
	for _, row := range rows {
		var s types.Student
		if err := sonic.UnmarshalString(row.Payload, &s); err != nil {
			return nil, fmt.Errorf("failed to decode roster entry: %w", err)
		}
		students = append(students, s)
	}
	return students, nil
}

// Invalidate drops the snapshot for accountID.
func (c *Cache) Invalidate(ctx context.Context, accountID int) {
	c.front.Delete(frontKey(accountID))
	c.evictRows(ctx, accountID)
}

// Close releases the backing database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	db, err := c.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (c *Cache) evictRows(ctx context.Context, accountID int) {
	if c.db == nil {
		return
	}
	c.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&studentRow{})
}

func (c *Cache) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordRosterLookup(outcome)
	}
}

func frontKey(accountID int) string {
	return fmt.Sprintf("roster:%d", accountID)
}
