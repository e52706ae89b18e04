package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartable-app/cartable/pkg/constants"
)

// stateRow is the single-table schema of the sqlite driver.
type stateRow struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (stateRow) TableName() string { return "client_state" }

// sqliteStore persists state in a local SQLite file, the default for
// desktop installs where the state must survive restarts.
type sqliteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the state database at path.
func NewSQLiteStore(path string) (StateStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.AutoMigrate(&stateRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key constants.StateKey) (string, bool, error) {
	var row stateRow
	err := s.db.WithContext(ctx).First(&row, "key = ?", string(key)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state key %q: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key constants.StateKey, value string) error {
	row := stateRow{Key: string(key), Value: value}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write state key %q: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, keys ...constants.StateKey) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, string(key))
	}
	if err := s.db.WithContext(ctx).Delete(&stateRow{}, "key IN ?", names).Error; err != nil {
		return fmt.Errorf("failed to delete state keys: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
