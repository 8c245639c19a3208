package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"
)

// DefaultPath is the database file used when none is configured
const DefaultPath = "logs.db"

var errClosed = errors.New("store is closed")

// Replay is one harvested battle. The id is the primary key, so a replay is
// stored at most once.
type Replay struct {
	ID     string `gorm:"primaryKey;column:id;type:text" json:"id"`
	Format string `gorm:"column:format;type:text;index:idx_logs_format" json:"format"`
	Rating *int   `gorm:"column:rating;index:idx_logs_rating" json:"rating"`
	Log    string `gorm:"column:log;type:text" json:"log"`
}

// TableName keeps the table name stable across renames of the Go type
func (Replay) TableName() string {
	return "logs"
}

// Store persists replays in a single SQLite file
type Store struct {
	path string
	db   *gorm.DB
	sql  *sql.DB
}

// Open opens (creating if needed) the database at path and migrates the
// logs table
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// one writer at a time; readers queue behind it
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Replay{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{path: path, db: db, sql: sqlDB}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// Exists reports whether a replay with id is already stored. The answer may
// be stale by the time the caller acts on it; Add stays correct regardless.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errClosed
	}

	var n int64
	err := s.db.WithContext(ctx).Model(&Replay{}).Where("id = ?", id).Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking replay %s: %w", id, err)
	}
	return n > 0, nil
}

// Add inserts r unless its id is already present. inserted is false when
// the record already existed; that is not an error.
func (s *Store) Add(ctx context.Context, r Replay) (bool, error) {
	if s == nil || s.db == nil {
		return false, errClosed
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&r)
	if res.Error != nil {
		return false, fmt.Errorf("inserting replay %s: %w", r.ID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Size returns the current size of the database file in bytes. It is read
// from the filesystem on every call.
func (s *Store) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("reading db size: %w", err)
	}
	return info.Size(), nil
}

// HumanSize formats a byte count for logs and tables
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
