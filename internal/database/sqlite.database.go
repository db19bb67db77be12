package database

import (
	"fmt"
	"os"
	"path/filepath"

	"cleanbook/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// MemorySQLitePath opens a private in-memory database.
const MemorySQLitePath = "file::memory:"

// OpenSQLite opens a pure Go SQLite database. SQLite allows a single writer,
// so the pool is pinned to one connection.
func OpenSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	if path != MemorySQLitePath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// NewSQLiteForTests returns a migrated in-memory database without cache clients.
func NewSQLiteForTests() (DB, error) {
	sql, err := OpenSQLite(MemorySQLitePath, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return DB{}, err
	}

	db := NewWithSQL(sql)
	if err := db.MigrateModels(); err != nil {
		return DB{}, err
	}
	if err := db.CreateIndexes(); err != nil {
		return DB{}, err
	}
	return db, nil
}

func (s *DB) initializeSQLiteDB(gormConfig *gorm.Config, config config.Config) error {
	log := s.log.Function("initializeSQLiteDB")

	log.Info("Opening SQLite database", "path", config.DatabaseSQLitePath)
	db, err := OpenSQLite(config.DatabaseSQLitePath, gormConfig)
	if err != nil {
		return log.Err("failed to open SQLite database", err)
	}

	s.SQL = db
	return nil
}

