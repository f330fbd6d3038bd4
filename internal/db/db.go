package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursehub/internal/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

type DB struct {
	*gorm.DB
	Driver string
}

// Init opens driver/dsn through database/sql, hands the connection to gorm
// and migrates the schema.
func Init(driver, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite3":
		// One connection keeps :memory: databases alive and serializes writers.
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
		dialector = &sqlite.Dialector{Conn: sqlDB}
	case "postgres":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		sqlDB.Close()
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	database := &DB{DB: gdb, Driver: driver}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

func (db *DB) Migrate() error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Course{},
		&models.Video{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}
