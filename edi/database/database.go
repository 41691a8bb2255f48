// Package database owns the connection to the claims store used by the
// import path.
package database

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/claimstream/edi-fixtures/conf"
	"github.com/claimstream/edi-fixtures/edi/utils"
)

type Config struct {
	DatabaseURL        string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        conf.GetEnv("DATABASE_URL"),
		MaxOpenConns:       utils.GetEnvInt("EDI_DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:       utils.GetEnvInt("EDI_DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetimeMin: utils.GetEnvInt("EDI_DB_CONN_MAX_LIFETIME_MIN", 5),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("invalid config, DATABASE_URL must be set")
	}
	return cfg, nil
}

// Connect opens and verifies the database connection described by the
// environment.
func Connect() (*sql.DB, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
