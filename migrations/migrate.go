// Package migrations owns the database schema as embedded goose SQL migrations
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const (
	postgresDialect = "postgres"
	migrationsDir   = "sql"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// gooseLogger routes goose output through zap
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSpace(format), v...)
}

// Up opens a lib/pq connection for dsn and applies every pending migration
func Up(dsn string, logger *zap.Logger) error {
	db, err := sql.Open(postgresDialect, dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	return UpDB(db, logger)
}

// UpDB applies every pending migration on an existing connection
func UpDB(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(gooseLogger{logger.Named("goose").Sugar()})

	if err := goose.SetDialect(postgresDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("Database schema up to date", zap.Int64("version", version))

	return nil
}

// Files lists the embedded migration file names in apply order
func Files() ([]string, error) {
	entries, err := migrationFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
