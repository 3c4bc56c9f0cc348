package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Прогон sql-миграций по порядку имён. Применённые файлы запоминаются
// в schema_migrations, повторный запуск безопасен.
func main() {
	viper.SetDefault("migrations.dir", "migrations")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigName("migrate")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // конфиг-файл опционален, env достаточно

	dsn := viper.GetString("database.dsn")
	if dsn == "" {
		panic("DATABASE_DSN is required")
	}
	dir := viper.GetString("migrations.dir")

	if err := run(context.Background(), dsn, dir); err != nil {
		panic(err)
	}
	fmt.Println("done")
}

func run(ctx context.Context, dsn, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return errors.Wrap(err, "glob migrations")
	}
	if len(files) == 0 {
		return errors.Errorf("no migrations in %s", dir)
	}
	sort.Strings(files)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return errors.Wrap(err, "ensure schema_migrations")
	}

	for _, file := range files {
		name := filepath.Base(file)

		var one int
		err := conn.QueryRow(ctx,
			`SELECT 1 FROM schema_migrations WHERE name = $1`, name).Scan(&one)
		if err == nil {
			fmt.Printf("%s skipped\n", name)
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrap(err, name)
		}

		if err := apply(ctx, conn, file, name); err != nil {
			return errors.Wrap(err, name)
		}
		fmt.Printf("%s applied\n", name)
	}
	return nil
}

func apply(ctx context.Context, conn *pgx.Conn, file, name string) error {
	sql, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "read")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range strings.Split(string(sql), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "exec")
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return errors.Wrap(err, "record")
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}
