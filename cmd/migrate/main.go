// Command migrate applies the SQL files under migrations/ in lexical order.
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/roomhub/bookings/pkg/config"
	"github.com/roomhub/bookings/pkg/database"
	"github.com/roomhub/bookings/pkg/logger"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		logger.Error("Failed to list migrations", "error", err)
		os.Exit(1)
	}
	sort.Strings(entries)

	for _, path := range entries {
		sql, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read migration", "path", path, "error", err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Error("Migration failed", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("Applied migration", "path", path)
	}

	logger.Info("Migrations complete", "count", len(entries))
}
