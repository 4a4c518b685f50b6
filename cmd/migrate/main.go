// Command migrate applies, rolls back, or reports the status of the
// Durable Repository's schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"evchargenet/internal/database"
	"evchargenet/migrations"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
)

func main() {
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	cfg, err := config.LoadWithServiceDefaults("migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to durable repository", "error", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool(), migrations.FS, ".")

	switch cmd {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q: expected up, down, or status\n", cmd)
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal("migration command failed", "command", cmd, "error", err)
	}
}
