package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/taskdesk/taskdesk/internal/adapter/postgres"
	"github.com/taskdesk/taskdesk/internal/config"
)

// runMigrate dispatches migration subcommands (up, down, status).
func runMigrate(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printMigrateHelp()
		return nil
	}

	switch args[0] {
	case "up":
		return runMigrateUp(args[1:])
	case "down":
		return runMigrateDown(args[1:])
	case "status":
		return runMigrateStatus(args[1:])
	default:
		printMigrateHelp()
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}
}

func printMigrateHelp() {
	fmt.Fprintf(os.Stderr, `Usage: taskdesk migrate <command> [options]

Commands:
  up       Apply all pending migrations
  down     Roll back migrations (--steps N, default 1)
  status   Print the current migration version
  help     Show this help message

Examples:
  taskdesk migrate up
  taskdesk migrate down --steps 2
  taskdesk migrate status
`)
}

func migrateDSN(fs *flag.FlagSet, args []string) (string, error) {
	dsn := fs.String("dsn", "", "database connection string (defaults to config)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *dsn != "" {
		return *dsn, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Postgres.DSN, nil
}

func runMigrateUp(args []string) error {
	fs := flag.NewFlagSet("migrate up", flag.ContinueOnError)
	dsn, err := migrateDSN(fs, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Printf("migrated to version %d\n", v)
	return nil
}

func runMigrateDown(args []string) error {
	fs := flag.NewFlagSet("migrate down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	dsn, err := migrateDSN(fs, args)
	if err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}

	ctx := context.Background()
	if err := postgres.RollbackMigrations(ctx, dsn, *steps); err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Printf("rolled back to version %d\n", v)
	return nil
}

func runMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate status", flag.ContinueOnError)
	dsn, err := migrateDSN(fs, args)
	if err != nil {
		return err
	}

	v, err := postgres.MigrationVersion(context.Background(), dsn)
	if err != nil {
		return err
	}
	fmt.Printf("current version: %d\n", v)
	return nil
}
