package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
	"github.com/secretoheladeria/heladeria-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up              apply all pending migrations
  down            roll back the latest migration
  status          list migrations and their state
  to <version>    migrate up or down to version
  create <name>   write a new empty migration into -dir
  validate        check migration files in -dir
`

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory (default: embedded files; "+migrate.DefaultDir+" for create/validate)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "heladeria-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "command": flag.Arg(0)})

	if err := run(ctx, cfg, logg, *dir, flag.Args()); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dir string, args []string) (err error) {
	command, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}

	switch command {
	case "create":
		if arg == "" {
			return errors.New("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(orDefault(dir), arg, time.Now())
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "path", path), "migrate.created")
		return nil
	case "validate":
		return migrate.ValidateDir(orDefault(dir))
	case "up", "down", "status", "to":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, client.Close()) }()

	if cfg.DB.IsSQLite() {
		if command != "up" {
			return fmt.Errorf("sqlite only supports up, got %q", command)
		}
		return migrate.AutoMigrateModels(ctx, client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	fsys, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		if arg == "" {
			return errors.New("to needs a target version")
		}
		return runner.To(ctx, arg)
	default:
		pending, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "pending", pending), "migrate.status")
		return nil
	}
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}
