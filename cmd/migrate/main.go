package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/phish-tracker/internal/config"
	"github.com/ignite/phish-tracker/internal/migrate"
	"github.com/ignite/phish-tracker/internal/pkg/distlock"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	listOnly := flag.Bool("list", false, "print applied migrations and exit")
	flag.Parse()

	if err := run(*cfgPath, *listOnly); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath string, listOnly bool) error {
	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	dir := cfg.Migrations.Dir
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	logger.Info("connected to database")

	m := migrate.New(db, os.DirFS(dir))

	if listOnly {
		applied, err := m.Applied(ctx)
		if err != nil {
			return err
		}
		for _, a := range applied {
			fmt.Printf("  %s  %s\n", a.AppliedAt.Format(time.RFC3339), a.Filename)
		}
		fmt.Printf("Total: %d applied\n", len(applied))
		return nil
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	lock := distlock.NewLock(rdb, db, cfg.Migrations.LockKey, 10*time.Minute)
	lockCtx, cancel := context.WithTimeout(ctx, cfg.Migrations.LockTimeout())
	err = distlock.AcquireWait(lockCtx, lock, 2*time.Second)
	cancel()
	if err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			logger.Warn("release migration lock", "error", err)
		}
	}()

	ran, err := m.Up(ctx)
	for _, f := range ran {
		fmt.Printf("  %s ... OK\n", f)
	}
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "applied", len(ran), "dir", dir)
	return nil
}
