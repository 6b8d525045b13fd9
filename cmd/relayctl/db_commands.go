package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/tokenarcade/relay/service/db"
)

func dbCommands() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database management commands",
		Subcommands: []*cli.Command{
			migrateCommand(),
			pruneCommand(),
		},
	}
}

// openStore connects to the database from the global flag and returns the
// store plus a cleanup func.
func openStore(c *cli.Context) (*db.Store, func(), error) {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db.NewStore(pool), pool.Close, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the submissions schema",
		Description: `Apply the embedded schema to the database. The schema is idempotent:
running migrate against an up-to-date database is a no-op.

Example:
  relayctl db migrate --database-url postgres://localhost/relay`,
		Action: func(c *cli.Context) error {
			store, closeFn, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("Schema applied")
			return nil
		},
	}
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete journal rows older than a cutoff",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "older-than",
				Usage: "Delete rows created before now minus this duration",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			store, closeFn, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeFn()

			cutoff := time.Now().Add(-c.Duration("older-than"))
			deleted, err := store.DeleteSubmissionsOlderThan(context.Background(), cutoff)
			if err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}

			fmt.Printf("Deleted %d submission(s) older than %s\n", deleted, cutoff.Format(time.RFC3339))
			return nil
		},
	}
}
