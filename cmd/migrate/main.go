// Package main provides a CLI for the clinic ledger schema.
//
//	migrate up
//	migrate status
//	migrate reconcile [--account optics]
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"clinicledger/internal/app"
	"clinicledger/internal/config"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/infrastructure/metrics"
	"clinicledger/internal/infrastructure/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "up":
		migrateUp(ctx)
	case "status":
		migrationStatus(ctx)
	case "reconcile":
		reconcile(ctx)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Clinic ledger schema CLI

Usage:
  migrate <command> [options]

Commands:
  up          Apply pending migrations
  status      List migrations and when they were applied
  reconcile   Compare stored balances with a replay of the journal
  help        Show this help

Environment Variables:
  DATABASE_DSN   Connection string (required)

Examples:
  migrate up
  migrate status
  migrate reconcile --account optics`)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Env == config.EnvMemory {
		fmt.Println("Error: APP_ENV=memory has no schema to manage")
		os.Exit(1)
	}
	return cfg
}

func getPool(ctx context.Context, cfg *config.Config) *postgres.Pool {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN).WithLimits(2, 1))
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	return pool
}

func migrateUp(ctx context.Context) {
	pool := getPool(ctx, loadConfig())
	defer pool.Close()

	migrator, err := postgres.NewMigrator(pool)
	if err != nil {
		fmt.Printf("Error loading migrations: %v\n", err)
		os.Exit(1)
	}

	n, err := migrator.Up(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Printf("%d migration(s) applied before the failure\n", n)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Println("Schema is up to date")
		return
	}
	fmt.Printf("Applied %d migration(s)\n", n)
}

func migrationStatus(ctx context.Context) {
	pool := getPool(ctx, loadConfig())
	defer pool.Close()

	migrator, err := postgres.NewMigrator(pool)
	if err != nil {
		fmt.Printf("Error loading migrations: %v\n", err)
		os.Exit(1)
	}

	statuses, err := migrator.Status(ctx)
	if err != nil {
		fmt.Printf("Error reading status: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT")
	for _, st := range statuses {
		applied := "pending"
		if st.AppliedAt != nil {
			applied = st.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\n", st.Version, applied)
	}
	_ = w.Flush()
}

func reconcile(ctx context.Context) {
	kinds := ledger.AllAccounts
	for i := 2; i < len(os.Args); i++ {
		if os.Args[i] == "--account" && i+1 < len(os.Args) {
			k, err := ledger.ParseAccountKind(os.Args[i+1])
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			kinds = []ledger.AccountKind{k}
			i++
		}
	}

	cfg := loadConfig()
	db, err := app.OpenDatabase(ctx, cfg, metrics.New(), false)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	svc, err := app.NewPostgres(ctx, db.TxManager, cfg.SaleConfig(), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	drifted := false
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSTORED\tREPLAYED\tDRIFT")
	for _, k := range kinds {
		rec, err := svc.Ledger.Reconcile(ctx, k)
		if err != nil {
			fmt.Printf("Error reconciling %s: %v\n", k, err)
			os.Exit(1)
		}
		if !rec.Balanced() {
			drifted = true
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", k, rec.Stored, rec.Replayed, rec.Drift)
	}
	_ = w.Flush()

	if drifted {
		os.Exit(2)
	}
}
