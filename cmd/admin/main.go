package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spendsync/internal/domain/csvimport"
	"spendsync/internal/domain/openfinance"
	"spendsync/internal/infrastructure/crypto"
	ofclient "spendsync/internal/infrastructure/openfinance"
	"spendsync/internal/infrastructure/postgres"
	"spendsync/internal/shared/config"
	"spendsync/internal/shared/logger"
	"spendsync/internal/shared/ownerlock"
)

const usage = `spendsync admin CLI - maintenance commands for the spendsync API

Usage:
  admin <command> [options]

Commands:
  migrate              Apply the database schema
  import-csv           Import a bank statement CSV export for one owner
  sync-transactions    Pull transaction deltas from the provider
  sync-recurring       Refresh recurring streams from the provider

Examples:
  # Create or update the schema
  admin migrate

  # Import a statement
  admin import-csv --owner-id=1 --file=statement.csv

  # Sync transactions for specific owners
  admin sync-transactions --owner-id=1,2,3

  # Sync every linked owner with higher concurrency
  admin sync-transactions --all --workers=8 --timeout=1h

  # Refresh recurring streams for every linked owner
  admin sync-recurring --all
`

const defaultWorkers = 4

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		runMigrate(os.Args[2:])
	case "import-csv":
		runImportCSV(os.Args[2:])
	case "sync-transactions":
		runSync("sync-transactions", os.Args[2:])
	case "sync-recurring":
		runSync("sync-recurring", os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

// env is what every command needs after flag parsing.
type env struct {
	cfg *config.Config
	log zerolog.Logger
	db  *postgres.DB
}

func setup() *env {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Msg("connected to database")

	return &env{cfg: cfg, log: log, db: db}
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout := fs.Duration("timeout", time.Minute, "Timeout for the migration")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	e := setup()
	defer e.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := e.db.Migrate(ctx); err != nil {
		e.log.Fatal().Err(err).Msg("migration failed")
	}
	e.log.Info().Msg("schema is up to date")
}

func runImportCSV(args []string) {
	fs := flag.NewFlagSet("import-csv", flag.ExitOnError)

	ownerID := fs.Int64("owner-id", 0, "Owner to import for")
	path := fs.String("file", "", "Path to the CSV export")
	timeout := fs.Duration("timeout", 10*time.Minute, "Timeout for the import")

	fs.Usage = func() {
		fmt.Println("Usage: admin import-csv --owner-id=ID --file=PATH")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *ownerID <= 0 || *path == "" {
		fmt.Println("Error: --owner-id and --file are required")
		fs.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *path, err)
		os.Exit(1)
	}

	e := setup()
	defer e.db.Close()

	importer := csvimport.NewImporter(
		postgres.NewTransactionRepository(e.db),
		csvimport.NewCategoryResolver(postgres.NewCategoryRepository(e.db), time.Minute),
		ownerlock.New(),
		e.log,
		e.cfg.Import.MaxBytes,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	outcome, err := importer.Import(ctx, *ownerID, data)
	if err != nil {
		e.log.Fatal().Err(err).Str("file", *path).Msg("import failed")
	}

	fmt.Printf("\n=== Owner %d ===\n", *ownerID)
	fmt.Printf("  Schema:   %s\n", outcome.Schema)
	fmt.Printf("  Imported: %d\n", outcome.Imported)
	fmt.Printf("  Skipped:  %d\n", outcome.Skipped)
}

func runSync(command string, args []string) {
	fs := flag.NewFlagSet(command, flag.ExitOnError)

	ownerIDStr := fs.String("owner-id", "", "Owner ID(s) to sync (comma-separated for multiple)")
	allOwners := fs.Bool("all", false, "Sync every owner with a linked provider account")
	workers := fs.Int("workers", defaultWorkers, "Number of concurrent workers")
	timeout := fs.Duration("timeout", 30*time.Minute, "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Printf("Usage: admin %s [options]\n", command)
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  admin %s --owner-id=1\n", command)
		fmt.Printf("  admin %s --owner-id=1,2,3\n", command)
		fmt.Printf("  admin %s --all --workers=8 --timeout=1h\n", command)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *ownerIDStr == "" && !*allOwners {
		fmt.Println("Error: must specify --owner-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	e := setup()
	defer e.db.Close()

	encryptor, err := crypto.NewEncryptor(e.cfg.Encryption.Key)
	if err != nil {
		e.log.Fatal().Err(err).Msg("failed to create encryptor")
	}

	ownerRepo := postgres.NewOwnerRepository(e.db)
	client := ofclient.NewClient(ofclient.Config{
		BaseURL:           e.cfg.Provider.BaseURL(),
		ClientID:          e.cfg.Provider.ClientID,
		Secret:            e.cfg.Provider.Secret,
		PageSize:          e.cfg.Provider.PageSize,
		RequestsPerSecond: e.cfg.Provider.RequestsPerSecond,
		Timeout:           e.cfg.Provider.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var ownerIDs []int64
	if *allOwners {
		owners, err := ownerRepo.ListLinked(ctx)
		if err != nil {
			e.log.Fatal().Err(err).Msg("failed to list linked owners")
		}
		for _, o := range owners {
			ownerIDs = append(ownerIDs, o.ID)
		}
		e.log.Info().Int("owners", len(ownerIDs)).Msg("found linked owners")
	} else {
		ownerIDs, err = parseOwnerIDs(*ownerIDStr)
		if err != nil {
			e.log.Fatal().Err(err).Msg("invalid --owner-id")
		}
	}

	if len(ownerIDs) == 0 {
		e.log.Info().Msg("no owners to process")
		return
	}

	var run func(context.Context, int64) (string, error)
	switch command {
	case "sync-transactions":
		reconciler := openfinance.NewReconciler(postgres.NewTransactionRepository(e.db), e.log)
		svc := openfinance.NewTransactionSyncService(client, ownerRepo, reconciler, encryptor, ownerlock.New(), e.log)
		run = func(ctx context.Context, ownerID int64) (string, error) {
			o, err := svc.SyncOwnerTransactions(ctx, ownerID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("pages=%d added=%d modified=%d removed=%d skipped=%d",
				o.Pages, o.Added, o.Modified, o.Removed, o.Skipped), nil
		}
	default:
		svc := openfinance.NewRecurringSyncService(client, ownerRepo, postgres.NewRecurringRepository(e.db), encryptor, ownerlock.New(), e.log)
		run = func(ctx context.Context, ownerID int64) (string, error) {
			o, err := svc.SyncOwnerRecurring(ctx, ownerID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("inflow=%d outflow=%d skipped=%d", o.Inflow, o.Outflow, o.Skipped), nil
		}
	}

	e.log.Info().Str("command", command).Int("owners", len(ownerIDs)).Int("workers", *workers).Msg("starting")
	startTime := time.Now()

	var (
		mu      sync.Mutex
		summary = make(map[int64]string, len(ownerIDs))
	)
	errs := openfinance.ForEachOwner(ctx, ownerIDs, *workers, func(ctx context.Context, ownerID int64) error {
		line, err := run(ctx, ownerID)
		if err != nil {
			return err
		}
		mu.Lock()
		summary[ownerID] = line
		mu.Unlock()
		return nil
	})

	sort.Slice(ownerIDs, func(i, j int) bool { return ownerIDs[i] < ownerIDs[j] })
	for _, id := range ownerIDs {
		if err := errs[id]; err != nil {
			fmt.Printf("  owner %d: FAILED %v\n", id, err)
			continue
		}
		fmt.Printf("  owner %d: %s\n", id, summary[id])
	}

	e.log.Info().Dur("elapsed", time.Since(startTime)).Int("failed", len(errs)).Msg("completed")
	if len(errs) > 0 {
		os.Exit(2)
	}
}

// parseOwnerIDs parses a comma-separated id list, ignoring empty entries and duplicates.
func parseOwnerIDs(s string) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid owner ID %q", p)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
