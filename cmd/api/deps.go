package main

import (
	"time"

	"github.com/rs/zerolog"

	"spendsync/internal/domain/csvimport"
	"spendsync/internal/domain/openfinance"
	"spendsync/internal/infrastructure/crypto"
	ofclient "spendsync/internal/infrastructure/openfinance"
	"spendsync/internal/infrastructure/postgres"
	httphandlers "spendsync/internal/interfaces/http"
	"spendsync/internal/shared/auth"
	"spendsync/internal/shared/config"
	"spendsync/internal/shared/ownerlock"
)

// categoryCacheTTL bounds how long a resolved category id is reused across imports.
const categoryCacheTTL = 10 * time.Minute

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ImportHandler      *httphandlers.ImportHandler
	SyncHandler        *httphandlers.SyncHandler
	TransactionHandler *httphandlers.TransactionHandler
	RecurringHandler   *httphandlers.RecurringHandler

	// Auth
	JWT *auth.JWT

	// Sync services (for scheduler)
	TransactionSyncService *openfinance.TransactionSyncService
	RecurringSyncService   *openfinance.RecurringSyncService

	// Repositories (for scheduler job provider)
	OwnerRepo *postgres.OwnerRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	ownerRepo := postgres.NewOwnerRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	recurringRepo := postgres.NewRecurringRepository(db)

	ofClient := ofclient.NewClient(ofclient.Config{
		BaseURL:           cfg.Provider.BaseURL(),
		ClientID:          cfg.Provider.ClientID,
		Secret:            cfg.Provider.Secret,
		PageSize:          cfg.Provider.PageSize,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Timeout:           cfg.Provider.Timeout,
	})

	// Each operation serializes per owner independently.
	importLocks := ownerlock.New()
	transactionLocks := ownerlock.New()
	recurringLocks := ownerlock.New()

	importer := csvimport.NewImporter(
		transactionRepo,
		csvimport.NewCategoryResolver(categoryRepo, categoryCacheTTL),
		importLocks,
		logger.With().Str("component", "csvimport").Logger(),
		cfg.Import.MaxBytes,
	)

	reconciler := openfinance.NewReconciler(transactionRepo, logger.With().Str("component", "reconciler").Logger())
	transactionSyncService := openfinance.NewTransactionSyncService(
		ofClient, ownerRepo, reconciler, encryptor, transactionLocks,
		logger.With().Str("component", "transaction_sync").Logger(),
	)
	recurringSyncService := openfinance.NewRecurringSyncService(
		ofClient, ownerRepo, recurringRepo, encryptor, recurringLocks,
		logger.With().Str("component", "recurring_sync").Logger(),
	)

	return &Dependencies{
		DB:                     db,
		ImportHandler:          httphandlers.NewImportHandler(importer, cfg.Import.MaxBytes),
		SyncHandler:            httphandlers.NewSyncHandler(transactionSyncService, recurringSyncService),
		TransactionHandler:     httphandlers.NewTransactionHandler(transactionRepo),
		RecurringHandler:       httphandlers.NewRecurringHandler(recurringRepo),
		JWT:                    auth.NewJWT(cfg.JWT.Secret),
		TransactionSyncService: transactionSyncService,
		RecurringSyncService:   recurringSyncService,
		OwnerRepo:              ownerRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
