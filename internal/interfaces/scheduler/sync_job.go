package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"spendsync/internal/domain/openfinance"
	"spendsync/internal/domain/owner"
)

// TransactionSyncer is satisfied by openfinance.TransactionSyncService.
type TransactionSyncer interface {
	SyncOwnerTransactions(ctx context.Context, ownerID int64) (*openfinance.SyncOutcome, error)
}

// RecurringSyncer is satisfied by openfinance.RecurringSyncService.
type RecurringSyncer interface {
	SyncOwnerRecurring(ctx context.Context, ownerID int64) (*openfinance.RecurringOutcome, error)
}

// OwnerSyncJob runs a transaction sync and then a recurring sync for one owner.
// A failed transaction sync skips the recurring step.
type OwnerSyncJob struct {
	ownerID      int64
	transactions TransactionSyncer
	recurring    RecurringSyncer
	logger       zerolog.Logger
}

func NewOwnerSyncJob(ownerID int64, transactions TransactionSyncer, recurring RecurringSyncer, logger zerolog.Logger) *OwnerSyncJob {
	return &OwnerSyncJob{
		ownerID:      ownerID,
		transactions: transactions,
		recurring:    recurring,
		logger:       logger.With().Int64("owner_id", ownerID).Logger(),
	}
}

// Execute treats a run already in progress for the owner as a skip, not a failure.
func (j *OwnerSyncJob) Execute(ctx context.Context) error {
	txOutcome, err := j.transactions.SyncOwnerTransactions(ctx, j.ownerID)
	switch {
	case errors.Is(err, openfinance.ErrSyncInProgress):
		j.logger.Info().Msg("transaction sync already running, skipping")
	case err != nil:
		return fmt.Errorf("transaction sync failed, skipping recurring sync: %w", err)
	default:
		j.logger.Info().
			Int("added", txOutcome.Added).
			Int("modified", txOutcome.Modified).
			Int("removed", txOutcome.Removed).
			Int("skipped", txOutcome.Skipped).
			Msg("transaction sync completed")
	}

	recOutcome, err := j.recurring.SyncOwnerRecurring(ctx, j.ownerID)
	switch {
	case errors.Is(err, openfinance.ErrSyncInProgress):
		j.logger.Info().Msg("recurring sync already running, skipping")
	case err != nil:
		return fmt.Errorf("recurring sync failed: %w", err)
	default:
		j.logger.Info().
			Int("inflow", recOutcome.Inflow).
			Int("outflow", recOutcome.Outflow).
			Int("skipped", recOutcome.Skipped).
			Msg("recurring sync completed")
	}

	return nil
}

func (j *OwnerSyncJob) OwnerID() int64 {
	return j.ownerID
}

func (j *OwnerSyncJob) Description() string {
	return fmt.Sprintf("Full sync (transactions + recurring) for owner %d", j.ownerID)
}

// LinkedOwnerJobs returns a job provider that yields one OwnerSyncJob per
// owner with a linked provider account.
func LinkedOwnerJobs(owners owner.Repository, transactions TransactionSyncer, recurring RecurringSyncer, logger zerolog.Logger) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		linked, err := owners.ListLinked(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list linked owners: %w", err)
		}

		jobs := make([]Job, 0, len(linked))
		for _, o := range linked {
			jobs = append(jobs, NewOwnerSyncJob(o.ID, transactions, recurring, logger))
		}
		return jobs, nil
	}
}
