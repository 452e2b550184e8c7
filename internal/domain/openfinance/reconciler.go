package openfinance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"spendsync/internal/domain/transaction"
	"spendsync/internal/shared/logger"
)

// ApplyResult counts the deltas applied by one ApplyDeltas call.
type ApplyResult struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
}

// Reconciler applies provider deltas to the transaction store.
//
// Every write is an idempotent upsert or delete keyed by the provider
// transaction id, so applying the same deltas twice leaves the store as
// applying them once. Malformed records are skipped and counted; a storage
// failure stops the batch and is returned so the caller keeps its cursor.
type Reconciler struct {
	transactions transaction.Repository
	logger       zerolog.Logger
}

func NewReconciler(transactions transaction.Repository, logger zerolog.Logger) *Reconciler {
	return &Reconciler{transactions: transactions, logger: logger}
}

// ApplyDeltas applies added, then modified, then removed records for one owner.
func (r *Reconciler) ApplyDeltas(
	ctx context.Context,
	ownerID int64,
	added, modified []transaction.ProviderRecord,
	removed []string,
) (*ApplyResult, error) {
	ctx, span := syncTracer.Start(ctx, "openfinance.ApplyDeltas")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner.id", ownerID),
		attribute.Int("deltas.added", len(added)),
		attribute.Int("deltas.modified", len(modified)),
		attribute.Int("deltas.removed", len(removed)),
	)

	log := logger.ForOwner(r.logger, ownerID)
	result := &ApplyResult{}

	for _, rec := range added {
		ok, err := r.upsert(ctx, ownerID, rec, log)
		if err != nil {
			return result, err
		}
		if ok {
			result.Added++
		} else {
			result.Skipped++
		}
	}

	for _, rec := range modified {
		ok, err := r.upsert(ctx, ownerID, rec, log)
		if err != nil {
			return result, err
		}
		if ok {
			result.Modified++
		} else {
			result.Skipped++
		}
	}

	for _, id := range removed {
		id = strings.TrimSpace(id)
		if id == "" {
			log.Warn().Msg("skipping removed delta without transaction id")
			result.Skipped++
			continue
		}
		// absent rows are fine, a replayed delta may already be applied
		if _, err := r.transactions.DeleteProvider(ctx, ownerID, id); err != nil {
			return result, fmt.Errorf("failed to delete transaction %s: %w", id, err)
		}
		result.Removed++
	}

	syncDeltas.Add(ctx, int64(result.Added), metric.WithAttributes(attribute.String("kind", "added")))
	syncDeltas.Add(ctx, int64(result.Modified), metric.WithAttributes(attribute.String("kind", "modified")))
	syncDeltas.Add(ctx, int64(result.Removed), metric.WithAttributes(attribute.String("kind", "removed")))
	syncDeltas.Add(ctx, int64(result.Skipped), metric.WithAttributes(attribute.String("kind", "skipped")))

	return result, nil
}

// upsert reports false with a nil error when the record was skipped.
func (r *Reconciler) upsert(ctx context.Context, ownerID int64, rec transaction.ProviderRecord, log zerolog.Logger) (bool, error) {
	tx, err := transaction.NormalizeProvider(ownerID, rec)
	if err != nil {
		log.Warn().Str("transaction_id", rec.TransactionID).Err(err).Msg("skipping malformed provider transaction")
		return false, nil
	}

	if _, err := r.transactions.UpsertProvider(ctx, tx); err != nil {
		if errors.Is(err, transaction.ErrOwnershipConflict) {
			log.Warn().Str("transaction_id", rec.TransactionID).Msg("skipping provider transaction owned by another owner")
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert transaction %s: %w", rec.TransactionID, err)
	}
	return true, nil
}
