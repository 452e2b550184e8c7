package openfinance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/transaction"
	ofclient "spendsync/internal/infrastructure/openfinance"
	"spendsync/internal/shared/logger"
	"spendsync/internal/shared/ownerlock"
)

var (
	syncTracer     = otel.Tracer("spendsync/openfinance")
	syncMeter      = otel.Meter("spendsync/openfinance")
	syncPages, _   = syncMeter.Int64Counter("sync.pages", metric.WithDescription("Provider pages fetched"))
	syncDeltas, _  = syncMeter.Int64Counter("sync.deltas", metric.WithDescription("Provider deltas applied by kind"))
	syncRuns, _    = syncMeter.Int64Counter("sync.runs", metric.WithDescription("Sync runs by operation and state"))
	syncStreams, _ = syncMeter.Int64Counter("recurring.streams", metric.WithDescription("Recurring streams stored by flow"))
)

// ErrSyncInProgress is returned when a run for the same owner and operation is already active.
var ErrSyncInProgress = errors.New("sync already in progress for this owner")

// Decrypter opens the stored provider token.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// SyncOutcome is the result of one completed transaction sync.
type SyncOutcome struct {
	OwnerID  int64 `json:"ownerId"`
	Pages    int   `json:"pages"`
	Added    int   `json:"added"`
	Modified int   `json:"modified"`
	Removed  int   `json:"removed"`
	Skipped  int   `json:"skipped"`
}

// TransactionSyncService pulls transaction deltas from the provider and
// reconciles them into the store.
type TransactionSyncService struct {
	client     ofclient.ClientInterface
	owners     owner.Repository
	reconciler *Reconciler
	decrypter  Decrypter
	locks      *ownerlock.Locker
	logger     zerolog.Logger
}

// NewTransactionSyncService creates a new transaction sync service
func NewTransactionSyncService(
	client ofclient.ClientInterface,
	owners owner.Repository,
	reconciler *Reconciler,
	decrypter Decrypter,
	locks *ownerlock.Locker,
	logger zerolog.Logger,
) *TransactionSyncService {
	return &TransactionSyncService{
		client:     client,
		owners:     owners,
		reconciler: reconciler,
		decrypter:  decrypter,
		locks:      locks,
		logger:     logger,
	}
}

type deltas struct {
	added    []transaction.ProviderRecord
	modified []transaction.ProviderRecord
	removed  []string
}

// SyncOwnerTransactions pages through every delta after the owner's stored
// cursor, applies them, and only then advances the cursor. Any failure before
// the final compare-and-set leaves the stored cursor untouched, so the next
// run re-fetches the same deltas; applying them again is harmless.
func (s *TransactionSyncService) SyncOwnerTransactions(ctx context.Context, ownerID int64) (*SyncOutcome, error) {
	ctx, span := syncTracer.Start(ctx, "openfinance.SyncOwnerTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", ownerID))

	outcome, err := s.syncTransactions(ctx, ownerID)
	state := "complete"
	if err != nil {
		state = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	syncRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "transactions"),
		attribute.String("state", state),
	))
	return outcome, err
}

func (s *TransactionSyncService) syncTransactions(ctx context.Context, ownerID int64) (*SyncOutcome, error) {
	unlock, err := s.locks.TryLock(ownerID)
	if err != nil {
		if errors.Is(err, ownerlock.ErrBusy) {
			return nil, ErrSyncInProgress
		}
		return nil, err
	}
	defer unlock()

	log := logger.ForOwner(s.logger, ownerID)

	o, token, err := linkedOwner(ctx, s.owners, s.decrypter, ownerID)
	if err != nil {
		return nil, err
	}

	start := o.Cursor()
	log.Info().Str("cursor", start).Msg("starting transaction sync")

	d, cursor, pages, err := s.fetchAll(ctx, token, start, log)
	if err != nil {
		log.Error().Err(err).Int("pages", pages).Msg("transaction sync failed, cursor not advanced")
		return nil, err
	}

	applied, err := s.reconciler.ApplyDeltas(ctx, ownerID, d.added, d.modified, d.removed)
	if err != nil {
		log.Error().Err(err).Msg("failed to apply deltas, cursor not advanced")
		return nil, fmt.Errorf("failed to apply deltas: %w", err)
	}

	if err := s.owners.CompareAndSetCursor(ctx, ownerID, start, cursor); err != nil {
		log.Error().Err(err).Msg("failed to commit sync cursor")
		return nil, fmt.Errorf("failed to commit sync cursor: %w", err)
	}

	outcome := &SyncOutcome{
		OwnerID:  ownerID,
		Pages:    pages,
		Added:    applied.Added,
		Modified: applied.Modified,
		Removed:  applied.Removed,
		Skipped:  applied.Skipped,
	}

	log.Info().
		Int("pages", outcome.Pages).
		Int("added", outcome.Added).
		Int("modified", outcome.Modified).
		Int("removed", outcome.Removed).
		Int("skipped", outcome.Skipped).
		Msg("transaction sync completed")

	return outcome, nil
}

// fetchAll requests pages until the provider reports no more. It returns the
// accumulated deltas and the cursor after the last page.
func (s *TransactionSyncService) fetchAll(ctx context.Context, token, cursor string, log zerolog.Logger) (*deltas, string, int, error) {
	d := &deltas{}
	pages := 0

	for {
		pageCtx, span := syncTracer.Start(ctx, "openfinance.FetchTransactionPage")
		span.SetAttributes(attribute.Int("page", pages+1))

		page, err := s.client.FetchTransactionPage(pageCtx, token, cursor)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page request failed")
			span.End()
			return nil, "", pages, fmt.Errorf("failed to fetch page %d: %w", pages+1, err)
		}
		span.End()

		pages++
		syncPages.Add(ctx, 1)

		d.added = append(d.added, page.Added...)
		d.modified = append(d.modified, page.Modified...)
		d.removed = append(d.removed, page.Removed...)

		log.Debug().
			Int("page", pages).
			Int("added", len(page.Added)).
			Int("modified", len(page.Modified)).
			Int("removed", len(page.Removed)).
			Bool("has_more", page.HasMore).
			Msg("fetched transaction page")

		if !page.HasMore {
			next := page.NextCursor
			if next == "" {
				next = cursor
			}
			return d, next, pages, nil
		}
		if page.NextCursor == "" {
			return nil, "", pages, fmt.Errorf("provider reported more pages without a next cursor after %q", cursor)
		}
		if page.NextCursor == cursor {
			return nil, "", pages, fmt.Errorf("provider reported more pages without advancing cursor %q", cursor)
		}
		cursor = page.NextCursor
	}
}

// linkedOwner loads the owner and opens its provider token. Missing owners and
// owners without a linked account are reported as *owner.NotFoundError.
func linkedOwner(ctx context.Context, owners owner.Repository, decrypter Decrypter, ownerID int64) (*owner.Owner, string, error) {
	o, err := owners.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, owner.ErrNotFound) {
			return nil, "", &owner.NotFoundError{OwnerID: ownerID, Reason: "owner not found"}
		}
		return nil, "", fmt.Errorf("failed to get owner: %w", err)
	}
	if !o.Linked() {
		return nil, "", &owner.NotFoundError{OwnerID: ownerID, Reason: "no linked provider account"}
	}

	token, err := decrypter.Decrypt(*o.ProviderToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt provider token: %w", err)
	}
	return o, token, nil
}
