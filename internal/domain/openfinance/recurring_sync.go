package openfinance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/recurring"
	ofclient "spendsync/internal/infrastructure/openfinance"
	"spendsync/internal/shared/logger"
	"spendsync/internal/shared/ownerlock"
)

// RecurringOutcome counts the streams stored by one recurring sync.
type RecurringOutcome struct {
	OwnerID int64 `json:"ownerId"`
	Inflow  int   `json:"inflow"`
	Outflow int   `json:"outflow"`
	Skipped int   `json:"skipped"`
}

// RecurringSyncService stores the provider's recurring stream snapshots.
type RecurringSyncService struct {
	client    ofclient.ClientInterface
	owners    owner.Repository
	streams   recurring.Repository
	decrypter Decrypter
	locks     *ownerlock.Locker
	logger    zerolog.Logger
}

// NewRecurringSyncService creates a new recurring sync service
func NewRecurringSyncService(
	client ofclient.ClientInterface,
	owners owner.Repository,
	streams recurring.Repository,
	decrypter Decrypter,
	locks *ownerlock.Locker,
	logger zerolog.Logger,
) *RecurringSyncService {
	return &RecurringSyncService{
		client:    client,
		owners:    owners,
		streams:   streams,
		decrypter: decrypter,
		locks:     locks,
		logger:    logger,
	}
}

// SyncOwnerRecurring upserts every stream in the provider's outflow and
// inflow lists. The flow of each stream is the list it arrived in. Streams
// missing from the snapshot are left as they are.
func (s *RecurringSyncService) SyncOwnerRecurring(ctx context.Context, ownerID int64) (*RecurringOutcome, error) {
	ctx, span := syncTracer.Start(ctx, "openfinance.SyncOwnerRecurring")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner.id", ownerID))

	outcome, err := s.syncRecurring(ctx, ownerID)
	state := "complete"
	if err != nil {
		state = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	syncRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "recurring"),
		attribute.String("state", state),
	))
	return outcome, err
}

func (s *RecurringSyncService) syncRecurring(ctx context.Context, ownerID int64) (*RecurringOutcome, error) {
	unlock, err := s.locks.TryLock(ownerID)
	if err != nil {
		if errors.Is(err, ownerlock.ErrBusy) {
			return nil, ErrSyncInProgress
		}
		return nil, err
	}
	defer unlock()

	log := logger.ForOwner(s.logger, ownerID)

	_, token, err := linkedOwner(ctx, s.owners, s.decrypter, ownerID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.client.FetchRecurringStreams(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch recurring streams")
		return nil, fmt.Errorf("failed to fetch recurring streams: %w", err)
	}

	outcome := &RecurringOutcome{OwnerID: ownerID}

	stored, skipped, err := s.store(ctx, ownerID, recurring.FlowOutflow, snapshot.Outflow, log)
	outcome.Outflow, outcome.Skipped = stored, skipped
	if err != nil {
		return nil, err
	}

	stored, skipped, err = s.store(ctx, ownerID, recurring.FlowInflow, snapshot.Inflow, log)
	outcome.Inflow, outcome.Skipped = stored, outcome.Skipped+skipped
	if err != nil {
		return nil, err
	}

	if err := s.owners.TouchRecurringSync(ctx, ownerID); err != nil {
		log.Warn().Err(err).Msg("failed to record recurring sync time")
	}

	log.Info().
		Int("inflow", outcome.Inflow).
		Int("outflow", outcome.Outflow).
		Int("skipped", outcome.Skipped).
		Msg("recurring sync completed")

	return outcome, nil
}

func (s *RecurringSyncService) store(
	ctx context.Context,
	ownerID int64,
	flow recurring.Flow,
	snapshots []recurring.ProviderStream,
	log zerolog.Logger,
) (stored, skipped int, err error) {
	for _, ps := range snapshots {
		stream, err := recurring.FromProvider(ownerID, flow, ps)
		if err != nil {
			log.Warn().Str("stream_id", ps.StreamID).Err(err).Msg("skipping malformed recurring stream")
			skipped++
			continue
		}

		if _, err := s.streams.Upsert(ctx, stream); err != nil {
			if errors.Is(err, recurring.ErrOwnershipConflict) {
				log.Warn().Str("stream_id", ps.StreamID).Msg("skipping recurring stream owned by another owner")
				skipped++
				continue
			}
			return stored, skipped, fmt.Errorf("failed to upsert stream %s: %w", ps.StreamID, err)
		}
		stored++
	}

	syncStreams.Add(ctx, int64(stored), metric.WithAttributes(attribute.String("flow", string(flow))))
	return stored, skipped, nil
}
