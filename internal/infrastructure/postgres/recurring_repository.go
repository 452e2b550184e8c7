package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/recurring"
)

const streamColumns = `
	id, owner_id, stream_id, account_id, merchant_name, description, category_labels,
	frequency, status, flow_type, is_active, last_amount, last_date, first_date,
	average_amount, monthly_equivalent, next_expected_date, iso_currency_code,
	transaction_ids, created_at, updated_at
`

type RecurringRepository struct {
	db *DB
}

func NewRecurringRepository(db *DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func (r *RecurringRepository) Upsert(ctx context.Context, s *recurring.Stream) (bool, error) {
	query := `
		INSERT INTO recurring_streams (
			owner_id, stream_id, account_id, merchant_name, description, category_labels,
			frequency, status, flow_type, is_active, last_amount, last_date, first_date,
			average_amount, monthly_equivalent, next_expected_date, iso_currency_code,
			transaction_ids
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::date, $13::date,
			$14, $15, $16::date, $17, $18)
		ON CONFLICT (stream_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			merchant_name = EXCLUDED.merchant_name,
			description = EXCLUDED.description,
			category_labels = EXCLUDED.category_labels,
			frequency = EXCLUDED.frequency,
			status = EXCLUDED.status,
			flow_type = EXCLUDED.flow_type,
			is_active = EXCLUDED.is_active,
			last_amount = EXCLUDED.last_amount,
			last_date = EXCLUDED.last_date,
			first_date = EXCLUDED.first_date,
			average_amount = EXCLUDED.average_amount,
			monthly_equivalent = EXCLUDED.monthly_equivalent,
			next_expected_date = EXCLUDED.next_expected_date,
			iso_currency_code = EXCLUDED.iso_currency_code,
			transaction_ids = EXCLUDED.transaction_ids,
			updated_at = CURRENT_TIMESTAMP
		WHERE recurring_streams.owner_id = EXCLUDED.owner_id
		RETURNING id, (xmax = 0), created_at, updated_at
	`

	var average any
	if s.AverageAmount != nil {
		average = *s.AverageAmount
	}

	var inserted bool
	err := r.db.QueryRowContext(
		ctx, query,
		s.OwnerID, s.StreamID, s.AccountID, s.MerchantName, s.Description,
		pq.Array(nonNil(s.CategoryLabels)), string(s.Frequency), string(s.Status), string(s.Flow),
		s.IsActive, s.LastAmount, dateArg(s.LastDate), nullDateArg(s.FirstDate),
		average, s.MonthlyEquivalent, dateArg(s.NextExpectedDate), s.CurrencyCode,
		pq.Array(nonNil(s.TransactionIDs)),
	).Scan(&s.ID, &inserted, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return false, recurring.ErrOwnershipConflict
	}
	if err != nil {
		if isOwnerReferenceError(err) {
			return false, fmt.Errorf("failed to upsert recurring stream: %w", owner.ErrNotFound)
		}
		return false, fmt.Errorf("failed to upsert recurring stream: %w", err)
	}

	return inserted, nil
}

func (r *RecurringRepository) ListByOwnerID(ctx context.Context, ownerID int64, flow *recurring.Flow) ([]*recurring.Stream, error) {
	query := `SELECT` + streamColumns + `
		FROM recurring_streams
		WHERE owner_id = $1 AND ($2::text IS NULL OR flow_type = $2)
		ORDER BY monthly_equivalent DESC, stream_id ASC
	`

	var flowArg any
	if flow != nil {
		flowArg = string(*flow)
	}

	rows, err := r.db.QueryContext(ctx, query, ownerID, flowArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring streams: %w", err)
	}
	defer rows.Close()

	var streams []*recurring.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring stream: %w", err)
		}
		streams = append(streams, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring streams: %w", err)
	}

	return streams, nil
}

func scanStream(row rowScanner) (*recurring.Stream, error) {
	var (
		s                       recurring.Stream
		frequency, status, flow string
		lastDate, nextDate      time.Time
		firstDate               sql.NullTime
		average                 decimal.NullDecimal
		currency                sql.NullString
	)

	err := row.Scan(
		&s.ID, &s.OwnerID, &s.StreamID, &s.AccountID, &s.MerchantName, &s.Description,
		pq.Array(&s.CategoryLabels), &frequency, &status, &flow, &s.IsActive,
		&s.LastAmount, &lastDate, &firstDate, &average, &s.MonthlyEquivalent,
		&nextDate, &currency, pq.Array(&s.TransactionIDs), &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Frequency = recurring.Frequency(frequency)
	s.Status = recurring.Status(status)
	s.Flow = recurring.Flow(flow)
	s.LastDate = civil.DateOf(lastDate)
	s.NextExpectedDate = civil.DateOf(nextDate)
	s.FirstDate = fromNullDate(firstDate)
	s.CurrencyCode = fromNullString(currency)
	if average.Valid {
		v := average.Decimal
		s.AverageAmount = &v
	}

	return &s, nil
}
