package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/transaction"
)

const transactionColumns = `
	id, owner_id, origin, provider_transaction_id, account_id, amount,
	iso_currency_code, unofficial_currency_code, description, merchant_name,
	category_id, category_labels, provider_category_id, payment_channel, pending,
	pending_transaction_id, date, authorized_date, location, payment_meta,
	personal_finance_category, created_at, updated_at
`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// UpsertCSV inserts on the CSV natural key. An existing row only picks up a
// new category; a missing category never clears one already stored.
func (r *TransactionRepository) UpsertCSV(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (
			id, owner_id, origin, amount, description, category_id, category_labels, date
		)
		VALUES ($1, $2, 'CSV', $3, $4, $5, $6, $7::date)
		ON CONFLICT (owner_id, date, description, amount) WHERE origin = 'CSV'
		DO UPDATE SET
			category_id = COALESCE(EXCLUDED.category_id, transactions.category_id),
			updated_at = CURRENT_TIMESTAMP
		RETURNING (xmax = 0)
	`

	var inserted bool
	err := r.db.QueryRowContext(
		ctx, query,
		tx.ID, tx.OwnerID, tx.Amount, tx.Description, tx.CategoryID,
		pq.Array(nonNil(tx.CategoryLabels)), dateArg(tx.Date),
	).Scan(&inserted)
	if err != nil {
		return false, classifyWriteError("failed to upsert csv transaction", err)
	}

	return inserted, nil
}

// UpsertProvider inserts or replaces every mutable field by provider id. The
// conflict update is guarded on owner so another owner's row is never touched.
func (r *TransactionRepository) UpsertProvider(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (
			id, owner_id, origin, provider_transaction_id, account_id, amount,
			iso_currency_code, unofficial_currency_code, description, merchant_name,
			category_labels, provider_category_id, payment_channel, pending,
			pending_transaction_id, date, authorized_date, location, payment_meta,
			personal_finance_category
		)
		VALUES ($1, $2, 'PROVIDER', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15::date, $16::date, $17::jsonb, $18::jsonb, $19::jsonb)
		ON CONFLICT (provider_transaction_id) WHERE origin = 'PROVIDER'
		DO UPDATE SET
			account_id = EXCLUDED.account_id,
			amount = EXCLUDED.amount,
			iso_currency_code = EXCLUDED.iso_currency_code,
			unofficial_currency_code = EXCLUDED.unofficial_currency_code,
			description = EXCLUDED.description,
			merchant_name = EXCLUDED.merchant_name,
			category_labels = EXCLUDED.category_labels,
			provider_category_id = EXCLUDED.provider_category_id,
			payment_channel = EXCLUDED.payment_channel,
			pending = EXCLUDED.pending,
			pending_transaction_id = EXCLUDED.pending_transaction_id,
			date = EXCLUDED.date,
			authorized_date = EXCLUDED.authorized_date,
			location = EXCLUDED.location,
			payment_meta = EXCLUDED.payment_meta,
			personal_finance_category = EXCLUDED.personal_finance_category,
			updated_at = CURRENT_TIMESTAMP
		WHERE transactions.owner_id = EXCLUDED.owner_id
		RETURNING (xmax = 0)
	`

	var pfc any
	if tx.PersonalFinanceCategory != nil {
		b, err := json.Marshal(tx.PersonalFinanceCategory)
		if err != nil {
			return false, fmt.Errorf("failed to encode personal finance category: %w", err)
		}
		pfc = string(b)
	}

	var inserted bool
	err := r.db.QueryRowContext(
		ctx, query,
		tx.ID, tx.OwnerID, tx.ProviderTransactionID, tx.AccountID, tx.Amount,
		tx.CurrencyCode, tx.UnofficialCurrencyCode, tx.Description, tx.MerchantName,
		pq.Array(nonNil(tx.CategoryLabels)), tx.ProviderCategoryID, tx.PaymentChannel, tx.Pending,
		tx.PendingTransactionID, dateArg(tx.Date), nullDateArg(tx.AuthorizedDate),
		jsonArg(tx.Location), jsonArg(tx.PaymentMeta), pfc,
	).Scan(&inserted)

	// The guarded DO UPDATE returns no row when the id belongs to another owner.
	if errors.Is(err, sql.ErrNoRows) {
		return false, transaction.ErrOwnershipConflict
	}
	if err != nil {
		return false, classifyWriteError("failed to upsert provider transaction", err)
	}

	return inserted, nil
}

func (r *TransactionRepository) DeleteProvider(ctx context.Context, ownerID int64, providerTransactionID string) (bool, error) {
	query := `
		DELETE FROM transactions
		WHERE owner_id = $1 AND provider_transaction_id = $2 AND origin = 'PROVIDER'
	`

	result, err := r.db.ExecContext(ctx, query, ownerID, providerTransactionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n > 0, nil
}

func (r *TransactionRepository) GetByProviderID(ctx context.Context, ownerID int64, providerTransactionID string) (*transaction.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE owner_id = $1 AND provider_transaction_id = $2 AND origin = 'PROVIDER'
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, ownerID, providerTransactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

func (r *TransactionRepository) ListByOwnerID(ctx context.Context, ownerID int64, limit, offset int) ([]*transaction.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE owner_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

func (r *TransactionRepository) CountByOwnerID(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var (
		tx                                   transaction.Transaction
		origin                               string
		providerID, accountID, currency      sql.NullString
		unofficial, merchant, categoryID     sql.NullString
		providerCategory, channel, pendingID sql.NullString
		date                                 time.Time
		authorizedDate                       sql.NullTime
		location, paymentMeta, pfc           []byte
	)

	err := row.Scan(
		&tx.ID, &tx.OwnerID, &origin, &providerID, &accountID, &tx.Amount,
		&currency, &unofficial, &tx.Description, &merchant,
		&categoryID, pq.Array(&tx.CategoryLabels), &providerCategory, &channel, &tx.Pending,
		&pendingID, &date, &authorizedDate, &location, &paymentMeta,
		&pfc, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Origin = transaction.Origin(origin)
	tx.ProviderTransactionID = fromNullString(providerID)
	tx.AccountID = fromNullString(accountID)
	tx.CurrencyCode = fromNullString(currency)
	tx.UnofficialCurrencyCode = fromNullString(unofficial)
	tx.MerchantName = fromNullString(merchant)
	tx.CategoryID = fromNullString(categoryID)
	tx.ProviderCategoryID = fromNullString(providerCategory)
	tx.PaymentChannel = fromNullString(channel)
	tx.PendingTransactionID = fromNullString(pendingID)
	tx.Date = civil.DateOf(date)
	tx.AuthorizedDate = fromNullDate(authorizedDate)
	tx.Location = location
	tx.PaymentMeta = paymentMeta

	if len(pfc) > 0 {
		var c transaction.PersonalFinanceCategory
		if err := json.Unmarshal(pfc, &c); err != nil {
			return nil, fmt.Errorf("failed to decode personal finance category: %w", err)
		}
		tx.PersonalFinanceCategory = &c
	}

	return &tx, nil
}

// classifyWriteError maps a missing owner row to owner.ErrNotFound.
func classifyWriteError(msg string, err error) error {
	if isOwnerReferenceError(err) {
		return fmt.Errorf("%s: %w", msg, owner.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
