package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spendsync/internal/domain/owner"
)

const ownerColumns = `
	id, external_id, email, provider_token, provider_item_id, institution_id,
	institution_name, sync_cursor, accounts_linked, last_transactions_sync,
	last_recurring_sync, created_at, updated_at
`

type OwnerRepository struct {
	db *DB
}

func NewOwnerRepository(db *DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOwner(row rowScanner) (*owner.Owner, error) {
	var (
		o                                                  owner.Owner
		token, itemID, institutionID, institutionName, cur sql.NullString
		lastTxSync, lastRecurringSync                      sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.ExternalID, &o.Email, &token, &itemID, &institutionID,
		&institutionName, &cur, &o.AccountsLinked, &lastTxSync,
		&lastRecurringSync, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ProviderToken = fromNullString(token)
	o.ProviderItemID = fromNullString(itemID)
	o.InstitutionID = fromNullString(institutionID)
	o.InstitutionName = fromNullString(institutionName)
	o.SyncCursor = fromNullString(cur)
	o.LastTransactionsSync = fromNullTime(lastTxSync)
	o.LastRecurringSync = fromNullTime(lastRecurringSync)
	return &o, nil
}

func (r *OwnerRepository) GetByID(ctx context.Context, id int64) (*owner.Owner, error) {
	query := `SELECT` + ownerColumns + `FROM owners WHERE id = $1`

	o, err := scanOwner(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, owner.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}
	return o, nil
}

func (r *OwnerRepository) GetByExternalID(ctx context.Context, externalID string) (*owner.Owner, error) {
	query := `SELECT` + ownerColumns + `FROM owners WHERE external_id = $1`

	o, err := scanOwner(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, owner.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner by external id: %w", err)
	}
	return o, nil
}

func (r *OwnerRepository) ListLinked(ctx context.Context) ([]*owner.Owner, error) {
	query := `SELECT` + ownerColumns + `
		FROM owners
		WHERE provider_token IS NOT NULL AND provider_token <> ''
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked owners: %w", err)
	}
	defer rows.Close()

	var owners []*owner.Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

func (r *OwnerRepository) CompareAndSetCursor(ctx context.Context, ownerID int64, previous, next string) error {
	query := `
		UPDATE owners
		SET sync_cursor = $2,
		    last_transactions_sync = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND COALESCE(sync_cursor, '') = $3
	`

	result, err := r.db.ExecContext(ctx, query, ownerID, next, previous)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM owners WHERE id = $1)`, ownerID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check owner: %w", err)
	}
	if !exists {
		return owner.ErrNotFound
	}
	return owner.ErrCursorConflict
}

func (r *OwnerRepository) TouchRecurringSync(ctx context.Context, ownerID int64) error {
	query := `
		UPDATE owners
		SET last_recurring_sync = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("failed to touch recurring sync: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return owner.ErrNotFound
	}
	return nil
}
