package transaction

import "context"

// Repository defines the interface for transaction data access.
// Each write is atomic on its own; callers never hold a transaction across calls.
type Repository interface {
	// UpsertCSV inserts a CSV-origin transaction keyed by its natural key.
	// When the key already exists only the category reference is updated and
	// inserted is false.
	UpsertCSV(ctx context.Context, tx *Transaction) (inserted bool, err error)
	// UpsertProvider inserts or fully updates a provider-origin transaction
	// keyed by its provider transaction id. Returns ErrOwnershipConflict when
	// the id is stored for a different owner.
	UpsertProvider(ctx context.Context, tx *Transaction) (inserted bool, err error)
	// DeleteProvider removes a provider-origin transaction. Deleting an
	// absent id is not an error.
	DeleteProvider(ctx context.Context, ownerID int64, providerTransactionID string) (deleted bool, err error)
	GetByProviderID(ctx context.Context, ownerID int64, providerTransactionID string) (*Transaction, error)
	ListByOwnerID(ctx context.Context, ownerID int64, limit, offset int) ([]*Transaction, error)
	CountByOwnerID(ctx context.Context, ownerID int64) (int64, error)
}
