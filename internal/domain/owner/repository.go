package owner

import "context"

// Repository defines the interface for owner data access
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Owner, error)
	GetByExternalID(ctx context.Context, externalID string) (*Owner, error)
	// ListLinked returns owners holding a provider token.
	ListLinked(ctx context.Context) ([]*Owner, error)
	// CompareAndSetCursor stores next only if the persisted cursor still equals
	// previous ("" meaning none). Returns ErrCursorConflict otherwise.
	CompareAndSetCursor(ctx context.Context, ownerID int64, previous, next string) error
	TouchRecurringSync(ctx context.Context, ownerID int64) error
}
