package recurring

import (
	"context"
	"errors"
)

// ErrOwnershipConflict is returned when a stream id is stored for another owner.
var ErrOwnershipConflict = errors.New("stream belongs to another owner")

// Repository defines the interface for recurring stream data access
type Repository interface {
	// Upsert inserts the stream or replaces every mutable field of the
	// existing row with the same StreamID. Streams are never deleted.
	Upsert(ctx context.Context, s *Stream) (inserted bool, err error)
	// ListByOwnerID returns the owner's streams; a nil flow returns both directions.
	ListByOwnerID(ctx context.Context, ownerID int64, flow *Flow) ([]*Stream, error)
}
