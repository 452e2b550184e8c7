package scheduler

import "context"

// Job is a unit of work run by the worker pool.
type Job interface {
	// Execute runs the job. Implementations must respect ctx cancellation.
	Execute(ctx context.Context) error

	// OwnerID returns the owner whose data the job touches.
	OwnerID() int64

	Description() string
}
