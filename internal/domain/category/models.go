package category

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrEmptyName = errors.New("category name is required")

// Category is an owner-scoped label created lazily by CSV imports.
// (OwnerID, Name) is unique.
type Category struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeName trims surrounding whitespace from a category label.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Repository defines the interface for category data access
type Repository interface {
	// FindOrCreate returns the category named name for the owner, creating it
	// when missing. Concurrent callers for the same pair get the same row.
	FindOrCreate(ctx context.Context, ownerID int64, name string) (*Category, error)
	ListByOwnerID(ctx context.Context, ownerID int64) ([]*Category, error)
}
