package owner

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("owner not found")
	// ErrCursorConflict is returned when the stored cursor changed since the sync run read it.
	ErrCursorConflict = errors.New("sync cursor was advanced by another run")
)

// Owner is the account holder whose transactions and streams are reconciled.
type Owner struct {
	ID                   int64      `json:"id"`
	ExternalID           string     `json:"externalId"`
	Email                string     `json:"email"`
	ProviderToken        *string    `json:"-"` // encrypted at rest
	ProviderItemID       *string    `json:"providerItemId,omitempty"`
	InstitutionID        *string    `json:"institutionId,omitempty"`
	InstitutionName      *string    `json:"institutionName,omitempty"`
	SyncCursor           *string    `json:"-"`
	AccountsLinked       bool       `json:"accountsLinked"`
	LastTransactionsSync *time.Time `json:"lastTransactionsSync,omitempty"`
	LastRecurringSync    *time.Time `json:"lastRecurringSync,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Cursor returns the persisted provider cursor, or "" when the owner has never synced.
func (o *Owner) Cursor() string {
	if o.SyncCursor == nil {
		return ""
	}
	return *o.SyncCursor
}

// Linked reports whether the owner has a provider token to sync with.
func (o *Owner) Linked() bool {
	return o.ProviderToken != nil && *o.ProviderToken != ""
}

// NotFoundError is returned before any side effect when an owner is missing
// or has no linked provider account.
type NotFoundError struct {
	OwnerID int64
	Reason  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("owner %d: %s", e.OwnerID, e.Reason)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
