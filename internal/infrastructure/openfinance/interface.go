package openfinance

import (
	"context"
)

// ClientInterface defines the methods required from the provider API client
type ClientInterface interface {
	// FetchTransactionPage returns one page of deltas after cursor. An empty
	// cursor starts from the beginning of the owner's history.
	FetchTransactionPage(ctx context.Context, accessToken, cursor string) (*TransactionPage, error)
	FetchRecurringStreams(ctx context.Context, accessToken string) (*RecurringStreams, error)
}
