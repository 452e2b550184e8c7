package http

import (
	"context"
	"net/http"

	"spendsync/internal/domain/csvimport"
	"spendsync/internal/domain/openfinance"
	"spendsync/internal/domain/recurring"
	"spendsync/internal/domain/transaction"
	"spendsync/internal/shared/middleware"
)

func withOwner(r *http.Request, ownerID int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.OwnerIDKey, ownerID))
}

type MockImporter struct {
	ImportFunc func(ctx context.Context, ownerID int64, data []byte) (*csvimport.ImportOutcome, error)
}

func (m *MockImporter) Import(ctx context.Context, ownerID int64, data []byte) (*csvimport.ImportOutcome, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, ownerID, data)
	}
	return &csvimport.ImportOutcome{}, nil
}

type MockSyncer struct {
	TransactionsFunc func(ctx context.Context, ownerID int64) (*openfinance.SyncOutcome, error)
	RecurringFunc    func(ctx context.Context, ownerID int64) (*openfinance.RecurringOutcome, error)
}

func (m *MockSyncer) SyncOwnerTransactions(ctx context.Context, ownerID int64) (*openfinance.SyncOutcome, error) {
	if m.TransactionsFunc != nil {
		return m.TransactionsFunc(ctx, ownerID)
	}
	return &openfinance.SyncOutcome{OwnerID: ownerID}, nil
}

func (m *MockSyncer) SyncOwnerRecurring(ctx context.Context, ownerID int64) (*openfinance.RecurringOutcome, error) {
	if m.RecurringFunc != nil {
		return m.RecurringFunc(ctx, ownerID)
	}
	return &openfinance.RecurringOutcome{OwnerID: ownerID}, nil
}

// MockTransactionRepo implements transaction.Repository for testing
type MockTransactionRepo struct {
	UpsertCSVFunc       func(ctx context.Context, tx *transaction.Transaction) (bool, error)
	UpsertProviderFunc  func(ctx context.Context, tx *transaction.Transaction) (bool, error)
	DeleteProviderFunc  func(ctx context.Context, ownerID int64, providerTransactionID string) (bool, error)
	GetByProviderIDFunc func(ctx context.Context, ownerID int64, providerTransactionID string) (*transaction.Transaction, error)
	ListByOwnerIDFunc   func(ctx context.Context, ownerID int64, limit, offset int) ([]*transaction.Transaction, error)
	CountByOwnerIDFunc  func(ctx context.Context, ownerID int64) (int64, error)
}

func (m *MockTransactionRepo) UpsertCSV(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	if m.UpsertCSVFunc != nil {
		return m.UpsertCSVFunc(ctx, tx)
	}
	return true, nil
}

func (m *MockTransactionRepo) UpsertProvider(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	if m.UpsertProviderFunc != nil {
		return m.UpsertProviderFunc(ctx, tx)
	}
	return true, nil
}

func (m *MockTransactionRepo) DeleteProvider(ctx context.Context, ownerID int64, providerTransactionID string) (bool, error) {
	if m.DeleteProviderFunc != nil {
		return m.DeleteProviderFunc(ctx, ownerID, providerTransactionID)
	}
	return false, nil
}

func (m *MockTransactionRepo) GetByProviderID(ctx context.Context, ownerID int64, providerTransactionID string) (*transaction.Transaction, error) {
	if m.GetByProviderIDFunc != nil {
		return m.GetByProviderIDFunc(ctx, ownerID, providerTransactionID)
	}
	return nil, transaction.ErrNotFound
}

func (m *MockTransactionRepo) ListByOwnerID(ctx context.Context, ownerID int64, limit, offset int) ([]*transaction.Transaction, error) {
	if m.ListByOwnerIDFunc != nil {
		return m.ListByOwnerIDFunc(ctx, ownerID, limit, offset)
	}
	return nil, nil
}

func (m *MockTransactionRepo) CountByOwnerID(ctx context.Context, ownerID int64) (int64, error) {
	if m.CountByOwnerIDFunc != nil {
		return m.CountByOwnerIDFunc(ctx, ownerID)
	}
	return 0, nil
}

// MockRecurringRepo implements recurring.Repository for testing
type MockRecurringRepo struct {
	UpsertFunc        func(ctx context.Context, s *recurring.Stream) (bool, error)
	ListByOwnerIDFunc func(ctx context.Context, ownerID int64, flow *recurring.Flow) ([]*recurring.Stream, error)
}

func (m *MockRecurringRepo) Upsert(ctx context.Context, s *recurring.Stream) (bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, s)
	}
	return true, nil
}

func (m *MockRecurringRepo) ListByOwnerID(ctx context.Context, ownerID int64, flow *recurring.Flow) ([]*recurring.Stream, error) {
	if m.ListByOwnerIDFunc != nil {
		return m.ListByOwnerIDFunc(ctx, ownerID, flow)
	}
	return nil, nil
}
