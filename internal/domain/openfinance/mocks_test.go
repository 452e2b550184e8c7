package openfinance

import (
	"context"
	"errors"
	"strings"
	"sync"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/recurring"
	"spendsync/internal/domain/transaction"
	ofclient "spendsync/internal/infrastructure/openfinance"
)

type MockClient struct {
	FetchTransactionPageFunc  func(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionPage, error)
	FetchRecurringStreamsFunc func(ctx context.Context, accessToken string) (*ofclient.RecurringStreams, error)
}

func (m *MockClient) FetchTransactionPage(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionPage, error) {
	if m.FetchTransactionPageFunc != nil {
		return m.FetchTransactionPageFunc(ctx, accessToken, cursor)
	}
	return &ofclient.TransactionPage{}, nil
}

func (m *MockClient) FetchRecurringStreams(ctx context.Context, accessToken string) (*ofclient.RecurringStreams, error) {
	if m.FetchRecurringStreamsFunc != nil {
		return m.FetchRecurringStreamsFunc(ctx, accessToken)
	}
	return &ofclient.RecurringStreams{}, nil
}

// pagedClient serves scripted pages keyed by the cursor they are requested with.
func pagedClient(pages map[string]*ofclient.TransactionPage, calls *[]string) *MockClient {
	return &MockClient{
		FetchTransactionPageFunc: func(ctx context.Context, accessToken, cursor string) (*ofclient.TransactionPage, error) {
			if calls != nil {
				*calls = append(*calls, cursor)
			}
			if accessToken != "access-token" {
				return nil, &ofclient.ProviderRequestError{StatusCode: 400, ErrorCode: "INVALID_ACCESS_TOKEN"}
			}
			page, ok := pages[cursor]
			if !ok {
				return nil, &ofclient.ProviderRequestError{StatusCode: 500, Payload: []byte(`{"error_code":"INTERNAL_SERVER_ERROR"}`)}
			}
			return page, nil
		},
	}
}

type fakeDecrypter struct{}

func (fakeDecrypter) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("cipher: message authentication failed")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// memOwners keeps cursors the way the owners table does, including the compare-and-set.
type memOwners struct {
	mu       sync.Mutex
	owners   map[int64]*owner.Owner
	getErr   error
	casCalls int
}

func newMemOwners(owners ...*owner.Owner) *memOwners {
	m := &memOwners{owners: map[int64]*owner.Owner{}}
	for _, o := range owners {
		m.owners[o.ID] = o
	}
	return m
}

func linked(id int64) *owner.Owner {
	token := "enc:access-token"
	return &owner.Owner{ID: id, ExternalID: "ext", ProviderToken: &token, AccountsLinked: true}
}

func (m *memOwners) GetByID(ctx context.Context, id int64) (*owner.Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.owners[id]
	if !ok {
		return nil, owner.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOwners) GetByExternalID(ctx context.Context, externalID string) (*owner.Owner, error) {
	return nil, owner.ErrNotFound
}

func (m *memOwners) ListLinked(ctx context.Context) ([]*owner.Owner, error) {
	return nil, nil
}

func (m *memOwners) CompareAndSetCursor(ctx context.Context, ownerID int64, previous, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	o, ok := m.owners[ownerID]
	if !ok {
		return owner.ErrNotFound
	}
	if o.Cursor() != previous {
		return owner.ErrCursorConflict
	}
	o.SyncCursor = &next
	return nil
}

func (m *memOwners) TouchRecurringSync(ctx context.Context, ownerID int64) error {
	return nil
}

func (m *memOwners) cursor(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[id].Cursor()
}

// memTransactions stores provider-origin rows by provider id.
type memTransactions struct {
	mu        sync.Mutex
	rows      map[string]*transaction.Transaction
	upsertErr error
	deleteErr error
}

func newMemTransactions() *memTransactions {
	return &memTransactions{rows: map[string]*transaction.Transaction{}}
}

func (m *memTransactions) UpsertCSV(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	return false, errors.New("not used")
}

func (m *memTransactions) UpsertProvider(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	id := *tx.ProviderTransactionID
	existing, ok := m.rows[id]
	if ok && existing.OwnerID != tx.OwnerID {
		return false, transaction.ErrOwnershipConflict
	}
	cp := *tx
	if ok {
		// the surrogate id is identity and survives updates
		cp.ID = existing.ID
	}
	m.rows[id] = &cp
	return !ok, nil
}

func (m *memTransactions) DeleteProvider(ctx context.Context, ownerID int64, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	existing, ok := m.rows[id]
	if !ok || existing.OwnerID != ownerID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memTransactions) GetByProviderID(ctx context.Context, ownerID int64, id string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.rows[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, transaction.ErrNotFound
	}
	return tx, nil
}

func (m *memTransactions) ListByOwnerID(ctx context.Context, ownerID int64, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (m *memTransactions) CountByOwnerID(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

// snapshot returns a comparable view of the store.
func (m *memTransactions) snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.rows))
	for id, tx := range m.rows {
		out[id] = tx.ID + "|" + tx.Amount.String() + "|" + tx.Description + "|" + tx.Date.String()
	}
	return out
}

type memStreams struct {
	mu      sync.Mutex
	streams map[string]*recurring.Stream
	err     error
}

func newMemStreams() *memStreams {
	return &memStreams{streams: map[string]*recurring.Stream{}}
}

func (m *memStreams) Upsert(ctx context.Context, s *recurring.Stream) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	prev, existed := m.streams[s.StreamID]
	if existed && prev.OwnerID != s.OwnerID {
		return false, recurring.ErrOwnershipConflict
	}
	cp := *s
	m.streams[s.StreamID] = &cp
	return !existed, nil
}

func (m *memStreams) ListByOwnerID(ctx context.Context, ownerID int64, flow *recurring.Flow) ([]*recurring.Stream, error) {
	return nil, nil
}
