package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spendsync/internal/domain/openfinance"
	"spendsync/internal/domain/owner"
	ofclient "spendsync/internal/infrastructure/openfinance"
)

func TestHandleSyncTransactions(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "Success", expectedStatus: http.StatusOK},
		{name: "Owner not linked", err: &owner.NotFoundError{OwnerID: 5, Reason: "no linked provider account"}, expectedStatus: http.StatusNotFound},
		{name: "Already running", err: openfinance.ErrSyncInProgress, expectedStatus: http.StatusConflict},
		{name: "Cursor race lost", err: fmt.Errorf("commit: %w", owner.ErrCursorConflict), expectedStatus: http.StatusConflict},
		{
			name:           "Provider failure",
			err:            fmt.Errorf("page 2: %w", &ofclient.ProviderRequestError{Path: "/transactions/sync", StatusCode: 500, ErrorCode: "INTERNAL_SERVER_ERROR"}),
			expectedStatus: http.StatusBadGateway,
		},
		{name: "Store failure", err: errors.New("db down"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &MockSyncer{
				TransactionsFunc: func(ctx context.Context, ownerID int64) (*openfinance.SyncOutcome, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &openfinance.SyncOutcome{OwnerID: ownerID, Pages: 2, Added: 3, Removed: 1}, nil
				},
			}
			handler := NewSyncHandler(syncer, syncer)

			req := withOwner(httptest.NewRequest(http.MethodPost, "/api/sync/transactions", nil), 5)
			rr := httptest.NewRecorder()

			handler.HandleSyncTransactions(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var outcome openfinance.SyncOutcome
				if err := json.NewDecoder(rr.Body).Decode(&outcome); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if outcome.OwnerID != 5 || outcome.Added != 3 || outcome.Removed != 1 {
					t.Errorf("outcome = %+v", outcome)
				}
			}
		})
	}
}

func TestHandleSyncRecurring(t *testing.T) {
	syncer := &MockSyncer{
		RecurringFunc: func(ctx context.Context, ownerID int64) (*openfinance.RecurringOutcome, error) {
			return &openfinance.RecurringOutcome{OwnerID: ownerID, Inflow: 1, Outflow: 4}, nil
		},
	}
	handler := NewSyncHandler(syncer, syncer)

	rr := httptest.NewRecorder()
	handler.HandleSyncRecurring(rr, withOwner(httptest.NewRequest(http.MethodPost, "/api/sync/recurring", nil), 2))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var outcome openfinance.RecurringOutcome
	if err := json.NewDecoder(rr.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Inflow != 1 || outcome.Outflow != 4 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestSyncHandlers_RequireAuthAndPost(t *testing.T) {
	handler := NewSyncHandler(&MockSyncer{}, &MockSyncer{})

	rr := httptest.NewRecorder()
	handler.HandleSyncTransactions(rr, httptest.NewRequest(http.MethodPost, "/api/sync/transactions", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.HandleSyncRecurring(rr, withOwner(httptest.NewRequest(http.MethodGet, "/api/sync/recurring", nil), 1))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rr.Code)
	}
}
