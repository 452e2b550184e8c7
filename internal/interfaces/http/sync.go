package http

import (
	"context"
	"net/http"

	"spendsync/internal/domain/openfinance"
	"spendsync/internal/shared/middleware"
)

// TransactionSyncer is satisfied by openfinance.TransactionSyncService.
type TransactionSyncer interface {
	SyncOwnerTransactions(ctx context.Context, ownerID int64) (*openfinance.SyncOutcome, error)
}

// RecurringSyncer is satisfied by openfinance.RecurringSyncService.
type RecurringSyncer interface {
	SyncOwnerRecurring(ctx context.Context, ownerID int64) (*openfinance.RecurringOutcome, error)
}

type SyncHandler struct {
	transactions TransactionSyncer
	recurring    RecurringSyncer
}

func NewSyncHandler(transactions TransactionSyncer, recurring RecurringSyncer) *SyncHandler {
	return &SyncHandler{transactions: transactions, recurring: recurring}
}

// HandleSyncTransactions runs a transaction sync for the caller and returns its counts.
func (h *SyncHandler) HandleSyncTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outcome, err := h.transactions.SyncOwnerTransactions(r.Context(), ownerID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// HandleSyncRecurring refreshes the caller's recurring streams.
func (h *SyncHandler) HandleSyncRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	outcome, err := h.recurring.SyncOwnerRecurring(r.Context(), ownerID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
