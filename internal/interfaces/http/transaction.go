package http

import (
	"net/http"
	"strconv"

	"spendsync/internal/domain/transaction"
	"spendsync/internal/shared/middleware"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

type TransactionHandler struct {
	transactions transaction.Repository
}

func NewTransactionHandler(transactions transaction.Repository) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type TransactionListResponse struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}

// HandleListTransactions returns the caller's transactions, newest first.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Parse pagination parameters
	limit := defaultPageLimit
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = min(parsedLimit, maxPageLimit)
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	txs, err := h.transactions.ListByOwnerID(r.Context(), ownerID, limit, offset)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	total, err := h.transactions.CountByOwnerID(r.Context(), ownerID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if txs == nil {
		txs = []*transaction.Transaction{}
	}

	writeJSON(w, http.StatusOK, TransactionListResponse{
		Transactions: txs,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	})
}
