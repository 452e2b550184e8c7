package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"spendsync/internal/domain/csvimport"
	"spendsync/internal/shared/middleware"
)

// multipartOverhead is the allowance for multipart headers and boundaries on
// top of the file size limit.
const multipartOverhead = 1 << 20

// CSVImporter is satisfied by csvimport.Importer.
type CSVImporter interface {
	Import(ctx context.Context, ownerID int64, data []byte) (*csvimport.ImportOutcome, error)
}

type ImportHandler struct {
	importer CSVImporter
	maxBytes int64
}

func NewImportHandler(importer CSVImporter, maxBytes int64) *ImportHandler {
	return &ImportHandler{importer: importer, maxBytes: maxBytes}
}

// HandleImport accepts a multipart upload with the statement in the "file" field.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(r.Context(), w, csvimport.ErrFileTooLarge)
			return
		}
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the importer to reject it.
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	outcome, err := h.importer.Import(r.Context(), ownerID, data)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
