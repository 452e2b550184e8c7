package csvimport

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"spendsync/internal/domain/owner"
	"spendsync/internal/domain/transaction"
	"spendsync/internal/shared/logger"
	"spendsync/internal/shared/ownerlock"
)

var (
	importTracer  = otel.Tracer("spendsync/csvimport")
	importMeter   = otel.Meter("spendsync/csvimport")
	importRows, _ = importMeter.Int64Counter("import.rows", metric.WithDescription("CSV rows processed by result"))
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ImportOutcome counts the rows of one import.
type ImportOutcome struct {
	Schema   Schema `json:"schema"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// Importer loads bank statement exports into the transaction store.
type Importer struct {
	transactions transaction.Repository
	categories   *CategoryResolver
	locks        *ownerlock.Locker
	logger       zerolog.Logger
	maxBytes     int64
}

// NewImporter creates an importer. maxBytes <= 0 disables the size check.
func NewImporter(
	transactions transaction.Repository,
	categories *CategoryResolver,
	locks *ownerlock.Locker,
	logger zerolog.Logger,
	maxBytes int64,
) *Importer {
	return &Importer{
		transactions: transactions,
		categories:   categories,
		locks:        locks,
		logger:       logger,
		maxBytes:     maxBytes,
	}
}

// Import parses data as a statement export and upserts every spending row
// for the owner. File level problems (size, broken quoting, unknown headers)
// abort before anything is written; row level problems are logged and the
// row is counted as skipped.
func (im *Importer) Import(ctx context.Context, ownerID int64, data []byte) (*ImportOutcome, error) {
	ctx, span := importTracer.Start(ctx, "csvimport.Import")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner.id", ownerID),
		attribute.Int("import.bytes", len(data)),
	)

	if im.maxBytes > 0 && int64(len(data)) > im.maxBytes {
		span.SetStatus(codes.Error, ErrFileTooLarge.Error())
		return nil, ErrFileTooLarge
	}

	headers, records, err := parse(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	l, err := detectSchema(headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown schema")
		return nil, err
	}
	span.SetAttributes(attribute.String("import.schema", string(l.schema)), attribute.Int("import.rows", len(records)))

	unlock, err := im.locks.Lock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := logger.ForOwner(im.logger, ownerID)
	outcome := &ImportOutcome{Schema: l.schema}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return outcome, fmt.Errorf("import cancelled after %d rows: %w", i, err)
		}

		// header is line 1
		line := i + 2
		inserted, err := im.importRow(ctx, ownerID, l, line, record)
		if errors.Is(err, owner.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "owner not found")
			return nil, &owner.NotFoundError{OwnerID: ownerID, Reason: "owner not found"}
		}
		if err != nil {
			outcome.Skipped++
			var ve *transaction.ValidationError
			if errors.As(err, &ve) {
				log.Warn().Int("line", line).Err(err).Msg("skipping invalid CSV row")
			} else {
				log.Error().Int("line", line).Err(err).Msg("failed to import CSV row")
			}
			continue
		}
		if inserted {
			outcome.Imported++
		} else {
			outcome.Skipped++
		}
	}

	importRows.Add(ctx, int64(outcome.Imported), metric.WithAttributes(attribute.String("result", "imported")))
	importRows.Add(ctx, int64(outcome.Skipped), metric.WithAttributes(attribute.String("result", "skipped")))
	span.SetAttributes(
		attribute.Int("import.imported", outcome.Imported),
		attribute.Int("import.skipped", outcome.Skipped),
	)

	log.Info().
		Str("schema", string(l.schema)).
		Int("imported", outcome.Imported).
		Int("skipped", outcome.Skipped).
		Msg("CSV import finished")

	return outcome, nil
}

// importRow returns inserted=false with a nil error for rows that are not
// spending and for rows already stored.
func (im *Importer) importRow(ctx context.Context, ownerID int64, l layout, line int, record []string) (bool, error) {
	row, err := l.row(line, record)
	if err != nil {
		return false, err
	}

	tx, err := transaction.NormalizeCSVRow(ownerID, row)
	if err != nil {
		return false, err
	}

	// Credits and payments are not spending.
	if !tx.Amount.IsPositive() {
		return false, nil
	}

	if len(tx.CategoryLabels) > 0 {
		id, err := im.categories.Resolve(ctx, ownerID, tx.CategoryLabels[0])
		if err != nil {
			return false, err
		}
		tx.CategoryID = &id
	}

	tx.Amount = tx.Amount.Abs()
	inserted, err := im.transactions.UpsertCSV(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return inserted, nil
}

// parse reads the whole file so that a structural error is found before any
// row is written. Rows whose fields are all blank are dropped.
func parse(data []byte) ([]string, [][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, &StructuralParseError{Err: errors.New("file is empty")}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, structural(err)
	}
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, structural(err)
		}
		if blank(record) {
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, nil, &StructuralParseError{Err: errors.New("no data rows")}
	}
	return headers, records, nil
}

func structural(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &StructuralParseError{Line: pe.Line, Err: pe.Err}
	}
	return &StructuralParseError{Err: err}
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
