package csvimport

import (
	"strings"

	"spendsync/internal/domain/transaction"
)

// Schema is a supported statement layout.
type Schema string

const (
	SchemaCreditCard Schema = "CREDIT_CARD"
	SchemaChecking   Schema = "CHECKING"
)

const (
	colPostDate    = "Post Date"
	colPostingDate = "Posting Date"
	colDescription = "Description"
	colAmount      = "Amount"
	colCategory    = "Category"
)

type layout struct {
	schema   Schema
	date     int
	desc     int
	amount   int
	category int // -1 when the layout has no category
}

// detectSchema maps trimmed header names to a layout. A credit card export
// carries both "Post Date" and "Category"; a checking export carries
// "Posting Date".
func detectSchema(headers []string) (layout, error) {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	col := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}

	_, hasPostDate := idx[colPostDate]
	_, hasCategory := idx[colCategory]
	_, hasPostingDate := idx[colPostingDate]

	switch {
	case hasPostDate && hasCategory:
		return layout{
			schema:   SchemaCreditCard,
			date:     col(colPostDate),
			desc:     col(colDescription),
			amount:   col(colAmount),
			category: col(colCategory),
		}, nil
	case hasPostingDate:
		return layout{
			schema:   SchemaChecking,
			date:     col(colPostingDate),
			desc:     col(colDescription),
			amount:   col(colAmount),
			category: -1,
		}, nil
	}
	return layout{}, &UnknownSchemaError{Headers: headers}
}

// row maps one record onto the layout. Fields the layout requires but the
// record is too short to hold are reported as validation errors.
func (l layout) row(line int, record []string) (transaction.CSVRow, error) {
	get := func(name string, i int) (string, error) {
		if i < 0 || i >= len(record) {
			return "", &transaction.ValidationError{Field: name, Reason: "missing column"}
		}
		return strings.TrimSpace(record[i]), nil
	}

	r := transaction.CSVRow{Line: line}
	var err error
	if r.Date, err = get("date", l.date); err != nil {
		return r, err
	}
	if r.Description, err = get("description", l.desc); err != nil {
		return r, err
	}
	if r.Amount, err = get("amount", l.amount); err != nil {
		return r, err
	}
	if l.category >= 0 {
		if r.Category, err = get("category", l.category); err != nil {
			return r, err
		}
	}
	return r, nil
}
