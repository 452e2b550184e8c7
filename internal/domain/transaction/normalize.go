package transaction

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Layouts accepted for statement dates, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
}

// ParseAmount parses a signed amount as written in a statement. Currency
// symbols and thousands separators are ignored, and an amount wrapped in
// parentheses is negative.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "missing"}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "not a number"}
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseDate parses a calendar date. Timestamps keep the date portion exactly
// as written; no time zone conversion is applied.
func ParseDate(raw string) (civil.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, &ValidationError{Field: "date", Reason: "missing"}
	}

	if len(s) > 10 && s[10] == 'T' {
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			if d, err := civil.ParseDate(s[:10]); err == nil {
				return d, nil
			}
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &ValidationError{Field: "date", Value: raw, Reason: "unrecognized date"}
}

// NormalizeCSVRow converts a statement row into a CSV-origin transaction.
// Statements report spending as negative amounts, so the sign is flipped to
// the canonical convention: the result is positive for spending.
func NormalizeCSVRow(ownerID int64, row CSVRow) (*Transaction, error) {
	description := strings.TrimSpace(row.Description)
	if description == "" {
		return nil, &ValidationError{Field: "description", Reason: "missing"}
	}

	date, err := ParseDate(row.Date)
	if err != nil {
		return nil, err
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Origin:         OriginCSV,
		Amount:         amount.Neg().Round(2),
		Description:    description,
		CategoryLabels: []string{},
		Date:           date,
	}
	if label := strings.TrimSpace(row.Category); label != "" {
		tx.CategoryLabels = []string{label}
	}
	return tx, nil
}

// NormalizeProvider converts a provider record into a provider-origin
// transaction. Provider amounts already use the canonical sign.
func NormalizeProvider(ownerID int64, rec ProviderRecord) (*Transaction, error) {
	id := strings.TrimSpace(rec.TransactionID)
	if id == "" {
		return nil, &ValidationError{Field: "transaction_id", Reason: "missing"}
	}
	if rec.Amount == nil {
		return nil, &ValidationError{Field: "amount", Value: id, Reason: "missing"}
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:                      uuid.NewString(),
		OwnerID:                 ownerID,
		Origin:                  OriginProvider,
		ProviderTransactionID:   &id,
		Amount:                  *rec.Amount,
		CurrencyCode:            rec.ISOCurrencyCode,
		UnofficialCurrencyCode:  rec.UnofficialCurrencyCode,
		Description:             strings.TrimSpace(rec.Name),
		MerchantName:            rec.MerchantName,
		CategoryLabels:          rec.Category,
		ProviderCategoryID:      rec.CategoryID,
		PaymentChannel:          rec.PaymentChannel,
		Pending:                 rec.Pending,
		PendingTransactionID:    rec.PendingTransactionID,
		Date:                    date,
		Location:                nullIfEmpty(rec.Location),
		PaymentMeta:             nullIfEmpty(rec.PaymentMeta),
		PersonalFinanceCategory: rec.PersonalFinanceCategory,
	}
	if rec.AccountID != "" {
		accountID := rec.AccountID
		tx.AccountID = &accountID
	}
	if tx.CategoryLabels == nil {
		tx.CategoryLabels = []string{}
	}
	if rec.AuthorizedDate != nil && *rec.AuthorizedDate != "" {
		authorized, err := ParseDate(*rec.AuthorizedDate)
		if err != nil {
			return nil, &ValidationError{Field: "authorized_date", Value: *rec.AuthorizedDate, Reason: "unrecognized date"}
		}
		tx.AuthorizedDate = &authorized
	}
	return tx, nil
}

func nullIfEmpty(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	return raw
}
