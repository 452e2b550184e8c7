package transaction

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Origin tells which identity rule applies to a stored transaction.
type Origin string

const (
	// OriginCSV rows are identified by their natural key.
	OriginCSV Origin = "CSV"
	// OriginProvider rows are identified by the provider's transaction id.
	OriginProvider Origin = "PROVIDER"
)

// Transaction is the canonical transaction shape shared by both ingestion paths.
// Amount is positive for money leaving the account and negative for money arriving.
type Transaction struct {
	ID                      string                   `json:"id"`
	OwnerID                 int64                    `json:"ownerId"`
	Origin                  Origin                   `json:"origin"`
	ProviderTransactionID   *string                  `json:"providerTransactionId,omitempty"`
	AccountID               *string                  `json:"accountId,omitempty"`
	Amount                  decimal.Decimal          `json:"amount"`
	CurrencyCode            *string                  `json:"currencyCode,omitempty"`
	UnofficialCurrencyCode  *string                  `json:"unofficialCurrencyCode,omitempty"`
	Description             string                   `json:"description"`
	MerchantName            *string                  `json:"merchantName,omitempty"`
	CategoryID              *string                  `json:"categoryId,omitempty"`
	CategoryLabels          []string                 `json:"categoryLabels"`
	ProviderCategoryID      *string                  `json:"providerCategoryId,omitempty"`
	PaymentChannel          *string                  `json:"paymentChannel,omitempty"`
	Pending                 bool                     `json:"pending"`
	PendingTransactionID    *string                  `json:"pendingTransactionId,omitempty"`
	Date                    civil.Date               `json:"date"`
	AuthorizedDate          *civil.Date              `json:"authorizedDate,omitempty"`
	Location                json.RawMessage          `json:"location,omitempty"`
	PaymentMeta             json.RawMessage          `json:"paymentMeta,omitempty"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personalFinanceCategory,omitempty"`
	CreatedAt               time.Time                `json:"createdAt"`
	UpdatedAt               time.Time                `json:"updatedAt"`
}

// PersonalFinanceCategory is the provider's classified category with its confidence.
type PersonalFinanceCategory struct {
	Primary         string `json:"primary"`
	Detailed        string `json:"detailed"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
}

// NaturalKey identifies a CSV-origin transaction.
type NaturalKey struct {
	OwnerID     int64
	Date        civil.Date
	Description string
	Amount      decimal.Decimal // absolute, two decimal places
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%s", k.OwnerID, k.Date, k.Description, k.Amount.StringFixed(2))
}

// NaturalKey returns the CSV identity of t.
func (t *Transaction) NaturalKey() NaturalKey {
	return NaturalKey{
		OwnerID:     t.OwnerID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount.Abs().Round(2),
	}
}

// ProviderRecord is one added or modified transaction as delivered by the provider feed.
type ProviderRecord struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  *decimal.Decimal         `json:"amount"`
	ISOCurrencyCode         *string                  `json:"iso_currency_code"`
	UnofficialCurrencyCode  *string                  `json:"unofficial_currency_code"`
	Category                []string                 `json:"category"`
	CategoryID              *string                  `json:"category_id"`
	Name                    string                   `json:"name"`
	MerchantName            *string                  `json:"merchant_name"`
	PaymentChannel          *string                  `json:"payment_channel"`
	Pending                 bool                     `json:"pending"`
	PendingTransactionID    *string                  `json:"pending_transaction_id"`
	Date                    string                   `json:"date"`
	AuthorizedDate          *string                  `json:"authorized_date"`
	Location                json.RawMessage          `json:"location"`
	PaymentMeta             json.RawMessage          `json:"payment_meta"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
}

// CSVRow holds the raw string fields of one statement row after schema mapping.
type CSVRow struct {
	Line        int
	Date        string
	Description string
	Amount      string
	Category    string
}
