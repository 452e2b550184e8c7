package recurring

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Frequency is the provider-detected cadence of a stream.
type Frequency string

const (
	FrequencyWeekly       Frequency = "WEEKLY"
	FrequencyBiweekly     Frequency = "BIWEEKLY"
	FrequencySemiMonthly  Frequency = "SEMI_MONTHLY"
	FrequencyMonthly      Frequency = "MONTHLY"
	FrequencyQuarterly    Frequency = "QUARTERLY"
	FrequencySemiAnnually Frequency = "SEMI_ANNUALLY"
	FrequencyAnnually     Frequency = "ANNUALLY"
)

// Status is the provider's lifecycle state for a stream. Tombstoned streams are kept.
type Status string

const (
	StatusActive         Status = "ACTIVE"
	StatusMature         Status = "MATURE"
	StatusEarlyDetection Status = "EARLY_DETECTION"
	StatusTombstoned     Status = "TOMBSTONED"
)

// Flow is the direction of money in a stream, as classified by the provider.
type Flow string

const (
	FlowOutflow Flow = "OUTFLOW"
	FlowInflow  Flow = "INFLOW"
)

// Stream is one recurring-payment record, unique by StreamID.
type Stream struct {
	ID                int64            `json:"id"`
	OwnerID           int64            `json:"ownerId"`
	StreamID          string           `json:"streamId"`
	AccountID         string           `json:"accountId"`
	MerchantName      string           `json:"merchantName"`
	Description       string           `json:"description"`
	CategoryLabels    []string         `json:"category"`
	Frequency         Frequency        `json:"frequency"`
	Status            Status           `json:"status"`
	Flow              Flow             `json:"flowType"`
	IsActive          bool             `json:"isActive"`
	LastAmount        decimal.Decimal  `json:"lastAmount"`
	LastDate          civil.Date       `json:"lastDate"`
	FirstDate         *civil.Date      `json:"firstDate,omitempty"`
	AverageAmount     *decimal.Decimal `json:"averageAmount,omitempty"`
	MonthlyEquivalent decimal.Decimal  `json:"monthlyEquivalent"`
	NextExpectedDate  civil.Date       `json:"nextExpectedDate"`
	CurrencyCode      *string          `json:"isoCurrencyCode,omitempty"`
	TransactionIDs    []string         `json:"transactionIds"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Amount is a provider money value.
type Amount struct {
	Amount                 *decimal.Decimal `json:"amount"`
	ISOCurrencyCode        *string          `json:"iso_currency_code"`
	UnofficialCurrencyCode *string          `json:"unofficial_currency_code"`
}

// ProviderStream is a recurring stream snapshot as delivered by the provider.
type ProviderStream struct {
	StreamID       string   `json:"stream_id"`
	AccountID      string   `json:"account_id"`
	Category       []string `json:"category"`
	Description    string   `json:"description"`
	MerchantName   *string  `json:"merchant_name"`
	FirstDate      *string  `json:"first_date"`
	LastDate       string   `json:"last_date"`
	Frequency      string   `json:"frequency"`
	TransactionIDs []string `json:"transaction_ids"`
	AverageAmount  *Amount  `json:"average_amount"`
	LastAmount     Amount   `json:"last_amount"`
	IsActive       bool     `json:"is_active"`
	Status         string   `json:"status"`
}
