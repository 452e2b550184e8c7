package recurring

import (
	"strings"

	"spendsync/internal/domain/transaction"
)

const unknownMerchant = "Unknown"

// FromProvider builds the stored stream for a provider snapshot. flow comes
// from the list the snapshot arrived in and is never inferred from the amount.
// Malformed snapshots yield a *transaction.ValidationError.
func FromProvider(ownerID int64, flow Flow, ps ProviderStream) (*Stream, error) {
	if strings.TrimSpace(ps.StreamID) == "" {
		return nil, &transaction.ValidationError{Field: "stream_id", Reason: "missing"}
	}

	freq, err := ParseFrequency(ps.Frequency)
	if err != nil {
		return nil, &transaction.ValidationError{Field: "frequency", Value: ps.Frequency, Reason: "unknown frequency"}
	}
	status, err := ParseStatus(ps.Status)
	if err != nil {
		return nil, &transaction.ValidationError{Field: "status", Value: ps.Status, Reason: "unknown status"}
	}
	if ps.LastAmount.Amount == nil {
		return nil, &transaction.ValidationError{Field: "last_amount", Value: ps.StreamID, Reason: "missing"}
	}

	lastDate, err := transaction.ParseDate(ps.LastDate)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		OwnerID:        ownerID,
		StreamID:       ps.StreamID,
		AccountID:      ps.AccountID,
		MerchantName:   unknownMerchant,
		Description:    ps.Description,
		CategoryLabels: ps.Category,
		Frequency:      freq,
		Status:         status,
		Flow:           flow,
		IsActive:       ps.IsActive,
		LastAmount:     *ps.LastAmount.Amount,
		LastDate:       lastDate,
		CurrencyCode:   ps.LastAmount.ISOCurrencyCode,
		TransactionIDs: ps.TransactionIDs,
	}
	if ps.MerchantName != nil && strings.TrimSpace(*ps.MerchantName) != "" {
		s.MerchantName = *ps.MerchantName
	}
	if s.CategoryLabels == nil {
		s.CategoryLabels = []string{}
	}
	if s.TransactionIDs == nil {
		s.TransactionIDs = []string{}
	}
	if ps.FirstDate != nil && *ps.FirstDate != "" {
		first, err := transaction.ParseDate(*ps.FirstDate)
		if err != nil {
			return nil, err
		}
		s.FirstDate = &first
	}
	if ps.AverageAmount != nil && ps.AverageAmount.Amount != nil {
		avg := *ps.AverageAmount.Amount
		s.AverageAmount = &avg
	}

	base := s.LastAmount
	if s.AverageAmount != nil {
		base = *s.AverageAmount
	}
	// unknown frequencies were rejected above
	s.MonthlyEquivalent, _ = MonthlyEquivalent(freq, base.Abs())
	s.NextExpectedDate, _ = NextDate(freq, lastDate)

	return s, nil
}
