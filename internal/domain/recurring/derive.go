package recurring

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var frequencyLabels = map[Frequency]string{
	FrequencyWeekly:       "Weekly",
	FrequencyBiweekly:     "Bi-weekly",
	FrequencySemiMonthly:  "Semi-monthly",
	FrequencyMonthly:      "Monthly",
	FrequencyQuarterly:    "Quarterly",
	FrequencySemiAnnually: "Semi-annually",
	FrequencyAnnually:     "Annually",
}

// occurrences per month, as numerator/denominator
var monthlyFactors = map[Frequency][2]int64{
	FrequencyWeekly:       {52, 12},
	FrequencyBiweekly:     {26, 12},
	FrequencySemiMonthly:  {2, 1},
	FrequencyMonthly:      {1, 1},
	FrequencyQuarterly:    {1, 3},
	FrequencySemiAnnually: {1, 6},
	FrequencyAnnually:     {1, 12},
}

// ParseFrequency validates a provider frequency string.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if _, ok := monthlyFactors[f]; !ok {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}

// ParseStatus validates a provider status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusMature, StatusEarlyDetection, StatusTombstoned:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Label returns a human readable frequency name.
func (f Frequency) Label() string {
	if l, ok := frequencyLabels[f]; ok {
		return l
	}
	return string(f)
}

// MonthlyEquivalent scales a per-occurrence amount to a monthly figure,
// rounded to cents.
func MonthlyEquivalent(f Frequency, amount decimal.Decimal) (decimal.Decimal, error) {
	factor, ok := monthlyFactors[f]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown frequency %q", f)
	}
	return amount.Mul(decimal.NewFromInt(factor[0])).
		Div(decimal.NewFromInt(factor[1])).
		Round(2), nil
}

// NextDate projects the next expected occurrence after last. Month-based
// cadences roll over like time.AddDate (Jan 31 + 1 month is Mar 2 or 3).
func NextDate(f Frequency, last civil.Date) (civil.Date, error) {
	switch f {
	case FrequencyWeekly:
		return last.AddDays(7), nil
	case FrequencyBiweekly:
		return last.AddDays(14), nil
	case FrequencySemiMonthly:
		return last.AddDays(15), nil
	case FrequencyMonthly:
		return addMonths(last, 1), nil
	case FrequencyQuarterly:
		return addMonths(last, 3), nil
	case FrequencySemiAnnually:
		return addMonths(last, 6), nil
	case FrequencyAnnually:
		return addMonths(last, 12), nil
	}
	return civil.Date{}, fmt.Errorf("unknown frequency %q", f)
}

func addMonths(d civil.Date, n int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(0, n, 0))
}
