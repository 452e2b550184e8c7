package recurring

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		freq Frequency
		amt  string
		want string
	}{
		{FrequencyWeekly, "10", "43.33"},
		{FrequencyBiweekly, "100", "216.67"},
		{FrequencySemiMonthly, "50", "100"},
		{FrequencyMonthly, "15.99", "15.99"},
		{FrequencyQuarterly, "90", "30"},
		{FrequencySemiAnnually, "60", "10"},
		{FrequencyAnnually, "119.88", "9.99"},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got, err := MonthlyEquivalent(tt.freq, decimal.RequireFromString(tt.amt))
			if err != nil {
				t.Fatalf("MonthlyEquivalent() error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("MonthlyEquivalent(%s, %s) = %s, want %s", tt.freq, tt.amt, got, tt.want)
			}
		})
	}

	if _, err := MonthlyEquivalent("DAILY", decimal.NewFromInt(1)); err == nil {
		t.Error("MonthlyEquivalent() expected error for unknown frequency")
	}
}

func TestNextDate(t *testing.T) {
	d := func(y, m, day int) civil.Date {
		return civil.Date{Year: y, Month: time.Month(m), Day: day}
	}

	tests := []struct {
		freq Frequency
		last civil.Date
		want civil.Date
	}{
		{FrequencyWeekly, d(2024, 12, 28), d(2025, 1, 4)},
		{FrequencyBiweekly, d(2024, 1, 1), d(2024, 1, 15)},
		{FrequencySemiMonthly, d(2024, 2, 20), d(2024, 3, 6)},
		{FrequencyMonthly, d(2024, 1, 15), d(2024, 2, 15)},
		{FrequencyMonthly, d(2023, 1, 31), d(2023, 3, 3)},
		{FrequencyQuarterly, d(2024, 11, 10), d(2025, 2, 10)},
		{FrequencySemiAnnually, d(2024, 3, 1), d(2024, 9, 1)},
		{FrequencyAnnually, d(2024, 2, 29), d(2025, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq)+"/"+tt.last.String(), func(t *testing.T) {
			got, err := NextDate(tt.freq, tt.last)
			if err != nil {
				t.Fatalf("NextDate() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextDate(%s, %s) = %s, want %s", tt.freq, tt.last, got, tt.want)
			}
		})
	}

	if _, err := NextDate("HOURLY", d(2024, 1, 1)); err == nil {
		t.Error("NextDate() expected error for unknown frequency")
	}
}

func TestFrequencyLabel(t *testing.T) {
	if got := FrequencyBiweekly.Label(); got != "Bi-weekly" {
		t.Errorf("Label() = %q, want %q", got, "Bi-weekly")
	}
	if got := Frequency("FORTNIGHTLY").Label(); got != "FORTNIGHTLY" {
		t.Errorf("Label() = %q, want raw value for unknown frequency", got)
	}
}
