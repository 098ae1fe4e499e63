package domain

import (
	"testing"
	"time"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1250, "12.50"},
		{-199, "-1.99"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestRowsMatchHeaders(t *testing.T) {
	now := time.Now()
	bookingID := int64(4)

	tests := []struct {
		name   string
		row    SheetRow
		header []interface{}
	}{
		{"contact", ContactSubmission{ID: 1, Name: "Ada", CreatedAt: now}, ContactHeader},
		{"booking", Booking{ID: 2, StartsAt: now, EndsAt: now, CreatedAt: now}, BookingHeader},
		{"payment", Payment{ID: 3, BookingID: &bookingID, CreatedAt: now}, PaymentHeader},
		{"class", ClassRegistration{ID: 5, SessionDate: now, CreatedAt: now}, ClassHeader},
	}

	for _, tt := range tests {
		if got := len(tt.row.Row()); got != len(tt.header) {
			t.Errorf("%s row has %d cells, header has %d", tt.name, got, len(tt.header))
		}
	}
}

func TestPaymentRow_NoBooking(t *testing.T) {
	p := Payment{ID: 9, AmountCents: 4200, Currency: "EUR", Status: "paid", CreatedAt: time.Now()}
	row := p.Row()

	if row[1] != "" {
		t.Errorf("booking cell = %v, want empty", row[1])
	}
	if row[3] != "42.00" {
		t.Errorf("amount cell = %v, want 42.00", row[3])
	}
}
