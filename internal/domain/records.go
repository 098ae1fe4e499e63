package domain

import (
	"fmt"
	"time"
)

const sheetTimeLayout = "2006-01-02 15:04:05"

// SheetRow is a source record that can be appended to a spreadsheet
type SheetRow interface {
	RowID() int64
	Row() []interface{}
}

// ContactSubmission is a message sent through the contact form
type ContactSubmission struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	CreatedAt  time.Time
	ExportedAt *time.Time
}

// ContactHeader is the header row of the contacts sheet
var ContactHeader = []interface{}{"ID", "Name", "Email", "Phone", "Subject", "Message", "Submitted At"}

func (c ContactSubmission) RowID() int64 { return c.ID }

func (c ContactSubmission) Row() []interface{} {
	return []interface{}{c.ID, c.Name, c.Email, c.Phone, c.Subject, c.Message, c.CreatedAt.UTC().Format(sheetTimeLayout)}
}

// Booking is a reservation of a private space
type Booking struct {
	ID           int64
	CustomerName string
	Email        string
	SpaceName    string
	StartsAt     time.Time
	EndsAt       time.Time
	Guests       int
	Status       string
	TotalCents   int64
	CreatedAt    time.Time
	ExportedAt   *time.Time
}

// BookingHeader is the header row of the bookings sheet
var BookingHeader = []interface{}{"ID", "Customer", "Email", "Space", "Starts At", "Ends At", "Guests", "Status", "Total", "Booked At"}

func (b Booking) RowID() int64 { return b.ID }

func (b Booking) Row() []interface{} {
	return []interface{}{
		b.ID, b.CustomerName, b.Email, b.SpaceName,
		b.StartsAt.UTC().Format(sheetTimeLayout), b.EndsAt.UTC().Format(sheetTimeLayout),
		b.Guests, b.Status, FormatCents(b.TotalCents), b.CreatedAt.UTC().Format(sheetTimeLayout),
	}
}

// Payment is a settled or attempted payment, usually for a booking or shop order
type Payment struct {
	ID          int64
	BookingID   *int64
	ProviderRef string
	AmountCents int64
	Currency    string
	Status      string
	CreatedAt   time.Time
	ExportedAt  *time.Time
}

// PaymentHeader is the header row of the payments sheet
var PaymentHeader = []interface{}{"ID", "Booking ID", "Provider Ref", "Amount", "Currency", "Status", "Created At"}

func (p Payment) RowID() int64 { return p.ID }

func (p Payment) Row() []interface{} {
	var booking interface{} = ""
	if p.BookingID != nil {
		booking = *p.BookingID
	}
	return []interface{}{p.ID, booking, p.ProviderRef, FormatCents(p.AmountCents), p.Currency, p.Status, p.CreatedAt.UTC().Format(sheetTimeLayout)}
}

// ClassRegistration is a seat reservation for a class or event session
type ClassRegistration struct {
	ID           int64
	ClassName    string
	SessionDate  time.Time
	AttendeeName string
	Email        string
	Seats        int
	CreatedAt    time.Time
	ExportedAt   *time.Time
}

// ClassHeader is the header row of the class registrations sheet
var ClassHeader = []interface{}{"ID", "Class", "Session", "Attendee", "Email", "Seats", "Registered At"}

func (r ClassRegistration) RowID() int64 { return r.ID }

func (r ClassRegistration) Row() []interface{} {
	return []interface{}{r.ID, r.ClassName, r.SessionDate.UTC().Format(sheetTimeLayout), r.AttendeeName, r.Email, r.Seats, r.CreatedAt.UTC().Format(sheetTimeLayout)}
}

// FormatCents renders an amount in minor units as a decimal string
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
