package exportstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hochfrequenz/booking-export/internal/domain"
)

var sourceTables = map[domain.ExportType]string{
	domain.ExportContacts: "contact_submissions",
	domain.ExportBookings: "bookings",
	domain.ExportPayments: "payments",
	domain.ExportClasses:  "class_registrations",
}

func tableFor(t domain.ExportType) (string, error) {
	table, ok := sourceTables[t]
	if !ok {
		return "", fmt.Errorf("no source table for export type %q", t)
	}
	return table, nil
}

// AddContact inserts a contact submission and sets its ID
func (s *Store) AddContact(ctx context.Context, c *domain.ContactSubmission) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_submissions (name, email, phone, subject, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.Email, c.Phone, c.Subject, c.Message, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting contact submission: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// AddBooking inserts a booking and sets its ID
func (s *Store) AddBooking(ctx context.Context, b *domain.Booking) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (customer_name, email, space_name, starts_at, ends_at, guests, status, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.CustomerName, b.Email, b.SpaceName, b.StartsAt.UTC(), b.EndsAt.UTC(), b.Guests, b.Status, b.TotalCents, b.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// AddPayment inserts a payment and sets its ID
func (s *Store) AddPayment(ctx context.Context, p *domain.Payment) error {
	var bookingID sql.NullInt64
	if p.BookingID != nil {
		bookingID = sql.NullInt64{Int64: *p.BookingID, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (booking_id, provider_ref, amount_cents, currency, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bookingID, p.ProviderRef, p.AmountCents, p.Currency, p.Status, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// AddClassRegistration inserts a class registration and sets its ID
func (s *Store) AddClassRegistration(ctx context.Context, r *domain.ClassRegistration) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO class_registrations (class_name, session_date, attendee_name, email, seats, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ClassName, r.SessionDate.UTC(), r.AttendeeName, r.Email, r.Seats, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting class registration: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// PendingRows returns up to limit records of the given type that were never exported, oldest first
func (s *Store) PendingRows(ctx context.Context, t domain.ExportType, limit int) ([]domain.SheetRow, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	var columns string
	switch t {
	case domain.ExportContacts:
		columns = "id, name, email, phone, subject, message, created_at"
	case domain.ExportBookings:
		columns = "id, customer_name, email, space_name, starts_at, ends_at, guests, status, total_cents, created_at"
	case domain.ExportPayments:
		columns = "id, booking_id, provider_ref, amount_cents, currency, status, created_at"
	case domain.ExportClasses:
		columns = "id, class_name, session_date, attendee_name, email, seats, created_at"
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE exported_at IS NULL ORDER BY id`, columns, table)
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading pending %s: %w", t, err)
	}
	defer rows.Close()

	var out []domain.SheetRow
	for rows.Next() {
		row, err := scanSource(t, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanSource(t domain.ExportType, rows *sql.Rows) (domain.SheetRow, error) {
	switch t {
	case domain.ExportContacts:
		var c domain.ContactSubmission
		var phone, subject sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &phone, &subject, &c.Message, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Phone, c.Subject = phone.String, subject.String
		return c, nil
	case domain.ExportBookings:
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.CustomerName, &b.Email, &b.SpaceName, &b.StartsAt, &b.EndsAt, &b.Guests, &b.Status, &b.TotalCents, &b.CreatedAt); err != nil {
			return nil, err
		}
		return b, nil
	case domain.ExportPayments:
		var p domain.Payment
		var bookingID sql.NullInt64
		if err := rows.Scan(&p.ID, &bookingID, &p.ProviderRef, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			id := bookingID.Int64
			p.BookingID = &id
		}
		return p, nil
	case domain.ExportClasses:
		var r domain.ClassRegistration
		if err := rows.Scan(&r.ID, &r.ClassName, &r.SessionDate, &r.AttendeeName, &r.Email, &r.Seats, &r.CreatedAt); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("no source table for export type %q", t)
}

// MarkExported stamps exported_at on the given records in one transaction
func (s *Store) MarkExported(ctx context.Context, t domain.ExportType, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	table, err := tableFor(t)
	if err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`UPDATE %s SET exported_at = ? WHERE exported_at IS NULL AND id IN (%s)`, table, placeholders)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("marking %s exported: %w", t, err)
	}
	return tx.Commit()
}

// CountPending returns the number of never-exported records per source type
func (s *Store) CountPending(ctx context.Context) (map[domain.ExportType]int, error) {
	counts := make(map[domain.ExportType]int, len(sourceTables))
	for _, t := range domain.SourceTypes {
		table := sourceTables[t]
		var n int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE exported_at IS NULL`, table)
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting pending %s: %w", t, err)
		}
		counts[t] = n
	}
	return counts, nil
}
