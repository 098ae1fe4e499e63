package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/booking-export/internal/domain"
	"github.com/hochfrequenz/booking-export/internal/exportstore"
)

var seedCount int

func init() {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample records for local testing",
		RunE:  runSeed,
	}
	seedCmd.Flags().IntVar(&seedCount, "count", 5, "records per category")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seed(cmd.Context(), store, seedCount, time.Now()); err != nil {
		return err
	}

	pending, err := store.CountPending(cmd.Context())
	if err != nil {
		return err
	}
	for _, t := range domain.SourceTypes {
		fmt.Fprintf(cmd.OutOrStdout(), "%-9s %d pending\n", t, pending[t])
	}
	return nil
}

func seed(ctx context.Context, store *exportstore.Store, n int, now time.Time) error {
	spaces := []string{"Garden Room", "Loft", "Studio"}
	classes := []string{"Pottery Basics", "Wheel Throwing", "Glazing Workshop"}

	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Sample Guest %d", i+1)
		email := fmt.Sprintf("guest%d@example.com", i+1)
		created := now.Add(-time.Duration(n-i) * time.Hour)

		if err := store.AddContact(ctx, &domain.ContactSubmission{
			Name:      name,
			Email:     email,
			Subject:   "Private event enquiry",
			Message:   "Do you have availability next month?",
			CreatedAt: created,
		}); err != nil {
			return fmt.Errorf("seeding contacts: %w", err)
		}

		starts := now.AddDate(0, 0, 7+i).Truncate(time.Hour)
		booking := &domain.Booking{
			CustomerName: name,
			Email:        email,
			SpaceName:    spaces[i%len(spaces)],
			StartsAt:     starts,
			EndsAt:       starts.Add(3 * time.Hour),
			Guests:       10 + i,
			Status:       "confirmed",
			TotalCents:   int64(45000 + 2500*i),
			CreatedAt:    created,
		}
		if err := store.AddBooking(ctx, booking); err != nil {
			return fmt.Errorf("seeding bookings: %w", err)
		}

		if err := store.AddPayment(ctx, &domain.Payment{
			BookingID:   &booking.ID,
			ProviderRef: "pi_" + uuid.NewString(),
			AmountCents: booking.TotalCents,
			Currency:    "usd",
			Status:      "succeeded",
			CreatedAt:   created,
		}); err != nil {
			return fmt.Errorf("seeding payments: %w", err)
		}

		if err := store.AddClassRegistration(ctx, &domain.ClassRegistration{
			ClassName:    classes[i%len(classes)],
			SessionDate:  now.AddDate(0, 0, 14).Truncate(24 * time.Hour),
			AttendeeName: name,
			Email:        email,
			Seats:        1 + i%2,
			CreatedAt:    created,
		}); err != nil {
			return fmt.Errorf("seeding classes: %w", err)
		}
	}
	return nil
}
