package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/skytide/travelbooking/internal/domain"
)

// DB is the subset of pgxpool.Pool the repositories use.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type BookingRepository interface {
	Save(ctx context.Context, booking *domain.Booking) error
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.Booking, error)
	MarkCancelled(ctx context.Context, reference, reason string, paymentStatus domain.PaymentStatus) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, owner_id, reference, status, payment_status, amount, currency, details, created_at, updated_at`

// Save inserts the booking row. When the store rejects the owner reference
// itself, the insert is retried once without it and the identity is kept
// inside the details blob so the booking is never lost.
func (r *PGBookingRepository) Save(ctx context.Context, booking *domain.Booking) error {
	err := r.insert(ctx, booking, booking.OwnerID)
	if err == nil {
		return nil
	}

	if booking.OwnerID != nil && isOwnershipViolation(err) {
		logrus.WithFields(logrus.Fields{
			"reference": booking.Reference,
			"owner_id":  *booking.OwnerID,
		}).Warn("owner reference rejected, retrying insert without it")

		booking.Details.FallbackOwnerID = *booking.OwnerID
		booking.OwnerID = nil
		if retryErr := r.insert(ctx, booking, nil); retryErr != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistence, retryErr)
		}
		return nil
	}

	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func (r *PGBookingRepository) insert(ctx context.Context, booking *domain.Booking, ownerID *string) error {
	details, err := json.Marshal(booking.Details)
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `INSERT INTO bookings (owner_id, reference, status, payment_status, amount, currency, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		ownerID, booking.Reference, booking.Status, booking.PaymentStatus, booking.Amount, booking.Currency, details).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

// isOwnershipViolation classifies store errors by code rather than
// message: foreign-key violations and access-policy rejections on the
// owner column qualify, nothing else does.
func isOwnershipViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23503", "42501":
		return true
	}
	return false
}

// GetByReference resolves a booking by its primary reference or by the
// provider order id embedded in the details blob.
func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1 OR details->>'orderId'=$1 LIMIT 1`, reference)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// ListActiveByOwner matches rows by the owner column or by the fallback
// identity, so ownerless retry records stay visible to their owner.
func (r *PGBookingRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE (owner_id=$1 OR details->>'fallbackOwnerId'=$1) AND status <> $2
		ORDER BY created_at DESC`, ownerID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}

// MarkCancelled flips the status; the row stays for history and audit. An
// empty paymentStatus leaves the stored payment status untouched.
func (r *PGBookingRepository) MarkCancelled(ctx context.Context, reference, reason string, paymentStatus domain.PaymentStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings
		SET status=$2,
		    payment_status=COALESCE(NULLIF($3, ''), payment_status),
		    details=jsonb_set(details, '{cancellationReason}', to_jsonb($4::text)),
		    updated_at=now()
		WHERE reference=$1 OR details->>'orderId'=$1
		RETURNING `+bookingColumns, reference, domain.BookingStatusCancelled, string(paymentStatus), reason)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var details []byte
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Reference, &b.Status, &b.PaymentStatus, &b.Amount, &b.Currency, &details, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.Details); err != nil {
			return nil, err
		}
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
