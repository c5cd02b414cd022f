package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/skytide/travelbooking/internal/domain"
)

type QuoteRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Quote, error)
	MarkSent(ctx context.Context, id int64, sentAt, expiresAt time.Time) (*domain.Quote, error)
	MarkAccepted(ctx context.Context, id int64) (*domain.Quote, error)
	ExpireSentBefore(ctx context.Context, deadline time.Time) ([]domain.Quote, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.Quote, error)
	GetInquiry(ctx context.Context, id int64) (*domain.Inquiry, error)
	UpdateInquiryStatus(ctx context.Context, id int64, status domain.InquiryStatus) error
}

type PGQuoteRepository struct {
	db DB
}

func NewQuoteRepository(db DB) QuoteRepository {
	return &PGQuoteRepository{db: db}
}

const quoteColumns = `id, inquiry_id, amount, currency, status, validity_days, sent_at, expires_at, admin_id, created_at, updated_at`

func (r *PGQuoteRepository) GetByID(ctx context.Context, id int64) (*domain.Quote, error) {
	row := r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id)
	return scanQuote(row)
}

// MarkSent stamps the validity window. The status guard in the WHERE
// clause keeps racing senders from re-sending.
func (r *PGQuoteRepository) MarkSent(ctx context.Context, id int64, sentAt, expiresAt time.Time) (*domain.Quote, error) {
	row := r.db.QueryRow(ctx, `UPDATE quotes SET status=$2, sent_at=$3, expires_at=$4, updated_at=now()
		WHERE id=$1 AND status=$5
		RETURNING `+quoteColumns, id, domain.QuoteStatusSent, sentAt, expiresAt, domain.QuoteStatusDraft)
	quote, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrQuoteTransition
		}
		return nil, err
	}
	return quote, nil
}

func (r *PGQuoteRepository) MarkAccepted(ctx context.Context, id int64) (*domain.Quote, error) {
	row := r.db.QueryRow(ctx, `UPDATE quotes SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+quoteColumns, id, domain.QuoteStatusAccepted, domain.QuoteStatusSent)
	quote, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrQuoteTransition
		}
		return nil, err
	}
	return quote, nil
}

// ExpireSentBefore transitions every sent quote past its validity window
// in one statement. Rerunning matches nothing, which makes the sweep
// idempotent.
func (r *PGQuoteRepository) ExpireSentBefore(ctx context.Context, deadline time.Time) ([]domain.Quote, error) {
	rows, err := r.db.Query(ctx, `UPDATE quotes SET status=$1, updated_at=now()
		WHERE status=$2 AND expires_at <= $3
		RETURNING `+quoteColumns, domain.QuoteStatusExpired, domain.QuoteStatusSent, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuotes(rows)
}

func (r *PGQuoteRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.Quote, error) {
	rows, err := r.db.Query(ctx, `SELECT `+quoteColumns+` FROM quotes
		WHERE status=$1 AND expires_at > $2 AND expires_at <= $3
		ORDER BY expires_at`, domain.QuoteStatusSent, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuotes(rows)
}

func (r *PGQuoteRepository) GetInquiry(ctx context.Context, id int64) (*domain.Inquiry, error) {
	row := r.db.QueryRow(ctx, `SELECT id, customer_id, email, status, created_at, updated_at FROM inquiries WHERE id=$1`, id)
	var inq domain.Inquiry
	if err := row.Scan(&inq.ID, &inq.CustomerID, &inq.Email, &inq.Status, &inq.CreatedAt, &inq.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &inq, nil
}

func (r *PGQuoteRepository) UpdateInquiryStatus(ctx context.Context, id int64, status domain.InquiryStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE inquiries SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var q domain.Quote
	if err := row.Scan(&q.ID, &q.InquiryID, &q.Amount, &q.Currency, &q.Status, &q.ValidityDays, &q.SentAt, &q.ExpiresAt, &q.AdminID, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func collectQuotes(rows pgx.Rows) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0)
	for rows.Next() {
		var q domain.Quote
		if err := rows.Scan(&q.ID, &q.InquiryID, &q.Amount, &q.Currency, &q.Status, &q.ValidityDays, &q.SentAt, &q.ExpiresAt, &q.AdminID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

var _ QuoteRepository = (*PGQuoteRepository)(nil)
