package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/coinflow/payments/internal/core/domain"
)

// MerchantRepo implements storage.MerchantRepository using PostgreSQL.
type MerchantRepo struct {
	db *DB
}

// NewMerchantRepo creates a new PostgreSQL merchant repository.
func NewMerchantRepo(db *DB) *MerchantRepo {
	return &MerchantRepo{db: db}
}

type merchantRow struct {
	ID               string         `db:"id"`
	Email            string         `db:"email"`
	BusinessName     string         `db:"business_name"`
	KYCStatus        string         `db:"kyc_status"`
	RiskLevel        string         `db:"risk_level"`
	PayoutWallet     sql.NullString `db:"payout_wallet"`
	PreferredNetwork sql.NullString `db:"preferred_network"`
	APIKey           sql.NullString `db:"api_key"`
	AllowedDomains   pq.StringArray `db:"allowed_domains"`
	ManualReview     bool           `db:"manual_review_approved"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r *merchantRow) toDomain() *domain.Merchant {
	return &domain.Merchant{
		ID:                   r.ID,
		Email:                r.Email,
		BusinessName:         r.BusinessName,
		KYCStatus:            domain.KYCStatus(r.KYCStatus),
		RiskLevel:            domain.RiskLevel(r.RiskLevel),
		PayoutWallet:         r.PayoutWallet.String,
		PreferredNetwork:     domain.Network(r.PreferredNetwork.String),
		APIKey:               r.APIKey.String,
		AllowedDomains:       r.AllowedDomains,
		ManualReviewApproved: r.ManualReview,
		CreatedAt:            r.CreatedAt,
	}
}

const merchantColumns = `
	id, email, business_name, kyc_status, risk_level,
	payout_wallet, preferred_network, api_key, allowed_domains,
	manual_review_approved, created_at`

// GetByID retrieves a merchant.
func (r *MerchantRepo) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`

	var row merchantRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	return row.toDomain(), nil
}

// GetByAPIKey retrieves a merchant by API key.
func (r *MerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE api_key = $1`

	var row merchantRow
	err := r.db.GetContext(ctx, &row, query, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant by api key: %w", err)
	}
	return row.toDomain(), nil
}
