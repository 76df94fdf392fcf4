package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

type txRow struct {
	ID             string          `db:"id"`
	MerchantID     string          `db:"merchant_id"`
	CustomerEmail  sql.NullString  `db:"customer_email"`
	CustomerWallet sql.NullString  `db:"customer_wallet"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	CryptoAmount   decimal.Decimal `db:"crypto_amount"`
	ExchangeRate   decimal.Decimal `db:"exchange_rate"`
	Network        string          `db:"network"`
	ToAddress      string          `db:"to_address"`
	TxHash         sql.NullString  `db:"tx_hash"`
	FromAddress    sql.NullString  `db:"from_address"`
	BlockNumber    sql.NullInt64   `db:"block_number"`
	GasUsed        sql.NullInt64   `db:"gas_used"`
	GasPrice       sql.NullString  `db:"gas_price"`
	Confirmations  int64           `db:"confirmation_count"`
	RequiredConfs  int64           `db:"required_confirmations"`
	Status         string          `db:"status"`
	Compliance     []byte          `db:"compliance"`
	PlatformFee    decimal.Decimal `db:"platform_fee"`
	FeePercentage  decimal.Decimal `db:"platform_fee_percentage"`
	MerchantPlan   sql.NullString  `db:"merchant_plan"`
	MerchantAmount decimal.Decimal `db:"merchant_amount"`
	RefundInfo     []byte          `db:"refund_info"`
	FailReason     sql.NullString  `db:"fail_reason"`
	CreatedAt      time.Time       `db:"created_at"`
	ProcessedAt    *time.Time      `db:"processed_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
}

const txColumns = `
	id, merchant_id, customer_email, customer_wallet,
	amount, currency, crypto_amount, exchange_rate,
	network, to_address,
	tx_hash, from_address, block_number, gas_used, gas_price,
	confirmation_count, required_confirmations, status,
	compliance, platform_fee, platform_fee_percentage, merchant_plan, merchant_amount,
	refund_info, fail_reason, created_at, processed_at, completed_at`

func (r *txRow) toDomain() (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:                    r.ID,
		MerchantID:            r.MerchantID,
		CustomerEmail:         r.CustomerEmail.String,
		CustomerWallet:        r.CustomerWallet.String,
		Amount:                r.Amount,
		Currency:              domain.Currency(r.Currency),
		CryptoAmount:          r.CryptoAmount,
		ExchangeRate:          r.ExchangeRate,
		Network:               domain.Network(r.Network),
		ToAddress:             r.ToAddress,
		TxHash:                r.TxHash.String,
		FromAddress:           r.FromAddress.String,
		ConfirmationCount:     uint64(r.Confirmations),
		RequiredConfirmations: uint64(r.RequiredConfs),
		Status:                domain.TxStatus(r.Status),
		PlatformFee:           r.PlatformFee,
		PlatformFeePercentage: r.FeePercentage,
		MerchantPlan:          domain.Plan(r.MerchantPlan.String),
		MerchantAmount:        r.MerchantAmount,
		GasPrice:              r.GasPrice.String,
		FailReason:            r.FailReason.String,
		CreatedAt:             r.CreatedAt,
		ProcessedAt:           r.ProcessedAt,
		CompletedAt:           r.CompletedAt,
	}
	if r.BlockNumber.Valid {
		tx.BlockNumber = uint64(r.BlockNumber.Int64)
	}
	if r.GasUsed.Valid {
		tx.GasUsed = uint64(r.GasUsed.Int64)
	}
	if len(r.Compliance) > 0 {
		if err := json.Unmarshal(r.Compliance, &tx.Compliance); err != nil {
			return nil, fmt.Errorf("decode compliance: %w", err)
		}
	}
	if len(r.RefundInfo) > 0 {
		var info domain.RefundInfo
		if err := json.Unmarshal(r.RefundInfo, &info); err != nil {
			return nil, fmt.Errorf("decode refund info: %w", err)
		}
		tx.RefundInfo = &info
	}
	return tx, nil
}

// Create persists a new transaction with status pending.
func (r *TxRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	compliance, err := json.Marshal(tx.Compliance)
	if err != nil {
		return fmt.Errorf("encode compliance: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, merchant_id, customer_email, customer_wallet,
			amount, currency, crypto_amount, exchange_rate,
			network, to_address,
			confirmation_count, required_confirmations, status,
			compliance, created_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		tx.ID, tx.MerchantID, tx.CustomerEmail, tx.CustomerWallet,
		tx.Amount, string(tx.Currency), tx.CryptoAmount, tx.ExchangeRate,
		string(tx.Network), tx.ToAddress,
		int64(tx.RequiredConfirmations), string(tx.Status),
		compliance, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction.
func (r *TxRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`

	var row txRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain()
}

// GetByTxHash finds the transaction a submission hash is attached to.
func (r *TxRepo) GetByTxHash(ctx context.Context, txHash string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE tx_hash = $1`

	var row txRow
	err := r.db.GetContext(ctx, &row, query, txHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by hash: %w", err)
	}
	return row.toDomain()
}

// AttachSubmission links a customer submission. The WHERE status guard
// serializes concurrent submissions: only the first wins.
func (r *TxRepo) AttachSubmission(ctx context.Context, id string, sub storage.Submission) error {
	query := `
		UPDATE transactions SET
			tx_hash = $2, from_address = $3, block_number = $4,
			gas_used = $5, gas_price = $6,
			status = $7, processed_at = NOW()
		WHERE id = $1 AND status = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		id, sub.TxHash, sub.FromAddress, int64(sub.BlockNumber),
		int64(sub.GasUsed), sub.GasPrice,
		string(domain.TxStatusProcessing), string(domain.TxStatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to attach submission: %w", err)
	}
	return r.guarded(ctx, res, id, domain.ErrAlreadyProcessed)
}

// SetCustomerWallet records the payer wallet while still pending.
func (r *TxRepo) SetCustomerWallet(ctx context.Context, id, wallet, email string) error {
	query := `
		UPDATE transactions
		SET customer_wallet = $2, customer_email = COALESCE(NULLIF($3, ''), customer_email)
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, wallet, email, string(domain.TxStatusPending))
	if err != nil {
		return fmt.Errorf("failed to set customer wallet: %w", err)
	}
	return r.guarded(ctx, res, id, domain.ErrAlreadyProcessed)
}

// RecordConfirmation idempotently updates the confirmation counter.
func (r *TxRepo) RecordConfirmation(ctx context.Context, id string, confirmations uint64) error {
	query := `
		UPDATE transactions SET confirmation_count = $2
		WHERE id = $1 AND status = $3
	`
	_, err := r.db.ExecContext(ctx, query, id, int64(confirmations), string(domain.TxStatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to record confirmation: %w", err)
	}
	return nil
}

// Complete transitions processing -> completed, writing fee fields and
// the completed timestamp exactly once.
func (r *TxRepo) Complete(ctx context.Context, id string, s storage.Settlement) (bool, error) {
	query := `
		UPDATE transactions SET
			status = $2,
			platform_fee = $3, platform_fee_percentage = $4,
			merchant_plan = $5, merchant_amount = $6,
			completed_at = NOW()
		WHERE id = $1 AND status = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		id, string(domain.TxStatusCompleted),
		s.PlatformFee, s.Percentage, string(s.MerchantPlan), s.MerchantAmount,
		string(domain.TxStatusProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Fail transitions pending/processing -> failed.
func (r *TxRepo) Fail(ctx context.Context, id, reason string) error {
	query := `
		UPDATE transactions SET status = $2, fail_reason = $3
		WHERE id = $1 AND status IN ($4, $5)
	`
	res, err := r.db.ExecContext(ctx, query,
		id, string(domain.TxStatusFailed), reason,
		string(domain.TxStatusPending), string(domain.TxStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("failed to fail transaction: %w", err)
	}
	return r.guarded(ctx, res, id, domain.ErrAlreadyProcessed)
}

// Refund transitions completed -> refunded.
func (r *TxRepo) Refund(ctx context.Context, id string, info domain.RefundInfo) error {
	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode refund info: %w", err)
	}
	query := `
		UPDATE transactions SET status = $2, refund_info = $3
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		id, string(domain.TxStatusRefunded), encoded, string(domain.TxStatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("failed to refund transaction: %w", err)
	}
	return r.guarded(ctx, res, id, domain.ErrNotRefundable)
}

// ListByStatus returns transactions in a status, oldest first.
func (r *TxRepo) ListByStatus(ctx context.Context, status domain.TxStatus) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE status = $1 ORDER BY created_at ASC`

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txs := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// FailExpiredPending sweeps stale pending transactions.
func (r *TxRepo) FailExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE transactions SET status = $1, fail_reason = 'expired'
		WHERE status = $2 AND created_at < $3
	`
	res, err := r.db.ExecContext(ctx, query,
		string(domain.TxStatusFailed), string(domain.TxStatusPending), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired transactions: %w", err)
	}
	return res.RowsAffected()
}

// MerchantUsage sums volume counted against compliance limits.
func (r *TxRepo) MerchantUsage(ctx context.Context, merchantID string, since time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE merchant_id = $1 AND created_at >= $2 AND status IN ($3, $4, $5)
	`
	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query,
		merchantID, since,
		string(domain.TxStatusPending), string(domain.TxStatusProcessing), string(domain.TxStatusCompleted),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum merchant usage: %w", err)
	}
	return total, nil
}

// guarded maps a zero-row conditional update to conflictErr, or
// ErrNotFound when the id does not exist at all.
func (r *TxRepo) guarded(ctx context.Context, res sql.Result, id string, conflictErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return conflictErr
}
