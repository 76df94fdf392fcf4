package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository in memory.
type TxRepo struct {
	store *MemoryStorage
}

// NewTxRepo creates an in-memory transaction repository.
func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.transactions[tx.ID] = copyTx(tx)
	return nil
}

func (r *TxRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTx(tx), nil
}

func (r *TxRepo) GetByTxHash(ctx context.Context, txHash string) (*domain.Transaction, error) {
	if txHash == "" {
		return nil, domain.ErrNotFound
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, tx := range r.store.transactions {
		if tx.TxHash == txHash {
			return copyTx(tx), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *TxRepo) AttachSubmission(ctx context.Context, id string, sub storage.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusPending {
		return domain.ErrAlreadyProcessed
	}
	now := time.Now().UTC()
	tx.TxHash = sub.TxHash
	tx.FromAddress = sub.FromAddress
	tx.BlockNumber = sub.BlockNumber
	tx.GasUsed = sub.GasUsed
	tx.GasPrice = sub.GasPrice
	tx.Status = domain.TxStatusProcessing
	tx.ProcessedAt = &now
	return nil
}

func (r *TxRepo) SetCustomerWallet(ctx context.Context, id, wallet, email string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusPending {
		return domain.ErrAlreadyProcessed
	}
	tx.CustomerWallet = wallet
	if email != "" {
		tx.CustomerEmail = email
	}
	return nil
}

func (r *TxRepo) RecordConfirmation(ctx context.Context, id string, confirmations uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusProcessing {
		return nil
	}
	tx.ConfirmationCount = confirmations
	return nil
}

func (r *TxRepo) Complete(ctx context.Context, id string, s storage.Settlement) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusProcessing {
		return false, nil
	}
	now := time.Now().UTC()
	tx.Status = domain.TxStatusCompleted
	tx.PlatformFee = s.PlatformFee
	tx.PlatformFeePercentage = s.Percentage
	tx.MerchantPlan = s.MerchantPlan
	tx.MerchantAmount = s.MerchantAmount
	tx.CompletedAt = &now
	return true, nil
}

func (r *TxRepo) Fail(ctx context.Context, id, reason string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusPending && tx.Status != domain.TxStatusProcessing {
		return domain.ErrAlreadyProcessed
	}
	tx.Status = domain.TxStatusFailed
	tx.FailReason = reason
	return nil
}

func (r *TxRepo) Refund(ctx context.Context, id string, info domain.RefundInfo) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxStatusCompleted {
		return domain.ErrNotRefundable
	}
	tx.Status = domain.TxStatusRefunded
	tx.RefundInfo = &info
	return nil
}

func (r *TxRepo) ListByStatus(ctx context.Context, status domain.TxStatus) ([]*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var txs []*domain.Transaction
	for _, tx := range r.store.transactions {
		if tx.Status == status {
			txs = append(txs, copyTx(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
	return txs, nil
}

func (r *TxRepo) FailExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var swept int64
	for _, tx := range r.store.transactions {
		if tx.Status == domain.TxStatusPending && tx.CreatedAt.Before(cutoff) {
			tx.Status = domain.TxStatusFailed
			tx.FailReason = "expired"
			swept++
		}
	}
	return swept, nil
}

func (r *TxRepo) MerchantUsage(ctx context.Context, merchantID string, since time.Time) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	total := decimal.Zero
	for _, tx := range r.store.transactions {
		if tx.MerchantID != merchantID || tx.CreatedAt.Before(since) {
			continue
		}
		switch tx.Status {
		case domain.TxStatusPending, domain.TxStatusProcessing, domain.TxStatusCompleted:
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}
