// Package lifecycle drives a payment transaction from merchant request
// through compliance gating, on-chain verification and confirmation
// monitoring to a terminal state.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/chain"
	"github.com/coinflow/payments/internal/compliance"
	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/fees"
	"github.com/coinflow/payments/internal/infra/storage"
	"github.com/coinflow/payments/internal/metrics"
	"github.com/coinflow/payments/internal/notify"
	"github.com/coinflow/payments/internal/rates"
)

// AutoConverter is the external collaborator checked when a payment
// completes. The check is fire-and-forget.
type AutoConverter interface {
	CheckEligibility(ctx context.Context, tx *domain.Transaction) error
}

// Service is the lifecycle engine. All state transitions go through the
// transaction repository; the service never mutates detached copies.
type Service struct {
	txRepo    storage.TransactionRepository
	subs      storage.SubscriptionRepository
	gate      *compliance.Gate
	rates     rates.Resolver
	registry  *chain.Registry
	verifier  *chain.Verifier
	feeEngine *fees.Engine
	dispatch  *notify.Dispatcher
	converter AutoConverter
	expiry    time.Duration
	log       *slog.Logger
}

// NewService wires the lifecycle engine.
func NewService(
	txRepo storage.TransactionRepository,
	subs storage.SubscriptionRepository,
	gate *compliance.Gate,
	rateResolver rates.Resolver,
	registry *chain.Registry,
	verifier *chain.Verifier,
	feeEngine *fees.Engine,
	dispatch *notify.Dispatcher,
	converter AutoConverter,
	expiry time.Duration,
) *Service {
	return &Service{
		txRepo:    txRepo,
		subs:      subs,
		gate:      gate,
		rates:     rateResolver,
		registry:  registry,
		verifier:  verifier,
		feeEngine: feeEngine,
		dispatch:  dispatch,
		converter: converter,
		expiry:    expiry,
		log:       slog.Default(),
	}
}

// CreateInput is a merchant's payment request.
type CreateInput struct {
	Amount         decimal.Decimal
	Currency       domain.Currency
	CustomerEmail  string
	CustomerWallet string
}

// Create runs the full creation path: compliance gate, rate snapshot,
// network routing, persistence. The gate completes before anything is
// persisted; a rejection leaves no trace.
func (s *Service) Create(ctx context.Context, merchant *domain.Merchant, in CreateInput) (*domain.Transaction, error) {
	if in.Amount.Sign() <= 0 {
		return nil, domain.Rejectf(domain.CodeInvalidAmount, "amount must be positive")
	}
	if !domain.IsValidCurrency(in.Currency) {
		return nil, domain.Rejectf(domain.CodeInvalidCurrency, "unsupported currency %s", in.Currency)
	}
	if merchant.PayoutWallet == "" {
		return nil, domain.ErrWalletNotConfigured
	}
	if in.CustomerWallet != "" && !chain.ValidWalletFormat(in.CustomerWallet) {
		return nil, domain.Rejectf(domain.CodeInvalidWallet, "customer wallet format invalid")
	}

	report, err := s.gate.Screen(ctx, compliance.Request{
		Merchant:       merchant,
		Amount:         in.Amount,
		Currency:       in.Currency,
		CustomerEmail:  in.CustomerEmail,
		CustomerWallet: in.CustomerWallet,
	})
	if err != nil {
		if e, ok := domain.AsError(err); ok {
			metrics.ComplianceRejections.WithLabelValues(string(e.Code)).Inc()
		}
		return nil, err
	}

	rate, err := s.rates.Rate(ctx, in.Currency)
	if err != nil {
		return nil, domain.Rejectf(domain.CodeInvalidCurrency, "no exchange rate for %s", in.Currency)
	}

	network, err := s.registry.Resolve(in.Currency, merchant.PreferredNetwork)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.AdapterFor(network)
	if err != nil {
		return nil, domain.Retryablef(domain.CodeChainUnavailable, err, "network %s not configured", network)
	}

	tx := &domain.Transaction{
		ID:                    uuid.NewString(),
		MerchantID:            merchant.ID,
		CustomerEmail:         in.CustomerEmail,
		CustomerWallet:        in.CustomerWallet,
		Amount:                in.Amount,
		Currency:              in.Currency,
		CryptoAmount:          rates.Convert(in.Amount, rate),
		ExchangeRate:          rate,
		Network:               network,
		ToAddress:             merchant.PayoutWallet,
		RequiredConfirmations: adapter.RequiredConfirmations(),
		Status:                domain.TxStatusPending,
		Compliance:            report,
		CreatedAt:             time.Now().UTC(),
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	metrics.PaymentsCreated.WithLabelValues(string(tx.Currency), string(tx.Network)).Inc()
	s.dispatch.Fire(notify.EventCreated, tx)

	s.log.Info("payment created",
		"id", tx.ID,
		"merchant", tx.MerchantID,
		"amount", tx.Amount,
		"currency", tx.Currency,
		"network", tx.Network,
		"pending_review", tx.Compliance.PendingReview)

	return tx, nil
}

// Submit links a customer-submitted transaction hash: verifies it on
// chain, then transitions pending -> processing. Under concurrent
// submissions the guarded update picks exactly one winner; losers get
// ErrAlreadyProcessed.
func (s *Service) Submit(ctx context.Context, id, txHash string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxStatusPending {
		return nil, domain.ErrAlreadyProcessed
	}
	if tx.Compliance.PendingReview {
		return nil, domain.Rejectf(domain.CodePendingReview,
			"transaction %s awaits enhanced due diligence review", id)
	}
	if s.expiry > 0 && time.Since(tx.CreatedAt) > s.expiry {
		if failErr := s.txRepo.Fail(ctx, id, "expired"); failErr != nil &&
			!errors.Is(failErr, domain.ErrAlreadyProcessed) {
			return nil, failErr
		}
		metrics.PaymentsFailed.WithLabelValues("expired").Inc()
		return nil, domain.Rejectf(domain.CodeExpired, "payment window expired for %s", id)
	}

	// A hash already attached to another transaction is a replay.
	if existing, hashErr := s.txRepo.GetByTxHash(ctx, txHash); hashErr == nil {
		if existing.ID != id {
			return nil, domain.Conflictf(domain.CodeAlreadyProcessed,
				"hash %s is already attached to another transaction", txHash)
		}
	} else if !errors.Is(hashErr, domain.ErrNotFound) {
		return nil, hashErr
	}

	verification, err := s.verifier.Verify(ctx, tx.Network, txHash, chain.Expected{
		Recipient: tx.ToAddress,
		Amount:    tx.CryptoAmount,
		Currency:  tx.Currency,
	})
	if err != nil {
		// Never advance state on ambiguous or failed verification.
		return nil, err
	}

	err = s.txRepo.AttachSubmission(ctx, id, storage.Submission{
		TxHash:      txHash,
		FromAddress: verification.From,
		BlockNumber: verification.BlockNumber,
		GasUsed:     verification.GasUsed,
		GasPrice:    verification.GasPrice,
	})
	if err != nil {
		return nil, err
	}

	tx, err = s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.dispatch.Fire(notify.EventProcessed, tx)
	s.log.Info("payment submission attached", "id", id, "tx_hash", txHash, "network", tx.Network)
	return tx, nil
}

// Status returns the current record. Confirmation advancement is the
// monitor's job, not a read side effect.
func (s *Service) Status(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

// SetCustomerWallet records the payer's receiving wallet before
// submission.
func (s *Service) SetCustomerWallet(ctx context.Context, id, wallet, email string) error {
	if !chain.ValidWalletFormat(wallet) {
		return domain.Rejectf(domain.CodeInvalidWallet, "wallet format invalid")
	}
	return s.txRepo.SetCustomerWallet(ctx, id, wallet, email)
}

// Refund transitions a completed transaction to refunded. Only the
// owning merchant may refund.
func (s *Service) Refund(ctx context.Context, merchantID, id, reason string) (*domain.Transaction, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}

	err = s.txRepo.Refund(ctx, id, domain.RefundInfo{
		Reason:     reason,
		RefundedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	tx, err = s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.dispatch.Fire(notify.EventRefunded, tx)
	s.log.Info("payment refunded", "id", id, "reason", reason)
	return tx, nil
}

// complete applies the fee engine and performs the guarded
// processing -> completed transition. Idempotent: only the winning
// caller emits events and side effects.
func (s *Service) complete(ctx context.Context, tx *domain.Transaction) error {
	plan := domain.PlanFree
	if sub, err := s.subs.GetByMerchant(ctx, tx.MerchantID); err == nil && !sub.Canceled {
		plan = sub.Plan
	}

	quote := s.feeEngine.Quote(plan, tx.Amount)
	won, err := s.txRepo.Complete(ctx, tx.ID, storage.Settlement{
		PlatformFee:    quote.Fee,
		Percentage:     quote.Percentage,
		MerchantPlan:   plan,
		MerchantAmount: quote.MerchantReceives,
	})
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	metrics.PaymentsCompleted.WithLabelValues(string(tx.Network)).Inc()

	completed, err := s.txRepo.GetByID(ctx, tx.ID)
	if err != nil {
		return err
	}
	s.dispatch.Fire(notify.EventCompleted, completed)

	if s.converter != nil {
		go func(tx *domain.Transaction) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.converter.CheckEligibility(ctx, tx); err != nil {
				s.log.Warn("auto-conversion check failed", "id", tx.ID, "error", err)
			}
		}(completed)
	}

	s.log.Info("payment completed",
		"id", tx.ID,
		"fee", quote.Fee,
		"merchant_receives", quote.MerchantReceives,
		"plan", plan)
	return nil
}
