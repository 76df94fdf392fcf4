package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/billing"
	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/lifecycle"
)

// PaymentHandler serves the payment lifecycle REST surface.
type PaymentHandler struct {
	service *lifecycle.Service
	billing *billing.Service
	log     *slog.Logger
}

// NewPaymentHandler creates the handler.
func NewPaymentHandler(service *lifecycle.Service, billingSvc *billing.Service) *PaymentHandler {
	return &PaymentHandler{service: service, billing: billingSvc, log: slog.Default()}
}

type createRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	CustomerWallet string `json:"customer_wallet,omitempty"`
}

// HandleCreate serves POST /payments/create (merchant auth) and
// POST /payments/widget/create (widget auth); the middleware decides
// which merchant arrives in context.
func (h *PaymentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	merchant := merchantFrom(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.Rejectf(domain.CodeInvalidAmount, "malformed request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, domain.Rejectf(domain.CodeInvalidAmount, "amount %q is not a number", req.Amount))
		return
	}

	tx, err := h.service.Create(r.Context(), merchant, lifecycle.CreateInput{
		Amount:         amount,
		Currency:       domain.Currency(req.Currency),
		CustomerEmail:  req.CustomerEmail,
		CustomerWallet: req.CustomerWallet,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

type processRequest struct {
	TransactionID string `json:"transaction_id"`
	TxHash        string `json:"tx_hash"`
}

// HandleProcess serves POST /payments/process: the customer submits a
// signed transaction hash for verification.
func (h *PaymentHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.TransactionID == "" || req.TxHash == "" {
		writeError(w, domain.Rejectf(domain.CodeVerificationFailed, "transaction_id and tx_hash required"))
		return
	}

	tx, err := h.service.Submit(r.Context(), req.TransactionID, req.TxHash)
	if err != nil {
		if e, ok := domain.AsError(err); ok && e.Kind == domain.KindRetryable {
			h.log.Warn("submission verification unavailable",
				"transaction", req.TransactionID, "error", err)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// HandleStatus serves GET /payments/status/{id}.
func (h *PaymentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	tx, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// HandlePublicStatus serves GET /payments/public/{id}: no auth, limited
// fields only.
func (h *PaymentHandler) HandlePublicStatus(w http.ResponseWriter, r *http.Request) {
	tx, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx.Public())
}

type walletRequest struct {
	Wallet string `json:"wallet"`
	Email  string `json:"email,omitempty"`
}

// HandleSetWallet serves POST /payments/{id}/wallet: the payer records
// their wallet before submission.
func (h *PaymentHandler) HandleSetWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Wallet == "" {
		writeError(w, domain.Rejectf(domain.CodeInvalidWallet, "wallet required"))
		return
	}

	if err := h.service.SetCustomerWallet(r.Context(), chi.URLParam(r, "id"), req.Wallet, req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// HandleRefund serves POST /payments/refund (merchant auth).
func (h *PaymentHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	merchant := merchantFrom(r.Context())

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeError(w, domain.Rejectf(domain.CodeNotRefundable, "transaction_id required"))
		return
	}

	tx, err := h.service.Refund(r.Context(), merchant.ID, req.TransactionID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type planRequest struct {
	Plan string `json:"plan"`
}

// HandleChangePlan serves POST /subscriptions/plan (merchant auth).
func (h *PaymentHandler) HandleChangePlan(w http.ResponseWriter, r *http.Request) {
	merchant := merchantFrom(r.Context())

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Plan == "" {
		writeError(w, domain.Rejectf(domain.CodeInvalidPlan, "plan required"))
		return
	}

	if err := h.billing.ChangePlan(r.Context(), merchant.ID, domain.Plan(req.Plan)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
