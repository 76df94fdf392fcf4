package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coinflow/payments/internal/core/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP: rejections are
// 4xx with a stable code, conflicts 409, retryable external failures
// 502, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	if e, ok := domain.AsError(err); ok {
		status := http.StatusBadRequest
		switch e.Kind {
		case domain.KindConflict:
			status = http.StatusConflict
		case domain.KindRetryable:
			status = http.StatusBadGateway
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindRejection:
			if e.Code == domain.CodeKYCNotApproved || e.Code == domain.CodeDomainNotAllowed {
				status = http.StatusForbidden
			}
		}
		writeJSON(w, status, errorBody{Error: errorDetail{Code: string(e.Code), Message: e.Message}})
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code: string(domain.CodeNotFound), Message: "not found",
		}})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code: "INTERNAL", Message: "internal error",
	}})
}
