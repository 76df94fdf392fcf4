package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/infra/storage"
)

type contextKey string

const merchantKey contextKey = "merchant"

// merchantFrom pulls the authenticated merchant from the request
// context. Only reachable behind the auth middlewares.
func merchantFrom(ctx context.Context) *domain.Merchant {
	m, _ := ctx.Value(merchantKey).(*domain.Merchant)
	return m
}

// MerchantAuth authenticates dashboard/API calls via bearer API key.
func MerchantAuth(merchants storage.MerchantRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
					Code: "UNAUTHORIZED", Message: "missing bearer token",
				}})
				return
			}

			merchant, err := merchants.GetByAPIKey(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
					Code: "UNAUTHORIZED", Message: "invalid api key",
				}})
				return
			}

			ctx := context.WithValue(r.Context(), merchantKey, merchant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WidgetAuth authenticates embedded-widget calls: API key header plus
// Origin domain whitelist.
func WidgetAuth(merchants storage.MerchantRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
					Code: "UNAUTHORIZED", Message: "missing api key",
				}})
				return
			}

			merchant, err := merchants.GetByAPIKey(r.Context(), apiKey)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
					Code: "UNAUTHORIZED", Message: "invalid api key",
				}})
				return
			}

			origin := originHost(r.Header.Get("Origin"))
			if origin == "" || !merchant.DomainAllowed(origin) {
				writeError(w, domain.Rejectf(domain.CodeDomainNotAllowed,
					"origin %q not whitelisted", origin))
				return
			}

			ctx := context.WithValue(r.Context(), merchantKey, merchant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func originHost(origin string) string {
	if origin == "" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Hostname()
}

// RequestLogger logs HTTP requests via slog.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr)
		})
	}
}
