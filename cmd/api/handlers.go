package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockflow/auth"
	"stockflow/fulfillment"
)

// fulfiller is the workflow surface the gateway depends on.
type fulfiller interface {
	Fulfill(ctx context.Context, req fulfillment.Request) (int64, error)
	FulfillWithProcedure(ctx context.Context, req fulfillment.Request) (int64, error)
}

// authenticator verifies bearer tokens and exchanges credentials for them.
type authenticator interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
}

// fulfillmentPayload is the transport shape of an add-fulfillment request.
type fulfillmentPayload struct {
	ProductID   int64     `json:"productId"`
	WarehouseID int64     `json:"warehouseId"`
	Amount      int64     `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleAddFulfillment decodes the request body and invokes the given entry
// point. Both routes share this handler; only the workflow call differs.
func handleAddFulfillment(call func(context.Context, fulfillment.Request) (int64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var payload fulfillmentPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "product data cannot be null")
			return
		}

		id, err := call(r.Context(), fulfillment.Request{
			ProductID:   payload.ProductID,
			WarehouseID: payload.WarehouseID,
			Amount:      payload.Amount,
			CreatedAt:   payload.CreatedAt,
		})
		if err != nil {
			// Every workflow failure renders as a client error carrying the
			// message; callers are not given distinct statuses per kind.
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, idResponse{ID: id})
	}
}

func handleLogin(svc authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req auth.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid login payload")
			return
		}

		result, err := svc.Login(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{Token: result.Token})
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAuth gates a handler behind bearer-token verification. A nil
// authenticator disables the gate (no JWT secret configured).
func requireAuth(svc authenticator, next http.HandlerFunc) http.HandlerFunc {
	if svc == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, _, err := svc.VerifyToken(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// withRequestLog tags each request with a correlation id and logs its outcome.
func withRequestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func newMux(svc fulfiller, authSvc authenticator, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	if authSvc != nil {
		mux.HandleFunc("/api/login", handleLogin(authSvc))
	}
	mux.HandleFunc("/api/warehouse", requireAuth(authSvc, handleAddFulfillment(svc.Fulfill)))
	mux.HandleFunc("/api/warehouse/procedure", requireAuth(authSvc, handleAddFulfillment(svc.FulfillWithProcedure)))
	return withRequestLog(logger, mux)
}
