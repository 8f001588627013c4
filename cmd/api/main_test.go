package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockflow/auth"
	"stockflow/fulfillment"
)

type stubFulfiller struct {
	id      int64
	err     error
	procID  int64
	procErr error

	calls     int
	procCalls int
	lastReq   fulfillment.Request
}

func (s *stubFulfiller) Fulfill(_ context.Context, req fulfillment.Request) (int64, error) {
	s.calls++
	s.lastReq = req
	return s.id, s.err
}

func (s *stubFulfiller) FulfillWithProcedure(_ context.Context, req fulfillment.Request) (int64, error) {
	s.procCalls++
	s.lastReq = req
	return s.procID, s.procErr
}

type stubAuth struct {
	verifyErr error
	loginRes  auth.LoginResult
	loginErr  error
}

func (s *stubAuth) Login(_ context.Context, _ auth.LoginRequest) (auth.LoginResult, error) {
	return s.loginRes, s.loginErr
}

func (s *stubAuth) VerifyToken(_ string) (string, auth.Role, error) {
	if s.verifyErr != nil {
		return "", "", s.verifyErr
	}
	return "op-1", auth.RoleOperator, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleAddFulfillment_Success(t *testing.T) {
	svc := &stubFulfiller{id: 42}
	mux := newMux(svc, nil, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp idResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 {
		t.Fatalf("expected id 42, got %d", resp.ID)
	}

	if svc.calls != 1 || svc.procCalls != 0 {
		t.Fatalf("expected one direct call, got %d/%d", svc.calls, svc.procCalls)
	}
	want := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	if svc.lastReq.ProductID != 1 || svc.lastReq.WarehouseID != 5 || svc.lastReq.Amount != 3 || !svc.lastReq.CreatedAt.Equal(want) {
		t.Fatalf("unexpected decoded request: %+v", svc.lastReq)
	}
}

func TestHandleAddFulfillment_ProcedureRoute(t *testing.T) {
	svc := &stubFulfiller{procID: 7}
	mux := newMux(svc, nil, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse/procedure", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.procCalls != 1 || svc.calls != 0 {
		t.Fatalf("expected one procedure call, got %d/%d", svc.calls, svc.procCalls)
	}
}

func TestHandleAddFulfillment_InvalidBody(t *testing.T) {
	svc := &stubFulfiller{}
	mux := newMux(svc, nil, testLogger())

	for _, body := range []string{"", "{not json"} {
		req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}

	if svc.calls != 0 {
		t.Fatalf("expected workflow not to be invoked, got %d calls", svc.calls)
	}
}

func TestHandleAddFulfillment_WorkflowError(t *testing.T) {
	svc := &stubFulfiller{err: fulfillment.ErrOrderAlreadyFulfilled}
	mux := newMux(svc, nil, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != fulfillment.ErrOrderAlreadyFulfilled.Error() {
		t.Fatalf("expected workflow message, got %q", resp.Error)
	}
}

func TestHandleAddFulfillment_WrongMethod(t *testing.T) {
	mux := newMux(&stubFulfiller{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/warehouse", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	svc := &stubFulfiller{id: 42}
	mux := newMux(svc, &stubAuth{}, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("expected workflow not to be invoked")
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	svc := &stubFulfiller{id: 42}
	mux := newMux(svc, &stubAuth{}, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one workflow call, got %d", svc.calls)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	svc := &stubFulfiller{id: 42}
	mux := newMux(svc, &stubAuth{verifyErr: errors.New("expired")}, testLogger())

	body := `{"productId":1,"warehouseId":5,"amount":3,"createdAt":"2025-03-03T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/warehouse", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleLogin(t *testing.T) {
	authSvc := &stubAuth{loginRes: auth.LoginResult{Token: "signed-token"}}
	mux := newMux(&stubFulfiller{}, authSvc, testLogger())

	body := `{"email":"ops@example.com","password":"supersafe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "signed-token" {
		t.Fatalf("expected token, got %q", resp.Token)
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	authSvc := &stubAuth{loginErr: auth.ErrInvalidCredentials}
	mux := newMux(&stubFulfiller{}, authSvc, testLogger())

	body := `{"email":"ops@example.com","password":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	mux := newMux(&stubFulfiller{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); id == "" {
		t.Fatal("expected X-Request-Id header")
	}
}
