package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ansaralyh/AX-server/internal/common/logger"
	"github.com/ansaralyh/AX-server/internal/common/server"
	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Service) {
	t.Helper()
	svc, _, _ := newTestService()
	r := chi.NewRouter()
	NewHandler(svc, logger.Nop()).RegisterAuthRoutes(r)
	return r, svc
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) server.Response {
	t.Helper()
	var resp server.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestDriverLoginEndpoint(t *testing.T) {
	r, svc := newTestRouter(t)
	mustCreate(t, svc, "driver@example.com", RoleDriver, "hunter2secret")

	body := `{"email":"driver@example.com","password":"hunter2secret"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/driver/login", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatalf("expected success envelope, got %+v", resp)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object in response data, got %+v", resp.Data)
	}
	if tok, _ := data["token"].(string); tok == "" {
		t.Fatalf("expected token in response data, got %+v", resp.Data)
	}
	if raw, _ := json.Marshal(resp.Data); strings.Contains(string(raw), "passwordHash") {
		t.Fatalf("password hash must never be serialized")
	}
}

func TestDriverLoginRejectsAdminAccount(t *testing.T) {
	r, svc := newTestRouter(t)
	mustCreate(t, svc, "admin@example.com", RoleAdmin, "hunter2secret")

	body := `{"email":"admin@example.com","password":"hunter2secret"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/driver/login", strings.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Success {
		t.Fatalf("expected failure envelope, got %+v", resp)
	}
}

func TestLoginMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/admin/login", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProfileEndpointUsesAuthContext(t *testing.T) {
	r, svc := newTestRouter(t)
	u := mustCreate(t, svc, "me@example.com", RoleDriver, "hunter2secret")

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req = req.WithContext(server.ContextWithAuth(req.Context(), server.AuthInfo{
		Subject: u.ID,
		Roles:   []string{string(RoleDriver)},
	}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	// 没有认证上下文时拒绝
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
