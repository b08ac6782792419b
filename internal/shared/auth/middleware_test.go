package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret: "test-secret",
		Issuer:    "plataforma-test",
	}
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	cfg := testAuthConfig()
	actor := &Actor{
		ID:   types.NewID(),
		Name: "Carmen Díaz",
		Role: "mayor",
		Territory: types.Territory{
			Department:   "Francisco Morazán",
			Municipality: "Distrito Central",
		},
	}

	token, err := IssueToken(cfg, actor, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	var got *Actor
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetActor(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got == nil {
		t.Fatal("GetActor returned nil inside handler")
	}
	if got.ID != actor.ID {
		t.Errorf("actor ID = %v, want %v", got.ID, actor.ID)
	}
	if got.Role != "mayor" {
		t.Errorf("actor role = %q, want %q", got.Role, "mayor")
	}
	if got.Territory.Municipality != "Distrito Central" {
		t.Errorf("actor municipality = %q, want %q", got.Territory.Municipality, "Distrito Central")
	}
}

func TestMiddlewareRejects(t *testing.T) {
	cfg := testAuthConfig()

	roleless, err := IssueToken(cfg, &Actor{ID: types.NewID()}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	expired, err := IssueToken(cfg, &Actor{ID: types.NewID(), Role: "mayor"}, -time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	wrongKey, err := IssueToken(config.AuthConfig{JWTSecret: "other", Issuer: cfg.Issuer},
		&Actor{ID: types.NewID(), Role: "mayor"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
		{"token without role", "Bearer " + roleless},
	}

	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with invalid credentials")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestGetActorWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor := GetActor(req.Context()); actor != nil {
		t.Errorf("GetActor on bare context = %v, want nil", actor)
	}
}
