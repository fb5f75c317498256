package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/policy"
)

func setActor(r *http.Request, userID string, role models.Role) *http.Request {
	ctx := WithActor(r.Context(), policy.Actor{ID: userID, Role: role})
	return r.WithContext(ctx)
}

func TestRequireRole_Allowed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
	}{
		{"exact match", models.RoleAdmin, []models.Role{models.RoleAdmin}},
		{"one of many", models.RoleProjectManager, []models.Role{models.RoleAdmin, models.RoleProjectManager}},
		{"admin bypass", models.RoleAdmin, []models.Role{models.RoleTeamMember}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireRole(tc.allowed...)(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			req = setActor(req, "user-123", tc.role)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestRequireRole_Denied(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
	}{
		{"team member not admin", models.RoleTeamMember, []models.Role{models.RoleAdmin}},
		{"manager not admin", models.RoleProjectManager, []models.Role{models.RoleAdmin}},
		{"client not manager", models.RoleClient, []models.Role{models.RoleProjectManager}},
		{"empty role", "", []models.Role{models.RoleTeamMember}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireRole(tc.allowed...)(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tc.role != "" {
				req = setActor(req, "user-123", tc.role)
			}
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		role     models.Role
		wantCode int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleProjectManager, http.StatusForbidden},
		{models.RoleTeamMember, http.StatusForbidden},
		{models.RoleClient, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			wrapped := RequireAdmin(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			req = setActor(req, "user-123", tc.role)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}

func TestRequireAdminOrSelf(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		userID     string
		role       models.Role
		resourceID string
		wantCode   int
	}{
		{"admin accessing other", "admin-1", models.RoleAdmin, "user-2", http.StatusOK},
		{"team member accessing self", "user-1", models.RoleTeamMember, "user-1", http.StatusOK},
		{"client accessing self", "user-1", models.RoleClient, "user-1", http.StatusOK},
		{"team member accessing other", "user-1", models.RoleTeamMember, "user-2", http.StatusForbidden},
		{"manager accessing other", "user-1", models.RoleProjectManager, "user-2", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := RequireAdminOrSelf(handler)

			// Use chi router to set the {id} URL param
			router := chi.NewRouter()
			router.With(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					r = setActor(r, tc.userID, tc.role)
					next.ServeHTTP(w, r)
				})
			}).Get("/users/{id}", wrapped.ServeHTTP)

			req := httptest.NewRequest("GET", "/users/"+tc.resourceID, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}
