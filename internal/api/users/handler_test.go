package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/policy"
	"github.com/tidewater-dev/crewdeck/internal/storage/storagetest"
)

func asActor(req *http.Request, id string, role models.Role) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), policy.Actor{ID: id, Name: "Actor " + id, Role: role}))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seed(t *testing.T, store *storagetest.Store) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Original-Pass-99"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.UsersData = []*models.User{
		{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin, PasswordHash: string(hash)},
		{ID: "tm-1", Name: "Tom", Email: "tom@example.com", Role: models.RoleTeamMember, PasswordHash: string(hash)},
	}
}

func TestCreate(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"name": "Pat", "email": "pat@example.com", "password": "Str0ng-Passw0rd!", "role": "project_manager"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/users", strings.NewReader(body)), "admin-1", models.RoleAdmin)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data *UserResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Role != "project_manager" {
		t.Errorf("role = %q, want project_manager", resp.Data.Role)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"name": "Tom Two", "email": "tom@example.com", "password": "Str0ng-Passw0rd!", "role": "client"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/users", strings.NewReader(body)), "admin-1", models.RoleAdmin)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCreate_WeakPasswordRejected(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"name": "Pat", "email": "pat@example.com", "password": "short", "role": "client"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/users", strings.NewReader(body)), "admin-1", models.RoleAdmin)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestUpdate_RoleChangeAdminOnly(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"role": "project_manager"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/users/tm-1", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	req = withURLParam(req, "id", "tm-1")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("self role change: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = asActor(httptest.NewRequest("PUT", "/api/v1/users/tm-1", strings.NewReader(body)), "admin-1", models.RoleAdmin)
	req = withURLParam(req, "id", "tm-1")
	rec = httptest.NewRecorder()
	handler.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin role change: status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.UsersData[1].Role != models.RoleProjectManager {
		t.Errorf("stored role = %s, want %s", store.UsersData[1].Role, models.RoleProjectManager)
	}
}

func TestUpdate_AdminCannotDemoteSelf(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"role": "client"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/users/admin-1", strings.NewReader(body)), "admin-1", models.RoleAdmin)
	req = withURLParam(req, "id", "admin-1")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestDelete_SelfDeletionRejected(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	req := asActor(httptest.NewRequest("DELETE", "/api/v1/users/admin-1", nil), "admin-1", models.RoleAdmin)
	req = withURLParam(req, "id", "admin-1")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestChangePassword(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"current_password": "Original-Pass-99", "new_password": "An0ther-Passw0rd!"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/users/me/password", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(store.UsersData[1].PasswordHash), []byte("An0ther-Passw0rd!")); err != nil {
		t.Error("new password does not verify against stored hash")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	body := `{"current_password": "wrong", "new_password": "An0ther-Passw0rd!"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/users/me/password", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGetCurrentUser(t *testing.T) {
	store := storagetest.New()
	seed(t, store)
	handler := NewHandler(store)

	req := asActor(httptest.NewRequest("GET", "/api/v1/users/me", nil), "tm-1", models.RoleTeamMember)
	rec := httptest.NewRecorder()
	handler.GetCurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Data *UserResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Email != "tom@example.com" {
		t.Errorf("email = %q, want tom@example.com", resp.Data.Email)
	}
}
