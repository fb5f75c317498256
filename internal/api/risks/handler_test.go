package risks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/notify"
	"github.com/tidewater-dev/crewdeck/internal/policy"
	"github.com/tidewater-dev/crewdeck/internal/storage/storagetest"
)

func newHandler(store *storagetest.Store) (*Handler, *notify.Outbox) {
	outbox := notify.NewOutbox(64)
	return NewHandler(store, notify.NewFanout(store, outbox)), outbox
}

func asActor(req *http.Request, id string, role models.Role) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), policy.Actor{ID: id, Name: "Actor " + id, Role: role}))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seed(store *storagetest.Store) {
	store.UsersData = []*models.User{
		{ID: "admin-1", Role: models.RoleAdmin},
		{ID: "pm-1", Role: models.RoleProjectManager},
	}
	store.ProjectsData = []*models.Project{
		{ID: "p1", Name: "Alpha", OwnerID: "pm-1", Status: models.ProjectInProgress},
		{ID: "p2", Name: "Beta", OwnerID: "client-1", Status: models.ProjectInProgress},
	}
	store.RisksData = []*models.Risk{
		{ID: "r1", ProjectID: "p1", Title: "Vendor delay", Severity: models.RiskHigh, Status: models.RiskActive},
		{ID: "r2", ProjectID: "p2", Title: "Scope creep", Severity: models.RiskMedium, Status: models.RiskActive},
	}
}

func TestList_ScopedByRole(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	tests := []struct {
		name    string
		userID  string
		role    models.Role
		wantIDs []string
	}{
		{"admin sees all", "admin-1", models.RoleAdmin, []string{"r1", "r2"}},
		{"manager sees owned projects only", "pm-1", models.RoleProjectManager, []string{"r1"}},
		{"client sees owned projects only", "client-1", models.RoleClient, []string{"r2"}},
		{"team member without tasks sees none", "tm-1", models.RoleTeamMember, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asActor(httptest.NewRequest("GET", "/api/v1/risks", nil), tt.userID, tt.role)
			rec := httptest.NewRecorder()
			handler.List(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			var resp struct {
				Data []*models.Risk `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Data) != len(tt.wantIDs) {
				t.Fatalf("risks = %d, want %d", len(resp.Data), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if resp.Data[i].ID != id {
					t.Errorf("risk[%d] = %s, want %s", i, resp.Data[i].ID, id)
				}
			}
		})
	}
}

func TestCreate_ManagerOnOwnProject(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, outbox := newHandler(store)

	body := `{"project_id": "p1", "title": "Key dependency unmaintained", "severity": "critical"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/risks", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data *models.Risk `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Status != models.RiskActive {
		t.Errorf("status = %s, want %s", resp.Data.Status, models.RiskActive)
	}
	if resp.Data.Severity != models.RiskCritical {
		t.Errorf("severity = %s, want %s", resp.Data.Severity, models.RiskCritical)
	}

	notified := false
	for outbox.Pending() > 0 {
		intent := <-outbox.Drain()
		if intent.Type != models.NotifyRiskCreated {
			t.Errorf("intent type = %s, want %s", intent.Type, models.NotifyRiskCreated)
		}
		if intent.RecipientID == "pm-1" {
			t.Error("reporter must not be notified of their own risk")
		}
		notified = true
	}
	if !notified {
		t.Error("expected at least one notification intent")
	}
}

func TestCreate_ForeignProjectForbidden(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	body := `{"project_id": "p2", "title": "Not my project"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/risks", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCreate_InvalidSeverityRejected(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	body := `{"project_id": "p1", "title": "Bad severity", "severity": "catastrophic"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/risks", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestUpdate_MitigationNotifies(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, outbox := newHandler(store)

	body := `{"status": "mitigated", "mitigation": "Second vendor signed"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/risks/r1", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	req = withURLParam(req, "id", "r1")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if store.RisksData[0].Status != models.RiskMitigated {
		t.Errorf("stored status = %s, want %s", store.RisksData[0].Status, models.RiskMitigated)
	}

	seen := false
	for outbox.Pending() > 0 {
		if intent := <-outbox.Drain(); intent.Type == models.NotifyRiskMitigated {
			seen = true
		}
	}
	if !seen {
		t.Error("expected a mitigation notification intent")
	}
}

func TestUpdate_AlreadyMitigatedDoesNotRenotify(t *testing.T) {
	store := storagetest.New()
	seed(store)
	store.RisksData[0].Status = models.RiskMitigated
	handler, outbox := newHandler(store)

	body := `{"status": "mitigated"}`
	req := asActor(httptest.NewRequest("PUT", "/api/v1/risks/r1", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	req = withURLParam(req, "id", "r1")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if outbox.Pending() != 0 {
		t.Errorf("pending intents = %d, want 0", outbox.Pending())
	}
}

func TestGetByID_HiddenFromOutsiders(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	req := asActor(httptest.NewRequest("GET", "/api/v1/risks/r2", nil), "pm-1", models.RoleProjectManager)
	req = withURLParam(req, "id", "r2")
	rec := httptest.NewRecorder()
	handler.GetByID(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestDelete(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	req := asActor(httptest.NewRequest("DELETE", "/api/v1/risks/r1", nil), "admin-1", models.RoleAdmin)
	req = withURLParam(req, "id", "r1")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	for _, r := range store.RisksData {
		if r.ID == "r1" {
			t.Error("risk r1 still present after delete")
		}
	}
}
