package comments

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
		{ID: "tm-1", Role: models.RoleTeamMember},
		{ID: "tm-2", Role: models.RoleTeamMember},
	}
	store.ProjectsData = []*models.Project{
		{ID: "p1", Name: "Alpha", OwnerID: "pm-1", Status: models.ProjectInProgress},
	}
	store.TasksData = []*models.Task{
		{ID: "t1", Title: "Build", ProjectID: "p1", CreatorID: "pm-1", AssignedTo: "tm-1", Status: models.TaskTodo},
		{ID: "t2", Title: "Test", ProjectID: "p1", CreatorID: "pm-1", AssignedTo: "tm-2", Status: models.TaskTodo},
	}
	store.CommentsData = []*models.Comment{
		{ID: "c1", TaskID: "t1", UserID: "tm-1", Content: "first"},
		{ID: "c2", TaskID: "t1", UserID: "tm-2", Content: "reply", ParentID: "c1"},
		{ID: "c3", TaskID: "t2", UserID: "tm-2", Content: "elsewhere"},
	}
}

func TestCreate_Success(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, outbox := newHandler(store)

	body := `{"content": "looks good"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/tasks/t1/comments", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	req = withURLParam(req, "id", "t1")
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	for outbox.Pending() > 0 {
		if intent := <-outbox.Drain(); intent.RecipientID == "tm-1" {
			t.Error("comment author must not be notified of their own comment")
		}
	}
}

func TestCreate_ReplyToOtherTaskRejected(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	// c3 belongs to t2, not t1
	body := `{"content": "cross-task reply", "parent_id": "c3"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/tasks/t1/comments", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	req = withURLParam(req, "id", "t1")
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestCreate_ReplyToReplyRejected(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	body := `{"content": "nested", "parent_id": "c2"}`
	req := asActor(httptest.NewRequest("POST", "/api/v1/tasks/t1/comments", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	req = withURLParam(req, "id", "t1")
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestListByTask_NestsReplies(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	req := asActor(httptest.NewRequest("GET", "/api/v1/tasks/t1/comments", nil), "admin-1", models.RoleAdmin)
	req = withURLParam(req, "id", "t1")
	rec := httptest.NewRecorder()
	handler.ListByTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data []*CommentThread `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("threads = %d, want 1", len(resp.Data))
	}
	if len(resp.Data[0].Replies) != 1 || resp.Data[0].Replies[0].ID != "c2" {
		t.Errorf("expected c2 nested under c1, got %+v", resp.Data[0].Replies)
	}
}

func TestUpdate_OnlyAuthorAdminOrProjectOwner(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	body := `{"content": "edited"}`

	// a different team member cannot edit
	req := asActor(httptest.NewRequest("PUT", "/api/v1/comments/c1", strings.NewReader(body)), "tm-2", models.RoleTeamMember)
	req = withURLParam(req, "id", "c1")
	rec := httptest.NewRecorder()
	handler.Update(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// the author can
	req = asActor(httptest.NewRequest("PUT", "/api/v1/comments/c1", strings.NewReader(body)), "tm-1", models.RoleTeamMember)
	req = withURLParam(req, "id", "c1")
	rec = httptest.NewRecorder()
	handler.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("author: status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	// the project owner can
	req = asActor(httptest.NewRequest("PUT", "/api/v1/comments/c1", strings.NewReader(body)), "pm-1", models.RoleProjectManager)
	req = withURLParam(req, "id", "c1")
	rec = httptest.NewRecorder()
	handler.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("project owner: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDelete_AuthorCanDelete(t *testing.T) {
	store := storagetest.New()
	seed(store)
	handler, _ := newHandler(store)

	req := asActor(httptest.NewRequest("DELETE", "/api/v1/comments/c3", nil), "tm-2", models.RoleTeamMember)
	req = withURLParam(req, "id", "c3")
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
