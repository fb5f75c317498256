// Package comments implements task comment endpoints, including one-level
// threaded replies.
package comments

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/notify"
	"github.com/tidewater-dev/crewdeck/internal/policy"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// Response helpers (local to avoid import cycle with api package)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeForbidden        = "FORBIDDEN"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

type Handler struct {
	storage storage.Storage
	fanout  *notify.Fanout
}

func NewHandler(store storage.Storage, fanout *notify.Fanout) *Handler {
	return &Handler{storage: store, fanout: fanout}
}

type CreateRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

type UpdateRequest struct {
	Content string `json:"content"`
}

// CommentThread is a comment with its direct replies nested.
type CommentThread struct {
	*models.Comment
	Replies []*models.Comment `json:"replies"`
}

// ListByTask returns the comments on a task with replies nested one level
// under their parents.
func (h *Handler) ListByTask(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	task, project, ok := h.fetchTask(w, r)
	if !ok {
		return
	}
	if !h.canViewTask(w, r, actor, task, project) {
		return
	}

	comments, err := h.storage.Comments().ListByTask(r.Context(), task.ID)
	if err != nil {
		log.Printf("list comments error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	threads := make([]*CommentThread, 0)
	byID := map[string]*CommentThread{}
	for _, c := range comments {
		if !c.IsReply() {
			thread := &CommentThread{Comment: c, Replies: []*models.Comment{}}
			byID[c.ID] = thread
			threads = append(threads, thread)
		}
	}
	for _, c := range comments {
		if c.IsReply() {
			if parent, ok := byID[c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
			}
		}
	}

	jsonOK(w, threads)
}

// Create posts a comment (or a reply) on a task.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	task, project, ok := h.fetchTask(w, r)
	if !ok {
		return
	}
	if !h.canViewTask(w, r, actor, task, project) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "content is required")
		return
	}

	if req.ParentID != "" {
		parent, err := h.storage.Comments().GetByID(ctx, req.ParentID)
		if err != nil {
			log.Printf("create comment error: get parent: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if parent == nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "parent comment not found")
			return
		}
		if parent.TaskID != task.ID {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "parent comment belongs to a different task")
			return
		}
		if parent.IsReply() {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "replies are one level deep")
			return
		}
	}

	comment := models.NewComment(task.ID, actor.ID, content)
	comment.ID = uuid.New().String()
	comment.ParentID = req.ParentID

	if err := h.storage.Comments().Create(ctx, comment); err != nil {
		log.Printf("create comment error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.fanout.Emit(ctx, notify.Event{
		Type:       models.NotifyComment,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Title:      task.Title,
		ProjectID:  task.ProjectID,
		TaskID:     task.ID,
		OwnerID:    task.CreatorID,
		AssigneeID: task.AssignedTo,
	})

	log.Printf("comment created: %s on task %s", comment.ID, task.ID)
	jsonCreated(w, comment)
}

// Update edits a comment's content. Allowed for the author, an admin, or
// the owner of the task's project.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	comment, projectOwnerID, ok := h.fetchComment(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateComment(actor, comment, projectOwnerID, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "content is required")
		return
	}

	comment.Content = content
	comment.UpdatedAt = time.Now()

	if err := h.storage.Comments().Update(ctx, comment); err != nil {
		log.Printf("update comment error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, comment)
}

// Delete removes a comment (and, via the schema cascade, its replies).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	comment, projectOwnerID, ok := h.fetchComment(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateComment(actor, comment, projectOwnerID, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Comments().Delete(ctx, comment.ID); err != nil {
		log.Printf("delete comment error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("comment deleted: %s", comment.ID)
	jsonNoContent(w)
}

// fetchTask loads the task referenced by the {id} URL parameter with its
// project, writing the error response itself on failure.
func (h *Handler) fetchTask(w http.ResponseWriter, r *http.Request) (*models.Task, *models.Project, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "task id required")
		return nil, nil, false
	}

	ctx := r.Context()
	task, err := h.storage.Tasks().GetByID(ctx, id)
	if err != nil {
		log.Printf("get task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, nil, false
	}
	if task == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "task not found")
		return nil, nil, false
	}

	project, err := h.storage.Projects().GetByID(ctx, task.ProjectID)
	if err != nil {
		log.Printf("get task error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, nil, false
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return nil, nil, false
	}

	return task, project, true
}

// fetchComment loads a comment from the {id} URL parameter together with its
// task's project owner, writing the error response itself on failure.
func (h *Handler) fetchComment(w http.ResponseWriter, r *http.Request) (*models.Comment, string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "comment id required")
		return nil, "", false
	}

	ctx := r.Context()
	comment, err := h.storage.Comments().GetByID(ctx, id)
	if err != nil {
		log.Printf("get comment error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, "", false
	}
	if comment == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "comment not found")
		return nil, "", false
	}

	var projectOwnerID string
	task, err := h.storage.Tasks().GetByID(ctx, comment.TaskID)
	if err != nil {
		log.Printf("get comment error: get task: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, "", false
	}
	if task != nil {
		project, err := h.storage.Projects().GetByID(ctx, task.ProjectID)
		if err != nil {
			log.Printf("get comment error: get project: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return nil, "", false
		}
		if project != nil {
			projectOwnerID = project.OwnerID
		}
	}

	return comment, projectOwnerID, true
}

// canViewTask checks task visibility, writing the 403 itself on denial.
func (h *Handler) canViewTask(w http.ResponseWriter, r *http.Request, actor policy.Actor, task *models.Task, project *models.Project) bool {
	// Team members may discuss any task in a project they work in, not
	// only their own.
	if actor.Role == models.RoleTeamMember {
		hasAssigned, err := h.storage.Tasks().HasAssignee(r.Context(), project.ID, actor.ID)
		if err != nil {
			log.Printf("comment visibility error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return false
		}
		if !policy.CanViewProject(actor, project, hasAssigned) {
			jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
			return false
		}
		return true
	}

	if !policy.CanViewTask(actor, task, project) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return false
	}
	return true
}
