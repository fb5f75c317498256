// Package tasks implements the task CRUD endpoints. Status transitions
// maintain the completion timestamp and fan out notifications for creation,
// assignment, status changes and deletion.
package tasks

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
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

// Request types
type CreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ProjectID   string     `json:"project_id"`
	AssignedTo  string     `json:"assigned_to"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	AssignedTo  *string    `json:"assigned_to"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

// List returns tasks visible to the requesting user. Supports ?project_id,
// ?assigned_to_me and ?limit query filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	filter := storage.TaskFilter{}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if r.URL.Query().Get("assigned_to_me") == "true" {
		filter.AssignedTo = actor.ID
	}

	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		project, err := h.storage.Projects().GetByID(ctx, projectID)
		if err != nil {
			log.Printf("list tasks error: get project: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if project == nil {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
			return
		}
		visible, err := h.canViewProject(r, actor, project)
		if err != nil {
			log.Printf("list tasks error: visibility: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if !visible {
			jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
			return
		}
		filter.ProjectID = projectID
	}

	// Apply the per-role scope on top of any explicit filters.
	switch policy.ProjectListScope(actor.Role) {
	case policy.ScopeAll:
		// no scoping
	case policy.ScopeOwnedOrManaged:
		if filter.ProjectID == "" {
			ids, err := h.projectIDs(r, h.storage.Projects().ListOwnedOrManaged, actor.ID)
			if err != nil {
				log.Printf("list tasks error: scope: %v", err)
				jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
				return
			}
			filter.ProjectIDs = ids
		}
	case policy.ScopeAssigned:
		filter.AssignedTo = actor.ID
	case policy.ScopeOwned:
		if filter.ProjectID == "" {
			ids, err := h.projectIDs(r, h.storage.Projects().ListOwned, actor.ID)
			if err != nil {
				log.Printf("list tasks error: scope: %v", err)
				jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
				return
			}
			filter.ProjectIDs = ids
		}
	default:
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	// A scoped role with nothing visible gets an empty list, not all tasks.
	if filter.ProjectID == "" && filter.AssignedTo == "" && len(filter.ProjectIDs) == 0 &&
		policy.ProjectListScope(actor.Role) != policy.ScopeAll {
		jsonOK(w, []*models.Task{})
		return
	}

	tasks, err := h.storage.Tasks().List(ctx, filter)
	if err != nil {
		log.Printf("list tasks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	jsonOK(w, tasks)
}

// ListByProject returns tasks for /projects/{id}/tasks.
func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	project, err := h.storage.Projects().GetByID(ctx, projectID)
	if err != nil {
		log.Printf("list project tasks error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	visible, err := h.canViewProject(r, actor, project)
	if err != nil {
		log.Printf("list project tasks error: visibility: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !visible {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	// Team members see only their assigned tasks, here as in the flat
	// listing and on direct fetch.
	filter := storage.TaskFilter{ProjectID: projectID}
	if actor.Role == models.RoleTeamMember {
		filter.AssignedTo = actor.ID
	}

	tasks, err := h.storage.Tasks().List(ctx, filter)
	if err != nil {
		log.Printf("list project tasks error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	jsonOK(w, tasks)
}

// Create creates a task in a project the actor can see. Clients are
// read-only and cannot create tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	if actor.Role == models.RoleClient {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	// The nested route supplies the project in the URL.
	if req.ProjectID == "" {
		req.ProjectID = chi.URLParam(r, "id")
	}

	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
		return
	}
	if req.ProjectID == "" {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "project_id is required")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, req.ProjectID)
	if err != nil {
		log.Printf("create task error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	visible, err := h.canViewProject(r, actor, project)
	if err != nil {
		log.Printf("create task error: visibility: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !visible {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	task := models.NewTask(strings.TrimSpace(req.Title), req.ProjectID, actor.ID)
	task.ID = uuid.New().String()
	task.Description = strings.TrimSpace(req.Description)
	task.StartDate = req.StartDate
	task.DueDate = req.DueDate

	if req.Status != "" {
		status := models.TaskStatus(req.Status)
		if err := ValidateStatus(status); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		task.SetStatus(status)
	}
	if req.Priority != "" {
		priority := models.TaskPriority(req.Priority)
		if err := ValidatePriority(priority); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		task.Priority = priority
	}
	if req.AssignedTo != "" {
		assignee, err := h.storage.Users().GetByID(ctx, req.AssignedTo)
		if err != nil {
			log.Printf("create task error: get assignee: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if assignee == nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "assigned_to must reference an existing user")
			return
		}
		task.AssignedTo = req.AssignedTo
	}

	if err := h.storage.Tasks().Create(ctx, task); err != nil {
		log.Printf("create task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.fanout.Emit(ctx, notify.Event{
		Type:       models.NotifyTaskCreated,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Title:      task.Title,
		ProjectID:  task.ProjectID,
		TaskID:     task.ID,
		OwnerID:    task.CreatorID,
		AssigneeID: task.AssignedTo,
	})

	log.Printf("task created: %s (%s) in project %s", task.Title, task.ID, task.ProjectID)
	jsonCreated(w, task)
}

// GetByID returns a task by ID, if visible to the requesting user.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	task, project, ok := h.fetchTask(w, r)
	if !ok {
		return
	}

	if !policy.CanViewTask(actor, task, project) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	jsonOK(w, task)
}

// Update updates a task. Status changes maintain the completion timestamp;
// assignment and status changes fan out notifications.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	task, project, ok := h.fetchTask(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateTask(actor, task, project, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		if err := ValidateTitle(*req.Title); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartDate != nil {
		task.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		if err := ValidatePriority(priority); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		task.Priority = priority
	}

	statusChanged := false
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		if err := ValidateStatus(status); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		statusChanged = status != task.Status
		task.SetStatus(status)
	}

	assigneeChanged := false
	if req.AssignedTo != nil && *req.AssignedTo != task.AssignedTo {
		if *req.AssignedTo != "" {
			assignee, err := h.storage.Users().GetByID(ctx, *req.AssignedTo)
			if err != nil {
				log.Printf("update task error: get assignee: %v", err)
				jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
				return
			}
			if assignee == nil {
				jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "assigned_to must reference an existing user")
				return
			}
		}
		task.AssignedTo = *req.AssignedTo
		assigneeChanged = true
	}

	task.UpdatedAt = time.Now()

	if err := h.storage.Tasks().Update(ctx, task); err != nil {
		log.Printf("update task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	if assigneeChanged && task.AssignedTo != "" {
		h.fanout.Emit(ctx, notify.Event{
			Type:       models.NotifyTaskAssigned,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Title:      task.Title,
			ProjectID:  task.ProjectID,
			TaskID:     task.ID,
			OwnerID:    task.CreatorID,
			AssigneeID: task.AssignedTo,
			Detail:     task.AssignedTo,
		})
	}
	if statusChanged {
		h.fanout.Emit(ctx, notify.Event{
			Type:       models.NotifyTaskStatus,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			Title:      task.Title,
			ProjectID:  task.ProjectID,
			TaskID:     task.ID,
			OwnerID:    task.CreatorID,
			AssigneeID: task.AssignedTo,
			Detail:     string(task.Status),
		})
	}

	log.Printf("task updated: %s (%s)", task.Title, task.ID)
	jsonOK(w, task)
}

// Delete deletes a task. Team members may delete only tasks they created.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	task, project, ok := h.fetchTask(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateTask(actor, task, project, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Tasks().Delete(ctx, task.ID); err != nil {
		log.Printf("delete task error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.fanout.Emit(ctx, notify.Event{
		Type:       models.NotifyTaskDeleted,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Title:      task.Title,
		ProjectID:  task.ProjectID,
		OwnerID:    task.CreatorID,
		AssigneeID: task.AssignedTo,
	})

	log.Printf("task deleted: %s (%s)", task.Title, task.ID)
	jsonNoContent(w)
}

// fetchTask loads the task from the {id} URL parameter together with its
// owning project, writing the error response itself on failure.
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

// canViewProject resolves project visibility for the actor, fetching the
// assignment fact for team members.
func (h *Handler) canViewProject(r *http.Request, actor policy.Actor, project *models.Project) (bool, error) {
	hasAssigned := false
	if actor.Role == models.RoleTeamMember {
		var err error
		hasAssigned, err = h.storage.Tasks().HasAssignee(r.Context(), project.ID, actor.ID)
		if err != nil {
			return false, err
		}
	}
	return policy.CanViewProject(actor, project, hasAssigned), nil
}

// projectIDs collects project IDs from a scoped listing method.
func (h *Handler) projectIDs(r *http.Request, list func(ctx context.Context, userID string) ([]*models.Project, error), userID string) ([]string, error) {
	projects, err := list(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return ids, nil
}
