// Package projects implements the project CRUD endpoints with role-scoped
// visibility and budget validation.
package projects

import (
	"context"
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
	"github.com/tidewater-dev/crewdeck/internal/reporting"
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
	errCodeConflict         = "CONFLICT"
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
	Name              string              `json:"name"`
	Description       string              `json:"description"`
	StartDate         *time.Time          `json:"start_date"`
	EndDate           *time.Time          `json:"end_date"`
	Status            string              `json:"status"`
	ManagerID         string              `json:"manager_id"`
	Budget            []models.BudgetItem `json:"budget"`
	ActualExpenditure *float64            `json:"actual_expenditure"`
}

type UpdateRequest struct {
	Name              *string              `json:"name"`
	Description       *string              `json:"description"`
	StartDate         *time.Time           `json:"start_date"`
	EndDate           *time.Time           `json:"end_date"`
	Status            *string              `json:"status"`
	ManagerID         *string              `json:"manager_id"`
	Budget            *[]models.BudgetItem `json:"budget"`
	ActualExpenditure *float64             `json:"actual_expenditure"`
}

// List returns the projects visible to the requesting user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	projects, err := listVisible(r, h.storage, actor)
	if err != nil {
		if err == errForbiddenScope {
			jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
			return
		}
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	if projects == nil {
		projects = []*models.Project{}
	}
	jsonOK(w, projects)
}

// Create creates a new project. The creator becomes the owner. Team members
// cannot create projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	if actor.Role == models.RoleTeamMember {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateBudget(req.Budget); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
		return
	}

	status := models.ProjectPlanning
	if req.Status != "" {
		status = models.ProjectStatus(req.Status)
		if err := ValidateStatus(status); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
	}

	// Check name uniqueness
	existing, err := h.storage.Projects().GetByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		log.Printf("create project error: check name: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "project name already exists")
		return
	}

	project := models.NewProject(strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), actor.ID, status)
	project.ID = uuid.New().String()
	project.StartDate = req.StartDate
	project.EndDate = req.EndDate
	project.ManagerID = req.ManagerID
	project.Budget = req.Budget
	if req.ActualExpenditure != nil {
		if err := reporting.ValidateExpenditure(project, *req.ActualExpenditure); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		project.ActualExpenditure = *req.ActualExpenditure
	}

	if req.ManagerID != "" {
		manager, err := h.storage.Users().GetByID(ctx, req.ManagerID)
		if err != nil {
			log.Printf("create project error: get manager: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if manager == nil || manager.Role != models.RoleProjectManager {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "manager_id must reference a project manager")
			return
		}
	}

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.fanout.Emit(ctx, notify.Event{
		Type:      models.NotifyProjectCreated,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Title:     project.Name,
		ProjectID: project.ID,
		OwnerID:   project.OwnerID,
	})

	log.Printf("project created: %s (%s) by %s", project.Name, project.ID, actor.ID)
	jsonCreated(w, project)
}

// GetByID returns a project by ID, if visible to the requesting user.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("get project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	visible, err := canView(ctx, h.storage, actor, project)
	if err != nil {
		log.Printf("get project error: visibility: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !visible {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	jsonOK(w, project)
}

// Update updates a project. Admins always; project managers only on projects
// they own or manage.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("update project error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if !policy.CanMutateProject(actor, project, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		name := strings.TrimSpace(*req.Name)
		existing, err := h.storage.Projects().GetByName(ctx, name)
		if err != nil {
			log.Printf("update project error: check name: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if existing != nil && existing.ID != id {
			jsonError(w, http.StatusConflict, errCodeConflict, "project name already exists")
			return
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}
	if req.Status != nil {
		status := models.ProjectStatus(*req.Status)
		if err := ValidateStatus(status); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		project.Status = status
	}
	if req.ManagerID != nil {
		if *req.ManagerID != "" {
			manager, err := h.storage.Users().GetByID(ctx, *req.ManagerID)
			if err != nil {
				log.Printf("update project error: get manager: %v", err)
				jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
				return
			}
			if manager == nil || manager.Role != models.RoleProjectManager {
				jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "manager_id must reference a project manager")
				return
			}
		}
		project.ManagerID = *req.ManagerID
	}
	if req.Budget != nil {
		if err := ValidateBudget(*req.Budget); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		project.Budget = *req.Budget
	}

	// Validate the spend against the (possibly updated) allocation.
	spent := project.ActualExpenditure
	if req.ActualExpenditure != nil {
		spent = *req.ActualExpenditure
	}
	if err := reporting.ValidateExpenditure(project, spent); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
		return
	}
	project.ActualExpenditure = spent

	project.UpdatedAt = time.Now()

	if err := h.storage.Projects().Update(ctx, project); err != nil {
		log.Printf("update project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project updated: %s (%s)", project.Name, project.ID)
	jsonOK(w, project)
}

// Delete deletes a project and, via the schema cascade, its tasks.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("delete project error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if !policy.CanMutateProject(actor, project, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Projects().Delete(ctx, id); err != nil {
		log.Printf("delete project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project deleted: %s (%s)", project.Name, project.ID)
	jsonNoContent(w)
}

// errForbiddenScope marks a listing denied by role.
var errForbiddenScope = &forbiddenScopeError{}

type forbiddenScopeError struct{}

func (e *forbiddenScopeError) Error() string { return "listing forbidden for role" }

// listVisible dispatches a project listing on the actor's scope.
func listVisible(r *http.Request, store storage.Storage, actor policy.Actor) ([]*models.Project, error) {
	ctx := r.Context()
	switch policy.ProjectListScope(actor.Role) {
	case policy.ScopeAll:
		return store.Projects().List(ctx)
	case policy.ScopeOwnedOrManaged:
		return store.Projects().ListOwnedOrManaged(ctx, actor.ID)
	case policy.ScopeAssigned:
		return store.Projects().ListWithAssignee(ctx, actor.ID)
	case policy.ScopeOwned:
		return store.Projects().ListOwned(ctx, actor.ID)
	default:
		return nil, errForbiddenScope
	}
}

// canView resolves single-project visibility, fetching the assignment fact
// for team members.
func canView(ctx context.Context, store storage.Storage, actor policy.Actor, project *models.Project) (bool, error) {
	hasAssigned := false
	if actor.Role == models.RoleTeamMember {
		var err error
		hasAssigned, err = store.Tasks().HasAssignee(ctx, project.ID, actor.ID)
		if err != nil {
			return false, err
		}
	}
	return policy.CanViewProject(actor, project, hasAssigned), nil
}
