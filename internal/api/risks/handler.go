// Package risks implements project risk tracking endpoints.
package risks

import (
	"encoding/json"
	"errors"
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
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Mitigation  string `json:"mitigation"`
}

type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
	Mitigation  *string `json:"mitigation"`
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// List returns risks for projects visible to the requesting user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	switch policy.ProjectListScope(actor.Role) {
	case policy.ScopeAll:
		risks, err := h.storage.Risks().List(ctx)
		if err != nil {
			log.Printf("list risks error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if risks == nil {
			risks = []*models.Risk{}
		}
		jsonOK(w, risks)
	case policy.ScopeOwnedOrManaged, policy.ScopeAssigned, policy.ScopeOwned:
		projects, err := h.visibleProjects(r, actor)
		if err != nil {
			log.Printf("list risks error: scope: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		ids := make([]string, len(projects))
		for i, p := range projects {
			ids[i] = p.ID
		}
		if len(ids) == 0 {
			jsonOK(w, []*models.Risk{})
			return
		}
		risks, err := h.storage.Risks().ListByProjects(ctx, ids)
		if err != nil {
			log.Printf("list risks error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if risks == nil {
			risks = []*models.Risk{}
		}
		jsonOK(w, risks)
	default:
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
	}
}

// Create reports a new risk on a project the actor manages (or any project
// for admins).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := validateTitle(req.Title); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
		return
	}
	if req.ProjectID == "" {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "project_id is required")
		return
	}

	severity := models.RiskMedium
	if req.Severity != "" {
		severity = models.RiskSeverity(req.Severity)
		if !models.ValidRiskSeverity(severity) {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "severity must be low, medium, high, or critical")
			return
		}
	}

	project, err := h.storage.Projects().GetByID(ctx, req.ProjectID)
	if err != nil {
		log.Printf("create risk error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if !policy.CanMutateRisk(actor, project, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	risk := models.NewRisk(req.ProjectID, strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), severity)
	risk.ID = uuid.New().String()
	risk.Mitigation = strings.TrimSpace(req.Mitigation)

	if err := h.storage.Risks().Create(ctx, risk); err != nil {
		log.Printf("create risk error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.fanout.Emit(ctx, notify.Event{
		Type:      models.NotifyRiskCreated,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Title:     risk.Title,
		ProjectID: project.ID,
		OwnerID:   project.OwnerID,
	})

	log.Printf("risk created: %s (%s) on project %s", risk.Title, risk.ID, project.ID)
	jsonCreated(w, risk)
}

// GetByID returns a risk, if its project is visible to the requesting user.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	risk, project, ok := h.fetchRisk(w, r)
	if !ok {
		return
	}

	hasAssigned := false
	if actor.Role == models.RoleTeamMember {
		var err error
		hasAssigned, err = h.storage.Tasks().HasAssignee(r.Context(), project.ID, actor.ID)
		if err != nil {
			log.Printf("get risk error: visibility: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
	}
	if !policy.CanViewRisk(actor, project, hasAssigned) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	jsonOK(w, risk)
}

// Update edits a risk. Transitioning the status to mitigated fans out a
// mitigation notification.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	risk, project, ok := h.fetchRisk(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateRisk(actor, project, policy.ActionUpdate) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, err.Error())
			return
		}
		risk.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		risk.Description = strings.TrimSpace(*req.Description)
	}
	if req.Mitigation != nil {
		risk.Mitigation = strings.TrimSpace(*req.Mitigation)
	}
	if req.Severity != nil {
		severity := models.RiskSeverity(*req.Severity)
		if !models.ValidRiskSeverity(severity) {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "severity must be low, medium, high, or critical")
			return
		}
		risk.Severity = severity
	}

	mitigated := false
	if req.Status != nil {
		status := models.RiskStatus(*req.Status)
		if !models.ValidRiskStatus(status) {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "status must be active, in-progress, or mitigated")
			return
		}
		mitigated = status == models.RiskMitigated && risk.Status != models.RiskMitigated
		risk.Status = status
	}

	risk.UpdatedAt = time.Now()

	if err := h.storage.Risks().Update(ctx, risk); err != nil {
		log.Printf("update risk error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	if mitigated {
		h.fanout.Emit(ctx, notify.Event{
			Type:      models.NotifyRiskMitigated,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Title:     risk.Title,
			ProjectID: project.ID,
			OwnerID:   project.OwnerID,
		})
	}

	log.Printf("risk updated: %s (%s)", risk.Title, risk.ID)
	jsonOK(w, risk)
}

// Delete removes a risk.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	risk, project, ok := h.fetchRisk(w, r)
	if !ok {
		return
	}

	if !policy.CanMutateRisk(actor, project, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Risks().Delete(ctx, risk.ID); err != nil {
		log.Printf("delete risk error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("risk deleted: %s (%s)", risk.Title, risk.ID)
	jsonNoContent(w)
}

// fetchRisk loads a risk from the {id} URL parameter with its project,
// writing the error response itself on failure.
func (h *Handler) fetchRisk(w http.ResponseWriter, r *http.Request) (*models.Risk, *models.Project, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "risk id required")
		return nil, nil, false
	}

	ctx := r.Context()
	risk, err := h.storage.Risks().GetByID(ctx, id)
	if err != nil {
		log.Printf("get risk error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, nil, false
	}
	if risk == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "risk not found")
		return nil, nil, false
	}

	project, err := h.storage.Projects().GetByID(ctx, risk.ProjectID)
	if err != nil {
		log.Printf("get risk error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, nil, false
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return nil, nil, false
	}

	return risk, project, true
}

// visibleProjects lists the projects in the actor's scope.
func (h *Handler) visibleProjects(r *http.Request, actor policy.Actor) ([]*models.Project, error) {
	ctx := r.Context()
	switch policy.ProjectListScope(actor.Role) {
	case policy.ScopeAll:
		return h.storage.Projects().List(ctx)
	case policy.ScopeOwnedOrManaged:
		return h.storage.Projects().ListOwnedOrManaged(ctx, actor.ID)
	case policy.ScopeAssigned:
		return h.storage.Projects().ListWithAssignee(ctx, actor.ID)
	case policy.ScopeOwned:
		return h.storage.Projects().ListOwned(ctx, actor.ID)
	default:
		return nil, nil
	}
}
