// Package reports exposes read-only project analytics: weighted progress,
// budget summaries, risk metrics and completion trends.
package reports

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/models"
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
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeForbidden     = "FORBIDDEN"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
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

type Handler struct {
	storage storage.Storage
}

func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// ProjectReport is the per-project summary row of the report listing.
type ProjectReport struct {
	Project  *models.Project         `json:"project"`
	Tasks    reporting.TaskCounts    `json:"tasks"`
	Progress float64                 `json:"progress"`
	Budget   reporting.BudgetSummary `json:"budget"`
}

// ProjectData is the detail view for a single project.
type ProjectData struct {
	ProjectReport
	Risks reporting.RiskMetrics `json:"risks"`
}

// ListProjects returns a summary report for every project in the actor's
// visibility scope.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	projects, err := h.scopedProjects(r, actor)
	if err != nil {
		log.Printf("project report error: scope: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	reports := make([]*ProjectReport, 0, len(projects))
	for _, p := range projects {
		tasks, err := h.storage.Tasks().ListByProject(ctx, p.ID)
		if err != nil {
			log.Printf("project report error: tasks for %s: %v", p.ID, err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		reports = append(reports, &ProjectReport{
			Project:  p,
			Tasks:    reporting.CountTasks(tasks),
			Progress: reporting.Progress(tasks),
			Budget:   reporting.Budget(p),
		})
	}

	jsonOK(w, reports)
}

// ProjectData returns the full analytics view for one project.
func (h *Handler) ProjectData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	project, ok := h.fetchVisibleProject(w, r)
	if !ok {
		return
	}

	tasks, err := h.storage.Tasks().ListByProject(ctx, project.ID)
	if err != nil {
		log.Printf("project data error: tasks: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	risks, err := h.storage.Risks().ListByProject(ctx, project.ID)
	if err != nil {
		log.Printf("project data error: risks: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, &ProjectData{
		ProjectReport: ProjectReport{
			Project:  project,
			Tasks:    reporting.CountTasks(tasks),
			Progress: reporting.Progress(tasks),
			Budget:   reporting.Budget(project),
		},
		Risks: reporting.Risks(risks),
	})
}

// RiskMetrics returns the aggregated risk view for one project.
func (h *Handler) RiskMetrics(w http.ResponseWriter, r *http.Request) {
	project, ok := h.fetchVisibleProject(w, r)
	if !ok {
		return
	}

	risks, err := h.storage.Risks().ListByProject(r.Context(), project.ID)
	if err != nil {
		log.Printf("risk metrics error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, reporting.Risks(risks))
}

// TaskTrends returns per-day completed-task counts for one project.
func (h *Handler) TaskTrends(w http.ResponseWriter, r *http.Request) {
	project, ok := h.fetchVisibleProject(w, r)
	if !ok {
		return
	}

	trend, err := h.storage.Tasks().CompletionTrend(r.Context(), project.ID)
	if err != nil {
		log.Printf("task trends error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if trend == nil {
		trend = []storage.TrendPoint{}
	}
	jsonOK(w, trend)
}

// fetchVisibleProject loads the project from the {id} URL parameter and
// checks visibility, writing the error response itself on failure.
func (h *Handler) fetchVisibleProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	actor := middleware.GetActor(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return nil, false
	}

	ctx := r.Context()
	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil {
		log.Printf("report error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return nil, false
	}

	hasAssigned := false
	if actor.Role == models.RoleTeamMember {
		hasAssigned, err = h.storage.Tasks().HasAssignee(ctx, project.ID, actor.ID)
		if err != nil {
			log.Printf("report error: visibility: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return nil, false
		}
	}
	if !policy.CanViewProject(actor, project, hasAssigned) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return nil, false
	}

	return project, true
}

// scopedProjects lists the projects in the actor's visibility scope.
func (h *Handler) scopedProjects(r *http.Request, actor policy.Actor) ([]*models.Project, error) {
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
