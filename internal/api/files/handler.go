// Package files implements attachment upload, download and deletion backed
// by the blob store.
package files

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/blobstore"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/notify"
	"github.com/tidewater-dev/crewdeck/internal/policy"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// MaxUploadSize caps a single upload at 32 MiB.
const MaxUploadSize = 32 << 20

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
	blobs   *blobstore.Store
	fanout  *notify.Fanout
}

func NewHandler(store storage.Storage, blobs *blobstore.Store, fanout *notify.Fanout) *Handler {
	return &Handler{storage: store, blobs: blobs, fanout: fanout}
}

// Upload accepts a multipart form with a "file" part and optional task_id
// and project_id fields scoping the attachment.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	if actor.Role == models.RoleClient {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid multipart form or file too large")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "file part is required")
		return
	}
	defer part.Close()

	taskID := strings.TrimSpace(r.FormValue("task_id"))
	projectID := strings.TrimSpace(r.FormValue("project_id"))

	var projectTitle string
	if taskID != "" {
		task, err := h.storage.Tasks().GetByID(ctx, taskID)
		if err != nil {
			log.Printf("upload error: get task: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if task == nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "task_id must reference an existing task")
			return
		}
		if projectID == "" {
			projectID = task.ProjectID
		}
	}
	if projectID != "" {
		project, err := h.storage.Projects().GetByID(ctx, projectID)
		if err != nil {
			log.Printf("upload error: get project: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if project == nil {
			jsonError(w, http.StatusUnprocessableEntity, errCodeValidationFailed, "project_id must reference an existing project")
			return
		}
		projectTitle = project.Name
	}

	path, err := h.blobs.Save(part, header.Filename)
	if err != nil {
		log.Printf("upload error: save blob: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file := models.NewFile(header.Filename, path, mimeType, header.Size, actor.ID)
	file.ID = uuid.New().String()
	file.TaskID = taskID
	file.ProjectID = projectID

	if err := h.storage.Files().Create(ctx, file); err != nil {
		// Remove the orphaned blob so disk and database stay in sync.
		if rmErr := h.blobs.Delete(path); rmErr != nil {
			log.Printf("upload error: remove orphan blob: %v", rmErr)
		}
		log.Printf("upload error: create record: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	if projectID != "" {
		h.fanout.Emit(ctx, notify.Event{
			Type:      models.NotifyFile,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Title:     file.Name,
			ProjectID: projectID,
			TaskID:    taskID,
			Detail:    projectTitle,
		})
	}

	log.Printf("file uploaded: %s (%s, %d bytes) by %s", file.Name, file.ID, file.Size, actor.ID)
	jsonCreated(w, file)
}

// List returns file records, optionally filtered by ?task_id or ?project_id.
// Unscoped files are visible only to their uploader and admins.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	filter := storage.FileFilter{
		TaskID:    r.URL.Query().Get("task_id"),
		ProjectID: r.URL.Query().Get("project_id"),
	}

	files, err := h.storage.Files().List(ctx, filter)
	if err != nil {
		log.Printf("list files error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	visible := make([]*models.File, 0, len(files))
	for _, f := range files {
		ok, err := h.canViewFile(r, actor, f)
		if err != nil {
			log.Printf("list files error: visibility: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if ok {
			visible = append(visible, f)
		}
	}

	jsonOK(w, visible)
}

// GetByID returns a file record.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	canView, err := h.canViewFile(r, actor, file)
	if err != nil {
		log.Printf("get file error: visibility: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canView {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	jsonOK(w, file)
}

// Download streams the file content with its stored name and MIME type.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())

	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	canView, err := h.canViewFile(r, actor, file)
	if err != nil {
		log.Printf("download error: visibility: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canView {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	blob, err := h.blobs.Open(file.Path)
	if err != nil {
		log.Printf("download error: open blob: %v", err)
		jsonError(w, http.StatusNotFound, errCodeNotFound, "file content not found")
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(file.Name, `"`, "")+`"`)
	if _, err := io.Copy(w, blob); err != nil {
		log.Printf("download error: stream %s: %v", file.ID, err)
	}
}

// Delete removes the record and its blob. Allowed for the uploader, an
// admin, or the owner of the file's project.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(ctx)

	file, ok := h.fetchFile(w, r)
	if !ok {
		return
	}

	projectOwnerID := ""
	if file.ProjectID != "" {
		project, err := h.storage.Projects().GetByID(ctx, file.ProjectID)
		if err != nil {
			log.Printf("delete file error: get project: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if project != nil {
			projectOwnerID = project.OwnerID
		}
	}

	if !policy.CanMutateFile(actor, file, projectOwnerID, policy.ActionDelete) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	if err := h.storage.Files().Delete(ctx, file.ID); err != nil {
		log.Printf("delete file error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if err := h.blobs.Delete(file.Path); err != nil {
		// Record is gone; an orphaned blob is only a cleanup concern.
		log.Printf("delete file warning: remove blob: %v", err)
	}

	log.Printf("file deleted: %s (%s)", file.Name, file.ID)
	jsonNoContent(w)
}

// fetchFile loads a file record from the {id} URL parameter, writing the
// error response itself on failure.
func (h *Handler) fetchFile(w http.ResponseWriter, r *http.Request) (*models.File, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "file id required")
		return nil, false
	}

	file, err := h.storage.Files().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get file error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if file == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "file not found")
		return nil, false
	}
	return file, true
}

// canViewFile resolves file visibility via the owning project, when scoped.
func (h *Handler) canViewFile(r *http.Request, actor policy.Actor, file *models.File) (bool, error) {
	ctx := r.Context()

	var project *models.Project
	projectID := file.ProjectID
	if projectID == "" && file.TaskID != "" {
		task, err := h.storage.Tasks().GetByID(ctx, file.TaskID)
		if err != nil {
			return false, err
		}
		if task != nil {
			projectID = task.ProjectID
		}
	}
	if projectID != "" {
		var err error
		project, err = h.storage.Projects().GetByID(ctx, projectID)
		if err != nil {
			return false, err
		}
	}

	hasAssigned := false
	if project != nil && actor.Role == models.RoleTeamMember {
		var err error
		hasAssigned, err = h.storage.Tasks().HasAssignee(ctx, project.ID, actor.ID)
		if err != nil {
			return false, err
		}
	}

	return policy.CanViewFile(actor, file, project, hasAssigned), nil
}
