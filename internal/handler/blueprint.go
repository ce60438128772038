package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	models "coipond/internal/domain/models/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/httputil"
	"coipond/internal/session"
)

// BlueprintHandler handles blueprint HTTP requests
type BlueprintHandler struct {
	blueprints bpSvc.BlueprintService
	content    bpSvc.ContentUpdater
	deletion   bpSvc.DeletionCoordinator
	logger     *slog.Logger
}

// NewBlueprintHandler creates a new blueprint handler
func NewBlueprintHandler(
	blueprints bpSvc.BlueprintService,
	content bpSvc.ContentUpdater,
	deletion bpSvc.DeletionCoordinator,
	logger *slog.Logger,
) *BlueprintHandler {
	return &BlueprintHandler{
		blueprints: blueprints,
		content:    content,
		deletion:   deletion,
		logger:     logger,
	}
}

// CreateBlueprint publishes a blueprint
// POST /api/blueprints
// Accepts JSON, or multipart/form-data with fields name, description, blueprint and an optional screenshot file
func (h *BlueprintHandler) CreateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req bpSvc.CreateBlueprintRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := parseMultipart(w, r); err != nil {
			handleError(w, err)
			return
		}
		req.Name = r.FormValue("name")
		req.Description = r.FormValue("description")
		req.BlueprintText = r.FormValue("blueprint")

		upload, err := readUpload(r, "screenshot")
		if err != nil {
			handleError(w, err)
			return
		}
		req.Screenshot = upload
	} else if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.OwnerID = httputil.GetUserID(r)
	req.OwnerName = httputil.GetDisplayName(r)

	bp, err := h.blueprints.CreateBlueprint(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Blueprint, error) {
			return h.blueprints.GetBlueprint(r.Context(), id)
		})
		return
	}

	w.Header().Set("Location", "/api/blueprints/"+bp.ID)
	httputil.RespondJSON(w, http.StatusCreated, bp)
}

// GetBlueprint returns a blueprint with its version history and folder tree.
// Counts one view.
// GET /api/blueprints/{id}
func (h *BlueprintHandler) GetBlueprint(w http.ResponseWriter, r *http.Request) {
	detail, err := h.blueprints.GetBlueprintDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, detail)
}

// UpdateMetadata changes name and/or description
// PATCH /api/blueprints/{id}
func (h *BlueprintHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req bpSvc.UpdateMetadataRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	bp, err := h.blueprints.UpdateMetadata(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, bp)
}

// UpdateContent replaces the blueprint string and records the previous one in the history
// PUT /api/blueprints/{id}/content
// Returns 200 with the record and history; "noop" is true when the text was unchanged
func (h *BlueprintHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req bpSvc.UpdateContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	result, err := h.content.UpdateContent(r.Context(), httputil.GetUserID(r), id, req.BlueprintText)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ReplaceScreenshot swaps the screenshot image
// PUT /api/blueprints/{id}/screenshot (multipart field "screenshot")
func (h *BlueprintHandler) ReplaceScreenshot(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		handleError(w, err)
		return
	}
	upload, err := readUpload(r, "screenshot")
	if err != nil {
		handleError(w, err)
		return
	}
	if upload == nil {
		httputil.RespondError(w, http.StatusBadRequest, "screenshot is required")
		return
	}

	bp, err := h.blueprints.ReplaceScreenshot(r.Context(), httputil.GetUserID(r), r.PathValue("id"), upload)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, bp)
}

// RecordDownload counts one download
// POST /api/blueprints/{id}/downloads
func (h *BlueprintHandler) RecordDownload(w http.ResponseWriter, r *http.Request) {
	if err := h.blueprints.RecordDownload(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewContent reports the kind, game version and folder tree of a blueprint string without saving it
// POST /api/blueprints/preview
func (h *BlueprintHandler) PreviewContent(w http.ResponseWriter, r *http.Request) {
	var req bpSvc.UpdateContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := h.blueprints.PreviewContent(r.Context(), req.BlueprintText)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, preview)
}

// DeleteBlueprint removes a blueprint, its screenshot and its history
// DELETE /api/blueprints/{id}
func (h *BlueprintHandler) DeleteBlueprint(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.deletion.DeleteBlueprint(r.Context(), sess, httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint
func (h *BlueprintHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
