package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
	"github.com/hazama-dev/mediaforge/internal/usecase"
)

// Request/Response types

type GenerateThumbnailsRequest struct {
	PositionPercentage int  `json:"position_percentage,omitempty"`
	ForceRegenerate    bool `json:"force_regenerate,omitempty"`
}

type GenerateTranscodeRequest struct {
	TargetFormat    string `json:"target_format"`
	ForceRegenerate bool   `json:"force_regenerate,omitempty"`
}

type ArtifactResponse struct {
	RelativePath string `json:"relative_path"`
	ByteSize     int64  `json:"byte_size"`
}

type OutcomeResponse struct {
	State       string             `json:"state"`
	Reason      string             `json:"reason,omitempty"`
	FailureKind string             `json:"failure_kind,omitempty"`
	Artifacts   []ArtifactResponse `json:"artifacts,omitempty"`
	SizeErrors  map[string]string  `json:"size_errors,omitempty"`
}

type BulkRunRequest struct {
	MediaTypePrefix    string `json:"media_type_prefix,omitempty"`
	ItemID             string `json:"item_id,omitempty"`
	Limit              int    `json:"limit,omitempty"`
	PositionPercentage int    `json:"position_percentage,omitempty"`
	ForceRegenerate    bool   `json:"force_regenerate,omitempty"`
}

type BulkRunResponse struct {
	RunID  string           `json:"run_id"`
	Counts model.BulkCounts `json:"counts"`
}

type ToolsResponse struct {
	Available bool `json:"available"`
}

// Canceller raises the out-of-band cancellation flag for a bulk run.
type Canceller interface {
	Cancel(ctx context.Context, runID string) error
}

// DerivativeHandler handles derivative-generation HTTP requests.
type DerivativeHandler struct {
	svc       *usecase.DerivativeService
	canceller Canceller
}

// NewDerivativeHandler creates a new DerivativeHandler. canceller may be
// nil when no out-of-band cancellation channel exists; the cancel
// endpoint then reports the feature unavailable.
func NewDerivativeHandler(svc *usecase.DerivativeService, canceller Canceller) *DerivativeHandler {
	return &DerivativeHandler{svc: svc, canceller: canceller}
}

// GenerateThumbnails handles POST /v1/media/{id}/thumbnails
func (h *DerivativeHandler) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	mediaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_media_id", "Media ID must be a valid UUID")
		return
	}

	var req GenerateThumbnailsRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	dreq := model.DerivativeRequest{
		Kind:               model.KindThumbnail,
		PositionPercentage: req.PositionPercentage,
		ForceRegenerate:    req.ForceRegenerate,
	}
	if err := dreq.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	outcome, err := h.svc.Dispatch(r.Context(), mediaID, dreq)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// GenerateTranscode handles POST /v1/media/{id}/transcode
func (h *DerivativeHandler) GenerateTranscode(w http.ResponseWriter, r *http.Request) {
	mediaID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_media_id", "Media ID must be a valid UUID")
		return
	}

	var req GenerateTranscodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.TargetFormat == "" {
		Error(w, http.StatusBadRequest, "invalid_target_format", "Target format is required")
		return
	}

	dreq := model.DerivativeRequest{
		Kind:            model.KindTranscode,
		TargetFormat:    req.TargetFormat,
		ForceRegenerate: req.ForceRegenerate,
	}
	if err := dreq.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	outcome, err := h.svc.Dispatch(r.Context(), mediaID, dreq)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeOutcome(w, outcome)
}

// BulkThumbnails handles POST /v1/derivatives/bulk
func (h *DerivativeHandler) BulkThumbnails(w http.ResponseWriter, r *http.Request) {
	var req BulkRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	criteria := repository.Criteria{
		MediaTypePrefix: req.MediaTypePrefix,
		Limit:           req.Limit,
	}
	if req.ItemID != "" {
		itemID, err := uuid.Parse(req.ItemID)
		if err != nil {
			Error(w, http.StatusBadRequest, "invalid_item_id", "Item ID must be a valid UUID")
			return
		}
		criteria.ItemID = &itemID
	}

	dreq := model.DerivativeRequest{
		Kind:               model.KindThumbnail,
		PositionPercentage: req.PositionPercentage,
		ForceRegenerate:    req.ForceRegenerate,
	}
	if err := dreq.Validate(); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	runID := uuid.NewString()
	counts, err := h.svc.GenerateBulk(r.Context(), criteria, dreq, runID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, BulkRunResponse{
		RunID:  runID,
		Counts: counts,
	})
}

// CancelBulk handles POST /v1/derivatives/bulk/{runID}/cancel
func (h *DerivativeHandler) CancelBulk(w http.ResponseWriter, r *http.Request) {
	if h.canceller == nil {
		Error(w, http.StatusNotImplemented, "cancel_unavailable", "Bulk cancellation is not configured")
		return
	}

	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		Error(w, http.StatusBadRequest, "invalid_run_id", "Run ID must be a valid UUID")
		return
	}

	if err := h.canceller.Cancel(r.Context(), runID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Tools handles GET /v1/tools
func (h *DerivativeHandler) Tools(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, ToolsResponse{Available: h.svc.ToolsAvailable()})
}

func (h *DerivativeHandler) writeOutcome(w http.ResponseWriter, outcome *model.Outcome) {
	// A nil outcome means the work was queued for the worker.
	if outcome == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp := OutcomeResponse{
		State:       outcome.State.String(),
		Reason:      outcome.Reason,
		FailureKind: outcome.FailureKind,
		SizeErrors:  outcome.SizeErrors,
	}
	for _, a := range outcome.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			RelativePath: a.RelativePath,
			ByteSize:     a.ByteSize,
		})
	}

	status := http.StatusOK
	if outcome.State == model.StateFailed {
		status = http.StatusUnprocessableEntity
	}
	JSON(w, status, resp)
}

func (h *DerivativeHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrMediaNotFound):
		Error(w, http.StatusNotFound, "media_not_found", "Media not found")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
