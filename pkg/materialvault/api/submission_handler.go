// Package api exposes the materialvault service over HTTP using chi.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/materialvault/materialvault/pkg/materialvault"
)

// SubmissionHandler handles HTTP requests for the submission review queue
type SubmissionHandler struct {
	service materialvault.Service
	logger  *slog.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(service materialvault.Service, logger *slog.Logger) *SubmissionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{service: service, logger: logger}
}

// Routes returns the routes for submissions
func (h *SubmissionHandler) Routes(admin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSubmission)
	r.Get("/", h.ListSubmissions)
	r.Get("/{key}", h.GetSubmission)

	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post("/{key}/approve", h.Approve)
		r.Post("/{key}/reject", h.Reject)
		r.Post("/{key}/reopen", h.Reopen)
		r.Put("/{key}/note", h.SetEditorNote)
		r.Put("/{key}/reason", h.SetRejectReason)
	})

	return r
}

// CreateSubmissionRequest is the request body for creating a submission
type CreateSubmissionRequest struct {
	Payload     json.RawMessage `json:"payload"`
	SubmittedBy string          `json:"submitted_by"`
}

// SubmissionResponse is the response body for a submission
type SubmissionResponse struct {
	ID                 int64           `json:"id"`
	UUID               string          `json:"uuid"`
	Status             string          `json:"status"`
	NameOfficial       string          `json:"name_official"`
	Payload            json.RawMessage `json:"payload,omitempty"`
	ApprovedMaterialID *int64          `json:"approved_material_id,omitempty"`
	EditorNote         string          `json:"editor_note,omitempty"`
	RejectReason       string          `json:"reject_reason,omitempty"`
	SubmittedBy        string          `json:"submitted_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func submissionResponse(s *materialvault.MaterialSubmission, includePayload bool) SubmissionResponse {
	resp := SubmissionResponse{
		ID:                 s.ID,
		UUID:               s.UUID,
		Status:             string(s.Status),
		NameOfficial:       s.NameOfficial,
		ApprovedMaterialID: s.ApprovedMaterialID,
		EditorNote:         s.EditorNote,
		RejectReason:       s.RejectReason,
		SubmittedBy:        s.SubmittedBy,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if includePayload {
		resp.Payload = json.RawMessage(s.PayloadJSON)
	}
	return resp
}

// CreateSubmission accepts a proposed material into the pending queue
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.CreateSubmission(r.Context(), materialvault.CreateSubmissionRequest{
		Payload:     req.Payload,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		h.logger.Error("Failed to create submission", "error", err)
		if errors.Is(err, materialvault.ErrInvalidPayload) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Submission created", "submission_id", sub.ID, "name_official", sub.NameOfficial)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, submissionResponse(sub, true))
}

// GetSubmission retrieves a submission by id or UUID
func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	sub, err := h.service.GetSubmission(r.Context(), key)
	if err != nil {
		if errors.Is(err, materialvault.ErrSubmissionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get submission", "submission_key", key, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, submissionResponse(sub, true))
}

// ListSubmissions lists submissions, optionally filtered by status
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	req := materialvault.ListSubmissionsRequest{
		Status: materialvault.SubmissionStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	subs, err := h.service.ListSubmissions(r.Context(), req)
	if err != nil {
		if errors.Is(err, materialvault.ErrInvalidSubmissionStatus) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to list submissions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, submissionResponse(s, false))
	}
	render.JSON(w, r, resp)
}

// ApproveSubmissionRequest is the request body for approving a submission
type ApproveSubmissionRequest struct {
	EditorNote     string `json:"editor_note,omitempty"`
	UpdateExisting bool   `json:"update_existing,omitempty"`
}

// Approve runs the approval pipeline for a pending submission.
// The result record is always rendered; HTTP status tracks its error code.
func (h *SubmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req ApproveSubmissionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	result := h.service.Approve(r.Context(), materialvault.ApproveRequest{
		SubmissionKey:  key,
		EditorNote:     req.EditorNote,
		UpdateExisting: req.UpdateExisting,
	})

	if !result.OK {
		h.logger.Error("Approval failed",
			"submission_key", key,
			"error_code", result.ErrorCode,
			"error", result.Error)
		render.Status(r, statusForCode(result.ErrorCode))
		render.JSON(w, r, result)
		return
	}

	h.logger.Info("Submission approved",
		"submission_key", key,
		"material_id", result.MaterialID,
		"action", result.Action)
	render.JSON(w, r, result)
}

// RejectSubmissionRequest is the request body for rejecting a submission
type RejectSubmissionRequest struct {
	RejectReason string `json:"reject_reason,omitempty"`
}

// Reject moves a pending submission to rejected
func (h *SubmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req RejectSubmissionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	result := h.service.Reject(r.Context(), materialvault.RejectRequest{
		SubmissionKey: key,
		RejectReason:  req.RejectReason,
	})

	if !result.OK {
		render.Status(r, statusForCode(result.ErrorCode))
		render.JSON(w, r, result)
		return
	}

	h.logger.Info("Submission rejected", "submission_key", key)
	render.JSON(w, r, result)
}

// Reopen flips a rejected submission back to pending
func (h *SubmissionHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	result := h.service.Reopen(r.Context(), materialvault.ReopenRequest{SubmissionKey: key})

	if !result.OK {
		render.Status(r, statusForCode(result.ErrorCode))
		render.JSON(w, r, result)
		return
	}

	h.logger.Info("Submission reopened", "submission_key", key)
	render.JSON(w, r, result)
}

// NoteRequest is the request body for the editor note and reject reason
// endpoints
type NoteRequest struct {
	Value string `json:"value"`
}

// SetEditorNote stores a freeform reviewer note on a submission
func (h *SubmissionHandler) SetEditorNote(w http.ResponseWriter, r *http.Request) {
	h.setSubmissionText(w, r, h.service.SetEditorNote)
}

// SetRejectReason stores the reject reason without changing status
func (h *SubmissionHandler) SetRejectReason(w http.ResponseWriter, r *http.Request) {
	h.setSubmissionText(w, r, h.service.SetRejectReason)
}

func (h *SubmissionHandler) setSubmissionText(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, key, value string) error) {
	key := chi.URLParam(r, "key")

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := set(r.Context(), key, req.Value); err != nil {
		if errors.Is(err, materialvault.ErrSubmissionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to update submission", "submission_key", key, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
