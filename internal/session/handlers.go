package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/patungan/internal/bill"
	"github.com/noah-isme/patungan/internal/common"
	"github.com/noah-isme/patungan/internal/obs"
)

// Handler wires the session service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	Bill bill.Bill `json:"bill"`
}

type joinRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type claimsRequest struct {
	SelectedItems []string `json:"selectedItems"`
}

// Create opens a new session around a reviewed bill.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return
	}
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	id, err := h.Svc.Create(r.Context(), payload.Bill)
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.IncSessionCreated()
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"sessionId": id},
	})
}

// Get returns the current session view with derived participant breakdowns.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return
	}
	view, err := h.Svc.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Join adds a participant with the supplied display name.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return
	}
	var payload joinRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "name is required and must be at most 64 characters", nil)
		return
	}
	participantID, err := h.Svc.AddParticipant(r.Context(), chi.URLParam(r, "id"), payload.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.IncParticipantJoined()
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"participantId": participantID},
	})
}

// SetClaims fully replaces one participant's claimed items.
func (h *Handler) SetClaims(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return
	}
	var payload claimsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if payload.SelectedItems == nil {
		payload.SelectedItems = []string{}
	}
	err := h.Svc.SetClaims(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantId"), payload.SelectedItems)
	if err != nil {
		obs.IncClaimsUpdate("error")
		h.writeError(w, err)
		return
	}
	obs.IncClaimsUpdate("ok")
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"success": true},
	})
}

// ExportCSV streams the per-participant breakdown as a CSV attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return
	}
	out, err := h.Svc.ExportCSV(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bill-split.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found or expired", nil)
	case errors.Is(err, ErrUnknownItem):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_ITEM", "claim references an item that is not on the bill", nil)
	case errors.Is(err, bill.ErrInvalidBill):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_BILL", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process session request", nil)
	}
}
