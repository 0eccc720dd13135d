package handler

import (
	"log/slog"
	"net/http"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/handler/dto"
	"github.com/gophermarket/gophermarket/internal/service"
)

// ProfileHandler serves /api/profiles/me.
type ProfileHandler struct {
	svc    *service.ProfileService
	logger *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// Get handles GET /api/profiles/me.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.GetMyProfile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(p))
}

// Create handles POST /api/profiles/me.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, input, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	p, err := h.svc.CreateMyProfile(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToProfileResponse(p))
}

// Update handles PUT /api/profiles/me.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, input, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	p, err := h.svc.UpdateMyProfile(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(p))
}

func (h *ProfileHandler) readRequest(w http.ResponseWriter, r *http.Request) (*auth.Identity, service.ProfileInput, bool) {
	id, err := auth.RequireIdentity(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return nil, service.ProfileInput{}, false
	}

	var req dto.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return nil, service.ProfileInput{}, false
	}
	if err := validateRequest(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return nil, service.ProfileInput{}, false
	}

	return id, service.ProfileInput{
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
	}, true
}
