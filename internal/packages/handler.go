package packages

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/platform/httpx"
)

// Handler exposes package endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    access.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers package routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type packagePayload struct {
	TenantID        string `json:"tenant_id" validate:"required,uuid4"`
	Name            string `json:"name" validate:"required,min=1,max=120"`
	Description     string `json:"description" validate:"max=500"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1"`
	DownloadKbps    int    `json:"download_kbps" validate:"min=0"`
	UploadKbps      int    `json:"upload_kbps" validate:"min=0"`
	PriceCents      int64  `json:"price_cents" validate:"min=0"`
	Currency        string `json:"currency" validate:"omitempty,iso4217"`
	IsActive        *bool  `json:"is_active"`
}

type packageResponse struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	DownloadKbps    int       `json:"download_kbps"`
	UploadKbps      int       `json:"upload_kbps"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(p Package) packageResponse {
	return packageResponse{
		ID:              p.ID,
		TenantID:        p.TenantID,
		Name:            p.Name,
		Description:     p.Description,
		DurationMinutes: p.DurationMinutes,
		DownloadKbps:    p.DownloadKbps,
		UploadKbps:      p.UploadKbps,
		PriceCents:      p.PriceCents,
		Currency:        p.Currency,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromPayload(payload packagePayload) Package {
	return Package{
		TenantID:        payload.TenantID,
		Name:            payload.Name,
		Description:     payload.Description,
		DurationMinutes: payload.DurationMinutes,
		DownloadKbps:    payload.DownloadKbps,
		UploadKbps:      payload.UploadKbps,
		PriceCents:      payload.PriceCents,
		Currency:        payload.Currency,
		IsActive:        payload.IsActive == nil || *payload.IsActive,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	all, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list packages", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]packageResponse, len(all))
	for i, p := range all {
		out[i] = toResponse(p)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	p, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, fromPayload(payload))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	p := fromPayload(payload)
	p.ID = chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), actor, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (packagePayload, bool) {
	var payload packagePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return payload, false
	}
	return payload, true
}
