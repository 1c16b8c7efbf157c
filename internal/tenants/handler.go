package tenants

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/platform/httpx"
)

// Handler exposes tenant management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    access.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(),
	}
}

// MountRoutes registers tenant routes. Reads are open to any authenticated
// user; mutations require the tenant management permissions only
// system-admin holds.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.PermTenantsRead))
		r.Get("/{id}/overview", h.overview)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.PermTenantsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.PermTenantsUpdate))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.PermTenantsDelete))
		r.Delete("/{id}", h.remove)
	})
}

type tenantPayload struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Slug     string `json:"slug" validate:"omitempty,max=120"`
	Domain   string `json:"domain" validate:"omitempty,fqdn"`
	IsActive *bool  `json:"is_active"`
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Domain    string    `json:"domain,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(t Tenant) tenantResponse {
	return tenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Domain:    t.Domain,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list tenants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]tenantResponse, len(all))
	for i, t := range all {
		out[i] = toResponse(t)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*t))
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("tenant overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tenant":    toResponse(ov.Tenant),
		"users":     ov.Users,
		"locations": ov.Locations,
		"packages":  ov.Packages,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload tenantPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	created, err := h.service.Create(r.Context(), h.actorID(r), Tenant{
		Name:     payload.Name,
		Slug:     payload.Slug,
		Domain:   payload.Domain,
		IsActive: active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var payload tenantPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	updated, err := h.service.Update(r.Context(), h.actorID(r), Tenant{
		ID:       chi.URLParam(r, "id"),
		Name:     payload.Name,
		Slug:     payload.Slug,
		Domain:   payload.Domain,
		IsActive: active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), h.actorID(r), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) actorID(r *http.Request) string {
	if user := access.UserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return ""
}
