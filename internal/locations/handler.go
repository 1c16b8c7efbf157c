package locations

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/platform/httpx"
)

// Handler exposes location endpoints.
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

// MountRoutes registers location routes. Row narrowing happens in the
// service; the router only requires a session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/script", h.script)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type locationPayload struct {
	TenantID string `json:"tenant_id" validate:"required,uuid4"`
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Address  string `json:"address" validate:"max=255"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
	IsActive *bool  `json:"is_active"`
}

type locationResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(l Location) locationResponse {
	return locationResponse{
		ID:        l.ID,
		TenantID:  l.TenantID,
		Name:      l.Name,
		Address:   l.Address,
		Timezone:  l.Timezone,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	all, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list locations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]locationResponse, len(all))
	for i, l := range all {
		out[i] = toResponse(l)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	l, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*l))
}

func (h *Handler) script(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	script, err := h.service.ProvisioningScript(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/x-shellscript")
	w.Header().Set("Content-Disposition", `attachment; filename="provision.sh"`)
	_, _ = w.Write(script)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, Location{
		TenantID: payload.TenantID,
		Name:     payload.Name,
		Address:  payload.Address,
		Timezone: payload.Timezone,
		IsActive: payload.IsActive == nil || *payload.IsActive,
	})
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
	updated, err := h.service.Update(r.Context(), actor, Location{
		ID:       chi.URLParam(r, "id"),
		Name:     payload.Name,
		Address:  payload.Address,
		Timezone: payload.Timezone,
		IsActive: payload.IsActive == nil || *payload.IsActive,
	})
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (locationPayload, bool) {
	var payload locationPayload
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
