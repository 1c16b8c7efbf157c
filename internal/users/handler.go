package users

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/platform/httpx"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes. Signup stays open so a fresh install can
// create its first account; everything else requires a session. Row-level
// narrowing happens in the service, not here.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Get("/", h.list)
		r.Get("/me", h.me)
		r.Get("/role-options", h.roleOptions)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type membershipPayload struct {
	TenantID string   `json:"tenant_id" validate:"required,uuid4"`
	Roles    []string `json:"roles" validate:"dive,required"`
}

type userPayload struct {
	Email              string              `json:"email" validate:"required,email"`
	Name               string              `json:"name" validate:"required,min=1,max=120"`
	Password           string              `json:"password" validate:"omitempty,min=8"`
	IsActive           *bool               `json:"is_active"`
	Memberships        []membershipPayload `json:"memberships" validate:"dive"`
	AssignedLocations  []string            `json:"assigned_locations" validate:"dive,uuid4"`
	CanDownloadScripts bool                `json:"can_download_scripts"`
}

type membershipResponse struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

type userResponse struct {
	ID                 string               `json:"id"`
	Email              string               `json:"email"`
	Name               string               `json:"name"`
	IsActive           bool                 `json:"is_active"`
	Memberships        []membershipResponse `json:"memberships"`
	AssignedLocations  []string             `json:"assigned_locations,omitempty"`
	CanDownloadScripts bool                 `json:"can_download_scripts"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func toResponse(u User) userResponse {
	resp := userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		IsActive:           u.IsActive,
		Memberships:        make([]membershipResponse, len(u.Memberships)),
		AssignedLocations:  u.AssignedLocations,
		CanDownloadScripts: u.CanDownloadScripts,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
	for i, m := range u.Memberships {
		roles := make([]string, len(m.Roles))
		for j, role := range m.Roles {
			roles[j] = string(role)
		}
		resp.Memberships[i] = membershipResponse{TenantID: m.Tenant.TenantID(), Roles: roles}
	}
	return resp
}

func toMemberships(payloads []membershipPayload) []access.Membership {
	out := make([]access.Membership, len(payloads))
	for i, p := range payloads {
		roles := make([]access.Role, len(p.Roles))
		for j, role := range p.Roles {
			roles[j] = access.Role(role)
		}
		out[i] = access.Membership{Tenant: access.TenantRef{ID: p.TenantID}, Roles: roles}
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	all, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, len(all))
	for i, u := range all {
		out[i] = toResponse(u)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	u, err := h.service.Get(r.Context(), actor, actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*u))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	u, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*u))
}

func (h *Handler) roleOptions(w http.ResponseWriter, r *http.Request) {
	actor := access.UserFromContext(r.Context())
	options, err := h.service.RoleOptions(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, options)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r, true)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, CreateInput{
		Email:              payload.Email,
		Name:               payload.Name,
		Password:           payload.Password,
		IsActive:           payload.IsActive == nil || *payload.IsActive,
		Memberships:        toMemberships(payload.Memberships),
		AssignedLocations:  payload.AssignedLocations,
		CanDownloadScripts: payload.CanDownloadScripts,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r, false)
	if !ok {
		return
	}
	actor := access.UserFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), UpdateInput{
		Email:              payload.Email,
		Name:               payload.Name,
		Password:           payload.Password,
		IsActive:           payload.IsActive == nil || *payload.IsActive,
		Memberships:        toMemberships(payload.Memberships),
		AssignedLocations:  payload.AssignedLocations,
		CanDownloadScripts: payload.CanDownloadScripts,
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, requirePassword bool) (userPayload, bool) {
	var payload userPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON body")
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return payload, false
	}
	if requirePassword && payload.Password == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "password is required")
		return payload, false
	}
	return payload, true
}
