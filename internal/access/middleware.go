package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cogivn/iwas/internal/shared"
)

type userContextKey struct{}

// ContextWithUser stores the authenticated user's access view in ctx.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user, nil when anonymous.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// UserSource loads the access view of an identity by id.
type UserSource interface {
	AccessUser(ctx context.Context, id string) (*User, error)
}

// RequestCache installs the request-scoped System Tenant memo on every
// request context. Install once, ahead of any permission-gated route.
func RequestCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestCache(r.Context())))
	})
}

// Middleware wires permission gates for HTTP handlers. It resolves the
// current user from the session, attaches it to the request context and
// evaluates the required permission.
type Middleware struct {
	Evaluator *Evaluator
	Users     UserSource
	Logger    *slog.Logger
}

// Require ensures the current user holds perm before the next handler runs.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ctx, ok := m.loadUser(w, r)
			if !ok {
				return
			}
			allowed, err := m.Evaluator.RequirePermission(ctx, user, perm)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("access require permission", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates the management surface behind admin:access.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.Require(PermAdminAccess)
}

// Authenticate resolves the current user without requiring any permission,
// so handlers that compute their own scope decisions still see the user.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ctx, ok := m.loadUser(w, r)
		if !ok {
			return
		}
		if user == nil {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loadUser resolves the session user and attaches it to the context. A
// missing session yields (nil, ctx, true): anonymous is a state, not an
// error, and Require turns it into a denial.
func (m Middleware) loadUser(w http.ResponseWriter, r *http.Request) (*User, context.Context, bool) {
	ctx := r.Context()
	if existing := UserFromContext(ctx); existing != nil {
		return existing, ctx, true
	}
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return nil, ctx, true
	}
	user, err := m.Users.AccessUser(ctx, sess.User())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Stale session referencing a deleted identity.
			return nil, ctx, true
		}
		if m.Logger != nil {
			m.Logger.Error("access load user", slog.String("user_id", sess.User()), slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, ctx, false
	}
	return user, ContextWithUser(ctx, user), true
}
