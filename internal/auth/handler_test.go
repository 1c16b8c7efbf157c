package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/cogivn/iwas/internal/auth"
	"github.com/cogivn/iwas/internal/shared"
	_ "github.com/cogivn/iwas/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]string
	removed  []string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = map[string]string{}
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.removed = append(s.removed, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager)
	return handler, sessionManager
}

func postLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "user-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := postLogin(t, handler, sessionManager, `{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", payload.UserID)
	}
	if sess.User() != "user-1" {
		t.Fatalf("expected session user user-1, got %q", sess.User())
	}
	if repo.sessions[sess.ID] != "user-1" {
		t.Fatalf("expected session record for user-1")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "user-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := postLogin(t, handler, sessionManager, `{"email":"user@test.local","password":"wrongpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("expected no session user, got %q", sess.User())
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "user-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: false}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, _ := postLogin(t, handler, sessionManager, `{"email":"user@test.local","password":"correctpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, _ := postLogin(t, handler, sessionManager, `{"email":"not-an-email","password":"short"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{user: &auth.User{ID: "user-1", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)

	_, sess := postLogin(t, handler, sessionManager, `{"email":"user@test.local","password":"correctpass"}`)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: sess.ID})
	loaded, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), loaded)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLogoutForTest(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(repo.removed) == 0 {
		t.Fatalf("expected session record removal")
	}
}
