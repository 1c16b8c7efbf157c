package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/shared"
)

// Auditor records account mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic. Every mutation runs the membership
// guard before touching storage.
type Service struct {
	repo      RepositoryPort
	guard     *access.Guard
	evaluator *access.Evaluator
	audit     Auditor
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, guard *access.Guard, evaluator *access.Evaluator, audit Auditor) *Service {
	return &Service{repo: repo, guard: guard, evaluator: evaluator, audit: audit}
}

// CreateInput carries the writable account fields.
type CreateInput struct {
	Email              string
	Name               string
	Password           string
	LegacyRole         string
	IsActive           bool
	Memberships        []access.Membership
	AssignedLocations  []string
	CanDownloadScripts bool
}

// UpdateInput mirrors CreateInput; a blank Password keeps the stored hash.
type UpdateInput struct {
	Email              string
	Name               string
	Password           string
	LegacyRole         string
	IsActive           bool
	Memberships        []access.Membership
	AssignedLocations  []string
	CanDownloadScripts bool
}

// List returns the accounts the actor may read, narrowed to the actor's own
// record when that is all their roles grant.
func (s *Service) List(ctx context.Context, actor *access.User) ([]User, error) {
	decision, err := s.evaluator.UsersReadAccess(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	return s.repo.List(ctx, decision.Filter)
}

// Get fetches one account if the actor's read scope covers it.
func (s *Service) Get(ctx context.Context, actor *access.User, id string) (*User, error) {
	decision, err := s.evaluator.UsersReadAccess(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !covers(decision.Filter, target) {
		// Hide existence from actors outside the scope.
		return nil, shared.ErrNotFound
	}
	return target, nil
}

// Create provisions a new account. The guard clamps the requested memberships
// to what the actor may assign and bootstraps the very first account.
func (s *Service) Create(ctx context.Context, actor *access.User, in CreateInput) (*User, error) {
	decision, err := s.evaluator.UsersMutateAccess(ctx, actor, access.PermUsersCreate)
	if err != nil {
		return nil, err
	}
	bootstrap := actor == nil && len(in.Memberships) == 0
	if !decision.Allowed && !bootstrap {
		return nil, shared.ErrForbidden
	}

	memberships, err := s.guard.Apply(ctx, actor, in.Memberships, true)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, User{
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       hash,
		LegacyRole:         in.LegacyRole,
		IsActive:           in.IsActive,
		Memberships:        memberships,
		AssignedLocations:  in.AssignedLocations,
		CanDownloadScripts: in.CanDownloadScripts,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "user.create", created.ID)
	return created, nil
}

// Update rewrites an account within the actor's mutate scope.
func (s *Service) Update(ctx context.Context, actor *access.User, id string, in UpdateInput) (*User, error) {
	decision, err := s.evaluator.UsersMutateAccess(ctx, actor, access.PermUsersUpdate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, shared.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !covers(decision.Filter, existing) {
		return nil, shared.ErrNotFound
	}

	memberships, err := s.guard.Apply(ctx, actor, in.Memberships, false)
	if err != nil {
		return nil, err
	}
	hash := existing.PasswordHash
	if in.Password != "" {
		if hash, err = hashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	updated, err := s.repo.Update(ctx, User{
		ID:                 id,
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       hash,
		LegacyRole:         in.LegacyRole,
		IsActive:           in.IsActive,
		Memberships:        memberships,
		AssignedLocations:  in.AssignedLocations,
		CanDownloadScripts: in.CanDownloadScripts,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "user.update", id)
	return updated, nil
}

// Delete removes an account within the actor's mutate scope.
func (s *Service) Delete(ctx context.Context, actor *access.User, id string) error {
	decision, err := s.evaluator.UsersMutateAccess(ctx, actor, access.PermUsersDelete)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return shared.ErrForbidden
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !covers(decision.Filter, existing) {
		return shared.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "user.delete", id)
	return nil
}

// RoleOptions returns the role choices the actor may hand out, for select
// inputs.
func (s *Service) RoleOptions(ctx context.Context, actor *access.User) ([]access.RoleOption, error) {
	pctx, err := s.evaluator.Resolver().Context(ctx)
	if err != nil {
		return nil, err
	}
	return access.AssignableRoleOptions(actor, pctx), nil
}

// AccessUser loads the access-layer projection of an account. Implements the
// middleware's user source.
func (s *Service) AccessUser(ctx context.Context, id string) (*access.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.AccessView(), nil
}

// CountUsers exposes the account total for first-user detection.
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.repo.CountUsers(ctx)
}

// covers reports whether a read/mutate filter includes the target account.
// A nil filter means unrestricted.
func covers(f *access.Filter, target *User) bool {
	if f == nil {
		return true
	}
	if f.Column == "id" {
		return target.ID == f.Equals
	}
	targetTenants := access.TenantIDs(target.AccessView())
	for _, allowed := range f.In {
		for _, got := range targetTenants {
			if got == allowed {
				return true
			}
		}
	}
	return false
}

func hashPassword(plain string) (string, error) {
	if plain == "" {
		return "", &access.ValidationError{Field: "password", Message: "password is required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) record(ctx context.Context, actor *access.User, action, entityID string) {
	if s.audit == nil {
		return
	}
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "users",
		EntityID: entityID,
	})
}

var (
	_ access.UserSource    = (*Service)(nil)
	_ access.IdentityStore = (*Service)(nil)
)
