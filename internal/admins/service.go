// Package admins manages the admin panel accounts: credential checks,
// account CRUD, and the protected super-admin rules.
package admins

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"poojaconstructions/api/internal/rbac"
)

// ProtectedUserID is the one super admin that can never be deleted or
// demoted through the API.
const ProtectedUserID = "shubham"

// MinPasswordLength matches the rule the admin screens used to enforce
// client-side only.
const MinPasswordLength = 6

// Admin is one panel account. PasswordHash is persisted but stripped before
// records leave this package.
type Admin struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"passwordHash,omitempty"`
}

var (
	// ErrInvalidCredentials deliberately covers both unknown users and wrong
	// passwords so login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("admin not found")
	ErrDuplicate          = errors.New("user id already taken")
	ErrProtected          = errors.New("the super admin account cannot be changed this way")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidRole        = errors.New("role must be admin or super_admin")
)

// Collection is the storage for admin records.
type Collection interface {
	Get(ctx context.Context) ([]Admin, error)
	Save(ctx context.Context, items []Admin) error
}

type Service struct {
	col Collection
}

func NewService(col Collection) *Service {
	return &Service{col: col}
}

// Authenticate checks the credentials and returns the matching account with
// its hash stripped. User ids match case-insensitively.
func (s *Service) Authenticate(ctx context.Context, userID, password string) (Admin, error) {
	list, err := s.col.Get(ctx)
	if err != nil {
		return Admin{}, fmt.Errorf("load admins: %w", err)
	}

	id := normalizeID(userID)
	for _, admin := range list {
		if normalizeID(admin.UserID) != id {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
			return Admin{}, ErrInvalidCredentials
		}
		return sanitize(admin), nil
	}
	return Admin{}, ErrInvalidCredentials
}

// Get returns one account without its hash.
func (s *Service) Get(ctx context.Context, userID string) (Admin, error) {
	list, err := s.col.Get(ctx)
	if err != nil {
		return Admin{}, err
	}
	for _, admin := range list {
		if normalizeID(admin.UserID) == normalizeID(userID) {
			return sanitize(admin), nil
		}
	}
	return Admin{}, ErrNotFound
}

// List returns all accounts without hashes.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	list, err := s.col.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Admin, 0, len(list))
	for _, admin := range list {
		out = append(out, sanitize(admin))
	}
	return out, nil
}

// Create adds a new account. The user id is stored lowercased and must be
// unique case-insensitively.
func (s *Service) Create(ctx context.Context, userID, name string, role rbac.Role, password string) (Admin, error) {
	id := normalizeID(userID)
	if id == "" || name == "" {
		return Admin{}, errors.New("user id and name are required")
	}
	if !rbac.Valid(role) {
		return Admin{}, ErrInvalidRole
	}
	if len(password) < MinPasswordLength {
		return Admin{}, ErrWeakPassword
	}

	list, err := s.col.Get(ctx)
	if err != nil {
		return Admin{}, err
	}
	for _, admin := range list {
		if normalizeID(admin.UserID) == id {
			return Admin{}, ErrDuplicate
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}

	created := Admin{UserID: id, Name: name, Role: role, PasswordHash: string(hash)}
	if err := s.col.Save(ctx, append(list, created)); err != nil {
		return Admin{}, err
	}
	return sanitize(created), nil
}

// UpdateInput carries the editable fields; zero values keep the current one.
type UpdateInput struct {
	Name     string
	Role     rbac.Role
	Password string
}

// Update edits an account. The protected super admin keeps its user id and
// role no matter what was requested; name and password may still change.
// The edit is staged on a copy, so a rejected input or a failed write leaves
// the stored list exactly as it was.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (Admin, error) {
	list, err := s.col.Get(ctx)
	if err != nil {
		return Admin{}, err
	}

	id := normalizeID(userID)
	for i, admin := range list {
		if normalizeID(admin.UserID) != id {
			continue
		}

		updated := admin
		if in.Name != "" {
			updated.Name = in.Name
		}
		if in.Role != "" && in.Role != admin.Role {
			if id == ProtectedUserID {
				return Admin{}, ErrProtected
			}
			if !rbac.Valid(in.Role) {
				return Admin{}, ErrInvalidRole
			}
			updated.Role = in.Role
		}
		if in.Password != "" {
			if len(in.Password) < MinPasswordLength {
				return Admin{}, ErrWeakPassword
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
			if err != nil {
				return Admin{}, fmt.Errorf("hash password: %w", err)
			}
			updated.PasswordHash = string(hash)
		}

		next := slices.Clone(list)
		next[i] = updated
		if err := s.col.Save(ctx, next); err != nil {
			return Admin{}, err
		}
		return sanitize(updated), nil
	}
	return Admin{}, ErrNotFound
}

// Delete removes exactly one account. Deleting the protected super admin is
// always rejected.
func (s *Service) Delete(ctx context.Context, userID string) error {
	id := normalizeID(userID)
	if id == ProtectedUserID {
		return ErrProtected
	}

	list, err := s.col.Get(ctx)
	if err != nil {
		return err
	}

	kept := make([]Admin, 0, len(list))
	removed := 0
	for _, admin := range list {
		if normalizeID(admin.UserID) == id {
			removed++
			continue
		}
		kept = append(kept, admin)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return s.col.Save(ctx, kept)
}

// Seed writes the default accounts when the collection is empty. Passwords
// are hashed here; plaintext never reaches storage.
func (s *Service) Seed(ctx context.Context) error {
	list, err := s.col.Get(ctx)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		return nil
	}

	defaults := []struct {
		userID string
		name   string
		role   rbac.Role
	}{
		{"shubham", "Shubham", rbac.RoleSuperAdmin},
		{"pooja", "Pooja", rbac.RoleAdmin},
		{"arati", "Arati", rbac.RoleAdmin},
		{"chandrakant", "Chandrakant", rbac.RoleAdmin},
	}

	seeded := make([]Admin, 0, len(defaults))
	for _, d := range defaults {
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		seeded = append(seeded, Admin{UserID: d.userID, Name: d.name, Role: d.role, PasswordHash: string(hash)})
	}
	return s.col.Save(ctx, seeded)
}

func normalizeID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

func sanitize(admin Admin) Admin {
	admin.PasswordHash = ""
	return admin
}
