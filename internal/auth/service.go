package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// Service verifies credentials and resolves principals.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks username/password and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// PrincipalFor implements Authorizer against the users/permissions tables.
// The superadmin role short-circuits to the wildcard permission.
func (s *Service) PrincipalFor(ctx context.Context, userID int64) (Principal, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, shared.ErrNotFound
	}
	if user.Role == "superadmin" {
		p := Superadmin(user.ID)
		p.Name = user.FullName
		p.BranchID = user.BranchID
		return p, nil
	}
	perms, err := s.repo.PermissionsForUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		UserID:      user.ID,
		Name:        user.FullName,
		Role:        user.Role,
		BranchID:    user.BranchID,
		Permissions: perms,
	}, nil
}
