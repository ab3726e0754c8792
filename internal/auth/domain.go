// Package auth replaces the legacy always-superadmin stub with explicit
// capability checks evaluated per request.
package auth

import (
	"context"
	"time"
)

// Principal describes the actor behind a request. The zero value is the
// anonymous principal.
type Principal struct {
	UserID      int64
	Name        string
	Role        string
	BranchID    *int64
	Permissions []string
}

// Anonymous reports whether no authenticated user is attached.
func (p Principal) Anonymous() bool {
	return p.UserID == 0
}

// Can reports whether the principal holds the given permission.
func (p Principal) Can(permission string) bool {
	for _, granted := range p.Permissions {
		if granted == permission || granted == PermissionAll {
			return true
		}
	}
	return false
}

// PermissionAll grants every capability. Reserved for the superadmin role.
const PermissionAll = "*"

// User is an account that can log in.
type User struct {
	ID           int64
	Username     string
	FullName     string
	Role         string
	BranchID     *int64
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorizer resolves the capabilities of a user.
type Authorizer interface {
	PrincipalFor(ctx context.Context, userID int64) (Principal, error)
}

// StaticAuthorizer returns a fixed principal regardless of user. It stands in
// for the retired superadmin stub in tests.
type StaticAuthorizer struct {
	Principal Principal
}

func (s StaticAuthorizer) PrincipalFor(ctx context.Context, userID int64) (Principal, error) {
	p := s.Principal
	if p.UserID == 0 {
		p.UserID = userID
	}
	return p, nil
}

// Superadmin builds the principal the legacy stub used to hand out.
func Superadmin(userID int64) Principal {
	return Principal{UserID: userID, Role: "superadmin", Permissions: []string{PermissionAll}}
}
