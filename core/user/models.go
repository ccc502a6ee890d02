package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

// Roles
const (
	RoleAdmin    = "admin"     // global scope
	RoleDojoUser = "dojo_user" // scoped to a single dojo
)

var (
	AllRoles = []string{RoleAdmin, RoleDojoUser}

	Roles = []Role{
		{Name: "Administrator", Value: RoleAdmin},
		{Name: "Dojo User", Value: RoleDojoUser},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	DojoID       *int      `json:"dojo_id"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccessDojo reports whether the user may act on the given dojo.
func (u User) CanAccessDojo(dojoID int) bool {
	if u.IsAdmin() {
		return true
	}
	return u.DojoID != nil && *u.DojoID == dojoID
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,userrole"`
	DojoID          *int   `json:"dojo_id" validate:"omitempty,min=1"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleDojoUser
	}
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	DojoID   int    `query:"dojo_id"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.DojoID == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
