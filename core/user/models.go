package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
)

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         access.Role `json:"role"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
	LastLogin    null.Time   `json:"last_login"` // UTC
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

func (u User) IsAdmin() bool      { return u.Role == access.RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == access.RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == access.RoleStudent }

// Principal returns the access.Principal acting as u.
func (u User) Principal() access.Principal {
	return access.Principal{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (u User) LogPerson() core.LogPerson {
	return core.LogPerson{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NewUser contains information needed to register a new User.
// Public registration may only pick the student (default) or instructor role.
type NewUser struct {
	Name     string      `json:"name" validate:"required,notblank,max=100"`
	Email    string      `json:"email" validate:"required,email,max=254"`
	Password string      `json:"password" validate:"required"`
	Role     access.Role `json:"role" validate:"omitempty,oneof=student instructor"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = access.Role(core.CleanString(string(nu.Role), true /* lower */))
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are left unchanged.
type UpdateUser struct {
	Name     string      `json:"name" validate:"omitempty,max=100"`
	Email    string      `json:"email" validate:"omitempty,email,max=254"`
	Role     access.Role `json:"role" validate:"omitempty,oneof=student instructor admin"`
	Password string      `json:"password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	role := access.Role(core.CleanString(string(uu.Role), true /* lower */))
	if role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}

	return validate.Struct(uu)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search      string        `query:"search"`
	Roles       []access.Role `query:"role"`
	CreatedFrom time.Time     `query:"created_from"`
	CreatedTo   time.Time     `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// CountFilter narrows CountUsers; zero fields match everything.
type CountFilter struct {
	Role          access.Role
	CreatedBefore time.Time
}
