package user

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
)

var (
	// errors
	ErrNotFound           = core.NewError(core.KindNotFound, "user not found")
	ErrEmailExists        = core.NewError(core.KindConflict, "a user with this email already exists")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
	ErrDeleteSelf         = core.NewError(core.KindForbidden, "you cannot delete your own account")
)

type (
	// Repository persists users. Every method accepts an optional core.DBExecutor
	// to run inside a transaction.
	Repository interface {
		// CreateUser fails with ErrEmailExists when the email is taken.
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		CountUsers(ctx context.Context, filter CountFilter, exec ...core.DBExecutor) (int, error)
		// UpdateUser fails with ErrEmailExists when the new email is taken.
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		cache    core.Cache
		validate *validator.Validate
		logger   core.Logger
	}
)

// orderable fields of QueryUsers
var OrderingFields = []string{"name", "email", "role", "created_at", "last_login"}

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	cache core.Cache,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		cache:    cache,
		validate: validate,
		logger:   logger,
	}
}

// Register creates a student or instructor account and sends them a welcome email.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if nu.Role == "" {
		nu.Role = access.RoleStudent
	}

	now := core.NowFunc()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name": usr.Name,
			"Role": string(usr.Role),
		},
	})
	return usr, nil
}

// Authenticate checks the credentials of a user and records their login.
// Unknown emails and wrong passwords both fail with ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, lr LoginRequest) (User, error) {
	if err := lr.Validate(svc.validate); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: lr.Email})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(lr.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(core.NowFunc())
	return svc.repo.UpdateUser(ctx, usr)
}

// GetByID returns the user with the given id, without any access check.
func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) Query(ctx context.Context, p access.Principal, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return nil, err
	}
	if err := core.CheckOrdering(ordering, OrderingFields); err != nil {
		return nil, err
	}
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) Retrieve(ctx context.Context, p access.Principal, id string) (User, error) {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return User{}, err
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) Update(ctx context.Context, p access.Principal, id string, uu UpdateUser) (User, error) {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr, svc.validate); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.UpdatedAt = core.NowFunc()
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user. Admins cannot delete themselves.
// The user's courses go with them, so the cached catalog is dropped.
func (svc *Service) Delete(ctx context.Context, p access.Principal, id string) error {
	if err := access.Authorize(p, access.ActionManageUsers); err != nil {
		return err
	}
	if id == p.UserID {
		return ErrDeleteSelf
	}
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: id}); err != nil {
		return err
	}
	if err := svc.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	if err := svc.cache.Delete(ctx, core.CatalogCacheKey); err != nil {
		svc.logger.Warn("invalidating catalog cache", err)
	}
	return nil
}
