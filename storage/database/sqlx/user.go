package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/user"
)

const userColumns = "id, name, email, role, password_hash, created_at, updated_at, last_login"

var userOrderColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         string(usr.Role),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.Time.UTC(), usr.LastLogin.Valid),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         access.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(row.LastLogin.Time.UTC(), row.LastLogin.Valid),
	}
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor, conf *core.Config) *userRepository {
	return &userRepository{repository: newRepository(exec, conf)}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :role, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, toUserRow(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var w where
	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(name ILIKE ? OR email ILIKE ?)", val, val)
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				roles = append(roles, string(r))
			}
			w.add("role = ANY(?)", pq.Array(roles))
		}
		if !filter.CreatedFrom.IsZero() {
			w.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	exe := repo.getExec(exec)
	q := exe.Rebind("SELECT " + userColumns + " FROM users" + w.String() + orderBy(ordering, userOrderColumns, "created_at DESC"))
	var rows []userRow
	if err := sqlx.SelectContext(ctx, exe, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var (
		q   string
		arg interface{}
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q, arg = "SELECT "+userColumns+" FROM users WHERE id = $1", filter.ID
	case filter.Email != "":
		q, arg = "SELECT "+userColumns+" FROM users WHERE email = $1", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter user.CountFilter, exec ...core.DBExecutor) (int, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	var w where
	if filter.Role != "" {
		w.add("role = ?", string(filter.Role))
	}
	if !filter.CreatedBefore.IsZero() {
		w.add("created_at < ?", filter.CreatedBefore.UTC())
	}

	exe := repo.getExec(exec)
	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind("SELECT COUNT(*) FROM users"+w.String()), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return cnt, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(usr.ID) {
		return user.User{}, user.ErrNotFound
	}
	q := `UPDATE users SET name = :name, email = :email, role = :role, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// DeleteUser removes the user; their courses and enrollments go with them (ON DELETE CASCADE).
func (repo userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ctx, cancel := repo.ctx(ctx)
	defer cancel()

	if !validID(id) {
		return nil
	}
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}
