package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

var userDefaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// emailTaken must be called with the user table locked.
func (repo *userRepository) emailTaken(email, exceptID string) bool {
	for _, usr := range repo.db.user.table {
		if usr.Email == email && usr.ID != exceptID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if repo.emailTaken(usr.Email, "") {
		return user.User{}, user.ErrEmailExists
	}
	usr.ID = newID()
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) match(usr user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !(containsFold(usr.Name, filter.Search) || containsFold(usr.Email, filter.Search)) {
		return false
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, role := range filter.Roles {
			if usr.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	users := make([]user.User, 0, len(repo.db.user.table))
	for _, usr := range repo.db.user.table {
		if repo.match(*usr, filter) {
			users = append(users, *usr)
		}
	}
	sortBy(users, ordering, userDefaultOrdering, compareUsers, func(u user.User) string { return u.ID })
	return users, nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return compareStrings(a.Name, b.Name)
	case "email":
		return compareStrings(a.Email, b.Email)
	case "role":
		return compareStrings(string(a.Role), string(b.Role))
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		return compareTimes(a.LastLogin.Time, b.LastLogin.Time)
	}
	return 0
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.user.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.user.table {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) CountUsers(ctx context.Context, filter user.CountFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	var cnt int
	for _, usr := range repo.db.user.table {
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !usr.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		cnt++
	}
	return cnt, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	if _, ok := repo.db.user.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

// DeleteUser removes the user with their courses and enrollments.
func (repo *userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()
	repo.db.course.Lock()
	defer repo.db.course.Unlock()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	delete(repo.db.user.table, id)
	for cid, c := range repo.db.course.table {
		if c.InstructorID == id {
			delete(repo.db.course.table, cid)
		}
	}
	for key := range repo.db.enrollment.table {
		_, courseExists := repo.db.course.table[key.courseID]
		if key.studentID == id || !courseExists {
			delete(repo.db.enrollment.table, key)
		}
	}
	return nil
}
