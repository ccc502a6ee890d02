package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var err error
	repo.db.run(exec, func() {
		for _, u := range repo.db.tables.users {
			if strings.EqualFold(u.Email, usr.Email) {
				err = user.ErrEmailExists
				return
			}
		}
		usr.ID = repo.db.nextID("users")
		repo.db.tables.users[usr.ID] = usr
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var (
		usr user.User
		ok  bool
	)
	repo.db.run(exec, func() { usr, ok = repo.db.tables.users[id] })
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var (
		usr   user.User
		found bool
	)
	repo.db.run(exec, func() {
		for _, u := range repo.db.tables.users {
			if strings.EqualFold(u.Email, email) {
				usr, found = u, true
				return
			}
		}
	})
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	users := make([]user.User, 0)
	repo.db.run(exec, func() {
		for _, u := range repo.db.tables.users {
			if filter != nil && !matchUser(u, filter) {
				continue
			}
			users = append(users, u)
		}
	})
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" && !containsFold(u.Name, filter.Search) && !containsFold(u.Email, filter.Search) {
		return false
	}
	if filter.Role != "" && u.Role != filter.Role {
		return false
	}
	if filter.DojoID != 0 && (u.DojoID == nil || *u.DojoID != filter.DojoID) {
		return false
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var ok bool
	repo.db.run(exec, func() {
		if _, ok = repo.db.tables.users[usr.ID]; ok {
			repo.db.tables.users[usr.ID] = usr
		}
	})
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
