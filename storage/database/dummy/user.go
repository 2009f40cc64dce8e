package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
)

type userRepository struct {
	db  *table[user.User]
	grp *table[user.Group]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user, grp: db.group}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.db.rows {
		if excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.rows[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.UsernameOrEmail != "" {
		for _, usr := range repo.db.rows {
			if usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.rows))
	for _, usr := range repo.db.rows {
		if filter == nil || matchUser(usr, filter) {
			users = append(users, usr)
		}
	}
	sortUsers(users, orderings)
	return users, nil
}

// matchUser applies every set filter field. Search is case-insensitive on names, username & email.
func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		found := false
		for _, val := range []string{usr.FirstName, usr.LastName, usr.Username, usr.Email} {
			if strings.Contains(strings.ToLower(val), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		found := false
		for _, r := range filter.Roles {
			if usr.RoleStartsWith(r) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if filter.GroupID != "" && usr.GroupID != filter.GroupID {
		return false
	}
	if filter.SupervisorID != "" && usr.SupervisorID != filter.SupervisorID {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

var userSortKeys = map[string]func(usr user.User) string{
	"username":   func(usr user.User) string { return usr.Username },
	"email":      func(usr user.User) string { return usr.Email },
	"first_name": func(usr user.User) string { return strings.ToLower(usr.FirstName) },
	"last_name":  func(usr user.User) string { return strings.ToLower(usr.LastName) },
	"created_at": func(usr user.User) string { return usr.CreatedAt.Format("20060102150405.000000000") },
}

func sortUsers(users []user.User, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "username", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			key, ok := userSortKeys[ord.Field]
			if !ok {
				continue
			}
			a, b := key(users[i]), key(users[j])
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return users[i].ID < users[j].ID
	})
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.rows, id)
	}
	return nil
}

func (repo *userRepository) CreateGroup(_ context.Context, grp user.Group) (user.Group, error) {
	repo.grp.Lock()
	defer repo.grp.Unlock()

	repo.grp.rows[grp.ID] = grp
	return grp, nil
}

func (repo *userRepository) QueryGroups(context.Context) ([]user.Group, error) {
	repo.grp.RLock()
	defer repo.grp.RUnlock()

	groups := repo.grp.all()
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *userRepository) GetGroup(_ context.Context, id string) (user.Group, error) {
	repo.grp.RLock()
	defer repo.grp.RUnlock()

	if grp, ok := repo.grp.rows[id]; ok {
		return grp, nil
	}
	return user.Group{}, user.ErrGroupNotFound
}

func (repo *userRepository) DeleteGroup(_ context.Context, id string) error {
	repo.grp.Lock()
	defer repo.grp.Unlock()

	if _, ok := repo.grp.rows[id]; !ok {
		return user.ErrGroupNotFound
	}
	delete(repo.grp.rows, id)

	// members are kept, without a group
	repo.db.Lock()
	defer repo.db.Unlock()
	for uid, usr := range repo.db.rows {
		if usr.GroupID == id {
			usr.GroupID = ""
			repo.db.rows[uid] = usr
		}
	}
	return nil
}
