package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
)

const userColumns = `id, first_name, last_name, middle_initial, username, email, group_id, supervisor_id,
is_active, roles, password_hash, created_at, updated_at, last_login`

var userOrderColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID            string         `db:"id"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	MiddleInitial string         `db:"middle_initial"`
	Username      string         `db:"username"`
	Email         null.String    `db:"email"`
	GroupID       null.String    `db:"group_id"`
	SupervisorID  null.String    `db:"supervisor_id"`
	IsActive      bool           `db:"is_active"`
	Roles         pq.StringArray `db:"roles"`
	PasswordHash  []byte         `db:"password_hash"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLogin     null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		FirstName:     usr.FirstName,
		LastName:      usr.LastName,
		MiddleInitial: usr.MiddleInitial,
		Username:      usr.Username,
		Email:         null.NewString(usr.Email, usr.Email != ""),
		GroupID:       null.NewString(usr.GroupID, usr.GroupID != ""),
		SupervisorID:  null.NewString(usr.SupervisorID, usr.SupervisorID != ""),
		IsActive:      usr.IsActive,
		Roles:         usr.Roles,
		PasswordHash:  usr.PasswordHash,
		CreatedAt:     usr.CreatedAt,
		UpdatedAt:     usr.UpdatedAt,
		LastLogin:     null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		MiddleInitial: r.MiddleInitial,
		Username:      r.Username,
		Email:         r.Email.String,
		GroupID:       r.GroupID.String,
		SupervisorID:  r.SupervisorID.String,
		IsActive:      r.IsActive,
		Roles:         []string(r.Roles),
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		LastLogin:     r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	var found struct {
		Username string      `db:"username"`
		Email    null.String `db:"email"`
	}
	err := repo.db.GetContext(ctx, &found,
		`SELECT username, email FROM users WHERE (username = $1 OR email = $2) AND NOT (id::text = ANY($3)) LIMIT 1`,
		username, email, pq.Array(excluded),
	)
	if err != nil {
		if notFound("", err, user.ErrNotFound) == user.ErrNotFound {
			return nil
		}
		return dbError("checking username uniqueness", err)
	}
	if found.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (
:id, :first_name, :last_name, :middle_initial, :username, :email, :group_id, :supervisor_id,
:is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`, newUserRow(usr))
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "users_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, dbError("inserting user", err)
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		row userRow
		err error
	)
	switch {
	case filter.ID != "":
		err = repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, filter.ID)
	case filter.UsernameOrEmail != "":
		err = repo.db.GetContext(ctx, &row,
			`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, notFound("getting user", err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, orderings []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.add(`(first_name ILIKE ? OR last_name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`, "%"+filter.Search+"%")
		}
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, r := range filter.Roles {
				patterns = append(patterns, r+"%")
			}
			w.add(`EXISTS (SELECT 1 FROM unnest(roles) AS role WHERE role LIKE ANY(?))`, pq.Array(patterns))
		}
		if filter.IsActive != nil {
			w.add(`is_active = ?`, *filter.IsActive)
		}
		if filter.GroupID != "" {
			w.add(`group_id::text = ?`, filter.GroupID)
		}
		if filter.SupervisorID != "" {
			w.add(`supervisor_id::text = ?`, filter.SupervisorID)
		}
		if !filter.CreatedFrom.IsZero() {
			w.add(`created_at >= ?`, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			w.add(`created_at <= ?`, filter.CreatedTo.UTC())
		}
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.String() +
		` ORDER BY ` + core.OrderByClause(orderings, userOrderColumns, "username ASC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, dbError("querying users", err)
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE users SET
first_name = :first_name, last_name = :last_name, middle_initial = :middle_initial, username = :username,
email = :email, group_id = :group_id, supervisor_id = :supervisor_id, is_active = :is_active, roles = :roles,
password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`, newUserRow(usr))
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "users_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, notFound("updating user", err, user.ErrNotFound)
	}
	if err = mustAffect("updating user", res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id::text = ANY($1)`, pq.Array(ids))
	return dbError("deleting users", err)
}

type groupRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Language  string    `db:"language"`
	CreatedAt time.Time `db:"created_at"`
}

func (r groupRow) toGroup() user.Group {
	return user.Group{ID: r.ID, Name: r.Name, Language: r.Language, CreatedAt: r.CreatedAt.UTC()}
}

func (repo *userRepository) CreateGroup(ctx context.Context, grp user.Group) (user.Group, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, language, created_at) VALUES ($1, $2, $3, $4)`,
		grp.ID, grp.Name, grp.Language, grp.CreatedAt,
	)
	if err != nil {
		return user.Group{}, dbError("inserting group", err)
	}
	return grp, nil
}

func (repo *userRepository) QueryGroups(ctx context.Context) ([]user.Group, error) {
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT id, name, language, created_at FROM groups ORDER BY name`); err != nil {
		return nil, dbError("querying groups", err)
	}
	groups := make([]user.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.toGroup())
	}
	return groups, nil
}

func (repo *userRepository) GetGroup(ctx context.Context, id string) (user.Group, error) {
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, language, created_at FROM groups WHERE id = $1`, id); err != nil {
		return user.Group{}, notFound("getting group", err, user.ErrGroupNotFound)
	}
	return row.toGroup(), nil
}

func (repo *userRepository) DeleteGroup(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return notFound("deleting group", err, user.ErrGroupNotFound)
	}
	return mustAffect("deleting group", res, user.ErrGroupNotFound)
}
