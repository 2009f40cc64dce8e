package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/langhour/tracker/core"
)

// Roles
const (
	// Admin
	RoleAdmin    = "admin:"
	RoleAdminDev = "admin:dev"

	// Supervisor
	RoleSupervisor = "supervisor:"

	// Member
	RoleMember = "member:"
)

var (
	AdminRoles      = []string{RoleAdmin, RoleAdminDev}
	SupervisorRoles = []string{RoleSupervisor}
	MemberRoles     = []string{RoleMember}
	AllRoles        = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminDev: 30,
		RoleAdmin:    21,

		// Supervisors: 20 - 11
		RoleSupervisor: 11,

		// Members: 10 - 1
		RoleMember: 1,
	}

	Roles = []Role{
		{Name: "Member", Value: RoleMember},
		{Name: "Supervisor", Value: RoleSupervisor},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Developer", Value: RoleAdminDev},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, SupervisorRoles...)
	all = append(all, MemberRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	MiddleInitial string    `json:"middle_initial"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	GroupID       string    `json:"group_id"`
	SupervisorID  string    `json:"supervisor_id"`
	IsActive      bool      `json:"is_active"`
	Roles         []string  `json:"roles"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
}

// Name is the display name: "First M. Last".
func (u User) Name() string {
	parts := make([]string, 0, 3)
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.MiddleInitial != "" {
		parts = append(parts, strings.TrimSuffix(u.MiddleInitial, ".")+".")
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
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

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsDev() bool {
	return core.StringInSlice(RoleAdminDev, u.Roles)
}

func (u *User) IsSupervisor() bool {
	return u.RoleStartsWith(RoleSupervisor)
}

func (u *User) IsMember() bool {
	return u.RoleStartsWith(RoleMember)
}

// CanView reports whether u may see other's data: themselves, their subordinates, or anyone for admins.
func (u *User) CanView(other User) bool {
	return u.ID == other.ID || u.IsAdmin() || (u.IsSupervisor() && other.SupervisorID == u.ID)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string   `json:"first_name" validate:"required,max=25"`
	LastName        string   `json:"last_name" validate:"required,max=25"`
	MiddleInitial   string   `json:"middle_initial" validate:"omitempty,max=2"`
	Username        string   `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email,max=50"`
	GroupID         string   `json:"group_id"`
	SupervisorID    string   `json:"supervisor_id"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.MiddleInitial = core.CleanString(nu.MiddleInitial)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if len(nu.Roles) == 0 {
		nu.Roles = []string{RoleMember}
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FirstName       string   `json:"first_name" validate:"max=25"`
	LastName        string   `json:"last_name" validate:"max=25"`
	MiddleInitial   *string  `json:"middle_initial" validate:"omitempty,max=2"`
	Username        string   `json:"username" validate:"omitempty,min=3,max=50,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email,max=50"`
	GroupID         *string  `json:"group_id"`
	SupervisorID    *string  `json:"supervisor_id"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate cleans uu and fills the blanks from origUsr.
func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	fallback := func(val, orig string, lower bool) string {
		if v := core.CleanString(val, lower); v != "" {
			return v
		}
		return orig
	}
	uu.FirstName = fallback(uu.FirstName, origUsr.FirstName, false)
	uu.LastName = fallback(uu.LastName, origUsr.LastName, false)
	uu.Username = fallback(uu.Username, origUsr.Username, true)
	uu.Email = fallback(uu.Email, origUsr.Email, true)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type GetFilter struct {
	ID              string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search       string    `query:"search"`
	Roles        []string  `query:"role"`
	IsActive     *bool     `query:"is_active"`
	GroupID      string    `query:"group_id"`
	SupervisorID string    `query:"supervisor_id"`
	CreatedFrom  time.Time `query:"created_from"`
	CreatedTo    time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.GroupID == "" &&
		qf.SupervisorID == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.GroupID = core.CleanString(qf.GroupID)
	qf.SupervisorID = core.CleanString(qf.SupervisorID)
}

// Group is a team of members working the same language, usually under one supervisor.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type NewGroup struct {
	Name     string `json:"name" validate:"required,max=50"`
	Language string `json:"language" validate:"omitempty,max=50"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Language = core.CleanString(ng.Language)
	return validate.Struct(ng)
}
