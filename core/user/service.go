package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrGroupNotFound  = core.NewNotFoundError("group")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of the names, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error

		CreateGroup(ctx context.Context, grp Group) (Group, error)
		QueryGroups(ctx context.Context) ([]Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		DeleteGroup(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Subordinates(ctx context.Context, supervisorID string) ([]User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error

		CreateGroup(ctx context.Context, ng NewGroup) (Group, error)
		QueryGroups(ctx context.Context) ([]Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		DeleteGroup(ctx context.Context, id string) error
		GroupMembers(ctx context.Context, groupID string) ([]User, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:            uuid.NewString(),
		FirstName:     nu.FirstName,
		LastName:      nu.LastName,
		MiddleInitial: nu.MiddleInitial,
		Username:      nu.Username,
		Email:         nu.Email,
		GroupID:       nu.GroupID,
		SupervisorID:  nu.SupervisorID,
		IsActive:      true,
		Roles:         nu.Roles,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, orderings)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) Subordinates(ctx context.Context, supervisorID string) ([]User, error) {
	return svc.repo.QueryUsers(ctx, &QueryFilter{SupervisorID: supervisorID}, []core.DBOrdering{{Field: "last_name", Ascending: true}})
}

func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.MiddleInitial != nil {
		usr.MiddleInitial = core.CleanString(*uu.MiddleInitial)
	}
	if uu.GroupID != nil {
		usr.GroupID = *uu.GroupID
	}
	if uu.SupervisorID != nil {
		usr.SupervisorID = *uu.SupervisorID
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Roles != nil {
		usr.Roles = uu.Roles
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive || usr.Email == "" {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{
			Name:  usr.Name(),
			UID:   EncodeUID(usr),
			Token: makeToken(usr),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(ErrInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}
	_, err = svc.SetPassword(ctx, usr, data.Password)
	return err
}

func (svc *service) CreateGroup(ctx context.Context, ng NewGroup) (Group, error) {
	grp := Group{
		ID:        uuid.NewString(),
		Name:      ng.Name,
		Language:  ng.Language,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateGroup(ctx, grp)
}

func (svc *service) QueryGroups(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryGroups(ctx)
}

func (svc *service) GetGroup(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroup(ctx, id)
}

func (svc *service) DeleteGroup(ctx context.Context, id string) error {
	return svc.repo.DeleteGroup(ctx, id)
}

func (svc *service) GroupMembers(ctx context.Context, groupID string) ([]User, error) {
	if _, err := svc.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, &QueryFilter{GroupID: groupID}, []core.DBOrdering{{Field: "last_name", Ascending: true}})
}
