package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/user"
	logsvc "github.com/langhour/tracker/services/logger"
)

// NewConfig returns a test configuration, without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Language Hour Tracker",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:8501",
		PasswordResetTimeoutDelta: time.Hour,
		MaxUploadSize:             1 << 20,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 30 * time.Minute,
			DisableReqLogs:            true,
		},
		Reminder: core.ReminderConfig{DayOfMonth: 25, At: "09:00"},
	}
}

func NewLogger() core.Logger {
	return logsvc.NewNopLogger()
}

// NewValidator registers every custom validator and translation, as the api does at startup.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	hours.InitValidators(validate, translator)
	proficiency.InitValidators(validate, translator)
	return validate, translator
}

type UserOpt func(usr *user.User)

func WithSupervisor(id string) UserOpt {
	return func(usr *user.User) { usr.SupervisorID = id }
}

func WithGroup(id string) UserOpt {
	return func(usr *user.User) { usr.GroupID = id }
}

func Inactive() UserOpt {
	return func(usr *user.User) { usr.IsActive = false }
}

func CreatedAt(tstamp time.Time) UserOpt {
	return func(usr *user.User) {
		usr.CreatedAt = tstamp.UTC()
		usr.UpdatedAt = tstamp.UTC()
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, lastName, uname, email, pwd string,
	roles []string,
	opts ...UserOpt,
) user.User {
	tstamp := time.Now().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	for _, opt := range opts {
		opt(&usr)
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func LogHours(t *testing.T, repo hours.Repository, userID string, date time.Time, hrs int, modalities ...string) hours.Entry {
	if len(modalities) == 0 {
		modalities = []string{hours.ModListening}
	}
	entries, err := repo.CreateEntries(context.Background(), hours.Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		Hours:       hrs,
		Description: "study",
		Modalities:  modalities,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("logHours() failed: %v", err)
	}
	return entries[0]
}
