// Package container builds the dependencies shared by the api and admin binaries.
package container

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/message"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/user"
	emailsvc "github.com/langhour/tracker/services/email"
	remindersvc "github.com/langhour/tracker/services/reminder"
	"github.com/langhour/tracker/storage/database"
	dummydb "github.com/langhour/tracker/storage/database/dummy"
	sqlxrepos "github.com/langhour/tracker/storage/database/sqlx"
)

// EngineDummy keeps everything in memory; nothing survives a restart.
const EngineDummy = "dummy"

type (
	Repositories struct {
		User    user.Repository
		Hours   hours.Repository
		Score   proficiency.Repository
		Course  course.Repository
		Message message.Repository
		File    file.Repository
		Audit   audit.Repository
	}

	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		DB         *sqlx.DB // nil with the dummy engine
		Validate   *validator.Validate
		Translator ut.Translator
		MailSvc    core.EmailService
		Repos      Repositories

		UserSvc     user.Service
		HoursSvc    hours.Service
		ScoreSvc    proficiency.Service
		CourseSvc   course.Service
		MessageSvc  message.Service
		FileSvc     file.Service
		AuditSvc    audit.Service
		ReminderSvc *remindersvc.Service
	}
)

// New opens the configured database and builds every service on top of it.
// Postgres databases are created when missing, but not migrated.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (*Container, error) {
	c := &Container{
		Conf:       conf,
		Logger:     logger,
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
		MailSvc:    emailsvc.NewService(conf, logger),
	}

	if conf.Database.Engine == EngineDummy {
		db := dummydb.Open()
		c.Repos = Repositories{
			User:    dummydb.NewUserRepository(db),
			Hours:   dummydb.NewHoursRepository(db),
			Score:   dummydb.NewProficiencyRepository(db),
			Course:  dummydb.NewCourseRepository(db),
			Message: dummydb.NewMessageRepository(db),
			File:    dummydb.NewFileRepository(db),
			Audit:   dummydb.NewAuditRepository(db),
		}
	} else {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Repos = Repositories{
			User:    sqlxrepos.NewUserRepository(db),
			Hours:   sqlxrepos.NewHoursRepository(db),
			Score:   sqlxrepos.NewProficiencyRepository(db),
			Course:  sqlxrepos.NewCourseRepository(db),
			Message: sqlxrepos.NewMessageRepository(db),
			File:    sqlxrepos.NewFileRepository(db),
			Audit:   sqlxrepos.NewAuditRepository(db),
		}
	}

	core.InitValidators(c.Validate, c.Translator)
	user.InitValidators(c.Validate, c.Translator)
	hours.InitValidators(c.Validate, c.Translator)
	proficiency.InitValidators(c.Validate, c.Translator)
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	c.UserSvc = user.NewService(c.Repos.User, c.MailSvc, conf)
	c.HoursSvc = hours.NewService(c.Repos.Hours)
	c.ScoreSvc = proficiency.NewService(c.Repos.Score, c.HoursSvc)
	c.CourseSvc = course.NewService(c.Repos.Course)
	c.MessageSvc = message.NewService(c.Repos.Message)
	c.FileSvc = file.NewService(c.Repos.File, conf)
	c.AuditSvc = audit.NewService(c.Repos.Audit, logger)
	c.ReminderSvc = remindersvc.NewService(conf, logger, c.UserSvc, c.ScoreSvc, c.MailSvc)
	return c, nil
}

// Migrate applies pending migrations. A no-op with the dummy engine.
func (c *Container) Migrate() error {
	if c.DB == nil {
		return nil
	}
	return database.Migrate(c.DB)
}

func (c *Container) Close() error {
	if c.ReminderSvc != nil {
		c.ReminderSvc.Stop()
	}
	if c.DB == nil {
		return nil
	}
	return errors.Wrap(c.DB.Close(), "closing database")
}
