// Package remindersvc sends the monthly language hour reminders.
package remindersvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/score"
	"github.com/langhour/tracker/core/user"
)

const templateName = "monthly_reminder"

var nowFunc = time.Now

// StatusChecker computes a member's current standing.
type StatusChecker interface {
	Status(ctx context.Context, userID string, today time.Time) (proficiency.Profile, error)
}

// Report sums up a reminder run.
type Report struct {
	Checked  int // active members
	Notified int
	Failed   int // status lookups that failed
}

type Service struct {
	conf     *core.Config
	logger   core.Logger
	users    user.Service
	profiles StatusChecker
	mailSvc  core.EmailService
	sched    *gocron.Scheduler
}

func NewService(
	conf *core.Config, logger core.Logger, users user.Service, profiles StatusChecker, mailSvc core.EmailService,
) *Service {
	return &Service{
		conf:     conf,
		logger:   logger,
		users:    users,
		profiles: profiles,
		mailSvc:  mailSvc,
		sched:    gocron.NewScheduler(time.UTC),
	}
}

// Start schedules Run on the configured day of every month, then returns.
func (svc *Service) Start() error {
	day := svc.conf.Reminder.DayOfMonth
	if day < 1 || day > 28 {
		return errors.Errorf("reminder day of month must be between 1 and 28, got %d", day)
	}
	svc.sched.SingletonModeAll()
	_, err := svc.sched.Every(1).Month(day).At(svc.conf.Reminder.At).Do(func() {
		report, err := svc.Run(context.Background())
		if err != nil {
			svc.logger.Error("monthly reminders failed", err)
			return
		}
		svc.logger.Info(fmt.Sprintf("monthly reminders sent: %d/%d members notified, %d failed",
			report.Notified, report.Checked, report.Failed))
	})
	if err != nil {
		return errors.Wrap(err, "scheduling reminders")
	}
	svc.sched.StartAsync()
	return nil
}

func (svc *Service) Stop() {
	svc.sched.Stop()
}

// NextRun is the time of the next scheduled run, zero when not started.
func (svc *Service) NextRun() time.Time {
	_, next := svc.sched.NextRun()
	return next
}

// Run emails every active member who is behind on hours or close to a test.
func (svc *Service) Run(ctx context.Context) (Report, error) {
	today := nowFunc().UTC()
	active := true
	members, err := svc.users.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleMember}, IsActive: &active}, nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying members")
	}

	var (
		report      Report
		messages    []*core.EmailMessage
		supervisors = make(map[string]user.User)
	)
	for _, m := range members {
		report.Checked++
		p, err := svc.profiles.Status(ctx, m.ID, today)
		if err != nil {
			report.Failed++
			svc.logger.Warn("computing member status", m, err)
			continue
		}
		if !p.NeedsAttention() || m.Email == "" {
			continue
		}
		msg := svc.newMessage(m, p, today)
		if sup, ok := svc.supervisor(ctx, m.SupervisorID, supervisors); ok && sup.Email != "" {
			msg.Cc = []mail.Address{{Name: sup.Name(), Address: sup.Email}}
		}
		messages = append(messages, msg)
		report.Notified++
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	return report, nil
}

func (svc *Service) supervisor(ctx context.Context, id string, cache map[string]user.User) (user.User, bool) {
	if id == "" {
		return user.User{}, false
	}
	if sup, ok := cache[id]; ok {
		return sup, true
	}
	sup, err := svc.users.GetByID(ctx, id)
	if err != nil {
		svc.logger.Warn("looking up supervisor "+id, err)
		return user.User{}, false
	}
	cache[id] = sup
	return sup, true
}

type reminderData struct {
	Name          string
	Month         string
	HoursDone     int
	HoursRequired int
	DLPTNotice    string
	SLTENotice    string
}

func (svc *Service) newMessage(m user.User, p proficiency.Profile, today time.Time) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: m.Name(), Address: m.Email}},
		Subject:      "Monthly language hours",
		TemplateName: templateName,
		TemplateData: reminderData{
			Name:          m.Name(),
			Month:         today.Format("January 2006"),
			HoursDone:     p.HoursDone,
			HoursRequired: p.HoursRequired,
			DLPTNotice:    notice(p.DLPT),
			SLTENotice:    notice(p.SLTE),
		},
	}
}

// notice is the banner text for a due date, empty when nothing needs saying.
func notice(info proficiency.DueInfo) string {
	if info.DaysLeft == nil {
		return ""
	}
	switch info.Status {
	case score.StatusOverdue:
		return fmt.Sprintf("overdue since %s", info.Due)
	case score.StatusUrgent, score.StatusWarning:
		return fmt.Sprintf("due %s (%d days left)", info.Due, *info.DaysLeft)
	}
	return ""
}
