package proficiency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("score")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		// QueryRecords returns matching records, most recent test first.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	// HoursCounter sums a user's language hours for a month.
	HoursCounter interface {
		MonthTotal(ctx context.Context, userID string, month time.Time) (int, error)
	}

	Service interface {
		Add(ctx context.Context, nr NewRecord) (Record, error)
		Get(ctx context.Context, id string) (Record, error)
		Query(ctx context.Context, filter QueryFilter) ([]Record, error)
		Delete(ctx context.Context, id string) error
		// Status builds userID's profile as of today.
		Status(ctx context.Context, userID string, today time.Time) (Profile, error)
	}

	service struct {
		repo  Repository
		hours HoursCounter
		rules score.Rules
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, hours HoursCounter) Service {
	return &service{repo: repo, hours: hours, rules: score.CurrentRules}
}

func (svc *service) Add(ctx context.Context, nr NewRecord) (Record, error) {
	rec, err := nr.Record()
	if err != nil {
		return Record{}, core.NewValidationError(err)
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	return svc.repo.CreateRecord(ctx, rec)
}

func (svc *service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}

func (svc *service) Status(ctx context.Context, userID string, today time.Time) (Profile, error) {
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{UserID: userID})
	if err != nil {
		return Profile{}, errors.Wrap(err, "querying records")
	}
	done, err := svc.hours.MonthTotal(ctx, userID, today)
	if err != nil {
		return Profile{}, errors.Wrap(err, "counting hours")
	}
	return buildProfile(svc.rules, userID, records, done, today), nil
}

// buildProfile expects records sorted most recent first.
func buildProfile(rules score.Rules, userID string, records []Record, hoursDone int, today time.Time) Profile {
	p := Profile{UserID: userID, RulesVersion: rules.Version, HoursDone: hoursDone}
	for i := range records {
		rec := records[i]
		switch rec.Kind {
		case KindDLPT:
			if p.LastDLPT == nil {
				p.LastDLPT = &rec.Date
				p.Scores = rec.Pair()
			}
		case KindSLTE:
			if p.LastSLTE == nil {
				p.LastSLTE = &rec.Date
			}
		}
	}
	p.HoursRequired = rules.HoursRequired(p.Scores)

	// dialect scores count toward listening, as for the hour requirement;
	// without scores on record the shortest intervals apply
	var listening, reading score.Score
	if p.Scores != nil {
		listening, reading = p.Scores.EffectiveListening(), p.Scores.Reading
	}
	due := score.NextDueDates(listening, reading, p.LastDLPT, p.LastSLTE)
	p.DLPT = NewDueInfo(due.DLPT, score.DLPTWindow, today)
	p.SLTE = NewDueInfo(due.SLTE, score.SLTEWindow, today)
	return p
}
