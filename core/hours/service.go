package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("entry")
	ErrInvalidHours = errors.New(fmt.Sprintf("hours must be between 0 and %d", MaxHoursPerEntry))
	ErrNoModality   = errors.New("at least one valid modality is required")
	ErrNoEntries    = errors.New("no entries to log")

	nowFunc = time.Now
)

type (
	Repository interface {
		CreateEntries(ctx context.Context, entries ...Entry) ([]Entry, error)
		GetEntry(ctx context.Context, id string) (Entry, error)
		// QueryEntries returns matching entries, latest first.
		QueryEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
		DeleteEntry(ctx context.Context, id string) error
		// SumHours sums the hours of userID logged between from and to, both inclusive.
		SumHours(ctx context.Context, userID string, from, to time.Time) (int, error)
	}

	Service interface {
		Log(ctx context.Context, ne NewEntry) (Entry, error)
		// BulkLog stores already parsed entries (e.g. a spreadsheet import) for userID in one batch.
		// Nothing is stored if any entry is invalid.
		BulkLog(ctx context.Context, userID string, entries []Entry) ([]Entry, error)
		Get(ctx context.Context, id string) (Entry, error)
		Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
		Delete(ctx context.Context, id string) error
		// MonthTotal sums userID's hours dated within month's year and month.
		MonthTotal(ctx context.Context, userID string, month time.Time) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Log(ctx context.Context, ne NewEntry) (Entry, error) {
	entry, err := ne.Entry()
	if err != nil {
		return Entry{}, err
	}
	entries, err := svc.BulkLog(ctx, ne.UserID, []Entry{entry})
	if err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

func (svc *service) BulkLog(ctx context.Context, userID string, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, core.NewValidationError(ErrNoEntries)
	}
	now := nowFunc().UTC()
	prepared := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if err := checkEntry(e); err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: fmt.Sprintf("entries[%d]", i), Error: err.Error()})
		}
		e.ID = uuid.NewString()
		e.UserID = userID
		y, m, d := e.Date.Date()
		e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		e.CreatedAt = now
		prepared = append(prepared, e)
	}
	return svc.repo.CreateEntries(ctx, prepared...)
}

func checkEntry(e Entry) error {
	if e.Hours < 0 || e.Hours > MaxHoursPerEntry {
		return ErrInvalidHours
	}
	if e.Date.IsZero() {
		return errors.New("date is required")
	}
	if len(e.Modalities) == 0 {
		return ErrNoModality
	}
	for _, mod := range e.Modalities {
		if !core.StringInSlice(mod, Modalities) {
			return errors.Wrap(ErrNoModality, mod)
		}
	}
	return nil
}

func (svc *service) Get(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEntry(ctx, id)
}

func (svc *service) MonthTotal(ctx context.Context, userID string, month time.Time) (int, error) {
	first, last := MonthBounds(month)
	total, err := svc.repo.SumHours(ctx, userID, first, last)
	if err != nil {
		return 0, errors.Wrap(err, "summing hours")
	}
	return total, nil
}
