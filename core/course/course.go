package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course")
	ErrInvalidDates   = errors.New("invalid course dates")
	ErrEndBeforeStart = errors.New("end date must not be before start date")
)

// Course is a formal language course a user attended.
type Course struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Length    int       `json:"length"` // hours
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

type NewCourse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name" validate:"required,max=50"`
	Code      string `json:"code" validate:"omitempty,max=50"`
	Length    int    `json:"length" validate:"min=0"`
	StartDate string `json:"start_date" validate:"required"` // MM/DD/YYYY
	EndDate   string `json:"end_date" validate:"required"`   // MM/DD/YYYY
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	_, _, err := nc.dates()
	return err
}

func (nc NewCourse) dates() (start, end time.Time, err error) {
	var flds []core.FieldError
	if start, _, err = score.ParseDate(nc.StartDate); err != nil {
		flds = append(flds, core.FieldError{Field: "start_date", Error: err.Error()})
	}
	if end, _, err = score.ParseDate(nc.EndDate); err != nil {
		flds = append(flds, core.FieldError{Field: "end_date", Error: err.Error()})
	}
	if len(flds) == 0 && end.Before(start) {
		flds = append(flds, core.FieldError{Field: "end_date", Error: ErrEndBeforeStart.Error()})
	}
	if len(flds) > 0 {
		return time.Time{}, time.Time{}, core.NewValidationError(ErrInvalidDates, flds...)
	}
	return start, end, nil
}

type QueryFilter struct {
	UserID  string   `query:"user_id"`
	UserIDs []string `query:"-"`
}

func (qf *QueryFilter) Match(c Course) bool {
	if qf.UserID != "" && c.UserID != qf.UserID {
		return false
	}
	if len(qf.UserIDs) > 0 && !core.StringInSlice(c.UserID, qf.UserIDs) {
		return false
	}
	return true
}

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses returns matching courses, latest start first.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service interface {
		Add(ctx context.Context, nc NewCourse) (Course, error)
		Get(ctx context.Context, id string) (Course, error)
		Query(ctx context.Context, filter QueryFilter) ([]Course, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Add(ctx context.Context, nc NewCourse) (Course, error) {
	start, end, err := nc.dates()
	if err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{
		ID:        uuid.NewString(),
		UserID:    nc.UserID,
		Name:      nc.Name,
		Code:      nc.Code,
		Length:    nc.Length,
		StartDate: start,
		EndDate:   end,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}
