package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/score"
	"github.com/langhour/tracker/core/user"
)

const (
	orderingParam = "ordering"
	userIDParam   = "user_id"
	fromParam     = "from"
	toParam       = "to"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// DateRange binds the optional `from` and `to` query params (MM/DD/YYYY, both inclusive).
type DateRange struct {
	From time.Time
	To   time.Time
}

func (dr *DateRange) Bind(ctx echo.Context) error {
	var flds []core.FieldError
	for param, dst := range map[string]*time.Time{fromParam: &dr.From, toParam: &dr.To} {
		t, ok, err := score.ParseDate(ctx.QueryParam(param))
		if err != nil {
			flds = append(flds, core.FieldError{Field: param, Error: score.ErrMalformedDate.Error()})
			continue
		}
		if ok {
			*dst = t
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(score.ErrMalformedDate, flds...)
	}
	return nil
}

// scope is the set of users whose data the caller may list.
// A nil UserIDs with All set means everybody (admins).
type scope struct {
	All     bool
	UserIDs []string
}

// resolveScope narrows a listing to `user_id` when given, else to everything the caller can see.
// Users the caller may not see are reported as not found.
func resolveScope(ctx echo.Context, svc user.Service) (scope, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return scope{}, errors.Wrap(err, "getting context user")
	}
	if id := core.CleanString(ctx.QueryParam(userIDParam)); id != "" {
		target, err := visibleUser(ctx, svc, ctxUsr, id)
		if err != nil {
			return scope{}, err
		}
		return scope{UserIDs: []string{target.ID}}, nil
	}
	switch {
	case ctxUsr.IsAdmin():
		return scope{All: true}, nil
	case ctxUsr.IsSupervisor():
		subs, err := svc.Subordinates(ctx.Request().Context(), ctxUsr.ID)
		if err != nil {
			return scope{}, errors.Wrap(err, "querying subordinates")
		}
		ids := []string{ctxUsr.ID}
		for _, sub := range subs {
			ids = append(ids, sub.ID)
		}
		return scope{UserIDs: ids}, nil
	default:
		return scope{UserIDs: []string{ctxUsr.ID}}, nil
	}
}

// resolveSubject returns the user named by `user_id`, defaulting to the caller.
func resolveSubject(ctx echo.Context, svc user.Service) (user.User, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	id := core.CleanString(ctx.QueryParam(userIDParam))
	if id == "" || id == ctxUsr.ID {
		return ctxUsr, nil
	}
	return visibleUser(ctx, svc, ctxUsr, id)
}

func visibleUser(ctx echo.Context, svc user.Service, ctxUsr user.User, id string) (user.User, error) {
	if id == ctxUsr.ID {
		return ctxUsr, nil
	}
	target, err := svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errHttpNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !ctxUsr.CanView(target) {
		return user.User{}, errHttpNotFound
	}
	return target, nil
}

// canAccess reports whether the caller may see data owned by ownerID.
func canAccess(ctx echo.Context, svc user.Service, ownerID string) (bool, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return false, errors.Wrap(err, "getting context user")
	}
	if ownerID == ctxUsr.ID || ctxUsr.IsAdmin() {
		return true, nil
	}
	if !ctxUsr.IsSupervisor() {
		return false, nil
	}
	owner, err := svc.GetByID(ctx.Request().Context(), ownerID)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "finding owner by ID")
	}
	return ctxUsr.CanView(owner), nil
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}
)
