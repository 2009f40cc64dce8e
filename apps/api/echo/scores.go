package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/score"
	"github.com/langhour/tracker/core/user"
)

type scoreApi struct {
	svc      proficiency.Service
	usrSvc   user.Service
	auditSvc audit.Service
	validate *validator.Validate
}

func registerScoreAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := scoreApi{
		svc:      deps.ScoreSvc,
		usrSvc:   deps.UserSvc,
		auditSvc: deps.AuditSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/scores", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/status", api.status)
	sg.POST("/requirement", api.requirement)
	sg.POST("/due-dates", api.dueDates)
	sg.DELETE("/:id", api.destroy)
}

func (api *scoreApi) query(ctx echo.Context) error {
	sc, err := resolveScope(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	filter := proficiency.QueryFilter{UserIDs: sc.UserIDs, Kind: core.CleanString(ctx.QueryParam("kind"))}
	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	if records == nil {
		records = []proficiency.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *scoreApi) create(ctx echo.Context) error {
	var data proficiency.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	owner := ctxUsr
	if id := core.CleanString(data.UserID); id != "" {
		if owner, err = visibleUser(ctx, api.usrSvc, ctxUsr, id); err != nil {
			return err
		}
	}
	data.UserID = owner.ID
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	rec, err := api.svc.Add(rctx, data)
	if err != nil {
		return errors.Wrap(err, "adding score")
	}
	api.auditSvc.Record(rctx, ctxUsr.ID, "added %s %s result for %s", rec.Language, rec.Kind, owner.Username)
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *scoreApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	rec, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting score")
	}
	ok, err := canAccess(ctx, api.usrSvc, rec.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return proficiency.ErrNotFound
	}
	if err = api.svc.Delete(rctx, rec.ID); err != nil {
		return errors.Wrap(err, "deleting score")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// status returns the profile of `user_id` (the caller by default) as of today.
func (api *scoreApi) status(ctx echo.Context) error {
	subject, err := resolveSubject(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	profile, err := api.svc.Status(ctx.Request().Context(), subject.ID, nowFunc().UTC())
	if err != nil {
		return errors.Wrap(err, "building profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *scoreApi) requirement(ctx echo.Context) error {
	var data RequirementRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequirementRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	pair, err := data.Pair()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RequirementResponse{
		HoursRequired: score.CurrentRules.HoursRequired(pair),
		RulesVersion:  score.CurrentRules.Version,
	})
}

func (api *scoreApi) dueDates(ctx echo.Context) error {
	var data DueDatesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DueDatesRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	listening, _ := score.Parse(data.Listening)
	reading, _ := score.Parse(data.Reading)

	due, err := score.CheckDueDates(listening, reading, data.LastDLPT, data.LastSLTE)
	if err != nil {
		return err
	}
	today := nowFunc().UTC()
	return ctx.JSON(http.StatusOK, DueDatesResponse{
		DLPT: proficiency.NewDueInfo(due.DLPT, score.DLPTWindow, today),
		SLTE: proficiency.NewDueInfo(due.SLTE, score.SLTEWindow, today),
	})
}

type (
	RequirementRequest struct {
		Listening string   `json:"listening" validate:"required,scorecode"`
		Reading   string   `json:"reading" validate:"required,scorecode"`
		Dialects  []string `json:"dialects" validate:"omitempty,dive,scorecode"`
	}

	RequirementResponse struct {
		HoursRequired int    `json:"hours_required"`
		RulesVersion  string `json:"rules_version"`
	}

	// DueDatesRequest dates are MM/DD/YYYY; a blank date gives an unknown due date.
	DueDatesRequest struct {
		Listening string `json:"listening" validate:"required,scorecode"`
		Reading   string `json:"reading" validate:"required,scorecode"`
		LastDLPT  string `json:"last_dlpt"`
		LastSLTE  string `json:"last_slte"`
	}

	DueDatesResponse struct {
		DLPT proficiency.DueInfo `json:"dlpt"`
		SLTE proficiency.DueInfo `json:"slte"`
	}
)

func (rr RequirementRequest) Pair() (*score.Pair, error) {
	listening, err := score.Parse(rr.Listening)
	if err != nil {
		return nil, err
	}
	reading, err := score.Parse(rr.Reading)
	if err != nil {
		return nil, err
	}
	pair := &score.Pair{Listening: listening, Reading: reading}
	for _, code := range rr.Dialects {
		s, err := score.Parse(code)
		if err != nil {
			return nil, err
		}
		pair.Dialects = append(pair.Dialects, s)
	}
	return pair, nil
}
