package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/user"
)

type courseApi struct {
	svc      course.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.DELETE("/:id", api.destroy)
}

func (api *courseApi) query(ctx echo.Context) error {
	sc, err := resolveScope(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.Query(ctx.Request().Context(), course.QueryFilter{UserIDs: sc.UserIDs})
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
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

	c, err := api.svc.Add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	c, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	ok, err := canAccess(ctx, api.usrSvc, c.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return course.ErrNotFound
	}
	if err = api.svc.Delete(rctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
