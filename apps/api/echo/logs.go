package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/score"
)

const defaultLogLimit = 100

type logApi struct {
	svc audit.Service
}

func registerLogAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := logApi{svc: deps.AuditSvc}
	g.GET("/logs", api.query, jwt, adminMiddleware())
}

// query lists audit logs, latest first. Filters: `user_id`, `since` (MM/DD/YYYY) and `limit`.
func (api *logApi) query(ctx echo.Context) error {
	filter := audit.QueryFilter{UserID: core.CleanString(ctx.QueryParam("user_id")), Limit: defaultLogLimit}
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return core.NewValidationError(errors.New("invalid limit"), core.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
		filter.Limit = n
	}
	since, ok, err := score.ParseDate(ctx.QueryParam("since"))
	if err != nil {
		return err
	}
	if ok {
		filter.Since = since
	}

	logs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying logs")
	}
	if logs == nil {
		logs = []audit.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}
