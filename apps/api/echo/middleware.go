package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/user"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rc, err := getRequestContext(ctx)
			if err != nil {
				return errors.Wrap(err, "getting request context")
			}
			if rc.Claims.IsAdmin && claimsHaveAnyRole(rc.Claims, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets supervisors and admins through.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rc, err := getRequestContext(ctx)
		if err != nil {
			return errors.Wrap(err, "getting request context")
		}
		if rc.Claims.IsAdmin || rc.Claims.IsSupervisor {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

func claimsHaveAnyRole(claims Claims, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if core.StringInSlice(role, claims.Roles) {
			return true
		}
	}
	return false
}

// newMetricsMiddleware counts requests and observes their latency, labelled by route.
func newMetricsMiddleware(reg prometheus.Registerer) echo.MiddlewareFunc {
	factory := promauto.With(reg)
	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "langhours",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests processed.",
	}, []string{"method", "route", "code"})
	latency := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "langhours",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func requestLoggerMiddleware(logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}
			req, res := ctx.Request(), ctx.Response()

			var usr user.User
			if rc, err := getRequestContext(ctx); err == nil {
				usr.ID = rc.Claims.Subject
				usr.Username = rc.Claims.Username
			}
			logger.Info("request", usr, map[string]interface{}{
				"method":     req.Method,
				"uri":        req.RequestURI,
				"status":     res.Status,
				"bytes_out":  res.Size,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  ctx.RealIP(),
			})
			return nil
		}
	}
}
