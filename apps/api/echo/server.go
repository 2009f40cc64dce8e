package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/course"
	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/message"
	"github.com/langhour/tracker/core/proficiency"
	"github.com/langhour/tracker/core/user"
	"github.com/langhour/tracker/storage/cache"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Blocklist  cache.Blocklist
		Registry   *prometheus.Registry // a fresh registry when nil

		UserSvc    user.Service
		HoursSvc   hours.Service
		ScoreSvc   proficiency.Service
		CourseSvc  course.Service
		MessageSvc message.Service
		FileSvc    file.Service
		AuditSvc   audit.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Blocklist == nil {
		deps.Blocklist = cache.NewMemoryBlocklist()
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.auth = newAuthenticator(deps.Conf, deps.UserSvc, deps.Blocklist)
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(newMetricsMiddleware(s.deps.Registry))
	if !conf.Server.DisableReqLogs {
		s.app.Use(requestLoggerMiddleware(s.deps.Logger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(conf.MaxUploadSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	registerUserAPI(v1, jwt, s.auth, s.deps)
	registerHoursAPI(v1, jwt, s.deps)
	registerScoreAPI(v1, jwt, s.deps)
	registerCourseAPI(v1, jwt, s.deps)
	registerMessageAPI(v1, jwt, s.deps)
	registerFileAPI(v1, jwt, s.deps)
	registerLogAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.deps.Conf.AppName+" API!")
}

// bodyLimit leaves room for the multipart envelope around an upload.
func bodyLimit(maxUpload int64) string {
	const envelope = 1 << 20
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return strconv.FormatInt(maxUpload+envelope, 10) + "B"
}
