package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/analytics"
	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/metrics"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Translator     ut.Translator
		Auth           *Auth
		Metrics        *metrics.Metrics
		UserSvc        *user.Service
		CourseSvc      *course.Service
		AssessmentSvc  *assessment.Service
		AnalyticsSvc   *analytics.Service
		DisableReqLogs bool
	}

	Server struct {
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps *Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	s.app.Use(s.deps.Metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	api := s.app.Group("/api")
	api.GET("/health", health)

	jwt := s.deps.Auth.Middleware(s.deps.UserSvc)

	registerUserAPI(api, jwt, s.deps.Auth, s.deps.UserSvc)
	registerCourseAPI(api, jwt, s.deps.CourseSvc, s.deps.Metrics)
	registerAssessmentAPI(api, jwt, s.deps.AssessmentSvc, s.deps.Metrics)
	registerAnalyticsAPI(api, jwt, s.deps.AnalyticsSvc)
}

// Start listens on the configured address until Shutdown or Close is called.
// Listening errors are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
	})
}
