package echoapi

import (
	"context"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		SigningKey     []byte
		Logger         core.Logger
		AppName        string
		SessionSvc     *economy.Service
		MailSvc        core.EmailService
		Validate       *validator.Validate
		Translator     ut.Translator
		Now            func() time.Time
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Logger.SetLevel(log.INFO)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := jwtMiddleware(s.opts.SigningKey)

	registerSessionAPI(v1, jwt, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Coins for Study API!")
}
