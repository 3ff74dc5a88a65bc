package dig_container

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/coinsforstudy/coins/apps/api/echo"
	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	emailsvc "github.com/coinsforstudy/coins/services/email"
	logsvc "github.com/coinsforstudy/coins/services/logger"
	"github.com/coinsforstudy/coins/storage/database"
	sqlxrepos "github.com/coinsforstudy/coins/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// ShutdownSignal receives OS interrupts and shutdowns requested by the server.
	ShutdownSignal chan os.Signal

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		SessionSvc *economy.Service
		MailSvc    core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	economy.InitValidators(validate, translator)
	return validate
}

func newShutdownSignal() ShutdownSignal {
	shutdown := make(ShutdownSignal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address:        p.Conf.Server.Host,
		Debug:          p.Conf.Debug,
		TestMode:       p.Conf.TestMode,
		DisableReqLogs: p.Conf.Server.DisableReqLogs,
		SigningKey:     []byte(p.Conf.SecretKey),
		Logger:         p.Logger,
		AppName:        p.Conf.AppName,
		SessionSvc:     p.SessionSvc,
		MailSvc:        p.MailSvc,
		Validate:       p.Validate,
		Translator:     p.Translator,
		Shutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewSessionRepository))
	must(c.Provide(economy.NewService))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newShutdownSignal))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
