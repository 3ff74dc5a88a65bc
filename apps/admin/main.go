package main

import (
	"fmt"
	"log"
	"os"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	emailsvc "github.com/coinsforstudy/coins/services/email"
	logsvc "github.com/coinsforstudy/coins/services/logger"
	"github.com/coinsforstudy/coins/storage/database"
	sqlxrepos "github.com/coinsforstudy/coins/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	if err := core.ParseEmailTemplates(); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger, log.New(os.Stdout, "", 0))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		svc:     economy.NewService(sqlxrepos.NewSessionRepository(db), conf),
		mailSvc: mailSvc,
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	mailSvc.Wait()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
