package main

import (
	"fmt"
	"log"
	"os"

	"github.com/d2monteblanco/ki-aikido-system/apps/shared"
	"github.com/d2monteblanco/ki-aikido-system/core"
	emailsvc "github.com/d2monteblanco/ki-aikido-system/services/email"
	logsvc "github.com/d2monteblanco/ki-aikido-system/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB; migrations are run by the migrate command only
	store, err := shared.OpenStore(conf, logger, false /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	validate, _ := shared.NewValidator()
	svcs := shared.NewServices(store, validate, logger, conf)
	core.ParseEmailTemplates(logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger, os.Stdout)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		conf:     conf,
		logger:   logger,
		out:      os.Stdout,
		usrSvc:   svcs.User,
		dojoSvc:  svcs.Dojo,
		eventSvc: svcs.Event,
		mailSvc:  mailSvc,
	}
	if store.DB != nil {
		cli.db = store.DB.DB
	}

	err = cli.run(os.Args)
	if cErr := store.Close(); cErr != nil {
		logger.Error(fmt.Sprintf("closing database: %v", cErr), cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
