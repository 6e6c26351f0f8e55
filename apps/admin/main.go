package main

import (
	"context"
	"log"
	"os"

	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	syncdom "github.com/ecampus-dev/aula/core/sync"
	"github.com/ecampus-dev/aula/services/classroom"
	dummymail "github.com/ecampus-dev/aula/services/email/dummy"
	sendgridmail "github.com/ecampus-dev/aula/services/email/sendgrid"
	logsvc "github.com/ecampus-dev/aula/services/logger"
	"github.com/ecampus-dev/aula/storage/database"
	sqlxrepos "github.com/ecampus-dev/aula/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	rollbarLogger := logsvc.NewRollbarLogger(logger, conf)
	rollbarLogger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	// set up repos & services
	acctRepo := sqlxrepos.NewAccountRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	auditRepo := sqlxrepos.NewAuditRepository(db)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = dummymail.NewService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf, rollbarLogger)
	}
	core.ParseEmailTemplates(conf, rollbarLogger)

	creds := account.NewCredentialStore(acctRepo, conf)
	newClient := func(ctx context.Context, tok *oauth2.Token) syncdom.Client {
		return classroom.NewClient(ctx, creds.OAuthConfig(), tok, conf.Google.ClassroomBaseURL)
	}
	syncSvc := syncdom.NewService(creds, newClient, acctRepo, courseRepo, auditRepo, mailSvc, rollbarLogger, conf)

	// start CLI
	cli := commandLine{
		db:       db,
		acctRepo: acctRepo,
		syncSvc:  syncSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
