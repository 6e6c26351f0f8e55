package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	echoapi "github.com/ecampus-dev/aula/apps/api/echo"
	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
	"github.com/ecampus-dev/aula/services/classroom"
	dummymail "github.com/ecampus-dev/aula/services/email/dummy"
	sendgridmail "github.com/ecampus-dev/aula/services/email/sendgrid"
	logsvc "github.com/ecampus-dev/aula/services/logger"
	"github.com/ecampus-dev/aula/storage/database"
	sqlxrepos "github.com/ecampus-dev/aula/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repos
	acctRepo := sqlxrepos.NewAccountRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	auditRepo := sqlxrepos.NewAuditRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = dummymail.NewService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf, logger)
	}
	acctSvc := account.NewService(acctRepo, logger)
	courseSvc := course.NewService(courseRepo)
	creds := account.NewCredentialStore(acctRepo, conf)
	newClient := func(ctx context.Context, tok *oauth2.Token) syncdom.Client {
		return classroom.NewClient(ctx, creds.OAuthConfig(), tok, conf.Google.ClassroomBaseURL)
	}
	syncSvc := syncdom.NewService(creds, newClient, acctRepo, courseRepo, auditRepo, mailSvc, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	account.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AccountSvc: acctSvc,
			CourseSvc:  courseSvc,
			SyncSvc:    syncSvc,
			Creds:      creds,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
