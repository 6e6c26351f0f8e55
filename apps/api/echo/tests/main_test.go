package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	echoapi "github.com/ecampus-dev/aula/apps/api/echo"
	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
	"github.com/ecampus-dev/aula/core/course"
	syncdom "github.com/ecampus-dev/aula/core/sync"
	dummymail "github.com/ecampus-dev/aula/services/email/dummy"
	inmemdb "github.com/ecampus-dev/aula/storage/database/inmem"
	testutil "github.com/ecampus-dev/aula/tests"
)

var (
	conf *core.Config
	app  *echoapi.Server
	db   *inmemdb.DB

	acctRepo   account.Repository
	courseRepo course.Repository

	acctSvc *account.Service

	// syncClient is swapped per test; the sync service's factory hands it out.
	syncClient syncdom.Client

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	conf = &core.Config{
		TestMode:        true,
		Env:             "TEST",
		AppName:         "Aula",
		SecretKey:       []byte("secret"),
		WorkDir:         filepath.Join(wd, "..", "..", "..", ".."),
		FrontendBaseURL: "http://localhost:3000",
		AdminEmail:      mail.Address{Address: "admin@test.cd"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Google: core.GoogleConfig{ClientID: "cid", ClientSecret: "secret"},
	}
	logger := testutil.Logger{}

	// set up DB & repos
	db = inmemdb.NewDB()
	acctRepo = inmemdb.NewAccountRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	auditRepo := inmemdb.NewAuditRepository(db)

	// set up services
	mailSvc := dummymail.NewService(conf)
	acctSvc = account.NewService(acctRepo, logger)
	courseSvc := course.NewService(courseRepo)
	creds := account.NewCredentialStore(acctRepo, conf)
	newClient := func(context.Context, *oauth2.Token) syncdom.Client { return syncClient }
	syncSvc := syncdom.NewService(creds, newClient, acctRepo, courseRepo, auditRepo, mailSvc, logger, conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	account.LoadCommonPasswords(conf, logger)

	// set up server
	app = echoapi.NewServer(
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

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, acct account.Account) string {
	claims := echoapi.GetAccountClaims(acct)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
