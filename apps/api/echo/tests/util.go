package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/markbook/apps/api/echo"
	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/course"
	"github.com/trezcool/markbook/core/user"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
	"github.com/trezcool/markbook/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	echoapi.Server
	conf      *core.Config
	db        *boltrepos.DB
	usrRepo   user.Repository
	courseSvc course.Service
	tokens    *echoapi.TokenIssuer
}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		AppName:   "Markbook",
		Env:       "TEST",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
			DisableReqLogs:            true,
		},
	}
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := testConfig()

	// set up DB & repos
	db := testutil.OpenBolt(t)
	usrRepo := boltrepos.NewUserRepository(db)
	courseRepo := boltrepos.NewCourseRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	usrSvc := user.NewService(usrRepo)
	courseSvc := course.NewService(courseRepo, testutil.NopLogger{})

	// set up server
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     testutil.NopLogger{},
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return testApp{
		Server:    srv,
		conf:      conf,
		db:        db,
		usrRepo:   usrRepo,
		courseSvc: courseSvc,
		tokens:    echoapi.NewTokenIssuer(conf),
	}
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

func (app testApp) getToken(t *testing.T, usr user.User) string {
	token, err := app.tokens.Generate(usr)
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

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		if rec.Body.Len() > 0 {
			t.Errorf("failed! data = %v; want empty body", rec.Body.String())
		}
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// run serves each test against app.
func (app testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
