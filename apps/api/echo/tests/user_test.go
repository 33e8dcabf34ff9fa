package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/markbook/apps/api/echo"
	"github.com/trezcool/markbook/core/user"
	"github.com/trezcool/markbook/tests"
)

func decodeToken(t *testing.T, body []byte) string {
	t.Helper()
	var resp echoapi.TokenResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Token
}

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Markbook API!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func Test_server_shutdownOnClosedDatabase(t *testing.T) {
	app := setup(t)
	alice := testutil.CreateUser(t, app.usrRepo, "alice", "s3cret-pwd")
	token := app.getToken(t, alice)
	require.NoError(t, app.db.Close())

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: "Internal Server Error"}),
	}, rec)

	select {
	case sig := <-app.ShutdownSignal():
		assert.Equal(t, syscall.SIGTERM, sig)
	default:
		t.Error("shutdown was not signalled")
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "taken", "s3cret-pwd")

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "password too similar", body: []byte(`{"username":"johndoe","password":"johndoe1"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password cannot be similar to the username"}),
		},
		{
			name: "username taken", body: []byte(`{"username":"Taken","password":"another-pwd"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "password longer than bcrypt allows", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"username": "johndoe", "password": strings.Repeat("x", 100)}),
			wantData: marchallObj(t, map[string]string{"password": "password cannot be longer than 72 bytes"}),
		},
		{
			name: "malformed json", body: []byte(`{"username":`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid request body"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	app.run(t, tests)

	t.Run("registered and logged in", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", []byte(`{"username":" NewUser ","password":"s3cret-pwd"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		token := decodeToken(t, rec.Body.Bytes())

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
		assert.Equal(t, "newuser", me.Username)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "alice", "s3cret-pwd")

	invalid := marchallObj(t, httpErr{Error: "invalid credentials"})
	tests := []httpTest{
		{name: "wrong password", body: []byte(`{"username":"alice","password":"wrong-pwd"}`), wantCode: http.StatusUnauthorized, wantData: invalid},
		{name: "unknown user", body: []byte(`{"username":"nobody","password":"s3cret-pwd"}`), wantCode: http.StatusUnauthorized, wantData: invalid},
		{
			name: "missing password", body: []byte(`{"username":"alice"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name: "password too long", body: marchallObj(t, map[string]string{"username": "alice", "password": strings.Repeat("x", 100)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password cannot be longer than 72 bytes"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	app.run(t, tests)

	t.Run("logged in", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", []byte(`{"username":"ALICE","password":"s3cret-pwd"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeToken(t, rec.Body.Bytes()))
	})
}

func Test_userApi_authRequired(t *testing.T) {
	app := setup(t)
	alice := testutil.CreateUser(t, app.usrRepo, "alice", "s3cret-pwd")
	ghost := user.User{ID: alice.ID + 100, Username: "ghost"}

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", token: "not-a-jwt", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "deleted user", token: app.getToken(t, ghost), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].path = "/v1/courses"
	}
	app.run(t, tests)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	alice := testutil.CreateUser(t, app.usrRepo, "alice", "s3cret-pwd")

	old := time.Now().Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix() // older than threshold
	unrefreshableToken, err := app.tokens.Generate(alice, old)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	app.run(t, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", app.getToken(t, alice))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		// cannot guess new token.. just check that it's usable
		token := decodeToken(t, rec.Body.Bytes())
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
