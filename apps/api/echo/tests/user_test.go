package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/d2monteblanco/ki-aikido-system/apps/api/echo"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
	testutil "github.com/d2monteblanco/ki-aikido-system/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	retired := testutil.CreateUser(t, app.store.Users, "Retired", "retired@kiaikido.test", testPassword, user.RoleDojoUser, &app.norte.ID)
	retired.IsActive = false
	_, err := app.store.Users.UpdateUser(context.Background(), retired)
	require.NoError(t, err)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": reqMsg, "password": reqMsg}),
		},
		{
			name: "invalid email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "sensei", Password: testPassword}),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "nobody@kiaikido.test", Password: testPassword}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: app.sensei.Email, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Email: retired.Email, Password: testPassword}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		body := marchallObj(t, echoapi.LoginRequest{Email: "  SENSEI@kiaikido.test ", Password: testPassword})
		rec := app.do(http.MethodPost, "/v1/users/login", "", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, app.sensei.ID, resp.User.ID)
		assert.Equal(t, user.RoleDojoUser, resp.User.Role)
		assert.False(t, resp.User.LastLogin.IsZero())

		// the issued token is accepted
		rec = app.do(http.MethodGet, "/v1/users/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	ghost := user.User{ID: 999, Name: "Ghost", Email: "ghost@kiaikido.test", Role: user.RoleAdmin, IsActive: true}
	retired := testutil.CreateUser(t, app.store.Users, "Retired", "retired@kiaikido.test", "", user.RoleDojoUser, &app.norte.ID)
	retiredToken := getToken(t, retired, app.conf)
	retired.IsActive = false
	_, err := app.store.Users.UpdateUser(context.Background(), retired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid token", token: "not.a.jwt", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "deleted user", token: getToken(t, ghost, app.conf), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "deactivated user", token: retiredToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "sensei", token: getToken(t, app.sensei, app.conf), wantCode: http.StatusOK, wantData: marchallObj(t, app.sensei)},
		{name: "admin", token: getToken(t, app.admin, app.conf), wantCode: http.StatusOK, wantData: marchallObj(t, app.admin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/v1/users/me", tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	adminToken := getToken(t, app.admin, app.conf)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, app.sensei, app.conf),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "get all", path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, app.admin, app.sensei),
		},
		{
			name: "search", path: "/v1/users?search=SEN", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, app.sensei),
		},
		{
			name: "role", path: "/v1/users?role=admin", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, app.admin),
		},
		{
			name: "dojo", path: "/v1/users?dojo_id=" + itoa(app.norte.ID), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("roles", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/users/roles", adminToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
	})
}
