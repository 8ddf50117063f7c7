package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/tests"
)

func Test_userApi_register(t *testing.T) {
	a := setup(t)
	testutil.CreateUser(t, a.UserRepo, "King", "king@test.cd", "Secret!42", access.RoleStudent)

	a.run(t, []httpTest{
		{
			name: "invalid input", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"name": " ", "email": "lol", "password": "1234567890", "role": "admin"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Kind:  core.KindValidation,
				Error: "invalid input",
				Fields: map[string]string{
					"name":     "this field is required",
					"email":    "email must be a valid email address",
					"password": "password cannot be entirely numeric",
					"role":     "role must be one of [student instructor]",
				},
			}),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"name": "King", "email": "KING@test.cd", "password": "Secret!42"}`),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Kind: core.KindConflict, Error: "a user with this email already exists"}),
		},
		{
			name: "bad json", method: http.MethodPost, path: "/api/auth/register",
			body:     []byte(`{"name": `),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := a.do(http.MethodPost, "/api/auth/register", "", []byte(`{"name": "Awe", "email": "awe@test.cd", "password": "Secret!42", "role": "instructor"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp echoapi.TokenResponse
	unmarchall(t, rec, &resp)
	require.NotNil(t, resp.User)
	assert.Equal(t, "awe@test.cd", resp.User.Email)
	assert.Equal(t, access.RoleInstructor, resp.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	claims, err := a.auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.Equal(t, access.RoleInstructor, claims.Role)
	assert.Len(t, a.Mail.SentMessages(), 1)
}

func Test_userApi_login(t *testing.T) {
	a := setup(t)
	usr := testutil.CreateUser(t, a.UserRepo, "Awe", "awe@test.cd", "Secret!42", access.RoleStudent)
	invalidCreds := marchallObj(t, httpErr{Kind: core.KindValidation, Error: "invalid credentials"})

	a.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/api/auth/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Kind:   core.KindValidation,
				Error:  "invalid input",
				Fields: map[string]string{"email": "this field is required", "password": "this field is required"},
			}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "lol@test.cd", "password": "Secret!42"}`), wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/api/auth/login",
			body: []byte(`{"email": "awe@test.cd", "password": "lol"}`), wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
	})

	rec := a.do(http.MethodPost, "/api/auth/login", "", []byte(`{"email": "AWE@test.cd", "password": "Secret!42"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.TokenResponse
	unmarchall(t, rec, &resp)
	require.NotNil(t, resp.User)
	assert.Equal(t, usr.ID, resp.User.ID)
	assert.True(t, resp.User.LastLogin.Valid)
}

func Test_userApi_profile(t *testing.T) {
	a := setup(t)
	usr := testutil.CreateUser(t, a.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent)
	ghost := user.User{ID: "ghost", Name: "Ghost", Role: access.RoleAdmin}

	otherAuth := echoapi.NewAuth(&core.Config{AppName: a.Conf.AppName, SecretKey: "other"})
	forged, err := otherAuth.GenerateToken(otherAuth.UserClaims(usr))
	require.NoError(t, err)

	expiredClaims := a.auth.UserClaims(usr)
	expiredClaims.ExpiresAt.Time = time.Now().Add(-time.Minute)
	expired, err := a.auth.GenerateToken(expiredClaims)
	require.NoError(t, err)

	invalidToken := marchallObj(t, httpErr{Kind: core.KindUnauthenticated, Error: "invalid or expired jwt"})

	a.run(t, []httpTest{
		{name: "no token", path: "/api/auth/profile", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "garbage token", path: "/api/auth/profile", token: "lol", wantCode: http.StatusUnauthorized, wantData: invalidToken},
		{name: "forged token", path: "/api/auth/profile", token: forged, wantCode: http.StatusUnauthorized, wantData: invalidToken},
		{name: "expired token", path: "/api/auth/profile", token: expired, wantCode: http.StatusUnauthorized, wantData: invalidToken},
		{
			name: "unknown user", path: "/api/auth/profile", token: a.getToken(t, ghost), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Kind: core.KindUnauthenticated, Error: "access denied"}),
		},
		{name: "ok", path: "/api/auth/profile", token: a.getToken(t, usr), wantData: marchallObj(t, usr)},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	a := setup(t)
	usr := testutil.CreateUser(t, a.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent)

	staleClaims := a.auth.UserClaims(usr, time.Now().Add(-8*24*time.Hour).Unix())
	stale, err := a.auth.GenerateToken(staleClaims)
	require.NoError(t, err)

	a.run(t, []httpTest{
		{
			name: "refresh expired", method: http.MethodPost, path: "/api/auth/token-refresh", token: stale,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Kind: core.KindForbidden, Error: "refresh has expired"}),
		},
	})

	origClaims := a.auth.UserClaims(usr, time.Now().Add(-time.Hour).Unix())
	token, err := a.auth.GenerateToken(origClaims)
	require.NoError(t, err)

	rec := a.do(http.MethodPost, "/api/auth/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.TokenResponse
	unmarchall(t, rec, &resp)
	assert.Nil(t, resp.User)
	claims, err := a.auth.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, origClaims.OrigIssuedAt, claims.OrigIssuedAt, "original issue time is kept")
	assert.Equal(t, usr.ID, claims.Subject)
}

func Test_userApi_admin(t *testing.T) {
	a := setup(t)

	now := time.Now()
	admin := testutil.CreateUser(t, a.UserRepo, "Admin", "admin@test.cd", "", access.RoleAdmin, now.Add(-3*time.Hour))
	teacher := testutil.CreateUser(t, a.UserRepo, "Teacher", "teacher@test.cd", "", access.RoleInstructor, now.Add(-2*time.Hour))
	student := testutil.CreateUser(t, a.UserRepo, "Awe", "awe@test.cd", "", access.RoleStudent, now.Add(-time.Hour))

	adminToken := a.getToken(t, admin)
	path := func(search, ordering string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/users?" + v.Encode()
	}

	a.run(t, []httpTest{
		{name: "auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/api/users", token: a.getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Kind: core.KindForbidden, Error: "forbidden"}),
		},
		{name: "get all", path: "/api/users", token: adminToken, wantData: marchallList(t, student, teacher, admin)},
		{name: "search", path: path("TEACH", ""), token: adminToken, wantData: marchallList(t, teacher)},
		{name: "search (unknown)", path: path("lol", ""), token: adminToken, wantData: marchallList(t)},
		{name: "roles", path: path("", "", "admin", "student"), token: adminToken, wantData: marchallList(t, student, admin)},
		{name: "order by name", path: path("", "name"), token: adminToken, wantData: marchallList(t, admin, student, teacher)},
		{name: "order by -role,name", path: path("", "-role,name"), token: adminToken, wantData: marchallList(t, student, teacher, admin)},
		{
			name: "unknown ordering", path: path("", "password"), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Kind:   core.KindValidation,
				Error:  "ordering: unknown ordering field: password",
				Fields: map[string]string{"ordering": "unknown ordering field: password"},
			}),
		},
		{name: "retrieve", path: "/api/users/" + student.ID, token: adminToken, wantData: marchallObj(t, student)},
		{
			name: "retrieve (unknown)", path: "/api/users/lol", token: adminToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Kind: core.KindNotFound, Error: "user not found"}),
		},
		{
			name: "delete self", method: http.MethodDelete, path: "/api/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Kind: core.KindForbidden, Error: "you cannot delete your own account"}),
		},
	})

	rec := a.do(http.MethodPut, "/api/users/"+student.ID, adminToken, []byte(`{"name": "Awe Boss", "role": "instructor"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	unmarchall(t, rec, &updated)
	assert.Equal(t, "Awe Boss", updated.Name)
	assert.Equal(t, access.RoleInstructor, updated.Role)
	assert.Equal(t, student.Email, updated.Email)

	rec = a.do(http.MethodDelete, "/api/users/"+student.ID, adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/api/users/"+student.ID, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
