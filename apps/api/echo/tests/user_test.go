package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/langhour/tracker/apps/api/echo"
	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/user"
	emailsvc "github.com/langhour/tracker/services/email"
	testutil "github.com/langhour/tracker/tests"
)

const testPassword = "Kx9#mQ2!vLp7"

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, app.usrRepo, "Hero", "Test", "hero", "hero@test.cd", testPassword, []string{user.RoleMember})
	testutil.CreateUser(t, app.usrRepo, "N Dog", "Test", "ndog", "ndog@test.cd", testPassword, []string{user.RoleMember}, testutil.Inactive())

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: "this field is required", Password: "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "ghost", Password: testPassword}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "hero", Password: "nope"}),
		},
		{
			name: "inactive user", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "ndog", Password: testPassword}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, app, tests)

	t.Run("logged in with email", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodPost, "/v1/users/login",
			marchallObj(t, echoapi.LoginRequest{Username: " HERO@test.cd ", Password: testPassword})))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: member.ID})
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())

		logs, err := app.auditRepo.QueryLogs(context.Background(), audit.QueryFilter{UserID: member.ID})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "logged in", logs[0].Message)
	})
}

func Test_userApi_logout(t *testing.T) {
	app := setup(t)
	member := app.createUser(t, "Hero", "hero", []string{user.RoleMember})
	token := app.token(t, member)

	rec := app.do(newAuthRequest(http.MethodGet, "/v1/messages/unread-count", token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/users/logout", token))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/messages/unread-count", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})}, rec)

	// a new session is unaffected
	rec = app.do(newAuthRequest(http.MethodGet, "/v1/messages/unread-count", app.token(t, member)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	path := func(search, ordering string, isActive string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != "" {
			v.Add("is_active", isActive)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}

	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))
	naughty := app.createUser(t, "N Dog", "ndog", []string{user.RoleMember}, testutil.Inactive())

	adminToken := app.token(t, admin)
	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: app.token(t, boss), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, admin, boss, hero, naughty)},
		{name: "search (unknown)", path: path("lol", "", ""), token: adminToken, wantData: marchallList(t)},
		{name: "search=HER", path: path("HER", "", ""), token: adminToken, wantData: marchallList(t, hero)},
		{name: "role=supervisor:", path: path("", "", "", user.RoleSupervisor), token: adminToken, wantData: marchallList(t, boss)},
		{
			name: "role=admin:,member:", path: path("", "", "", user.RoleAdmin, user.RoleMember),
			token: adminToken, wantData: marchallList(t, admin, hero, naughty),
		},
		{name: "is_active=false", path: path("", "", "false"), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "order by -username", path: path("", "-username", ""), token: adminToken, wantData: marchallList(t, naughty, hero, boss, admin)},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))
	other := app.createUser(t, "Other", "other", []string{user.RoleMember})

	notFound := marchallObj(t, httpErr{Error: "not found"})
	tests := []httpTest{
		{name: "own profile", path: "/v1/users/" + hero.ID, token: app.token(t, hero), wantData: marchallObj(t, hero)},
		{name: "member cannot see others", path: "/v1/users/" + other.ID, token: app.token(t, hero), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "supervisor sees subordinate", path: "/v1/users/" + hero.ID, token: app.token(t, boss), wantData: marchallObj(t, hero)},
		{name: "supervisor cannot see others", path: "/v1/users/" + other.ID, token: app.token(t, boss), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin sees anyone", path: "/v1/users/" + other.ID, token: app.token(t, admin), wantData: marchallObj(t, other)},
		{name: "unknown id", path: "/v1/users/nope", token: app.token(t, admin), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "subordinates", path: "/v1/users/subordinates", token: app.token(t, boss), wantData: marchallList(t, hero)},
		{
			name: "subordinates (member)", path: "/v1/users/subordinates", token: app.token(t, hero),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)

	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember}, testutil.WithSupervisor(boss.ID))
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name: "member cannot change roles", path: "/v1/users/" + hero.ID, token: app.token(t, hero),
			body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "supervisor cannot edit members", path: "/v1/users/" + hero.ID, token: app.token(t, boss),
			body: []byte(`{"first_name": "Zero"}`), wantCode: http.StatusForbidden, wantData: forbidden,
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
	}
	runHTTPTests(t, app, tests)

	t.Run("member edits own name", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, "/v1/users/"+hero.ID, app.token(t, hero), []byte(`{"first_name": " Zero ", "middle_initial": "Q"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Zero", usr.FirstName)
		assert.Equal(t, "Q", usr.MiddleInitial)
		assert.Equal(t, hero.Username, usr.Username)
		assert.Equal(t, boss.ID, usr.SupervisorID)
	})
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			FirstName: "New", LastName: "Member", Username: uname, Email: uname + "@test.cd",
			Password: testPassword, PasswordConfirm: testPassword, Roles: roles,
		})
	}

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/users/register", app.token(t, admin), newUser("newbie")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, []string{user.RoleMember}, usr.Roles)
	assert.True(t, usr.IsActive)

	tests := []httpTest{
		{
			name: "duplicate username", body: newUser("newbie"), token: app.token(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "role above own", body: newUser("dev", user.RoleAdminDev), token: app.token(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})
	dev := app.createUser(t, "Dev", "dev", []string{user.RoleAdminDev})
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "member cannot delete", path: "/v1/users/" + hero.ID, token: app.token(t, hero), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "no self delete", path: "/v1/users/" + admin.ID, token: app.token(t, admin), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "no deleting higher roles", path: "/v1/users/" + dev.ID, token: app.token(t, admin), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "deleted", path: "/v1/users/" + hero.ID, token: app.token(t, admin), wantCode: http.StatusNoContent},
		{
			name: "already deleted", path: "/v1/users/" + hero.ID, token: app.token(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
	}
	runHTTPTests(t, app, tests)

	t.Run("bulk delete", func(t *testing.T) {
		other := app.createUser(t, "Other", "other", []string{user.RoleMember})
		adminToken := app.token(t, admin)

		rec := app.do(newAuthRequest(http.MethodDelete, "/v1/users?id="+other.ID+"&id="+dev.ID, adminToken))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)
		_, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: dev.ID})
		require.NoError(t, err, "higher ranked user must survive")
		_, err = app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: other.ID})
		require.NoError(t, err, "nothing is deleted when one target is refused")

		rec = app.do(newAuthRequest(http.MethodDelete, "/v1/users?id="+admin.ID, adminToken))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: forbidden}, rec)

		rec = app.do(newAuthRequest(http.MethodDelete, "/v1/users?id="+other.ID+"&id=nope", adminToken))
		require.Equal(t, http.StatusNoContent, rec.Code)
		_, err = app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: other.ID})
		assert.True(t, core.IsNotFound(err))
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	naughty := app.createUser(t, "N Dog", "ndog", []string{user.RoleMember}, testutil.Inactive())
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})

	now := time.Now()
	unrefreshable := echoapi.NewClaims(app.conf, hero)
	unrefreshable.OrigIssuedAt = now.Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix() // older than threshold
	unrefreshableToken, err := echoapi.GenerateToken(app.conf, unrefreshable)
	require.NoError(t, err)

	expired := &echoapi.Claims{StandardClaims: jwt.StandardClaims{
		Subject:   hero.ID,
		ExpiresAt: now.Add(-time.Minute).Unix(),
		IssuedAt:  now.Add(-time.Hour).Unix(),
	}}
	expiredToken, err := echoapi.GenerateToken(app.conf, expired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Expired token", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "Inactive user not allowed", token: app.token(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runHTTPTests(t, app, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", app.token(t, hero)))
		require.Equal(t, http.StatusOK, rec.Code)
		// cannot guess new token.. just check that it's not empty
		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})
}

func Test_userApi_resetPassword(t *testing.T) {
	app := setup(t)
	hero := app.createUser(t, "Hero", "hero", []string{user.RoleMember})

	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []struct {
		httpTest
		emailSent bool
	}{
		{httpTest: httpTest{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"}),
		}},
		{httpTest: httpTest{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		}},
		{httpTest: httpTest{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData,
		}},
		{httpTest: httpTest{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: hero.Email}),
			wantData: successData,
		}, emailSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			rec := app.do(newRequest(http.MethodPost, "/v1/users/password-reset", tt.body))
			checkCodeAndData(t, tt.httpTest, rec)

			sent := emailsvc.LastSentMessages()
			if !tt.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			assert.Equal(t, hero.Email, sent[0].To[0].Address)
		})
	}
}

func Test_userApi_groups(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", []string{user.RoleAdmin})
	boss := app.createUser(t, "Boss", "boss", []string{user.RoleSupervisor})
	member := app.createUser(t, "Hero", "hero", []string{user.RoleMember})

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/groups", app.token(t, member), []byte(`{"name": "Levant"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/groups", app.token(t, admin), []byte(`{"name": ""}`)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "this field is required"}`)}, rec)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/groups", app.token(t, admin), []byte(`{"name": " Levant ", "language": "Arabic"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grp user.Group
	decode(t, rec, &grp)
	assert.Equal(t, "Levant", grp.Name)

	inGroup := app.createUser(t, "Grouped", "grouped", []string{user.RoleMember}, testutil.WithGroup(grp.ID), testutil.WithSupervisor(boss.ID))
	stranger := app.createUser(t, "Stranger", "stranger", []string{user.RoleMember}, testutil.WithGroup(grp.ID))

	tests := []httpTest{
		{name: "list", path: "/v1/groups", token: app.token(t, member), wantData: marchallList(t, grp)},
		{name: "retrieve", path: "/v1/groups/" + grp.ID, token: app.token(t, member), wantData: marchallObj(t, grp)},
		{name: "members (supervisor sees subordinates only)", path: "/v1/groups/" + grp.ID + "/members", token: app.token(t, boss), wantData: marchallList(t, inGroup)},
		{name: "stranger hidden from supervisor", path: "/v1/users/" + stranger.ID, token: app.token(t, boss), wantCode: http.StatusNotFound},
		{name: "members (member)", path: "/v1/groups/" + grp.ID + "/members", token: app.token(t, member), wantCode: http.StatusForbidden},
		{
			name: "unknown group", path: "/v1/groups/nope/members", token: app.token(t, boss),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("admin sees all members", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/groups/"+grp.ID+"/members", app.token(t, admin)))
		require.Equal(t, http.StatusOK, rec.Code)
		var members []user.User
		decode(t, rec, &members)
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		assert.ElementsMatch(t, []string{inGroup.ID, stranger.ID}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodDelete, "/v1/groups/"+grp.ID, app.token(t, admin)))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_logApi_query(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "Test", "admin", "admin@test.cd", testPassword, []string{user.RoleAdmin})
	member := app.createUser(t, "Hero", "hero", []string{user.RoleMember})

	rec := app.do(newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, echoapi.LoginRequest{Username: "admin", Password: testPassword})))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/logs", app.token(t, member)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/logs?user_id="+admin.ID, app.token(t, admin)))
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []audit.Log
	decode(t, rec, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "logged in", logs[0].Message)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/logs?limit=0", app.token(t, admin)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"limit": "must be a positive integer"}`)}, rec)
}
