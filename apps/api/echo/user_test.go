package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

func TestAuthApi_registerAndLogin(t *testing.T) {
	app := setup(t)

	rec := app.do(newRequest(t, http.MethodPost, "/v1/auth/register", map[string]string{
		"name":             "Jane Doe",
		"username":         "jane",
		"email":            "jane@test.cd",
		"password":         "Str0ngPassw0rd!",
		"password_confirm": "Str0ngPassw0rd!",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created user.User
	decodeBody(t, rec, &created)
	require.Equal(t, "jane", created.Username)
	require.Equal(t, user.RoleLearner, created.Role)
	require.True(t, created.IsActive)

	// password is never serialized
	require.NotContains(t, rec.Body.String(), "password_hash")

	rec = app.do(newRequest(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": "jane",
		"password": "Str0ngPassw0rd!",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var login LoginResponse
	decodeBody(t, rec, &login)
	require.NotEmpty(t, login.Token)

	// the token grants access to /users/me
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/me", login.Token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var me user.User
	decodeBody(t, rec, &me)
	require.Equal(t, created.ID, me.ID)
}

// A token signed by GenerateToken must round-trip through the JWT middleware:
// the parsed context token carries our Claims, not some other claim type.
func TestAuth_generatedTokenRoundTrips(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)

	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/users/me", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var me user.User
	decodeBody(t, rec, &me)
	require.Equal(t, usr.ID, me.ID)
	require.Equal(t, "jane", me.Username)

	// role claims survive too: admin gates must see IsAdmin
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users", getToken(t, admin), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users", token, nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthApi_loginRejectsBadCredentials(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)

	rec := app.do(newRequest(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": "jane",
		"password": "wrong-password",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(newRequest(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": "nobody",
		"password": "whatever",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthApi_registerIgnoresRequestedRole(t *testing.T) {
	app := setup(t)

	rec := app.do(newRequest(t, http.MethodPost, "/v1/auth/register", map[string]string{
		"name":             "Sneaky",
		"username":         "sneaky",
		"email":            "sneaky@test.cd",
		"role":             user.RoleAdmin,
		"password":         "Str0ngPassw0rd!",
		"password_confirm": "Str0ngPassw0rd!",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created user.User
	decodeBody(t, rec, &created)
	require.Equal(t, user.RoleLearner, created.Role)
}

func TestAuthApi_dailyLogin(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	token := getToken(t, usr)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/auth/daily-login", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var sum gamify.AwardSummary
	decodeBody(t, rec, &sum)
	require.Equal(t, gamify.ActionDailyLogin, sum.Action)
	require.Equal(t, 5, sum.Points)
	require.Contains(t, sum.BadgesAwarded, gamify.BadgeFirstLogin)

	// unauthenticated calls are rejected
	rec = app.do(newRequest(t, http.MethodPost, "/v1/auth/daily-login", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserApi_adminOnlyQuery(t *testing.T) {
	app := setup(t)
	learner := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/users", getToken(t, learner), nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users", getToken(t, admin), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []user.User
	decodeBody(t, rec, &users)
	require.Len(t, users, 2)
}

func TestUserApi_retrieveSelfOrAdmin(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)

	// self
	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/users/"+jane.ID, getToken(t, jane), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// someone else's profile is hidden
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/"+john.ID, getToken(t, jane), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// admin sees everyone
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/"+john.ID, getToken(t, admin), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUserApi_updateRestrictedFields(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	token := getToken(t, jane)

	// a learner cannot promote themselves
	rec := app.do(newAuthRequest(t, http.MethodPut, "/v1/users/"+jane.ID, token, map[string]string{
		"role": user.RoleAdmin,
	}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// but may change their name
	rec = app.do(newAuthRequest(t, http.MethodPut, "/v1/users/"+jane.ID, token, map[string]string{
		"name": "Jane D.",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated user.User
	decodeBody(t, rec, &updated)
	require.Equal(t, "Jane D.", updated.Name)
}

func TestUserApi_destroy(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	adminToken := getToken(t, admin)

	// admins cannot delete themselves
	rec := app.do(newAuthRequest(t, http.MethodDelete, "/v1/users/"+admin.ID, adminToken, nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodDelete, "/v1/users/"+jane.ID, adminToken, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/"+jane.ID, adminToken, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
