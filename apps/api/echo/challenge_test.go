package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/challenge"
	"github.com/trezcool/ujuzi/core/user"
)

func TestChallengeApi_lifecycle(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	adminToken := getToken(t, admin)
	janeToken := getToken(t, jane)

	newChallenge := map[string]interface{}{
		"title":         "30 days of Go",
		"description":   "Ship something every day.",
		"xp_reward":     500,
		"points_reward": 200,
		"duration_days": 30,
	}

	// creation is admin-only
	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges", janeToken, newChallenge))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges", adminToken, newChallenge))
	require.Equal(t, http.StatusCreated, rec.Code)
	var ch challenge.UserChallenge
	decodeBody(t, rec, &ch)

	// listed while its window is open
	rec = app.do(newRequest(t, http.MethodGet, "/v1/challenges", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var active []challenge.ActiveChallenge
	decodeBody(t, rec, &active)
	require.Len(t, active, 1)

	// join
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges/"+ch.ID+"/join", janeToken, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var part challenge.Participation
	decodeBody(t, rec, &part)
	require.Equal(t, jane.ID, part.UserID)

	// joining twice is rejected
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges/"+ch.ID+"/join", janeToken, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// progress then completion, which pays out the rewards
	rec = app.do(newAuthRequest(t, http.MethodPut, "/v1/participations/"+part.ID+"/progress", janeToken,
		map[string]interface{}{"progress_percent": 40}))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &part)
	require.Equal(t, 40, part.ProgressPercent)
	require.False(t, part.IsCompleted)

	rec = app.do(newAuthRequest(t, http.MethodPut, "/v1/participations/"+part.ID+"/progress", janeToken,
		map[string]interface{}{"progress_percent": 100, "mark_completed": true}))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &part)
	require.True(t, part.IsCompleted)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/me", janeToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decodeBody(t, rec, &me)
	require.Equal(t, 200, me.Points)
	require.Equal(t, 500, me.XP)
}

func TestChallengeApi_progressIsOwnerOnly(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges", getToken(t, admin), map[string]interface{}{
		"title":         "30 days of Go",
		"description":   "Ship something every day.",
		"duration_days": 30,
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var ch challenge.UserChallenge
	decodeBody(t, rec, &ch)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges/"+ch.ID+"/join", getToken(t, jane), nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var part challenge.Participation
	decodeBody(t, rec, &part)

	rec = app.do(newAuthRequest(t, http.MethodPut, "/v1/participations/"+part.ID+"/progress", getToken(t, john),
		map[string]interface{}{"progress_percent": 99}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChallengeApi_standings(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges", getToken(t, admin), map[string]interface{}{
		"title":         "30 days of Go",
		"description":   "Ship something every day.",
		"duration_days": 30,
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var ch challenge.UserChallenge
	decodeBody(t, rec, &ch)

	for _, tok := range []string{getToken(t, jane), getToken(t, john)} {
		rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/challenges/"+ch.ID+"/join", tok, nil))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// jane makes progress
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/participations", getToken(t, jane), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var parts []challenge.Participation
	decodeBody(t, rec, &parts)
	require.Len(t, parts, 1)

	rec = app.do(newAuthRequest(t, http.MethodPut, "/v1/participations/"+parts[0].ID+"/progress", getToken(t, jane),
		map[string]interface{}{"progress_percent": 60}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/challenges/"+ch.ID+"/standings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var standings struct {
		challenge.UserChallenge
		Standings []challenge.StandingEntry `json:"standings"`
	}
	decodeBody(t, rec, &standings)
	require.Len(t, standings.Standings, 2)
	require.Equal(t, "jane", standings.Standings[0].Username)
	require.Equal(t, 1, standings.Standings[0].Rank)
}

func TestChallengeApi_events(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	janeToken := getToken(t, jane)

	now := time.Now().UTC()
	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/events", getToken(t, admin), map[string]interface{}{
		"name":          "Hacktoberfest",
		"description":   "Contribute to open source.",
		"start_date":    now.Add(-time.Hour).Format(time.RFC3339),
		"end_date":      now.Add(24 * time.Hour).Format(time.RFC3339),
		"reward_points": 50,
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var evt challenge.PlatformEvent
	decodeBody(t, rec, &evt)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var events []challenge.PlatformEvent
	decodeBody(t, rec, &events)
	require.Len(t, events, 1)

	// joining pays the participation reward immediately
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/events/"+evt.ID+"/join", janeToken, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var joined JoinEventResponse
	decodeBody(t, rec, &joined)
	require.Equal(t, 50, joined.Reward.Points)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/me", janeToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decodeBody(t, rec, &me)
	require.Equal(t, 50, me.Points)
}
