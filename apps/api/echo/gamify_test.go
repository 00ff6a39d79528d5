package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

func (app *testApp) award(t *testing.T, userID, action string) {
	t.Helper()
	_, err := app.gameSvc.AwardPoints(context.Background(), userID, action, "")
	require.NoError(t, err)
}

func TestGamifyApi_leaderboard(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)

	app.award(t, jane.ID, gamify.ActionCompleteModule) // 50 + badge bonus
	app.award(t, john.ID, gamify.ActionCreateComment)  // 10

	rec := app.do(newRequest(t, http.MethodGet, "/v1/leaderboard/top", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var top []gamify.LeaderboardEntry
	decodeBody(t, rec, &top)
	require.Len(t, top, 2)
	require.Equal(t, "jane", top[0].Username)
	require.EqualValues(t, 1, top[0].Rank.Int)

	// paged listing
	rec = app.do(newRequest(t, http.MethodGet, "/v1/leaderboard?page=1&per_page=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Results []gamify.LeaderboardEntry `json:"results"`
		Total   int                       `json:"total"`
	}
	decodeBody(t, rec, &page)
	require.Len(t, page.Results, 1)
	require.Equal(t, 2, page.Total)
}

func TestGamifyApi_myRank(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)

	app.award(t, jane.ID, gamify.ActionCompleteModule)
	app.award(t, john.ID, gamify.ActionCreateComment)

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/leaderboard/me", getToken(t, john), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rank RankResponse
	decodeBody(t, rec, &rank)
	require.Equal(t, john.ID, rank.Entry.UserID)
	require.EqualValues(t, 2, rank.Entry.Rank.Int)
	require.NotEmpty(t, rank.Neighbors)
}

func TestGamifyApi_updateRanksIsAdminOnly(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/leaderboard/update", getToken(t, jane), nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/leaderboard/update", getToken(t, admin), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGamifyApi_badges(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	janeToken := getToken(t, jane)

	app.award(t, jane.ID, gamify.ActionCompleteModule) // unlocks first_module

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/badges/me", janeToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var badges []gamify.Badge
	decodeBody(t, rec, &badges)
	require.Len(t, badges, 1)
	require.Equal(t, gamify.BadgeFirstModule, badges[0].Key)

	// badge detail with earner count
	rec = app.do(newRequest(t, http.MethodGet, "/v1/badges/"+gamify.BadgeFirstModule, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		gamify.Badge
		Earners int `json:"earners"`
	}
	decodeBody(t, rec, &detail)
	require.Equal(t, 1, detail.Earners)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/badges/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGamifyApi_badgeProgress(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/badges/progress", getToken(t, jane), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var progress map[string]interface{}
	decodeBody(t, rec, &progress)
	require.Contains(t, progress, gamify.BadgeModuleExplorer)
}

func TestGamifyApi_pointsHistory(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)

	app.award(t, jane.ID, gamify.ActionCompleteModule)

	rec := app.do(newAuthRequest(t, http.MethodGet, "/v1/points/history", getToken(t, jane), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []gamify.LogEntry
	decodeBody(t, rec, &entries)
	require.NotEmpty(t, entries)
}

func TestGamifyApi_categoryLeaderboard(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)

	app.award(t, jane.ID, gamify.ActionCompleteModule)

	rec := app.do(newRequest(t, http.MethodGet, "/v1/leaderboard/categories/learning", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []gamify.CategoryEntry
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 1)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/leaderboard/categories/bogus", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
