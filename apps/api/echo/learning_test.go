package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/learning"
	"github.com/trezcool/ujuzi/core/user"
)

func TestLearningApi_pathLifecycle(t *testing.T) {
	app := setup(t)
	creator := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleContributor)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	creatorToken := getToken(t, creator)
	adminToken := getToken(t, admin)

	// create
	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths", creatorToken, map[string]string{
		"title":       "Intro to Go",
		"description": "From zero to gopher.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	var path learning.Path
	decodeBody(t, rec, &path)
	require.Equal(t, learning.StatusPending, path.Status)
	require.False(t, path.IsPublished)

	// anonymous browsing only sees published paths
	rec = app.do(newRequest(t, http.MethodGet, "/v1/learning-paths", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Results []learning.Path `json:"results"`
		Total   int             `json:"total"`
	}
	decodeBody(t, rec, &listing)
	require.Empty(t, listing.Results)

	// anonymous detail access is denied while pending
	rec = app.do(newRequest(t, http.MethodGet, "/v1/learning-paths/"+path.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// review requires admin
	review := map[string]string{"action": "approve"}
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/review", creatorToken, review))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/review", adminToken, review))
	require.Equal(t, http.StatusOK, rec.Code)

	var approved learning.Path
	decodeBody(t, rec, &approved)
	require.Equal(t, learning.StatusApproved, approved.Status)
	require.True(t, approved.IsPublished)

	// now publicly listed
	rec = app.do(newRequest(t, http.MethodGet, "/v1/learning-paths", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Results, 1)
	require.Equal(t, 1, listing.Total)
}

func TestLearningApi_createPathRewardsCreator(t *testing.T) {
	app := setup(t)
	creator := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleContributor)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths", getToken(t, creator), map[string]string{
		"title": "Intro to Go",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/users/me", getToken(t, creator), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var me user.User
	decodeBody(t, rec, &me)
	require.Equal(t, 125, me.Points) // create_learning_path + first badge bonus
	require.Equal(t, 200, me.XP)
}

func TestLearningApi_followAndComplete(t *testing.T) {
	app := setup(t)
	creator := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleContributor)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	learner := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	creatorToken := getToken(t, creator)
	learnerToken := getToken(t, learner)

	// build an approved path with one module
	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths", creatorToken, map[string]string{
		"title": "Intro to Go",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var path learning.Path
	decodeBody(t, rec, &path)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/review", getToken(t, admin),
		map[string]string{"action": "approve"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/modules", creatorToken,
		map[string]string{"title": "Basics", "description": "Syntax and tooling."}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var module learning.Module
	decodeBody(t, rec, &module)

	// only the creator or an admin may add modules
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/modules", learnerToken,
		map[string]string{"title": "Rogue module"}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// follow, then complete
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/follow", learnerToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/modules/"+module.ID+"/complete", learnerToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var completion CompletionResponse
	decodeBody(t, rec, &completion)
	require.Equal(t, 100, completion.Progress.CompletionPercent)
	require.True(t, completion.Progress.CompletedAt.Valid)
	require.Equal(t, 50, completion.Reward.Points)

	// rolled-up progress
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/learning-paths/followed", learnerToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var followed []learning.FollowedPath
	decodeBody(t, rec, &followed)
	require.Len(t, followed, 1)
	require.Equal(t, 100, followed[0].CompletionPercent)
}

func TestLearningApi_quizFlow(t *testing.T) {
	app := setup(t)
	creator := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleContributor)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	learner := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	creatorToken := getToken(t, creator)
	learnerToken := getToken(t, learner)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths", creatorToken,
		map[string]string{"title": "Intro to Go"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var path learning.Path
	decodeBody(t, rec, &path)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/review", getToken(t, admin),
		map[string]string{"action": "approve"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/modules", creatorToken,
		map[string]string{"title": "Basics"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var module learning.Module
	decodeBody(t, rec, &module)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/modules/"+module.ID+"/quiz", creatorToken,
		map[string]interface{}{"title": "Basics check", "passing_score": 50}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var quiz learning.Quiz
	decodeBody(t, rec, &quiz)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/quizzes/"+quiz.ID+"/questions", creatorToken,
		map[string]interface{}{
			"text": "What does := do?",
			"choices": []map[string]interface{}{
				{"text": "declare and assign", "is_correct": true},
				{"text": "compare", "is_correct": false},
			},
		}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var question learning.Question
	decodeBody(t, rec, &question)
	require.Len(t, question.Choices, 2)

	var correctID string
	quizDetail := struct {
		learning.Quiz
		Questions []learning.Question `json:"questions"`
	}{}
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/quizzes/"+quiz.ID, learnerToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &quizDetail)
	require.Len(t, quizDetail.Questions, 1)
	correctID = question.Choices[0].ID

	// must follow the path before taking the quiz
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/learning-paths/"+path.ID+"/follow", learnerToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/quizzes/"+quiz.ID+"/submit", learnerToken,
		map[string]string{question.ID: correctID}))
	require.Equal(t, http.StatusOK, rec.Code)

	var result learning.QuizResult
	decodeBody(t, rec, &result)
	require.True(t, result.Passed)
	require.Equal(t, 100, result.ScorePercent)
	require.Equal(t, 1, result.CorrectAnswers)
}
