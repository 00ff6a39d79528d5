package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/community"
	"github.com/trezcool/ujuzi/core/user"
)

func TestCommunityApi_postsAndComments(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	janeToken := getToken(t, jane)
	johnToken := getToken(t, john)

	// posting requires auth
	post := map[string]string{"title": "Stuck on goroutines", "content": "How do channels block exactly?"}
	rec := app.do(newRequest(t, http.MethodPost, "/v1/community/posts", post))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/community/posts", janeToken, post))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created community.Post
	decodeBody(t, rec, &created)
	require.Equal(t, "jane", created.AuthorUsername)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/community/posts/"+created.ID+"/comments", johnToken,
		map[string]string{"content": "They block until both sides are ready."}))
	require.Equal(t, http.StatusCreated, rec.Code)

	// reading is public
	rec = app.do(newRequest(t, http.MethodGet, "/v1/community/posts/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		community.Post
		Comments []community.Comment `json:"comments"`
	}
	decodeBody(t, rec, &detail)
	require.Len(t, detail.Comments, 1)
	require.Equal(t, 1, detail.CommentsCount)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/community/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Results []community.Post `json:"results"`
		Total   int              `json:"total"`
	}
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Results, 1)
}

func TestCommunityApi_deletePostAuthz(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/community/posts", getToken(t, jane),
		map[string]string{"title": "Stuck on goroutines", "content": "How do channels block exactly?"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var post community.Post
	decodeBody(t, rec, &post)

	// a stranger cannot delete it
	rec = app.do(newAuthRequest(t, http.MethodDelete, "/v1/community/posts/"+post.ID, getToken(t, john), nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// the author can
	rec = app.do(newAuthRequest(t, http.MethodDelete, "/v1/community/posts/"+post.ID, getToken(t, jane), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/community/posts/"+post.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommunityApi_moderationFlow(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)
	johnToken := getToken(t, john)
	adminToken := getToken(t, admin)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/community/posts", getToken(t, jane),
		map[string]string{"title": "Totally spam", "content": "Buy cheap gophers now!!!"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var post community.Post
	decodeBody(t, rec, &post)

	flag := map[string]string{"post_id": post.ID, "reason": "spam"}
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/community/flags", johnToken, flag))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created community.Flag
	decodeBody(t, rec, &created)
	require.Equal(t, community.FlagPending, created.Status)

	// duplicate flags are rejected
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/community/flags", johnToken, flag))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// moderation surface is admin-only
	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/moderation/flags", johnToken, nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/moderation/flags?status=pending", adminToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Results []community.Flag `json:"results"`
		Total   int              `json:"total"`
	}
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Results, 1)

	// approving the flag hides the post
	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/moderation/flags/"+created.ID+"/resolve", adminToken,
		map[string]string{"action": "approve", "admin_notes": "confirmed spam"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved community.Flag
	decodeBody(t, rec, &resolved)
	require.Equal(t, community.FlagApproved, resolved.Status)

	rec = app.do(newRequest(t, http.MethodGet, "/v1/community/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var posts struct {
		Results []community.Post `json:"results"`
	}
	decodeBody(t, rec, &posts)
	require.Empty(t, posts.Results)
}

func TestCommunityApi_flagStats(t *testing.T) {
	app := setup(t)
	jane := app.createUser(t, "Jane", "jane", "jane@test.cd", user.RoleLearner)
	john := app.createUser(t, "John", "john", "john@test.cd", user.RoleLearner)
	admin := app.createUser(t, "Admin", "admin", "admin@test.cd", user.RoleAdmin)

	rec := app.do(newAuthRequest(t, http.MethodPost, "/v1/community/posts", getToken(t, jane),
		map[string]string{"title": "Questionable post", "content": "Some borderline content here."}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var post community.Post
	decodeBody(t, rec, &post)

	rec = app.do(newAuthRequest(t, http.MethodPost, "/v1/community/flags", getToken(t, john),
		map[string]string{"post_id": post.ID, "reason": "inappropriate"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(newAuthRequest(t, http.MethodGet, "/v1/moderation/stats", getToken(t, admin), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats community.FlagStats
	decodeBody(t, rec, &stats)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 1, stats.Total)
	require.Len(t, stats.TopReporters, 1)
	require.Equal(t, "john", stats.TopReporters[0].Username)
}
