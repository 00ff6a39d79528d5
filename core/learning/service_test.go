package learning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/learning"
	"github.com/trezcool/ujuzi/core/user"
	"github.com/trezcool/ujuzi/storage/dummy"
)

type testEnv struct {
	svc       learning.Service
	repo      *dummy.LearningRepository
	usersRepo *dummy.UserRepository
	gameRepo  *dummy.GamifyRepository
}

func newTestEnv(users ...user.User) testEnv {
	usersRepo := dummy.NewUserRepository(users...)
	gameRepo := dummy.NewGamifyRepository(usersRepo)
	gameSvc := gamify.NewService(dummy.NewDB(), gameRepo, usersRepo, dummy.NewLeaderboardCache(), gamify.DefaultRules(), dummy.Logger{})
	repo := dummy.NewLearningRepository(gameRepo)
	svc := learning.NewService(dummy.NewDB(), repo, gameSvc, dummy.Logger{})
	return testEnv{svc: svc, repo: repo, usersRepo: usersRepo, gameRepo: gameRepo}
}

func publishedPath(t *testing.T, env testEnv, creator user.User, title string) learning.Path {
	t.Helper()
	ctx := context.Background()

	path, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: title, Description: "desc for " + title})
	require.NoError(t, err)

	admin := user.User{ID: "admin", Username: "admin", Role: user.RoleAdmin}
	path, err = env.svc.ReviewPath(ctx, admin, path.ID, learning.ReviewPath{Action: "approve"})
	require.NoError(t, err)
	return path
}

func TestService_CreatePath_rewardsCreator(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada", Role: user.RoleContributor}
	env := newTestEnv(creator)

	path, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: "Go from zero", Description: "A gentle intro"})
	require.NoError(t, err)
	require.Equal(t, learning.StatusPending, path.Status)
	require.False(t, path.IsPublished)

	// creation reward plus the first_learning_path badge reward
	got, err := env.usersRepo.GetUserByID(ctx, creator.ID)
	require.NoError(t, err)
	require.Equal(t, 125, got.Points) // 100 + 25 badge
	require.Equal(t, 200, got.XP)
}

func TestService_GetPath_unpublishedHiddenFromNonAdmins(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(creator)

	path, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: "Hidden path", Description: "not reviewed yet"})
	require.NoError(t, err)

	_, _, err = env.svc.GetPath(ctx, path.ID, nil)
	require.ErrorIs(t, err, learning.ErrPathNotFound)

	learner := user.User{ID: "u2", Role: user.RoleLearner}
	_, _, err = env.svc.GetPath(ctx, path.ID, &learner)
	require.ErrorIs(t, err, learning.ErrPathNotFound)

	admin := user.User{ID: "u3", Role: user.RoleAdmin}
	got, _, err := env.svc.GetPath(ctx, path.ID, &admin)
	require.NoError(t, err)
	require.Equal(t, path.ID, got.ID)
}

func TestService_ReviewPath(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	admin := user.User{ID: "u2", Username: "root", Role: user.RoleAdmin}
	env := newTestEnv(creator, admin)

	path, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: "Review me", Description: "pending review"})
	require.NoError(t, err)

	path, err = env.svc.ReviewPath(ctx, admin, path.ID, learning.ReviewPath{Action: "reject", Reason: "too thin"})
	require.NoError(t, err)
	require.Equal(t, learning.StatusRejected, path.Status)
	require.False(t, path.IsPublished)
	require.Equal(t, "too thin", path.RejectionReason.String)
	require.Equal(t, admin.ID, path.ReviewedBy.String)

	path, err = env.svc.ReviewPath(ctx, admin, path.ID, learning.ReviewPath{Action: "approve"})
	require.NoError(t, err)
	require.Equal(t, learning.StatusApproved, path.Status)
	require.True(t, path.IsPublished)
	require.False(t, path.RejectionReason.Valid) // cleared on approval
}

func TestService_FollowPath(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	learner := user.User{ID: "u2", Username: "bob"}
	env := newTestEnv(creator, learner)

	pending, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: "Not yet live", Description: "pending"})
	require.NoError(t, err)

	_, err = env.svc.FollowPath(ctx, learner.ID, pending.ID)
	require.True(t, core.IsValidationError(err))

	path := publishedPath(t, env, creator, "Live path")
	_, err = env.svc.FollowPath(ctx, learner.ID, path.ID)
	require.NoError(t, err)

	// following twice is rejected
	_, err = env.svc.FollowPath(ctx, learner.ID, path.ID)
	require.True(t, core.IsValidationError(err))

	_, err = env.svc.UnfollowPath(ctx, learner.ID, path.ID)
	require.NoError(t, err)
	_, err = env.svc.UnfollowPath(ctx, learner.ID, path.ID)
	require.True(t, core.IsValidationError(err))
}

func TestService_CreateModule_authz(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	stranger := user.User{ID: "u2", Username: "eve"}
	env := newTestEnv(creator, stranger)

	path := publishedPath(t, env, creator, "Owned path")

	_, err := env.svc.CreateModule(ctx, stranger, path.ID, learning.NewModule{Title: "Sneaky module"})
	require.ErrorIs(t, err, learning.ErrNotPathOwner)

	module, err := env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "Module one"})
	require.NoError(t, err)
	require.Equal(t, path.ID, module.PathID)

	// admins may edit anyone's path
	admin := user.User{ID: "u3", Role: user.RoleAdmin}
	_, err = env.svc.CreateModule(ctx, admin, path.ID, learning.NewModule{Title: "Module two"})
	require.NoError(t, err)
}

func TestService_CompleteModule(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	learner := user.User{ID: "u2", Username: "bob"}
	env := newTestEnv(creator, learner)

	path := publishedPath(t, env, creator, "Go basics")
	module, err := env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "Syntax"})
	require.NoError(t, err)

	// must be following first
	_, _, err = env.svc.CompleteModule(ctx, learner, module.ID)
	require.True(t, core.IsValidationError(err))

	_, err = env.svc.FollowPath(ctx, learner.ID, path.ID)
	require.NoError(t, err)

	progress, sum, err := env.svc.CompleteModule(ctx, learner, module.ID)
	require.NoError(t, err)
	require.Equal(t, 100, progress.CompletionPercent)
	require.True(t, progress.CompletedAt.Valid)
	require.Equal(t, 50, sum.Points)
	require.Contains(t, sum.BadgesAwarded, gamify.BadgeFirstModule)

	got, _ := env.usersRepo.GetUserByID(ctx, learner.ID)
	require.Equal(t, 75, got.Points) // 50 + 25 badge
}

func TestService_FollowedPaths_completionRollup(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	learner := user.User{ID: "u2", Username: "bob"}
	env := newTestEnv(creator, learner)

	path := publishedPath(t, env, creator, "Two modules")
	m1, err := env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "One"})
	require.NoError(t, err)
	_, err = env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "Two"})
	require.NoError(t, err)

	_, err = env.svc.FollowPath(ctx, learner.ID, path.ID)
	require.NoError(t, err)
	_, _, err = env.svc.CompleteModule(ctx, learner, m1.ID)
	require.NoError(t, err)

	followed, err := env.svc.FollowedPaths(ctx, learner.ID)
	require.NoError(t, err)
	require.Len(t, followed, 1)
	require.Equal(t, 50, followed[0].CompletionPercent) // 1 of 2 modules
}

func TestService_PathProgress(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	learner := user.User{ID: "u2", Username: "bob"}
	env := newTestEnv(creator, learner)

	path := publishedPath(t, env, creator, "Progress path")
	m1, err := env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "One"})
	require.NoError(t, err)
	_, err = env.svc.CreateModule(ctx, creator, path.ID, learning.NewModule{Title: "Two"})
	require.NoError(t, err)

	_, err = env.svc.FollowPath(ctx, learner.ID, path.ID)
	require.NoError(t, err)
	_, _, err = env.svc.CompleteModule(ctx, learner, m1.ID)
	require.NoError(t, err)

	progress, err := env.svc.PathProgress(ctx, learner.ID, path.ID)
	require.NoError(t, err)
	require.Len(t, progress.Modules, 2)
	require.InDelta(t, 50.0, progress.OverallCompletion, 0.01)
}

func TestService_QueryPaths_visibility(t *testing.T) {
	ctx := context.Background()
	creator := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(creator)

	publishedPath(t, env, creator, "Published one")
	_, err := env.svc.CreatePath(ctx, creator, learning.NewPath{Title: "Still pending", Description: "pending"})
	require.NoError(t, err)

	// anonymous and learners see published only
	paths, total, err := env.svc.QueryPaths(ctx, nil, learning.PathFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, paths, 1)

	// admins can filter by status
	admin := user.User{ID: "u3", Role: user.RoleAdmin}
	paths, total, err = env.svc.QueryPaths(ctx, &admin, learning.PathFilter{Status: learning.StatusPending})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Still pending", paths[0].Title)
}
