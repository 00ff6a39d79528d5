package gamify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

func TestService_badgeAwardedAtMostOnce(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	svc, usersRepo, repo, _ := newTestService(usr)
	repo.CompletedModules[usr.ID] = 1

	sum, err := svc.AwardPoints(ctx, usr.ID, gamify.ActionCompleteModule, "")
	require.NoError(t, err)
	require.Equal(t, []string{gamify.BadgeFirstModule}, sum.BadgesAwarded)

	repo.CompletedModules[usr.ID] = 2
	sum, err = svc.AwardPoints(ctx, usr.ID, gamify.ActionCompleteModule, "")
	require.NoError(t, err)
	require.Empty(t, sum.BadgesAwarded)

	badges, err := svc.UserBadges(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, badges, 1)

	// second completion earned module points but no second badge reward
	got, _ := usersRepo.GetUserByID(ctx, usr.ID)
	require.Equal(t, 125, got.Points) // (50+25) + 50
}

func TestService_milestoneBadges(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	svc, usersRepo, repo, _ := newTestService(usr)

	// the fifth module completion unlocks both first_module and module_explorer
	repo.CompletedModules[usr.ID] = 5

	sum, err := svc.AwardPoints(ctx, usr.ID, gamify.ActionCompleteModule, "")
	require.NoError(t, err)

	// module_explorer unlocks while rewarding first_module, one level down,
	// so it is not surfaced here
	require.Equal(t, []string{gamify.BadgeFirstModule}, sum.BadgesAwarded)

	badges, err := svc.UserBadges(ctx, usr.ID)
	require.NoError(t, err)
	keys := make([]string, 0, len(badges))
	for _, badge := range badges {
		keys = append(keys, badge.Key)
	}
	require.ElementsMatch(t, []string{gamify.BadgeFirstModule, gamify.BadgeModuleExplorer}, keys)

	// earn_badge rewarded exactly once: nested unlocks grant no further reward
	got, _ := usersRepo.GetUserByID(ctx, usr.ID)
	require.Equal(t, 75, got.Points) // 50 module + 25 badge
}

func TestService_pathBadges(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	svc, _, repo, _ := newTestService(usr)
	repo.CompletedPaths[usr.ID] = 1

	_, err := svc.AwardPoints(ctx, usr.ID, gamify.ActionCompleteModule, "")
	require.NoError(t, err)

	badges, err := svc.UserBadges(ctx, usr.ID)
	require.NoError(t, err)
	keys := make([]string, 0, len(badges))
	for _, badge := range badges {
		keys = append(keys, badge.Key)
	}
	require.Contains(t, keys, gamify.BadgePathCompleter)
	require.Contains(t, keys, gamify.BadgeSubjectMaster)

	// awarding again must not duplicate either badge
	_, err = svc.AwardPoints(ctx, usr.ID, gamify.ActionCreatePost, "")
	require.NoError(t, err)
	again, _ := svc.UserBadges(ctx, usr.ID)
	require.Len(t, again, len(badges))
}

func TestService_badgeCatalogCreatedLazily(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	svc, _, _, _ := newTestService(usr)

	badges, err := svc.QueryAllBadges(ctx)
	require.NoError(t, err)
	require.Empty(t, badges)

	_, err = svc.AwardPoints(ctx, usr.ID, gamify.ActionCreateLearningPath, "Go 101")
	require.NoError(t, err)

	badge, earners, err := svc.GetBadge(ctx, gamify.BadgeFirstLearningPath)
	require.NoError(t, err)
	require.Equal(t, "First Learning Path Created", badge.Name)
	require.Equal(t, 1, earners)
}

func TestService_GetBadge_notFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, _, err := svc.GetBadge(context.Background(), gamify.BadgeQuizMaster)
	require.ErrorIs(t, err, gamify.ErrBadgeNotFound)
}

func TestService_UserBadgeProgress(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada", StreakDays: 12}
	svc, _, repo, _ := newTestService(usr)
	repo.CompletedModules[usr.ID] = 3
	repo.CreatedPaths[usr.ID] = 1

	progress, err := svc.UserBadgeProgress(ctx, usr.ID)
	require.NoError(t, err)

	require.Equal(t, true, progress[gamify.BadgeFirstModule])
	require.Equal(t, true, progress[gamify.BadgeFirstLearningPath])
	require.Equal(t, false, progress[gamify.BadgePathCompleter])

	explorer, ok := progress[gamify.BadgeModuleExplorer].(gamify.MilestoneProgress)
	require.True(t, ok)
	require.Equal(t, gamify.MilestoneProgress{Current: 3, Target: 5}, explorer)

	streak, ok := progress[gamify.BadgeStreak30Days].(gamify.MilestoneProgress)
	require.True(t, ok)
	require.Equal(t, gamify.MilestoneProgress{Current: 12, Target: 30}, streak)
}
