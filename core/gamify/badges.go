package gamify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

func (svc *service) QueryAllBadges(ctx context.Context) ([]Badge, error) {
	return svc.repo.QueryAllBadges(ctx)
}

// GetBadge returns the badge for key along with how many users have earned it.
func (svc *service) GetBadge(ctx context.Context, key string) (Badge, int, error) {
	badge, err := svc.repo.GetBadgeByKey(ctx, key)
	if err != nil {
		return Badge{}, 0, err
	}
	count, err := svc.repo.CountBadgeEarners(ctx, badge.ID)
	if err != nil {
		return Badge{}, 0, errors.Wrap(err, "counting badge earners")
	}
	return badge, count, nil
}

func (svc *service) UserBadges(ctx context.Context, userID string) ([]Badge, error) {
	return svc.repo.QueryUserBadges(ctx, userID)
}

// UserBadgeProgress reports how close a user is to each badge: earned flags
// for the one-shot badges and current/target counters for the milestones.
func (svc *service) UserBadgeProgress(ctx context.Context, userID string) (BadgeProgress, error) {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed, err := svc.repo.CountCompletedModules(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "counting completed modules")
	}
	createdPaths, err := svc.repo.CountCreatedPaths(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "counting created paths")
	}
	completedPaths, err := svc.repo.CountCompletedPaths(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "counting completed paths")
	}

	return BadgeProgress{
		BadgeFirstModule:       completed >= 1,
		BadgeFirstQuiz:         completed >= 1,
		BadgeFirstLearningPath: createdPaths >= 1,
		BadgeModuleExplorer: MilestoneProgress{
			Current:   completed,
			Target:    moduleExplorerTarget,
			Completed: completed >= moduleExplorerTarget,
		},
		BadgeQuizMaster: MilestoneProgress{
			Current:   completed,
			Target:    quizMasterTarget,
			Completed: completed >= quizMasterTarget,
		},
		BadgeStreak30Days: MilestoneProgress{
			Current:   usr.StreakDays,
			Target:    streakBadgeTarget,
			Completed: usr.StreakDays >= streakBadgeTarget,
		},
		BadgePathCompleter: completedPaths >= 1,
		BadgeSubjectMaster: completedPaths >= 1,
	}, nil
}

func (svc *service) AwardBadgeManually(ctx context.Context, userID, badgeKey string) (bool, error) {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}

	var awarded bool
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		awarded, err = svc.awardBadge(ctx, tx, &usr, badgeKey, 0)
		return err
	}); err != nil {
		return false, err
	}
	if awarded {
		svc.refreshCache(ctx)
	}
	return awarded, nil
}

// checkBadges unlocks the badge triggered directly by action, then any
// milestone badges the user now qualifies for. It returns the keys of the
// badges newly awarded at this depth.
func (svc *service) checkBadges(ctx context.Context, exec core.DBExecutor, usr *user.User, action string, depth int) ([]string, error) {
	awarded := make([]string, 0)

	if key, ok := badgeTriggers[action]; ok {
		newlyAwarded, err := svc.awardBadge(ctx, exec, usr, key, depth)
		if err != nil {
			return nil, err
		}
		if newlyAwarded {
			awarded = append(awarded, key)
		}
	}

	milestones, err := svc.checkMilestoneBadges(ctx, exec, usr, depth)
	if err != nil {
		return nil, err
	}
	return append(awarded, milestones...), nil
}

func (svc *service) checkMilestoneBadges(ctx context.Context, exec core.DBExecutor, usr *user.User, depth int) ([]string, error) {
	awarded := make([]string, 0)

	tryAward := func(key string, qualifies bool) error {
		if !qualifies {
			return nil
		}
		newlyAwarded, err := svc.awardBadge(ctx, exec, usr, key, depth)
		if err != nil {
			return err
		}
		if newlyAwarded {
			awarded = append(awarded, key)
		}
		return nil
	}

	completed, err := svc.repo.CountCompletedModules(ctx, usr.ID, exec)
	if err != nil {
		return nil, errors.Wrap(err, "counting completed modules")
	}
	if err = tryAward(BadgeModuleExplorer, completed >= moduleExplorerTarget); err != nil {
		return nil, err
	}
	// quiz passes mark the owning module's progress complete, so completed
	// modules are the source of truth for quiz mastery too.
	if err = tryAward(BadgeQuizMaster, completed >= quizMasterTarget); err != nil {
		return nil, err
	}

	if err = tryAward(BadgeStreak30Days, usr.StreakDays >= streakBadgeTarget); err != nil {
		return nil, err
	}

	completedPaths, err := svc.repo.CountCompletedPaths(ctx, usr.ID, exec)
	if err != nil {
		return nil, errors.Wrap(err, "counting completed paths")
	}
	if err = tryAward(BadgePathCompleter, completedPaths >= 1); err != nil {
		return nil, err
	}
	if err = tryAward(BadgeSubjectMaster, completedPaths >= 1); err != nil {
		return nil, err
	}

	return awarded, nil
}

// awardBadge grants key to usr unless they already hold it, creating the
// catalog row on first award. Earning a badge at depth 0 grants the earn_badge
// reward, which may itself unlock badges but never rewards again.
func (svc *service) awardBadge(ctx context.Context, exec core.DBExecutor, usr *user.User, key string, depth int) (bool, error) {
	rule, ok := svc.rules.Badges[key]
	if !ok {
		return false, core.NewConfigurationError(fmt.Sprintf("badge %q is not defined in the badge rules", key))
	}

	has, err := svc.repo.UserHasBadge(ctx, usr.ID, key, exec)
	if err != nil {
		return false, errors.Wrap(err, "checking badge ownership")
	}
	if has {
		return false, nil
	}

	badge, err := svc.repo.GetBadgeByKey(ctx, key, exec)
	switch err {
	case nil:
	case ErrBadgeNotFound:
		badge = Badge{
			Key:         key,
			Name:        rule.Name,
			Description: rule.Description,
			CreatedAt:   core.NowFunc().UTC(),
		}
		if badge, err = svc.repo.CreateBadge(ctx, badge, exec); err != nil {
			return false, errors.Wrap(err, "creating badge")
		}
	default:
		return false, errors.Wrap(err, "getting badge")
	}

	award := BadgeAward{
		UserID:    usr.ID,
		BadgeID:   badge.ID,
		AwardedAt: core.NowFunc().UTC(),
	}
	if _, err = svc.repo.CreateBadgeAward(ctx, award, exec); err != nil {
		return false, errors.Wrap(err, "recording badge award")
	}

	if depth == 0 {
		if _, err = svc.award(ctx, exec, usr, ActionEarnBadge, key, depth+1); err != nil {
			return false, err
		}
	}
	return true, nil
}
