package gamify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

func (svc *service) AwardPoints(ctx context.Context, userID, action, metadata string) (AwardSummary, error) {
	if _, ok := svc.rules.Points[action]; !ok {
		return AwardSummary{}, core.NewConfigurationError(fmt.Sprintf("no point value configured for action %q", action))
	}

	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		return AwardSummary{}, err
	}

	var sum AwardSummary
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		sum, err = svc.award(ctx, tx, &usr, action, metadata, 0)
		return err
	}); err != nil {
		return AwardSummary{}, err
	}

	svc.refreshCache(ctx)
	return sum, nil
}

func (svc *service) AwardPointsTx(ctx context.Context, tx core.DBExecutor, usr *user.User, action, metadata string) (AwardSummary, error) {
	if _, ok := svc.rules.Points[action]; !ok {
		return AwardSummary{}, core.NewConfigurationError(fmt.Sprintf("no point value configured for action %q", action))
	}
	return svc.award(ctx, tx, usr, action, metadata, 0)
}

// AwardXPOnly grants the XP configured for action without touching points,
// the ledger or the leaderboard. Unconfigured actions grant nothing.
func (svc *service) AwardXPOnly(ctx context.Context, userID, action string) (AwardSummary, error) {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		return AwardSummary{}, err
	}

	xp := svc.rules.XP[action]
	if xp > 0 {
		usr.XP += xp
		usr.UpdatedAt = core.NowFunc().UTC()
		if _, err = svc.users.UpdateUser(ctx, usr); err != nil {
			return AwardSummary{}, errors.Wrap(err, "updating user totals")
		}
	}
	return AwardSummary{XP: xp, Action: action, BadgesAwarded: []string{}}, nil
}

// AwardDailyLogin advances the user's daily streak, grants the daily login
// reward, and applies the 7 and 30 day streak XP bonuses when the streak
// first reaches them. The streak state machine only hits each threshold once
// per run, so the bonuses cannot be re-earned without breaking the streak.
func (svc *service) AwardDailyLogin(ctx context.Context, userID string) (AwardSummary, error) {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil {
		return AwardSummary{}, err
	}

	var sum AwardSummary
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		usr.UpdateStreak(core.NowFunc())

		var err error
		if sum, err = svc.award(ctx, tx, &usr, ActionDailyLogin, "", 0); err != nil {
			return err
		}

		var bonus int
		switch usr.StreakDays {
		case 7:
			bonus = svc.rules.XP[ActionDailyStreak7Days]
		case 30:
			bonus = svc.rules.XP[ActionDailyStreak30Days]
		}
		if bonus > 0 {
			usr.XP += bonus
			usr.UpdatedAt = core.NowFunc().UTC()
			if _, err = svc.users.UpdateUser(ctx, usr, tx); err != nil {
				return errors.Wrap(err, "applying streak bonus")
			}
		}
		return nil
	}); err != nil {
		return AwardSummary{}, err
	}

	svc.refreshCache(ctx)
	return sum, nil
}

func (svc *service) PointsHistory(ctx context.Context, userID string) ([]LogEntry, error) {
	return svc.repo.QueryLogEntriesByUser(ctx, userID)
}

// award is the reward chain running on exec: update user totals, append the
// ledger entry, unlock any qualifying badges and sync the leaderboard.
// depth bounds the earn_badge recursion to one level.
func (svc *service) award(ctx context.Context, exec core.DBExecutor, usr *user.User, action, metadata string, depth int) (AwardSummary, error) {
	points := svc.rules.Points[action]
	xp := svc.rules.XP[action]

	usr.Points += points
	usr.XP += xp
	usr.UpdatedAt = core.NowFunc().UTC()
	if _, err := svc.users.UpdateUser(ctx, *usr, exec); err != nil {
		return AwardSummary{}, errors.Wrap(err, "updating user totals")
	}

	reason := action
	if metadata != "" {
		reason = fmt.Sprintf("%s: %s", action, metadata)
	}
	entry := LogEntry{
		UserID:       usr.ID,
		PointsChange: points,
		Reason:       reason,
		CreatedAt:    core.NowFunc().UTC(),
	}
	if _, err := svc.repo.CreateLogEntry(ctx, entry, exec); err != nil {
		return AwardSummary{}, errors.Wrap(err, "recording ledger entry")
	}

	awarded, err := svc.checkBadges(ctx, exec, usr, action, depth)
	if err != nil {
		return AwardSummary{}, err
	}

	if err = svc.syncLeaderboard(ctx, exec, *usr); err != nil {
		return AwardSummary{}, err
	}

	return AwardSummary{Points: points, XP: xp, Action: action, BadgesAwarded: awarded}, nil
}

// syncLeaderboard mirrors the user's point total onto their leaderboard entry
// and recomputes every rank so the board is never stale.
func (svc *service) syncLeaderboard(ctx context.Context, exec core.DBExecutor, usr user.User) error {
	entry, err := svc.repo.GetLeaderboardEntry(ctx, usr.ID, exec)
	switch err {
	case nil:
	case ErrEntryNotFound:
		entry = LeaderboardEntry{UserID: usr.ID, Username: usr.Username}
	default:
		return errors.Wrap(err, "getting leaderboard entry")
	}

	entry.TotalPoints = usr.Points
	entry.UpdatedAt = core.NowFunc().UTC()
	if _, err = svc.repo.UpsertLeaderboardEntry(ctx, entry, exec); err != nil {
		return errors.Wrap(err, "upserting leaderboard entry")
	}
	return svc.recomputeRanks(ctx, exec)
}
