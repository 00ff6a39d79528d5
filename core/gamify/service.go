package gamify

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

var (
	// errors
	ErrBadgeNotFound   = errors.New("badge not found")
	ErrEntryNotFound   = errors.New("leaderboard entry not found")
	ErrUnknownCategory = errors.New("unknown leaderboard category")
	ErrCacheMiss       = errors.New("leaderboard cache miss")
)

type (
	Repository interface {
		// ledger
		CreateLogEntry(ctx context.Context, entry LogEntry, exec ...core.DBExecutor) (LogEntry, error)
		QueryLogEntriesByUser(ctx context.Context, userID string) ([]LogEntry, error)
		// SumPointsByActions aggregates ledger points per user over the given
		// actions, matching both bare reasons and "action: metadata" reasons.
		// Results are ordered by points descending.
		SumPointsByActions(ctx context.Context, actions []string, limit int) ([]CategoryEntry, error)

		// badges
		CreateBadge(ctx context.Context, badge Badge, exec ...core.DBExecutor) (Badge, error)
		GetBadgeByKey(ctx context.Context, key string, exec ...core.DBExecutor) (Badge, error)
		QueryAllBadges(ctx context.Context) ([]Badge, error)
		CountBadgeEarners(ctx context.Context, badgeID string) (int, error)
		UserHasBadge(ctx context.Context, userID, badgeKey string, exec ...core.DBExecutor) (bool, error)
		CreateBadgeAward(ctx context.Context, award BadgeAward, exec ...core.DBExecutor) (BadgeAward, error)
		QueryUserBadges(ctx context.Context, userID string) ([]Badge, error)

		// leaderboard
		GetLeaderboardEntry(ctx context.Context, userID string, exec ...core.DBExecutor) (LeaderboardEntry, error)
		UpsertLeaderboardEntry(ctx context.Context, entry LeaderboardEntry, exec ...core.DBExecutor) (LeaderboardEntry, error)
		// QueryLeaderboardEntries returns every entry ordered by total points
		// descending, ties broken by user ID ascending.
		QueryLeaderboardEntries(ctx context.Context, exec ...core.DBExecutor) ([]LeaderboardEntry, error)
		SaveRanks(ctx context.Context, entries []LeaderboardEntry, exec ...core.DBExecutor) error
		QueryRankedEntries(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error)
		QueryEntriesByRankRange(ctx context.Context, lo, hi int) ([]LeaderboardEntry, error)
		CountLeaderboardEntries(ctx context.Context) (int, error)

		// milestone sources
		CountCompletedModules(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		CountCompletedPaths(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		CountCreatedPaths(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
	}

	// LeaderboardCache holds the top of the ranked leaderboard for cheap reads.
	// TopN returns ErrCacheMiss when the cache cannot serve n entries.
	LeaderboardCache interface {
		ReplaceTop(ctx context.Context, entries []LeaderboardEntry) error
		TopN(ctx context.Context, n int) ([]LeaderboardEntry, error)
	}

	Service interface {
		// AwardPoints runs the full reward chain for action in one transaction:
		// user totals, ledger entry, badge unlocks and leaderboard sync.
		AwardPoints(ctx context.Context, userID, action, metadata string) (AwardSummary, error)
		// AwardPointsTx is AwardPoints running on the caller's transaction;
		// usr's totals are updated in place. The caller must refresh the
		// leaderboard cache once its transaction commits.
		AwardPointsTx(ctx context.Context, tx core.DBExecutor, usr *user.User, action, metadata string) (AwardSummary, error)
		AwardXPOnly(ctx context.Context, userID, action string) (AwardSummary, error)
		AwardDailyLogin(ctx context.Context, userID string) (AwardSummary, error)
		PointsHistory(ctx context.Context, userID string) ([]LogEntry, error)

		QueryAllBadges(ctx context.Context) ([]Badge, error)
		GetBadge(ctx context.Context, key string) (Badge, int, error)
		UserBadges(ctx context.Context, userID string) ([]Badge, error)
		UserBadgeProgress(ctx context.Context, userID string) (BadgeProgress, error)
		// AwardBadgeManually grants a badge outside the action flow (admin
		// surface). Returns false when the user already holds it.
		AwardBadgeManually(ctx context.Context, userID, badgeKey string) (bool, error)

		UpdateAllRanks(ctx context.Context) error
		RefreshLeaderboardCache(ctx context.Context) error
		TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
		UserRank(ctx context.Context, userID string) (LeaderboardEntry, []LeaderboardEntry, error)
		LeaderboardPage(ctx context.Context, page core.Pagination) ([]LeaderboardEntry, int, error)
		CategoryLeaderboard(ctx context.Context, category string, limit int) ([]CategoryEntry, error)
	}

	service struct {
		db     core.DB
		repo   Repository
		users  user.Repository
		cache  LeaderboardCache
		rules  Rules
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, users user.Repository, cache LeaderboardCache, rules Rules, logger core.Logger) *service {
	return &service{
		db:     db,
		repo:   repo,
		users:  users,
		cache:  cache,
		rules:  rules,
		logger: logger,
	}
}
