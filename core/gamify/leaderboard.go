package gamify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
)

const (
	cacheTopN = 100

	defaultPerPage = 20
	maxPerPage     = 100
)

// categoryActions maps a leaderboard category to the ledger actions it counts.
var categoryActions = map[string][]string{
	"learning":  {ActionCompleteModule, ActionCompleteQuiz, ActionDailyLogin},
	"community": {ActionCreatePost, ActionCreateComment, ActionRateResource},
	"content":   {ActionCreateLearningPath, ActionCreateResource},
	"quizzes":   {ActionCompleteQuiz, ActionPassQuiz},
}

// UpdateAllRanks recomputes every rank from stored point totals.
func (svc *service) UpdateAllRanks(ctx context.Context) error {
	if err := core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		return svc.recomputeRanks(ctx, tx)
	}); err != nil {
		return err
	}
	svc.refreshCache(ctx)
	return nil
}

// recomputeRanks assigns contiguous ranks 1..N over all entries, highest
// points first, ties broken by user ID.
func (svc *service) recomputeRanks(ctx context.Context, exec ...core.DBExecutor) error {
	entries, err := svc.repo.QueryLeaderboardEntries(ctx, exec...)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard entries")
	}

	now := core.NowFunc().UTC()
	for i := range entries {
		entries[i].Rank = null.IntFrom(i + 1)
		entries[i].UpdatedAt = now
	}
	return errors.Wrap(svc.repo.SaveRanks(ctx, entries, exec...), "saving ranks")
}

func (svc *service) RefreshLeaderboardCache(ctx context.Context) error {
	entries, err := svc.repo.QueryRankedEntries(ctx, cacheTopN, 0)
	if err != nil {
		return errors.Wrap(err, "querying ranked entries")
	}
	return errors.Wrap(svc.cache.ReplaceTop(ctx, entries), "replacing cached leaderboard")
}

// refreshCache is the post-commit variant: cache staleness is tolerable so
// failures are logged, not returned.
func (svc *service) refreshCache(ctx context.Context) {
	if err := svc.RefreshLeaderboardCache(ctx); err != nil {
		svc.logger.Warn("refreshing leaderboard cache", "error", err)
	}
}

// TopUsers serves the top of the board from the cache, falling back to the
// database when the cache cannot.
func (svc *service) TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 {
		limit = defaultPerPage
	}
	if limit > cacheTopN {
		limit = cacheTopN
	}

	entries, err := svc.cache.TopN(ctx, limit)
	if err == nil {
		return entries, nil
	}
	if err != ErrCacheMiss {
		svc.logger.Warn("reading leaderboard cache", "error", err)
	}
	return svc.repo.QueryRankedEntries(ctx, limit, 0)
}

// UserRank returns the user's entry plus up to two neighbors on either side.
func (svc *service) UserRank(ctx context.Context, userID string) (LeaderboardEntry, []LeaderboardEntry, error) {
	entry, err := svc.repo.GetLeaderboardEntry(ctx, userID)
	if err != nil {
		return LeaderboardEntry{}, nil, err
	}
	if !entry.Rank.Valid {
		return entry, nil, nil
	}

	lo := int(entry.Rank.Int) - 2
	if lo < 1 {
		lo = 1
	}
	nearby, err := svc.repo.QueryEntriesByRankRange(ctx, lo, int(entry.Rank.Int)+2)
	if err != nil {
		return LeaderboardEntry{}, nil, errors.Wrap(err, "querying nearby entries")
	}
	return entry, nearby, nil
}

func (svc *service) LeaderboardPage(ctx context.Context, page core.Pagination) ([]LeaderboardEntry, int, error) {
	page.Clean(defaultPerPage, maxPerPage)

	total, err := svc.repo.CountLeaderboardEntries(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting leaderboard entries")
	}
	entries, err := svc.repo.QueryRankedEntries(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying ranked entries")
	}
	return entries, total, nil
}

// CategoryLeaderboard ranks users by points earned from a category's actions
// alone, straight from the ledger.
func (svc *service) CategoryLeaderboard(ctx context.Context, category string, limit int) ([]CategoryEntry, error) {
	actions, ok := categoryActions[category]
	if !ok {
		return nil, core.NewValidationError(ErrUnknownCategory)
	}
	if limit < 1 || limit > maxPerPage {
		limit = defaultPerPage
	}
	return svc.repo.SumPointsByActions(ctx, actions, limit)
}
