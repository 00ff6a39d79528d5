package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
)

type GamifyRepository struct {
	db core.DB
}

var _ gamify.Repository = (*GamifyRepository)(nil)

func NewGamifyRepository(db core.DB) *GamifyRepository {
	return &GamifyRepository{db: db}
}

// ledger

func (repo *GamifyRepository) CreateLogEntry(ctx context.Context, entry gamify.LogEntry, exec ...core.DBExecutor) (gamify.LogEntry, error) {
	query, args, err := psql.Insert("points_log").
		Columns("user_id", "points_change", "reason", "created_at").
		Values(entry.UserID, entry.PointsChange, entry.Reason, entry.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return gamify.LogEntry{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &entry.ID, query, args...); err != nil {
		return gamify.LogEntry{}, errors.Wrap(err, "creating log entry")
	}
	return entry, nil
}

func (repo *GamifyRepository) QueryLogEntriesByUser(ctx context.Context, userID string) ([]gamify.LogEntry, error) {
	query, args, err := psql.Select("id", "user_id", "points_change", "reason", "created_at").
		From("points_log").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []gamify.LogEntry{}
	if err = repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying log entries")
	}
	return entries, nil
}

func (repo *GamifyRepository) SumPointsByActions(ctx context.Context, actions []string, limit int) ([]gamify.CategoryEntry, error) {
	if len(actions) == 0 {
		return []gamify.CategoryEntry{}, nil
	}

	// match both bare "action" reasons and "action: metadata" reasons
	match := sq.Or{}
	for _, action := range actions {
		match = append(match,
			sq.Eq{"pl.reason": action},
			sq.Like{"pl.reason": action + ":%"},
		)
	}

	qb := psql.Select("pl.user_id", "u.username", "SUM(pl.points_change) AS points").
		From("points_log pl").
		Join(`"user" u ON u.id = pl.user_id`).
		Where(match).
		GroupBy("pl.user_id", "u.username").
		OrderBy("points DESC", "pl.user_id ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []gamify.CategoryEntry{}
	if err = repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "summing points")
	}
	return entries, nil
}

// badges

func (repo *GamifyRepository) CreateBadge(ctx context.Context, badge gamify.Badge, exec ...core.DBExecutor) (gamify.Badge, error) {
	query, args, err := psql.Insert("badge").
		Columns("key", "name", "description", "created_at").
		Values(badge.Key, badge.Name, badge.Description, badge.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return gamify.Badge{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &badge.ID, query, args...); err != nil {
		return gamify.Badge{}, errors.Wrap(err, "creating badge")
	}
	return badge, nil
}

func (repo *GamifyRepository) GetBadgeByKey(ctx context.Context, key string, exec ...core.DBExecutor) (gamify.Badge, error) {
	query, args, err := psql.Select("id", "key", "name", "description", "created_at").
		From("badge").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return gamify.Badge{}, errors.Wrap(err, "building query")
	}

	var badge gamify.Badge
	if err = executor(repo.db, exec).GetContext(ctx, &badge, query, args...); err != nil {
		if isNoRows(err) {
			return gamify.Badge{}, gamify.ErrBadgeNotFound
		}
		return gamify.Badge{}, errors.Wrap(err, "getting badge")
	}
	return badge, nil
}

func (repo *GamifyRepository) QueryAllBadges(ctx context.Context) ([]gamify.Badge, error) {
	query, args, err := psql.Select("id", "key", "name", "description", "created_at").
		From("badge").
		OrderBy("key ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	badges := []gamify.Badge{}
	if err = repo.db.SelectContext(ctx, &badges, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying badges")
	}
	return badges, nil
}

func (repo *GamifyRepository) CountBadgeEarners(ctx context.Context, badgeID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("user_badge").
		Where(sq.Eq{"badge_id": badgeID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting earners")
	}
	return count, nil
}

func (repo *GamifyRepository) UserHasBadge(ctx context.Context, userID, badgeKey string, exec ...core.DBExecutor) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("user_badge ub").
		Join("badge b ON b.id = ub.badge_id").
		Where(sq.Eq{"ub.user_id": userID, "b.key": badgeKey}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}

	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return false, errors.Wrap(err, "checking badge")
	}
	return count > 0, nil
}

func (repo *GamifyRepository) CreateBadgeAward(ctx context.Context, award gamify.BadgeAward, exec ...core.DBExecutor) (gamify.BadgeAward, error) {
	query, args, err := psql.Insert("user_badge").
		Columns("user_id", "badge_id", "awarded_at").
		Values(award.UserID, award.BadgeID, award.AwardedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return gamify.BadgeAward{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &award.ID, query, args...); err != nil {
		return gamify.BadgeAward{}, errors.Wrap(err, "creating badge award")
	}
	return award, nil
}

func (repo *GamifyRepository) QueryUserBadges(ctx context.Context, userID string) ([]gamify.Badge, error) {
	query, args, err := psql.Select("b.id", "b.key", "b.name", "b.description", "b.created_at").
		From("user_badge ub").
		Join("badge b ON b.id = ub.badge_id").
		Where(sq.Eq{"ub.user_id": userID}).
		OrderBy("ub.awarded_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	badges := []gamify.Badge{}
	if err = repo.db.SelectContext(ctx, &badges, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying user badges")
	}
	return badges, nil
}

// leaderboard

const leaderboardColumns = `l.id, l.user_id, u.username AS username, l.total_points, l.rank, l.updated_at`

func (repo *GamifyRepository) GetLeaderboardEntry(ctx context.Context, userID string, exec ...core.DBExecutor) (gamify.LeaderboardEntry, error) {
	query, args, err := psql.Select(leaderboardColumns).
		From("leaderboard l").
		Join(`"user" u ON u.id = l.user_id`).
		Where(sq.Eq{"l.user_id": userID}).
		ToSql()
	if err != nil {
		return gamify.LeaderboardEntry{}, errors.Wrap(err, "building query")
	}

	var entry gamify.LeaderboardEntry
	if err = executor(repo.db, exec).GetContext(ctx, &entry, query, args...); err != nil {
		if isNoRows(err) {
			return gamify.LeaderboardEntry{}, gamify.ErrEntryNotFound
		}
		return gamify.LeaderboardEntry{}, errors.Wrap(err, "getting leaderboard entry")
	}
	return entry, nil
}

func (repo *GamifyRepository) UpsertLeaderboardEntry(ctx context.Context, entry gamify.LeaderboardEntry, exec ...core.DBExecutor) (gamify.LeaderboardEntry, error) {
	query, args, err := psql.Insert("leaderboard").
		Columns("user_id", "total_points", "rank", "updated_at").
		Values(entry.UserID, entry.TotalPoints, entry.Rank, entry.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE
			SET total_points = EXCLUDED.total_points, updated_at = EXCLUDED.updated_at
			RETURNING id`).
		ToSql()
	if err != nil {
		return gamify.LeaderboardEntry{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &entry.ID, query, args...); err != nil {
		return gamify.LeaderboardEntry{}, errors.Wrap(err, "upserting leaderboard entry")
	}
	return entry, nil
}

func (repo *GamifyRepository) QueryLeaderboardEntries(ctx context.Context, exec ...core.DBExecutor) ([]gamify.LeaderboardEntry, error) {
	query, args, err := psql.Select(leaderboardColumns).
		From("leaderboard l").
		Join(`"user" u ON u.id = l.user_id`).
		OrderBy("l.total_points DESC", "l.user_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []gamify.LeaderboardEntry{}
	if err = executor(repo.db, exec).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying leaderboard")
	}
	return entries, nil
}

func (repo *GamifyRepository) SaveRanks(ctx context.Context, entries []gamify.LeaderboardEntry, exec ...core.DBExecutor) error {
	ex := executor(repo.db, exec)
	for _, entry := range entries {
		query, args, err := psql.Update("leaderboard").
			Set("rank", entry.Rank).
			Set("updated_at", core.NowFunc().UTC()).
			Where(sq.Eq{"id": entry.ID}).
			ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = ex.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "saving rank")
		}
	}
	return nil
}

func (repo *GamifyRepository) QueryRankedEntries(ctx context.Context, limit, offset int) ([]gamify.LeaderboardEntry, error) {
	qb := psql.Select(leaderboardColumns).
		From("leaderboard l").
		Join(`"user" u ON u.id = l.user_id`).
		Where("l.rank IS NOT NULL").
		OrderBy("l.rank ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	if offset > 0 {
		qb = qb.Offset(uint64(offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []gamify.LeaderboardEntry{}
	if err = repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying ranked entries")
	}
	return entries, nil
}

func (repo *GamifyRepository) QueryEntriesByRankRange(ctx context.Context, lo, hi int) ([]gamify.LeaderboardEntry, error) {
	query, args, err := psql.Select(leaderboardColumns).
		From("leaderboard l").
		Join(`"user" u ON u.id = l.user_id`).
		Where(sq.And{sq.GtOrEq{"l.rank": lo}, sq.LtOrEq{"l.rank": hi}}).
		OrderBy("l.rank ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []gamify.LeaderboardEntry{}
	if err = repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying rank range")
	}
	return entries, nil
}

func (repo *GamifyRepository) CountLeaderboardEntries(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM leaderboard"); err != nil {
		return 0, errors.Wrap(err, "counting leaderboard entries")
	}
	return count, nil
}

// milestone sources

func (repo *GamifyRepository) CountCompletedModules(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("user_progress").
		Where(sq.Eq{"user_id": userID, "completion_percent": 100}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting completed modules")
	}
	return count, nil
}

// CountCompletedPaths counts followed paths whose every module the user has
// fully completed.
func (repo *GamifyRepository) CountCompletedPaths(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	const query = `
		SELECT COUNT(*) FROM path_follower pf
		WHERE pf.user_id = $1
		  AND EXISTS (SELECT 1 FROM module m WHERE m.path_id = pf.path_id)
		  AND NOT EXISTS (
			SELECT 1 FROM module m
			LEFT JOIN user_progress up ON up.module_id = m.id AND up.user_id = pf.user_id
			WHERE m.path_id = pf.path_id
			  AND COALESCE(up.completion_percent, 0) < 100
		  )`

	var count int
	if err := executor(repo.db, exec).GetContext(ctx, &count, query, userID); err != nil {
		return 0, errors.Wrap(err, "counting completed paths")
	}
	return count, nil
}

func (repo *GamifyRepository) CountCreatedPaths(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("learning_path").
		Where(sq.Eq{"creator_id": userID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting created paths")
	}
	return count, nil
}
