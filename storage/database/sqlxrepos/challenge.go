package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/challenge"
)

type ChallengeRepository struct {
	db core.DB
}

var _ challenge.Repository = (*ChallengeRepository)(nil)

func NewChallengeRepository(db core.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// challenges

func (repo *ChallengeRepository) CreateChallenge(ctx context.Context, ch challenge.UserChallenge) (challenge.UserChallenge, error) {
	query, args, err := psql.Insert("user_challenge").
		Columns("title", "description", "xp_reward", "points_reward", "duration_days", "created_at").
		Values(ch.Title, ch.Description, ch.XPReward, ch.PointsReward, ch.DurationDays, ch.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return challenge.UserChallenge{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &ch.ID, query, args...); err != nil {
		return challenge.UserChallenge{}, errors.Wrap(err, "creating challenge")
	}
	return ch, nil
}

func (repo *ChallengeRepository) GetChallengeByID(ctx context.Context, id string) (challenge.UserChallenge, error) {
	query, args, err := psql.Select("id", "title", "description", "xp_reward", "points_reward", "duration_days", "created_at").
		From("user_challenge").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return challenge.UserChallenge{}, errors.Wrap(err, "building query")
	}

	var ch challenge.UserChallenge
	if err = repo.db.GetContext(ctx, &ch, query, args...); err != nil {
		if isNoRows(err) {
			return challenge.UserChallenge{}, challenge.ErrChallengeNotFound
		}
		return challenge.UserChallenge{}, errors.Wrap(err, "getting challenge")
	}
	return ch, nil
}

func (repo *ChallengeRepository) QueryChallengesCreatedSince(ctx context.Context, since time.Time) ([]challenge.UserChallenge, error) {
	query, args, err := psql.Select("id", "title", "description", "xp_reward", "points_reward", "duration_days", "created_at").
		From("user_challenge").
		Where(sq.Gt{"created_at": since}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	challenges := []challenge.UserChallenge{}
	if err = repo.db.SelectContext(ctx, &challenges, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying challenges")
	}
	return challenges, nil
}

// events

func (repo *ChallengeRepository) CreateEvent(ctx context.Context, evt challenge.PlatformEvent) (challenge.PlatformEvent, error) {
	query, args, err := psql.Insert("platform_event").
		Columns("name", "description", "start_date", "end_date", "reward_points", "created_at").
		Values(evt.Name, evt.Description, evt.StartDate, evt.EndDate, evt.RewardPoints, evt.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return challenge.PlatformEvent{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &evt.ID, query, args...); err != nil {
		return challenge.PlatformEvent{}, errors.Wrap(err, "creating event")
	}
	return evt, nil
}

func (repo *ChallengeRepository) GetEventByID(ctx context.Context, id string) (challenge.PlatformEvent, error) {
	query, args, err := psql.Select("id", "name", "description", "start_date", "end_date", "reward_points", "created_at").
		From("platform_event").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return challenge.PlatformEvent{}, errors.Wrap(err, "building query")
	}

	var evt challenge.PlatformEvent
	if err = repo.db.GetContext(ctx, &evt, query, args...); err != nil {
		if isNoRows(err) {
			return challenge.PlatformEvent{}, challenge.ErrEventNotFound
		}
		return challenge.PlatformEvent{}, errors.Wrap(err, "getting event")
	}
	return evt, nil
}

func (repo *ChallengeRepository) QueryActiveEvents(ctx context.Context, at time.Time) ([]challenge.PlatformEvent, error) {
	query, args, err := psql.Select("id", "name", "description", "start_date", "end_date", "reward_points", "created_at").
		From("platform_event").
		Where(sq.And{sq.LtOrEq{"start_date": at}, sq.GtOrEq{"end_date": at}}).
		OrderBy("start_date ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	events := []challenge.PlatformEvent{}
	if err = repo.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying active events")
	}
	return events, nil
}

// participations

func (repo *ChallengeRepository) CreateParticipation(ctx context.Context, part challenge.Participation, exec ...core.DBExecutor) (challenge.Participation, error) {
	query, args, err := psql.Insert("challenge_participation").
		Columns("user_id", "challenge_id", "event_id", "started_at", "completed_at", "progress_percent", "is_completed").
		Values(part.UserID, part.ChallengeID, part.EventID, part.StartedAt, part.CompletedAt, part.ProgressPercent, part.IsCompleted).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return challenge.Participation{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &part.ID, query, args...); err != nil {
		return challenge.Participation{}, errors.Wrap(err, "creating participation")
	}
	return part, nil
}

func (repo *ChallengeRepository) GetParticipation(ctx context.Context, userID string, challengeID, eventID null.String) (challenge.Participation, error) {
	query, args, err := psql.Select("id", "user_id", "challenge_id", "event_id", "started_at", "completed_at", "progress_percent", "is_completed").
		From("challenge_participation").
		Where(sq.Eq{"user_id": userID, "challenge_id": challengeID, "event_id": eventID}).
		ToSql()
	if err != nil {
		return challenge.Participation{}, errors.Wrap(err, "building query")
	}

	var part challenge.Participation
	if err = repo.db.GetContext(ctx, &part, query, args...); err != nil {
		if isNoRows(err) {
			return challenge.Participation{}, challenge.ErrParticipationNotFound
		}
		return challenge.Participation{}, errors.Wrap(err, "getting participation")
	}
	return part, nil
}

func (repo *ChallengeRepository) GetParticipationByID(ctx context.Context, id string) (challenge.Participation, error) {
	query, args, err := psql.Select("id", "user_id", "challenge_id", "event_id", "started_at", "completed_at", "progress_percent", "is_completed").
		From("challenge_participation").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return challenge.Participation{}, errors.Wrap(err, "building query")
	}

	var part challenge.Participation
	if err = repo.db.GetContext(ctx, &part, query, args...); err != nil {
		if isNoRows(err) {
			return challenge.Participation{}, challenge.ErrParticipationNotFound
		}
		return challenge.Participation{}, errors.Wrap(err, "getting participation")
	}
	return part, nil
}

func (repo *ChallengeRepository) UpdateParticipation(ctx context.Context, part challenge.Participation, exec ...core.DBExecutor) (challenge.Participation, error) {
	query, args, err := psql.Update("challenge_participation").
		Set("progress_percent", part.ProgressPercent).
		Set("is_completed", part.IsCompleted).
		Set("completed_at", part.CompletedAt).
		Where(sq.Eq{"id": part.ID}).
		ToSql()
	if err != nil {
		return challenge.Participation{}, errors.Wrap(err, "building query")
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return challenge.Participation{}, errors.Wrap(err, "updating participation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return challenge.Participation{}, challenge.ErrParticipationNotFound
	}
	return part, nil
}

func (repo *ChallengeRepository) QueryParticipationsByUser(ctx context.Context, userID string) ([]challenge.Participation, error) {
	query, args, err := psql.Select("id", "user_id", "challenge_id", "event_id", "started_at", "completed_at", "progress_percent", "is_completed").
		From("challenge_participation").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("started_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	parts := []challenge.Participation{}
	if err = repo.db.SelectContext(ctx, &parts, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying participations")
	}
	return parts, nil
}

func (repo *ChallengeRepository) CountParticipants(ctx context.Context, challengeID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("challenge_participation").
		Where(sq.Eq{"challenge_id": challengeID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting participants")
	}
	return count, nil
}

func (repo *ChallengeRepository) QueryStandings(ctx context.Context, challengeID string, limit int) ([]challenge.StandingEntry, error) {
	qb := psql.Select("cp.user_id", "u.username", "cp.progress_percent", "cp.is_completed", "cp.started_at").
		From("challenge_participation cp").
		Join(`"user" u ON u.id = cp.user_id`).
		Where(sq.Eq{"cp.challenge_id": challengeID}).
		OrderBy("cp.progress_percent DESC", "cp.started_at ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	entries := []challenge.StandingEntry{}
	if err = repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying standings")
	}
	return entries, nil
}
