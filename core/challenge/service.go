package challenge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

var (
	// errors
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrChallengeEnded        = errors.New("this challenge has ended")
	ErrEventNotActive        = errors.New("this event is not active")
	ErrAlreadyJoined         = errors.New("already joined")
	ErrNotParticipant        = errors.New("not a participant")
)

type (
	Repository interface {
		CreateChallenge(ctx context.Context, ch UserChallenge) (UserChallenge, error)
		GetChallengeByID(ctx context.Context, id string) (UserChallenge, error)
		// QueryChallengesCreatedSince returns challenges whose run window may
		// still be open, newest first.
		QueryChallengesCreatedSince(ctx context.Context, since time.Time) ([]UserChallenge, error)

		CreateEvent(ctx context.Context, evt PlatformEvent) (PlatformEvent, error)
		GetEventByID(ctx context.Context, id string) (PlatformEvent, error)
		QueryActiveEvents(ctx context.Context, at time.Time) ([]PlatformEvent, error)

		CreateParticipation(ctx context.Context, part Participation, exec ...core.DBExecutor) (Participation, error)
		GetParticipation(ctx context.Context, userID string, challengeID, eventID null.String) (Participation, error)
		GetParticipationByID(ctx context.Context, id string) (Participation, error)
		UpdateParticipation(ctx context.Context, part Participation, exec ...core.DBExecutor) (Participation, error)
		QueryParticipationsByUser(ctx context.Context, userID string) ([]Participation, error)
		CountParticipants(ctx context.Context, challengeID string) (int, error)
		// QueryStandings returns a challenge's participants ordered by progress
		// descending, earliest start first.
		QueryStandings(ctx context.Context, challengeID string, limit int) ([]StandingEntry, error)
	}

	Service interface {
		CreateChallenge(ctx context.Context, nc NewChallenge) (UserChallenge, error)
		ActiveChallenges(ctx context.Context) ([]ActiveChallenge, error)
		JoinChallenge(ctx context.Context, usr user.User, challengeID string) (Participation, error)
		Standings(ctx context.Context, challengeID string) (UserChallenge, []StandingEntry, error)

		CreateEvent(ctx context.Context, ne NewEvent) (PlatformEvent, error)
		ActiveEvents(ctx context.Context) ([]PlatformEvent, error)
		JoinEvent(ctx context.Context, usr user.User, eventID string) (Participation, gamify.AwardSummary, error)

		MyParticipations(ctx context.Context, userID string) ([]Participation, error)
		// UpdateProgress advances a participation; completing a challenge
		// rewards the participant atomically.
		UpdateProgress(ctx context.Context, usr user.User, participationID string, pu ProgressUpdate) (Participation, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		gameSvc gamify.Service
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, gameSvc gamify.Service, logger core.Logger) *service {
	return &service{
		db:      db,
		repo:    repo,
		gameSvc: gameSvc,
		logger:  logger,
	}
}

func (svc *service) CreateChallenge(ctx context.Context, nc NewChallenge) (UserChallenge, error) {
	ch := UserChallenge{
		Title:        nc.Title,
		Description:  nc.Description,
		XPReward:     nc.XPReward,
		PointsReward: nc.PointsReward,
		DurationDays: nc.DurationDays,
		CreatedAt:    core.NowFunc().UTC(),
	}
	return svc.repo.CreateChallenge(ctx, ch)
}

// ActiveChallenges lists challenges whose run window is still open, with
// participant counts and days remaining.
func (svc *service) ActiveChallenges(ctx context.Context) ([]ActiveChallenge, error) {
	now := core.NowFunc().UTC()

	// the widest possible window; per-challenge windows are checked below
	challenges, err := svc.repo.QueryChallengesCreatedSince(ctx, now.AddDate(0, 0, -maxDurationDays))
	if err != nil {
		return nil, errors.Wrap(err, "querying challenges")
	}

	active := make([]ActiveChallenge, 0, len(challenges))
	for _, ch := range challenges {
		endsAt := ch.endsAt()
		if !endsAt.After(now) {
			continue
		}
		count, err := svc.repo.CountParticipants(ctx, ch.ID)
		if err != nil {
			return nil, errors.Wrap(err, "counting participants")
		}
		active = append(active, ActiveChallenge{
			UserChallenge: ch,
			Participants:  count,
			DaysRemaining: int(endsAt.Sub(now).Hours() / 24),
		})
	}
	return active, nil
}

func (svc *service) JoinChallenge(ctx context.Context, usr user.User, challengeID string) (Participation, error) {
	ch, err := svc.repo.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return Participation{}, err
	}
	if !ch.endsAt().After(core.NowFunc().UTC()) {
		return Participation{}, core.NewValidationError(ErrChallengeEnded)
	}

	chID := null.StringFrom(ch.ID)
	if _, err = svc.repo.GetParticipation(ctx, usr.ID, chID, null.String{}); err == nil {
		return Participation{}, core.NewValidationError(ErrAlreadyJoined)
	} else if err != ErrParticipationNotFound {
		return Participation{}, errors.Wrap(err, "checking participation")
	}

	part := Participation{
		UserID:      usr.ID,
		ChallengeID: chID,
		StartedAt:   core.NowFunc().UTC(),
	}
	return svc.repo.CreateParticipation(ctx, part)
}

func (svc *service) Standings(ctx context.Context, challengeID string) (UserChallenge, []StandingEntry, error) {
	ch, err := svc.repo.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return UserChallenge{}, nil, err
	}
	entries, err := svc.repo.QueryStandings(ctx, ch.ID, standingsLimit)
	if err != nil {
		return UserChallenge{}, nil, errors.Wrap(err, "querying standings")
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return ch, entries, nil
}

func (svc *service) CreateEvent(ctx context.Context, ne NewEvent) (PlatformEvent, error) {
	evt := PlatformEvent{
		Name:         ne.Name,
		Description:  ne.Description,
		StartDate:    ne.StartDate.UTC(),
		EndDate:      ne.EndDate.UTC(),
		RewardPoints: ne.RewardPoints,
		CreatedAt:    core.NowFunc().UTC(),
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *service) ActiveEvents(ctx context.Context) ([]PlatformEvent, error) {
	return svc.repo.QueryActiveEvents(ctx, core.NowFunc().UTC())
}

// JoinEvent enrolls usr in an active event and rewards the participation.
func (svc *service) JoinEvent(ctx context.Context, usr user.User, eventID string) (Participation, gamify.AwardSummary, error) {
	evt, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return Participation{}, gamify.AwardSummary{}, err
	}
	now := core.NowFunc().UTC()
	if now.Before(evt.StartDate) || now.After(evt.EndDate) {
		return Participation{}, gamify.AwardSummary{}, core.NewValidationError(ErrEventNotActive)
	}

	evtID := null.StringFrom(evt.ID)
	if _, err = svc.repo.GetParticipation(ctx, usr.ID, null.String{}, evtID); err == nil {
		return Participation{}, gamify.AwardSummary{}, core.NewValidationError(ErrAlreadyJoined)
	} else if err != ErrParticipationNotFound {
		return Participation{}, gamify.AwardSummary{}, errors.Wrap(err, "checking participation")
	}

	var (
		part Participation
		sum  gamify.AwardSummary
	)
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		part, err = svc.repo.CreateParticipation(ctx, Participation{
			UserID:    usr.ID,
			EventID:   evtID,
			StartedAt: now,
		}, tx)
		if err != nil {
			return errors.Wrap(err, "creating participation")
		}
		sum, err = svc.gameSvc.AwardPointsTx(ctx, tx, &usr, gamify.ActionParticipateEvent, evt.Name)
		return err
	}); err != nil {
		return Participation{}, gamify.AwardSummary{}, err
	}

	svc.refreshLeaderboard(ctx)
	return part, sum, nil
}

func (svc *service) MyParticipations(ctx context.Context, userID string) ([]Participation, error) {
	parts, err := svc.repo.QueryParticipationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].StartedAt.After(parts[j].StartedAt) })
	return parts, nil
}

func (svc *service) UpdateProgress(ctx context.Context, usr user.User, participationID string, pu ProgressUpdate) (Participation, error) {
	part, err := svc.repo.GetParticipationByID(ctx, participationID)
	if err != nil {
		return Participation{}, err
	}
	if part.UserID != usr.ID {
		return Participation{}, ErrNotParticipant
	}
	if part.IsCompleted {
		return part, nil
	}

	if !pu.MarkCompleted {
		part.ProgressPercent = pu.ProgressPercent
		return svc.repo.UpdateParticipation(ctx, part)
	}

	part.ProgressPercent = 100
	part.IsCompleted = true
	part.CompletedAt = null.TimeFrom(core.NowFunc().UTC())

	// Event completion carries no reward of its own; the reward was granted on
	// joining.
	if !part.ChallengeID.Valid {
		return svc.repo.UpdateParticipation(ctx, part)
	}

	ch, err := svc.repo.GetChallengeByID(ctx, part.ChallengeID.String)
	if err != nil {
		return Participation{}, err
	}
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		if part, err = svc.repo.UpdateParticipation(ctx, part, tx); err != nil {
			return errors.Wrap(err, "updating participation")
		}
		_, err = svc.gameSvc.AwardPointsTx(ctx, tx, &usr, gamify.ActionCompleteChallenge, fmt.Sprintf("Challenge: %s", ch.Title))
		return err
	}); err != nil {
		return Participation{}, err
	}

	svc.refreshLeaderboard(ctx)
	return part, nil
}

func (ch UserChallenge) endsAt() time.Time {
	return ch.CreatedAt.AddDate(0, 0, ch.DurationDays)
}

func (svc *service) refreshLeaderboard(ctx context.Context) {
	if err := svc.gameSvc.RefreshLeaderboardCache(ctx); err != nil {
		svc.logger.Warn("refreshing leaderboard cache", "error", err)
	}
}

const (
	standingsLimit  = 20
	maxDurationDays = 365
)
