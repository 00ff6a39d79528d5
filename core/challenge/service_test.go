package challenge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/challenge"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
	"github.com/trezcool/ujuzi/storage/dummy"
)

type testEnv struct {
	svc       challenge.Service
	repo      *dummy.ChallengeRepository
	usersRepo *dummy.UserRepository
}

func newTestEnv(users ...user.User) testEnv {
	usersRepo := dummy.NewUserRepository(users...)
	gameRepo := dummy.NewGamifyRepository(usersRepo)
	gameSvc := gamify.NewService(dummy.NewDB(), gameRepo, usersRepo, dummy.NewLeaderboardCache(), gamify.DefaultRules(), dummy.Logger{})
	repo := dummy.NewChallengeRepository(usersRepo)
	svc := challenge.NewService(dummy.NewDB(), repo, gameSvc, dummy.Logger{})
	return testEnv{svc: svc, repo: repo, usersRepo: usersRepo}
}

func TestService_ActiveChallenges(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(usr)

	live, err := env.svc.CreateChallenge(ctx, challenge.NewChallenge{
		Title:        "Read 5 modules",
		Description:  "finish five modules this week",
		DurationDays: 7,
	})
	require.NoError(t, err)

	// a challenge whose window closed is not listed
	_, err = env.repo.CreateChallenge(ctx, challenge.UserChallenge{
		Title:        "Long gone",
		DurationDays: 7,
		CreatedAt:    time.Now().UTC().AddDate(0, 0, -30),
	})
	require.NoError(t, err)

	_, err = env.svc.JoinChallenge(ctx, usr, live.ID)
	require.NoError(t, err)

	active, err := env.svc.ActiveChallenges(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, live.ID, active[0].ID)
	require.Equal(t, 1, active[0].Participants)
	require.Equal(t, 6, active[0].DaysRemaining)
}

func TestService_JoinChallenge(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(usr)

	ch, err := env.svc.CreateChallenge(ctx, challenge.NewChallenge{
		Title:        "Daily quiz run",
		Description:  "one quiz a day",
		DurationDays: 14,
	})
	require.NoError(t, err)

	part, err := env.svc.JoinChallenge(ctx, usr, ch.ID)
	require.NoError(t, err)
	require.Equal(t, ch.ID, part.ChallengeID.String)
	require.Zero(t, part.ProgressPercent)

	// joining twice is rejected
	_, err = env.svc.JoinChallenge(ctx, usr, ch.ID)
	require.True(t, core.IsValidationError(err))

	// an ended challenge cannot be joined
	ended, err := env.repo.CreateChallenge(ctx, challenge.UserChallenge{
		Title:        "Over",
		DurationDays: 1,
		CreatedAt:    time.Now().UTC().AddDate(0, 0, -2),
	})
	require.NoError(t, err)
	_, err = env.svc.JoinChallenge(ctx, usr, ended.ID)
	require.True(t, core.IsValidationError(err))
}

func TestService_UpdateProgress(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(usr)

	ch, err := env.svc.CreateChallenge(ctx, challenge.NewChallenge{
		Title:        "Module marathon",
		Description:  "complete ten modules",
		DurationDays: 30,
	})
	require.NoError(t, err)
	part, err := env.svc.JoinChallenge(ctx, usr, ch.ID)
	require.NoError(t, err)

	part, err = env.svc.UpdateProgress(ctx, usr, part.ID, challenge.ProgressUpdate{ProgressPercent: 40})
	require.NoError(t, err)
	require.Equal(t, 40, part.ProgressPercent)
	require.False(t, part.IsCompleted)

	// no reward until completion
	got, _ := env.usersRepo.GetUserByID(ctx, usr.ID)
	require.Zero(t, got.Points)

	part, err = env.svc.UpdateProgress(ctx, usr, part.ID, challenge.ProgressUpdate{MarkCompleted: true})
	require.NoError(t, err)
	require.True(t, part.IsCompleted)
	require.Equal(t, 100, part.ProgressPercent)
	require.True(t, part.CompletedAt.Valid)

	got, _ = env.usersRepo.GetUserByID(ctx, usr.ID)
	require.Equal(t, 200, got.Points)
	require.Equal(t, 500, got.XP)

	// completing again is a no-op
	points := got.Points
	_, err = env.svc.UpdateProgress(ctx, usr, part.ID, challenge.ProgressUpdate{MarkCompleted: true})
	require.NoError(t, err)
	got, _ = env.usersRepo.GetUserByID(ctx, usr.ID)
	require.Equal(t, points, got.Points)
}

func TestService_UpdateProgress_onlyOwnParticipation(t *testing.T) {
	ctx := context.Background()
	ada := user.User{ID: "u1", Username: "ada"}
	eve := user.User{ID: "u2", Username: "eve"}
	env := newTestEnv(ada, eve)

	ch, err := env.svc.CreateChallenge(ctx, challenge.NewChallenge{
		Title:        "Solo effort",
		Description:  "personal challenge",
		DurationDays: 7,
	})
	require.NoError(t, err)
	part, err := env.svc.JoinChallenge(ctx, ada, ch.ID)
	require.NoError(t, err)

	_, err = env.svc.UpdateProgress(ctx, eve, part.ID, challenge.ProgressUpdate{ProgressPercent: 99})
	require.ErrorIs(t, err, challenge.ErrNotParticipant)
}

func TestService_Events(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(usr)

	now := time.Now().UTC()
	evt, err := env.svc.CreateEvent(ctx, challenge.NewEvent{
		Name:        "Hack week",
		Description: "platform wide sprint",
		StartDate:   now.AddDate(0, 0, -1),
		EndDate:     now.AddDate(0, 0, 6),
	})
	require.NoError(t, err)

	// not yet started, not listed as active
	_, err = env.svc.CreateEvent(ctx, challenge.NewEvent{
		Name:        "Next month",
		Description: "future event",
		StartDate:   now.AddDate(0, 1, 0),
		EndDate:     now.AddDate(0, 1, 7),
	})
	require.NoError(t, err)

	active, err := env.svc.ActiveEvents(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, evt.ID, active[0].ID)
}

func TestService_JoinEvent_rewardsParticipation(t *testing.T) {
	ctx := context.Background()
	usr := user.User{ID: "u1", Username: "ada"}
	env := newTestEnv(usr)

	now := time.Now().UTC()
	evt, err := env.svc.CreateEvent(ctx, challenge.NewEvent{
		Name:        "Launch party",
		Description: "join us",
		StartDate:   now.AddDate(0, 0, -1),
		EndDate:     now.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	part, sum, err := env.svc.JoinEvent(ctx, usr, evt.ID)
	require.NoError(t, err)
	require.Equal(t, evt.ID, part.EventID.String)
	require.Equal(t, 50, sum.Points)

	got, _ := env.usersRepo.GetUserByID(ctx, usr.ID)
	require.Equal(t, 50, got.Points)

	// joining twice is rejected
	_, _, err = env.svc.JoinEvent(ctx, usr, evt.ID)
	require.True(t, core.IsValidationError(err))

	// an inactive event cannot be joined
	future, err := env.svc.CreateEvent(ctx, challenge.NewEvent{
		Name:        "Not yet open",
		Description: "soon",
		StartDate:   now.AddDate(0, 0, 5),
		EndDate:     now.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	_, _, err = env.svc.JoinEvent(ctx, usr, future.ID)
	require.True(t, core.IsValidationError(err))
}

func TestService_Standings(t *testing.T) {
	ctx := context.Background()
	ada := user.User{ID: "u1", Username: "ada"}
	bob := user.User{ID: "u2", Username: "bob"}
	env := newTestEnv(ada, bob)

	ch, err := env.svc.CreateChallenge(ctx, challenge.NewChallenge{
		Title:        "Race to the top",
		Description:  "most progress wins",
		DurationDays: 7,
	})
	require.NoError(t, err)

	pAda, err := env.svc.JoinChallenge(ctx, ada, ch.ID)
	require.NoError(t, err)
	pBob, err := env.svc.JoinChallenge(ctx, bob, ch.ID)
	require.NoError(t, err)

	_, err = env.svc.UpdateProgress(ctx, ada, pAda.ID, challenge.ProgressUpdate{ProgressPercent: 30})
	require.NoError(t, err)
	_, err = env.svc.UpdateProgress(ctx, bob, pBob.ID, challenge.ProgressUpdate{ProgressPercent: 80})
	require.NoError(t, err)

	_, entries, err := env.svc.Standings(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "bob", entries[0].Username)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "ada", entries[1].Username)
	require.Equal(t, 2, entries[1].Rank)
}
