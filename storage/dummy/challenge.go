package dummy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/challenge"
)

type ChallengeRepository struct {
	mu             sync.RWMutex
	challenges     map[string]challenge.UserChallenge
	events         map[string]challenge.PlatformEvent
	participations map[string]challenge.Participation

	users *UserRepository // for standings usernames; may be nil
}

var _ challenge.Repository = (*ChallengeRepository)(nil)

func NewChallengeRepository(users *UserRepository) *ChallengeRepository {
	return &ChallengeRepository{
		challenges:     make(map[string]challenge.UserChallenge),
		events:         make(map[string]challenge.PlatformEvent),
		participations: make(map[string]challenge.Participation),
		users:          users,
	}
}

// challenges

func (repo *ChallengeRepository) CreateChallenge(_ context.Context, ch challenge.UserChallenge) (challenge.UserChallenge, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	repo.challenges[ch.ID] = ch
	return ch, nil
}

func (repo *ChallengeRepository) GetChallengeByID(_ context.Context, id string) (challenge.UserChallenge, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if ch, ok := repo.challenges[id]; ok {
		return ch, nil
	}
	return challenge.UserChallenge{}, challenge.ErrChallengeNotFound
}

func (repo *ChallengeRepository) QueryChallengesCreatedSince(_ context.Context, since time.Time) ([]challenge.UserChallenge, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	challenges := make([]challenge.UserChallenge, 0)
	for _, ch := range repo.challenges {
		if ch.CreatedAt.After(since) {
			challenges = append(challenges, ch)
		}
	}
	// newest first
	sort.Slice(challenges, func(i, j int) bool { return challenges[i].CreatedAt.After(challenges[j].CreatedAt) })
	return challenges, nil
}

// events

func (repo *ChallengeRepository) CreateEvent(_ context.Context, evt challenge.PlatformEvent) (challenge.PlatformEvent, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	repo.events[evt.ID] = evt
	return evt, nil
}

func (repo *ChallengeRepository) GetEventByID(_ context.Context, id string) (challenge.PlatformEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if evt, ok := repo.events[id]; ok {
		return evt, nil
	}
	return challenge.PlatformEvent{}, challenge.ErrEventNotFound
}

func (repo *ChallengeRepository) QueryActiveEvents(_ context.Context, at time.Time) ([]challenge.PlatformEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	events := make([]challenge.PlatformEvent, 0)
	for _, evt := range repo.events {
		if !at.Before(evt.StartDate) && !at.After(evt.EndDate) {
			events = append(events, evt)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

// participations

func (repo *ChallengeRepository) CreateParticipation(_ context.Context, part challenge.Participation, _ ...core.DBExecutor) (challenge.Participation, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if part.ID == "" {
		part.ID = uuid.NewString()
	}
	repo.participations[part.ID] = part
	return part, nil
}

func (repo *ChallengeRepository) GetParticipation(_ context.Context, userID string, challengeID, eventID null.String) (challenge.Participation, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, part := range repo.participations {
		if part.UserID == userID && part.ChallengeID == challengeID && part.EventID == eventID {
			return part, nil
		}
	}
	return challenge.Participation{}, challenge.ErrParticipationNotFound
}

func (repo *ChallengeRepository) GetParticipationByID(_ context.Context, id string) (challenge.Participation, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if part, ok := repo.participations[id]; ok {
		return part, nil
	}
	return challenge.Participation{}, challenge.ErrParticipationNotFound
}

func (repo *ChallengeRepository) UpdateParticipation(_ context.Context, part challenge.Participation, _ ...core.DBExecutor) (challenge.Participation, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.participations[part.ID]; !ok {
		return challenge.Participation{}, challenge.ErrParticipationNotFound
	}
	repo.participations[part.ID] = part
	return part, nil
}

func (repo *ChallengeRepository) QueryParticipationsByUser(_ context.Context, userID string) ([]challenge.Participation, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	parts := make([]challenge.Participation, 0)
	for _, part := range repo.participations {
		if part.UserID == userID {
			parts = append(parts, part)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].StartedAt.After(parts[j].StartedAt) })
	return parts, nil
}

func (repo *ChallengeRepository) CountParticipants(_ context.Context, challengeID string) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var count int
	for _, part := range repo.participations {
		if part.ChallengeID.Valid && part.ChallengeID.String == challengeID {
			count++
		}
	}
	return count, nil
}

func (repo *ChallengeRepository) QueryStandings(_ context.Context, challengeID string, limit int) ([]challenge.StandingEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	entries := make([]challenge.StandingEntry, 0)
	for _, part := range repo.participations {
		if !part.ChallengeID.Valid || part.ChallengeID.String != challengeID {
			continue
		}
		entry := challenge.StandingEntry{
			UserID:          part.UserID,
			Username:        part.UserID,
			ProgressPercent: part.ProgressPercent,
			IsCompleted:     part.IsCompleted,
			StartedAt:       part.StartedAt,
		}
		if repo.users != nil {
			if usr, err := repo.users.GetUserByID(context.Background(), part.UserID); err == nil {
				entry.Username = usr.Username
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ProgressPercent != entries[j].ProgressPercent {
			return entries[i].ProgressPercent > entries[j].ProgressPercent
		}
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
