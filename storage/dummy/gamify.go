package dummy

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
)

type GamifyRepository struct {
	mu      sync.RWMutex
	logs    []gamify.LogEntry
	badges  map[string]gamify.Badge // by key
	awards  []gamify.BadgeAward
	entries map[string]gamify.LeaderboardEntry // by user ID

	users *UserRepository // for usernames on category entries; may be nil

	// milestone counters, keyed by user ID; tests set these directly and the
	// learning/community dummies bump them as a side effect.
	CompletedModules map[string]int
	CompletedPaths   map[string]int
	CreatedPaths     map[string]int
}

var _ gamify.Repository = (*GamifyRepository)(nil)

func NewGamifyRepository(users *UserRepository) *GamifyRepository {
	return &GamifyRepository{
		badges:           make(map[string]gamify.Badge),
		entries:          make(map[string]gamify.LeaderboardEntry),
		users:            users,
		CompletedModules: make(map[string]int),
		CompletedPaths:   make(map[string]int),
		CreatedPaths:     make(map[string]int),
	}
}

// ledger

func (repo *GamifyRepository) CreateLogEntry(_ context.Context, entry gamify.LogEntry, _ ...core.DBExecutor) (gamify.LogEntry, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	repo.logs = append(repo.logs, entry)
	return entry, nil
}

func (repo *GamifyRepository) QueryLogEntriesByUser(_ context.Context, userID string) ([]gamify.LogEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	entries := make([]gamify.LogEntry, 0)
	for _, entry := range repo.logs {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	// newest first
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *GamifyRepository) SumPointsByActions(_ context.Context, actions []string, limit int) ([]gamify.CategoryEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	matches := func(reason string) bool {
		for _, action := range actions {
			if reason == action || strings.HasPrefix(reason, action+":") {
				return true
			}
		}
		return false
	}

	sums := make(map[string]int)
	for _, entry := range repo.logs {
		if matches(entry.Reason) {
			sums[entry.UserID] += entry.PointsChange
		}
	}

	entries := make([]gamify.CategoryEntry, 0, len(sums))
	for userID, points := range sums {
		entry := gamify.CategoryEntry{UserID: userID, Points: points}
		if repo.users != nil {
			if usr, err := repo.users.GetUserByID(context.Background(), userID); err == nil {
				entry.Username = usr.Username
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// badges

func (repo *GamifyRepository) CreateBadge(_ context.Context, badge gamify.Badge, _ ...core.DBExecutor) (gamify.Badge, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if badge.ID == "" {
		badge.ID = uuid.NewString()
	}
	repo.badges[badge.Key] = badge
	return badge, nil
}

func (repo *GamifyRepository) GetBadgeByKey(_ context.Context, key string, _ ...core.DBExecutor) (gamify.Badge, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if badge, ok := repo.badges[key]; ok {
		return badge, nil
	}
	return gamify.Badge{}, gamify.ErrBadgeNotFound
}

func (repo *GamifyRepository) QueryAllBadges(_ context.Context) ([]gamify.Badge, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	badges := make([]gamify.Badge, 0, len(repo.badges))
	for _, badge := range repo.badges {
		badges = append(badges, badge)
	}
	sort.Slice(badges, func(i, j int) bool { return badges[i].Key < badges[j].Key })
	return badges, nil
}

func (repo *GamifyRepository) CountBadgeEarners(_ context.Context, badgeID string) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var count int
	for _, award := range repo.awards {
		if award.BadgeID == badgeID {
			count++
		}
	}
	return count, nil
}

func (repo *GamifyRepository) UserHasBadge(_ context.Context, userID, badgeKey string, _ ...core.DBExecutor) (bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	badge, ok := repo.badges[badgeKey]
	if !ok {
		return false, nil
	}
	for _, award := range repo.awards {
		if award.UserID == userID && award.BadgeID == badge.ID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *GamifyRepository) CreateBadgeAward(_ context.Context, award gamify.BadgeAward, _ ...core.DBExecutor) (gamify.BadgeAward, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	repo.awards = append(repo.awards, award)
	return award, nil
}

func (repo *GamifyRepository) QueryUserBadges(_ context.Context, userID string) ([]gamify.Badge, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	byID := make(map[string]gamify.Badge, len(repo.badges))
	for _, badge := range repo.badges {
		byID[badge.ID] = badge
	}

	badges := make([]gamify.Badge, 0)
	for _, award := range repo.awards {
		if award.UserID == userID {
			if badge, ok := byID[award.BadgeID]; ok {
				badges = append(badges, badge)
			}
		}
	}
	return badges, nil
}

// leaderboard

func (repo *GamifyRepository) GetLeaderboardEntry(_ context.Context, userID string, _ ...core.DBExecutor) (gamify.LeaderboardEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if entry, ok := repo.entries[userID]; ok {
		return entry, nil
	}
	return gamify.LeaderboardEntry{}, gamify.ErrEntryNotFound
}

func (repo *GamifyRepository) UpsertLeaderboardEntry(_ context.Context, entry gamify.LeaderboardEntry, _ ...core.DBExecutor) (gamify.LeaderboardEntry, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Username == "" && repo.users != nil {
		if usr, err := repo.users.GetUserByID(context.Background(), entry.UserID); err == nil {
			entry.Username = usr.Username
		}
	}
	repo.entries[entry.UserID] = entry
	return entry, nil
}

func (repo *GamifyRepository) QueryLeaderboardEntries(_ context.Context, _ ...core.DBExecutor) ([]gamify.LeaderboardEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.sortedByPoints(), nil
}

func (repo *GamifyRepository) sortedByPoints() []gamify.LeaderboardEntry {
	entries := make([]gamify.LeaderboardEntry, 0, len(repo.entries))
	for _, entry := range repo.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

func (repo *GamifyRepository) SaveRanks(_ context.Context, entries []gamify.LeaderboardEntry, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, entry := range entries {
		repo.entries[entry.UserID] = entry
	}
	return nil
}

func (repo *GamifyRepository) QueryRankedEntries(_ context.Context, limit, offset int) ([]gamify.LeaderboardEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	ranked := make([]gamify.LeaderboardEntry, 0, len(repo.entries))
	for _, entry := range repo.entries {
		if entry.Rank.Valid {
			ranked = append(ranked, entry)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank.Int < ranked[j].Rank.Int })

	if offset >= len(ranked) {
		return []gamify.LeaderboardEntry{}, nil
	}
	ranked = ranked[offset:]
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (repo *GamifyRepository) QueryEntriesByRankRange(_ context.Context, lo, hi int) ([]gamify.LeaderboardEntry, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	entries := make([]gamify.LeaderboardEntry, 0)
	for _, entry := range repo.entries {
		if entry.Rank.Valid && int(entry.Rank.Int) >= lo && int(entry.Rank.Int) <= hi {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank.Int < entries[j].Rank.Int })
	return entries, nil
}

func (repo *GamifyRepository) CountLeaderboardEntries(_ context.Context) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return len(repo.entries), nil
}

// milestone sources

func (repo *GamifyRepository) CountCompletedModules(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.CompletedModules[userID], nil
}

func (repo *GamifyRepository) CountCompletedPaths(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.CompletedPaths[userID], nil
}

func (repo *GamifyRepository) CountCreatedPaths(_ context.Context, userID string, _ ...core.DBExecutor) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.CreatedPaths[userID], nil
}

// LeaderboardCache is an in-memory gamify.LeaderboardCache.
type LeaderboardCache struct {
	mu      sync.RWMutex
	entries []gamify.LeaderboardEntry
}

var _ gamify.LeaderboardCache = (*LeaderboardCache)(nil)

func NewLeaderboardCache() *LeaderboardCache { return &LeaderboardCache{} }

func (c *LeaderboardCache) ReplaceTop(_ context.Context, entries []gamify.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]gamify.LeaderboardEntry(nil), entries...)
	return nil
}

func (c *LeaderboardCache) TopN(_ context.Context, n int) ([]gamify.LeaderboardEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return nil, gamify.ErrCacheMiss
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}
	return append([]gamify.LeaderboardEntry(nil), c.entries[:n]...), nil
}
