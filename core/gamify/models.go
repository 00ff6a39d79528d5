package gamify

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type (
	// LogEntry is one immutable row of the points ledger. It is never updated
	// or deleted after creation.
	LogEntry struct {
		ID           string    `json:"id" db:"id"`
		UserID       string    `json:"user_id" db:"user_id"`
		PointsChange int       `json:"points_change" db:"points_change"`
		Reason       string    `json:"reason" db:"reason"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Badge struct {
		ID          string    `json:"id" db:"id"`
		Key         string    `json:"key" db:"key"`
		Name        string    `json:"name" db:"name"`
		Description string    `json:"description" db:"description"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// BadgeAward links a user to an earned badge; at most one per (user, badge).
	BadgeAward struct {
		ID        string    `json:"id" db:"id"`
		UserID    string    `json:"user_id" db:"user_id"`
		BadgeID   string    `json:"badge_id" db:"badge_id"`
		AwardedAt time.Time `json:"awarded_at" db:"awarded_at"` // UTC
	}

	// LeaderboardEntry is the per-user denormalized ranking row.
	// TotalPoints mirrors User.Points; Rank is null until the first recompute.
	LeaderboardEntry struct {
		ID          string    `json:"id" db:"id"`
		UserID      string    `json:"user_id" db:"user_id"`
		Username    string    `json:"username" db:"username"`
		TotalPoints int       `json:"total_points" db:"total_points"`
		Rank        null.Int  `json:"rank" db:"rank"`
		UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// CategoryEntry is a per-user point sum over a subset of ledger reasons.
	CategoryEntry struct {
		UserID   string `json:"user_id" db:"user_id"`
		Username string `json:"username" db:"username"`
		Points   int    `json:"points" db:"points"`
	}

	// AwardSummary reports what a single award call granted.
	// BadgesAwarded only lists badges unlocked directly by this call; unlocks
	// from the nested earn_badge reward are not surfaced.
	AwardSummary struct {
		Points        int      `json:"points"`
		XP            int      `json:"xp"`
		Action        string   `json:"action"`
		BadgesAwarded []string `json:"badges_awarded"`
	}

	// MilestoneProgress is a snapshot of how far a user is toward a milestone badge.
	MilestoneProgress struct {
		Current   int  `json:"current"`
		Target    int  `json:"target"`
		Completed bool `json:"completed"`
	}

	// BadgeProgress maps badge key to either a bool (earned) or a MilestoneProgress.
	BadgeProgress map[string]interface{}
)
