package challenge

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
)

type (
	// PlatformEvent is a site-wide, date-bounded event users can join.
	PlatformEvent struct {
		ID           string    `json:"id" db:"id"`
		Name         string    `json:"name" db:"name"`
		Description  string    `json:"description" db:"description"`
		StartDate    time.Time `json:"start_date" db:"start_date"` // UTC
		EndDate      time.Time `json:"end_date" db:"end_date"`     // UTC
		RewardPoints int       `json:"reward_points" db:"reward_points"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// UserChallenge is a self-paced challenge that runs for DurationDays from
	// its creation.
	UserChallenge struct {
		ID           string    `json:"id" db:"id"`
		Title        string    `json:"title" db:"title"`
		Description  string    `json:"description" db:"description"`
		XPReward     int       `json:"xp_reward" db:"xp_reward"`
		PointsReward int       `json:"points_reward" db:"points_reward"`
		DurationDays int       `json:"duration_days" db:"duration_days"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// Participation records a user's enrollment in a challenge or an event,
	// exactly one of which is set.
	Participation struct {
		ID              string      `json:"id" db:"id"`
		UserID          string      `json:"user_id" db:"user_id"`
		ChallengeID     null.String `json:"challenge_id" db:"challenge_id"`
		EventID         null.String `json:"event_id" db:"event_id"`
		StartedAt       time.Time   `json:"started_at" db:"started_at"` // UTC
		CompletedAt     null.Time   `json:"completed_at" db:"completed_at"`
		ProgressPercent int         `json:"progress_percent" db:"progress_percent"`
		IsCompleted     bool        `json:"is_completed" db:"is_completed"`
	}

	// ActiveChallenge decorates a challenge with its live standing.
	ActiveChallenge struct {
		UserChallenge
		Participants  int `json:"participants"`
		DaysRemaining int `json:"days_remaining"`
	}

	// StandingEntry is one row of a per-challenge leaderboard, ordered by
	// progress then earliest start.
	StandingEntry struct {
		Rank            int       `json:"rank"`
		UserID          string    `json:"user_id" db:"user_id"`
		Username        string    `json:"username" db:"username"`
		ProgressPercent int       `json:"progress_percent" db:"progress_percent"`
		IsCompleted     bool      `json:"is_completed" db:"is_completed"`
		StartedAt       time.Time `json:"started_at" db:"started_at"`
	}
)

type NewChallenge struct {
	Title        string `json:"title" validate:"required,min=5"`
	Description  string `json:"description" validate:"required"`
	XPReward     int    `json:"xp_reward" validate:"min=0"`
	PointsReward int    `json:"points_reward" validate:"min=0"`
	DurationDays int    `json:"duration_days" validate:"required,min=1"`
}

func (nc *NewChallenge) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type NewEvent struct {
	Name         string    `json:"name" validate:"required,min=5"`
	Description  string    `json:"description" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
	RewardPoints int       `json:"reward_points" validate:"min=0"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if !ne.EndDate.After(ne.StartDate) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "end_date", Error: "must be after start_date",
		})
	}
	return nil
}

// ProgressUpdate moves a participation forward; MarkCompleted wins over
// ProgressPercent and triggers the completion reward.
type ProgressUpdate struct {
	ProgressPercent int  `json:"progress_percent" validate:"min=0,max=100"`
	MarkCompleted   bool `json:"mark_completed"`
}

func (pu *ProgressUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(pu)
}
