package learning

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
)

// Review statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type (
	// Path is a curated sequence of modules. New paths start pending and
	// unpublished until an admin review.
	Path struct {
		ID              string      `json:"id" db:"id"`
		Title           string      `json:"title" db:"title"`
		Description     string      `json:"description" db:"description"`
		Status          string      `json:"status" db:"status"`
		CreatorID       string      `json:"creator_id" db:"creator_id"`
		ReviewedBy      null.String `json:"reviewed_by" db:"reviewed_by"`
		RejectionReason null.String `json:"rejection_reason" db:"rejection_reason"`
		IsPublished     bool        `json:"is_published" db:"is_published"`
		CreatedAt       time.Time   `json:"created_at" db:"created_at"` // UTC
	}

	Module struct {
		ID          string    `json:"id" db:"id"`
		PathID      string    `json:"path_id" db:"path_id"`
		Title       string    `json:"title" db:"title"`
		Description string    `json:"description" db:"description"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// ModuleSummary is a module with its content counts, for path detail views.
	ModuleSummary struct {
		Module
		ResourceCount int `json:"resource_count" db:"resource_count"`
		QuizCount     int `json:"quiz_count" db:"quiz_count"`
	}

	Resource struct {
		ID          string `json:"id" db:"id"`
		ModuleID    string `json:"module_id" db:"module_id"`
		Title       string `json:"title" db:"title"`
		Type        string `json:"type" db:"type"` // video, article, book, ...
		URL         string `json:"url" db:"url"`
		Description string `json:"description" db:"description"`
	}

	Quiz struct {
		ID           string `json:"id" db:"id"`
		ModuleID     string `json:"module_id" db:"module_id"`
		Title        string `json:"title" db:"title"`
		PassingScore int    `json:"passing_score" db:"passing_score"`
	}

	Question struct {
		ID      string   `json:"id" db:"id"`
		QuizID  string   `json:"quiz_id" db:"quiz_id"`
		Text    string   `json:"text" db:"text"`
		Choices []Choice `json:"choices" db:"-"`
	}

	Choice struct {
		ID         string `json:"id" db:"id"`
		QuestionID string `json:"question_id" db:"question_id"`
		Text       string `json:"text" db:"text"`
		IsCorrect  bool   `json:"-" db:"is_correct"`
	}

	// Progress tracks one user's completion of one module.
	Progress struct {
		ID                string    `json:"id" db:"id"`
		UserID            string    `json:"user_id" db:"user_id"`
		ModuleID          string    `json:"module_id" db:"module_id"`
		CompletionPercent int       `json:"completion_percent" db:"completion_percent"`
		LastScore         null.Int  `json:"last_score" db:"last_score"`
		StartedAt         time.Time `json:"started_at" db:"started_at"` // UTC
		CompletedAt       null.Time `json:"completed_at" db:"completed_at"`
	}

	// FollowedPath is a followed path with the user's rolled-up completion.
	FollowedPath struct {
		Path
		CompletionPercent int `json:"completion_percent"`
	}

	// PathProgress is the per-module completion detail for one path.
	PathProgress struct {
		PathID            string           `json:"path_id"`
		PathTitle         string           `json:"path_title"`
		OverallCompletion float64          `json:"overall_completion"`
		Modules           []ModuleProgress `json:"modules"`
	}

	ModuleProgress struct {
		ModuleID          string    `json:"module_id"`
		ModuleTitle       string    `json:"module_title"`
		CompletionPercent int       `json:"completion_percent"`
		CompletedAt       null.Time `json:"completed_at"`
	}

	// QuizResult reports one grading pass.
	QuizResult struct {
		QuizID         string `json:"quiz_id"`
		ScorePercent   int    `json:"score_percent"`
		Passed         bool   `json:"passed"`
		TotalQuestions int    `json:"total_questions"`
		CorrectAnswers int    `json:"correct_answers"`
	}
)

// NewPath contains information needed to create a new Path.
type NewPath struct {
	Title       string `json:"title" validate:"required,min=5"`
	Description string `json:"description"`
}

func (np *NewPath) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

// ReviewPath is an admin's verdict on a pending path.
type ReviewPath struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason"`
}

func (rp *ReviewPath) Validate(validate *validator.Validate) error {
	rp.Action = core.CleanString(rp.Action, true /* lower */)
	rp.Reason = core.CleanString(rp.Reason)
	return validate.Struct(rp)
}

type NewModule struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

type NewResource struct {
	Title       string `json:"title" validate:"required"`
	Type        string `json:"type" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Description string `json:"description"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.URL = core.CleanString(nr.URL)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

type NewQuiz struct {
	Title        string `json:"title" validate:"required"`
	PassingScore int    `json:"passing_score" validate:"min=0,max=100"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	if nq.PassingScore == 0 {
		nq.PassingScore = defaultPassingScore
	}
	return validate.Struct(nq)
}

type NewChoice struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type NewQuestion struct {
	Text    string      `json:"text" validate:"required"`
	Choices []NewChoice `json:"choices" validate:"required,min=2,dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	var correct int
	for _, choice := range nq.Choices {
		if choice.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "choices", Error: "exactly one choice must be marked correct",
		})
	}
	return nil
}

// QuizAnswers maps question ID to the chosen choice ID.
type QuizAnswers map[string]string

const defaultPassingScore = 70
