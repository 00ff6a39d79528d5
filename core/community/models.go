package community

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
)

// Flag review statuses
const (
	FlagPending  = "pending"
	FlagApproved = "approved"
	FlagRejected = "rejected"
)

type (
	Post struct {
		ID             string    `json:"id" db:"id"`
		AuthorID       string    `json:"author_id" db:"author_id"`
		AuthorUsername string    `json:"author_username" db:"author_username"`
		Title          string    `json:"title" db:"title"`
		Content        string    `json:"content" db:"content"`
		IsHidden       bool      `json:"-" db:"is_hidden"`
		CommentsCount  int       `json:"comments_count" db:"comments_count"`
		CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Comment struct {
		ID             string    `json:"id" db:"id"`
		PostID         string    `json:"post_id" db:"post_id"`
		AuthorID       string    `json:"author_id" db:"author_id"`
		AuthorUsername string    `json:"author_username" db:"author_username"`
		Content        string    `json:"content" db:"content"`
		CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// Flag is a user report against a post or a comment, exactly one of which
	// is set.
	Flag struct {
		ID         string      `json:"id" db:"id"`
		ReporterID string      `json:"reporter_id" db:"reporter_id"`
		PostID     null.String `json:"post_id" db:"post_id"`
		CommentID  null.String `json:"comment_id" db:"comment_id"`
		Reason     string      `json:"reason" db:"reason"`
		Status     string      `json:"status" db:"status"`
		CreatedAt  time.Time   `json:"created_at" db:"created_at"` // UTC
	}

	ReporterCount struct {
		Username   string `json:"username" db:"username"`
		FlagsCount int    `json:"flags_count" db:"flags_count"`
	}

	// FlagStats summarizes moderation activity for the admin dashboard.
	FlagStats struct {
		Total        int             `json:"total_flags"`
		Pending      int             `json:"pending_flags"`
		Approved     int             `json:"approved_flags"`
		Rejected     int             `json:"rejected_flags"`
		TopReporters []ReporterCount `json:"top_reporters"`
	}
)

type NewPost struct {
	Title   string `json:"title" validate:"required,min=5"`
	Content string `json:"content" validate:"required,min=10"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Content = core.CleanString(np.Content)
	return validate.Struct(np)
}

type NewComment struct {
	Content string `json:"content" validate:"required,min=3"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

type NewFlag struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	Reason    string `json:"reason" validate:"required"`
}

func (nf *NewFlag) Validate(validate *validator.Validate) error {
	nf.Reason = core.CleanString(nf.Reason)
	if err := validate.Struct(nf); err != nil {
		return err
	}
	if (nf.PostID == "") == (nf.CommentID == "") {
		return core.NewValidationError(nil, core.FieldError{
			Field: "post_id", Error: "exactly one of post_id or comment_id is required",
		})
	}
	return nil
}

// ResolveFlag is an admin's verdict on a flag. Approving a flag hides the
// flagged post or deletes the flagged comment.
type ResolveFlag struct {
	Action     string `json:"action" validate:"required,oneof=approve reject"`
	AdminNotes string `json:"admin_notes"`
}

func (rf *ResolveFlag) Validate(validate *validator.Validate) error {
	rf.Action = core.CleanString(rf.Action, true /* lower */)
	rf.AdminNotes = core.CleanString(rf.AdminNotes)
	return validate.Struct(rf)
}
