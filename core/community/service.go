package community

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/user"
)

var (
	// errors
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrFlagNotFound    = errors.New("flag not found")
	ErrAlreadyFlagged  = errors.New("you have already flagged this content")
	ErrNotAuthor       = errors.New("only the author or an admin may do this")
)

type (
	FlagFilter struct {
		// Status filters flags: "pending", "reviewed" or "all".
		Status string `query:"status"`
		core.Pagination
	}

	Repository interface {
		CreatePost(ctx context.Context, post Post, exec ...core.DBExecutor) (Post, error)
		GetPostByID(ctx context.Context, id string) (Post, error)
		// QueryPosts returns visible posts newest first plus the unpaged total.
		QueryPosts(ctx context.Context, page core.Pagination) ([]Post, int, error)
		UpdatePost(ctx context.Context, post Post, exec ...core.DBExecutor) (Post, error)
		DeletePost(ctx context.Context, id string) error

		CreateComment(ctx context.Context, comment Comment, exec ...core.DBExecutor) (Comment, error)
		GetCommentByID(ctx context.Context, id string) (Comment, error)
		QueryCommentsByPost(ctx context.Context, postID string) ([]Comment, error)
		DeleteComment(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateFlag(ctx context.Context, flag Flag) (Flag, error)
		GetFlagByID(ctx context.Context, id string) (Flag, error)
		HasFlagged(ctx context.Context, reporterID string, postID, commentID null.String) (bool, error)
		FilterFlags(ctx context.Context, filter FlagFilter) ([]Flag, int, error)
		UpdateFlag(ctx context.Context, flag Flag, exec ...core.DBExecutor) (Flag, error)
		CountFlagsByStatus(ctx context.Context, status string) (int, error)
		QueryTopReporters(ctx context.Context, limit int) ([]ReporterCount, error)
	}

	Service interface {
		CreatePost(ctx context.Context, author user.User, np NewPost) (Post, error)
		QueryPosts(ctx context.Context, page core.Pagination) ([]Post, int, error)
		GetPost(ctx context.Context, id string) (Post, []Comment, error)
		DeletePost(ctx context.Context, usr user.User, id string) error

		AddComment(ctx context.Context, author user.User, postID string, nc NewComment) (Comment, error)
		DeleteComment(ctx context.Context, usr user.User, id string) error

		FlagContent(ctx context.Context, reporter user.User, nf NewFlag) (Flag, error)
		QueryFlags(ctx context.Context, filter FlagFilter) ([]Flag, int, error)
		// ResolveFlag applies an admin verdict: approving hides the flagged
		// post or deletes the flagged comment, rejecting leaves content up.
		ResolveFlag(ctx context.Context, flagID string, rf ResolveFlag) (Flag, error)
		FlagStats(ctx context.Context) (FlagStats, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) *service {
	return &service{db: db, repo: repo}
}

func (svc *service) CreatePost(ctx context.Context, author user.User, np NewPost) (Post, error) {
	post := Post{
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Title:          np.Title,
		Content:        np.Content,
		CreatedAt:      core.NowFunc().UTC(),
	}
	return svc.repo.CreatePost(ctx, post)
}

func (svc *service) QueryPosts(ctx context.Context, page core.Pagination) ([]Post, int, error) {
	page.Clean(defaultPerPage, maxPerPage)
	return svc.repo.QueryPosts(ctx, page)
}

func (svc *service) GetPost(ctx context.Context, id string) (Post, []Comment, error) {
	post, err := svc.repo.GetPostByID(ctx, id)
	if err != nil {
		return Post{}, nil, err
	}
	comments, err := svc.repo.QueryCommentsByPost(ctx, post.ID)
	if err != nil {
		return Post{}, nil, errors.Wrap(err, "querying comments")
	}
	return post, comments, nil
}

func (svc *service) DeletePost(ctx context.Context, usr user.User, id string) error {
	post, err := svc.repo.GetPostByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != usr.ID && !usr.IsAdmin() {
		return ErrNotAuthor
	}
	return svc.repo.DeletePost(ctx, post.ID)
}

func (svc *service) AddComment(ctx context.Context, author user.User, postID string, nc NewComment) (Comment, error) {
	post, err := svc.repo.GetPostByID(ctx, postID)
	if err != nil {
		return Comment{}, err
	}
	comment := Comment{
		PostID:         post.ID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        nc.Content,
		CreatedAt:      core.NowFunc().UTC(),
	}
	return svc.repo.CreateComment(ctx, comment)
}

func (svc *service) DeleteComment(ctx context.Context, usr user.User, id string) error {
	comment, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != usr.ID && !usr.IsAdmin() {
		return ErrNotAuthor
	}
	return svc.repo.DeleteComment(ctx, comment.ID)
}

func (svc *service) FlagContent(ctx context.Context, reporter user.User, nf NewFlag) (Flag, error) {
	flag := Flag{
		ReporterID: reporter.ID,
		Reason:     nf.Reason,
		Status:     FlagPending,
		CreatedAt:  core.NowFunc().UTC(),
	}
	if nf.PostID != "" {
		if _, err := svc.repo.GetPostByID(ctx, nf.PostID); err != nil {
			return Flag{}, err
		}
		flag.PostID = null.StringFrom(nf.PostID)
	} else {
		if _, err := svc.repo.GetCommentByID(ctx, nf.CommentID); err != nil {
			return Flag{}, err
		}
		flag.CommentID = null.StringFrom(nf.CommentID)
	}

	flagged, err := svc.repo.HasFlagged(ctx, reporter.ID, flag.PostID, flag.CommentID)
	if err != nil {
		return Flag{}, errors.Wrap(err, "checking existing flag")
	}
	if flagged {
		return Flag{}, core.NewValidationError(ErrAlreadyFlagged)
	}
	return svc.repo.CreateFlag(ctx, flag)
}

func (svc *service) QueryFlags(ctx context.Context, filter FlagFilter) ([]Flag, int, error) {
	filter.Clean(defaultPerPage, maxPerPage)
	return svc.repo.FilterFlags(ctx, filter)
}

func (svc *service) ResolveFlag(ctx context.Context, flagID string, rf ResolveFlag) (Flag, error) {
	flag, err := svc.repo.GetFlagByID(ctx, flagID)
	if err != nil {
		return Flag{}, err
	}

	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		switch rf.Action {
		case "approve":
			flag.Status = FlagApproved
			if flag.PostID.Valid {
				post, err := svc.repo.GetPostByID(ctx, flag.PostID.String)
				if err != nil {
					return err
				}
				post.IsHidden = true
				if _, err = svc.repo.UpdatePost(ctx, post, tx); err != nil {
					return errors.Wrap(err, "hiding post")
				}
			} else if flag.CommentID.Valid {
				if err := svc.repo.DeleteComment(ctx, flag.CommentID.String, tx); err != nil {
					return errors.Wrap(err, "deleting comment")
				}
			}
		case "reject":
			flag.Status = FlagRejected
		}
		if rf.AdminNotes != "" {
			flag.Reason = fmt.Sprintf("%s | Admin Notes: %s", flag.Reason, rf.AdminNotes)
		}

		var err error
		flag, err = svc.repo.UpdateFlag(ctx, flag, tx)
		return err
	}); err != nil {
		return Flag{}, err
	}
	return flag, nil
}

func (svc *service) FlagStats(ctx context.Context) (FlagStats, error) {
	var stats FlagStats
	var err error

	if stats.Pending, err = svc.repo.CountFlagsByStatus(ctx, FlagPending); err != nil {
		return FlagStats{}, errors.Wrap(err, "counting pending flags")
	}
	if stats.Approved, err = svc.repo.CountFlagsByStatus(ctx, FlagApproved); err != nil {
		return FlagStats{}, errors.Wrap(err, "counting approved flags")
	}
	if stats.Rejected, err = svc.repo.CountFlagsByStatus(ctx, FlagRejected); err != nil {
		return FlagStats{}, errors.Wrap(err, "counting rejected flags")
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected

	if stats.TopReporters, err = svc.repo.QueryTopReporters(ctx, topReportersLimit); err != nil {
		return FlagStats{}, errors.Wrap(err, "querying top reporters")
	}
	return stats, nil
}

const (
	defaultPerPage    = 10
	maxPerPage        = 100
	topReportersLimit = 10
)
