package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/community"
)

const postColumns = `p.id, p.author_id, u.username AS author_username, p.title, p.content, p.is_hidden, p.created_at,
	(SELECT COUNT(*) FROM community_comment c WHERE c.post_id = p.id) AS comments_count`

type CommunityRepository struct {
	db core.DB
}

var _ community.Repository = (*CommunityRepository)(nil)

func NewCommunityRepository(db core.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// posts

func (repo *CommunityRepository) CreatePost(ctx context.Context, post community.Post, exec ...core.DBExecutor) (community.Post, error) {
	query, args, err := psql.Insert("community_post").
		Columns("author_id", "title", "content", "is_hidden", "created_at").
		Values(post.AuthorID, post.Title, post.Content, post.IsHidden, post.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return community.Post{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &post.ID, query, args...); err != nil {
		return community.Post{}, errors.Wrap(err, "creating post")
	}
	return post, nil
}

func (repo *CommunityRepository) GetPostByID(ctx context.Context, id string) (community.Post, error) {
	query, args, err := psql.Select(postColumns).
		From("community_post p").
		Join(`"user" u ON u.id = p.author_id`).
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return community.Post{}, errors.Wrap(err, "building query")
	}

	var post community.Post
	if err = repo.db.GetContext(ctx, &post, query, args...); err != nil {
		if isNoRows(err) {
			return community.Post{}, community.ErrPostNotFound
		}
		return community.Post{}, errors.Wrap(err, "getting post")
	}
	return post, nil
}

func (repo *CommunityRepository) QueryPosts(ctx context.Context, page core.Pagination) ([]community.Post, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM community_post WHERE NOT is_hidden"); err != nil {
		return nil, 0, errors.Wrap(err, "counting posts")
	}

	query, args, err := psql.Select(postColumns).
		From("community_post p").
		Join(`"user" u ON u.id = p.author_id`).
		Where(sq.Eq{"p.is_hidden": false}).
		OrderBy("p.created_at DESC").
		Limit(uint64(page.Limit())).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}

	posts := []community.Post{}
	if err = repo.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	return posts, total, nil
}

func (repo *CommunityRepository) UpdatePost(ctx context.Context, post community.Post, exec ...core.DBExecutor) (community.Post, error) {
	query, args, err := psql.Update("community_post").
		Set("title", post.Title).
		Set("content", post.Content).
		Set("is_hidden", post.IsHidden).
		Where(sq.Eq{"id": post.ID}).
		ToSql()
	if err != nil {
		return community.Post{}, errors.Wrap(err, "building query")
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return community.Post{}, errors.Wrap(err, "updating post")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return community.Post{}, community.ErrPostNotFound
	}
	return post, nil
}

func (repo *CommunityRepository) DeletePost(ctx context.Context, id string) error {
	query, args, err := psql.Delete("community_post").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting post")
}

// comments

func (repo *CommunityRepository) CreateComment(ctx context.Context, comment community.Comment, exec ...core.DBExecutor) (community.Comment, error) {
	query, args, err := psql.Insert("community_comment").
		Columns("post_id", "author_id", "content", "created_at").
		Values(comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return community.Comment{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &comment.ID, query, args...); err != nil {
		return community.Comment{}, errors.Wrap(err, "creating comment")
	}
	return comment, nil
}

func (repo *CommunityRepository) GetCommentByID(ctx context.Context, id string) (community.Comment, error) {
	query, args, err := psql.Select("c.id", "c.post_id", "c.author_id", "u.username AS author_username", "c.content", "c.created_at").
		From("community_comment c").
		Join(`"user" u ON u.id = c.author_id`).
		Where(sq.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return community.Comment{}, errors.Wrap(err, "building query")
	}

	var comment community.Comment
	if err = repo.db.GetContext(ctx, &comment, query, args...); err != nil {
		if isNoRows(err) {
			return community.Comment{}, community.ErrCommentNotFound
		}
		return community.Comment{}, errors.Wrap(err, "getting comment")
	}
	return comment, nil
}

func (repo *CommunityRepository) QueryCommentsByPost(ctx context.Context, postID string) ([]community.Comment, error) {
	query, args, err := psql.Select("c.id", "c.post_id", "c.author_id", "u.username AS author_username", "c.content", "c.created_at").
		From("community_comment c").
		Join(`"user" u ON u.id = c.author_id`).
		Where(sq.Eq{"c.post_id": postID}).
		OrderBy("c.created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	comments := []community.Comment{}
	if err = repo.db.SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return comments, nil
}

func (repo *CommunityRepository) DeleteComment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	query, args, err := psql.Delete("community_comment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = executor(repo.db, exec).ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting comment")
}

// flags

func (repo *CommunityRepository) CreateFlag(ctx context.Context, flag community.Flag) (community.Flag, error) {
	query, args, err := psql.Insert("content_flag").
		Columns("reporter_id", "post_id", "comment_id", "reason", "status", "created_at").
		Values(flag.ReporterID, flag.PostID, flag.CommentID, flag.Reason, flag.Status, flag.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return community.Flag{}, errors.Wrap(err, "building query")
	}
	if err = repo.db.GetContext(ctx, &flag.ID, query, args...); err != nil {
		return community.Flag{}, errors.Wrap(err, "creating flag")
	}
	return flag, nil
}

func (repo *CommunityRepository) GetFlagByID(ctx context.Context, id string) (community.Flag, error) {
	query, args, err := psql.Select("id", "reporter_id", "post_id", "comment_id", "reason", "status", "created_at").
		From("content_flag").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return community.Flag{}, errors.Wrap(err, "building query")
	}

	var flag community.Flag
	if err = repo.db.GetContext(ctx, &flag, query, args...); err != nil {
		if isNoRows(err) {
			return community.Flag{}, community.ErrFlagNotFound
		}
		return community.Flag{}, errors.Wrap(err, "getting flag")
	}
	return flag, nil
}

func (repo *CommunityRepository) HasFlagged(ctx context.Context, reporterID string, postID, commentID null.String) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("content_flag").
		Where(sq.Eq{"reporter_id": reporterID, "post_id": postID, "comment_id": commentID}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, errors.Wrap(err, "checking flag")
	}
	return count > 0, nil
}

func (repo *CommunityRepository) FilterFlags(ctx context.Context, filter community.FlagFilter) ([]community.Flag, int, error) {
	base := psql.Select().From("content_flag")
	switch filter.Status {
	case "", "all":
	case "pending":
		base = base.Where(sq.Eq{"status": community.FlagPending})
	case "reviewed":
		base = base.Where(sq.NotEq{"status": community.FlagPending})
	default:
		base = base.Where(sq.Eq{"status": filter.Status})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building count query")
	}
	var total int
	if err = repo.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, errors.Wrap(err, "counting flags")
	}

	query, args, err := base.Columns("id", "reporter_id", "post_id", "comment_id", "reason", "status", "created_at").
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit())).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}

	flags := []community.Flag{}
	if err = repo.db.SelectContext(ctx, &flags, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying flags")
	}
	return flags, total, nil
}

func (repo *CommunityRepository) UpdateFlag(ctx context.Context, flag community.Flag, exec ...core.DBExecutor) (community.Flag, error) {
	query, args, err := psql.Update("content_flag").
		Set("reason", flag.Reason).
		Set("status", flag.Status).
		Where(sq.Eq{"id": flag.ID}).
		ToSql()
	if err != nil {
		return community.Flag{}, errors.Wrap(err, "building query")
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return community.Flag{}, errors.Wrap(err, "updating flag")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return community.Flag{}, community.ErrFlagNotFound
	}
	return flag, nil
}

func (repo *CommunityRepository) CountFlagsByStatus(ctx context.Context, status string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("content_flag").
		Where(sq.Eq{"status": status}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting flags")
	}
	return count, nil
}

func (repo *CommunityRepository) QueryTopReporters(ctx context.Context, limit int) ([]community.ReporterCount, error) {
	qb := psql.Select("u.username", "COUNT(*) AS flags_count").
		From("content_flag cf").
		Join(`"user" u ON u.id = cf.reporter_id`).
		GroupBy("u.username").
		OrderBy("flags_count DESC", "u.username ASC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	reporters := []community.ReporterCount{}
	if err = repo.db.SelectContext(ctx, &reporters, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying top reporters")
	}
	return reporters, nil
}
