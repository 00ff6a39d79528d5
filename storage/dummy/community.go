package dummy

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/community"
)

type CommunityRepository struct {
	mu       sync.RWMutex
	posts    map[string]community.Post
	comments map[string]community.Comment
	flags    map[string]community.Flag

	users *UserRepository // for reporter usernames; may be nil
}

var _ community.Repository = (*CommunityRepository)(nil)

func NewCommunityRepository(users *UserRepository) *CommunityRepository {
	return &CommunityRepository{
		posts:    make(map[string]community.Post),
		comments: make(map[string]community.Comment),
		flags:    make(map[string]community.Flag),
		users:    users,
	}
}

// posts

func (repo *CommunityRepository) CreatePost(_ context.Context, post community.Post, _ ...core.DBExecutor) (community.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	repo.posts[post.ID] = post
	return post, nil
}

func (repo *CommunityRepository) GetPostByID(_ context.Context, id string) (community.Post, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if post, ok := repo.posts[id]; ok {
		post.CommentsCount = repo.countComments(post.ID)
		return post, nil
	}
	return community.Post{}, community.ErrPostNotFound
}

func (repo *CommunityRepository) countComments(postID string) int {
	var count int
	for _, comment := range repo.comments {
		if comment.PostID == postID {
			count++
		}
	}
	return count
}

func (repo *CommunityRepository) QueryPosts(_ context.Context, page core.Pagination) ([]community.Post, int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	posts := make([]community.Post, 0, len(repo.posts))
	for _, post := range repo.posts {
		if post.IsHidden {
			continue
		}
		post.CommentsCount = repo.countComments(post.ID)
		posts = append(posts, post)
	}
	// newest first
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })

	total := len(posts)
	if page.Offset() >= len(posts) {
		return []community.Post{}, total, nil
	}
	posts = posts[page.Offset():]
	if limit := page.Limit(); limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, total, nil
}

func (repo *CommunityRepository) UpdatePost(_ context.Context, post community.Post, _ ...core.DBExecutor) (community.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.posts[post.ID]; !ok {
		return community.Post{}, community.ErrPostNotFound
	}
	repo.posts[post.ID] = post
	return post, nil
}

func (repo *CommunityRepository) DeletePost(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.posts, id)
	for commentID, comment := range repo.comments {
		if comment.PostID == id {
			delete(repo.comments, commentID)
		}
	}
	return nil
}

// comments

func (repo *CommunityRepository) CreateComment(_ context.Context, comment community.Comment, _ ...core.DBExecutor) (community.Comment, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	repo.comments[comment.ID] = comment
	return comment, nil
}

func (repo *CommunityRepository) GetCommentByID(_ context.Context, id string) (community.Comment, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if comment, ok := repo.comments[id]; ok {
		return comment, nil
	}
	return community.Comment{}, community.ErrCommentNotFound
}

func (repo *CommunityRepository) QueryCommentsByPost(_ context.Context, postID string) ([]community.Comment, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	comments := make([]community.Comment, 0)
	for _, comment := range repo.comments {
		if comment.PostID == postID {
			comments = append(comments, comment)
		}
	}
	// oldest first
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (repo *CommunityRepository) DeleteComment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.comments, id)
	return nil
}

// flags

func (repo *CommunityRepository) CreateFlag(_ context.Context, flag community.Flag) (community.Flag, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if flag.ID == "" {
		flag.ID = uuid.NewString()
	}
	repo.flags[flag.ID] = flag
	return flag, nil
}

func (repo *CommunityRepository) GetFlagByID(_ context.Context, id string) (community.Flag, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if flag, ok := repo.flags[id]; ok {
		return flag, nil
	}
	return community.Flag{}, community.ErrFlagNotFound
}

func (repo *CommunityRepository) HasFlagged(_ context.Context, reporterID string, postID, commentID null.String) (bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, flag := range repo.flags {
		if flag.ReporterID == reporterID && flag.PostID == postID && flag.CommentID == commentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *CommunityRepository) FilterFlags(_ context.Context, filter community.FlagFilter) ([]community.Flag, int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	flags := make([]community.Flag, 0, len(repo.flags))
	for _, flag := range repo.flags {
		switch filter.Status {
		case "", "all":
		case "pending":
			if flag.Status != community.FlagPending {
				continue
			}
		case "reviewed":
			if flag.Status == community.FlagPending {
				continue
			}
		default:
			if flag.Status != filter.Status {
				continue
			}
		}
		flags = append(flags, flag)
	}
	// newest first
	sort.Slice(flags, func(i, j int) bool { return flags[i].CreatedAt.After(flags[j].CreatedAt) })

	total := len(flags)
	if filter.Offset() >= len(flags) {
		return []community.Flag{}, total, nil
	}
	flags = flags[filter.Offset():]
	if limit := filter.Limit(); limit > 0 && len(flags) > limit {
		flags = flags[:limit]
	}
	return flags, total, nil
}

func (repo *CommunityRepository) UpdateFlag(_ context.Context, flag community.Flag, _ ...core.DBExecutor) (community.Flag, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.flags[flag.ID]; !ok {
		return community.Flag{}, community.ErrFlagNotFound
	}
	repo.flags[flag.ID] = flag
	return flag, nil
}

func (repo *CommunityRepository) CountFlagsByStatus(_ context.Context, status string) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	var count int
	for _, flag := range repo.flags {
		if flag.Status == status {
			count++
		}
	}
	return count, nil
}

func (repo *CommunityRepository) QueryTopReporters(_ context.Context, limit int) ([]community.ReporterCount, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	counts := make(map[string]int)
	for _, flag := range repo.flags {
		counts[flag.ReporterID]++
	}

	reporters := make([]community.ReporterCount, 0, len(counts))
	for reporterID, count := range counts {
		rc := community.ReporterCount{Username: reporterID, FlagsCount: count}
		if repo.users != nil {
			if usr, err := repo.users.GetUserByID(context.Background(), reporterID); err == nil {
				rc.Username = usr.Username
			}
		}
		reporters = append(reporters, rc)
	}
	sort.Slice(reporters, func(i, j int) bool {
		if reporters[i].FlagsCount != reporters[j].FlagsCount {
			return reporters[i].FlagsCount > reporters[j].FlagsCount
		}
		return reporters[i].Username < reporters[j].Username
	})
	if limit > 0 && len(reporters) > limit {
		reporters = reporters[:limit]
	}
	return reporters, nil
}
