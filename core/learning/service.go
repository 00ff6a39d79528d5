package learning

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

var (
	// errors
	ErrPathNotFound     = errors.New("learning path not found")
	ErrModuleNotFound   = errors.New("module not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrNotPublished     = errors.New("cannot follow an unpublished learning path")
	ErrAlreadyFollowing = errors.New("already following this path")
	ErrNotFollowing     = errors.New("not following this path")
	ErrNotPathOwner     = errors.New("only the path creator or an admin may do this")
)

type (
	PathFilter struct {
		Status        string `query:"status"`
		PublishedOnly bool   `query:"-"`
		core.Pagination
	}

	Repository interface {
		CreatePath(ctx context.Context, path Path, exec ...core.DBExecutor) (Path, error)
		GetPathByID(ctx context.Context, id string, exec ...core.DBExecutor) (Path, error)
		// FilterPaths returns a page of paths newest first plus the unpaged total.
		FilterPaths(ctx context.Context, filter PathFilter) ([]Path, int, error)
		UpdatePath(ctx context.Context, path Path, exec ...core.DBExecutor) (Path, error)

		CreateFollow(ctx context.Context, userID, pathID string) error
		DeleteFollow(ctx context.Context, userID, pathID string) error
		IsFollowing(ctx context.Context, userID, pathID string) (bool, error)
		QueryFollowedPaths(ctx context.Context, userID string) ([]Path, error)

		CreateModule(ctx context.Context, module Module, exec ...core.DBExecutor) (Module, error)
		GetModuleByID(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		QueryModulesByPath(ctx context.Context, pathID string) ([]Module, error)
		QueryModuleSummaries(ctx context.Context, pathID string) ([]ModuleSummary, error)

		CreateResource(ctx context.Context, res Resource, exec ...core.DBExecutor) (Resource, error)
		QueryResourcesByModule(ctx context.Context, moduleID string) ([]Resource, error)

		CreateQuiz(ctx context.Context, quiz Quiz, exec ...core.DBExecutor) (Quiz, error)
		GetQuizByID(ctx context.Context, id string) (Quiz, error)
		CreateQuestion(ctx context.Context, question Question, exec ...core.DBExecutor) (Question, error)
		// QueryQuestions returns a quiz's questions with their choices attached.
		QueryQuestions(ctx context.Context, quizID string) ([]Question, error)

		GetProgress(ctx context.Context, userID, moduleID string, exec ...core.DBExecutor) (Progress, error)
		UpsertProgress(ctx context.Context, progress Progress, exec ...core.DBExecutor) (Progress, error)
		QueryProgressByUser(ctx context.Context, userID string) ([]Progress, error)
		QueryProgressByUserAndPath(ctx context.Context, userID, pathID string) ([]Progress, error)
	}

	Service interface {
		CreatePath(ctx context.Context, creator user.User, np NewPath) (Path, error)
		// GetPath returns a path with its module summaries. Unpublished paths
		// are only visible to admins.
		GetPath(ctx context.Context, id string, viewer *user.User) (Path, []ModuleSummary, error)
		QueryPaths(ctx context.Context, viewer *user.User, filter PathFilter) ([]Path, int, error)
		ReviewPath(ctx context.Context, reviewer user.User, pathID string, rp ReviewPath) (Path, error)

		FollowPath(ctx context.Context, userID, pathID string) (Path, error)
		UnfollowPath(ctx context.Context, userID, pathID string) (Path, error)
		FollowedPaths(ctx context.Context, userID string) ([]FollowedPath, error)

		CreateModule(ctx context.Context, usr user.User, pathID string, nm NewModule) (Module, error)
		ModuleSummaries(ctx context.Context, pathID string, viewer *user.User) (Path, []ModuleSummary, error)
		AddResource(ctx context.Context, usr user.User, moduleID string, nr NewResource) (Resource, error)
		Resources(ctx context.Context, moduleID string, viewer *user.User) (Module, []Resource, error)

		CompleteModule(ctx context.Context, usr user.User, moduleID string) (Progress, gamify.AwardSummary, error)
		PathProgress(ctx context.Context, userID, pathID string) (PathProgress, error)
		UserProgress(ctx context.Context, userID string) ([]Progress, error)

		CreateQuiz(ctx context.Context, usr user.User, moduleID string, nq NewQuiz) (Quiz, error)
		AddQuestion(ctx context.Context, usr user.User, quizID string, nq NewQuestion) (Question, error)
		GetQuiz(ctx context.Context, quizID string) (Quiz, []Question, error)
		EvaluateQuiz(ctx context.Context, usr user.User, quizID string, answers QuizAnswers) (QuizResult, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		gameSvc gamify.Service
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, gameSvc gamify.Service, logger core.Logger) *service {
	return &service{
		db:      db,
		repo:    repo,
		gameSvc: gameSvc,
		logger:  logger,
	}
}

// CreatePath records a new pending path and rewards the creator, atomically.
func (svc *service) CreatePath(ctx context.Context, creator user.User, np NewPath) (Path, error) {
	path := Path{
		Title:       np.Title,
		Description: np.Description,
		Status:      StatusPending,
		CreatorID:   creator.ID,
		CreatedAt:   core.NowFunc().UTC(),
	}

	if err := core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if path, err = svc.repo.CreatePath(ctx, path, tx); err != nil {
			return errors.Wrap(err, "creating path")
		}
		_, err = svc.gameSvc.AwardPointsTx(ctx, tx, &creator, gamify.ActionCreateLearningPath, path.Title)
		return err
	}); err != nil {
		return Path{}, err
	}

	svc.refreshLeaderboard(ctx)
	return path, nil
}

func (svc *service) GetPath(ctx context.Context, id string, viewer *user.User) (Path, []ModuleSummary, error) {
	path, err := svc.repo.GetPathByID(ctx, id)
	if err != nil {
		return Path{}, nil, err
	}
	if !path.IsPublished && !isAdmin(viewer) {
		return Path{}, nil, ErrPathNotFound
	}

	modules, err := svc.repo.QueryModuleSummaries(ctx, path.ID)
	if err != nil {
		return Path{}, nil, errors.Wrap(err, "querying module summaries")
	}
	return path, modules, nil
}

func (svc *service) QueryPaths(ctx context.Context, viewer *user.User, filter PathFilter) ([]Path, int, error) {
	filter.Clean(defaultPerPage, maxPerPage)
	if !isAdmin(viewer) {
		// non-admins never see unpublished paths
		filter.PublishedOnly = true
		filter.Status = ""
	}
	return svc.repo.FilterPaths(ctx, filter)
}

func (svc *service) ReviewPath(ctx context.Context, reviewer user.User, pathID string, rp ReviewPath) (Path, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return Path{}, err
	}

	switch rp.Action {
	case "approve":
		path.Status = StatusApproved
		path.IsPublished = true
		path.ReviewedBy = null.StringFrom(reviewer.ID)
		path.RejectionReason = null.String{}
	case "reject":
		path.Status = StatusRejected
		path.IsPublished = false
		path.ReviewedBy = null.StringFrom(reviewer.ID)
		path.RejectionReason = null.StringFrom(rp.Reason)
	}
	return svc.repo.UpdatePath(ctx, path)
}

func (svc *service) FollowPath(ctx context.Context, userID, pathID string) (Path, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return Path{}, err
	}
	if !path.IsPublished {
		return Path{}, core.NewValidationError(ErrNotPublished)
	}

	following, err := svc.repo.IsFollowing(ctx, userID, pathID)
	if err != nil {
		return Path{}, errors.Wrap(err, "checking follow")
	}
	if following {
		return Path{}, core.NewValidationError(ErrAlreadyFollowing)
	}
	return path, svc.repo.CreateFollow(ctx, userID, pathID)
}

func (svc *service) UnfollowPath(ctx context.Context, userID, pathID string) (Path, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return Path{}, err
	}

	following, err := svc.repo.IsFollowing(ctx, userID, pathID)
	if err != nil {
		return Path{}, errors.Wrap(err, "checking follow")
	}
	if !following {
		return Path{}, core.NewValidationError(ErrNotFollowing)
	}
	return path, svc.repo.DeleteFollow(ctx, userID, pathID)
}

// FollowedPaths lists the user's followed published paths with their
// completion rollup.
func (svc *service) FollowedPaths(ctx context.Context, userID string) ([]FollowedPath, error) {
	paths, err := svc.repo.QueryFollowedPaths(ctx, userID)
	if err != nil {
		return nil, err
	}

	followed := make([]FollowedPath, 0, len(paths))
	for _, path := range paths {
		if !path.IsPublished {
			continue
		}
		pct, err := svc.pathCompletionPercent(ctx, userID, path.ID)
		if err != nil {
			return nil, err
		}
		followed = append(followed, FollowedPath{Path: path, CompletionPercent: pct})
	}
	return followed, nil
}

func (svc *service) pathCompletionPercent(ctx context.Context, userID, pathID string) (int, error) {
	modules, err := svc.repo.QueryModulesByPath(ctx, pathID)
	if err != nil {
		return 0, errors.Wrap(err, "querying modules")
	}
	if len(modules) == 0 {
		return 0, nil
	}

	records, err := svc.repo.QueryProgressByUserAndPath(ctx, userID, pathID)
	if err != nil {
		return 0, errors.Wrap(err, "querying progress")
	}
	var completed int
	for _, rec := range records {
		if rec.CompletionPercent == 100 {
			completed++
		}
	}
	return completed * 100 / len(modules), nil
}

// refreshLeaderboard is called after any commit that went through the reward
// chain; cache staleness is tolerable so failures are only logged.
func (svc *service) refreshLeaderboard(ctx context.Context) {
	if err := svc.gameSvc.RefreshLeaderboardCache(ctx); err != nil {
		svc.logger.Warn("refreshing leaderboard cache", "error", err)
	}
}

func isAdmin(usr *user.User) bool { return usr != nil && usr.IsAdmin() }

const (
	defaultPerPage = 10
	maxPerPage     = 100
)
