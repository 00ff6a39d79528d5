package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/learning"
)

var pathColumns = []string{
	"id", "title", "description", "status", "creator_id", "reviewed_by",
	"rejection_reason", "is_published", "created_at",
}

type LearningRepository struct {
	db core.DB
}

var _ learning.Repository = (*LearningRepository)(nil)

func NewLearningRepository(db core.DB) *LearningRepository {
	return &LearningRepository{db: db}
}

// paths

func (repo *LearningRepository) CreatePath(ctx context.Context, path learning.Path, exec ...core.DBExecutor) (learning.Path, error) {
	query, args, err := psql.Insert("learning_path").
		Columns("title", "description", "status", "creator_id", "is_published", "created_at").
		Values(path.Title, path.Description, path.Status, path.CreatorID, path.IsPublished, path.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return learning.Path{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &path.ID, query, args...); err != nil {
		return learning.Path{}, errors.Wrap(err, "creating path")
	}
	return path, nil
}

func (repo *LearningRepository) GetPathByID(ctx context.Context, id string, exec ...core.DBExecutor) (learning.Path, error) {
	query, args, err := psql.Select(pathColumns...).
		From("learning_path").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return learning.Path{}, errors.Wrap(err, "building query")
	}

	var path learning.Path
	if err = executor(repo.db, exec).GetContext(ctx, &path, query, args...); err != nil {
		if isNoRows(err) {
			return learning.Path{}, learning.ErrPathNotFound
		}
		return learning.Path{}, errors.Wrap(err, "getting path")
	}
	return path, nil
}

func (repo *LearningRepository) FilterPaths(ctx context.Context, filter learning.PathFilter) ([]learning.Path, int, error) {
	base := psql.Select().From("learning_path")
	if filter.PublishedOnly {
		base = base.Where(sq.Eq{"is_published": true})
	}
	if filter.Status != "" {
		base = base.Where(sq.Eq{"status": filter.Status})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building count query")
	}
	var total int
	if err = repo.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, errors.Wrap(err, "counting paths")
	}

	query, args, err := base.Columns(pathColumns...).
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit())).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}

	paths := []learning.Path{}
	if err = repo.db.SelectContext(ctx, &paths, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying paths")
	}
	return paths, total, nil
}

func (repo *LearningRepository) UpdatePath(ctx context.Context, path learning.Path, exec ...core.DBExecutor) (learning.Path, error) {
	query, args, err := psql.Update("learning_path").
		Set("title", path.Title).
		Set("description", path.Description).
		Set("status", path.Status).
		Set("reviewed_by", path.ReviewedBy).
		Set("rejection_reason", path.RejectionReason).
		Set("is_published", path.IsPublished).
		Where(sq.Eq{"id": path.ID}).
		ToSql()
	if err != nil {
		return learning.Path{}, errors.Wrap(err, "building query")
	}

	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return learning.Path{}, errors.Wrap(err, "updating path")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return learning.Path{}, learning.ErrPathNotFound
	}
	return path, nil
}

// follows

func (repo *LearningRepository) CreateFollow(ctx context.Context, userID, pathID string) error {
	query, args, err := psql.Insert("path_follower").
		Columns("user_id", "path_id").
		Values(userID, pathID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "creating follow")
}

func (repo *LearningRepository) DeleteFollow(ctx context.Context, userID, pathID string) error {
	query, args, err := psql.Delete("path_follower").
		Where(sq.Eq{"user_id": userID, "path_id": pathID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "deleting follow")
}

func (repo *LearningRepository) IsFollowing(ctx context.Context, userID, pathID string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("path_follower").
		Where(sq.Eq{"user_id": userID, "path_id": pathID}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, errors.Wrap(err, "checking follow")
	}
	return count > 0, nil
}

func (repo *LearningRepository) QueryFollowedPaths(ctx context.Context, userID string) ([]learning.Path, error) {
	cols := make([]string, len(pathColumns))
	for i, col := range pathColumns {
		cols[i] = "lp." + col
	}
	query, args, err := psql.Select(cols...).
		From("path_follower pf").
		Join("learning_path lp ON lp.id = pf.path_id").
		Where(sq.Eq{"pf.user_id": userID}).
		OrderBy("lp.created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	paths := []learning.Path{}
	if err = repo.db.SelectContext(ctx, &paths, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying followed paths")
	}
	return paths, nil
}

// modules

func (repo *LearningRepository) CreateModule(ctx context.Context, module learning.Module, exec ...core.DBExecutor) (learning.Module, error) {
	query, args, err := psql.Insert("module").
		Columns("path_id", "title", "description", "created_at").
		Values(module.PathID, module.Title, module.Description, module.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return learning.Module{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &module.ID, query, args...); err != nil {
		return learning.Module{}, errors.Wrap(err, "creating module")
	}
	return module, nil
}

func (repo *LearningRepository) GetModuleByID(ctx context.Context, id string, exec ...core.DBExecutor) (learning.Module, error) {
	query, args, err := psql.Select("id", "path_id", "title", "description", "created_at").
		From("module").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return learning.Module{}, errors.Wrap(err, "building query")
	}

	var module learning.Module
	if err = executor(repo.db, exec).GetContext(ctx, &module, query, args...); err != nil {
		if isNoRows(err) {
			return learning.Module{}, learning.ErrModuleNotFound
		}
		return learning.Module{}, errors.Wrap(err, "getting module")
	}
	return module, nil
}

func (repo *LearningRepository) QueryModulesByPath(ctx context.Context, pathID string) ([]learning.Module, error) {
	query, args, err := psql.Select("id", "path_id", "title", "description", "created_at").
		From("module").
		Where(sq.Eq{"path_id": pathID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	modules := []learning.Module{}
	if err = repo.db.SelectContext(ctx, &modules, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	return modules, nil
}

func (repo *LearningRepository) QueryModuleSummaries(ctx context.Context, pathID string) ([]learning.ModuleSummary, error) {
	query, args, err := psql.Select(
		"m.id", "m.path_id", "m.title", "m.description", "m.created_at",
		"(SELECT COUNT(*) FROM learning_resource lr WHERE lr.module_id = m.id) AS resource_count",
		"(SELECT COUNT(*) FROM quiz q WHERE q.module_id = m.id) AS quiz_count",
	).
		From("module m").
		Where(sq.Eq{"m.path_id": pathID}).
		OrderBy("m.created_at ASC", "m.id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	summaries := []learning.ModuleSummary{}
	if err = repo.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying module summaries")
	}
	return summaries, nil
}

// resources

func (repo *LearningRepository) CreateResource(ctx context.Context, res learning.Resource, exec ...core.DBExecutor) (learning.Resource, error) {
	query, args, err := psql.Insert("learning_resource").
		Columns("module_id", "title", "type", "url", "description").
		Values(res.ModuleID, res.Title, res.Type, res.URL, res.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return learning.Resource{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &res.ID, query, args...); err != nil {
		return learning.Resource{}, errors.Wrap(err, "creating resource")
	}
	return res, nil
}

func (repo *LearningRepository) QueryResourcesByModule(ctx context.Context, moduleID string) ([]learning.Resource, error) {
	query, args, err := psql.Select("id", "module_id", "title", "type", "url", "description").
		From("learning_resource").
		Where(sq.Eq{"module_id": moduleID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	resources := []learning.Resource{}
	if err = repo.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	return resources, nil
}

// quizzes

func (repo *LearningRepository) CreateQuiz(ctx context.Context, quiz learning.Quiz, exec ...core.DBExecutor) (learning.Quiz, error) {
	query, args, err := psql.Insert("quiz").
		Columns("module_id", "title", "passing_score").
		Values(quiz.ModuleID, quiz.Title, quiz.PassingScore).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return learning.Quiz{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &quiz.ID, query, args...); err != nil {
		return learning.Quiz{}, errors.Wrap(err, "creating quiz")
	}
	return quiz, nil
}

func (repo *LearningRepository) GetQuizByID(ctx context.Context, id string) (learning.Quiz, error) {
	query, args, err := psql.Select("id", "module_id", "title", "passing_score").
		From("quiz").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return learning.Quiz{}, errors.Wrap(err, "building query")
	}

	var quiz learning.Quiz
	if err = repo.db.GetContext(ctx, &quiz, query, args...); err != nil {
		if isNoRows(err) {
			return learning.Quiz{}, learning.ErrQuizNotFound
		}
		return learning.Quiz{}, errors.Wrap(err, "getting quiz")
	}
	return quiz, nil
}

func (repo *LearningRepository) CreateQuestion(ctx context.Context, question learning.Question, exec ...core.DBExecutor) (learning.Question, error) {
	ex := executor(repo.db, exec)

	query, args, err := psql.Insert("question").
		Columns("quiz_id", "text").
		Values(question.QuizID, question.Text).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return learning.Question{}, errors.Wrap(err, "building query")
	}
	if err = ex.GetContext(ctx, &question.ID, query, args...); err != nil {
		return learning.Question{}, errors.Wrap(err, "creating question")
	}

	for i := range question.Choices {
		question.Choices[i].QuestionID = question.ID
		query, args, err = psql.Insert("choice").
			Columns("question_id", "text", "is_correct").
			Values(question.ID, question.Choices[i].Text, question.Choices[i].IsCorrect).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return learning.Question{}, errors.Wrap(err, "building query")
		}
		if err = ex.GetContext(ctx, &question.Choices[i].ID, query, args...); err != nil {
			return learning.Question{}, errors.Wrap(err, "creating choice")
		}
	}
	return question, nil
}

func (repo *LearningRepository) QueryQuestions(ctx context.Context, quizID string) ([]learning.Question, error) {
	query, args, err := psql.Select("id", "quiz_id", "text").
		From("question").
		Where(sq.Eq{"quiz_id": quizID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	questions := []learning.Question{}
	if err = repo.db.SelectContext(ctx, &questions, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]string, len(questions))
	for i, question := range questions {
		ids[i] = question.ID
	}
	query, args, err = psql.Select("id", "question_id", "text", "is_correct").
		From("choice").
		Where(sq.Eq{"question_id": ids}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	choices := []learning.Choice{}
	if err = repo.db.SelectContext(ctx, &choices, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying choices")
	}

	byQuestion := make(map[string][]learning.Choice, len(questions))
	for _, choice := range choices {
		byQuestion[choice.QuestionID] = append(byQuestion[choice.QuestionID], choice)
	}
	for i := range questions {
		questions[i].Choices = byQuestion[questions[i].ID]
	}
	return questions, nil
}

// progress

func (repo *LearningRepository) GetProgress(ctx context.Context, userID, moduleID string, exec ...core.DBExecutor) (learning.Progress, error) {
	query, args, err := psql.Select("id", "user_id", "module_id", "completion_percent", "last_score", "started_at", "completed_at").
		From("user_progress").
		Where(sq.Eq{"user_id": userID, "module_id": moduleID}).
		ToSql()
	if err != nil {
		return learning.Progress{}, errors.Wrap(err, "building query")
	}

	var progress learning.Progress
	if err = executor(repo.db, exec).GetContext(ctx, &progress, query, args...); err != nil {
		if isNoRows(err) {
			return learning.Progress{}, learning.ErrProgressNotFound
		}
		return learning.Progress{}, errors.Wrap(err, "getting progress")
	}
	return progress, nil
}

func (repo *LearningRepository) UpsertProgress(ctx context.Context, progress learning.Progress, exec ...core.DBExecutor) (learning.Progress, error) {
	query, args, err := psql.Insert("user_progress").
		Columns("user_id", "module_id", "completion_percent", "last_score", "started_at", "completed_at").
		Values(progress.UserID, progress.ModuleID, progress.CompletionPercent, progress.LastScore, progress.StartedAt, progress.CompletedAt).
		Suffix(`ON CONFLICT (user_id, module_id) DO UPDATE
			SET completion_percent = EXCLUDED.completion_percent,
			    last_score = EXCLUDED.last_score,
			    completed_at = EXCLUDED.completed_at
			RETURNING id`).
		ToSql()
	if err != nil {
		return learning.Progress{}, errors.Wrap(err, "building query")
	}
	if err = executor(repo.db, exec).GetContext(ctx, &progress.ID, query, args...); err != nil {
		return learning.Progress{}, errors.Wrap(err, "upserting progress")
	}
	return progress, nil
}

func (repo *LearningRepository) QueryProgressByUser(ctx context.Context, userID string) ([]learning.Progress, error) {
	query, args, err := psql.Select("id", "user_id", "module_id", "completion_percent", "last_score", "started_at", "completed_at").
		From("user_progress").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("started_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	records := []learning.Progress{}
	if err = repo.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	return records, nil
}

func (repo *LearningRepository) QueryProgressByUserAndPath(ctx context.Context, userID, pathID string) ([]learning.Progress, error) {
	query, args, err := psql.Select("up.id", "up.user_id", "up.module_id", "up.completion_percent", "up.last_score", "up.started_at", "up.completed_at").
		From("user_progress up").
		Join("module m ON m.id = up.module_id").
		Where(sq.Eq{"up.user_id": userID, "m.path_id": pathID}).
		OrderBy("m.created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	records := []learning.Progress{}
	if err = repo.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	return records, nil
}
