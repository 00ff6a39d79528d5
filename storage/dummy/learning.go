package dummy

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/learning"
)

type LearningRepository struct {
	mu        sync.RWMutex
	paths     map[string]learning.Path
	follows   map[string]map[string]bool // userID -> pathID
	modules   map[string]learning.Module
	resources map[string]learning.Resource
	quizzes   map[string]learning.Quiz
	questions map[string]learning.Question
	progress  map[string]learning.Progress // userID + "/" + moduleID

	gamify *GamifyRepository // milestone counters; may be nil
}

var _ learning.Repository = (*LearningRepository)(nil)

func NewLearningRepository(gamify *GamifyRepository) *LearningRepository {
	return &LearningRepository{
		paths:     make(map[string]learning.Path),
		follows:   make(map[string]map[string]bool),
		modules:   make(map[string]learning.Module),
		resources: make(map[string]learning.Resource),
		quizzes:   make(map[string]learning.Quiz),
		questions: make(map[string]learning.Question),
		progress:  make(map[string]learning.Progress),
		gamify:    gamify,
	}
}

// paths

func (repo *LearningRepository) CreatePath(_ context.Context, path learning.Path, _ ...core.DBExecutor) (learning.Path, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if path.ID == "" {
		path.ID = uuid.NewString()
	}
	repo.paths[path.ID] = path
	if repo.gamify != nil {
		repo.gamify.CreatedPaths[path.CreatorID]++
	}
	return path, nil
}

func (repo *LearningRepository) GetPathByID(_ context.Context, id string, _ ...core.DBExecutor) (learning.Path, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if path, ok := repo.paths[id]; ok {
		return path, nil
	}
	return learning.Path{}, learning.ErrPathNotFound
}

func (repo *LearningRepository) FilterPaths(_ context.Context, filter learning.PathFilter) ([]learning.Path, int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	paths := make([]learning.Path, 0, len(repo.paths))
	for _, path := range repo.paths {
		if filter.PublishedOnly && !path.IsPublished {
			continue
		}
		if filter.Status != "" && path.Status != filter.Status {
			continue
		}
		paths = append(paths, path)
	}
	// newest first
	sort.Slice(paths, func(i, j int) bool { return paths[i].CreatedAt.After(paths[j].CreatedAt) })

	total := len(paths)
	return pagePaths(paths, filter.Limit(), filter.Offset()), total, nil
}

func pagePaths(paths []learning.Path, limit, offset int) []learning.Path {
	if offset >= len(paths) {
		return []learning.Path{}
	}
	paths = paths[offset:]
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}

func (repo *LearningRepository) UpdatePath(_ context.Context, path learning.Path, _ ...core.DBExecutor) (learning.Path, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.paths[path.ID]; !ok {
		return learning.Path{}, learning.ErrPathNotFound
	}
	repo.paths[path.ID] = path
	return path, nil
}

// follows

func (repo *LearningRepository) CreateFollow(_ context.Context, userID, pathID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.follows[userID] == nil {
		repo.follows[userID] = make(map[string]bool)
	}
	repo.follows[userID][pathID] = true
	return nil
}

func (repo *LearningRepository) DeleteFollow(_ context.Context, userID, pathID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.follows[userID], pathID)
	return nil
}

func (repo *LearningRepository) IsFollowing(_ context.Context, userID, pathID string) (bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.follows[userID][pathID], nil
}

func (repo *LearningRepository) QueryFollowedPaths(_ context.Context, userID string) ([]learning.Path, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	paths := make([]learning.Path, 0)
	for pathID := range repo.follows[userID] {
		if path, ok := repo.paths[pathID]; ok {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].ID < paths[j].ID })
	return paths, nil
}

// modules

func (repo *LearningRepository) CreateModule(_ context.Context, module learning.Module, _ ...core.DBExecutor) (learning.Module, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	repo.modules[module.ID] = module
	return module, nil
}

func (repo *LearningRepository) GetModuleByID(_ context.Context, id string, _ ...core.DBExecutor) (learning.Module, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if module, ok := repo.modules[id]; ok {
		return module, nil
	}
	return learning.Module{}, learning.ErrModuleNotFound
}

func (repo *LearningRepository) QueryModulesByPath(_ context.Context, pathID string) ([]learning.Module, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return repo.modulesByPath(pathID), nil
}

func (repo *LearningRepository) modulesByPath(pathID string) []learning.Module {
	modules := make([]learning.Module, 0)
	for _, module := range repo.modules {
		if module.PathID == pathID {
			modules = append(modules, module)
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		if !modules[i].CreatedAt.Equal(modules[j].CreatedAt) {
			return modules[i].CreatedAt.Before(modules[j].CreatedAt)
		}
		return modules[i].ID < modules[j].ID
	})
	return modules
}

func (repo *LearningRepository) QueryModuleSummaries(_ context.Context, pathID string) ([]learning.ModuleSummary, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	modules := repo.modulesByPath(pathID)
	summaries := make([]learning.ModuleSummary, 0, len(modules))
	for _, module := range modules {
		summary := learning.ModuleSummary{Module: module}
		for _, res := range repo.resources {
			if res.ModuleID == module.ID {
				summary.ResourceCount++
			}
		}
		for _, quiz := range repo.quizzes {
			if quiz.ModuleID == module.ID {
				summary.QuizCount++
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// resources

func (repo *LearningRepository) CreateResource(_ context.Context, res learning.Resource, _ ...core.DBExecutor) (learning.Resource, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	repo.resources[res.ID] = res
	return res, nil
}

func (repo *LearningRepository) QueryResourcesByModule(_ context.Context, moduleID string) ([]learning.Resource, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	resources := make([]learning.Resource, 0)
	for _, res := range repo.resources {
		if res.ModuleID == moduleID {
			resources = append(resources, res)
		}
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })
	return resources, nil
}

// quizzes

func (repo *LearningRepository) CreateQuiz(_ context.Context, quiz learning.Quiz, _ ...core.DBExecutor) (learning.Quiz, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	repo.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (repo *LearningRepository) GetQuizByID(_ context.Context, id string) (learning.Quiz, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if quiz, ok := repo.quizzes[id]; ok {
		return quiz, nil
	}
	return learning.Quiz{}, learning.ErrQuizNotFound
}

func (repo *LearningRepository) CreateQuestion(_ context.Context, question learning.Question, _ ...core.DBExecutor) (learning.Question, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	for i := range question.Choices {
		if question.Choices[i].ID == "" {
			question.Choices[i].ID = uuid.NewString()
		}
		question.Choices[i].QuestionID = question.ID
	}
	repo.questions[question.ID] = question
	return question, nil
}

func (repo *LearningRepository) QueryQuestions(_ context.Context, quizID string) ([]learning.Question, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	questions := make([]learning.Question, 0)
	for _, question := range repo.questions {
		if question.QuizID == quizID {
			questions = append(questions, question)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

// progress

func progressKey(userID, moduleID string) string { return userID + "/" + moduleID }

func (repo *LearningRepository) GetProgress(_ context.Context, userID, moduleID string, _ ...core.DBExecutor) (learning.Progress, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if progress, ok := repo.progress[progressKey(userID, moduleID)]; ok {
		return progress, nil
	}
	return learning.Progress{}, learning.ErrProgressNotFound
}

func (repo *LearningRepository) UpsertProgress(_ context.Context, progress learning.Progress, _ ...core.DBExecutor) (learning.Progress, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := progressKey(progress.UserID, progress.ModuleID)
	prev, existed := repo.progress[key]
	repo.progress[key] = progress

	if repo.gamify != nil && progress.CompletionPercent == 100 && (!existed || prev.CompletionPercent < 100) {
		repo.gamify.CompletedModules[progress.UserID]++
		repo.bumpCompletedPaths(progress.UserID, progress.ModuleID)
	}
	return progress, nil
}

// bumpCompletedPaths credits a path completion when the user's last pending
// module in the owning path reaches 100%. Caller holds the lock.
func (repo *LearningRepository) bumpCompletedPaths(userID, moduleID string) {
	module, ok := repo.modules[moduleID]
	if !ok {
		return
	}
	for _, sibling := range repo.modulesByPath(module.PathID) {
		if rec, ok := repo.progress[progressKey(userID, sibling.ID)]; !ok || rec.CompletionPercent < 100 {
			return
		}
	}
	repo.gamify.CompletedPaths[userID]++
}

func (repo *LearningRepository) QueryProgressByUser(_ context.Context, userID string) ([]learning.Progress, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	records := make([]learning.Progress, 0)
	for _, rec := range repo.progress {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ModuleID < records[j].ModuleID })
	return records, nil
}

func (repo *LearningRepository) QueryProgressByUserAndPath(_ context.Context, userID, pathID string) ([]learning.Progress, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	moduleIDs := make(map[string]bool)
	for _, module := range repo.modules {
		if module.PathID == pathID {
			moduleIDs[module.ID] = true
		}
	}

	records := make([]learning.Progress, 0)
	for _, rec := range repo.progress {
		if rec.UserID == userID && moduleIDs[rec.ModuleID] {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ModuleID < records[j].ModuleID })
	return records, nil
}
