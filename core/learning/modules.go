package learning

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

func (svc *service) CreateModule(ctx context.Context, usr user.User, pathID string, nm NewModule) (Module, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return Module{}, err
	}
	if path.CreatorID != usr.ID && !usr.IsAdmin() {
		return Module{}, ErrNotPathOwner
	}

	module := Module{
		PathID:      path.ID,
		Title:       nm.Title,
		Description: nm.Description,
		CreatedAt:   core.NowFunc().UTC(),
	}
	return svc.repo.CreateModule(ctx, module)
}

func (svc *service) ModuleSummaries(ctx context.Context, pathID string, viewer *user.User) (Path, []ModuleSummary, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
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

func (svc *service) AddResource(ctx context.Context, usr user.User, moduleID string, nr NewResource) (Resource, error) {
	module, err := svc.repo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Resource{}, err
	}
	path, err := svc.repo.GetPathByID(ctx, module.PathID)
	if err != nil {
		return Resource{}, err
	}
	if path.CreatorID != usr.ID && !usr.IsAdmin() {
		return Resource{}, ErrNotPathOwner
	}

	res := Resource{
		ModuleID:    module.ID,
		Title:       nr.Title,
		Type:        nr.Type,
		URL:         nr.URL,
		Description: nr.Description,
	}
	return svc.repo.CreateResource(ctx, res)
}

func (svc *service) Resources(ctx context.Context, moduleID string, viewer *user.User) (Module, []Resource, error) {
	module, err := svc.repo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Module{}, nil, err
	}
	path, err := svc.repo.GetPathByID(ctx, module.PathID)
	if err != nil {
		return Module{}, nil, err
	}
	if !path.IsPublished && !isAdmin(viewer) {
		return Module{}, nil, ErrModuleNotFound
	}

	resources, err := svc.repo.QueryResourcesByModule(ctx, module.ID)
	if err != nil {
		return Module{}, nil, errors.Wrap(err, "querying resources")
	}
	return module, resources, nil
}

// CompleteModule marks the module fully complete for usr and rewards the
// completion, atomically. The user must be following the owning path.
func (svc *service) CompleteModule(ctx context.Context, usr user.User, moduleID string) (Progress, gamify.AwardSummary, error) {
	module, err := svc.repo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Progress{}, gamify.AwardSummary{}, err
	}
	following, err := svc.repo.IsFollowing(ctx, usr.ID, module.PathID)
	if err != nil {
		return Progress{}, gamify.AwardSummary{}, errors.Wrap(err, "checking follow")
	}
	if !following {
		return Progress{}, gamify.AwardSummary{}, core.NewValidationError(ErrNotFollowing)
	}

	var (
		progress Progress
		sum      gamify.AwardSummary
	)
	if err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		now := core.NowFunc().UTC()

		progress, err = svc.repo.GetProgress(ctx, usr.ID, module.ID, tx)
		switch err {
		case nil:
		case ErrProgressNotFound:
			progress = Progress{UserID: usr.ID, ModuleID: module.ID, StartedAt: now}
		default:
			return errors.Wrap(err, "getting progress")
		}
		progress.CompletionPercent = 100
		progress.CompletedAt = null.TimeFrom(now)
		if progress, err = svc.repo.UpsertProgress(ctx, progress, tx); err != nil {
			return errors.Wrap(err, "upserting progress")
		}

		sum, err = svc.gameSvc.AwardPointsTx(ctx, tx, &usr, gamify.ActionCompleteModule, module.Title)
		return err
	}); err != nil {
		return Progress{}, gamify.AwardSummary{}, err
	}

	svc.refreshLeaderboard(ctx)
	return progress, sum, nil
}

// PathProgress rolls up per-module completion; the overall figure is the mean
// of the module completion percentages.
func (svc *service) PathProgress(ctx context.Context, userID, pathID string) (PathProgress, error) {
	path, err := svc.repo.GetPathByID(ctx, pathID)
	if err != nil {
		return PathProgress{}, err
	}
	modules, err := svc.repo.QueryModulesByPath(ctx, path.ID)
	if err != nil {
		return PathProgress{}, errors.Wrap(err, "querying modules")
	}
	records, err := svc.repo.QueryProgressByUserAndPath(ctx, userID, path.ID)
	if err != nil {
		return PathProgress{}, errors.Wrap(err, "querying progress")
	}

	byModule := make(map[string]Progress, len(records))
	for _, rec := range records {
		byModule[rec.ModuleID] = rec
	}

	result := PathProgress{
		PathID:    path.ID,
		PathTitle: path.Title,
		Modules:   make([]ModuleProgress, 0, len(modules)),
	}
	var total int
	for _, module := range modules {
		rec := byModule[module.ID]
		total += rec.CompletionPercent
		result.Modules = append(result.Modules, ModuleProgress{
			ModuleID:          module.ID,
			ModuleTitle:       module.Title,
			CompletionPercent: rec.CompletionPercent,
			CompletedAt:       rec.CompletedAt,
		})
	}
	if len(modules) > 0 {
		result.OverallCompletion = float64(total) / float64(len(modules))
	}
	return result, nil
}

func (svc *service) UserProgress(ctx context.Context, userID string) ([]Progress, error) {
	return svc.repo.QueryProgressByUser(ctx, userID)
}
