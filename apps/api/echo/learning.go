package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/learning"
	"github.com/trezcool/ujuzi/core/user"
)

type learningApi struct {
	svc      learning.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerLearningAPI(
	g *echo.Group,
	jwt, optJWT echo.MiddlewareFunc,
	svc learning.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := learningApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	lp := g.Group("/learning-paths")

	// browse endpoints; authenticated admins also see unpublished paths
	lp.GET("", api.queryPaths, optJWT)
	lp.GET("/:id", api.retrievePath, optJWT)
	lp.GET("/:id/modules", api.moduleSummaries, optJWT)

	lp.POST("", api.createPath, jwt)
	lp.GET("/followed", api.followedPaths, jwt)
	lp.POST("/:id/review", api.reviewPath, jwt, adminMiddleware())
	lp.POST("/:id/follow", api.followPath, jwt)
	lp.DELETE("/:id/follow", api.unfollowPath, jwt)
	lp.POST("/:id/modules", api.createModule, jwt)

	mg := g.Group("/modules")
	mg.GET("/:id/resources", api.resources, optJWT)
	mg.POST("/:id/resources", api.addResource, jwt)
	mg.POST("/:id/complete", api.completeModule, jwt)
	mg.POST("/:id/quiz", api.createQuiz, jwt)

	qg := g.Group("/quizzes", jwt)
	qg.GET("/:id", api.getQuiz)
	qg.POST("/:id/questions", api.addQuestion)
	qg.POST("/:id/submit", api.evaluateQuiz)

	pg := g.Group("/progress", jwt)
	pg.GET("", api.userProgress)
	pg.GET("/paths/:id", api.pathProgress)
}

// Handlers

func (api *learningApi) createPath(ctx echo.Context) error {
	var data learning.NewPath
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPath")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	path, err := api.svc.CreatePath(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating path")
	}
	return ctx.JSON(http.StatusCreated, path)
}

func (api *learningApi) queryPaths(ctx echo.Context) error {
	filter := new(learning.PathFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, PagedResponse{Results: []learning.Path{}})
	}

	viewer, err := getOptionalContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	paths, total, err := api.svc.QueryPaths(ctx.Request().Context(), viewer, *filter)
	if err != nil {
		return errors.Wrap(err, "querying paths")
	}
	if paths == nil {
		paths = []learning.Path{}
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Results: paths, Total: total})
}

func (api *learningApi) retrievePath(ctx echo.Context) error {
	viewer, err := getOptionalContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	path, modules, err := api.svc.GetPath(ctx.Request().Context(), ctx.Param("id"), viewer)
	if err != nil {
		return errors.Wrap(err, "getting path")
	}
	return ctx.JSON(http.StatusOK, PathDetailResponse{Path: path, Modules: modules})
}

func (api *learningApi) reviewPath(ctx echo.Context) error {
	var data learning.ReviewPath
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewPath")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	path, err := api.svc.ReviewPath(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing path")
	}
	return ctx.JSON(http.StatusOK, path)
}

func (api *learningApi) followPath(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	path, err := api.svc.FollowPath(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "following path")
	}
	return ctx.JSON(http.StatusOK, path)
}

func (api *learningApi) unfollowPath(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	path, err := api.svc.UnfollowPath(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unfollowing path")
	}
	return ctx.JSON(http.StatusOK, path)
}

func (api *learningApi) followedPaths(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	paths, err := api.svc.FollowedPaths(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying followed paths")
	}
	if paths == nil {
		paths = []learning.FollowedPath{}
	}
	return ctx.JSON(http.StatusOK, paths)
}

func (api *learningApi) createModule(ctx echo.Context) error {
	var data learning.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	module, err := api.svc.CreateModule(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, module)
}

func (api *learningApi) moduleSummaries(ctx echo.Context) error {
	viewer, err := getOptionalContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	path, modules, err := api.svc.ModuleSummaries(ctx.Request().Context(), ctx.Param("id"), viewer)
	if err != nil {
		return errors.Wrap(err, "querying module summaries")
	}
	return ctx.JSON(http.StatusOK, PathDetailResponse{Path: path, Modules: modules})
}

func (api *learningApi) addResource(ctx echo.Context) error {
	var data learning.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	resource, err := api.svc.AddResource(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding resource")
	}
	return ctx.JSON(http.StatusCreated, resource)
}

func (api *learningApi) resources(ctx echo.Context) error {
	viewer, err := getOptionalContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	module, resources, err := api.svc.Resources(ctx.Request().Context(), ctx.Param("id"), viewer)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []learning.Resource{}
	}
	return ctx.JSON(http.StatusOK, ModuleResourcesResponse{Module: module, Resources: resources})
}

func (api *learningApi) completeModule(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	progress, reward, err := api.svc.CompleteModule(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing module")
	}
	return ctx.JSON(http.StatusOK, CompletionResponse{Progress: progress, Reward: reward})
}

func (api *learningApi) createQuiz(ctx echo.Context) error {
	var data learning.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	quiz, err := api.svc.CreateQuiz(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (api *learningApi) addQuestion(ctx echo.Context) error {
	var data learning.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	question, err := api.svc.AddQuestion(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, question)
}

func (api *learningApi) getQuiz(ctx echo.Context) error {
	quiz, questions, err := api.svc.GetQuiz(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	if questions == nil {
		questions = []learning.Question{}
	}
	return ctx.JSON(http.StatusOK, QuizDetailResponse{Quiz: quiz, Questions: questions})
}

func (api *learningApi) evaluateQuiz(ctx echo.Context) error {
	var answers learning.QuizAnswers
	if err := ctx.Bind(&answers); err != nil {
		return errors.Wrap(err, "binding to QuizAnswers")
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	result, err := api.svc.EvaluateQuiz(ctx.Request().Context(), usr, ctx.Param("id"), answers)
	if err != nil {
		return errors.Wrap(err, "evaluating quiz")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *learningApi) userProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	progress, err := api.svc.UserProgress(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying user progress")
	}
	if progress == nil {
		progress = []learning.Progress{}
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *learningApi) pathProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	progress, err := api.svc.PathProgress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying path progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

type (
	PagedResponse struct {
		Results interface{} `json:"results"`
		Total   int         `json:"total"`
	}

	PathDetailResponse struct {
		learning.Path
		Modules []learning.ModuleSummary `json:"modules"`
	}

	ModuleResourcesResponse struct {
		learning.Module
		Resources []learning.Resource `json:"resources"`
	}

	QuizDetailResponse struct {
		learning.Quiz
		Questions []learning.Question `json:"questions"`
	}

	CompletionResponse struct {
		Progress learning.Progress   `json:"progress"`
		Reward   gamify.AwardSummary `json:"reward"`
	}
)
