package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

const defaultTopLimit = 10

type gamifyApi struct {
	svc      gamify.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerGamifyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc gamify.Service, usrSvc user.Service, validate *validator.Validate) {
	api := gamifyApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	lg := g.Group("/leaderboard")
	lg.GET("", api.leaderboard)
	lg.GET("/top", api.top)
	lg.GET("/categories/:category", api.categoryLeaderboard)
	lg.GET("/me", api.myRank, jwt)
	lg.POST("/update", api.updateRanks, jwt, adminMiddleware())

	bg := g.Group("/badges")
	bg.GET("", api.queryBadges)
	bg.GET("/me", api.myBadges, jwt)
	bg.GET("/progress", api.badgeProgress, jwt)
	bg.GET("/:key", api.retrieveBadge)
	bg.POST("/award", api.awardBadge, jwt, adminMiddleware())

	g.GET("/points/history", api.pointsHistory, jwt)
}

// Handlers

func (api *gamifyApi) leaderboard(ctx echo.Context) error {
	page := new(core.Pagination)
	if err := ctx.Bind(page); err != nil {
		return ctx.JSON(http.StatusOK, PagedResponse{Results: []gamify.LeaderboardEntry{}})
	}

	entries, total, err := api.svc.LeaderboardPage(ctx.Request().Context(), *page)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard page")
	}
	if entries == nil {
		entries = []gamify.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Results: entries, Total: total})
}

func (api *gamifyApi) top(ctx echo.Context) error {
	limit := intQueryParam(ctx, "limit", defaultTopLimit)

	entries, err := api.svc.TopUsers(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying top users")
	}
	if entries == nil {
		entries = []gamify.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gamifyApi) categoryLeaderboard(ctx echo.Context) error {
	limit := intQueryParam(ctx, "limit", defaultTopLimit)

	entries, err := api.svc.CategoryLeaderboard(ctx.Request().Context(), ctx.Param("category"), limit)
	if err != nil {
		if errors.Cause(err) == gamify.ErrUnknownCategory {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "querying category leaderboard")
	}
	if entries == nil {
		entries = []gamify.CategoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gamifyApi) myRank(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entry, neighbors, err := api.svc.UserRank(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying user rank")
	}
	if neighbors == nil {
		neighbors = []gamify.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, RankResponse{Entry: entry, Neighbors: neighbors})
}

func (api *gamifyApi) updateRanks(ctx echo.Context) error {
	if err := api.svc.UpdateAllRanks(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "updating ranks")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Leaderboard ranks updated."})
}

func (api *gamifyApi) queryBadges(ctx echo.Context) error {
	badges, err := api.svc.QueryAllBadges(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying badges")
	}
	if badges == nil {
		badges = []gamify.Badge{}
	}
	return ctx.JSON(http.StatusOK, badges)
}

func (api *gamifyApi) retrieveBadge(ctx echo.Context) error {
	badge, earners, err := api.svc.GetBadge(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return errors.Wrap(err, "getting badge")
	}
	return ctx.JSON(http.StatusOK, BadgeDetailResponse{Badge: badge, Earners: earners})
}

func (api *gamifyApi) myBadges(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	badges, err := api.svc.UserBadges(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying user badges")
	}
	if badges == nil {
		badges = []gamify.Badge{}
	}
	return ctx.JSON(http.StatusOK, badges)
}

func (api *gamifyApi) badgeProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	progress, err := api.svc.UserBadgeProgress(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying badge progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *gamifyApi) awardBadge(ctx echo.Context) error {
	var data AwardBadgeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AwardBadgeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	awarded, err := api.svc.AwardBadgeManually(ctx.Request().Context(), data.UserID, data.BadgeKey)
	if err != nil {
		return errors.Wrap(err, "awarding badge")
	}
	if !awarded {
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: "User already holds this badge."})
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Badge awarded."})
}

func (api *gamifyApi) pointsHistory(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	entries, err := api.svc.PointsHistory(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying points history")
	}
	if entries == nil {
		entries = []gamify.LogEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func intQueryParam(ctx echo.Context, name string, fallback int) int {
	if raw := ctx.QueryParam(name); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}

type (
	RankResponse struct {
		Entry     gamify.LeaderboardEntry   `json:"entry"`
		Neighbors []gamify.LeaderboardEntry `json:"neighbors"`
	}

	BadgeDetailResponse struct {
		gamify.Badge
		Earners int `json:"earners"`
	}

	AwardBadgeRequest struct {
		UserID   string `json:"user_id" validate:"required"`
		BadgeKey string `json:"badge_key" validate:"required"`
	}
)

func (ab *AwardBadgeRequest) Validate(validate *validator.Validate) error {
	ab.UserID = core.CleanString(ab.UserID)
	ab.BadgeKey = core.CleanString(ab.BadgeKey, true /* lower */)
	return validate.Struct(ab)
}
