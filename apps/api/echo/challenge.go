package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core/challenge"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/user"
)

type challengeApi struct {
	svc      challenge.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerChallengeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc challenge.Service, usrSvc user.Service, validate *validator.Validate) {
	api := challengeApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/challenges")
	cg.GET("", api.activeChallenges)
	cg.GET("/:id/standings", api.standings)
	cg.POST("", api.createChallenge, jwt, adminMiddleware())
	cg.POST("/:id/join", api.joinChallenge, jwt)

	eg := g.Group("/events")
	eg.GET("", api.activeEvents)
	eg.POST("", api.createEvent, jwt, adminMiddleware())
	eg.POST("/:id/join", api.joinEvent, jwt)

	pg := g.Group("/participations", jwt)
	pg.GET("", api.myParticipations)
	pg.PUT("/:id/progress", api.updateProgress)
}

// Handlers

func (api *challengeApi) createChallenge(ctx echo.Context) error {
	var data challenge.NewChallenge
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChallenge")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ch, err := api.svc.CreateChallenge(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating challenge")
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *challengeApi) activeChallenges(ctx echo.Context) error {
	challenges, err := api.svc.ActiveChallenges(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying active challenges")
	}
	if challenges == nil {
		challenges = []challenge.ActiveChallenge{}
	}
	return ctx.JSON(http.StatusOK, challenges)
}

func (api *challengeApi) joinChallenge(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	part, err := api.svc.JoinChallenge(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "joining challenge")
	}
	return ctx.JSON(http.StatusCreated, part)
}

func (api *challengeApi) standings(ctx echo.Context) error {
	ch, entries, err := api.svc.Standings(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying standings")
	}
	if entries == nil {
		entries = []challenge.StandingEntry{}
	}
	return ctx.JSON(http.StatusOK, StandingsResponse{UserChallenge: ch, Standings: entries})
}

func (api *challengeApi) createEvent(ctx echo.Context) error {
	var data challenge.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.CreateEvent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *challengeApi) activeEvents(ctx echo.Context) error {
	events, err := api.svc.ActiveEvents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying active events")
	}
	if events == nil {
		events = []challenge.PlatformEvent{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *challengeApi) joinEvent(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	part, reward, err := api.svc.JoinEvent(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "joining event")
	}
	return ctx.JSON(http.StatusCreated, JoinEventResponse{Participation: part, Reward: reward})
}

func (api *challengeApi) myParticipations(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	parts, err := api.svc.MyParticipations(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying participations")
	}
	if parts == nil {
		parts = []challenge.Participation{}
	}
	return ctx.JSON(http.StatusOK, parts)
}

func (api *challengeApi) updateProgress(ctx echo.Context) error {
	var data challenge.ProgressUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	part, err := api.svc.UpdateProgress(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, part)
}

type (
	StandingsResponse struct {
		challenge.UserChallenge
		Standings []challenge.StandingEntry `json:"standings"`
	}

	JoinEventResponse struct {
		challenge.Participation
		Reward gamify.AwardSummary `json:"reward"`
	}
)
