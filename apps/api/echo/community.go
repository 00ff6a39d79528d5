package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/community"
	"github.com/trezcool/ujuzi/core/user"
)

type communityApi struct {
	svc      community.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCommunityAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc community.Service, usrSvc user.Service, validate *validator.Validate) {
	api := communityApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	cg := g.Group("/community")
	cg.GET("/posts", api.queryPosts)
	cg.GET("/posts/:id", api.retrievePost)

	ag := cg.Group("", jwt)
	ag.POST("/posts", api.createPost)
	ag.DELETE("/posts/:id", api.destroyPost)
	ag.POST("/posts/:id/comments", api.addComment)
	ag.DELETE("/comments/:id", api.destroyComment)
	ag.POST("/flags", api.flagContent)

	mg := g.Group("/moderation", jwt, adminMiddleware())
	mg.GET("/flags", api.queryFlags)
	mg.POST("/flags/:id/resolve", api.resolveFlag)
	mg.GET("/stats", api.flagStats)
}

// Handlers

func (api *communityApi) createPost(ctx echo.Context) error {
	var data community.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	post, err := api.svc.CreatePost(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *communityApi) queryPosts(ctx echo.Context) error {
	page := new(core.Pagination)
	if err := ctx.Bind(page); err != nil {
		return ctx.JSON(http.StatusOK, PagedResponse{Results: []community.Post{}})
	}

	posts, total, err := api.svc.QueryPosts(ctx.Request().Context(), *page)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []community.Post{}
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Results: posts, Total: total})
}

func (api *communityApi) retrievePost(ctx echo.Context) error {
	post, comments, err := api.svc.GetPost(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting post")
	}
	if comments == nil {
		comments = []community.Comment{}
	}
	return ctx.JSON(http.StatusOK, PostDetailResponse{Post: post, Comments: comments})
}

func (api *communityApi) destroyPost(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeletePost(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *communityApi) addComment(ctx echo.Context) error {
	var data community.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	comment, err := api.svc.AddComment(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, comment)
}

func (api *communityApi) destroyComment(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.DeleteComment(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *communityApi) flagContent(ctx echo.Context) error {
	var data community.NewFlag
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFlag")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	flag, err := api.svc.FlagContent(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "flagging content")
	}
	return ctx.JSON(http.StatusCreated, flag)
}

func (api *communityApi) queryFlags(ctx echo.Context) error {
	filter := new(community.FlagFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, PagedResponse{Results: []community.Flag{}})
	}

	flags, total, err := api.svc.QueryFlags(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying flags")
	}
	if flags == nil {
		flags = []community.Flag{}
	}
	return ctx.JSON(http.StatusOK, PagedResponse{Results: flags, Total: total})
}

func (api *communityApi) resolveFlag(ctx echo.Context) error {
	var data community.ResolveFlag
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveFlag")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	flag, err := api.svc.ResolveFlag(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "resolving flag")
	}
	return ctx.JSON(http.StatusOK, flag)
}

func (api *communityApi) flagStats(ctx echo.Context) error {
	stats, err := api.svc.FlagStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying flag stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

type PostDetailResponse struct {
	community.Post
	Comments []community.Comment `json:"comments"`
}
