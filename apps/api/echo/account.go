package echoapi

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
)

type accountApi struct {
	deps ServerDeps
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{deps: deps}

	ag := g.Group("/auth")
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	mg := g.Group("/me", jwt)
	mg.GET("", api.me)
	mg.GET("/marks", api.myMarks, roleMiddleware(user.RoleStudent))

	g.GET("/roles", api.roles)
	g.GET("/grades", api.grades)
}

func (api *accountApi) respondWithToken(ctx echo.Context, code int, usr user.User) error {
	token, err := GenerateToken(api.deps.Conf, GetUserClaims(api.deps.Conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, TokenResponse{Token: token, User: usr})
}

func (api *accountApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := session.Register(ctx.Request().Context(), api.deps.Auth, api.deps.UserSvc, data)
	if err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusCreated, usr)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	id, err := api.deps.Auth.Verify(rctx, data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == session.ErrInvalidCredential {
			return errInvalidCredential
		}
		return errors.Wrap(err, "verifying credentials")
	}

	usr, err := api.deps.UserSvc.Get(rctx, id.UID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errProfileNotFound
		}
		return errors.Wrap(err, "fetching profile")
	}
	return api.respondWithToken(ctx, http.StatusOK, usr)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps.Conf, api.deps.UserSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}

func (api *accountApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// myMarks lists the marks of the signed in student, newest first, with subject names.
func (api *accountApi) myMarks(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return err
	}
	entries, err := api.deps.Reports.Dashboard(ctx.Request().Context(), usr.UID)
	if err != nil {
		return errors.Wrap(err, "loading dashboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *accountApi) roles(ctx echo.Context) error {
	roles := append([]user.Role(nil), user.Roles...)
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return ctx.JSON(http.StatusOK, roles)
}

func (api *accountApi) grades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.deps.Conf.Grades())
}
