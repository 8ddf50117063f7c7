package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	auth *Auth
	svc  *user.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *Auth, svc *user.Service) {
	api := userApi{auth: auth, svc: svc}

	// un-authed endpoints
	// TODO: rate limit `/auth/login`
	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	ag.GET("/profile", api.profile, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	// user administration
	ug := g.Group("/users", jwt, adminMiddleware())
	ug.GET("", api.query)

	dg := ug.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *userApi) tokenResponse(usr user.User, code int, ctx echo.Context) error {
	token, err := api.auth.GenerateToken(api.auth.UserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, TokenResponse{Token: token, User: &usr})
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return api.tokenResponse(usr, http.StatusCreated, ctx)
}

func (api *userApi) login(ctx echo.Context) error {
	var data user.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.tokenResponse(usr, http.StatusOK, ctx)
}

func (api *userApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), getPrincipal(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	usr, err := api.svc.Update(ctx.Request().Context(), getPrincipal(ctx), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// objectMiddleware loads the user of the `:id` path param into the context as "object".
func (api *userApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.svc.Retrieve(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding user by ID")
		}
		ctx.Set("object", usr)
		return next(ctx)
	}
}

type TokenResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user,omitempty"`
}
