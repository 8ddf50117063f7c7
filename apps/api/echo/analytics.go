package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *analytics.Service) {
	api := analyticsApi{svc: svc}

	ag := g.Group("/analytics", jwt)
	ag.GET("/admin", api.admin)
	ag.GET("/instructor", api.instructor)
	ag.GET("/user", api.student)
	ag.GET("/course/:id", api.course)
}

func (api *analyticsApi) admin(ctx echo.Context) error {
	report, err := api.svc.Admin(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "computing admin analytics")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) instructor(ctx echo.Context) error {
	report, err := api.svc.Instructor(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "computing instructor analytics")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) student(ctx echo.Context) error {
	report, err := api.svc.Student(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "computing student analytics")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *analyticsApi) course(ctx echo.Context) error {
	report, err := api.svc.Course(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing course analytics")
	}
	return ctx.JSON(http.StatusOK, report)
}
