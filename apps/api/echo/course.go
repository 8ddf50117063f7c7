package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/course"
	"github.com/trezcool/masomo-lms/services/metrics"
)

type courseApi struct {
	svc     *course.Service
	metrics *metrics.Metrics
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, m *metrics.Metrics) {
	api := courseApi{svc: svc, metrics: m}

	cg := g.Group("/courses")

	// public catalog
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// authed endpoints
	cg.GET("/enrolled", api.queryEnrolled, jwt)
	cg.GET("/instructor", api.queryOwn, jwt)
	cg.POST("", api.create, jwt)
	cg.PUT("/:id", api.update, jwt)
	cg.DELETE("/:id", api.destroy, jwt)
	cg.POST("/:id/enroll", api.enroll, jwt)
	cg.GET("/:id/students", api.roster, jwt)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) queryEnrolled(ctx echo.Context) error {
	courses, err := api.svc.QueryEnrolled(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryOwn(ctx echo.Context) error {
	courses, err := api.svc.QueryByInstructor(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "querying instructor courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	c, err := api.svc.Update(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	e, err := api.svc.Enroll(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	api.metrics.Enrolled()
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) roster(ctx echo.Context) error {
	students, err := api.svc.Roster(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}
