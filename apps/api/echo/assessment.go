package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core/assessment"
	"github.com/trezcool/masomo-lms/services/metrics"
)

type assessmentApi struct {
	svc     *assessment.Service
	metrics *metrics.Metrics
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assessment.Service, m *metrics.Metrics) {
	api := assessmentApi{svc: svc, metrics: m}

	g.GET("/courses/:id/assessments", api.queryByCourse, jwt)

	ag := g.Group("/assessments", jwt)
	ag.POST("", api.create)
	ag.GET("/results/student", api.queryOwnResults)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/submit", api.submit)
}

// Handlers

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}

	a, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) queryByCourse(ctx echo.Context) error {
	assessments, err := api.svc.ListByCourse(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course assessments")
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assessment by ID")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	var data assessment.UpdateAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessment")
	}

	a, err := api.svc.Update(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) submit(ctx echo.Context) error {
	var data assessment.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	res, err := api.svc.Submit(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting assessment")
	}
	api.metrics.Submitted(res.TotalPoints > 0 && res.Score == res.TotalPoints)
	return ctx.JSON(http.StatusCreated, res)
}

func (api *assessmentApi) queryOwnResults(ctx echo.Context) error {
	results, err := api.svc.ListStudentResults(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return errors.Wrap(err, "querying student results")
	}
	return ctx.JSON(http.StatusOK, results)
}
