package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New("test")

	app := echo.New()
	app.Use(m.Middleware())
	app.GET("/courses/:id", func(ctx echo.Context) error {
		if ctx.Param("id") == "lol" {
			return echo.NewHTTPError(http.StatusNotFound, "course not found")
		}
		return ctx.String(http.StatusOK, "ok")
	})
	app.GET("/boom", func(ctx echo.Context) error {
		return errors.New("boom")
	})

	for _, path := range []string{"/courses/1", "/courses/2", "/courses/lol", "/boom"} {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}
	m.Enrolled()
	m.Submitted(true)
	m.Submitted(false)
	m.Submitted(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `test_http_requests_total{code="200",method="GET",route="/courses/:id"} 2`)
	assert.Contains(t, body, `test_http_requests_total{code="404",method="GET",route="/courses/:id"} 1`)
	assert.Contains(t, body, `test_http_requests_total{code="500",method="GET",route="/boom"} 1`)
	assert.Contains(t, body, "test_enrollments_total 1")
	assert.Contains(t, body, `test_assessment_submissions_total{perfect="false"} 2`)
	assert.Contains(t, body, `test_assessment_submissions_total{perfect="true"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
