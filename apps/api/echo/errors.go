package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

type errorResponse struct {
	Kind   core.ErrorKind    `json:"kind"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var kindStatus = map[core.ErrorKind]int{
	core.KindValidation:      http.StatusBadRequest,
	core.KindNotFound:        http.StatusNotFound,
	core.KindForbidden:       http.StatusForbidden,
	core.KindUnauthenticated: http.StatusUnauthorized,
	core.KindConflict:        http.StatusConflict,
	core.KindCapacity:        http.StatusConflict,
	core.KindInternal:        http.StatusInternalServerError,
}

func statusKind(code int) core.ErrorKind {
	switch {
	case code == http.StatusUnauthorized:
		return core.KindUnauthenticated
	case code == http.StatusForbidden:
		return core.KindForbidden
	case code == http.StatusNotFound, code == http.StatusMethodNotAllowed:
		return core.KindNotFound
	case code == http.StatusConflict:
		return core.KindConflict
	case code >= http.StatusInternalServerError:
		return core.KindInternal
	}
	return core.KindValidation
}

// fieldName drops the root struct name from a validation namespace: "NewAssessment.questions[0].type" -> "questions[0].type".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var (
			code int
			resp errorResponse
		)
		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			resp.Kind = statusKind(code)
			resp.Error = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Kind = core.KindValidation
			resp.Error = "invalid input"
			resp.Fields = make(map[string]string, len(origErr))
			for _, fe := range origErr {
				resp.Fields[fieldName(fe)] = fe.Translate(translator)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Kind = core.KindValidation
			resp.Error = origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fe := range origErr.Fields {
					resp.Fields[fe.Field] = fe.Error
				}
			}
		case *core.Error:
			code = kindStatus[origErr.Kind]
			resp.Kind = origErr.Kind
			resp.Error = origErr.Message
		default:
			code = http.StatusInternalServerError
		}

		if code == 0 || code >= http.StatusInternalServerError {
			code = http.StatusInternalServerError
			resp = errorResponse{Kind: core.KindInternal, Error: http.StatusText(code)}

			args := []interface{}{errors.Wrap(err, resp.Error)}
			if usr, uErr := getContextUser(ctx); uErr == nil {
				args = append(args, usr.LogPerson())
			}
			logger.Error(fmt.Sprintf("%s %s: %v", ctx.Request().Method, ctx.Path(), err), args...)

			if ctx.Echo().Debug {
				resp.Error = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, resp)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
