package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrCode(origErr); ok {
				code = c
				message = err.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var actor economy.Actor
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				actor = claims.Actor()
			}
			logger.Error(msg, errors.Wrap(err, msg), actor)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainErrCode maps the economy error kinds to HTTP status codes.
func domainErrCode(err error) (int, bool) {
	switch err {
	case economy.ErrInvalidAmount, economy.ErrInvalidSubject:
		return http.StatusBadRequest, true
	case economy.ErrNotFound:
		return http.StatusNotFound, true
	case economy.ErrInvalidTransition, economy.ErrConflict:
		return http.StatusConflict, true
	case economy.ErrInsufficientBalance, economy.ErrInsufficientPoints:
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}
