package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

var (
	errUnauthorized      = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errInvalidCredential = echo.NewHTTPError(http.StatusBadRequest, session.MsgInvalidCredential)
	errProfileNotFound   = echo.NewHTTPError(http.StatusForbidden, session.MsgProfileNotFound)
	errRefreshExpired    = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden     = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errStudentNotFound   = echo.NewHTTPError(http.StatusNotFound, "student not found")
	errNothingToUpdate   = core.NewValidationError(errors.New("nothing to update"))
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.FieldMessages(origErr, translator)
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				message = core.FieldMessages(origErr, translator)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if isNotFound(origErr) {
				code = http.StatusNotFound
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.UID = claims.Subject
				usr.Email = claims.Email
				usr.Name = claims.Name
				usr.Role = claims.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
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

func isNotFound(err error) bool {
	return err == user.ErrNotFound || err == mark.ErrNotFound || err == subject.ErrNotFound || err == core.ErrNoRecord
}
