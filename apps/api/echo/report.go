package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/user"
)

// MailReportRequest lists the recipients of a mailed report; the teacher's own address is used when empty.
type MailReportRequest struct {
	To []string `json:"to" validate:"omitempty,dive,email"`
}

type reportApi struct {
	deps   ServerDeps
	mailer *report.Mailer
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{deps: deps}
	if deps.MailSvc != nil {
		api.mailer = report.NewMailer(deps.Reports, deps.MailSvc)
	}
	teacher := roleMiddleware(user.RoleTeacher)

	rg := g.Group("/reports", jwt, teacher)
	rg.GET("/:grade", api.download)
	rg.POST("/:grade/mail", api.mail)

	g.GET("/stats", api.stats, jwt, teacher)
}

func (api *reportApi) download(ctx echo.Context) error {
	grade, err := parseGrade(api.deps.Conf, ctx.Param("grade"))
	if err != nil {
		return err
	}

	rep, err := api.deps.Reports.Build(ctx.Request().Context(), grade)
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rep.Filename))
	return ctx.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, []byte(rep.HTML))
}

func (api *reportApi) mail(ctx echo.Context) error {
	if api.mailer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "email is not configured")
	}
	grade, err := parseGrade(api.deps.Conf, ctx.Param("grade"))
	if err != nil {
		return err
	}

	var data MailReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MailReportRequest")
	}
	for i := range data.To {
		data.To[i] = core.CleanString(data.To[i], true /* lower */)
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	var to []mail.Address
	if len(data.To) == 0 {
		usr, err := getContextUser(ctx, api.deps.UserSvc)
		if err != nil {
			return err
		}
		to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
	}
	for _, addr := range data.To {
		to = append(to, mail.Address{Address: addr})
	}

	rep, err := api.mailer.Send(ctx.Request().Context(), grade, to...)
	if err != nil {
		return errors.Wrap(err, "mailing report")
	}
	return ctx.JSON(http.StatusAccepted, echo.Map{"filename": rep.Filename, "recipients": len(to)})
}

func (api *reportApi) stats(ctx echo.Context) error {
	st, err := api.deps.Stats.Load(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading stats")
	}
	return ctx.JSON(http.StatusOK, st)
}
