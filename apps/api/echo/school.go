package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

type schoolApi struct {
	deps ServerDeps
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{deps: deps}
	teacher := roleMiddleware(user.RoleTeacher)

	sg := g.Group("/students", jwt, teacher)
	sg.GET("", api.listStudents)
	sg.GET("/:id/marks", api.studentMarks)

	mg := g.Group("/marks", jwt, teacher)
	mg.POST("", api.enterMark)
	mg.PATCH("/:id", api.updateMark)

	subg := g.Group("/subjects", jwt)
	subg.GET("", api.listSubjects)
	subg.POST("", api.addSubject, teacher)
	subg.PATCH("/:id", api.updateSubject, teacher)
	subg.DELETE("/:id", api.deleteSubject, teacher)
}

// parseGrade reads a grade taught at the school.
func parseGrade(conf *core.Config, raw string) (int, error) {
	grade, err := strconv.Atoi(raw)
	if err != nil || grade < conf.School.MinGrade || grade > conf.School.MaxGrade {
		msg := fmt.Sprintf("grade must be between %d and %d", conf.School.MinGrade, conf.School.MaxGrade)
		return 0, core.NewValidationError(errors.New(msg), core.FieldError{Field: "grade", Error: msg})
	}
	return grade, nil
}

func (api *schoolApi) getStudent(ctx echo.Context, id string) (user.User, error) {
	usr, err := api.deps.UserSvc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrStudentNotFound {
			return user.User{}, errStudentNotFound
		}
		return user.User{}, errors.Wrap(err, "fetching student")
	}
	return usr, nil
}

func (api *schoolApi) listStudents(ctx echo.Context) error {
	grade, err := parseGrade(api.deps.Conf, ctx.QueryParam("grade"))
	if err != nil {
		return err
	}
	students, err := api.deps.UserSvc.StudentsByGrade(ctx.Request().Context(), grade)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if students == nil {
		students = []user.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) studentMarks(ctx echo.Context) error {
	usr, err := api.getStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	entries, err := api.deps.Reports.Dashboard(ctx.Request().Context(), usr.UID)
	if err != nil {
		return errors.Wrap(err, "loading dashboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}

// enterMark records the score of a student: 201 when a mark was added, 200 when the existing one was updated.
func (api *schoolApi) enterMark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data mark.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	data.TeacherID = claims.Subject

	if err := data.ValidateFields(api.deps.Validate); err != nil {
		return err
	}

	student, err := api.getStudent(ctx, data.StudentID)
	if err != nil {
		return err
	}
	if _, err := api.deps.SubjectSvc.Get(ctx.Request().Context(), data.SubjectID); err != nil {
		return errors.Wrap(err, "fetching subject")
	}
	// the grade defaults to the student's
	if data.Grade == 0 {
		data.Grade = student.Grade.Int
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	m, updated, err := api.deps.MarkSvc.Enter(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "entering mark")
	}
	if updated {
		return ctx.JSON(http.StatusOK, m)
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *schoolApi) updateMark(ctx echo.Context) error {
	var data mark.UpdateMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMark")
	}
	if data.IsEmpty() {
		return errNothingToUpdate
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	m, err := api.deps.MarkSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

// listSubjects lists every subject, reported with the requested grade when one is given.
func (api *schoolApi) listSubjects(ctx echo.Context) error {
	var (
		subjects []subject.Subject
		err      error
	)
	rctx := ctx.Request().Context()
	if raw := ctx.QueryParam("grade"); raw != "" {
		grade, gErr := parseGrade(api.deps.Conf, raw)
		if gErr != nil {
			return gErr
		}
		subjects, err = api.deps.SubjectSvc.List(rctx, grade)
	} else {
		subjects, err = api.deps.SubjectSvc.QueryAll(rctx)
	}
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) addSubject(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.SubjectSvc.Add(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *schoolApi) updateSubject(ctx echo.Context) error {
	var data subject.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if data.IsEmpty() {
		return errNothingToUpdate
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sub, err := api.deps.SubjectSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) deleteSubject(ctx echo.Context) error {
	n, err := api.deps.SubjectSvc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deletedMarks": n})
}
