package report

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

type (
	StudentLister interface {
		StudentsByGrade(ctx context.Context, grade int) ([]user.Student, error)
	}

	SubjectLister interface {
		List(ctx context.Context, grade int) ([]subject.Subject, error)
	}

	MarkLister interface {
		ListByStudent(ctx context.Context, studentID string) ([]mark.Mark, error)
	}
)

// Builder fetches what a report needs and generates it.
type Builder struct {
	students StudentLister
	subjects SubjectLister
	marks    MarkLister
}

func NewBuilder(students StudentLister, subjects SubjectLister, marks MarkLister) *Builder {
	return &Builder{students: students, subjects: subjects, marks: marks}
}

// Data fetches the students and subjects of grade in parallel, then the marks of every student in parallel.
// Marks are kept in student order, newest first for each student.
func (b *Builder) Data(ctx context.Context, grade int) (Data, error) {
	d := Data{Grade: grade, GeneratedAt: core.NowFunc()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := b.students.StudentsByGrade(gctx, grade)
		if err != nil {
			return errors.Wrap(err, "fetching students")
		}
		d.Students = students
		return nil
	})
	g.Go(func() error {
		subjects, err := b.subjects.List(gctx, grade)
		if err != nil {
			return errors.Wrap(err, "fetching subjects")
		}
		d.Subjects = subjects
		return nil
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}

	perStudent := make([][]mark.Mark, len(d.Students))
	g, gctx = errgroup.WithContext(ctx)
	for i, student := range d.Students {
		i, studentID := i, student.ID
		g.Go(func() error {
			marks, err := b.marks.ListByStudent(gctx, studentID)
			if err != nil {
				return errors.Wrapf(err, "fetching marks of student %s", studentID)
			}
			perStudent[i] = marks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Data{}, err
	}
	for _, marks := range perStudent {
		d.Marks = append(d.Marks, marks...)
	}
	return d, nil
}

// Build generates the report of grade.
func (b *Builder) Build(ctx context.Context, grade int) (Report, error) {
	d, err := b.Data(ctx, grade)
	if err != nil {
		return Report{}, err
	}
	html, err := Generate(d)
	if err != nil {
		return Report{}, err
	}
	return Report{Filename: Filename(grade, d.GeneratedAt), HTML: html}, nil
}
