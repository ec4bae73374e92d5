package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

// checkGrade fails unless grade is taught at the school.
func checkGrade(conf *core.Config, grade int) error {
	if grade < conf.School.MinGrade || grade > conf.School.MaxGrade {
		return fmt.Errorf("grade must be between %d and %d", conf.School.MinGrade, conf.School.MaxGrade)
	}
	return nil
}

func newStudentsCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	var grade int

	cmd := &cobra.Command{
		Use:   "students",
		Short: "List the students of a grade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkGrade(env.Conf, grade); err != nil {
				return err
			}
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				students, err := r.deps.UserSvc.StudentsByGrade(ctx, grade)
				if err != nil {
					return errors.Wrap(err, "listing students")
				}
				rows := make([][]string, 0, len(students))
				for _, s := range students {
					rows = append(rows, []string{s.ID, s.Name, s.Email})
				}
				return r.out.table(students, []string{"ID", "NAME", "EMAIL"}, rows)
			})
		},
	}

	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "grade")
	_ = cmd.MarkFlagRequired("grade")

	return cmd
}

type enterMarkOptions struct {
	student string
	subject string
	score   int
	comment string
	grade   int
}

func newEnterMarkCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	opts := &enterMarkOptions{}

	cmd := &cobra.Command{
		Use:   "enter-mark",
		Short: "Record the score of a student for a subject",
		Long: `Record the score of a student for a subject.

The newest mark of the student for the subject is updated when there is one,
otherwise a new mark is added. The grade defaults to the student's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				return runEnterMark(ctx, r, opts, cmd.Flags().Changed("score"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.student, "student", "", "student ID")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "subject ID")
	cmd.Flags().IntVar(&opts.score, "score", 0, "score, 0 to 100")
	cmd.Flags().StringVar(&opts.comment, "comment", "", "comment")
	cmd.Flags().IntVar(&opts.grade, "grade", 0, "grade (default: the student's)")

	return cmd
}

func runEnterMark(ctx context.Context, r *run, opts *enterMarkOptions, scoreSet bool) error {
	nm := mark.NewMark{
		StudentID: core.CleanString(opts.student),
		SubjectID: opts.subject,
		Grade:     opts.grade,
		Comment:   opts.comment,
		TeacherID: r.user.UID,
	}
	if scoreSet {
		nm.Score = &opts.score
	}

	if err := nm.ValidateFields(r.deps.Validate); err != nil {
		return errors.New(core.ValidationMessage(err, r.deps.Translator))
	}

	student, err := r.deps.UserSvc.GetStudent(ctx, nm.StudentID)
	if err != nil {
		return err
	}
	if _, err := r.deps.SubjectSvc.Get(ctx, nm.SubjectID); err != nil {
		return err
	}
	// the grade defaults to the student's
	if nm.Grade == 0 {
		nm.Grade = student.Grade.Int
	}
	if err := nm.Validate(r.deps.Validate); err != nil {
		return errors.New(core.ValidationMessage(err, r.deps.Translator))
	}

	m, updated, err := r.deps.MarkSvc.Enter(ctx, nm)
	if err != nil {
		return errors.Wrap(err, "entering mark")
	}
	verb := "added"
	if updated {
		verb = "updated"
	}
	return r.out.result(m, "Mark %s: %s scored %d (%s).", verb, student.Name, m.Score, m.ID)
}

func newSubjectsCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List and manage subjects",
	}

	cmd.AddCommand(newSubjectsListCommand(env, rootOpts))
	cmd.AddCommand(newSubjectsAddCommand(env, rootOpts))
	cmd.AddCommand(newSubjectsRenameCommand(env, rootOpts))
	cmd.AddCommand(newSubjectsDeleteCommand(env, rootOpts))

	return cmd
}

func newSubjectsListCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	var grade int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if grade != 0 {
				if err := checkGrade(env.Conf, grade); err != nil {
					return err
				}
			}
			return env.withSession(cmd, rootOpts, "", func(ctx context.Context, r *run) error {
				var (
					subjects []subject.Subject
					err      error
				)
				if grade != 0 {
					subjects, err = r.deps.SubjectSvc.List(ctx, grade)
				} else {
					subjects, err = r.deps.SubjectSvc.QueryAll(ctx)
				}
				if err != nil {
					return errors.Wrap(err, "listing subjects")
				}
				rows := make([][]string, 0, len(subjects))
				for _, s := range subjects {
					rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.Grade)})
				}
				return r.out.table(subjects, []string{"ID", "NAME", "GRADE"}, rows)
			})
		},
	}

	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "report subjects for this grade")

	return cmd
}

func newSubjectsAddCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	var grade int

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				ns := subject.NewSubject{Name: args[0], Grade: grade}
				if err := ns.Validate(r.deps.Validate); err != nil {
					return errors.New(core.ValidationMessage(err, r.deps.Translator))
				}
				sub, err := r.deps.SubjectSvc.Add(ctx, ns)
				if err != nil {
					return err
				}
				return r.out.result(sub, "Subject added: %s (%s).", sub.Name, sub.ID)
			})
		},
	}

	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "grade")

	return cmd
}

func newSubjectsRenameCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				us := subject.UpdateSubject{Name: &args[1]}
				if err := us.Validate(r.deps.Validate); err != nil {
					return errors.New(core.ValidationMessage(err, r.deps.Translator))
				}
				sub, err := r.deps.SubjectSvc.Update(ctx, args[0], us)
				if err != nil {
					return err
				}
				return r.out.result(sub, "Subject renamed: %s.", sub.Name)
			})
		},
	}
}

func newSubjectsDeleteCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a subject and all of its marks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				n, err := r.deps.SubjectSvc.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				return r.out.result(map[string]int{"deletedMarks": n}, "Subject deleted along with %d mark(s).", n)
			})
		},
	}
}
