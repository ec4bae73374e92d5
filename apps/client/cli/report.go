package cli

import (
	"context"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/user"
)

type reportOptions struct {
	grade int
	dir   string
	mail  []string
}

func newReportCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the academic report of a grade",
		Long: `Generate the academic report of a grade as an HTML file.

With --mail, the report is sent as an attachment instead of being saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkGrade(env.Conf, opts.grade); err != nil {
				return err
			}
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				if len(opts.mail) > 0 {
					return mailReport(ctx, r, opts)
				}
				return saveReport(ctx, r, opts)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.grade, "grade", "g", 0, "grade")
	cmd.Flags().StringVarP(&opts.dir, "out", "o", ".", "directory the report is saved to")
	cmd.Flags().StringSliceVar(&opts.mail, "mail", nil, "email the report to these addresses")
	_ = cmd.MarkFlagRequired("grade")

	return cmd
}

func saveReport(ctx context.Context, r *run, opts *reportOptions) error {
	rep, err := r.deps.Reports.Build(ctx, opts.grade)
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	path := filepath.Join(opts.dir, rep.Filename)
	if err = os.WriteFile(path, []byte(rep.HTML), 0o644); err != nil {
		return errors.Wrap(err, "saving report")
	}
	return r.out.result(map[string]string{"path": path}, "Report saved to %s", path)
}

func mailReport(ctx context.Context, r *run, opts *reportOptions) error {
	if r.deps.MailSvc == nil {
		return errors.New("email is not configured")
	}
	to := make([]mail.Address, 0, len(opts.mail))
	for _, raw := range opts.mail {
		addr, err := mail.ParseAddress(core.CleanString(raw))
		if err != nil {
			return errors.Wrapf(err, "invalid recipient %q", raw)
		}
		to = append(to, *addr)
	}

	rep, err := report.NewMailer(r.deps.Reports, r.deps.MailSvc).Send(ctx, opts.grade, to...)
	if err != nil {
		return errors.Wrap(err, "mailing report")
	}
	return r.out.result(
		map[string]interface{}{"filename": rep.Filename, "recipients": len(to)},
		"Report %s sent to %d recipient(s).", rep.Filename, len(to),
	)
}

func newStatsCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleTeacher, func(ctx context.Context, r *run) error {
				st, err := r.deps.Stats.Load(ctx)
				if err != nil {
					return errors.Wrap(err, "loading stats")
				}
				if r.out.isJSON() {
					return r.out.json(st)
				}
				rows := [][]string{
					{"Users", strconv.Itoa(st.TotalUsers)},
					{"Marks", strconv.Itoa(st.TotalMarks)},
					{"Subjects", strconv.Itoa(st.TotalSubjects)},
					{"Average score", strconv.Itoa(st.AverageScore)},
				}
				for _, m := range st.LatestUpdates {
					rows = append(rows, []string{"Updated " + formatMillis(m.Timestamp), m.StudentID + " / " + m.SubjectID + ": " + strconv.Itoa(m.Score)})
				}
				return r.out.table(st, []string{"STAT", "VALUE"}, rows)
			})
		},
	}
}
