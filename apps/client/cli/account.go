package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
)

var errPasswordMismatch = errors.New("passwords do not match")

type signupOptions struct {
	name     string
	role     string
	grade    int
	subjects []string
}

func newSignupCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	opts := &signupOptions{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account and its profile.

Students pick their grade; teachers may list the subjects they teach.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(env, rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "full name")
	cmd.Flags().StringVar(&opts.role, "role", user.RoleStudent, "student|teacher")
	cmd.Flags().IntVar(&opts.grade, "grade", 0, "grade (students)")
	cmd.Flags().StringSliceVar(&opts.subjects, "subjects", nil, "subjects taught (teachers)")

	return cmd
}

func runSignup(env *Env, rootOpts *RootOptions, opts *signupOptions, cmd *cobra.Command) error {
	if rootOpts.Email == "" {
		return errEmailRequired
	}
	password, err := env.ReadPassword("Password: ")
	if err != nil {
		return errors.Wrap(err, "reading password")
	}
	confirm, err := env.ReadPassword("Confirm password: ")
	if err != nil {
		return errors.Wrap(err, "reading password")
	}
	if password != confirm {
		return errPasswordMismatch
	}

	nu := user.NewUser{
		Name:     opts.name,
		Email:    rootOpts.Email,
		Password: password,
		Role:     opts.role,
		Subjects: opts.subjects,
	}
	if opts.grade != 0 {
		nu.Grade = null.IntFrom(opts.grade)
	}

	return env.withDeps(cmd, func(ctx context.Context, deps *shared.Deps) error {
		if err := nu.Validate(deps.Validate); err != nil {
			return fmt.Errorf("%s: %s", session.MsgSignupFailed, core.ValidationMessage(err, deps.Translator))
		}

		store := session.NewStore(ctx, deps.Auth, deps.UserSvc, env.Logger)
		store.Start()
		defer store.Close()

		usr, err := store.Signup(ctx, nu)
		if err != nil {
			if msg := core.ValidationMessage(err, deps.Translator); msg != "" {
				return fmt.Errorf("%s: %s", session.MsgSignupFailed, msg)
			}
			env.Logger.Error("signing up", err)
			return errors.New(session.MsgSignupFailed)
		}
		defer func() { _ = store.Logout(ctx) }()

		out := newPrinter(rootOpts.Format, cmd.OutOrStdout())
		return out.result(usr, "%s Welcome, %s.", session.MsgSignupSucceeded, usr.Name)
	})
}

func newWhoamiCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, "", func(ctx context.Context, r *run) error {
				usr := r.user
				if r.out.isJSON() {
					return r.out.json(usr)
				}
				rows := [][]string{
					{"Name", usr.Name},
					{"Email", usr.Email},
					{"Role", usr.Role},
				}
				if usr.IsStudent() && usr.Grade.Valid {
					rows = append(rows, []string{"Grade", strconv.Itoa(usr.Grade.Int)})
				}
				if len(usr.Subjects) > 0 {
					rows = append(rows, []string{"Subjects", fmt.Sprint(usr.Subjects)})
				}
				return r.out.table(usr, []string{"FIELD", "VALUE"}, rows)
			})
		},
	}
}

func newMarksCommand(env *Env, rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "marks",
		Short: "List your marks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withSession(cmd, rootOpts, user.RoleStudent, func(ctx context.Context, r *run) error {
				entries, err := r.deps.Reports.Dashboard(ctx, r.user.UID)
				if err != nil {
					return errors.Wrap(err, "loading marks")
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					comment := e.Comment
					if comment == "" {
						comment = "-"
					}
					rows = append(rows, []string{
						e.Subject, strconv.Itoa(e.Score), e.Category, comment, formatMillis(e.Timestamp),
					})
				}
				return r.out.table(entries, []string{"SUBJECT", "SCORE", "CATEGORY", "COMMENT", "DATE"}, rows)
			})
		},
	}
}

func formatMillis(ms int64) string {
	return time.Unix(0, ms*int64(time.Millisecond)).Format("2006-01-02")
}
