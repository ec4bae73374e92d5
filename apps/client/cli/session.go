package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
)

var errEmailRequired = errors.New("an email is required: use --email or $ALAMA_EMAIL")

// run holds what a command needs once signed in.
type run struct {
	deps *shared.Deps
	user user.User
	out  *printer
}

// withDeps sets up the services for the duration of fn.
func (env *Env) withDeps(cmd *cobra.Command, fn func(ctx context.Context, deps *shared.Deps) error) error {
	ctx := cmd.Context()
	deps, err := env.Open(ctx)
	if err != nil {
		return errors.Wrap(err, "setting up")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			env.Logger.Error("closing database", err)
		}
	}()
	return fn(ctx, deps)
}

// withSession signs in with the --email account, checks it holds role (any role when empty), then calls fn.
func (env *Env) withSession(cmd *cobra.Command, opts *RootOptions, role string, fn func(ctx context.Context, r *run) error) error {
	if opts.Email == "" {
		return errEmailRequired
	}
	return env.withDeps(cmd, func(ctx context.Context, deps *shared.Deps) error {
		store := session.NewStore(ctx, deps.Auth, deps.UserSvc, env.Logger)
		store.Start()
		defer store.Close()
		if _, err := store.Wait(ctx); err != nil {
			return err
		}

		password, err := env.ReadPassword("Password: ")
		if err != nil {
			return errors.Wrap(err, "reading password")
		}
		if err = store.Login(ctx, opts.Email, password); err != nil {
			if errors.Cause(err) != session.ErrInvalidCredential {
				env.Logger.Error("logging in", err)
			}
			return errors.New(session.LoginMessage(err))
		}
		defer func() { _ = store.Logout(ctx) }()

		snap := store.Current()
		if snap.State != session.Authenticated {
			if errors.Cause(snap.Err) == user.ErrNotFound {
				return errors.New(session.MsgProfileNotFound)
			}
			return errors.New(session.MsgAuthError)
		}
		if role != "" && !store.Allow(role) {
			return fmt.Errorf("permission denied: %s only", role)
		}

		return fn(ctx, &run{
			deps: deps,
			user: snap.User,
			out:  newPrinter(opts.Format, cmd.OutOrStdout()),
		})
	})
}
