package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/docstore"
)

const recreateStep = "recreateaccounts"

// recreateAccounts gives an account to every profile whose email has none, then moves the
// profile and the marks referencing it to the account's uid. A profile whose email already
// belongs to another uid is moved the same way, so an interrupted run completes on the next one.
func (cli *commandLine) recreateAccounts(ctx context.Context, pwd string, dryRun bool) error {
	users, err := cli.deps.UserSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "listing users")
	}
	marks, err := cli.deps.MarkSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "listing marks")
	}
	cp, err := loadCheckpoint(ctx, cli.deps.Store, recreateStep)
	if err != nil {
		return err
	}
	// done counts the profiles moved by the current run
	if cp.completed {
		cp = checkpoint{step: recreateStep}
	} else if cp.done > 0 {
		fmt.Fprintf(cli.out, "resuming an interrupted run: %d profile(s) already moved.\n", cp.done)
	}

	var moved int
	for _, usr := range users {
		if usr.Email == "" {
			fmt.Fprintf(cli.out, "skip %s: no email\n", usr.UID)
			continue
		}

		id, err := cli.deps.Auth.LookupEmail(ctx, usr.Email)
		switch {
		case err == nil && id.UID == usr.UID:
			continue
		case err == nil:
			fmt.Fprintf(cli.out, "%s %s to account %s\n", verb(dryRun, "relink"), usr.Email, id.UID)
		case errors.Cause(err) == session.ErrNoAccount:
			fmt.Fprintf(cli.out, "%s account for %s\n", verb(dryRun, "create"), usr.Email)
			if dryRun {
				continue
			}
			if id, err = cli.deps.Auth.CreateAccount(ctx, usr.Email, pwd); err != nil {
				return errors.Wrapf(err, "creating account for %s", usr.Email)
			}
		default:
			return errors.Wrapf(err, "looking up %s", usr.Email)
		}
		if dryRun {
			continue
		}

		b := docstore.NewBatch()
		moveProfile(b, usr, id.UID, marks)
		cp.done++
		cp.save(b)
		if err := b.Commit(ctx, cli.deps.Store); err != nil {
			return errors.Wrapf(err, "moving %s", usr.UID)
		}
		moved++
	}

	if dryRun {
		return nil
	}
	cp.completed = true
	b := docstore.NewBatch()
	cp.save(b)
	if err := b.Commit(ctx, cli.deps.Store); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d profile(s) moved to a new account.\n", moved)
	return nil
}

// moveProfile adds to b the writes moving usr to uid.
func moveProfile(b *docstore.Batch, usr user.User, uid string, marks []mark.Mark) {
	oldUID := usr.UID
	usr.UID = uid
	b.DeleteUser(oldUID)
	b.SaveUser(usr)
	for _, m := range marks {
		if m.StudentID == oldUID {
			b.SetMarkField(m.ID, "studentId", uid)
		}
		if m.TeacherID == oldUID {
			b.SetMarkField(m.ID, "teacherId", uid)
		}
	}
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd string) error {
	id, err := cli.deps.Auth.LookupEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := cli.deps.Auth.SetPassword(ctx, id.UID, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password updated for %s.\n", id.Email)
	return nil
}

func (cli *commandLine) printStats(ctx context.Context) error {
	st, err := cli.deps.Stats.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "loading stats")
	}
	fmt.Fprintf(cli.out, "Users:         %d\n", st.TotalUsers)
	fmt.Fprintf(cli.out, "Marks:         %d\n", st.TotalMarks)
	fmt.Fprintf(cli.out, "Subjects:      %d\n", st.TotalSubjects)
	fmt.Fprintf(cli.out, "Average score: %d\n", st.AverageScore)
	for _, m := range st.LatestUpdates {
		fmt.Fprintf(cli.out, "  %s  %s / %s: %d\n", m.Time().Format("2006-01-02 15:04"), m.StudentID, m.SubjectID, m.Score)
	}
	return nil
}
