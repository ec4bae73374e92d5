package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/storage/database/docstore"
)

// initSubjects adds the default subjects, unless some subject is already stored.
func (cli *commandLine) initSubjects(ctx context.Context, grade int, dryRun bool) error {
	subjects, err := cli.deps.SubjectSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if len(subjects) > 0 {
		fmt.Fprintf(cli.out, "%d subject(s) already stored, nothing to do.\n", len(subjects))
		return nil
	}

	b := docstore.NewBatch()
	for _, name := range cli.deps.Conf.School.DefaultSubjects {
		sub := subject.Subject{ID: core.NewPushKey(), Name: name, Grade: grade}
		b.SetSubject(sub)
		fmt.Fprintf(cli.out, "%s %s (grade %d)\n", verb(dryRun, "add"), sub.Name, sub.Grade)
	}
	if dryRun {
		return nil
	}
	if err := b.Commit(ctx, cli.deps.Store); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d subject(s) added.\n", len(cli.deps.Conf.School.DefaultSubjects))
	return nil
}

// verb prefixes an action with "would" on dry runs.
func verb(dryRun bool, action string) string {
	if dryRun {
		return "would " + action
	}
	return action
}
