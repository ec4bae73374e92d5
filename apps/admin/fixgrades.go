package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/alama/storage/database/docstore"
)

func (cli *commandLine) fixGrades(ctx context.Context, dryRun bool) error {
	fixes, skipped, err := docstore.Repair(ctx, cli.deps.Store, dryRun)
	if err != nil {
		return err
	}
	for _, fix := range fixes {
		fmt.Fprintf(cli.out, "%s %s: %s\n", verb(dryRun, "fix"), fix.Path, strings.Join(fix.Fields, ", "))
	}
	for _, err := range skipped {
		fmt.Fprintf(cli.out, "skipped: %v\n", err)
	}
	done := "fixed"
	if dryRun {
		done = "to fix"
	}
	fmt.Fprintf(cli.out, "%d record(s) %s, %d invalid record(s) left alone.\n", len(fixes), done, len(skipped))
	return nil
}
