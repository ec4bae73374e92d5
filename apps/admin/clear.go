package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/storage/database/docstore"
)

// clearTargets maps the -collection values to the collections they empty.
// Accounts are never deleted: profiles can be restored with recreateaccounts.
var clearTargets = map[string][]string{
	"marks":    {core.MarksCollection},
	"subjects": {core.SubjectsCollection},
	"users":    {core.UsersCollection},
	"all":      {core.UsersCollection, core.MarksCollection, core.SubjectsCollection, core.MaintenanceCollection},
}

// clear deletes every record of colls in one write.
func (cli *commandLine) clear(ctx context.Context, colls []string, dryRun bool) error {
	b := docstore.NewBatch()
	for _, coll := range colls {
		recs, err := cli.deps.Store.List(ctx, coll)
		if err != nil {
			return errors.Wrapf(err, "listing %s", coll)
		}
		for key := range recs {
			b.Delete(core.Path(coll, key))
		}
		fmt.Fprintf(cli.out, "%s %d record(s) of %s\n", verb(dryRun, "delete"), len(recs), coll)
	}
	if dryRun {
		return nil
	}
	return b.Commit(ctx, cli.deps.Store)
}
