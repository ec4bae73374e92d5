package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/storage/database/docstore"
)

// checkpoint records how far a resumable step went. It is written in the same
// batch as the work it counts, so a crash never leaves it ahead of the data.
type checkpoint struct {
	step      string
	done      int
	completed bool
}

func checkpointPath(step string) string {
	return core.Path(core.MaintenanceCollection, step)
}

func loadCheckpoint(ctx context.Context, store core.DocumentStore, step string) (checkpoint, error) {
	cp := checkpoint{step: step}
	rec, err := store.Get(ctx, checkpointPath(step))
	if err != nil {
		if errors.Cause(err) == core.ErrNoRecord {
			return cp, nil
		}
		return cp, errors.Wrapf(err, "reading checkpoint %s", step)
	}
	if done, ok := rec["done"].(float64); ok {
		cp.done = int(done)
	}
	cp.completed, _ = rec["completed"].(bool)
	return cp, nil
}

// save adds the checkpoint to b.
func (cp checkpoint) save(b *docstore.Batch) {
	b.Set(checkpointPath(cp.step), core.Record{
		"done":      cp.done,
		"completed": cp.completed,
		"updatedAt": core.NowMillis(),
	})
}
