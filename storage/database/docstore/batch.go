package docstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

// Batch collects writes applied in one multi-path update.
type Batch struct {
	updates map[string]interface{}
}

func NewBatch() *Batch {
	return &Batch{updates: make(map[string]interface{})}
}

func (b *Batch) SaveUser(usr user.User) {
	b.updates[userPath(usr.UID)] = encodeUser(usr)
}

func (b *Batch) DeleteUser(uid string) {
	b.updates[userPath(uid)] = nil
}

// SetMark writes m under m.ID.
func (b *Batch) SetMark(m mark.Mark) {
	b.updates[markPath(m.ID)] = encodeMark(m)
}

// SetMarkField rewrites one field of the mark at id.
func (b *Batch) SetMarkField(id, field string, value interface{}) {
	b.updates[core.Path(markPath(id), field)] = value
}

// SetSubject writes sub under sub.ID.
func (b *Batch) SetSubject(sub subject.Subject) {
	b.updates[subjectPath(sub.ID)] = encodeSubject(sub)
}

func (b *Batch) Set(path string, rec core.Record) {
	b.updates[path] = rec
}

func (b *Batch) Delete(path string) {
	b.updates[path] = nil
}

// Len is the number of pending writes.
func (b *Batch) Len() int {
	return len(b.updates)
}

// Commit applies every pending write atomically and empties the batch.
func (b *Batch) Commit(ctx context.Context, store core.DocumentStore) error {
	if len(b.updates) == 0 {
		return nil
	}
	if err := store.UpdatePaths(ctx, b.updates); err != nil {
		return errors.Wrap(err, "committing batch")
	}
	b.updates = make(map[string]interface{})
	return nil
}
