package docstore

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/tests"
)

func TestBatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMemDB(t)
	users := NewUserRepository(store, nil)
	marks := NewMarkRepository(store, nil)

	testutil.CreateStudent(t, users, "old", "Amani", "amani@test.cd", 3)
	m := testutil.CreateMark(t, marks, "old", "sub1", "t1", 3, 60, 1000)

	b := NewBatch()
	b.SaveUser(user.User{UID: "new", Name: "Amani", Email: "amani@test.cd", Role: user.RoleStudent, Grade: null.IntFrom(3)})
	b.DeleteUser("old")
	b.SetMarkField(m.ID, "studentId", "new")
	b.SetSubject(subject.Subject{ID: "sub1", Name: "Math", Grade: 3})
	b.SetMark(mark.Mark{ID: "m2", StudentID: "new", SubjectID: "sub1", Grade: 3, Score: 80, Timestamp: 2000})
	b.Set(core.Path(core.MaintenanceCollection, "step"), core.Record{"done": 1})
	assert.Equal(t, 6, b.Len())

	require.NoError(t, b.Commit(ctx, store))
	assert.Equal(t, 0, b.Len())

	_, err := users.GetUser(ctx, "old")
	assert.Equal(t, user.ErrNotFound, err)
	usr, err := users.GetUser(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "Amani", usr.Name)

	got, err := marks.QueryMarksByStudent(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	rec, err := store.Get(ctx, "subjects/sub1")
	require.NoError(t, err)
	assert.Equal(t, "Math", rec["name"])

	t.Run("empty commit", func(t *testing.T) {
		assert.NoError(t, NewBatch().Commit(ctx, failingWrites{store}))
	})

	t.Run("failed commit keeps writes", func(t *testing.T) {
		b := NewBatch()
		b.Delete("users/new")
		assert.Error(t, b.Commit(ctx, failingWrites{store}))
		assert.Equal(t, 1, b.Len())
	})
}

type failingWrites struct {
	core.DocumentStore
}

func (failingWrites) UpdatePaths(context.Context, map[string]interface{}) error {
	return errors.New("boom")
}
