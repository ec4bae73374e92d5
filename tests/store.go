package testutil

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
)

// RunStoreSuite checks that a core.DocumentStore behaves the way the repositories expect.
func RunStoreSuite(t *testing.T, open func(t *testing.T) core.DocumentStore) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		store := open(t)
		_, err := store.Get(ctx, "users/nobody")
		assert.Equal(t, core.ErrNoRecord, errors.Cause(err))
	})

	t.Run("invalid paths", func(t *testing.T) {
		store := open(t)
		_, err := store.Get(ctx, "users")
		assert.Equal(t, core.ErrInvalidPath, errors.Cause(err))
		_, err = store.Get(ctx, "users/a/name")
		assert.Equal(t, core.ErrInvalidPath, errors.Cause(err))
		err = store.UpdatePaths(ctx, map[string]interface{}{"users//x": 1})
		assert.Equal(t, core.ErrInvalidPath, errors.Cause(err))
	})

	t.Run("set then get normalizes values", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Set(ctx, "users/u1", core.Record{"name": "Amani", "grade": 3}))

		rec, err := store.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, core.Record{"name": "Amani", "grade": float64(3)}, rec)
	})

	t.Run("update merges and nil removes", func(t *testing.T) {
		store := open(t)
		Put(t, store, "marks/m1", core.Record{"score": 50, "comment": "ok"})
		require.NoError(t, store.Update(ctx, "marks/m1", core.Record{"score": 70, "comment": nil, "timestamp": 5}))

		rec, err := store.Get(ctx, "marks/m1")
		require.NoError(t, err)
		assert.Equal(t, core.Record{"score": float64(70), "timestamp": float64(5)}, rec)
	})

	t.Run("push returns distinct keys", func(t *testing.T) {
		store := open(t)
		k1, err := store.Push(ctx, "subjects", core.Record{"name": "Math"})
		require.NoError(t, err)
		k2, err := store.Push(ctx, "subjects", core.Record{"name": "Art"})
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)

		recs, err := store.List(ctx, "subjects")
		require.NoError(t, err)
		assert.Len(t, recs, 2)
		assert.Equal(t, "Math", recs[k1]["name"])
	})

	t.Run("query equal is type strict", func(t *testing.T) {
		store := open(t)
		Put(t, store, "users/a", core.Record{"name": "A", "grade": 3})
		Put(t, store, "users/b", core.Record{"name": "B", "grade": "3"})
		Put(t, store, "users/c", core.Record{"name": "C", "grade": 4})
		Put(t, store, "users/d", core.Record{"name": "D"})

		recs, err := store.QueryEqual(ctx, "users", "grade", 3)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Contains(t, recs, "a")
	})

	t.Run("list of empty collection", func(t *testing.T) {
		store := open(t)
		recs, err := store.List(ctx, "marks")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("delete", func(t *testing.T) {
		store := open(t)
		Put(t, store, "users/a", core.Record{"name": "A"})
		require.NoError(t, store.Delete(ctx, "users/a"))
		require.NoError(t, store.Delete(ctx, "users/a"))
		_, err := store.Get(ctx, "users/a")
		assert.Equal(t, core.ErrNoRecord, errors.Cause(err))
	})

	t.Run("update paths applies every write", func(t *testing.T) {
		store := open(t)
		Put(t, store, "subjects/s1", core.Record{"name": "Math"})
		Put(t, store, "marks/m1", core.Record{"subjectId": "s1"})
		Put(t, store, "marks/m2", core.Record{"subjectId": "s2"})

		err := store.UpdatePaths(ctx, map[string]interface{}{
			"subjects/s1":    nil,
			"marks/m1":       nil,
			"marks/m2/score": 10,
			"users/u1":       core.Record{"name": "New"},
		})
		require.NoError(t, err)

		subjects, err := store.List(ctx, "subjects")
		require.NoError(t, err)
		assert.Empty(t, subjects)
		marks, err := store.List(ctx, "marks")
		require.NoError(t, err)
		assert.Equal(t, map[string]core.Record{"m2": {"subjectId": "s2", "score": float64(10)}}, marks)
		_, err = store.Get(ctx, "users/u1")
		assert.NoError(t, err)
	})

	t.Run("update paths rejects everything on a bad path", func(t *testing.T) {
		store := open(t)
		Put(t, store, "subjects/s1", core.Record{"name": "Math"})

		err := store.UpdatePaths(ctx, map[string]interface{}{
			"subjects/s1": nil,
			"bad":         nil,
		})
		assert.Error(t, err)
		_, err = store.Get(ctx, "subjects/s1")
		assert.NoError(t, err)
	})

	t.Run("records returned are copies", func(t *testing.T) {
		store := open(t)
		Put(t, store, "users/a", core.Record{"name": "A"})
		rec, err := store.Get(ctx, "users/a")
		require.NoError(t, err)
		rec["name"] = "changed"

		rec, err = store.Get(ctx, "users/a")
		require.NoError(t, err)
		assert.Equal(t, "A", rec["name"])
	})
}
