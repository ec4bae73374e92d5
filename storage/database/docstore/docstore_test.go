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

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMemDB(t)
	logger := &testutil.RecordLogger{}
	repo := NewUserRepository(store, logger)

	amani := testutil.CreateStudent(t, repo, "u1", "Amani", "amani@test.cd", 3)
	testutil.CreateTeacher(t, repo, "u2", "Mwalimu", "mwalimu@test.cd", "Math")
	testutil.Put(t, store, "users/u3", core.Record{"name": "Coerced", "role": "student", "grade": "3"})
	testutil.Put(t, store, "users/u4", core.Record{"name": "No Role", "grade": 3})

	t.Run("get", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, amani, usr)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetUser(ctx, "nobody")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("get invalid", func(t *testing.T) {
		_, err := repo.GetUser(ctx, "u4")
		assert.True(t, core.IsRecordError(err))
	})

	t.Run("coerced grade is flagged", func(t *testing.T) {
		logger.Entries = nil
		usr, err := repo.GetUser(ctx, "u3")
		require.NoError(t, err)
		assert.Equal(t, null.IntFrom(3), usr.Grade)
		assert.Equal(t, 1, logger.Count("warn"))
	})

	t.Run("query by grade skips invalid records", func(t *testing.T) {
		logger.Entries = nil
		users, err := repo.QueryUsersByGrade(ctx, 3)
		require.NoError(t, err)
		// "3" is not 3 for the store
		require.Len(t, users, 1)
		assert.Equal(t, "u1", users[0].UID)
		assert.Equal(t, 1, logger.Count("error"))
	})

	t.Run("query all", func(t *testing.T) {
		users, err := repo.QueryAllUsers(ctx)
		require.NoError(t, err)
		uids := make([]string, 0, len(users))
		for _, u := range users {
			uids = append(uids, u.UID)
		}
		assert.Equal(t, []string{"u1", "u2", "u3"}, uids)
		assert.Equal(t, []string{"Math"}, users[1].Subjects)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUser(ctx, "u2"))
		_, err := repo.GetUser(ctx, "u2")
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestMarkRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMemDB(t)
	repo := NewMarkRepository(store, testutil.NopLogger{})

	m1 := testutil.CreateMark(t, repo, "s1", "math", "t1", 3, 80, 1000, "Good work")
	m2 := testutil.CreateMark(t, repo, "s1", "art", "t1", 3, 45, 2000)
	testutil.CreateMark(t, repo, "s2", "math", "t1", 3, 60, 3000)
	testutil.Put(t, store, "marks/broken", core.Record{"studentId": "s1", "subjectId": "math"})

	t.Run("get", func(t *testing.T) {
		m, err := repo.GetMark(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, m1, m)
		assert.Equal(t, "Good work", m.Comment.String)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetMark(ctx, "nope")
		assert.Equal(t, mark.ErrNotFound, err)
	})

	t.Run("query by student", func(t *testing.T) {
		marks, err := repo.QueryMarksByStudent(ctx, "s1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []mark.Mark{m1, m2}, marks)
	})

	t.Run("update", func(t *testing.T) {
		score := 90
		empty := ""
		require.NoError(t, repo.UpdateMark(ctx, m1.ID, mark.UpdateMark{Score: &score, Comment: &empty}, 5000))

		m, err := repo.GetMark(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, 90, m.Score)
		assert.False(t, m.Comment.Valid)
		assert.Equal(t, int64(5000), m.Timestamp)

		rec, err := store.Get(ctx, "marks/"+m1.ID)
		require.NoError(t, err)
		assert.NotContains(t, rec, "comment")
	})

	t.Run("query all", func(t *testing.T) {
		marks, err := repo.QueryAllMarks(ctx)
		require.NoError(t, err)
		assert.Len(t, marks, 3)
	})
}

func TestSubjectRepository(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMemDB(t)
	repo := NewSubjectRepository(store, testutil.NopLogger{})
	marks := NewMarkRepository(store, testutil.NopLogger{})

	math := testutil.CreateSubject(t, repo, "Math", 3)
	art := testutil.CreateSubject(t, repo, "Art", 3)
	testutil.CreateMark(t, marks, "s1", math.ID, "t1", 3, 80, 1000)
	testutil.CreateMark(t, marks, "s2", math.ID, "t1", 3, 70, 1000)
	artMark := testutil.CreateMark(t, marks, "s1", art.ID, "t1", 3, 50, 1000)

	t.Run("update", func(t *testing.T) {
		name := "Mathematics"
		require.NoError(t, repo.UpdateSubject(ctx, math.ID, subject.UpdateSubject{Name: &name}))
		sub, err := repo.GetSubject(ctx, math.ID)
		require.NoError(t, err)
		assert.Equal(t, subject.Subject{ID: math.ID, Name: "Mathematics", Grade: 3}, sub)
	})

	t.Run("delete cascades to marks", func(t *testing.T) {
		n, err := repo.DeleteSubject(ctx, math.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.GetSubject(ctx, math.ID)
		assert.Equal(t, subject.ErrNotFound, err)

		all, err := marks.QueryAllMarks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []mark.Mark{artMark}, all)

		subjects, err := repo.QueryAllSubjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []subject.Subject{art}, subjects)
	})
}

func TestRepair(t *testing.T) {
	ctx := context.Background()
	store := testutil.OpenMemDB(t)
	testutil.Put(t, store, "users/u1", core.Record{"name": "A", "role": "student", "grade": "3"})
	testutil.Put(t, store, "users/u2", core.Record{"name": "B", "role": "student", "grade": 4})
	testutil.Put(t, store, "marks/m1", core.Record{"studentId": "u1", "subjectId": "s", "score": "75", "grade": "3"})
	testutil.Put(t, store, "marks/m2", core.Record{"studentId": "u1"})

	t.Run("dry run", func(t *testing.T) {
		fixes, skipped, err := Repair(ctx, store, true)
		require.NoError(t, err)
		assert.Equal(t, []Fix{
			{Path: "users/u1", Fields: []string{"grade"}},
			{Path: "marks/m1", Fields: []string{"grade", "score"}},
		}, fixes)
		assert.Len(t, skipped, 1)

		rec, err := store.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "3", rec["grade"])
	})

	t.Run("write", func(t *testing.T) {
		_, _, err := Repair(ctx, store, false)
		require.NoError(t, err)

		rec, err := store.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, float64(3), rec["grade"])
		rec, err = store.Get(ctx, "marks/m1")
		require.NoError(t, err)
		assert.Equal(t, float64(75), rec["score"])
		assert.Equal(t, float64(3), rec["grade"])

		fixes, _, err := Repair(ctx, store, true)
		require.NoError(t, err)
		assert.Empty(t, fixes)
	})

	t.Run("list error", func(t *testing.T) {
		_, _, err := Repair(ctx, failingStore{store}, true)
		assert.Error(t, err)
	})
}

type failingStore struct {
	core.DocumentStore
}

func (failingStore) List(context.Context, string) (map[string]core.Record, error) {
	return nil, errors.New("boom")
}
