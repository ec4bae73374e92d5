package mark_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/storage/database/docstore"
	"github.com/trezcool/alama/tests"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*mark.Service, mark.Repository) {
	repo := docstore.NewMarkRepository(testutil.OpenMemDB(t), testutil.NopLogger{})
	return mark.NewService(repo), repo
}

func intPtr(i int) *int { return &i }

func TestService_Add(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	testutil.FreezeTime(t, t0)
	before := core.NowMillis()

	m, err := svc.Add(ctx, mark.NewMark{
		StudentID: "amal",
		SubjectID: "math",
		Grade:     5,
		Score:     intPtr(82),
		Comment:   "Good",
		TeacherID: "t1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	marks, err := svc.ListByStudent(ctx, "amal")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, m, marks[0])
	assert.Equal(t, 82, marks[0].Score)
	assert.Equal(t, "Good", marks[0].Comment.String)
	assert.True(t, marks[0].Timestamp >= before)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	orig := testutil.CreateMark(t, repo, "amal", "math", "t1", 5, 60, t0.Add(-time.Hour).UnixNano()/int64(time.Millisecond), "Try harder")
	testutil.FreezeTime(t, t0)

	t.Run("score only", func(t *testing.T) {
		m, err := svc.Update(ctx, orig.ID, mark.UpdateMark{Score: intPtr(90)})
		require.NoError(t, err)

		want := orig
		want.Score = 90
		want.Timestamp = core.NowMillis()
		assert.Equal(t, want, m)
	})

	t.Run("empty comment removes it", func(t *testing.T) {
		empty := ""
		m, err := svc.Update(ctx, orig.ID, mark.UpdateMark{Comment: &empty})
		require.NoError(t, err)
		assert.False(t, m.Comment.Valid)
		assert.Equal(t, 90, m.Score)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.Update(ctx, "nope", mark.UpdateMark{Score: intPtr(1)})
		assert.Equal(t, mark.ErrNotFound, err)
	})
}

func TestService_ListByStudent(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.CreateMark(t, repo, "amal", "math", "t1", 5, 60, 1000)
	testutil.CreateMark(t, repo, "amal", "art", "t1", 5, 70, 3000)
	testutil.CreateMark(t, repo, "amal", "ict", "t1", 5, 80, 2000)
	testutil.CreateMark(t, repo, "bo", "math", "t1", 5, 90, 4000)

	marks, err := svc.ListByStudent(ctx, "amal")
	require.NoError(t, err)
	require.Len(t, marks, 3)
	for i := 1; i < len(marks); i++ {
		assert.True(t, marks[i-1].Timestamp >= marks[i].Timestamp)
	}
	assert.Equal(t, []string{"art", "ict", "math"}, []string{marks[0].SubjectID, marks[1].SubjectID, marks[2].SubjectID})

	none, err := svc.ListByStudent(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Enter(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	testutil.FreezeTime(t, t0)

	nm := mark.NewMark{StudentID: "amal", SubjectID: "math", Grade: 5, Score: intPtr(40), TeacherID: "t1"}

	added, updated, err := svc.Enter(ctx, nm)
	require.NoError(t, err)
	assert.False(t, updated)

	nm.Score = intPtr(65)
	nm.Comment = "Better"
	m, updated, err := svc.Enter(ctx, nm)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, added.ID, m.ID)
	assert.Equal(t, 65, m.Score)
	assert.Equal(t, "Better", m.Comment.String)

	t.Run("duplicates: newest is updated", func(t *testing.T) {
		old := testutil.CreateMark(t, repo, "bo", "math", "t1", 5, 10, 1000)
		newest := testutil.CreateMark(t, repo, "bo", "math", "t1", 5, 20, 2000)

		m, updated, err := svc.Enter(ctx, mark.NewMark{StudentID: "bo", SubjectID: "math", Grade: 5, Score: intPtr(99), TeacherID: "t1"})
		require.NoError(t, err)
		assert.True(t, updated)
		assert.Equal(t, newest.ID, m.ID)

		got, err := svc.Get(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Score)
	})
}
