package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

type fakeSource struct {
	students    []user.Student
	subjects    []subject.Subject
	marks       map[string][]mark.Mark
	studentsErr error
	marksErr    error
}

func (f fakeSource) StudentsByGrade(_ context.Context, grade int) ([]user.Student, error) {
	return f.students, f.studentsErr
}

func (f fakeSource) List(_ context.Context, grade int) ([]subject.Subject, error) {
	subs := make([]subject.Subject, len(f.subjects))
	for i, s := range f.subjects {
		s.Grade = grade
		subs[i] = s
	}
	return subs, nil
}

func (f fakeSource) ListByStudent(_ context.Context, studentID string) ([]mark.Mark, error) {
	if f.marksErr != nil {
		return nil, f.marksErr
	}
	return f.marks[studentID], nil
}

func TestBuilder_Build(t *testing.T) {
	core.NowFunc = func() time.Time { return generatedAt }
	defer func() { core.NowFunc = time.Now }()

	src := fakeSource{
		students: []user.Student{{ID: "s1", Name: "Amal", Grade: 5}, {ID: "s2", Name: "Nimal", Grade: 5}},
		subjects: []subject.Subject{{ID: "math", Name: "Math"}},
		marks: map[string][]mark.Mark{
			"s1": {{ID: "m1", StudentID: "s1", SubjectID: "math", Score: 82, Timestamp: millis(4)}},
			"s2": {{ID: "m2", StudentID: "s2", SubjectID: "math", Score: 40, Timestamp: millis(3)}},
		},
	}
	b := NewBuilder(src, src, src)

	d, err := b.Data(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, d.Students, 2)
	assert.Equal(t, 5, d.Subjects[0].Grade)
	if assert.Len(t, d.Marks, 2) {
		assert.Equal(t, "m1", d.Marks[0].ID)
		assert.Equal(t, "m2", d.Marks[1].ID)
	}

	rep, err := b.Build(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "academic-report-grade-5-2024-03-05.html", rep.Filename)
	assert.Contains(t, rep.HTML, `<td class="score-high">82</td>`)
	assert.Contains(t, rep.HTML, `<td class="score-low">40</td>`)
}

func TestBuilder_Build_fetchErrors(t *testing.T) {
	errBoom := errors.New("boom")

	src := fakeSource{studentsErr: errBoom}
	_, err := NewBuilder(src, src, src).Build(context.Background(), 5)
	assert.True(t, errors.Is(err, errBoom), "got %v", err)

	src = fakeSource{students: []user.Student{{ID: "s1", Name: "Amal"}}, marksErr: errBoom}
	_, err = NewBuilder(src, src, src).Build(context.Background(), 5)
	assert.True(t, errors.Is(err, errBoom), "got %v", err)
}

func TestNewEmailMessage(t *testing.T) {
	msg, err := NewEmailMessage(Report{Filename: "r.html", HTML: "<p>hi</p>"}, 4)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "r.html", msg.Attachments[0].Filename)
	assert.Equal(t, "text/html", msg.Attachments[0].ContentType)
	assert.Equal(t, "PHA+aGk8L3A+", msg.Attachments[0].Content.String())
	assert.Equal(t, "Academic Report - Grade 4", msg.Subject)
}
