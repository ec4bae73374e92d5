package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/tests"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func Test_schoolApi_listStudents(t *testing.T) {
	e := setup(t)
	amal := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	testutil.CreateStudent(t, e.users, "s2", "Nimal", "nimal@school.lk", 6)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")

	// a teacher carrying a numeric grade is not a student
	testutil.Put(t, e.deps.Store, core.Path(core.UsersCollection, "t2"), core.Record{
		"email": "sunil@school.lk", "role": user.RoleTeacher, "name": "Sunil", "grade": 5,
	})

	token := getToken(t, e.conf, teacher)
	gradeErr := marshallObj(t, map[string]string{"grade": "grade must be between 1 and 13"})

	e.run(t, []httpTest{
		{name: "auth required", path: "/v1/students?grade=5", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "teachers only", path: "/v1/students?grade=5", token: getToken(t, e.conf, amal),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "missing grade", path: "/v1/students", token: token, wantCode: http.StatusBadRequest, wantData: gradeErr},
		{name: "grade out of range", path: "/v1/students?grade=14", token: token, wantCode: http.StatusBadRequest, wantData: gradeErr},
		{name: "grade 5", path: "/v1/students?grade=5", token: token, wantData: marshallObj(t, []user.Student{amal.Student()})},
		{name: "empty grade", path: "/v1/students?grade=7", token: token, wantData: []byte(`[]`)},
	})
}

func Test_schoolApi_enterMark(t *testing.T) {
	e := setup(t)
	amal := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")
	math := testutil.CreateSubject(t, e.subjects, "Mathematics", 5)
	token := getToken(t, e.conf, teacher)

	enter := func(body interface{}) (int, mark.Mark) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, marshallObj(t, body))
		e.app.ServeHTTP(rec, req)
		var m mark.Mark
		if rec.Code < 300 {
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
		}
		return rec.Code, m
	}

	before := core.NowMillis()
	code, added := enter(mark.NewMark{StudentID: amal.UID, SubjectID: math.ID, Score: intPtr(70), Comment: "Keep going"})
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, 5, added.Grade, "grade defaults to the student's")
	assert.Equal(t, teacher.UID, added.TeacherID)
	assert.GreaterOrEqual(t, added.Timestamp, before)

	code, updated := enter(mark.NewMark{StudentID: amal.UID, SubjectID: math.ID, Score: intPtr(85)})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, 85, updated.Score)
	assert.False(t, updated.Comment.Valid)

	marks, err := e.deps.MarkSvc.ListByStudent(context.Background(), amal.UID)
	require.NoError(t, err)
	assert.Len(t, marks, 1)

	t.Run("score out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token,
			marshallObj(t, mark.NewMark{StudentID: amal.UID, SubjectID: math.ID, Score: intPtr(101)}))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Score must be between 0 and 100", fieldErrors(t, rec)["score"])
	})

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, []byte(`{}`))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		msgs := fieldErrors(t, rec)
		assert.Contains(t, msgs, "studentId")
		assert.Contains(t, msgs, "subjectId")
		assert.Contains(t, msgs, "score")
	})

	e.run(t, []httpTest{
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/marks", token: token,
			body:     marshallObj(t, mark.NewMark{StudentID: "nobody", SubjectID: math.ID, Score: intPtr(50)}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "invalid score is checked before the student", method: http.MethodPost, path: "/v1/marks", token: token,
			body:     marshallObj(t, mark.NewMark{StudentID: "ghost", SubjectID: math.ID, Score: intPtr(150)}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"score": "Score must be between 0 and 100"}),
		},
		{
			name: "unknown subject", method: http.MethodPost, path: "/v1/marks", token: token,
			body:     marshallObj(t, mark.NewMark{StudentID: amal.UID, SubjectID: "no-such-subject", Score: intPtr(50)}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: subject.ErrNotFound.Error()}),
		},
		{
			name: "marks go to students", method: http.MethodPost, path: "/v1/marks", token: token,
			body:     marshallObj(t, mark.NewMark{StudentID: teacher.UID, SubjectID: math.ID, Score: intPtr(50)}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "teachers only", method: http.MethodPost, path: "/v1/marks", token: getToken(t, e.conf, amal),
			body:     marshallObj(t, mark.NewMark{StudentID: amal.UID, SubjectID: math.ID, Score: intPtr(100)}),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	})
}

func Test_schoolApi_updateMark(t *testing.T) {
	e := setup(t)
	amal := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")
	m := testutil.CreateMark(t, e.marks, amal.UID, "math", teacher.UID, 5, 40, 1000, "Needs work")
	token := getToken(t, e.conf, teacher)

	req, rec := newAuthRequest(http.MethodPatch, "/v1/marks/"+m.ID, token, marshallObj(t, mark.UpdateMark{Score: intPtr(90)}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got mark.Mark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 90, got.Score)
	assert.Equal(t, "Needs work", got.Comment.String)
	assert.Equal(t, amal.UID, got.StudentID)
	assert.Greater(t, got.Timestamp, m.Timestamp)

	e.run(t, []httpTest{
		{
			name: "nothing to update", method: http.MethodPatch, path: "/v1/marks/" + m.ID, token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "nothing to update"}),
		},
		{
			name: "unknown mark", method: http.MethodPatch, path: "/v1/marks/nope", token: token,
			body:     marshallObj(t, mark.UpdateMark{Comment: strPtr("ok")}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: mark.ErrNotFound.Error()}),
		},
	})
}

func Test_schoolApi_studentMarks(t *testing.T) {
	e := setup(t)
	amal := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")
	sci := testutil.CreateSubject(t, e.subjects, "Science", 5)
	testutil.CreateMark(t, e.marks, amal.UID, sci.ID, teacher.UID, 5, 50, 1000)
	token := getToken(t, e.conf, teacher)

	req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+amal.UID+"/marks", token)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Science", got[0]["subject"])
	assert.Equal(t, "medium", got[0]["category"])

	e.run(t, []httpTest{
		{
			name: "unknown student", path: "/v1/students/nobody/marks", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "student not found"}),
		},
	})
}

func Test_schoolApi_subjects(t *testing.T) {
	e := setup(t)
	amal := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")
	token := getToken(t, e.conf, teacher)

	add := func(name string, grade int) subject.Subject {
		req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", token, marshallObj(t, subject.NewSubject{Name: name, Grade: grade}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sub subject.Subject
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		return sub
	}
	sci := add("  Science ", 6)
	math := add("Mathematics", 5)
	assert.Equal(t, "Science", sci.Name)

	m1 := testutil.CreateMark(t, e.marks, amal.UID, math.ID, teacher.UID, 5, 70, 1000)
	testutil.CreateMark(t, e.marks, amal.UID, math.ID, teacher.UID, 5, 75, 2000)
	kept := testutil.CreateMark(t, e.marks, amal.UID, sci.ID, teacher.UID, 5, 60, 3000)

	studentToken := getToken(t, e.conf, amal)
	e.run(t, []httpTest{
		{
			name: "list all", path: "/v1/subjects", token: studentToken,
			wantData: marshallObj(t, []subject.Subject{math, sci}),
		},
		{
			name: "list with grade", path: "/v1/subjects?grade=5", token: studentToken,
			wantData: marshallObj(t, []subject.Subject{
				{ID: math.ID, Name: "Mathematics", Grade: 5},
				{ID: sci.ID, Name: "Science", Grade: 5},
			}),
		},
		{
			name: "add: teachers only", method: http.MethodPost, path: "/v1/subjects", token: studentToken,
			body: marshallObj(t, subject.NewSubject{Name: "Art", Grade: 5}), wantCode: http.StatusForbidden,
		},
		{
			name: "add: blank name", method: http.MethodPost, path: "/v1/subjects", token: token,
			body: marshallObj(t, subject.NewSubject{Name: "   ", Grade: 5}), wantCode: http.StatusBadRequest,
		},
		{
			name: "rename", method: http.MethodPatch, path: "/v1/subjects/" + sci.ID, token: token,
			body:     marshallObj(t, subject.UpdateSubject{Name: strPtr("Physics")}),
			wantData: marshallObj(t, subject.Subject{ID: sci.ID, Name: "Physics", Grade: 6}),
		},
		{
			name: "rename unknown", method: http.MethodPatch, path: "/v1/subjects/nope", token: token,
			body:     marshallObj(t, subject.UpdateSubject{Name: strPtr("Physics")}),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: subject.ErrNotFound.Error()}),
		},
		{
			name: "delete cascades", method: http.MethodDelete, path: "/v1/subjects/" + math.ID, token: token,
			wantData: []byte(`{"deletedMarks": 2}`),
		},
		{
			name: "delete unknown", method: http.MethodDelete, path: "/v1/subjects/" + math.ID, token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: subject.ErrNotFound.Error()}),
		},
	})

	ctx := context.Background()
	_, err := e.deps.MarkSvc.Get(ctx, m1.ID)
	assert.Equal(t, mark.ErrNotFound, err)
	_, err = e.deps.MarkSvc.Get(ctx, kept.ID)
	assert.NoError(t, err)
}
