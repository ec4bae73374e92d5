package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/session"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/tests"
)

func Test_accountApi_signup(t *testing.T) {
	e := setup(t)

	body := marshallObj(t, user.NewUser{
		Name:     "Amal Perera",
		Email:    " Amal@School.LK ",
		Password: "kiswahili",
		Role:     user.RoleStudent,
		Grade:    null.IntFrom(5),
	})

	req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.User.UID)
	assert.Equal(t, "amal@school.lk", resp.User.Email)
	assert.Equal(t, user.RoleStudent, resp.User.Role)
	assert.Equal(t, null.IntFrom(5), resp.User.Grade)

	stored, err := e.deps.UserSvc.Get(context.Background(), resp.User.UID)
	require.NoError(t, err)
	assert.Equal(t, resp.User, stored)

	t.Run("email taken", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "email")
	})

	t.Run("student without grade", func(t *testing.T) {
		body := marshallObj(t, user.NewUser{Name: "Nimal", Email: "nimal@school.lk", Password: "kiswahili", Role: user.RoleStudent})
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "grade")
	})

	t.Run("unknown role", func(t *testing.T) {
		body := marshallObj(t, user.NewUser{Name: "Nimal", Email: "nimal@school.lk", Password: "kiswahili", Role: "principal"})
		req, rec := newRequest(http.MethodPost, "/v1/auth/signup", body)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, fieldErrors(t, rec), "role")
	})
}

func Test_accountApi_login(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	id, err := e.auth.CreateAccount(ctx, "kamala@school.lk", "kiswahili")
	require.NoError(t, err)
	teacher := testutil.CreateTeacher(t, e.users, id.UID, "Kamala", "kamala@school.lk", "Mathematics")

	_, err = e.auth.CreateAccount(ctx, "ghost@school.lk", "kiswahili")
	require.NoError(t, err)

	login := func(email, pwd string) []byte {
		return marshallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	e.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login", body: login("kamala@school.lk", "swahili"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: session.MsgInvalidCredential}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login", body: login("nobody@school.lk", "kiswahili"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: session.MsgInvalidCredential}),
		},
		{
			name: "no profile", method: http.MethodPost, path: "/v1/auth/login", body: login("ghost@school.lk", "kiswahili"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: session.MsgProfileNotFound}),
		},
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", login("KAMALA@school.lk", "kiswahili"))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, teacher, resp.User)

		req, rec = newAuthRequest(http.MethodGet, "/v1/me", resp.Token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantData: marshallObj(t, teacher)}, rec)
	})

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", []byte(`{}`))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		msgs := fieldErrors(t, rec)
		assert.Contains(t, msgs, "email")
		assert.Contains(t, msgs, "password")
	})
}

func Test_accountApi_refreshToken(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, e.conf, student))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])

	t.Run("refresh expired", func(t *testing.T) {
		claims := GetUserClaims(e.conf, student, 1 /* origIat */)
		token, err := GenerateToken(e.conf, claims)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "refresh has expired"})}, rec)
	})
}

func Test_accountApi_me(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	ghost := user.User{UID: "ghost", Email: "ghost@school.lk", Role: user.RoleStudent, Name: "Ghost"}

	e.run(t, []httpTest{
		{name: "auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "invalid token", path: "/v1/me", token: "not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "profile", path: "/v1/me", token: getToken(t, e.conf, student), wantData: marshallObj(t, student)},
		{
			name: "profile deleted", path: "/v1/me", token: getToken(t, e.conf, ghost),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: session.MsgProfileNotFound}),
		},
	})
}

func Test_accountApi_myMarks(t *testing.T) {
	e := setup(t)
	student := testutil.CreateStudent(t, e.users, "s1", "Amal", "amal@school.lk", 5)
	other := testutil.CreateStudent(t, e.users, "s2", "Nimal", "nimal@school.lk", 5)
	teacher := testutil.CreateTeacher(t, e.users, "t1", "Kamala", "kamala@school.lk")
	math := testutil.CreateSubject(t, e.subjects, "Mathematics", 5)

	m1 := testutil.CreateMark(t, e.marks, student.UID, math.ID, teacher.UID, 5, 82, 1000, "Good progress")
	m2 := testutil.CreateMark(t, e.marks, student.UID, "gone", teacher.UID, 5, 45, 3000)
	testutil.CreateMark(t, e.marks, other.UID, math.ID, teacher.UID, 5, 60, 2000)

	want := []report.Entry{
		{ID: m2.ID, SubjectID: "gone", Subject: report.UnknownSubject, Score: 45, Category: report.CategoryLow, Timestamp: 3000},
		{ID: m1.ID, SubjectID: math.ID, Subject: "Mathematics", Score: 82, Category: report.CategoryHigh, Comment: "Good progress", Timestamp: 1000},
	}

	e.run(t, []httpTest{
		{
			name: "students only", path: "/v1/me/marks", token: getToken(t, e.conf, teacher),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "newest first", path: "/v1/me/marks", token: getToken(t, e.conf, student), wantData: marshallObj(t, want)},
	})
}

func Test_accountApi_lookups(t *testing.T) {
	e := setup(t)

	e.run(t, []httpTest{
		{name: "roles", path: "/v1/roles", wantData: marshallObj(t, user.Roles)},
		{name: "grades", path: "/v1/grades", wantData: marshallObj(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13})},
	})
}
