package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/boltdb"
	"github.com/trezcool/alama/storage/database/memdb"
)

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (NopLogger) Fatal(msg string, args ...interface{}) {}

// Entry is one call recorded by a RecordLogger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// RecordLogger keeps every call for later assertions. Not safe for concurrent use.
type RecordLogger struct {
	Entries []Entry
}

func (l *RecordLogger) log(level, msg string, args []interface{}) {
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Args: args})
}

func (l *RecordLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *RecordLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *RecordLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *RecordLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *RecordLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Count returns the number of entries logged at level.
func (l *RecordLogger) Count(level string) int {
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// OpenMemDB returns an empty in-memory store.
func OpenMemDB(t *testing.T) core.DocumentStore {
	db, err := memdb.Open()
	if err != nil {
		t.Fatalf("memdb.Open(): %v", err)
	}
	return db
}

// OpenBoltDB returns an empty bolt store living in a temporary directory.
func OpenBoltDB(t *testing.T) core.DocumentStore {
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("boltdb.Open(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Put writes a raw record, bypassing the repositories.
func Put(t *testing.T, store core.DocumentStore, path string, rec core.Record) {
	if err := store.Set(context.Background(), path, rec); err != nil {
		t.Fatalf("Set(%s): %v", path, err)
	}
}

func CreateStudent(t *testing.T, repo user.Repository, uid, name, email string, grade int) user.User {
	usr := user.User{UID: uid, Email: email, Role: user.RoleStudent, Name: name, Grade: null.IntFrom(grade)}
	if err := repo.SaveUser(context.Background(), usr); err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}

func CreateTeacher(t *testing.T, repo user.Repository, uid, name, email string, subjects ...string) user.User {
	usr := user.User{UID: uid, Email: email, Role: user.RoleTeacher, Name: name, Subjects: subjects}
	if err := repo.SaveUser(context.Background(), usr); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo subject.Repository, name string, grade int) subject.Subject {
	sub, err := repo.CreateSubject(context.Background(), subject.Subject{Name: name, Grade: grade})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateMark(t *testing.T, repo mark.Repository, studentID, subjectID, teacherID string, grade, score int, timestamp int64, comment ...string) mark.Mark {
	m := mark.Mark{
		StudentID: studentID,
		SubjectID: subjectID,
		TeacherID: teacherID,
		Grade:     grade,
		Score:     score,
		Timestamp: timestamp,
	}
	if len(comment) > 0 && comment[0] != "" {
		m.Comment = null.StringFrom(comment[0])
	}
	m, err := repo.CreateMark(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMark() failed: %v", err)
	}
	return m
}

// FreezeTime makes core.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
