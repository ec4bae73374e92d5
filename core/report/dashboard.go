package report

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
)

// UnknownSubject names the subject of marks whose subject no longer exists.
const UnknownSubject = "Unknown Subject"

// Entry is a mark as listed on a student dashboard.
type Entry struct {
	ID        string `json:"id"`
	SubjectID string `json:"subjectId"`
	Subject   string `json:"subject"`
	Score     int    `json:"score"`
	Category  string `json:"category"`
	Comment   string `json:"comment,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Entries joins marks with the names of their subjects, keeping the order of marks.
func Entries(marks []mark.Mark, subjects []subject.Subject) []Entry {
	names := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
	}

	out := make([]Entry, 0, len(marks))
	for _, m := range marks {
		name, ok := names[m.SubjectID]
		if !ok {
			name = UnknownSubject
		}
		out = append(out, Entry{
			ID:        m.ID,
			SubjectID: m.SubjectID,
			Subject:   name,
			Score:     m.Score,
			Category:  Category(m.Score),
			Comment:   m.Comment.String,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

// Dashboard fetches the marks of a student and the subjects in parallel, newest marks first.
func (b *Builder) Dashboard(ctx context.Context, studentID string) ([]Entry, error) {
	var (
		marks    []mark.Mark
		subjects []subject.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		marks, err = b.marks.ListByStudent(gctx, studentID)
		return errors.Wrap(err, "fetching marks")
	})
	g.Go(func() (err error) {
		subjects, err = b.subjects.List(gctx, 0)
		return errors.Wrap(err, "fetching subjects")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Entries(marks, subjects), nil
}
