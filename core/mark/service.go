package mark

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

var (
	// errors
	ErrNotFound = errors.New("mark not found")
)

type (
	Repository interface {
		// CreateMark stores mark under a new key and returns it with its ID set.
		CreateMark(ctx context.Context, mark Mark) (Mark, error)
		// GetMark returns ErrNotFound when absent.
		GetMark(ctx context.Context, id string) (Mark, error)
		// UpdateMark merges the set fields of um and timestamp into marks/{id}.
		UpdateMark(ctx context.Context, id string, um UpdateMark, timestamp int64) error
		QueryMarksByStudent(ctx context.Context, studentID string) ([]Mark, error)
		QueryAllMarks(ctx context.Context) ([]Mark, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Add records a new mark stamped with the current time. Duplicates per (student, subject) are allowed.
func (svc *Service) Add(ctx context.Context, nm NewMark) (Mark, error) {
	mark := Mark{
		StudentID: nm.StudentID,
		SubjectID: nm.SubjectID,
		Grade:     nm.Grade,
		TeacherID: nm.TeacherID,
		Timestamp: core.NowMillis(),
	}
	if nm.Score != nil {
		mark.Score = *nm.Score
	}
	if nm.Comment != "" {
		mark.Comment = null.StringFrom(nm.Comment)
	}
	mark, err := svc.repo.CreateMark(ctx, mark)
	if err != nil {
		return Mark{}, errors.Wrap(err, "creating mark")
	}
	return mark, nil
}

// Update merges um into the mark and refreshes its timestamp.
func (svc *Service) Update(ctx context.Context, id string, um UpdateMark) (Mark, error) {
	if _, err := svc.repo.GetMark(ctx, id); err != nil {
		return Mark{}, err
	}
	if err := svc.repo.UpdateMark(ctx, id, um, core.NowMillis()); err != nil {
		return Mark{}, errors.Wrap(err, "updating mark")
	}
	return svc.repo.GetMark(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id string) (Mark, error) {
	return svc.repo.GetMark(ctx, id)
}

// ListByStudent returns the marks of a student, newest first.
func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]Mark, error) {
	marks, err := svc.repo.QueryMarksByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks by student")
	}
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].Timestamp > marks[j].Timestamp })
	return marks, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Mark, error) {
	return svc.repo.QueryAllMarks(ctx)
}

// Enter records the score of a student for a subject: the newest existing mark for the
// subject is updated, otherwise a new mark is added.
// It reports whether an existing mark was updated. nm must be validated beforehand.
func (svc *Service) Enter(ctx context.Context, nm NewMark) (Mark, bool, error) {
	marks, err := svc.ListByStudent(ctx, nm.StudentID)
	if err != nil {
		return Mark{}, false, err
	}
	for _, m := range marks {
		if m.SubjectID != nm.SubjectID {
			continue
		}
		comment := nm.Comment
		updated, err := svc.Update(ctx, m.ID, UpdateMark{Score: nm.Score, Comment: &comment})
		return updated, true, err
	}
	added, err := svc.Add(ctx, nm)
	return added, false, err
}
