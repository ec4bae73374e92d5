// Package stats computes database statistics for teachers.
package stats

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/subject"
	"github.com/trezcool/alama/core/user"
)

// LatestCount is the number of latest updates reported.
const LatestCount = 5

type Stats struct {
	TotalUsers    int         `json:"totalUsers"`
	TotalMarks    int         `json:"totalMarks"`
	TotalSubjects int         `json:"totalSubjects"`
	AverageScore  int         `json:"averageScore"`
	LatestUpdates []mark.Mark `json:"latestUpdates"`
}

// Compute counts the records, rounds the average score (0 without marks)
// and keeps the LatestCount most recently written marks, newest first.
func Compute(users []user.User, marks []mark.Mark, subjects []subject.Subject) Stats {
	st := Stats{
		TotalUsers:    len(users),
		TotalMarks:    len(marks),
		TotalSubjects: len(subjects),
	}

	if len(marks) > 0 {
		var sum int
		for _, m := range marks {
			sum += m.Score
		}
		st.AverageScore = int(math.Round(float64(sum) / float64(len(marks))))
	}

	latest := make([]mark.Mark, len(marks))
	copy(latest, marks)
	sort.SliceStable(latest, func(i, j int) bool { return latest[i].Timestamp > latest[j].Timestamp })
	if len(latest) > LatestCount {
		latest = latest[:LatestCount]
	}
	st.LatestUpdates = latest
	return st
}

type (
	UserLister interface {
		QueryAll(ctx context.Context) ([]user.User, error)
	}

	MarkLister interface {
		QueryAll(ctx context.Context) ([]mark.Mark, error)
	}

	SubjectLister interface {
		QueryAll(ctx context.Context) ([]subject.Subject, error)
	}
)

type Service struct {
	users    UserLister
	marks    MarkLister
	subjects SubjectLister
}

func NewService(users UserLister, marks MarkLister, subjects SubjectLister) *Service {
	return &Service{users: users, marks: marks, subjects: subjects}
}

// Load reads the three collections in parallel and computes their statistics.
func (svc *Service) Load(ctx context.Context) (Stats, error) {
	var (
		users    []user.User
		marks    []mark.Mark
		subjects []subject.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = svc.users.QueryAll(gctx)
		return errors.Wrap(err, "querying users")
	})
	g.Go(func() (err error) {
		marks, err = svc.marks.QueryAll(gctx)
		return errors.Wrap(err, "querying marks")
	})
	g.Go(func() (err error) {
		subjects, err = svc.subjects.QueryAll(gctx)
		return errors.Wrap(err, "querying subjects")
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return Compute(users, marks, subjects), nil
}
