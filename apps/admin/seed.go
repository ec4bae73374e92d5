package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/mark"
	"github.com/trezcool/alama/core/user"
	"github.com/trezcool/alama/storage/database/docstore"
)

const seedTeacherID = "admin"

var (
	errNoSubjects = errors.New("no subject stored: run init first")

	seedComments = []string{"", "", "Good work", "Keep it up", "Needs practice", "Excellent"}
)

type seedOptions struct {
	grade    int
	students int
	weeks    int
	seed     int64
	dryRun   bool
}

func seedStep(grade int) string {
	return fmt.Sprintf("seed-grade-%d", grade)
}

func seedUID(grade, n int) string {
	return fmt.Sprintf("seed-g%d-s%03d", grade, n)
}

// seed writes sample students with weekly marks in every subject, one student per batch.
// Keys are derived from the options, and the checkpoint lets an interrupted run carry on.
func (cli *commandLine) seed(ctx context.Context, opts seedOptions) error {
	subjects, err := cli.deps.SubjectSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if len(subjects) == 0 {
		return errNoSubjects
	}

	cp, err := loadCheckpoint(ctx, cli.deps.Store, seedStep(opts.grade))
	if err != nil {
		return err
	}
	if cp.done >= opts.students {
		fmt.Fprintf(cli.out, "grade %d already has %d seeded student(s), nothing to do.\n", opts.grade, cp.done)
		return nil
	}
	if cp.done > 0 {
		fmt.Fprintf(cli.out, "resuming after %d student(s).\n", cp.done)
	}

	now := core.NowFunc()
	week := 7 * 24 * time.Hour
	for i := cp.done; i < opts.students; i++ {
		n := i + 1
		usr := user.User{
			UID:   seedUID(opts.grade, n),
			Email: fmt.Sprintf("student%03d.g%d@seed.alama", n, opts.grade),
			Role:  user.RoleStudent,
			Name:  fmt.Sprintf("Student %03d", n),
			Grade: null.IntFrom(opts.grade),
		}

		b := docstore.NewBatch()
		b.SaveUser(usr)
		rng := rand.New(rand.NewSource(opts.seed + int64(n)))
		for _, sub := range subjects {
			for w := 0; w < opts.weeks; w++ {
				m := mark.Mark{
					ID:        fmt.Sprintf("%s-%s-w%d", usr.UID, sub.ID, w+1),
					StudentID: usr.UID,
					SubjectID: sub.ID,
					Grade:     opts.grade,
					Score:     40 + rng.Intn(61),
					TeacherID: seedTeacherID,
					Timestamp: now.Add(-time.Duration(opts.weeks-1-w)*week).UnixNano() / int64(time.Millisecond),
				}
				if c := seedComments[rng.Intn(len(seedComments))]; c != "" {
					m.Comment = null.StringFrom(c)
				}
				b.SetMark(m)
			}
		}

		fmt.Fprintf(cli.out, "%s %s with %d mark(s)\n", verb(opts.dryRun, "write"), usr.Name, len(subjects)*opts.weeks)
		if opts.dryRun {
			continue
		}
		cp.done = n
		cp.completed = n == opts.students
		cp.save(b)
		if err := b.Commit(ctx, cli.deps.Store); err != nil {
			return errors.Wrapf(err, "seeding %s", usr.UID)
		}
	}

	if !opts.dryRun {
		fmt.Fprintf(cli.out, "%d student(s) seeded in grade %d.\n", opts.students, opts.grade)
	}
	return nil
}
