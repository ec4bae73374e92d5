package subject

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("subject not found")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// GetSubject returns ErrNotFound when absent.
		GetSubject(ctx context.Context, id string) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		UpdateSubject(ctx context.Context, id string, us UpdateSubject) error
		// DeleteSubject removes the subject and every mark referencing it in one atomic write.
		// It returns the number of marks removed.
		DeleteSubject(ctx context.Context, id string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every stored subject, sorted by name. The stored grade is not filtered on:
// each subject is reported with the requested grade.
func (svc *Service) List(ctx context.Context, grade int) ([]Subject, error) {
	subjects, err := svc.repo.QueryAllSubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	for i := range subjects {
		subjects[i].Grade = grade
	}
	sortByName(subjects)
	return subjects, nil
}

// QueryAll returns every stored subject with its stored grade.
func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	subjects, err := svc.repo.QueryAllSubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	sortByName(subjects)
	return subjects, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) Add(ctx context.Context, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, Grade: ns.Grade})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		return Subject{}, err
	}
	if err := svc.repo.UpdateSubject(ctx, id, us); err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	return svc.repo.GetSubject(ctx, id)
}

// Delete removes the subject along with all of its marks and returns how many marks went with it.
func (svc *Service) Delete(ctx context.Context, id string) (int, error) {
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		return 0, err
	}
	n, err := svc.repo.DeleteSubject(ctx, id)
	if err != nil {
		return 0, errors.Wrap(err, "deleting subject")
	}
	return n, nil
}

func sortByName(subjects []Subject) {
	sort.SliceStable(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i].Name) < strings.ToLower(subjects[j].Name)
	})
}
