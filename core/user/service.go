package user

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// GetUser returns ErrNotFound when no profile is stored for uid.
		GetUser(ctx context.Context, uid string) (User, error)
		// QueryUsersByGrade returns every profile whose stored grade equals grade, whatever the role.
		QueryUsersByGrade(ctx context.Context, grade int) ([]User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		SaveUser(ctx context.Context, usr User) error
		DeleteUser(ctx context.Context, uid string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get reads the profile at users/{uid}.
func (svc *Service) Get(ctx context.Context, uid string) (User, error) {
	return svc.repo.GetUser(ctx, uid)
}

// GetStudent reads the profile of a student; it returns ErrStudentNotFound for anyone else.
func (svc *Service) GetStudent(ctx context.Context, uid string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrStudentNotFound
		}
		return User{}, err
	}
	if !usr.IsStudent() {
		return User{}, ErrStudentNotFound
	}
	return usr, nil
}

// StudentsByGrade lists the students of a grade, in store order.
// Teachers carrying a grade are excluded.
func (svc *Service) StudentsByGrade(ctx context.Context, grade int) ([]Student, error) {
	users, err := svc.repo.QueryUsersByGrade(ctx, grade)
	if err != nil {
		return nil, errors.Wrap(err, "querying users by grade")
	}
	students := make([]Student, 0, len(users))
	for _, usr := range users {
		if usr.IsStudent() {
			students = append(students, usr.Student())
		}
	}
	return students, nil
}

// Create writes the profile of a freshly created account.
func (svc *Service) Create(ctx context.Context, uid string, nu NewUser) (User, error) {
	usr := nu.User(uid)
	if err := svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving user")
	}
	return usr, nil
}

func (svc *Service) Save(ctx context.Context, usr User) error {
	return svc.repo.SaveUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

// GetByEmail scans all profiles for email.
func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	users, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return User{}, errors.Wrap(err, "querying users")
	}
	for _, usr := range users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (svc *Service) Delete(ctx context.Context, uid string) error {
	return svc.repo.DeleteUser(ctx, uid)
}
