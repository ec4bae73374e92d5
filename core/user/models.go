package user

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is the profile stored at users/{uid}; UID is the authentication identity.
type User struct {
	UID      string   `json:"uid"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Name     string   `json:"name"`
	Grade    null.Int `json:"grade"`              // students only
	Subjects []string `json:"subjects,omitempty"` // teachers only
}

func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }

// Student projects the user as a Student.
func (u User) Student() Student {
	return Student{
		ID:    u.UID,
		Name:  u.Name,
		Grade: u.Grade.Int,
		Email: u.Email,
	}
}

// Student is a User with the student role.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
	Email string `json:"email"`
}

// NewUser contains information needed to sign up.
type NewUser struct {
	Name     string   `json:"name" validate:"required,notblank"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     string   `json:"role" validate:"required,role"`
	Grade    null.Int `json:"grade"`
	Subjects []string `json:"subjects" validate:"omitempty,dive,notblank"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	for i := range nu.Subjects {
		nu.Subjects[i] = core.CleanString(nu.Subjects[i])
	}
	return validate.Struct(nu)
}

// User returns the profile to store for the account uid.
func (nu NewUser) User(uid string) User {
	usr := User{
		UID:   uid,
		Email: nu.Email,
		Role:  nu.Role,
		Name:  nu.Name,
	}
	switch nu.Role {
	case RoleStudent:
		usr.Grade = nu.Grade
	case RoleTeacher:
		usr.Subjects = nu.Subjects
	}
	return usr
}
