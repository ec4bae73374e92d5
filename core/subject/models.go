package subject

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

// Subject is stored at subjects/{id}.
type Subject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

type NewSubject struct {
	Name  string `json:"name" validate:"required,notblank"`
	Grade int    `json:"grade" validate:"required,min=1"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// UpdateSubject defines what may be changed on a Subject. Nil fields are left untouched.
type UpdateSubject struct {
	Name  *string `json:"name" validate:"omitempty,notblank"`
	Grade *int    `json:"grade" validate:"omitempty,min=1"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	if us.Name != nil {
		n := core.CleanString(*us.Name)
		us.Name = &n
	}
	return validate.Struct(us)
}

func (us UpdateSubject) IsEmpty() bool {
	return us.Name == nil && us.Grade == nil
}
