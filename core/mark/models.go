package mark

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	scoreTag  = "score"
	scoreText = "Score must be between 0 and 100"
)

// Mark is a score given to a student for a subject, stored at marks/{id}.
type Mark struct {
	ID        string      `json:"id"`
	StudentID string      `json:"studentId"`
	SubjectID string      `json:"subjectId"`
	Grade     int         `json:"grade"`
	Score     int         `json:"score"`
	Comment   null.String `json:"comment"`
	TeacherID string      `json:"teacherId"`
	Timestamp int64       `json:"timestamp"` // epoch ms, last write
}

// Time returns the time of the last write.
func (m Mark) Time() time.Time {
	return time.Unix(0, m.Timestamp*int64(time.Millisecond))
}

// NewMark contains information needed to record a mark.
type NewMark struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
	SubjectID string `json:"subjectId" validate:"required,notblank"`
	Grade     int    `json:"grade" validate:"required,min=1"`
	Score     *int   `json:"score" validate:"required,score"`
	Comment   string `json:"comment"`
	TeacherID string `json:"teacherId" validate:"required,notblank"`
}

func (nm *NewMark) Validate(validate *validator.Validate) error {
	nm.clean()
	return validate.Struct(nm)
}

// ValidateFields checks everything but the grade, which may still default to the student's.
func (nm *NewMark) ValidateFields(validate *validator.Validate) error {
	nm.clean()
	return validate.StructExcept(nm, "Grade")
}

func (nm *NewMark) clean() {
	nm.StudentID = core.CleanString(nm.StudentID)
	nm.SubjectID = core.CleanString(nm.SubjectID)
	nm.Comment = core.CleanString(nm.Comment)
}

// UpdateMark defines what may be changed on an existing Mark. Nil fields are left untouched.
type UpdateMark struct {
	Score   *int    `json:"score" validate:"omitempty,score"`
	Comment *string `json:"comment"`
}

func (um *UpdateMark) Validate(validate *validator.Validate) error {
	if um.Comment != nil {
		c := core.CleanString(*um.Comment)
		um.Comment = &c
	}
	return validate.Struct(um)
}

func (um UpdateMark) IsEmpty() bool {
	return um.Score == nil && um.Comment == nil
}

// InitValidators registers the mark validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(scoreTag, scoreValidation)
	core.RegisterCustomTranslation(validate, translator, scoreTag, scoreText)
}

func scoreValidation(fl validator.FieldLevel) bool {
	score := fl.Field().Int()
	return score >= MinScore && score <= MaxScore
}
