package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/alama/core"
)

var (
	roleTag  = "role"
	roleText = "role must be one of: " + strings.Join(AllRoles, ", ")

	gradeTag = "grade"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators. Students must be in a grade between minGrade and maxGrade.
func InitValidators(validate *validator.Validate, translator ut.Translator, minGrade, maxGrade int) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(newUserValidation(minGrade, maxGrade), NewUser{})
	core.RegisterCustomTranslation(
		validate, translator, gradeTag,
		fmt.Sprintf("students must be in a grade between %d and %d", minGrade, maxGrade),
	)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

func newUserValidation(minGrade, maxGrade int) validator.StructLevelFunc {
	return func(sl validator.StructLevel) {
		nu, ok := sl.Current().Interface().(NewUser)
		if !ok {
			return
		}
		if nu.Role == RoleStudent {
			if !nu.Grade.Valid || nu.Grade.Int < minGrade || nu.Grade.Int > maxGrade {
				sl.ReportError(nu.Grade, "grade", "Grade", gradeTag, "")
			}
		}
		if nu.Password != "" {
			validatePassword(nu.Password, nu.Name, nu.Email, sl)
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 6
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	if tooSimilar(pwd, name) || tooSimilar(pwd, email) || tooSimilar(pwd, localPart(email)) {
		reportErr(pwdAttrSimTag)
	}
}

func tooSimilar(pwd, attr string) bool {
	if attr == "" {
		return false
	}
	pass := strings.Split(strings.ToLower(pwd), "")
	usrAttr := strings.Split(strings.ToLower(attr), "")
	return difflib.NewMatcher(pass, usrAttr).QuickRatio() >= pwdMaxSim
}

func localPart(email string) string {
	if i := strings.LastIndex(email, "@"); i > 0 {
		return email[:i]
	}
	return ""
}
