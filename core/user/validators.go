package user

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/edufi/backend/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
	}
)

func init() {
	core.Validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(core.Validate, core.Translator, tag, text)
	}
}

// userStructValidation applies the password policy to NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Password != "" { // emptiness is the `required` tag's business
			if tag := passwordViolation(usr.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
				sl.ReportError(usr.Password, "password", "Password", tag, "")
			}
		}
	case UpdateUser:
		if usr.Password != "" {
			if tag := passwordViolation(usr.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
				sl.ReportError(usr.Password, "password", "Password", tag, "")
			}
		}
	}
}

// ValidatePassword applies the password policy outside struct validation.
func ValidatePassword(pwd string, usrAttrs ...string) error {
	if tag := passwordViolation(pwd, usrAttrs...); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "new_password", Error: pwdTexts[tag]})
	}
	return nil
}

// passwordViolation checks the password policy:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no user attrs similarity
// It returns the tag of the first violated rule, or "".
func passwordViolation(pwd string, usrAttrs ...string) string {
	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	for _, attr := range usrAttrs {
		if getRatio(lpwd, strings.ToLower(attr)) >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
