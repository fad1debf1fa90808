package member

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/payment"
)

var (
	tierTag  = "tier"
	tierText = "invalid membership tier"

	actionTag  = "paymentaction"
	actionText = "invalid payment action"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to member attributes"
)

// RegisterValidators adds the member package's custom tags and struct-level
// validations (password policy) to the given validator instance.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tierTag, tierValidation)
	core.RegisterCustomTranslation(validate, translator, tierTag, tierText)

	_ = validate.RegisterValidation(actionTag, actionValidation)
	core.RegisterCustomTranslation(validate, translator, actionTag, actionText)

	validate.RegisterStructValidation(memberStructValidation, Registration{})
	validate.RegisterStructValidation(memberStructValidation, UpdateMember{})
	validate.RegisterStructValidation(memberStructValidation, ResetMemberPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

// tierValidation checks that the provided tier is in AllTiers
func tierValidation(fl validator.FieldLevel) bool {
	val := Tier(fl.Field().String())
	for _, tier := range AllTiers {
		if val == tier {
			return true
		}
	}
	return false
}

// actionValidation checks that the provided payment action is in payment.AllActions
func actionValidation(fl validator.FieldLevel) bool {
	val := payment.ActionType(fl.Field().String())
	for _, action := range payment.AllActions {
		if val == action {
			return true
		}
	}
	return false
}

// memberStructValidation does struct level validation on member input structs.
func memberStructValidation(sl validator.StructLevel) {
	switch data := sl.Current().Interface().(type) {
	case Registration:
		validatePassword(data.Password, data.Name, data.Email, sl)
	case UpdateMember:
		if data.Password != "" {
			validatePassword(data.Password, data.Name, data.Email, sl)
		}
	case ResetMemberPassword:
		validatePassword(data.Password, "", "", sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no member attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	// - minLen: 8
	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range []rune(pwd) {
		// - no whitespace
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	// - complexity: 1 upper, 1 lower, 1 digit & 1 special
	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		reportErr(pwdComplexityTag)
		return
	}

	// - no member attrs similarity
	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
