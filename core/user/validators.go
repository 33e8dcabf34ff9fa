package user

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/markbook/core"
)

var (
	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the username"

	// bcrypt only hashes the first 72 bytes
	pwdMaxBytes     = 72
	pwdMaxBytesTag  = "pwdmaxbytes"
	pwdMaxBytesText = "password cannot be longer than 72 bytes"
)

// InitValidators registers the user validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(pwdSimilarityStructValidation, NewUser{}, NewPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)

	_ = validate.RegisterValidation(pwdMaxBytesTag, pwdMaxBytesValidation)
	core.RegisterCustomTranslation(validate, translator, pwdMaxBytesTag, pwdMaxBytesText)
}

// pwdMaxBytesValidation counts bytes, not runes.
func pwdMaxBytesValidation(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= pwdMaxBytes
}

// pwdSimilarityStructValidation rejects passwords too close to the username.
func pwdSimilarityStructValidation(sl validator.StructLevel) {
	var uname, pwd string
	switch v := sl.Current().Interface().(type) {
	case NewUser:
		uname, pwd = v.Username, v.Password
	case NewPassword:
		uname, pwd = v.Username, v.Password
	default:
		return
	}
	if pwd != "" && passwordSimilarity(pwd, uname) >= pwdMaxSim {
		sl.ReportError(pwd, "password", "Password", pwdAttrSimTag, "")
	}
}

func passwordSimilarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	pwd, attr = strings.ToLower(pwd), strings.ToLower(attr)
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}
