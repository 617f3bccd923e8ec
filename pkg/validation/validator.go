package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var krPhoneRe = regexp.MustCompile(`^010-\d{4}-\d{4}$`)

// Password length bounds for the pwdmix tag.
const (
	PasswordMinLen = 6
	PasswordMaxLen = 10
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the custom tags used by request DTOs.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register installs the tag name func and custom tags on v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("krphone", func(fl validator.FieldLevel) bool {
		return krPhoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pwdmix", func(fl validator.FieldLevel) bool {
		return PasswordMixOK(fl.Field().String())
	})
	_ = v.RegisterValidation("usertype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "STUDENT" || s == "INSTRUCTOR"
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// PasswordMixOK reports whether p is 6 to 10 characters long and uses at least
// two of lowercase letters, uppercase letters and digits.
func PasswordMixOK(p string) bool {
	n := len([]rune(p))
	if n < PasswordMinLen || n > PasswordMaxLen {
		return false
	}
	var lower, upper, digit int
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		}
	}
	return lower+upper+digit >= 2
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}
	if errors.As(err, &ute) {
		if ute.Field != "" {
			return map[string]string{ute.Field: "must be a " + ute.Type.String()}
		}
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	// Fallback
	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "len":
		if param != "" {
			return fmt.Sprintf("must be exactly %s characters long", param)
		}
		return "invalid length"
	case "min":
		if isNumberKind(kind) {
			return "must be at least " + param
		}
		if kind == reflect.Slice {
			return "must contain at least " + param + " items"
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(kind) {
			return "must be at most " + param
		}
		if kind == reflect.Slice {
			return "must contain at most " + param + " items"
		}
		return "must be at most " + param + " characters long"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "dive":
		return "array validation failed"

	// custom tags
	case "krphone":
		return "must match 010-XXXX-XXXX"
	case "pwdmix":
		return fmt.Sprintf("must be %d-%d characters with at least two of lowercase, uppercase and digits", PasswordMinLen, PasswordMaxLen)
	case "usertype":
		return "must be STUDENT or INSTRUCTOR"
	case "notblank":
		return "must not be blank"

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
