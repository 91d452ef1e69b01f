// Package validate оборачивает go-playground/validator правилами портала.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SpecialChars — допустимые спецсимволы пароля.
const SpecialChars = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~"

// Теги пользовательских правил.
const (
	TagPassword     = "password"
	TagPhone        = "phone"
	TagFaculty      = "faculty"
	TagDepartment   = "department"
	TagCourseOption = "course_option"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[` + regexp.QuoteMeta(SpecialChars) + `]`)
	allowedRe = regexp.MustCompile(`^[A-Za-z0-9` + regexp.QuoteMeta(SpecialChars) + `]{8,50}$`)
	phoneRe   = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// Validator — валидатор с зарегистрированными правилами портала.
type Validator struct {
	validator *validator.Validate
}

// New создаёт валидатор. Имена полей в ошибках берутся из json-тегов.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	registerRules(v)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// Struct проверяет структуру. Ошибки правил возвращаются как *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newValidationError(verrs)
	}

	return err
}

// Var проверяет одно значение по тегу.
func (v *Validator) Var(field any, tag string) error {
	return v.validator.Var(field, tag)
}

// ValidationError — ошибки по полям в виде, пригодном для ответа клиенту.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))

	for _, fe := range errs {
		field := fe.Field()

		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "eqfield":
			fields[field] = "Passwords do not match"
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		case TagPassword:
			fields[field] = PasswordMessage(fmt.Sprint(fe.Value()))
		case TagPhone:
			fields[field] = "phone must contain 10 to 15 digits"
		case TagFaculty, TagDepartment, TagCourseOption:
			fields[field] = fmt.Sprintf("%s is not offered", field)
		case "programme":
			fields[field] = fmt.Sprintf("%s does not belong to the selected programme", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return &ValidationError{Fields: fields}
}

// PasswordOK проверяет политику паролей: 8–50 символов из букв, цифр и
// спецсимволов, минимум по одной заглавной, строчной, цифре и спецсимволу.
func PasswordOK(p string) bool {
	return allowedRe.MatchString(p) &&
		upperRe.MatchString(p) &&
		lowerRe.MatchString(p) &&
		digitRe.MatchString(p) &&
		specialRe.MatchString(p)
}

// PasswordMessage объясняет первое нарушенное требование.
func PasswordMessage(p string) string {
	switch {
	case p == "":
		return "Password is required"
	case len(p) < 8:
		return "Password must be at least 8 characters long"
	case len(p) > 50:
		return "Password must not exceed 50 characters"
	case !upperRe.MatchString(p):
		return "Password must contain at least one uppercase letter"
	case !lowerRe.MatchString(p):
		return "Password must contain at least one lowercase letter"
	case !digitRe.MatchString(p):
		return "Password must contain at least one number"
	case !specialRe.MatchString(p):
		return "Password must contain at least one special character (" + SpecialChars + ")"
	default:
		return "Invalid password"
	}
}

// NormalizePhone убирает пробелы, дефисы и ведущие нули национальной части
// ("+234 0801…" → "+234801…").
func NormalizePhone(raw string) string {
	parts := strings.Fields(strings.ReplaceAll(raw, "-", " "))
	if len(parts) > 1 {
		parts[1] = strings.TrimLeft(parts[1], "0")
	}

	return strings.Join(parts, "")
}

func registerRules(v *validator.Validate) {
	_ = v.RegisterValidation(TagPassword, func(fl validator.FieldLevel) bool {
		return PasswordOK(fl.Field().String())
	})

	_ = v.RegisterValidation(TagPhone, func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation(TagFaculty, func(fl validator.FieldLevel) bool {
		_, ok := findFaculty(fl.Field().String())
		return ok
	})

	_ = v.RegisterValidation(TagDepartment, func(fl validator.FieldLevel) bool {
		_, ok := findDepartment(fl.Field().String())
		return ok
	})

	_ = v.RegisterValidation(TagCourseOption, func(fl validator.FieldLevel) bool {
		return courseOptionExists(fl.Field().String())
	})

	v.RegisterStructValidation(programmeValidation, Programme{})
}
