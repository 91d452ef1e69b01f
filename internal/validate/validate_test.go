package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Programme
}

func validForm() signupForm {
	return signupForm{
		Email:           "ada@uni.edu",
		Phone:           "+2348012345678",
		Password:        "Str0ng!Pass",
		PasswordConfirm: "Str0ng!Pass",
		Programme: Programme{
			Faculty:      "Computer Science",
			Department:   "Software Engineering",
			CourseOption: "Data Science",
		},
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)

	return verr.Fields
}

func TestStruct_OK(t *testing.T) {
	t.Parallel()

	require.NoError(t, New().Struct(validForm()))
}

func TestStruct_FieldErrorsUseJSONNames(t *testing.T) {
	t.Parallel()

	f := validForm()
	f.Email = "not-an-email"
	f.PasswordConfirm = "Other!Pass1"
	f.Phone = "12"

	fields := fieldsOf(t, New().Struct(f))
	require.Contains(t, fields, "email")
	require.Equal(t, "Passwords do not match", fields["passwordConfirm"])
	require.Contains(t, fields, "phone")
}

func TestStruct_ProgrammeConsistency(t *testing.T) {
	t.Parallel()

	v := New()

	f := validForm()
	f.Department = "Robotics Lab"
	require.Contains(t, fieldsOf(t, v.Struct(f)), "department")

	// Кафедра существует, но принадлежит другому факультету.
	f = validForm()
	f.Department = "Mechanical Engineering"
	f.CourseOption = "Robotics"
	fields := fieldsOf(t, v.Struct(f))
	require.Contains(t, fields["department"], "programme")

	// Направление с другой кафедры.
	f = validForm()
	f.CourseOption = "Ethical Hacking"
	fields = fieldsOf(t, v.Struct(f))
	require.Contains(t, fields["courseOption"], "programme")
}

func TestPasswordPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"Str0ng!Pass", true, ""},
		{"Aa1~aaaa", true, ""},
		{"", false, "Password is required"},
		{"Aa1!", false, "Password must be at least 8 characters long"},
		{"Aa1!" + strings.Repeat("a", 49), false, "Password must not exceed 50 characters"},
		{"str0ng!pass", false, "Password must contain at least one uppercase letter"},
		{"STR0NG!PASS", false, "Password must contain at least one lowercase letter"},
		{"Strong!Pass", false, "Password must contain at least one number"},
		{"Str0ngPass1", false, "Password must contain at least one special character (" + SpecialChars + ")"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.ok, PasswordOK(tc.in), tc.in)
		if !tc.ok {
			require.Equal(t, tc.want, PasswordMessage(tc.in), tc.in)
		}
	}

	// Символы вне разрешённого набора (пробел, кириллица) не допускаются.
	require.False(t, PasswordOK("Str0ng! Pass"))
	require.False(t, PasswordOK("Str0ng!Пароль"))
}

func TestStruct_PasswordMessage(t *testing.T) {
	t.Parallel()

	f := validForm()
	f.Password = "weakpass"
	f.PasswordConfirm = "weakpass"

	fields := fieldsOf(t, New().Struct(f))
	require.Equal(t, "Password must contain at least one uppercase letter", fields["password"])
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	require.Equal(t, "+2348012345678", NormalizePhone("+234 08012345678"))
	require.Equal(t, "+2348012345678", NormalizePhone("+234 0801-234-5678"))
	require.Equal(t, "08012345678", NormalizePhone("08012345678"))
}

func TestValidationError_MessageIsSorted(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Fields: map[string]string{"b": "bad", "a": "also bad"}}
	require.Equal(t, "validation failed: a: also bad, b: bad", err.Error())
}
