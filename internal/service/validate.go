package service

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"franchise-crm/internal/domain"
)

const defaultMinPasswordLen = 8

// 与 gin binding 的 `binding:"email"` 同一套规则
var validate = validator.New()

func validEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return domain.Validationf("%s is required", field)
	}
	return nil
}

func checkEmail(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.Validation("email is required")
	}
	if !validEmail(v) {
		return "", domain.Validationf("invalid email address %q", v)
	}
	return domain.NormalizeEmail(v), nil
}

func checkPassword(v string, min int) error {
	if strings.TrimSpace(v) == "" {
		return domain.Validation("password is required")
	}
	if utf8.RuneCountInString(v) < min {
		return domain.Validationf("password must be at least %d characters", min)
	}
	return nil
}

func checkRole(v string) (domain.Role, error) {
	if strings.TrimSpace(v) == "" {
		return "", domain.Validation("role is required")
	}
	r, ok := domain.ParseRole(v)
	if !ok {
		return "", domain.Validationf("invalid role %q", v)
	}
	return r, nil
}
