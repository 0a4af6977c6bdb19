package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/model"
)

// PasswordPolicy validates new passwords against the security settings.
type PasswordPolicy struct {
	settings          SecuritySettingsService
	enforceComplexity bool
}

// NewPasswordPolicy creates a policy. The complexity flags of the settings are
// only applied when enforceComplexity is set; the minimum length always is.
func NewPasswordPolicy(settings SecuritySettingsService, enforceComplexity bool) *PasswordPolicy {
	return &PasswordPolicy{settings: settings, enforceComplexity: enforceComplexity}
}

// Check returns a Validation error describing every unmet rule.
func (p *PasswordPolicy) Check(ctx context.Context, password string) error {
	settings, err := p.settings.Get(ctx)
	if err != nil {
		return err
	}
	return ValidatePassword(password, *settings, p.enforceComplexity)
}

// ValidatePassword applies the rules of settings to password.
func ValidatePassword(password string, settings model.SecuritySettings, complexity bool) error {
	minLen := settings.PasswordMinLength
	if minLen < MinPasswordLength {
		minLen = MinPasswordLength
	}

	var problems []string
	if utf8.RuneCountInString(password) < minLen {
		problems = append(problems, fmt.Sprintf("at least %d characters", minLen))
	}
	if len(password) > auth.MaxPasswordBytes {
		problems = append(problems, fmt.Sprintf("at most %d bytes", auth.MaxPasswordBytes))
	}

	if complexity {
		var upper, digit, special bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsDigit(r):
				digit = true
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				special = true
			}
		}
		if settings.RequireUppercase && !upper {
			problems = append(problems, "an uppercase letter")
		}
		if settings.RequireNumber && !digit {
			problems = append(problems, "a number")
		}
		if settings.RequireSpecialChar && !special {
			problems = append(problems, "a special character")
		}
	}

	if len(problems) > 0 {
		return errors.Validation("password must contain " + strings.Join(problems, ", "))
	}
	return nil
}
