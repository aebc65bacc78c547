package validation

import (
	"strings"
	"testing"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/identity/internal/errors"
)

type ruleCase struct {
	value any
	valid bool
}

func runRuleCases(t *testing.T, rule validation.Rule, cases map[string]ruleCase) {
	t.Helper()
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := rule.Validate(tc.value)
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}

func TestDefaultPasswordPolicy(t *testing.T) {
	runRuleCases(t, DefaultPasswordPolicy, map[string]ruleCase{
		"lowercase and digits":              {"correcthorse9", true},
		"multibyte characters count as one": {"pässwörd1", true},
		"uppercase is optional":             {"CORRECTHORSE9x", true},
		"no digit":                          {"correcthorse", false},
		"no lowercase":                      {"CORRECTHORSE9", false},
		"too short":                         {"abc1", false},
		"too long":                          {strings.Repeat("a1", 65), false},
		"not a string":                      {12345678, false},
	})
}

func TestPasswordStrength_Messages(t *testing.T) {
	strict := PasswordStrength{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
	}

	assert.NoError(t, strict.Validate("MyP@ssw0rd!"))
	for password, message := range map[string]string{
		"Sh0rt!":         "at least 8 characters",
		"securepass123!": "uppercase letter",
		"SECUREPASS123!": "lowercase letter",
		"SecurePass!!":   "one number",
		"SecurePass123":  "special character",
	} {
		err := strict.Validate(password)
		require.Error(t, err, password)
		assert.Contains(t, err.Error(), message)
	}
}

func TestEmail(t *testing.T) {
	runRuleCases(t, Email, map[string]ruleCase{
		"plain":          {"john@example.com", true},
		"subdomain":      {"john@mail.example.com", true},
		"plus tag":       {"john+identity@example.com", true},
		"missing at":     {"johnexample.com", false},
		"missing domain": {"john@", false},
		"missing local":  {"@example.com", false},
		"missing tld":    {"john@example", false},
		"inner space":    {"john @example.com", false},
	})
}

func TestStringRules(t *testing.T) {
	t.Run("no whitespace", func(t *testing.T) {
		runRuleCases(t, NoWhitespace, map[string]ruleCase{
			"clean":       {"john@example.com", true},
			"inner space": {"john doe", true},
			"leading":     {" john", false},
			"trailing":    {"john\t", false},
		})
	})

	t.Run("not blank", func(t *testing.T) {
		runRuleCases(t, NotBlank, map[string]ruleCase{
			"value":  {"user-123", true},
			"spaces": {"   ", false},
			"mixed":  {" \t\n ", false},
		})
	})

	t.Run("role name", func(t *testing.T) {
		runRuleCases(t, RoleName, map[string]ruleCase{
			"simple":        {"admin", true},
			"scoped":        {"billing:read", true},
			"uppercase":     {"Admin", false},
			"leading digit": {"1admin", false},
			"space":         {"has space", false},
		})
	})
}

func TestWholeSeconds(t *testing.T) {
	runRuleCases(t, WholeSeconds, map[string]ruleCase{
		"fifteen minutes": {15 * time.Minute, true},
		"one second":      {time.Second, true},
		"fractional":      {1500 * time.Millisecond, false},
		"zero":            {time.Duration(0), false},
		"negative":        {-time.Second, false},
		"not a duration":  {10, false},
	})
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(validation.Errors{"email": Email.Validate("nope")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "email: must be a valid email address")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "john@example.com", NormalizeEmail("  John@Example.COM "))
	assert.Empty(t, NormalizeEmail("   "))
}
