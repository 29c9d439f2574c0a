package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gofrs/uuid"
)

// Hard limits on credential records. Violations are validation errors and
// block persistence.
const (
	MaxTitleLength      = 200
	MaxTypeLength       = 50
	MaxIDLength         = 100
	MaxFieldName        = 100
	MaxFieldValueLength = 10000
	MaxFieldsPerRecord  = 64
	MaxLabelLength      = 200
	MaxNotesLength      = 10000
	MaxTagLength        = 50
	MaxTagsPerRecord    = 32
)

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	expiryRe = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	dateRes  = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
		regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`),
	}
)

// ValidationResult accumulates errors and warnings from composed
// validations. Errors block persistence, warnings are advisory.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// OK returns a passing result.
func OK() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError records a hard failure.
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning records an advisory issue.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Merge folds another result into this one.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if !other.Valid {
		r.Valid = false
	}
}

// Validate checks a whole record against the data-model rules. It is pure:
// the record is never mutated.
func Validate(c *CredentialRecord) ValidationResult {
	result := OK()

	result.Merge(ValidateID(c.ID))
	result.Merge(ValidateTitle(c.Title))
	result.Merge(ValidateType(c.Type))
	result.Merge(ValidateNotes(c.Notes))
	result.Merge(ValidateTags(c.Tags))

	if len(c.Fields) > MaxFieldsPerRecord {
		result.AddError(fmt.Sprintf("too many fields: %d (maximum %d)", len(c.Fields), MaxFieldsPerRecord))
	}

	seen := make(map[string]struct{}, len(c.Fields))
	for name, field := range c.Fields {
		result.Merge(ValidateField(name, field))

		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			result.AddError(fmt.Sprintf("duplicate field name: %q", name))
		}
		seen[lower] = struct{}{}
	}

	if c.CreatedAt <= 0 {
		result.AddError("invalid created_at timestamp")
	}
	if c.UpdatedAt <= 0 {
		result.AddError("invalid updated_at timestamp")
	}
	if c.UpdatedAt < c.CreatedAt {
		result.AddError("updated timestamp cannot be before created timestamp")
	}

	return result
}

// ValidateID checks the credential identifier. A non-UUID id is only a
// warning so foreign imports survive.
func ValidateID(id string) ValidationResult {
	result := OK()

	if len(id) == 0 {
		result.AddError("credential id cannot be empty")
		return result
	}
	if len(id) > MaxIDLength {
		result.AddError(fmt.Sprintf("credential id too long: %d characters (maximum %d)", len(id), MaxIDLength))
	}
	if _, err := uuid.FromString(id); err != nil {
		result.AddWarning("credential id is not a valid uuid")
	}

	return result
}

// ValidateTitle checks the display title.
func ValidateTitle(title string) ValidationResult {
	result := OK()

	if len(title) == 0 {
		result.AddError("title cannot be empty")
	} else if len(title) > MaxTitleLength {
		result.AddError(fmt.Sprintf("title too long: %d characters (maximum %d)", len(title), MaxTitleLength))
	}

	for _, r := range title {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			result.AddError("title contains control characters")
			break
		}
	}

	if title != strings.TrimSpace(title) {
		result.AddWarning("title has leading or trailing whitespace")
	}

	return result
}

// ValidateType checks the credential type token: lowercase letters,
// digits, underscore and hyphen only.
func ValidateType(credType string) ValidationResult {
	result := OK()

	if len(credType) == 0 {
		result.AddError("credential type cannot be empty")
		return result
	}
	if len(credType) > MaxTypeLength {
		result.AddError(fmt.Sprintf("credential type too long (maximum %d characters)", MaxTypeLength))
	}
	for _, r := range credType {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			result.AddError("credential type may only contain lowercase letters, digits, hyphens and underscores")
			break
		}
	}

	return result
}

// ValidateNotes checks the free-text notes.
func ValidateNotes(notes string) ValidationResult {
	result := OK()
	if len(notes) > MaxNotesLength {
		result.AddError(fmt.Sprintf("notes too long: %d characters (maximum %d)", len(notes), MaxNotesLength))
	}
	return result
}

// ValidateTags checks the tag set. Duplicates ignoring case are errors.
func ValidateTags(tags []string) ValidationResult {
	result := OK()

	if len(tags) > MaxTagsPerRecord {
		result.AddError(fmt.Sprintf("too many tags: %d (maximum %d)", len(tags), MaxTagsPerRecord))
	}

	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if len(tag) > MaxTagLength {
			result.AddError(fmt.Sprintf("tag too long: %q (%d characters, maximum %d)", tag, len(tag), MaxTagLength))
		}
		if len(strings.TrimSpace(tag)) == 0 {
			result.AddError("empty tag")
		}
		if strings.ContainsFunc(tag, unicode.IsControl) {
			result.AddError(fmt.Sprintf("tag contains control characters: %q", tag))
		}

		lower := strings.ToLower(tag)
		if _, dup := seen[lower]; dup {
			result.AddError(fmt.Sprintf("duplicate tag: %q", tag))
		}
		seen[lower] = struct{}{}
	}

	return result
}

// ValidateField checks a single named field, including its type-specific
// syntax rules.
func ValidateField(name string, field CredentialField) ValidationResult {
	result := OK()

	if len(name) == 0 {
		result.AddError("field name cannot be empty")
	} else if len(name) > MaxFieldName {
		result.AddError(fmt.Sprintf("field name too long: %q (%d characters, maximum %d)", name, len(name), MaxFieldName))
	}

	if len(field.Value) > MaxFieldValueLength {
		result.AddError(fmt.Sprintf("field %q value too long: %d characters (maximum %d)", name, len(field.Value), MaxFieldValueLength))
	}
	if len(field.Label) > MaxLabelLength {
		result.AddError(fmt.Sprintf("field %q label too long: %d characters (maximum %d)", name, len(field.Label), MaxLabelLength))
	}
	if !field.Type.Known() {
		result.AddError(fmt.Sprintf("field %q has unknown field type %q", name, field.Type))
	}

	result.Merge(validateFieldSyntax(name, field))
	return result
}

// validateFieldSyntax applies per-type value rules. Empty values are left
// to required-field policies elsewhere.
func validateFieldSyntax(name string, field CredentialField) ValidationResult {
	result := OK()
	if len(field.Value) == 0 {
		return result
	}

	switch field.Type {
	case FieldEmail:
		if !IsValidEmail(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid email address", name))
		}
	case FieldURL:
		if !IsValidURL(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid url", name))
		}
	case FieldPhone:
		if !IsValidPhone(field.Value) {
			result.AddWarning(fmt.Sprintf("field %q may not be a valid phone number", name))
		}
	case FieldCreditCardNumber:
		if !IsValidCreditCard(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid credit card number", name))
		}
	case FieldExpiryDate:
		if !expiryRe.MatchString(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid expiry date (use MM/YY)", name))
		}
	case FieldCvv:
		if !IsValidCvv(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid cvv code", name))
		}
	case FieldTotpSecret:
		if !IsValidTotpSecret(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid totp secret", name))
		}
	case FieldNumber:
		if _, err := strconv.ParseFloat(field.Value, 64); err != nil {
			result.AddError(fmt.Sprintf("field %q is not a valid number", name))
		}
	case FieldDate:
		if !IsValidDate(field.Value) {
			result.AddError(fmt.Sprintf("field %q is not a valid date", name))
		}
	}

	return result
}

// IsValidEmail reports whether s has the shape of an email address.
func IsValidEmail(s string) bool {
	return len(s) <= 254 && emailRe.MatchString(s)
}

// IsValidURL accepts http and https urls only.
func IsValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsValidPhone does a loose sanity check: at least seven digits once
// separators are stripped.
func IsValidPhone(s string) bool {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '+':
			return -1
		}
		return r
	}, s)

	if len(clean) < 7 {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidCreditCard checks digit count and the Luhn checksum.
func IsValidCreditCard(s string) bool {
	var digits []byte
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, byte(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if double {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsValidCvv accepts three or four digits.
func IsValidCvv(s string) bool {
	if len(s) < 3 || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValidTotpSecret accepts base32 content, tolerating spaces and lower
// case as authenticator apps commonly present them.
func IsValidTotpSecret(s string) bool {
	clean := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(clean) == 0 {
		return false
	}
	for _, r := range clean {
		if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ234567=", r) {
			return false
		}
	}
	return true
}

// IsValidDate accepts the common date layouts.
func IsValidDate(s string) bool {
	for _, re := range dateRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// GenerateID returns a fresh uuid v4 string.
func GenerateID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// Only reachable when the system randomness source is broken.
		panic(fmt.Sprintf("uuid generation failed: %v", err))
	}
	return id.String()
}

// RepairID assigns a fresh id iff the record's id is empty, reporting
// whether a repair happened. Repairing a valid id is a no-op.
func RepairID(c *CredentialRecord) bool {
	if len(c.ID) != 0 {
		return false
	}
	c.ID = GenerateID()
	return true
}

// ValidatePasswordStrength applies the master-password policy: emptiness
// and very short passwords are errors, everything else advisory.
func ValidatePasswordStrength(password string) ValidationResult {
	result := OK()

	if len(password) == 0 {
		result.AddError("password cannot be empty")
		return result
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			hasSpecial = true
		}
	}

	switch {
	case len(password) < 8:
		result.AddError("password must be at least 8 characters long")
	case len(password) < 12:
		result.AddWarning("password should be at least 12 characters")
	}
	if !hasLower {
		result.AddWarning("password should contain lowercase letters")
	}
	if !hasUpper {
		result.AddWarning("password should contain uppercase letters")
	}
	if !hasDigit {
		result.AddWarning("password should contain digits")
	}
	if !hasSpecial {
		result.AddWarning("password should contain special characters")
	}
	if strings.Contains(strings.ToLower(password), "password") {
		result.AddWarning("password should not contain the word \"password\"")
	}
	if hasSequentialRun(password) {
		result.AddWarning("password should not contain sequential characters")
	}
	if hasRepeatedChars(password) {
		result.AddWarning("password should not repeat one character heavily")
	}

	return result
}

// hasSequentialRun finds any ascending or descending run of three.
func hasSequentialRun(s string) bool {
	runes := []rune(s)
	for i := 0; i+2 < len(runes); i++ {
		a, b, c := runes[i], runes[i+1], runes[i+2]
		if b == a+1 && c == b+1 {
			return true
		}
		if b == a-1 && c == b-1 {
			return true
		}
	}
	return false
}

// hasRepeatedChars reports a single character making up over 40% of the
// password.
func hasRepeatedChars(s string) bool {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	if total == 0 {
		return false
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	return float64(max)/float64(total) > 0.4
}
