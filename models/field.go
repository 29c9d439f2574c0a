package models

import "strings"

// FieldType enumerates the kinds of values a credential field can hold.
// Custom types are encoded as "custom:<name>".
type FieldType string

// The closed set of built-in field types.
const (
	FieldText             FieldType = "text"
	FieldPassword         FieldType = "password"
	FieldEmail            FieldType = "email"
	FieldURL              FieldType = "url"
	FieldUsername         FieldType = "username"
	FieldPhone            FieldType = "phone"
	FieldCreditCardNumber FieldType = "credit_card_number"
	FieldExpiryDate       FieldType = "expiry_date"
	FieldCvv              FieldType = "cvv"
	FieldTotpSecret       FieldType = "totp_secret"
	FieldTextArea         FieldType = "textarea"
	FieldNumber           FieldType = "number"
	FieldDate             FieldType = "date"
)

const customPrefix = "custom:"

// CustomField builds the field type for a caller-defined kind.
func CustomField(name string) FieldType {
	return FieldType(customPrefix + name)
}

// IsCustom reports whether t is a caller-defined field type.
func (t FieldType) IsCustom() bool {
	return strings.HasPrefix(string(t), customPrefix)
}

// CustomName returns the name portion of a custom field type, or "" for
// built-in types.
func (t FieldType) CustomName() string {
	if !t.IsCustom() {
		return ""
	}
	return strings.TrimPrefix(string(t), customPrefix)
}

// Known reports whether t is a built-in type or a well-formed custom type.
func (t FieldType) Known() bool {
	switch t {
	case FieldText, FieldPassword, FieldEmail, FieldURL, FieldUsername,
		FieldPhone, FieldCreditCardNumber, FieldExpiryDate, FieldCvv,
		FieldTotpSecret, FieldTextArea, FieldNumber, FieldDate:
		return true
	}
	return t.IsCustom() && len(t.CustomName()) != 0
}

// DefaultSensitive reports whether values of this type are masked unless
// the caller overrides the flag.
func (t FieldType) DefaultSensitive() bool {
	switch t {
	case FieldPassword, FieldCvv, FieldTotpSecret, FieldCreditCardNumber:
		return true
	}
	return false
}

// CredentialField is one attribute of a credential.
type CredentialField struct {
	Type      FieldType         `yaml:"field_type" json:"field_type"`
	Value     string            `yaml:"value" json:"value"`
	Sensitive bool              `yaml:"sensitive" json:"sensitive"`
	Label     string            `yaml:"label,omitempty" json:"label,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// NewField builds a field of the given type with its default sensitivity.
func NewField(t FieldType, value string) CredentialField {
	return CredentialField{Type: t, Value: value, Sensitive: t.DefaultSensitive()}
}

// TextField builds a plain text field.
func TextField(value string) CredentialField { return NewField(FieldText, value) }

// PasswordField builds a sensitive password field.
func PasswordField(value string) CredentialField { return NewField(FieldPassword, value) }

// EmailField builds an email address field.
func EmailField(value string) CredentialField { return NewField(FieldEmail, value) }

// URLField builds a website field.
func URLField(value string) CredentialField { return NewField(FieldURL, value) }

// UsernameField builds a login name field.
func UsernameField(value string) CredentialField { return NewField(FieldUsername, value) }

// TotpField builds a sensitive TOTP secret field.
func TotpField(value string) CredentialField { return NewField(FieldTotpSecret, value) }

// Clone returns a deep copy of the field.
func (f CredentialField) Clone() CredentialField {
	c := f
	if f.Metadata != nil {
		c.Metadata = make(map[string]string, len(f.Metadata))
		for k, v := range f.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
