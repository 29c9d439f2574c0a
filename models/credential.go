// Package models defines the credential record and field types stored in
// a coffre archive, together with the validation rules every other layer
// relies on.
package models

import (
	"strings"
	"time"
)

// CredentialRecord is one secret entry in the store. Timestamps are unix
// seconds; UpdatedAt never precedes CreatedAt on a valid record.
type CredentialRecord struct {
	ID         string                     `yaml:"id" json:"id"`
	Title      string                     `yaml:"title" json:"title"`
	Type       string                     `yaml:"credential_type" json:"credential_type"`
	Fields     map[string]CredentialField `yaml:"fields" json:"fields"`
	Tags       []string                   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Notes      string                     `yaml:"notes,omitempty" json:"notes,omitempty"`
	Favorite   bool                       `yaml:"favorite" json:"favorite"`
	FolderPath string                     `yaml:"folder_path,omitempty" json:"folder_path,omitempty"`
	CreatedAt  int64                      `yaml:"created_at" json:"created_at"`
	UpdatedAt  int64                      `yaml:"updated_at" json:"updated_at"`
	AccessedAt int64                      `yaml:"accessed_at" json:"accessed_at"`
}

// NewCredential builds an empty record with a fresh id and current
// timestamps.
func NewCredential(title, credType string) *CredentialRecord {
	now := time.Now().Unix()
	return &CredentialRecord{
		ID:         GenerateID(),
		Title:      title,
		Type:       credType,
		Fields:     make(map[string]CredentialField),
		CreatedAt:  now,
		UpdatedAt:  now,
		AccessedAt: now,
	}
}

// SetField adds or replaces a field and stamps UpdatedAt.
func (c *CredentialRecord) SetField(name string, field CredentialField) {
	if c.Fields == nil {
		c.Fields = make(map[string]CredentialField)
	}
	c.Fields[name] = field
	c.UpdatedAt = time.Now().Unix()
}

// Field looks up a field by name.
func (c *CredentialRecord) Field(name string) (CredentialField, bool) {
	f, ok := c.Fields[name]
	return f, ok
}

// RemoveField deletes a field by name, reporting whether it existed.
func (c *CredentialRecord) RemoveField(name string) bool {
	if _, ok := c.Fields[name]; !ok {
		return false
	}
	delete(c.Fields, name)
	c.UpdatedAt = time.Now().Unix()
	return true
}

// AddTag appends a tag unless an equal tag (ignoring case) is present.
func (c *CredentialRecord) AddTag(tag string) {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return
		}
	}
	c.Tags = append(c.Tags, tag)
	c.UpdatedAt = time.Now().Unix()
}

// RemoveTag deletes a tag, reporting whether it was present.
func (c *CredentialRecord) RemoveTag(tag string) bool {
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			c.UpdatedAt = time.Now().Unix()
			return true
		}
	}
	return false
}

// HasTag reports whether the exact tag is present.
func (c *CredentialRecord) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SensitiveFields returns the names of all fields flagged sensitive.
func (c *CredentialRecord) SensitiveFields() []string {
	var names []string
	for name, f := range c.Fields {
		if f.Sensitive {
			names = append(names, name)
		}
	}
	return names
}

// Clone returns a deep copy of the record.
func (c *CredentialRecord) Clone() *CredentialRecord {
	cp := *c
	cp.Fields = make(map[string]CredentialField, len(c.Fields))
	for name, f := range c.Fields {
		cp.Fields[name] = f.Clone()
	}
	if c.Tags != nil {
		cp.Tags = append([]string(nil), c.Tags...)
	}
	return &cp
}

// Sanitized returns a copy with every sensitive field value masked, for
// listings and logs.
func (c *CredentialRecord) Sanitized() *CredentialRecord {
	cp := c.Clone()
	for name, f := range cp.Fields {
		if f.Sensitive {
			f.Value = "***"
			cp.Fields[name] = f
		}
	}
	return cp
}
