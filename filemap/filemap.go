// Package filemap defines the intermediate representation bridging the
// in-memory repository and the encrypted archive: a flat mapping of
// relative file paths to raw bytes, with a fixed directory layout.
//
// Layout inside an archive:
//
//	metadata.yml
//	credentials/<id>/record.yml
package filemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"coffre/models"
)

// FileMap maps relative archive paths to file contents.
type FileMap map[string][]byte

// Fixed layout paths.
const (
	MetadataFile   = "metadata.yml"
	CredentialsDir = "credentials"
	recordFile     = "record.yml"
)

// Repository format identity written into metadata.yml.
const (
	CurrentVersion = "1.0"
	CurrentFormat  = "coffre-v1"
	Generator      = "coffre"
)

// Metadata describes a repository's structure and provenance. The
// credential count is load-bearing: a mismatch against the number of
// record files is a structural error.
type Metadata struct {
	Version         string `yaml:"version" json:"version"`
	Format          string `yaml:"format" json:"format"`
	CreatedAt       int64  `yaml:"created_at" json:"created_at"`
	LastModified    int64  `yaml:"last_modified" json:"last_modified"`
	CredentialCount uint32 `yaml:"credential_count" json:"credential_count"`
	Generator       string `yaml:"generator" json:"generator"`
}

// NewMetadata returns metadata for a fresh, empty repository.
func NewMetadata() Metadata {
	now := time.Now().Unix()
	return Metadata{
		Version:      CurrentVersion,
		Format:       CurrentFormat,
		CreatedAt:    now,
		LastModified: now,
		Generator:    Generator,
	}
}

// RecordPath returns the archive path of a credential's record file.
func RecordPath(id string) string {
	return CredentialsDir + "/" + id + "/" + recordFile
}

// IsRecordPath reports whether path names a credential record file.
// Backslash separators are normalized first so archives written on
// windows load everywhere.
func IsRecordPath(path string) bool {
	p := strings.ReplaceAll(path, `\`, "/")
	return strings.HasPrefix(p, CredentialsDir+"/") && strings.HasSuffix(p, "/"+recordFile)
}

// MarshalMetadata serializes repository metadata to YAML.
func MarshalMetadata(m Metadata) ([]byte, error) {
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return out, nil
}

// UnmarshalMetadata parses metadata.yml contents.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}

// MarshalCredential serializes one record to YAML.
func MarshalCredential(c *models.CredentialRecord) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal credential %q: %w", c.ID, err)
	}
	return out, nil
}

// UnmarshalCredential parses one record.yml contents.
func UnmarshalCredential(data []byte) (*models.CredentialRecord, error) {
	var c models.CredentialRecord
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}
	return &c, nil
}

// EncodeJSON serializes a file map for the mobile boundary: a flat JSON
// object mapping paths to base64 content.
func EncodeJSON(files FileMap) ([]byte, error) {
	encoded := make(map[string]string, len(files))
	for path, data := range files {
		encoded[path] = base64.StdEncoding.EncodeToString(data)
	}

	out, err := json.Marshal(encoded)
	if err != nil {
		return nil, fmt.Errorf("encode file map: %w", err)
	}
	return out, nil
}

// DecodeJSON parses a file map received from the mobile boundary.
func DecodeJSON(data []byte) (FileMap, error) {
	var encoded map[string]string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("decode file map: %w", err)
	}

	files := make(FileMap, len(encoded))
	for path, b64 := range encoded {
		content, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode file map entry %q: %w", path, err)
		}
		files[path] = content
	}
	return files, nil
}
