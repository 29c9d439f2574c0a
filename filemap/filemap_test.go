package filemap

import (
	"bytes"
	"testing"

	"coffre/models"
)

func TestRecordPath(t *testing.T) {
	tests := []struct {
		Path string
		Is   bool
	}{
		{"credentials/abc/record.yml", true},
		{`credentials\abc\record.yml`, true},
		{"metadata.yml", false},
		{"credentials/abc/attachment.bin", false},
		{"other/abc/record.yml", false},
	}

	for i, test := range tests {
		if got := IsRecordPath(test.Path); got != test.Is {
			t.Errorf("%d) IsRecordPath(%q) = %t, want %t", i, test.Path, got, test.Is)
		}
	}

	if RecordPath("abc") != "credentials/abc/record.yml" {
		t.Errorf("RecordPath = %q", RecordPath("abc"))
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := NewMetadata()
	m.CredentialCount = 3

	data, err := MarshalMetadata(m)
	if err != nil {
		t.Fatal(err)
	}

	got, err := UnmarshalMetadata(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("round trip: got %+v, want %+v", got, m)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	c := models.NewCredential("GitHub", "login")
	c.SetField("username", models.UsernameField("alice"))
	c.SetField("password", models.PasswordField("s3cr3t"))
	c.AddTag("work")
	c.Notes = "primary account"
	c.Favorite = true
	c.FolderPath = "dev/personal"

	data, err := MarshalCredential(c)
	if err != nil {
		t.Fatal(err)
	}

	got, err := UnmarshalCredential(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != c.ID || got.Title != c.Title || got.Type != c.Type {
		t.Errorf("identity fields differ: %+v", got)
	}
	pw, ok := got.Field("password")
	if !ok || pw.Value != "s3cr3t" || !pw.Sensitive || pw.Type != models.FieldPassword {
		t.Errorf("password field differs: %+v", pw)
	}
	if !got.HasTag("work") || got.Notes != c.Notes || !got.Favorite {
		t.Error("metadata fields differ")
	}
	if got.FolderPath != c.FolderPath {
		t.Errorf("folder path = %q", got.FolderPath)
	}
	if got.CreatedAt != c.CreatedAt || got.UpdatedAt != c.UpdatedAt || got.AccessedAt != c.AccessedAt {
		t.Error("timestamps differ")
	}
}

func TestJSONShuttle(t *testing.T) {
	files := FileMap{
		"metadata.yml":                 []byte("version: \"1.0\"\n"),
		"credentials/x/record.yml":     []byte{0x00, 0x01, 0xff},
		"credentials/other/record.yml": nil,
	}

	data, err := EncodeJSON(files)
	if err != nil {
		t.Fatal(err)
	}

	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(files) {
		t.Fatalf("entries = %d, want %d", len(got), len(files))
	}
	for path, content := range files {
		if !bytes.Equal(got[path], content) {
			t.Errorf("content differs for %q", path)
		}
	}

	if _, err := DecodeJSON([]byte(`{"a": "not base64!!"}`)); err == nil {
		t.Error("bad base64 should error")
	}
	if _, err := DecodeJSON([]byte(`nope`)); err == nil {
		t.Error("bad json should error")
	}
}
