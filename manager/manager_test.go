package manager

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffre/archive"
	"coffre/crypt"
	"coffre/filemap"
	"coffre/models"
	"coffre/search"
)

const testPassword = "Sx9!aL2p"

// memProvider is an in-process Provider without the expensive key
// derivation, for fast session tests. The password is prepended to a
// JSON rendering of the file map.
type memProvider struct {
	files map[string][]byte
}

func newMemProvider() *memProvider {
	return &memProvider{files: make(map[string][]byte)}
}

func (p *memProvider) ReadArchive(path string) ([]byte, error) {
	data, ok := p.files[path]
	if !ok {
		return nil, archive.NotFoundError{Path: path}
	}
	return data, nil
}

func (p *memProvider) WriteArchive(path string, data []byte) error {
	p.files[path] = data
	return nil
}

func (p *memProvider) CreateArchive(files filemap.FileMap, password string) (archive.CreateResult, error) {
	encoded, err := filemap.EncodeJSON(files)
	if err != nil {
		return archive.CreateResult{}, err
	}
	data := append([]byte(password+"\n"), encoded...)
	return archive.CreateResult{Data: data}, nil
}

func (p *memProvider) ExtractArchive(data []byte, password string) (archive.ExtractResult, error) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 || string(data[:idx]) != password {
		return archive.ExtractResult{}, crypt.ErrWrongPassphrase
	}
	files, err := filemap.DecodeJSON(data[idx+1:])
	if err != nil {
		return archive.ExtractResult{}, err
	}
	return archive.ExtractResult{Files: files}, nil
}

func testCredential(title string) *models.CredentialRecord {
	c := models.NewCredential(title, "login")
	c.SetField("username", models.UsernameField("alice"))
	c.SetField("password", models.PasswordField("p4ssw0rd"))
	return c
}

func TestCreateOpenRoundTrip(t *testing.T) {
	provider := newMemProvider()

	m := New(provider)
	ops, err := m.Create("/store.cf", testPassword)
	require.NoError(t, err)
	require.Nil(t, ops)
	require.True(t, m.IsOpen())
	assert.False(t, m.Modified(), "create includes the initial save")

	cred := testCredential("Gmail")
	require.NoError(t, m.Add(cred))
	require.True(t, m.Modified())

	ops, err = m.Save()
	require.NoError(t, err)
	require.Nil(t, ops)
	require.False(t, m.Modified())
	require.NoError(t, m.Close(false))
	require.False(t, m.IsOpen())

	// Reopen and verify the credential survived.
	m2 := New(provider)
	ops, err = m2.Open("/store.cf", testPassword)
	require.NoError(t, err)
	require.Nil(t, ops)

	got, err := m2.Peek(cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gmail", got.Title)
}

func TestCreateGuards(t *testing.T) {
	provider := newMemProvider()
	m := New(provider)

	_, err := m.Create("/store.cf", "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = m.Create("/store.cf", testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Close(false))

	// Same path again fails; the archive is already there.
	m2 := New(provider)
	_, err = m2.Create("/store.cf", testPassword)
	assert.ErrorIs(t, err, ErrArchiveExists)

	// Creating while open fails.
	m3 := New(newMemProvider())
	_, err = m3.Create("/a.cf", testPassword)
	require.NoError(t, err)
	_, err = m3.Create("/b.cf", testPassword)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestOpenWrongPassword(t *testing.T) {
	provider := newMemProvider()
	m := New(provider)
	_, err := m.Create("/store.cf", testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Close(false))

	m2 := New(provider)
	_, err = m2.Open("/store.cf", "Wr0ng!pass")
	assert.ErrorIs(t, err, crypt.ErrWrongPassphrase)
	assert.False(t, m2.IsOpen())
}

func TestNotOpenGate(t *testing.T) {
	m := New(newMemProvider())

	assert.ErrorIs(t, m.Add(testCredential("X")), ErrNotOpen)
	_, err := m.Get("x")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = m.List()
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = m.Save()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, m.Close(false), ErrNotOpen)
	assert.ErrorIs(t, m.ChangePassword(testPassword), ErrNotOpen)
	_, err = m.Search(search.TextQuery("x"))
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestClosePolicies(t *testing.T) {
	provider := newMemProvider()

	// Default policy refuses to drop unsaved changes.
	m := New(provider)
	_, err := m.Create("/a.cf", testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Add(testCredential("X")))
	assert.ErrorIs(t, m.Close(false), ErrUnsavedChanges)
	require.True(t, m.IsOpen())

	// Discard closes anyway.
	require.NoError(t, m.Close(true))

	// SaveOnClose persists instead.
	m2 := New(provider, WithClosePolicy(SaveOnClose))
	_, err = m2.Open("/a.cf", testPassword)
	require.NoError(t, err)
	cred := testCredential("Kept")
	require.NoError(t, m2.Add(cred))
	require.NoError(t, m2.Close(false))

	m3 := New(provider)
	_, err = m3.Open("/a.cf", testPassword)
	require.NoError(t, err)
	_, err = m3.Peek(cred.ID)
	assert.NoError(t, err, "credential added before SaveOnClose should persist")
}

func TestChangePassword(t *testing.T) {
	provider := newMemProvider()
	m := New(provider)
	_, err := m.Create("/store.cf", testPassword)
	require.NoError(t, err)

	assert.ErrorIs(t, m.ChangePassword("short"), ErrWeakPassword)

	require.NoError(t, m.ChangePassword("N3w!passw0rd"))
	require.True(t, m.Modified(), "password change must be persisted by a save")
	_, err = m.Save()
	require.NoError(t, err)
	require.NoError(t, m.Close(false))

	m2 := New(provider)
	_, err = m2.Open("/store.cf", testPassword)
	assert.ErrorIs(t, err, crypt.ErrWrongPassphrase)
	_, err = m2.Open("/store.cf", "N3w!passw0rd")
	assert.NoError(t, err)
}

func TestDelegatedSession(t *testing.T) {
	provider := archive.NewDelegatedProvider("/sandbox/store.cf")
	m := New(provider)

	// Open yields extract operations for the host.
	ops, err := m.Open("/sandbox/store.cf", testPassword)
	require.NoError(t, err)
	require.NotNil(t, ops)
	require.False(t, m.IsOpen())
	assert.Equal(t, archive.OpExtractArchive, ops.Operations[0].Type)

	// The host extracts and hands the files back.
	meta := filemap.NewMetadata()
	metaBytes, err := filemap.MarshalMetadata(meta)
	require.NoError(t, err)
	require.NoError(t, m.LoadExtracted(filemap.FileMap{filemap.MetadataFile: metaBytes}))
	require.True(t, m.IsOpen())

	// Save yields create operations; dirty until the host confirms.
	require.NoError(t, m.Add(testCredential("X")))
	ops, err = m.Save()
	require.NoError(t, err)
	require.NotNil(t, ops)
	assert.Equal(t, archive.OpCreateArchive, ops.Operations[0].Type)
	assert.True(t, m.Modified())

	require.NoError(t, m.ConfirmSaved())
	assert.False(t, m.Modified())
	require.NoError(t, m.Close(false))
}

func TestSearchThroughManager(t *testing.T) {
	m := New(newMemProvider())
	_, err := m.Create("/store.cf", testPassword)
	require.NoError(t, err)

	require.NoError(t, m.Add(testCredential("Gmail Account")))
	require.NoError(t, m.Add(testCredential("Bank Login")))

	results, err := m.Search(search.TextQuery("Gmail"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Gmail Account", results[0].Credential.Title)

	similar, err := m.SimilarTitles("Gmail", 0.3)
	require.NoError(t, err)
	require.NotEmpty(t, similar)
}

func TestEndToEndEncrypted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "store.cf")
	provider := archive.NewDirectProvider()

	m := New(provider)
	_, err := m.Create(path, testPassword)
	require.NoError(t, err)

	cred := testCredential("Real Archive Entry")
	require.NoError(t, m.Add(cred))
	_, err = m.Save()
	require.NoError(t, err)
	require.NoError(t, m.Close(false))

	// A separate provider has no cached key; full derive on open.
	m2 := New(archive.NewDirectProvider())
	_, err = m2.Open(path, "not the password")
	assert.ErrorIs(t, err, crypt.ErrWrongPassphrase)

	_, err = m2.Open(path, testPassword)
	require.NoError(t, err)
	got, err := m2.Peek(cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Real Archive Entry", got.Title)
	require.NoError(t, m2.Close(false))
}
