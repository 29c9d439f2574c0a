package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"coffre/crypt"
	"coffre/filemap"
)

// DirectProvider performs all archive operations in-process: filesystem
// reads and writes plus encryption. The realization for desktop builds.
type DirectProvider struct {
	// Key derivation is the expensive step, so the last derived key is
	// cached per password and reused across saves of a session.
	mu       sync.Mutex
	password string
	key      []byte
	salt     []byte
}

// NewDirectProvider returns a provider that owns its file operations.
func NewDirectProvider() *DirectProvider {
	return &DirectProvider{}
}

// ReadArchive returns the raw encrypted bytes at path.
func (p *DirectProvider) ReadArchive(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapFSError("read", path, err)
	}
	return data, nil
}

// WriteArchive stores bytes at path via a temp file and rename, so a
// crash mid-write never leaves a half-written archive behind.
func (p *DirectProvider) WriteArchive(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return mapFSError("write", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".coffre-*")
	if err != nil {
		return mapFSError("write", path, err)
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return mapFSError("write", path, err)
	}
	return nil
}

// CreateArchive packs and encrypts a file map. Always produces data;
// Ops is never set.
func (p *DirectProvider) CreateArchive(files filemap.FileMap, password string) (CreateResult, error) {
	plaintext, err := packContainer(files)
	if err != nil {
		return CreateResult{}, err
	}

	key, salt, err := p.sessionKey(password)
	if err != nil {
		return CreateResult{}, err
	}

	encrypted, err := crypt.Encrypt(crypt.CurrentVersion, key, salt, plaintext)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Data: encrypted}, nil
}

// ExtractArchive decrypts and unpacks archive bytes. Always produces a
// file map; Ops is never set.
func (p *DirectProvider) ExtractArchive(data []byte, password string) (ExtractResult, error) {
	meta, plaintext, err := crypt.Decrypt([]byte(password), data)
	if err != nil {
		return ExtractResult{}, err
	}

	// Cache the recovered key so the next save skips derivation.
	p.mu.Lock()
	p.password = password
	p.key = meta.Key
	p.salt = meta.Salt
	p.mu.Unlock()

	files, err := unpackContainer(plaintext)
	if err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{Files: files}, nil
}

func (p *DirectProvider) sessionKey(password string) (key, salt []byte, err error) {
	p.mu.Lock()
	if p.password == password && p.key != nil {
		key, salt = p.key, p.salt
		p.mu.Unlock()
		return key, salt, nil
	}
	p.mu.Unlock()

	key, salt, err = crypt.DeriveKey(crypt.CurrentVersion, []byte(password))
	if err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	p.password = password
	p.key = key
	p.salt = salt
	p.mu.Unlock()
	return key, salt, nil
}

func mapFSError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NotFoundError{Path: path}
	case errors.Is(err, fs.ErrPermission):
		return PermissionError{Path: path, Err: err}
	default:
		return IOError{Op: op, Path: path, Err: err}
	}
}
