package ffi

import (
	"sync"

	"coffre/archive"
	"coffre/manager"
	"coffre/models"
	"coffre/search"
)

// DesktopHandle exposes a full session manager over a direct provider:
// the process performs its own file I/O and encryption. Methods return
// status codes and JSON payloads only.
type DesktopHandle struct {
	mu  sync.Mutex
	mgr *manager.Manager
}

// NewDesktopHandle returns a handle around a fresh manager.
func NewDesktopHandle() *DesktopHandle {
	return &DesktopHandle{
		mgr: manager.New(archive.NewDirectProvider()),
	}
}

// CreateRepository creates and opens a new encrypted archive.
func (h *DesktopHandle) CreateRepository(path, password string) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(path) == 0 || len(password) == 0 {
		return CodeInvalidParameter
	}

	_, err := h.mgr.Create(path, password)
	return mapError(err)
}

// OpenRepository opens an existing archive.
func (h *DesktopHandle) OpenRepository(path, password string) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(path) == 0 || len(password) == 0 {
		return CodeInvalidParameter
	}

	_, err := h.mgr.Open(path, password)
	return mapError(err)
}

// SaveRepository persists the open repository.
func (h *DesktopHandle) SaveRepository() (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	ops, err := h.mgr.Save()
	if err != nil {
		return mapError(err)
	}
	if ops != nil {
		return CodeExternalOperations
	}
	return OK
}

// CloseRepository ends the session. discard drops unsaved changes.
func (h *DesktopHandle) CloseRepository(discard bool) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	return mapError(h.mgr.Close(discard))
}

// IsOpen reports whether a session is active.
func (h *DesktopHandle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mgr.IsOpen()
}

// IsModified reports unsaved changes.
func (h *DesktopHandle) IsModified() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mgr.Modified()
}

// CurrentPath returns the open archive path, empty when closed.
func (h *DesktopHandle) CurrentPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mgr.Path()
}

// AddCredential stores a credential received as JSON.
func (h *DesktopHandle) AddCredential(credJSON []byte) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	cred, code := decodeCredential(credJSON)
	if code != OK {
		return code
	}
	return mapError(h.mgr.Add(cred))
}

// GetCredential returns a credential as JSON.
func (h *DesktopHandle) GetCredential(id string) (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(id) == 0 {
		return nil, CodeInvalidParameter
	}

	cred, err := h.mgr.Get(id)
	if err != nil {
		return nil, mapError(err)
	}
	return encodeJSON(cred)
}

// UpdateCredential replaces a credential from JSON.
func (h *DesktopHandle) UpdateCredential(credJSON []byte) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	cred, code := decodeCredential(credJSON)
	if code != OK {
		return code
	}
	return mapError(h.mgr.Update(cred))
}

// DeleteCredential removes a credential by id.
func (h *DesktopHandle) DeleteCredential(id string) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(id) == 0 {
		return CodeInvalidParameter
	}

	_, err := h.mgr.Delete(id)
	return mapError(err)
}

// ListCredentials returns id and title summaries as JSON.
func (h *DesktopHandle) ListCredentials() (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	sums, err := h.mgr.Summaries()
	if err != nil {
		return nil, mapError(err)
	}
	if len(sums) == 0 {
		return []byte("[]"), OK
	}
	return encodeJSON(sums)
}

// SearchCredentials runs a text search and returns matches as JSON,
// best first. Each entry carries the credential and its score.
func (h *DesktopHandle) SearchCredentials(text string) (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	results, err := h.mgr.Search(search.TextQuery(text))
	if err != nil {
		return nil, mapError(err)
	}

	payload := make([]searchHit, 0, len(results))
	for _, r := range results {
		payload = append(payload, searchHit{Credential: r.Credential, Score: r.Score})
	}
	return encodeJSON(payload)
}

type searchHit struct {
	Credential *models.CredentialRecord `json:"credential"`
	Score      float64                  `json:"score"`
}

// GetStats returns repository statistics as JSON.
func (h *DesktopHandle) GetStats() (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	stats, err := h.mgr.Stats()
	if err != nil {
		return nil, mapError(err)
	}
	return encodeJSON(statsPayload(stats))
}

// ChangePassword swaps the master password for the next save.
func (h *DesktopHandle) ChangePassword(newPassword string) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(newPassword) == 0 {
		return CodeInvalidParameter
	}
	return mapError(h.mgr.ChangePassword(newPassword))
}
