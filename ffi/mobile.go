package ffi

import (
	"encoding/json"
	"sync"

	"coffre/filemap"
	"coffre/models"
	"coffre/repo"
)

// MobileHandle exposes a bare in-memory repository. The host owns all
// file and crypto operations and shuttles repository state in and out
// as JSON file maps. Every method is panic-safe: a panic surfaces as
// CodeInternal, never across the boundary.
type MobileHandle struct {
	mu   sync.Mutex
	repo *repo.Repository
}

// NewMobileHandle returns a handle around an empty, uninitialized
// repository.
func NewMobileHandle() *MobileHandle {
	return &MobileHandle{repo: repo.New()}
}

func guard(code *Code) {
	if r := recover(); r != nil {
		*code = CodeInternal
	}
}

// Initialize marks the repository ready as an empty store.
func (h *MobileHandle) Initialize() (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	return mapError(h.repo.Initialize())
}

// IsInitialized reports readiness.
func (h *MobileHandle) IsInitialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.repo.Initialized()
}

// LoadFromFiles populates the repository from a JSON file map produced
// by the host's extract.
func (h *MobileHandle) LoadFromFiles(filesJSON []byte) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(filesJSON) == 0 {
		return CodeInvalidParameter
	}

	files, err := filemap.DecodeJSON(filesJSON)
	if err != nil {
		return CodeSerializationError
	}

	_, err = h.repo.LoadFiles(files)
	return mapError(err)
}

// SerializeToFiles renders the repository as a JSON file map for the
// host to pack and encrypt.
func (h *MobileHandle) SerializeToFiles() (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	files, err := h.repo.SerializeFiles()
	if err != nil {
		return nil, mapError(err)
	}

	out, err = filemap.EncodeJSON(files)
	if err != nil {
		return nil, CodeSerializationError
	}
	return out, OK
}

// AddCredential stores a credential received as JSON.
func (h *MobileHandle) AddCredential(credJSON []byte) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	cred, code := decodeCredential(credJSON)
	if code != OK {
		return code
	}
	return mapError(h.repo.Add(cred))
}

// GetCredential returns a credential as JSON and stamps its access
// time.
func (h *MobileHandle) GetCredential(id string) (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(id) == 0 {
		return nil, CodeInvalidParameter
	}

	cred, err := h.repo.Get(id)
	if err != nil {
		return nil, mapError(err)
	}
	return encodeJSON(cred)
}

// UpdateCredential replaces a credential from JSON.
func (h *MobileHandle) UpdateCredential(credJSON []byte) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	cred, code := decodeCredential(credJSON)
	if code != OK {
		return code
	}
	return mapError(h.repo.Update(cred))
}

// DeleteCredential removes a credential by id.
func (h *MobileHandle) DeleteCredential(id string) (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(id) == 0 {
		return CodeInvalidParameter
	}

	_, err := h.repo.Delete(id)
	return mapError(err)
}

// ListCredentials returns id and title summaries as JSON.
func (h *MobileHandle) ListCredentials() (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	sums, err := h.repo.Summaries()
	if err != nil {
		return nil, mapError(err)
	}
	if sums == nil {
		sums = []repo.Summary{}
	}
	return encodeJSON(sums)
}

// IsModified reports unsaved changes.
func (h *MobileHandle) IsModified() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.repo.Modified()
}

// MarkSaved clears the dirty flag after the host persisted state.
func (h *MobileHandle) MarkSaved() (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.repo.Initialized() {
		return CodeNotInitialized
	}
	h.repo.MarkSaved()
	return OK
}

// GetStats returns repository statistics as JSON.
func (h *MobileHandle) GetStats() (out []byte, code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	stats, err := h.repo.GetStats()
	if err != nil {
		return nil, mapError(err)
	}
	return encodeJSON(statsPayload(stats))
}

// ClearCredentials empties the repository but keeps it initialized.
func (h *MobileHandle) ClearCredentials() (code Code) {
	defer guard(&code)
	h.mu.Lock()
	defer h.mu.Unlock()

	return mapError(h.repo.Clear())
}

func decodeCredential(credJSON []byte) (*models.CredentialRecord, Code) {
	if len(credJSON) == 0 {
		return nil, CodeInvalidParameter
	}

	var cred models.CredentialRecord
	if err := json.Unmarshal(credJSON, &cred); err != nil {
		return nil, CodeSerializationError
	}
	return &cred, OK
}

func encodeJSON(v interface{}) ([]byte, Code) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, CodeSerializationError
	}
	return out, OK
}

// stats is flattened for hosts; they should not need to know the
// metadata type.
type statsJSON struct {
	CredentialCount int    `json:"credential_count"`
	Modified        bool   `json:"modified"`
	Version         string `json:"version"`
	Format          string `json:"format"`
	LastModified    int64  `json:"last_modified"`
}

func statsPayload(stats repo.Stats) statsJSON {
	return statsJSON{
		CredentialCount: stats.CredentialCount,
		Modified:        stats.Modified,
		Version:         stats.Metadata.Version,
		Format:          stats.Metadata.Format,
		LastModified:    stats.Metadata.LastModified,
	}
}
