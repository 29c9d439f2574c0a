// Package repo implements the in-memory credential repository: the live
// set of credentials plus metadata, with CRUD, identity repair and dirty
// tracking. It performs no file I/O and no locking; callers own both.
package repo

import (
	"errors"
	"fmt"
	"time"

	"coffre/filemap"
	"coffre/models"
)

// Repository owns the in-memory credential set. It must be initialized
// (empty) or loaded from a file map exactly once before any CRUD call.
type Repository struct {
	initialized bool
	credentials map[string]*models.CredentialRecord
	metadata    filemap.Metadata
	modified    bool
}

// Stats is a snapshot of repository state for display and monitoring.
type Stats struct {
	CredentialCount int
	Metadata        filemap.Metadata
	Initialized     bool
	Modified        bool
}

// New returns an uninitialized repository.
func New() *Repository {
	return &Repository{
		credentials: make(map[string]*models.CredentialRecord),
		metadata:    filemap.NewMetadata(),
	}
}

// Initialize marks an empty repository ready for operations.
func (r *Repository) Initialize() error {
	if r.initialized {
		return ErrAlreadyInitialized
	}
	r.initialized = true
	r.modified = true
	r.updateMetadata()
	return nil
}

// Initialized reports whether the repository is ready for operations.
func (r *Repository) Initialized() bool {
	return r.initialized
}

// LoadFiles populates the repository from an extracted file map. The
// declared credential count must match the records found. A post-load
// repair pass re-keys records with empty ids; the count of repaired
// records is returned.
func (r *Repository) LoadFiles(files filemap.FileMap) (repaired int, err error) {
	if r.initialized {
		return 0, ErrAlreadyInitialized
	}

	metaBytes, ok := files[filemap.MetadataFile]
	if !ok {
		return 0, StructureError{Message: "missing " + filemap.MetadataFile + " in archive"}
	}

	meta, err := filemap.UnmarshalMetadata(metaBytes)
	if err != nil {
		return 0, SerializationError{Err: err}
	}

	credentials := make(map[string]*models.CredentialRecord)
	for path, data := range files {
		if !filemap.IsRecordPath(path) {
			continue
		}
		cred, err := filemap.UnmarshalCredential(data)
		if err != nil {
			return 0, SerializationError{Err: err}
		}
		credentials[cred.ID] = cred
	}

	if len(credentials) != int(meta.CredentialCount) {
		return 0, StructureError{Message: fmt.Sprintf(
			"metadata declares %d credentials but archive holds %d",
			meta.CredentialCount, len(credentials))}
	}

	r.metadata = meta
	r.credentials = credentials
	r.initialized = true
	r.modified = false

	return r.RepairAll()
}

// SerializeFiles renders the repository into the fixed file-map layout.
// Deterministic for a given in-memory state; never clears the dirty flag.
func (r *Repository) SerializeFiles() (filemap.FileMap, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	files := make(filemap.FileMap, len(r.credentials)+1)

	metaBytes, err := filemap.MarshalMetadata(r.metadata)
	if err != nil {
		return nil, SerializationError{Err: err}
	}
	files[filemap.MetadataFile] = metaBytes

	for _, cred := range r.credentials {
		recBytes, err := filemap.MarshalCredential(cred)
		if err != nil {
			return nil, SerializationError{Err: err}
		}
		files[filemap.RecordPath(cred.ID)] = recBytes
	}

	return files, nil
}

// Add validates and inserts a new credential. The record's id is repaired
// in place if empty; creation timestamps are stamped. A duplicate id is
// rejected, never merged.
func (r *Repository) Add(cred *models.CredentialRecord) error {
	if !r.initialized {
		return ErrNotInitialized
	}

	models.RepairID(cred)

	if result := models.Validate(cred); !result.Valid {
		return ValidationError{Reasons: result.Errors}
	}
	if _, exists := r.credentials[cred.ID]; exists {
		return DuplicateIDError{ID: cred.ID}
	}

	now := time.Now().Unix()
	cred.CreatedAt = now
	cred.UpdatedAt = now
	cred.AccessedAt = now

	r.credentials[cred.ID] = cred.Clone()
	r.modified = true
	r.updateMetadata()
	return nil
}

// Get returns a copy of a credential and stamps its access time, marking
// the repository modified.
func (r *Repository) Get(id string) (*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	cred, ok := r.credentials[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}

	cred.AccessedAt = time.Now().Unix()
	r.modified = true
	return cred.Clone(), nil
}

// Peek returns a copy of a credential without perturbing its access time.
func (r *Repository) Peek(id string) (*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	cred, ok := r.credentials[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}
	return cred.Clone(), nil
}

// Update replaces an existing credential. The record's id is repaired if
// empty; in that case the existing entry is found by title among records
// whose stored id is also empty — a narrow recovery path for previously
// corrupted data, not a general lookup. CreatedAt is preserved from the
// existing entry and the map is re-keyed when repair changed the id.
func (r *Repository) Update(cred *models.CredentialRecord) error {
	if !r.initialized {
		return ErrNotInitialized
	}

	originalID := cred.ID
	models.RepairID(cred)

	lookupID := cred.ID
	if len(originalID) == 0 {
		found := false
		for id, existing := range r.credentials {
			if len(existing.ID) == 0 && existing.Title == cred.Title {
				lookupID = id
				found = true
				break
			}
		}
		if !found {
			return NotFoundError{ID: "credential titled " + cred.Title + " with empty id"}
		}
	} else if _, ok := r.credentials[lookupID]; !ok {
		return NotFoundError{ID: lookupID}
	}

	if result := models.Validate(cred); !result.Valid {
		return ValidationError{Reasons: result.Errors}
	}

	if existing, ok := r.credentials[lookupID]; ok {
		cred.CreatedAt = existing.CreatedAt
	}
	now := time.Now().Unix()
	cred.UpdatedAt = now
	cred.AccessedAt = now

	delete(r.credentials, lookupID)
	r.credentials[cred.ID] = cred.Clone()
	r.modified = true
	r.updateMetadata()
	return nil
}

// Delete removes a credential and returns the removed record.
func (r *Repository) Delete(id string) (*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	cred, ok := r.credentials[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}

	delete(r.credentials, id)
	r.modified = true
	r.updateMetadata()
	return cred, nil
}

// RepairAll assigns fresh ids to every credential stored with an empty id
// and re-keys the map, reporting how many records were repaired.
func (r *Repository) RepairAll() (int, error) {
	if !r.initialized {
		return 0, ErrNotInitialized
	}

	var broken []string
	for key, cred := range r.credentials {
		if len(cred.ID) == 0 {
			broken = append(broken, key)
		}
	}

	for _, key := range broken {
		cred := r.credentials[key]
		models.RepairID(cred)
		delete(r.credentials, key)
		r.credentials[cred.ID] = cred
	}

	if len(broken) > 0 {
		r.modified = true
		r.updateMetadata()
	}
	return len(broken), nil
}

// List returns copies of all credentials in unspecified order.
func (r *Repository) List() ([]*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	out := make([]*models.CredentialRecord, 0, len(r.credentials))
	for _, cred := range r.credentials {
		out = append(out, cred.Clone())
	}
	return out, nil
}

// Summary is the read-only listing projection: no field values, nothing
// sensitive.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Summaries returns the (id, title) projection of every credential.
func (r *Repository) Summaries() ([]Summary, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	out := make([]Summary, 0, len(r.credentials))
	for _, cred := range r.credentials {
		out = append(out, Summary{ID: cred.ID, Title: cred.Title})
	}
	return out, nil
}

// Snapshot returns copies of all credentials keyed by id, the shape the
// search engine consumes.
func (r *Repository) Snapshot() (map[string]*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	out := make(map[string]*models.CredentialRecord, len(r.credentials))
	for id, cred := range r.credentials {
		out[id] = cred.Clone()
	}
	return out, nil
}

// ByTag returns copies of all credentials carrying the exact tag.
func (r *Repository) ByTag(tag string) ([]*models.CredentialRecord, error) {
	return r.filtered(func(c *models.CredentialRecord) bool { return c.HasTag(tag) })
}

// ByType returns copies of all credentials of the given type.
func (r *Repository) ByType(credType string) ([]*models.CredentialRecord, error) {
	return r.filtered(func(c *models.CredentialRecord) bool { return c.Type == credType })
}

// Favorites returns copies of all favorite credentials.
func (r *Repository) Favorites() ([]*models.CredentialRecord, error) {
	return r.filtered(func(c *models.CredentialRecord) bool { return c.Favorite })
}

func (r *Repository) filtered(keep func(*models.CredentialRecord) bool) ([]*models.CredentialRecord, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}

	var out []*models.CredentialRecord
	for _, cred := range r.credentials {
		if keep(cred) {
			out = append(out, cred.Clone())
		}
	}
	return out, nil
}

// Contains reports whether a credential with the id exists.
func (r *Repository) Contains(id string) bool {
	_, ok := r.credentials[id]
	return ok
}

// Modified reports whether there are unsaved changes.
func (r *Repository) Modified() bool {
	return r.modified
}

// MarkSaved clears the dirty flag without touching data. Called by the
// manager once a provider write is confirmed.
func (r *Repository) MarkSaved() {
	r.modified = false
}

// Touch marks the repository dirty without changing credentials. Used
// when session state that persists on save changes, like the master
// password.
func (r *Repository) Touch() {
	r.modified = true
	r.metadata.LastModified = time.Now().Unix()
}

// Metadata returns the current repository metadata.
func (r *Repository) Metadata() filemap.Metadata {
	return r.metadata
}

// GetStats returns a snapshot of repository state.
func (r *Repository) GetStats() (Stats, error) {
	if !r.initialized {
		return Stats{}, ErrNotInitialized
	}
	return Stats{
		CredentialCount: len(r.credentials),
		Metadata:        r.metadata,
		Initialized:     r.initialized,
		Modified:        r.modified,
	}, nil
}

// Clear removes every credential but keeps the repository initialized.
func (r *Repository) Clear() error {
	if !r.initialized {
		return ErrNotInitialized
	}
	r.credentials = make(map[string]*models.CredentialRecord)
	r.modified = true
	r.updateMetadata()
	return nil
}

// Import adds a batch of credentials, continuing past individual
// failures. A record whose id collides with an existing entry is retried
// under a fresh id. Returns how many records were imported; errors only
// when nothing could be.
func (r *Repository) Import(creds []*models.CredentialRecord) (int, error) {
	if !r.initialized {
		return 0, ErrNotInitialized
	}

	imported := 0
	var failures []string
	for _, cred := range creds {
		err := r.Add(cred)
		if err == nil {
			imported++
			continue
		}

		var dup DuplicateIDError
		if errors.As(err, &dup) {
			retry := cred.Clone()
			retry.ID = models.GenerateID()
			if r.Add(retry) == nil {
				imported++
				continue
			}
		}
		failures = append(failures, cred.Title+": "+err.Error())
	}

	if imported == 0 && len(failures) > 0 {
		return 0, ValidationError{Reasons: failures}
	}
	return imported, nil
}

// Export returns copies of all credentials for backup or migration.
func (r *Repository) Export() ([]*models.CredentialRecord, error) {
	return r.List()
}

func (r *Repository) updateMetadata() {
	r.metadata.CredentialCount = uint32(len(r.credentials))
	r.metadata.LastModified = time.Now().Unix()
}
