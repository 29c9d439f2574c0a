// Package manager drives a repository session end to end: create or
// open an encrypted archive through a provider, expose credential CRUD
// and search, and save changes back. One manager owns at most one open
// repository at a time.
package manager

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"coffre/archive"
	"coffre/filemap"
	"coffre/models"
	"coffre/repo"
	"coffre/search"
)

// Session lifecycle errors.
var (
	ErrNotOpen        = errors.New("no repository is open")
	ErrAlreadyOpen    = errors.New("a repository is already open")
	ErrArchiveExists  = errors.New("archive already exists at this path")
	ErrUnsavedChanges = errors.New("repository has unsaved changes")
	ErrWeakPassword   = errors.New("master password is too weak")
)

// ClosePolicy decides what Close does with unsaved changes.
type ClosePolicy int

const (
	// RejectClose refuses to close a dirty repository. The default:
	// losing edits silently is worse than an extra error.
	RejectClose ClosePolicy = iota
	// SaveOnClose saves a dirty repository before closing.
	SaveOnClose
)

// Manager owns a repository session. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	provider archive.Provider
	log      *zap.Logger

	repo        *repo.Repository
	path        string
	password    string
	closePolicy ClosePolicy
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger. Without it the manager is silent.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClosePolicy sets the unsaved-changes behavior of Close.
func WithClosePolicy(p ClosePolicy) Option {
	return func(m *Manager) { m.closePolicy = p }
}

// New returns a manager using the given provider for archive I/O.
func New(provider archive.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider:    provider,
		log:         zap.NewNop(),
		closePolicy: RejectClose,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOpen reports whether a repository session is active.
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo != nil
}

// Path returns the archive path of the open session, empty when closed.
func (m *Manager) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Create builds a fresh repository at path, gated on master password
// strength. Refuses to overwrite an existing archive. On a delegated
// provider the returned operations describe the write for the host.
func (m *Manager) Create(path, password string) (*archive.Operations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo != nil {
		return nil, ErrAlreadyOpen
	}

	strength := models.ValidatePasswordStrength(password)
	if !strength.Valid {
		return nil, ErrWeakPassword
	}

	// Probe for an existing archive. A provider that cannot read files
	// cannot probe; the host is expected to check before delegating.
	_, err := m.provider.ReadArchive(path)
	switch {
	case err == nil:
		return nil, ErrArchiveExists
	case errors.Is(err, archive.ErrUnsupported):
	default:
		var nf archive.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	r := repo.New()
	if err := r.Initialize(); err != nil {
		return nil, err
	}

	m.repo = r
	m.path = path
	m.password = password

	ops, err := m.saveLocked()
	if err != nil {
		m.resetLocked()
		return nil, err
	}

	m.log.Info("repository created", zap.String("path", path))
	return ops, nil
}

// Open loads the archive at path. On a delegated provider the returned
// operations describe the extract; feed the result to LoadExtracted.
func (m *Manager) Open(path, password string) (*archive.Operations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo != nil {
		return nil, ErrAlreadyOpen
	}

	data, err := m.provider.ReadArchive(path)
	if err != nil && !errors.Is(err, archive.ErrUnsupported) {
		return nil, err
	}

	extracted, err := m.provider.ExtractArchive(data, password)
	if err != nil {
		return nil, err
	}

	if extracted.Ops != nil {
		// The host performs the extract; the session stays pending
		// until LoadExtracted delivers the files.
		m.path = path
		m.password = password
		return extracted.Ops, nil
	}

	return nil, m.adoptFilesLocked(path, password, extracted.Files)
}

// LoadExtracted completes a delegated open with the file map the host
// extracted.
func (m *Manager) LoadExtracted(files filemap.FileMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo != nil {
		return ErrAlreadyOpen
	}
	if len(m.path) == 0 {
		return ErrNotOpen
	}
	return m.adoptFilesLocked(m.path, m.password, files)
}

func (m *Manager) adoptFilesLocked(path, password string, files filemap.FileMap) error {
	r := repo.New()
	repaired, err := r.LoadFiles(files)
	if err != nil {
		return err
	}

	m.repo = r
	m.path = path
	m.password = password

	stats, _ := r.GetStats()
	m.log.Info("repository opened",
		zap.String("path", path),
		zap.Int("credentials", stats.CredentialCount),
		zap.Int("repaired", repaired))
	return nil
}

// Save writes the current state through the provider. On a delegated
// provider the returned operations describe the create for the host and
// the dirty flag stays set until ConfirmSaved.
func (m *Manager) Save() (*archive.Operations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.saveLocked()
}

func (m *Manager) saveLocked() (*archive.Operations, error) {
	files, err := m.repo.SerializeFiles()
	if err != nil {
		return nil, err
	}

	created, err := m.provider.CreateArchive(files, m.password)
	if err != nil {
		return nil, err
	}

	if created.Ops != nil {
		return created.Ops, nil
	}

	if err := m.provider.WriteArchive(m.path, created.Data); err != nil {
		return nil, err
	}

	m.repo.MarkSaved()
	m.log.Info("repository saved", zap.String("path", m.path))
	return nil, nil
}

// ConfirmSaved clears the dirty flag after the host reports that a
// delegated save completed.
func (m *Manager) ConfirmSaved() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotOpen
	}
	m.repo.MarkSaved()
	return nil
}

// Close ends the session. With unsaved changes the close policy
// decides: save first, or refuse unless discard is set.
func (m *Manager) Close(discard bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotOpen
	}

	if m.repo.Modified() && !discard {
		switch m.closePolicy {
		case SaveOnClose:
			if ops, err := m.saveLocked(); err != nil {
				return err
			} else if ops != nil {
				// A delegated save cannot complete synchronously, so
				// an implicit close-time save cannot either.
				return ErrUnsavedChanges
			}
		default:
			return ErrUnsavedChanges
		}
	}

	m.log.Info("repository closed", zap.String("path", m.path))
	m.resetLocked()
	return nil
}

func (m *Manager) resetLocked() {
	m.repo = nil
	m.path = ""
	m.password = ""
}

// ChangePassword swaps the master password for the next save, gated on
// strength. The repository is marked dirty so the change persists.
func (m *Manager) ChangePassword(newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotOpen
	}

	strength := models.ValidatePasswordStrength(newPassword)
	if !strength.Valid {
		return ErrWeakPassword
	}

	m.password = newPassword
	m.repo.Touch()
	m.log.Info("master password changed", zap.String("path", m.path))
	return nil
}

// Add validates and stores a new credential.
func (m *Manager) Add(cred *models.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotOpen
	}
	return m.repo.Add(cred)
}

// Get returns a credential and stamps its access time.
func (m *Manager) Get(id string) (*models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.Get(id)
}

// Peek returns a credential without stamping its access time.
func (m *Manager) Peek(id string) (*models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.Peek(id)
}

// Update replaces an existing credential.
func (m *Manager) Update(cred *models.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return ErrNotOpen
	}
	return m.repo.Update(cred)
}

// Delete removes a credential.
func (m *Manager) Delete(id string) (*models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.Delete(id)
}

// List returns all credentials.
func (m *Manager) List() ([]*models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.List()
}

// Summaries returns the (id, title) projection of all credentials.
func (m *Manager) Summaries() ([]repo.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.Summaries()
}

// Search ranks credentials against a query.
func (m *Manager) Search(q search.Query) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}

	snapshot, err := m.repo.Snapshot()
	if err != nil {
		return nil, err
	}
	return search.Search(snapshot, q), nil
}

// SimilarTitles finds credentials with titles close to the given one.
func (m *Manager) SimilarTitles(title string, threshold float64) ([]search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}

	snapshot, err := m.repo.Snapshot()
	if err != nil {
		return nil, err
	}
	return search.FindSimilarTitles(snapshot, title, threshold), nil
}

// Modified reports whether the open repository has unsaved changes.
func (m *Manager) Modified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repo != nil && m.repo.Modified()
}

// Stats returns repository statistics.
func (m *Manager) Stats() (repo.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return repo.Stats{}, ErrNotOpen
	}
	return m.repo.GetStats()
}

// Import adds a batch of credentials, recovering from id collisions.
func (m *Manager) Import(creds []*models.CredentialRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return 0, ErrNotOpen
	}
	return m.repo.Import(creds)
}

// Export returns all credentials for backup or migration.
func (m *Manager) Export() ([]*models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.repo == nil {
		return nil, ErrNotOpen
	}
	return m.repo.Export()
}
