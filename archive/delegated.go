package archive

import "coffre/filemap"

// DelegatedProvider never touches the filesystem or the cipher. It is
// bound to an archive path at construction and answers create/extract
// requests with operation descriptors for the host to execute. Mobile
// and other sandboxed hosts own file access and use this realization.
type DelegatedProvider struct {
	path string
}

// NewDelegatedProvider returns a provider bound to the archive at path.
func NewDelegatedProvider(path string) *DelegatedProvider {
	return &DelegatedProvider{path: path}
}

// Path returns the bound archive path.
func (p *DelegatedProvider) Path() string {
	return p.path
}

// ReadArchive always fails: the host reads files, not this process.
func (p *DelegatedProvider) ReadArchive(path string) ([]byte, error) {
	return nil, ErrUnsupported
}

// WriteArchive always fails: the host writes files, not this process.
func (p *DelegatedProvider) WriteArchive(path string, data []byte) error {
	return ErrUnsupported
}

// CreateArchive describes the create for the host. No data is produced.
func (p *DelegatedProvider) CreateArchive(files filemap.FileMap, password string) (CreateResult, error) {
	return CreateResult{Ops: NewCreateOperations(p.path, password)}, nil
}

// ExtractArchive describes the extract for the host. No file map is
// produced.
func (p *DelegatedProvider) ExtractArchive(data []byte, password string) (ExtractResult, error) {
	return ExtractResult{Ops: NewExtractOperations(p.path, password)}, nil
}
