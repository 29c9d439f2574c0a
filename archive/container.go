package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"coffre/filemap"
)

// Container layout: the plaintext inside a coffre archive is a zip of
// the file map. Entries are written in sorted path order with a fixed
// timestamp so identical repository state yields identical plaintext.

var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// packContainer renders a file map into zip bytes.
func packContainer(files filemap.FileMap) ([]byte, error) {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, path := range paths {
		hdr := &zip.FileHeader{
			Name:     path,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", path, err)
		}
		if _, err := w.Write(files[path]); err != nil {
			return nil, fmt.Errorf("pack %s: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("pack container: %w", err)
	}

	return buf.Bytes(), nil
}

// unpackContainer parses zip bytes back into a file map. Directory
// entries are skipped; only regular files carry repository data.
func unpackContainer(data []byte) (filemap.FileMap, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	files := make(filemap.FileMap, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorrupted, f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorrupted, f.Name, err)
		}
		files[f.Name] = content
	}

	return files, nil
}
