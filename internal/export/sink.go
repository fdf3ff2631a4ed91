package export

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Sink is the blob-store boundary: it accepts bytes with a content type
// and returns a retrievable storage id.
type Sink interface {
	Put(name, contentType string, data []byte) (string, error)
}

// DirSink stores blobs as files under a directory, one uuid-named file
// per upload.
type DirSink struct {
	Dir string
}

// NewDirSink creates the directory if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}
	return &DirSink{Dir: dir}, nil
}

// Put writes the blob and returns its storage id. The original file name
// is kept as the extension-bearing suffix so the directory stays browsable.
func (s *DirSink) Put(name, _ string, data []byte) (string, error) {
	id := uuid.New().String()
	path := filepath.Join(s.Dir, id+"-"+filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "export: write %s", path)
	}
	return id, nil
}

// Path resolves a storage id back to the stored file, if present.
func (s *DirSink) Path(id string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, id+"-*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}
