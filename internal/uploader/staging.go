package uploader

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"invoicedrop/pkg/faults"

	"github.com/google/uuid"
)

// StagingArea holds in-flight payloads on local disk before they are pushed
// to the remote store. The directory is shared across uploads; names combine
// the remote-assigned content id with a locally generated suffix so
// concurrent tasks never collide.
type StagingArea struct {
	dir string
}

func NewStagingArea(dir string) *StagingArea {
	if dir == "" {
		dir = os.TempDir()
	}
	return &StagingArea{dir: dir}
}

// StagedFile is a payload written to the staging directory. Release removes
// it and must run regardless of upload outcome.
type StagedFile struct {
	Path string
	Size int64
}

// Stage copies r into a uniquely named file under the staging directory.
// An empty payload is rejected: it means the transfer from the chat platform
// failed short of delivering any bytes.
func (a *StagingArea) Stage(contentID string, r io.Reader) (*StagedFile, error) {
	name := sanitizeContentID(contentID) + "_" + uuid.NewString()
	path := filepath.Join(a.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, faults.New(faults.KindLocalIO, "stage_payload", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, faults.New(faults.KindLocalIO, "stage_payload", err)
	}
	if size == 0 {
		_ = os.Remove(path)
		return nil, faults.New(faults.KindLocalIO, "stage_payload", faults.ErrNotFound)
	}

	return &StagedFile{Path: path, Size: size}, nil
}

// Release deletes the staged artifact. Failures are reported to the caller
// for logging only and never escalate into the upload outcome.
func (s *StagedFile) Release() error {
	if s == nil || s.Path == "" {
		return nil
	}
	err := os.Remove(s.Path)
	s.Path = ""
	return err
}

// Open returns a reader over the staged bytes.
func (s *StagedFile) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, faults.New(faults.KindLocalIO, "read_staged", err)
	}
	return f, nil
}

func sanitizeContentID(id string) string {
	if id == "" {
		return "payload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			return r
		}
		return '_'
	}, id)
}
