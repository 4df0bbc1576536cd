package spreadsheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage keeps uploaded spreadsheets on disk under a single directory,
// uuid-prefixed so original filenames never collide.
type Storage struct {
	dir string
}

func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

func (s *Storage) Store(originalName string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(originalName))

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

func (s *Storage) Open(name string) (io.ReadCloser, error) {
	return os.Open(s.Path(name))
}

func (s *Storage) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Path resolves a stored name, stripping any directory components a caller
// might smuggle in.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
