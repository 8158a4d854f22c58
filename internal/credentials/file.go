package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
)

// FileStore keeps the record in a JSON document of the form
// {"credentials": {...}}. Other top-level keys are preserved on Save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[Key]
	if !ok || string(raw) == "null" {
		return nil, internaltypes.ErrNotFound
	}
	return raw, nil
}

func (s *FileStore) Save(ctx context.Context, record []byte) error {
	doc, err := s.read()
	if errors.Is(err, internaltypes.ErrNotFound) {
		doc = map[string]json.RawMessage{}
	} else if err != nil {
		return err
	}
	doc[Key] = json.RawMessage(record)

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, internaltypes.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internaltypes.ErrMalformed, s.path, err)
	}
	return doc, nil
}
