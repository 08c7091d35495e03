package chatlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure chat storage dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Path returns the file backing userID's conversation.
func (s *FileStore) Path(userID string) (string, error) {
	key, err := FileKey(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, key+".json"), nil
}

func (s *FileStore) Load(userID string) []Turn {
	p, err := s.Path(userID)
	if err != nil {
		log.Printf("chat log: %v", err)
		return []Turn{}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("chat log: unreadable %s, starting empty: %v", p, err)
		}
		return []Turn{}
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		log.Printf("chat log: malformed %s, starting empty: %v", p, err)
		return []Turn{}
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns
}

func (s *FileStore) Save(userID string, turns []Turn) error {
	p, err := s.Path(userID)
	if err != nil {
		return err
	}
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	if err := atomicWriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(userID string) error {
	p, err := s.Path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove chat log: %w", err)
	}
	return nil
}

func (s *FileStore) Export(userID string) (string, bool) {
	return export(s.Load(userID))
}

// atomicWriteFile writes data to a temp file in the target directory, syncs it
// and renames it over path, so readers see either the old or the new content.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	ok = true
	return nil
}
