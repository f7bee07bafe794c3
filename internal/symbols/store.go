package symbols

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrIndexNotFound means no index has been persisted yet.
	ErrIndexNotFound = errors.New("symbol index not found")
	// ErrCorruptIndex means the persisted index exists but cannot be parsed.
	ErrCorruptIndex = errors.New("symbol index is corrupt")
	// ErrPersistence means the index could not be written.
	ErrPersistence = errors.New("failed to persist symbol index")
)

// Mapping maps an uppercased symbol to its upstream numeric id.
// A Mapping handed out by Index is shared and must not be modified.
type Mapping map[string]int64

// Lookup returns the id for symbol, matching case-insensitively
func (m Mapping) Lookup(symbol string) (int64, bool) {
	id, ok := m[Normalize(symbol)]
	return id, ok
}

// Normalize trims and uppercases a symbol
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Store persists a Mapping. Load returns ErrIndexNotFound when nothing has been saved
// and ErrCorruptIndex when the stored content is unusable.
type Store interface {
	Load(ctx context.Context) (Mapping, error)
	Save(ctx context.Context, m Mapping) error
}

// FileStore keeps the index as a pretty-printed JSON object on disk
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the index file
func (s *FileStore) Load(ctx context.Context) (Mapping, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol index %s: %w", s.path, err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, s.path, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s does not hold a JSON object", ErrCorruptIndex, s.path)
	}
	for symbol, id := range m {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative id %d for %s", ErrCorruptIndex, id, symbol)
		}
	}
	return m, nil
}

// Save overwrites the index file. The new content is written to a temporary file
// in the same directory and renamed into place.
func (s *FileStore) Save(ctx context.Context, m Mapping) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if m == nil {
		m = Mapping{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
