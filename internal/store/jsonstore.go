package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hearddat/audio-relay-go/internal/model"
)

// fileDoc is the on-disk shape: namespaces at the top level, pairing state
// under "pairing".
type fileDoc struct {
	Pairing *Document `json:"pairing"`
}

// JSONStore is a file-backed Store for small state payloads. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	if doc.Pairing == nil {
		return NewDocument(), nil
	}
	if doc.Pairing.Tokens == nil {
		doc.Pairing.Tokens = make(map[string]TokenRecord)
	}
	if doc.Pairing.Devices == nil {
		doc.Pairing.Devices = make(map[string]model.DeviceRecord)
	}
	return doc.Pairing, nil
}

func (s *JSONStore) Save(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(fileDoc{Pairing: doc}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
