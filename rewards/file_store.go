package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const FILE_NAME = "rewards.json"

type FileStore struct {
	path string
	mu   sync.Mutex
	data map[string]Record
}

func NewFileStore(folder string) (*FileStore, error) {
	s := &FileStore{
		path: filepath.Join(folder, FILE_NAME),
		data: map[string]Record{},
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", s.path, err)
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, walletAddress string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data[storageKey(walletAddress)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *FileStore) Put(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[storageKey(r.WalletAddress)] = r
	return s.save()
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) save() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
