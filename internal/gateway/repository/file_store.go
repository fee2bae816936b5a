package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

type fileRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FileStore keeps the pair in a JSON file that survives restarts. Writes go
// to a temp file in the same directory and are renamed into place.
type FileStore struct {
	path  string
	clock clock.Clock
	mu    sync.Mutex
}

func NewFileStore(path string, clock clock.Clock) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credentials file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &FileStore{path: path, clock: clock}, nil
}

func (s *FileStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (domain.CredentialPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CredentialPair{}, nil
		}
		return domain.CredentialPair{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("%w: %v", ErrCorruptCredentials, err)
	}
	return domain.CredentialPair{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken}, nil
}

func (s *FileStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	data, err := s.encode(pair)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(data)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	var data []byte
	if !next.IsEmpty() {
		if err := next.Validate(); err != nil {
			return false, err
		}
		var err error
		if data, err = s.encode(next); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return false, err
	}
	if current.RefreshToken != refreshToken {
		return false, nil
	}
	if data == nil {
		return true, s.remove()
	}
	return true, s.writeAtomic(data)
}

func (s *FileStore) encode(pair domain.CredentialPair) ([]byte, error) {
	data, err := json.Marshal(fileRecord{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UpdatedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	return data, nil
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod credentials file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}
