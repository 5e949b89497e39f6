package tokenstore

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2s"
)

const (
	fileStoreDirMode  fs.FileMode = 0o700
	fileStoreFileMode fs.FileMode = 0o600
)

type fileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore keeps both tokens of a scope in one JSON file under dir.
func NewFileStore(dir, scope string) (Store, error) {
	if dir == "" {
		return nil, errors.New("token store directory is empty")
	}

	err := os.MkdirAll(dir, fileStoreDirMode)
	if err != nil {
		return nil, fmt.Errorf("create token store directory: %w", err)
	}

	return &fileStore{path: filepath.Join(dir, scopeFileName(scope))}, nil
}

func (s *fileStore) Get(_ context.Context, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.read()
	if err != nil {
		return "", err
	}

	token, ok := tokens[kind]
	if !ok {
		return "", ErrNotFound
	}

	return token, nil
}

func (s *fileStore) Set(_ context.Context, kind Kind, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.read()
	if err != nil {
		return err
	}

	tokens[kind] = token
	return s.write(tokens)
}

func (s *fileStore) Clear(_ context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := tokens[kind]; !ok {
		return nil
	}

	delete(tokens, kind)
	if len(tokens) == 0 {
		err = os.Remove(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token file: %w", err)
		}
		return nil
	}

	return s.write(tokens)
}

func (s *fileStore) read() (map[Kind]string, error) {
	tokens := make(map[Kind]string, 2)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return tokens, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	err = json.Unmarshal(data, &tokens)
	if err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}

	return tokens, nil
}

func (s *fileStore) write(tokens map[Kind]string) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	err = tmp.Chmod(fileStoreFileMode)
	if err == nil {
		_, err = tmp.Write(data)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write temp token file: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}

	return nil
}

func scopeFileName(scope string) string {
	sum := blake2s.Sum256([]byte(scope))
	name := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	return strings.ToLower(name) + ".json"
}
