package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// IdentityStore persists client ids in a small YAML file, one entry per
// profile, so a second terminal can act as a different player.
type IdentityStore struct {
	path    string
	profile string
	mu      sync.Mutex
}

type identityFile struct {
	Profiles map[string]string `yaml:"profiles"`
}

// DefaultPath returns <user config dir>/quizblitz/identity.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "quizblitz", "identity.yaml"), nil
}

func NewIdentityStore(path, profile string) *IdentityStore {
	return &IdentityStore{path: path, profile: profile}
}

func (s *IdentityStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return "", err
	}
	return doc.Profiles[s.profile], nil
}

func (s *IdentityStore) Save(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Profiles[s.profile] = clientID

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *IdentityStore) read() (identityFile, error) {
	doc := identityFile{Profiles: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.Profiles == nil {
		doc.Profiles = map[string]string{}
	}
	return doc, nil
}
