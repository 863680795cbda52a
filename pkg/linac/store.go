package linac

import (
	"sync"

	"github.com/matzehuels/leafshift/pkg/mlc"
)

// Store guards the live linac configuration shared by concurrent
// conversions. Readers take a [Config] snapshot by value; updates replace the
// whole configuration and are persisted when the store has a path.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	path string
}

// NewStore creates a store. An empty path keeps updates in memory only.
func NewStore(cfg Config, path string) *Store {
	return &Store{cfg: cfg, path: path}
}

// OpenStore loads the configuration at path into a new store.
func OpenStore(path string) (*Store, error) {
	cfg, _, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(cfg, path), nil
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the file backing the store, or "".
func (s *Store) Path() string {
	return s.path
}

// Update sets the machine for one family.
func (s *Store) Update(f mlc.Family, m Machine) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.cfg.With(f, m)
	if err != nil {
		return s.cfg, err
	}
	return next, s.commit(next)
}

// Replace swaps in a complete configuration.
func (s *Store) Replace(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(cfg)
}

// commit validates, persists and installs cfg. Callers hold mu.
func (s *Store) commit(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.path != "" {
		if err := SaveFile(s.path, cfg); err != nil {
			return err
		}
	}
	s.cfg = cfg
	return nil
}
