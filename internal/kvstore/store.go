package kvstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/pslog"
)

// Store persists JSON-encoded slot values to disk, one file per key.
// It is the durable half of the cross-context store: coordinator
// restarts lose nothing because every slot write lands here before
// the change notification goes out.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a slot store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a slot store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Get reads the slot into out. A missing slot is (false, nil).
func (s *Store) Get(key string, out any) (bool, error) {
	path := s.pathForKey(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("slot load miss", "key", key)
			}
			return false, nil
		}
		if s.log != nil {
			s.log.Warn("slot load failed", "key", key, "err", err)
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		if s.log != nil {
			s.log.Warn("slot load failed", "key", key, "err", err)
		}
		return false, err
	}
	if s.log != nil {
		s.log.Debug("slot load ok", "key", key)
	}
	return true, nil
}

// Set writes the slot atomically via a temp file and rename.
func (s *Store) Set(key string, value any) error {
	path := s.pathForKey(key)
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "slot-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if s.log != nil {
			s.log.Warn("slot save failed", "key", key, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("slot save ok", "key", key)
	}
	return nil
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *Store) Delete(key string) error {
	path := s.pathForKey(key)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if s.log != nil {
			s.log.Warn("slot delete failed", "key", key, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("slot delete ok", "key", key)
	}
	return nil
}

func (s *Store) pathForKey(key string) string {
	name := sanitize(key)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
