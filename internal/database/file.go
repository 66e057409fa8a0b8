// internal/database/file.go
package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	seedHostID = "example-host-1"
	filePerm   = 0o644
)

// ResolvePath maps a DATABASE_URL style value onto the JSON file path. An
// empty value, or one still naming the legacy database.db file, yields
// fallback; a .db suffix is swapped for .json.
func ResolvePath(databaseURL, fallback string) string {
	p := strings.TrimSpace(strings.TrimPrefix(databaseURL, "file:"))
	if p == "" || strings.Contains(p, "database.db") {
		return fallback
	}
	if strings.HasSuffix(p, ".db") {
		return strings.TrimSuffix(p, ".db") + ".json"
	}
	return p
}

// seedSnapshot is the dataset used for a fresh or unrecoverable file.
func seedSnapshot(now time.Time) *Snapshot {
	snap := &Snapshot{
		Hosts: []Host{{
			Meta:        Meta{ID: seedHostID, CreatedAt: now, UpdatedAt: now},
			Name:        "Home Router",
			IPAddress:   "192.168.1.1",
			Description: StringPtr("Main Gateway"),
		}},
	}
	snap.normalize()
	return snap
}

// load reads the whole file. Missing files yield the seed dataset; empty or
// unparsable files are replaced by it. Only I/O failures are returned.
func (s *Store) load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return seedSnapshot(s.timestamp()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		snap := seedSnapshot(s.timestamp())
		if err := s.save(snap); err != nil {
			return nil, err
		}
		return snap, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return s.recover(err)
	}
	snap.normalize()
	return &snap, nil
}

func (s *Store) recover(cause error) (*Snapshot, error) {
	entry := s.log.WithError(cause).WithField("path", s.path)

	aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.timestamp().Unix())
	if err := os.Rename(s.path, aside); err != nil {
		entry.WithField("quarantine_error", err).Warn("Could not move corrupt store file aside")
	} else {
		entry = entry.WithField("quarantined", aside)
	}
	entry.Error("Store file is corrupt, resetting to seed data")
	if s.observer != nil {
		s.observer.ObserveRecovery(s.path, cause)
	}

	snap := seedSnapshot(s.timestamp())
	if err := s.save(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) save(snap *Snapshot) error {
	snap.normalize()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := writeAtomic(s.path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"path":  s.path,
		"bytes": len(data),
	}).Debug("Store persisted")
	return nil
}

// writeAtomic replaces path with data via a synced temp file and rename so a
// crash never leaves a truncated file behind.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
