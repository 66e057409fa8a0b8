// internal/backup/archive.go - bbolt archive of store snapshots
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var SnapshotsBucket = []byte("snapshots")

// keyLayout is fixed width so byte order matches time order.
const keyLayout = "2006-01-02T15:04:05.000000000Z"

var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrInvalidKey  = errors.New("invalid snapshot key")
	ErrEmptyBackup = errors.New("refusing to archive an empty snapshot")
)

// Source produces the bytes to archive.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Restorer accepts archived bytes back.
type Restorer interface {
	Restore(ctx context.Context, data []byte) error
}

// Info describes one archived snapshot.
type Info struct {
	Key  string    `json:"key"`
	At   time.Time `json:"at"`
	Size int       `json:"size"`
}

// Stats summarises the archive.
type Stats struct {
	Count     int       `json:"count"`
	TotalSize int64     `json:"total_size_bytes"`
	FileSize  int64     `json:"file_size_bytes"`
	Oldest    time.Time `json:"oldest,omitempty"`
	Newest    time.Time `json:"newest,omitempty"`
}

type Archive struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open backup archive: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(SnapshotsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Archive{db: db, path: path, now: time.Now}, nil
}

func (a *Archive) Path() string { return a.path }

func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores data under the current time and returns its key.
func (a *Archive) Save(ctx context.Context, data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmptyBackup
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	at := a.now().UTC()
	info := Info{At: at, Size: len(data)}
	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(SnapshotsBucket)
		key := []byte(at.Format(keyLayout))
		// Two saves in the same nanosecond would collide; step forward.
		for b.Get(key) != nil {
			at = at.Add(time.Nanosecond)
			key = []byte(at.Format(keyLayout))
		}
		info.Key, info.At = string(key), at
		return b.Put(key, data)
	})
	if err != nil {
		return Info{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return info, nil
}

// List returns every snapshot, newest first.
func (a *Archive) List(ctx context.Context) ([]Info, error) {
	var out []Info
	err := a.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(SnapshotsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			at, err := time.Parse(keyLayout, string(k))
			if err != nil {
				logrus.WithField("key", string(k)).Warn("Skipping snapshot with unparsable key")
				continue
			}
			out = append(out, Info{Key: string(k), At: at, Size: len(v)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

// Get returns a copy of the snapshot stored under key.
func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	if _, err := time.Parse(keyLayout, key); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var data []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(SnapshotsBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Latest returns the newest snapshot, or ErrNotFound on an empty archive.
func (a *Archive) Latest(ctx context.Context) (Info, []byte, error) {
	var (
		info Info
		data []byte
	)
	err := a.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(SnapshotsBucket).Cursor().Last()
		if k == nil {
			return ErrNotFound
		}
		at, _ := time.Parse(keyLayout, string(k))
		info = Info{Key: string(k), At: at, Size: len(v)}
		data = append([]byte(nil), v...)
		return nil
	})
	return info, data, err
}

// RestoreInto loads the snapshot stored under key into r.
func (a *Archive) RestoreInto(ctx context.Context, key string, r Restorer) error {
	data, err := a.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := r.Restore(ctx, data); err != nil {
		return fmt.Errorf("failed to restore snapshot %s: %w", key, err)
	}
	logrus.WithFields(logrus.Fields{
		"key":  key,
		"size": len(data),
	}).Info("Restored snapshot")
	return nil
}

// Prune removes snapshots taken before cutoff and returns how many went.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	limit := []byte(cutoff.UTC().Format(keyLayout))

	err := a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(SnapshotsBucket)
		c := b.Cursor()

		var keysToDelete [][]byte
		for k, _ := c.First(); k != nil && string(k) < string(limit); k, _ = c.Next() {
			keysToDelete = append(keysToDelete, append([]byte(nil), k...))
		}
		for _, key := range keysToDelete {
			if err := b.Delete(key); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if deleted > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted_count": deleted,
			"cutoff_time":   cutoff,
		}).Info("Pruned old snapshots")
	}
	return deleted, nil
}

func (a *Archive) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(SnapshotsBucket)
		stats.Count = b.Stats().KeyN

		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			stats.TotalSize += int64(len(v))
		}
		if k, _ := c.First(); k != nil {
			stats.Oldest, _ = time.Parse(keyLayout, string(k))
		}
		if k, _ := c.Last(); k != nil {
			stats.Newest, _ = time.Parse(keyLayout, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get archive stats: %w", err)
	}

	if fileInfo, err := os.Stat(a.path); err == nil {
		stats.FileSize = fileInfo.Size()
	}
	return stats, nil
}
