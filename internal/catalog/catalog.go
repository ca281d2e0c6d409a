package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapdist-go/internal/telemetry/metric"
)

// Common errors.
var (
	ErrNotFound = errors.New("catalog: snapshot not found")
	ErrClosed   = errors.New("catalog: closed")
)

const keyPrefix = "snap/"

// Info describes one registered snapshot archive.
type Info struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum"` // sha256 of the archive file
	CreatedAt int64  `json:"created_at"` // Unix milliseconds
}

// Catalog is a Badger-backed snapshot registry.
type Catalog struct {
	db      *badger.DB
	logger  *slog.Logger
	metrics *metric.Metrics
	closed  bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the catalog's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// WithMetrics attaches a metrics set; the entry gauge tracks the
// number of registered snapshots.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// Open opens (or creates) a catalog in dir.
func Open(dir string, opts ...Option) (*Catalog, error) {
	if dir == "" {
		return nil, fmt.Errorf("catalog: dir is required")
	}

	c := &Catalog{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	badgerOpts := badger.DefaultOptions(dir)
	badgerOpts.Logger = &badgerLogger{logger: c.logger}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	c.db = db

	if c.metrics != nil {
		if infos, err := c.List(); err == nil {
			c.metrics.CatalogEntries.Set(float64(len(infos)))
		}
	}
	c.logger.Debug("catalog opened", "dir", dir)
	return c, nil
}

// Add registers an archive file, computing its size and checksum.
func (c *Catalog) Add(archivePath string) (*Info, error) {
	if c.closed {
		return nil, ErrClosed
	}

	stat, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("catalog: stat %s: %w", archivePath, err)
	}
	sum, err := checksumFile(archivePath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(archivePath)
	name = strings.TrimSuffix(name, ".tar.gz")

	info := &Info{
		ID:        ulid.Make().String(),
		Name:      name,
		Path:      archivePath,
		Size:      stat.Size(),
		Checksum:  sum,
		CreatedAt: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal info: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+info.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: put: %w", err)
	}

	c.bumpGauge()
	c.logger.Info("snapshot registered",
		"id", info.ID,
		"name", info.Name,
		"path", info.Path,
		"size", info.Size)
	return info, nil
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (*Info, error) {
	if c.closed {
		return nil, ErrClosed
	}
	var info Info
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	return &info, nil
}

// List returns all entries, oldest first (ULIDs sort by creation time).
func (c *Catalog) List() ([]*Info, error) {
	if c.closed {
		return nil, ErrClosed
	}
	var infos []*Info
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var info Info
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			})
			if err != nil {
				return err
			}
			infos = append(infos, &info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// FindByPath returns the entry registered for an archive path, if any.
func (c *Catalog) FindByPath(archivePath string) (*Info, error) {
	infos, err := c.List()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Path == archivePath {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: path %s", ErrNotFound, archivePath)
}

// Remove deletes the entry with the given id. The archive file itself
// is left alone.
func (c *Catalog) Remove(id string) error {
	if c.closed {
		return ErrClosed
	}
	if _, err := c.Get(id); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", id, err)
	}
	c.bumpGauge()
	c.logger.Info("snapshot unregistered", "id", id)
	return nil
}

// Close shuts down the catalog.
func (c *Catalog) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}

func (c *Catalog) bumpGauge() {
	if c.metrics == nil {
		return
	}
	if infos, err := c.List(); err == nil {
		c.metrics.CatalogEntries.Set(float64(len(infos)))
	}
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("catalog: checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf("badger: "+strings.TrimSpace(format), args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf("badger: "+strings.TrimSpace(format), args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+strings.TrimSpace(format), args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+strings.TrimSpace(format), args...))
}
