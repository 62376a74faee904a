// Package cache keeps the result of a weaving run on disk, keyed by the
// snapshot content, the options that influence the output and the tool
// version. A hit lets the CLI write the units without weaving again.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion changes whenever Payload changes shape.
const SchemaVersion uint16 = 1

var ErrSchema = errors.New("cache entry has an old schema")

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Key derives the cache key: H(schema || version || snapshot || opts...).
// The order of opts must be stable.
func Key(version string, snapshot []byte, opts ...string) Digest {
	h := sha256.New()
	var schema [2]byte
	binary.BigEndian.PutUint16(schema[:], SchemaVersion)
	_, _ = h.Write(schema[:])
	writeField(h, []byte(version))
	writeField(h, snapshot)
	for _, o := range opts {
		writeField(h, []byte(o))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// writeField length-prefixes b so that adjacent fields cannot run together.
func writeField(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = h.Write(n[:])
	_, _ = h.Write(b)
}

// Unit is one emitted file.
type Unit struct {
	Path      string
	Text      string
	Generated bool
}

// Diagnostic is a diagnostic whose span points into the snapshot document.
// Located is false for diagnostics without a position. Notes are not kept.
type Diagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Target   string
	Aspect   string
	Located  bool
	Start    uint32
	End      uint32
}

// Payload is one cached run.
type Payload struct {
	Schema      uint16
	Created     int64
	Units       []Unit
	Diagnostics []Diagnostic
	Failed      []string
}

// DiskCache stores payloads as msgpack files. It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
	now func() time.Time
}

// Open uses dir, creating it when needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &DiskCache{dir: dir, now: time.Now}, nil
}

// OpenDefault uses $XDG_CACHE_HOME/app, or ~/.cache/app.
func OpenDefault(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "runs", key.String()+".mp")
}

// Put writes payload under key, replacing any previous entry atomically.
func (c *DiskCache) Put(key Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = SchemaVersion
	if payload.Created == 0 {
		payload.Created = c.now().Unix()
	}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload under key. A missing entry is (false, nil); an
// entry written by another schema is reported as ErrSchema.
func (c *DiskCache) Get(key Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if out.Schema != SchemaVersion {
		return false, fmt.Errorf("%w: %d", ErrSchema, out.Schema)
	}
	return true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + c.now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
