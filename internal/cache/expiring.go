package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ExpiringCache keeps records until a deadline. The deadline is part of the
// file name: id.<unix seconds>.
type ExpiringCache[T any] struct {
	cache *Cache[T]
	now   func() time.Time
}

// NewExpiring creates a new cache instance that supports item expiration.
func NewExpiring[T any](path string) (*ExpiringCache[T], error) {
	cache, err := New[T](path, TemporaryCache)
	if err != nil {
		return nil, fmt.Errorf("create expiring cache: %w", err)
	}
	return &ExpiringCache[T]{cache: cache, now: time.Now}, nil
}

func (c *ExpiringCache[T]) matches(id string) ([]string, error) {
	if _, err := c.cache.path(id); err != nil {
		return nil, err
	}
	return filepath.Glob(filepath.Join(c.cache.dir(), id+".*")) //nolint:wrapcheck
}

// Read hands the record id to readFn. Missing or expired records return an
// error matching os.ErrNotExist; expired files are removed.
func (c *ExpiringCache[T]) Read(id string, readFn func(io.Reader) error) (err error) {
	matches, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("read expiring cache: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("read expiring cache %q: %w", id, os.ErrNotExist)
	}

	name := filepath.Base(matches[0])
	expiry, ok := strings.CutPrefix(name, id+".")
	if !ok {
		return fmt.Errorf("invalid cache filename %q", name)
	}
	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiration timestamp in %q", name)
	}

	if expiresAt < c.now().Unix() {
		if err := os.Remove(matches[0]); err != nil {
			return fmt.Errorf("remove expired cache file: %w", err)
		}
		return fmt.Errorf("read expiring cache %q: %w", id, os.ErrNotExist)
	}

	file, err := os.Open(matches[0])
	if err != nil {
		return fmt.Errorf("open expiring cache file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return readFn(file)
}

// Write replaces the record id, valid until expiresAt (unix seconds).
func (c *ExpiringCache[T]) Write(id string, expiresAt int64, writeFn func(io.Writer) error) (err error) {
	oldFiles, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("write expiring cache: %w", err)
	}
	for _, file := range oldFiles {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("remove old cache file: %w", err)
		}
	}

	file, err := os.Create(filepath.Join(c.cache.dir(), fmt.Sprintf("%s.%d", id, expiresAt)))
	if err != nil {
		return fmt.Errorf("create expiring cache file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return writeFn(file)
}

// Get decodes the record id.
func (c *ExpiringCache[T]) Get(id string) (T, error) {
	var v T
	err := c.Read(id, func(r io.Reader) error {
		return decode(r, &v)
	})
	return v, err
}

// Set encodes v as the record id, valid for ttl.
func (c *ExpiringCache[T]) Set(id string, v T, ttl time.Duration) error {
	return c.Write(id, c.now().Add(ttl).Unix(), func(w io.Writer) error {
		return encode(w, v)
	})
}

// Delete removes every file of the record id.
func (c *ExpiringCache[T]) Delete(id string) error {
	matches, err := c.matches(id)
	if err != nil {
		return fmt.Errorf("delete expiring cache: %w", err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("delete expiring cache file: %w", err)
		}
	}
	return nil
}
