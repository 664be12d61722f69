// Package cache stores records as files, one file per id.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Type is the kind of records a cache holds. Each type gets its own directory.
type Type string

// Cache types.
const (
	ConversationCache Type = "conversations"
	TemporaryCache    Type = "temp"
)

const cacheExt = ".gob"

var errInvalidID = errors.New("invalid id")

// Cache keeps records of type T in files under baseDir/type.
type Cache[T any] struct {
	baseDir string
	cType   Type
}

// New creates the cache directory if needed.
func New[T any](baseDir string, cacheType Type) (*Cache[T], error) {
	dir := filepath.Join(baseDir, string(cacheType))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{
		baseDir: baseDir,
		cType:   cacheType,
	}, nil
}

func (c *Cache[T]) dir() string {
	return filepath.Join(c.baseDir, string(c.cType))
}

func (c *Cache[T]) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", errInvalidID
	}
	return filepath.Join(c.dir(), id+cacheExt), nil
}

// Read opens the record id and hands it to readFn.
func (c *Cache[T]) Read(id string, readFn func(io.Reader) error) error {
	path, err := c.path(id)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if err := readFn(file); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

// Write replaces the record id with whatever writeFn writes.
func (c *Cache[T]) Write(id string, writeFn func(io.Writer) error) error {
	path, err := c.path(id)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if err := writeFn(file); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes a cached item by its ID.
func (c *Cache[T]) Delete(id string) error {
	path, err := c.path(id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
