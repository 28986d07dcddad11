package archive

import (
	"context"
	"fmt"
)

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string // "", "localfs" or "s3"
	Path string
	S3   S3Config
}

// New opens the configured backend. An empty type disables archiving and
// returns a nil Storage.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}
