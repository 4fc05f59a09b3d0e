package archive

import (
	"context"
	"fmt"

	"github.com/yourorg/market-insights/internal/config"
)

// Archiver persists raw provider payloads for audit and replay. Archiving is
// always best-effort: callers log failures and move on.
type Archiver interface {
	// Store saves a payload under the given key and returns its location.
	Store(ctx context.Context, key string, payload []byte) (string, error)
}

// NewArchiver creates an archiver implementation based on the configuration
func NewArchiver(cfg config.ArchiveConfig) (Archiver, error) {
	switch cfg.Type {
	case "", "none":
		return NoopArchiver{}, nil
	case "local":
		return NewLocalArchiver(cfg.Dir)
	case "s3":
		return NewS3Archiver(cfg)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

// NoopArchiver discards every payload.
type NoopArchiver struct{}

// Store implements Archiver
func (NoopArchiver) Store(ctx context.Context, key string, payload []byte) (string, error) {
	return "", nil
}
