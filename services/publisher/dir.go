package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sjsage522/shopcollagebot/logger"
)

// DirPublisher writes every post to a local directory instead of a channel.
// Files of the n-th post are prefixed with n so batches do not overwrite
// each other.
type DirPublisher struct {
	dir string
	log *logger.Logger

	mu    sync.Mutex
	posts int
}

// Ensure DirPublisher implements Publisher
var _ Publisher = (*DirPublisher)(nil)

// NewDirPublisher creates dir if needed and returns a publisher writing to it
func NewDirPublisher(dir string) (*DirPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirPublisher{dir: dir, log: logger.ForPublisher("dir")}, nil
}

// PublishCollage writes the files of the post
func (p *DirPublisher) PublishCollage(ctx context.Context, post Post) error {
	p.mu.Lock()
	p.posts++
	n := p.posts
	p.mu.Unlock()

	for _, f := range post.Files {
		path := filepath.Join(p.dir, fmt.Sprintf("%02d-%s", n, f.Name))
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return err
		}
		p.log.Info().Str("path", path).Int("bytes", len(f.Data)).Msg("File written")
	}
	return nil
}

// PublishPromo writes the promo as promo.json
func (p *DirPublisher) PublishPromo(ctx context.Context, promo Promo) error {
	data, err := json.MarshalIndent(promo, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.dir, "promo.json"), data, 0o644)
}

// Close does nothing
func (p *DirPublisher) Close() error {
	return nil
}
