package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PersistentBootstrapper remembers the id returned by another Bootstrapper in
// a file, so the same anonymous account survives restarts the way a mobile
// sign-in session does.
type PersistentBootstrapper struct {
	next Bootstrapper
	path string
}

func NewPersistentBootstrapper(next Bootstrapper, path string) *PersistentBootstrapper {
	return &PersistentBootstrapper{next: next, path: path}
}

func (b *PersistentBootstrapper) Bootstrap(ctx context.Context) (string, error) {
	data, err := os.ReadFile(b.path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		log.Printf("Reading identity file %s: %v", b.path, err)
	}

	id, err := b.next.Bootstrap(ctx)
	if err != nil {
		return "", err
	}
	if err := b.save(id); err != nil {
		// The id is still valid for this process.
		log.Printf("Saving identity file %s: %v", b.path, err)
	}
	return id, nil
}

func (b *PersistentBootstrapper) save(id string) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	return os.WriteFile(b.path, []byte(id+"\n"), 0o600)
}
