package ps

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/nickyhof/FlatDB/core"
)

var ErrNotInitialized = errors.New("persistence layer not initialized")

// Persistence stores databases as directories of flat files on a billy
// filesystem rooted at the base directory.
type Persistence struct {
	fs     billy.Filesystem
	memory bool
}

// IsInitialized returns true if the persistence layer has a filesystem
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.fs != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// Filesystem exposes the underlying filesystem rooted at the base directory.
func (p *Persistence) Filesystem() billy.Filesystem {
	return p.fs
}

// Root returns the base directory path.
func (p *Persistence) Root() string {
	return p.fs.Root()
}

// NewPersistence stores databases on an existing filesystem rooted at the
// base directory.
func NewPersistence(fs billy.Filesystem) *Persistence {
	return &Persistence{fs: fs}
}

func NewMemoryPersistence() (*Persistence, error) {
	return &Persistence{fs: memfs.New(), memory: true}, nil
}

func NewFilePersistence(baseDir string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, ioFailure("create base directory", baseDir, err)
	}

	return &Persistence{fs: osfs.New(baseDir)}, nil
}

func ioFailure(action string, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", core.ErrIOFailure, action, path, err)
}
