package ps

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/nickyhof/FlatDB/core"
)

var errDiskFull = errors.New("disk full")

// limitedFS accepts budget bytes across all writes and then fails. A
// negative budget never fails.
type limitedFS struct {
	billy.Filesystem
	budget int
}

func (fs *limitedFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	file, err := fs.Filesystem.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return file, err
	}
	return &limitedFile{File: file, fs: fs}, nil
}

type limitedFile struct {
	billy.File
	fs *limitedFS
}

func (f *limitedFile) Write(p []byte) (int, error) {
	if f.fs.budget < 0 || len(p) <= f.fs.budget {
		if f.fs.budget >= 0 {
			f.fs.budget -= len(p)
		}
		return f.File.Write(p)
	}
	n, _ := f.File.Write(p[:f.fs.budget])
	f.fs.budget = 0
	return n, errDiskFull
}

func setupLimitedPersistence(t *testing.T) (*Persistence, *limitedFS) {
	t.Helper()

	fs := &limitedFS{Filesystem: memfs.New(), budget: -1}
	persistence := NewPersistence(fs)
	if _, err := persistence.CreateDatabase("shop"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	if _, err := persistence.CreateTable(testTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for _, row := range [][]string{{"1", "apple"}, {"2", "pear"}} {
		if err := persistence.AppendRow("shop", "items", row); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}
	return persistence, fs
}

func TestWriteRowsFailureLeavesTruncatedFile(t *testing.T) {
	persistence, fs := setupLimitedPersistence(t)

	fs.budget = 10
	err := persistence.WriteRows("shop", "items", []string{"id", "name"}, [][]string{{"1", "apple"}, {"2", "plum"}})
	if !errors.Is(err, core.ErrIOFailure) || !errors.Is(err, errDiskFull) {
		t.Fatalf("Expected ErrIOFailure wrapping the write error, got %v", err)
	}

	// the rewrite is not atomic: only the bytes written before the failure remain
	data, err := util.ReadFile(fs, "shop/items.data")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "id$name\n1$" {
		t.Errorf("Expected a truncated data file, got %q", data)
	}
}

func TestAppendRowFailure(t *testing.T) {
	persistence, fs := setupLimitedPersistence(t)

	fs.budget = 2
	err := persistence.AppendRow("shop", "items", []string{"3", "fig"})
	if !errors.Is(err, core.ErrIOFailure) {
		t.Fatalf("Expected ErrIOFailure, got %v", err)
	}

	data, _ := util.ReadFile(fs, "shop/items.data")
	if string(data) != "id$name\n1$apple\n2$pear\n3$" {
		t.Errorf("Expected a partial trailing line, got %q", data)
	}
}
