package db

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/ps"
)

// cappedFS fails writes once budget bytes have been written. A negative
// budget never fails.
type cappedFS struct {
	billy.Filesystem
	budget int
}

func (fs *cappedFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	file, err := fs.Filesystem.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return file, err
	}
	return &cappedFile{File: file, fs: fs}, nil
}

type cappedFile struct {
	billy.File
	fs *cappedFS
}

func (f *cappedFile) Write(p []byte) (int, error) {
	if f.fs.budget < 0 || len(p) <= f.fs.budget {
		if f.fs.budget >= 0 {
			f.fs.budget -= len(p)
		}
		return f.File.Write(p)
	}
	n, _ := f.File.Write(p[:f.fs.budget])
	f.fs.budget = 0
	return n, errors.New("no space left on device")
}

func setupCappedEngine(t *testing.T) (*Engine, *cappedFS) {
	t.Helper()

	fs := &cappedFS{Filesystem: memfs.New(), budget: -1}
	engine := NewEngine(ps.NewPersistence(fs), core.Identity{Name: "test", Email: "test@test.com"})
	mustExecute(t, engine, "CREATE DATABASE testdb")
	mustExecute(t, engine, "USE testdb")
	mustExecute(t, engine, "CREATE TABLE users (id int, name text, age int, status text)")
	insertTestData(t, engine)
	return engine, fs
}

func TestEngineRewriteFailure(t *testing.T) {
	tests := []struct {
		query    string
		budget   int
		expected string
	}{
		{"UPDATE users SET age = age + 1 WHERE id = 1", 19, "id$name$age$status\n"},
		{"DELETE FROM users WHERE id = 2", 30, "id$name$age$status\n1$Alice$10$"},
		{"DELETE FROM users", 4, "id$n"},
	}

	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			engine, fs := setupCappedEngine(t)

			fs.budget = test.budget
			_, err := engine.Execute(test.query)
			if !errors.Is(err, core.ErrIOFailure) {
				t.Fatalf("Expected ErrIOFailure, got %v", err)
			}

			// nothing restores the previous contents
			data, err := util.ReadFile(fs, "testdb/users.data")
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if string(data) != test.expected {
				t.Errorf("Data file = %q, want %q", data, test.expected)
			}
		})
	}
}

func TestEngineInsertWriteFailure(t *testing.T) {
	engine, fs := setupCappedEngine(t)

	fs.budget = 0
	if _, err := engine.Execute("INSERT INTO users VALUES (4, 'Dana', 40, 'active')"); !errors.Is(err, core.ErrIOFailure) {
		t.Fatalf("Expected ErrIOFailure, got %v", err)
	}

	fs.budget = -1
	qr := mustSelect(t, engine, "SELECT * FROM users")
	if len(qr.Data) != 3 {
		t.Errorf("Expected the failed insert to leave 3 rows, got %d", len(qr.Data))
	}
}
