package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/nickyhof/FlatDB/core"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// CredentialStore keeps one "username=hash;" entry per line in a text
// file. Hashes are bcrypt.
type CredentialStore struct {
	fs   billy.Filesystem
	path string
	mu   sync.Mutex
}

func NewCredentialStore(filesystem billy.Filesystem, path string) *CredentialStore {
	return &CredentialStore{fs: filesystem, path: path}
}

// OpenCredentialStore opens the credential file at path on the local
// filesystem. The file is created on the first Register.
func OpenCredentialStore(path string) (*CredentialStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", core.ErrIOFailure, dir, err)
	}
	return NewCredentialStore(osfs.New(dir), filepath.Base(path)), nil
}

func (store *CredentialStore) load() (map[string]string, error) {
	data, err := util.ReadFile(store.fs, store.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIOFailure, store.path, err)
	}

	users := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		for _, entry := range strings.Split(line, ";") {
			username, hash, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok || username == "" {
				continue
			}
			users[username] = hash
		}
	}
	return users, nil
}

// Register appends a new user. Usernames may not contain '=' or ';' since
// those delimit entries in the file.
func (store *CredentialStore) Register(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("username and password must not be empty")
	}
	if strings.ContainsAny(username, "=;\n") {
		return fmt.Errorf("username %q contains a reserved character", username)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	users, err := store.load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	file, err := store.fs.OpenFile(store.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", core.ErrIOFailure, store.path, err)
	}
	if _, err := fmt.Fprintf(file, "%s=%s;\n", username, hash); err != nil {
		file.Close()
		return fmt.Errorf("%w: write %s: %w", core.ErrIOFailure, store.path, err)
	}
	return file.Close()
}

// Verify checks a username and password. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (store *CredentialStore) Verify(username, password string) error {
	store.mu.Lock()
	users, err := store.load()
	store.mu.Unlock()
	if err != nil {
		return err
	}

	hash, ok := users[strings.TrimSpace(username)]
	if !ok || !CheckPassword(hash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// Users returns the number of registered users.
func (store *CredentialStore) Users() (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	users, err := store.load()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
