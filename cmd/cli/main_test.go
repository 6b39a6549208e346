package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/nickyhof/FlatDB"
	"github.com/nickyhof/FlatDB/auth"
	"github.com/nickyhof/FlatDB/config"
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/ps"
)

// scriptedEditor replays canned input lines and reports EOF when empty.
type scriptedEditor struct {
	lines   []string
	prompts []string
	history []string
}

func (e *scriptedEditor) next(prompt string) (string, error) {
	e.prompts = append(e.prompts, prompt)
	if len(e.lines) == 0 {
		return "", io.EOF
	}
	line := e.lines[0]
	e.lines = e.lines[1:]
	return line, nil
}

func (e *scriptedEditor) Prompt(prompt string) (string, error) {
	return e.next(prompt)
}

func (e *scriptedEditor) PasswordPrompt(prompt string) (string, error) {
	return e.next(prompt)
}

func (e *scriptedEditor) AppendHistory(item string) {
	e.history = append(e.history, item)
}

func setupTestCLI(t *testing.T, lines ...string) (*CLI, *bytes.Buffer) {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	var out bytes.Buffer
	cli := NewCLI(FlatDB.Open(persistence), nil, &scriptedEditor{lines: lines}, &out)
	cli.startSession(core.Identity{Name: "test", Email: "test@test.com"})
	return cli, &out
}

func setupTestStore(t *testing.T) *auth.CredentialStore {
	t.Helper()
	store := auth.NewCredentialStore(memfs.New(), "user_info.txt")
	if err := store.Register("alice", "secret"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return store
}

func fixedChallenge(t *testing.T, code int) {
	restore := newChallenge
	newChallenge = func() auth.Challenge { return auth.Challenge{Code: code} }
	t.Cleanup(func() { newChallenge = restore })
}

func TestCLIStatements(t *testing.T) {
	cli, out := setupTestCLI(t,
		"CREATE DATABASE shop;",
		"USE shop;",
		"CREATE TABLE items",
		"(id int, name text);",
		"INSERT INTO items VALUES (1, 'pen'); INSERT INTO items VALUES (2, 'ink');",
		"SELECT * FROM items WHERE id > 1;",
	)

	if quit := cli.repl(); !quit {
		t.Error("EOF should quit the shell")
	}

	output := out.String()
	if !strings.Contains(output, "Database created successfully.") {
		t.Errorf("Missing create message in %q", output)
	}
	if !strings.Contains(output, "Table 'items' created successfully.") {
		t.Errorf("Multi-line CREATE TABLE did not run: %q", output)
	}
	if !strings.Contains(output, "2              ink") || strings.Contains(output, "1              pen") {
		t.Errorf("Unexpected SELECT output %q", output)
	}
	if !strings.Contains(output, "1 rows") {
		t.Errorf("Missing row count in %q", output)
	}
}

func TestCLIErrorOutput(t *testing.T) {
	cli, out := setupTestCLI(t, "SELECT * FROM items;")
	cli.repl()

	if !strings.Contains(out.String(), "no database selected") {
		t.Errorf("Expected the error to be shown, got %q", out.String())
	}
	if strings.Contains(out.String(), "0 rows") {
		t.Errorf("A failed SELECT must not print an empty result, got %q", out.String())
	}
}

func TestCLIExitLogsOut(t *testing.T) {
	cli, out := setupTestCLI(t, "exit", "SELECT 1;")

	if quit := cli.repl(); quit {
		t.Error("exit should log out, not quit")
	}
	if !strings.Contains(out.String(), "Logged out.") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)
	editor := cli.line.(*scriptedEditor)

	cli.addToHistory("SELECT 1;")
	cli.addToHistory("SELECT 1;")
	cli.addToHistory("SELECT 2;")

	if len(cli.history) != 2 {
		t.Errorf("Duplicate consecutive commands should be skipped, got %v", cli.history)
	}
	if len(editor.history) != 2 {
		t.Errorf("Line editor history should match, got %v", editor.history)
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < maxHistory+10; i++ {
		cli.addToHistory(strings.Repeat("x", i+1))
	}
	if len(cli.history) != maxHistory {
		t.Errorf("Expected history capped at %d, got %d", maxHistory, len(cli.history))
	}
}

func TestCLIGetPrompt(t *testing.T) {
	cli, _ := setupTestCLI(t)

	if got := cli.getPrompt(false); got != "flatdb> " {
		t.Errorf("Unexpected prompt %q", got)
	}
	if got := cli.getPrompt(true); got != "   ...> " {
		t.Errorf("Unexpected continuation prompt %q", got)
	}

	cli.engine.Execute("CREATE DATABASE shop")
	cli.engine.Execute("USE shop")
	cli.engine.Execute("BEGIN")
	if got := cli.getPrompt(false); got != "flatdb (shop)*> " {
		t.Errorf("Unexpected prompt %q", got)
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, out := setupTestCLI(t)
	cli.engine.Execute("CREATE DATABASE shop")
	cli.engine.Execute("USE shop")
	cli.engine.Execute("CREATE TABLE items (id int, name text)")

	tests := []struct {
		command  string
		expected string
	}{
		{".help", ".schema <table>"},
		{".databases", "shop"},
		{".tables", "items"},
		{".schema items", "name"},
		{".schema", "Usage: .schema <table>"},
		{".export", "Usage: .export"},
		{".log", "history journal is not enabled"},
		{".remote", "history journal is not enabled"},
		{".remote add origin", "Usage: .remote add"},
		{".push", "history journal is not enabled"},
		{".version", "FlatDB version"},
		{".bogus", "Unknown command"},
	}

	for _, test := range tests {
		out.Reset()
		if quit := cli.handleCommand(test.command); quit {
			t.Errorf("%s should not quit", test.command)
		}
		if !strings.Contains(out.String(), test.expected) {
			t.Errorf("%s: expected %q in output, got %q", test.command, test.expected, out.String())
		}
	}

	if quit := cli.handleCommand(".quit"); !quit {
		t.Error(".quit should quit")
	}
}

func TestCLIMenuLogin(t *testing.T) {
	fixedChallenge(t, 1234)

	persistence, _ := ps.NewMemoryPersistence()
	var out bytes.Buffer
	editor := &scriptedEditor{lines: []string{
		"1", "alice", "wrong",
		"1", "alice", "secret", "9999",
		"1", "alice", "secret", "1234",
		"CREATE DATABASE shop;",
		"exit",
		"3",
	}}
	cli := NewCLI(FlatDB.Open(persistence), setupTestStore(t), editor, &out)

	cli.Run()

	output := out.String()
	for _, expected := range []string{
		"Login failed due to incorrect credentials.",
		"Captcha validation failed.",
		"Captcha: 1234",
		"Login successful!",
		"Database created successfully.",
		"Logged out.",
		"Goodbye!",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected %q in output %q", expected, output)
		}
	}
	if cli.engine.Identity.Name != "alice" {
		t.Errorf("Session identity should be the logged in user, got %q", cli.engine.Identity.Name)
	}
}

func TestCLIMenuRegister(t *testing.T) {
	persistence, _ := ps.NewMemoryPersistence()
	store := setupTestStore(t)
	var out bytes.Buffer
	editor := &scriptedEditor{lines: []string{
		"2", "bob", "builder",
		"2", "alice", "again",
		"7",
	}}
	cli := NewCLI(FlatDB.Open(persistence), store, editor, &out)

	cli.Run()

	if err := store.Verify("bob", "builder"); err != nil {
		t.Errorf("bob should be registered: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "User registered successfully.") {
		t.Errorf("Missing success message in %q", output)
	}
	if !strings.Contains(output, "Registration failed") {
		t.Errorf("Duplicate registration should fail: %q", output)
	}
	if !strings.Contains(output, "Invalid option: 7") {
		t.Errorf("Missing invalid option message in %q", output)
	}
}

func TestCLIRunScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sql")
	script := `CREATE DATABASE shop;
USE shop;
-- the catalog
CREATE TABLE items (id int, name text);
INSERT INTO items VALUES (1, 'pen');
INSERT INTO missing VALUES (2);
SELECT name FROM items;`
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	persistence, _ := ps.NewMemoryPersistence()
	var out bytes.Buffer
	cli := NewCLI(FlatDB.Open(persistence), nil, &scriptedEditor{}, &out)

	if err := cli.RunScript(context.Background(), path); err != nil {
		t.Fatalf("RunScript failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "Import complete: 5 succeeded, 1 failed") {
		t.Errorf("Unexpected summary in %q", output)
	}
	if !strings.Contains(output, "pen") {
		t.Errorf("SELECT output missing from %q", output)
	}
}

func TestCLIRunScriptRequiresLogin(t *testing.T) {
	fixedChallenge(t, 4321)

	persistence, _ := ps.NewMemoryPersistence()
	var out bytes.Buffer
	editor := &scriptedEditor{lines: []string{"alice", "nope"}}
	cli := NewCLI(FlatDB.Open(persistence), setupTestStore(t), editor, &out)

	if err := cli.RunScript(context.Background(), "unused.sql"); err == nil {
		t.Error("RunScript should fail without a valid login")
	}
}

func TestCLIExportImport(t *testing.T) {
	cli, out := setupTestCLI(t)
	cli.engine.Execute("CREATE DATABASE shop")
	cli.engine.Execute("USE shop")
	cli.engine.Execute("CREATE TABLE items (id int, name text)")
	cli.engine.Execute("INSERT INTO items VALUES (1, 'pen')")

	dest := filepath.Join(t.TempDir(), "items.data")
	cli.handleCommand(".export items " + dest)

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Export did not write the file: %v (output %q)", err, out.String())
	}
	if string(data) != "id$name\n1$pen\n" {
		t.Errorf("Unexpected export %q", data)
	}

	out.Reset()
	cli.handleCommand(".import " + filepath.Join(t.TempDir(), "missing.sql"))
	if !strings.Contains(out.String(), "i/o failure") {
		t.Errorf("Expected an I/O failure for a missing script, got %q", out.String())
	}
}

func TestRootCommandFlags(t *testing.T) {
	cfg := config.Default()
	cmd := newRootCommand(&cfg)

	if err := cmd.ParseFlags([]string{"--base-dir", "/tmp/x", "-f", "seed.sql", "--no-auth"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.BaseDir != "/tmp/x" {
		t.Errorf("BaseDir = %q", cfg.BaseDir)
	}
	if file, _ := cmd.Flags().GetString("file"); file != "seed.sql" {
		t.Errorf("file = %q", file)
	}
	if noAuth, _ := cmd.Flags().GetBool("no-auth"); !noAuth {
		t.Error("no-auth should be set")
	}
}

func TestCLIRemote(t *testing.T) {
	cli, out := setupTestCLI(t)
	if err := cli.instance.EnableHistory(); err != nil {
		t.Fatalf("EnableHistory failed: %v", err)
	}
	cli.startSession(core.Identity{Name: "test", Email: "test@test.com"})

	tests := []struct {
		command  string
		expected string
	}{
		{".remote add backup https://example.com/journal.git", "Remote backup added"},
		{".remote", "https://example.com/journal.git"},
		{".push backup", "journal has no entries"},
		{".remote remove backup", "Remote backup removed"},
		{".remote rename a b", "Usage: .remote"},
	}

	for _, test := range tests {
		out.Reset()
		cli.handleCommand(test.command)
		if !strings.Contains(out.String(), test.expected) {
			t.Errorf("%s: expected %q in output, got %q", test.command, test.expected, out.String())
		}
	}
}

func TestJournalAuth(t *testing.T) {
	if auth := journalAuth(config.JournalConfig{}); auth != nil {
		t.Errorf("Expected no auth, got %+v", auth)
	}

	auth := journalAuth(config.JournalConfig{Token: "t", SSHKey: "/k"})
	if auth.Type != ps.AuthTypeToken || auth.Token != "t" {
		t.Errorf("Token should win, got %+v", auth)
	}

	auth = journalAuth(config.JournalConfig{SSHKey: "/k", SSHPassphrase: "p"})
	if auth.Type != ps.AuthTypeSSH || auth.KeyPath != "/k" || auth.Passphrase != "p" {
		t.Errorf("Unexpected ssh auth %+v", auth)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long statement", 10, "this is..."},
		{"multi\nline", 20, "multi line"},
	}

	for _, test := range tests {
		if got := truncate(test.input, test.max); got != test.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", test.input, test.max, got, test.expected)
		}
	}
}
