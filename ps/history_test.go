package ps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/FlatDB/core"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

func TestHistoryMemory(t *testing.T) {
	persistence := setupTestPersistence(t)

	history, err := NewHistory(persistence)
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}

	if latest := history.LatestTransaction(); latest.Id != "" {
		t.Errorf("Expected empty journal, got %v", latest)
	}

	txn, err := history.Record(testIdentity, "CREATE TABLE items")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if txn.Id == "" {
		t.Error("Expected transaction ID to be set")
	}

	persistence.AppendRow("shop", "items", []string{"1", "apple"})
	if _, err := history.Record(testIdentity, "INSERT INTO items"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	latest := history.LatestTransaction()
	if latest.Author != "test <test@test.com>" {
		t.Errorf("Unexpected author %q", latest.Author)
	}

	log, err := history.Log(0)
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(log))
	}
	if !strings.HasPrefix(log[0].Message, "INSERT INTO items") {
		t.Errorf("Expected newest first, got %q", log[0].Message)
	}

	limited, _ := history.Log(1)
	if len(limited) != 1 {
		t.Errorf("Expected 1 transaction, got %d", len(limited))
	}
}

func TestHistoryFileReopen(t *testing.T) {
	dir := t.TempDir()

	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}
	persistence.CreateDatabase("shop")

	history, err := NewHistory(persistence)
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}
	if _, err := history.Record(testIdentity, "CREATE DATABASE shop"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		t.Fatalf("Expected journal in base directory: %v", err)
	}

	reopened, err := NewHistory(persistence)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if reopened.LatestTransaction().Id == "" {
		t.Error("Expected journal to survive reopen")
	}

	databases, _ := persistence.ListDatabases()
	for _, db := range databases {
		if db == ".git" {
			t.Error("Journal directory must not be listed as a database")
		}
	}
}
