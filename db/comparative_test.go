//go:build comparative

package db

import (
	gosql "database/sql"
	"fmt"
	"reflect"
	"strconv"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

// setupDuckDB loads the same rows as setupComparative into an in-memory
// DuckDB table.
func setupDuckDB(t *testing.T) *gosql.DB {
	t.Helper()

	duck, err := gosql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open DuckDB: %v", err)
	}
	t.Cleanup(func() { duck.Close() })

	if _, err := duck.Exec("CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER, city VARCHAR)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for i := 1; i <= 200; i++ {
		_, err := duck.Exec("INSERT INTO users VALUES (?, ?, ?, ?)",
			i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10))
		if err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}
	return duck
}

func setupComparative(t *testing.T) *Engine {
	engine := setupTestEngine(t)
	mustExecute(t, engine, "CREATE TABLE people (id int, name text, age int, city text)")
	for i := 1; i <= 200; i++ {
		mustExecute(t, engine, fmt.Sprintf("INSERT INTO people VALUES (%d, 'User%d', %d, 'City%d')", i, i, 20+i%50, i%10))
	}
	return engine
}

func duckIds(t *testing.T, duck *gosql.DB, where string) [][]string {
	t.Helper()

	rows, err := duck.Query("SELECT id FROM users WHERE " + where + " ORDER BY id")
	if err != nil {
		t.Fatalf("DuckDB query failed: %v", err)
	}
	defer rows.Close()

	result := [][]string{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		result = append(result, []string{strconv.Itoa(id)})
	}
	return result
}

// TestWhereMatchesDuckDB checks single-condition filters against DuckDB.
func TestWhereMatchesDuckDB(t *testing.T) {
	engine := setupComparative(t)
	duck := setupDuckDB(t)

	conditions := []string{
		"age > 40",
		"age < 25",
		"age = 33",
		"id > 150",
		"id < 3",
		"city = 'City7'",
		"name = 'User42'",
	}

	for _, condition := range conditions {
		t.Run(condition, func(t *testing.T) {
			qr := mustSelect(t, engine, "SELECT id FROM people WHERE "+condition)
			expected := duckIds(t, duck, condition)
			if !reflect.DeepEqual(qr.Data, expected) {
				t.Errorf("WHERE %s: got %d rows, DuckDB returned %d", condition, len(qr.Data), len(expected))
			}
		})
	}
}

func TestUpdateMatchesDuckDB(t *testing.T) {
	engine := setupComparative(t)
	duck := setupDuckDB(t)

	mustExecute(t, engine, "UPDATE people SET age = age + 5 WHERE id < 50")
	if _, err := duck.Exec("UPDATE users SET age = age + 5 WHERE id < 50"); err != nil {
		t.Fatalf("DuckDB update failed: %v", err)
	}

	qr := mustSelect(t, engine, "SELECT id FROM people WHERE age > 60")
	expected := duckIds(t, duck, "age > 60")
	if !reflect.DeepEqual(qr.Data, expected) {
		t.Errorf("Got %v, DuckDB returned %v", qr.Data, expected)
	}
}
