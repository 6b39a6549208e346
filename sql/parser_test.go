package sql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nickyhof/FlatDB/core"
)

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected Statement
	}{
		{
			"create database",
			"CREATE DATABASE shop",
			CreateDatabaseStatement{Database: "shop"},
		},
		{
			"create database lowercase with semicolon",
			"create database shop;",
			CreateDatabaseStatement{Database: "shop"},
		},
		{
			"use",
			"USE shop",
			UseStatement{Database: "shop"},
		},
		{
			"create table",
			"CREATE TABLE items (id int, name text, stock int)",
			CreateTableStatement{
				Table: "items",
				Columns: []core.Column{
					{Name: "id", Type: "int"},
					{Name: "name", Type: "text"},
					{Name: "stock", Type: "int"},
				},
			},
		},
		{
			"create table without space before paren",
			"create table items(id int)",
			CreateTableStatement{
				Table:   "items",
				Columns: []core.Column{{Name: "id", Type: "int"}},
			},
		},
		{
			"insert",
			"INSERT INTO items VALUES (1, 'apple', 5)",
			InsertStatement{Rows: []InsertRow{{Table: "items", Values: []string{"1", "apple", "5"}}}},
		},
		{
			"insert keeps commas inside quotes",
			"INSERT INTO items VALUES (1, 'a, b')",
			InsertStatement{Rows: []InsertRow{{Table: "items", Values: []string{"1", "a, b"}}}},
		},
		{
			"insert multiple clauses",
			"INSERT INTO items VALUES (1, 'apple'); INSERT INTO items VALUES (2, 'pear');",
			InsertStatement{Rows: []InsertRow{
				{Table: "items", Values: []string{"1", "apple"}},
				{Table: "items", Values: []string{"2", "pear"}},
			}},
		},
		{
			"select wildcard",
			"SELECT * FROM items",
			SelectStatement{Table: "items", Wildcard: true},
		},
		{
			"select columns",
			"SELECT name, id FROM items;",
			SelectStatement{Table: "items", Columns: []string{"name", "id"}},
		},
		{
			"select with where string",
			"SELECT * FROM items WHERE name = 'apple'",
			SelectStatement{
				Table:    "items",
				Wildcard: true,
				Where:    Predicate{Column: "name", Operator: EqualsOperator, Literal: "apple", Present: true},
			},
		},
		{
			"select with where number",
			"select id from items where stock > 15",
			SelectStatement{
				Table:   "items",
				Columns: []string{"id"},
				Where:   Predicate{Column: "stock", Operator: GreaterThanOperator, Literal: "15", Present: true},
			},
		},
		{
			"update literal",
			"UPDATE items SET name = 'kiwi' WHERE id = 1",
			UpdateStatement{
				Table:   "items",
				Updates: []SetClause{{Column: "name", Value: "kiwi"}},
				Where:   Predicate{Column: "id", Operator: EqualsOperator, Literal: "1", Present: true},
			},
		},
		{
			"update arithmetic",
			"UPDATE items SET stock = stock - 3, name=pear WHERE id = 1",
			UpdateStatement{
				Table: "items",
				Updates: []SetClause{
					{Column: "stock", Value: "stock - 3", Arithmetic: true, Delta: -3},
					{Column: "name", Value: "pear"},
				},
				Where: Predicate{Column: "id", Operator: EqualsOperator, Literal: "1", Present: true},
			},
		},
		{
			"update arithmetic ignores identifier",
			"UPDATE items SET stock=qty+10",
			UpdateStatement{
				Table:   "items",
				Updates: []SetClause{{Column: "stock", Value: "qty+10", Arithmetic: true, Delta: 10}},
			},
		},
		{
			"delete all",
			"DELETE FROM items",
			DeleteStatement{Table: "items"},
		},
		{
			"delete with where",
			"DELETE FROM items WHERE stock < 2;",
			DeleteStatement{
				Table: "items",
				Where: Predicate{Column: "stock", Operator: LessThanOperator, Literal: "2", Present: true},
			},
		},
		{
			"begin transaction",
			"BEGIN TRANSACTION",
			BeginStatement{},
		},
		{
			"bare begin",
			"begin;",
			BeginStatement{},
		},
		{
			"database name starting with a digit",
			"CREATE DATABASE 2024db",
			CreateDatabaseStatement{Database: "2024db"},
		},
		{
			"hyphenated database name",
			"USE my-db;",
			UseStatement{Database: "my-db"},
		},
		{
			"hyphenated table name",
			"DELETE FROM order-items WHERE id = 1",
			DeleteStatement{
				Table: "order-items",
				Where: Predicate{Column: "id", Operator: EqualsOperator, Literal: "1", Present: true},
			},
		},
		{
			"commit",
			"commit;",
			CommitStatement{},
		},
		{
			"rollback",
			"ROLLBACK",
			RollbackStatement{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			statement, err := NewParser(test.sql).Parse()
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", test.sql, err)
			}
			if !reflect.DeepEqual(statement, test.expected) {
				t.Errorf("Parse(%q)\n got: %#v\nwant: %#v", test.sql, statement, test.expected)
			}
		})
	}
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"create table without columns", "CREATE TABLE items"},
		{"create table column missing type", "CREATE TABLE items (id int, name)"},
		{"create table column with extra token", "CREATE TABLE items (id int primary)"},
		{"create database without name", "CREATE DATABASE"},
		{"hidden database name", "USE .git"},
		{"use trailing tokens", "USE shop now"},
		{"insert without values", "INSERT INTO items (1, 2)"},
		{"select without from", "SELECT *"},
		{"select without table", "SELECT * FROM"},
		{"select trailing garbage", "SELECT * FROM items ORDER"},
		{"update without set", "UPDATE items name = 'x'"},
		{"update assignment without equals", "UPDATE items SET name"},
		{"update assignment with two equals", "UPDATE items SET name = a = b"},
		{"update operand overflow", "UPDATE items SET stock = stock + 99999999999999999999999"},
		{"delete without from", "DELETE items"},
		{"begin with unknown word", "BEGIN WORK"},
		{"commit trailing tokens", "COMMIT now"},
		{"database name with path separator", "CREATE DATABASE a/b"},
		{"table name climbing out", "SELECT * FROM ..items"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewParser(test.sql).Parse()
			if !errors.Is(err, core.ErrMalformedStatement) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedStatement", test.sql, err)
			}
		})
	}
}

func TestParserUnrecognized(t *testing.T) {
	for _, query := range []string{"DROP TABLE items", "SHOW TABLES", "CREATE INDEX idx", "", "hello"} {
		_, err := NewParser(query).Parse()
		if !errors.Is(err, ErrUnrecognizedStatement) {
			t.Errorf("Parse(%q) error = %v, want ErrUnrecognizedStatement", query, err)
		}
	}
}

func TestParseInsertPartialFailure(t *testing.T) {
	statement, err := NewParser("INSERT INTO items VALUES (1); INSERT INTO items 2").Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	insert := statement.(InsertStatement)
	if len(insert.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(insert.Rows))
	}
	if insert.Rows[0].Err != nil {
		t.Errorf("first row should parse, got %v", insert.Rows[0].Err)
	}
	if !errors.Is(insert.Rows[1].Err, core.ErrMalformedStatement) {
		t.Errorf("second row error = %v, want ErrMalformedStatement", insert.Rows[1].Err)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `
-- seed data
CREATE DATABASE shop;
USE shop;
INSERT INTO items VALUES (1, 'semi;colon');
SELECT * FROM items`

	expected := []string{
		"CREATE DATABASE shop",
		"USE shop",
		"INSERT INTO items VALUES (1, 'semi;colon')",
		"SELECT * FROM items",
	}

	if got := SplitStatements(script); !reflect.DeepEqual(got, expected) {
		t.Errorf("SplitStatements\n got: %q\nwant: %q", got, expected)
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := tokenize("SELECT a FROM t")
	if len(tokens) != 5 {
		t.Fatalf("expected 5 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[2].Type != From || tokens[2].Pos != 9 || tokens[2].End != 13 {
		t.Errorf("unexpected FROM token %+v", tokens[2])
	}
	if tokens[4].Type != EOF {
		t.Errorf("expected EOF, got %v", tokens[4])
	}
}
