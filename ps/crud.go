package ps

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v6/util"
	"github.com/nickyhof/FlatDB/core"
)

const (
	schemaDir       = "Schema"
	schemaSuffix    = "_schema.txt"
	dataSuffix      = ".data"
	schemaSeparator = ";"
	fieldSeparator  = "$"
)

func (persistence *Persistence) schemaPath(database string, table string) string {
	return persistence.fs.Join(database, schemaDir, table+schemaSuffix)
}

func (persistence *Persistence) dataPath(database string, table string) string {
	return persistence.fs.Join(database, table+dataSuffix)
}

// CreateDatabase creates the database directory. An existing database is
// left untouched and reported with created set to false.
func (persistence *Persistence) CreateDatabase(name string) (created bool, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return false, err
	}

	info, err := persistence.fs.Stat(name)
	if err == nil {
		if !info.IsDir() {
			return false, ioFailure("create database", name, errors.New("path exists and is not a directory"))
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, ioFailure("stat", name, err)
	}

	if err := persistence.fs.MkdirAll(name, 0755); err != nil {
		return false, ioFailure("create database", name, err)
	}
	return true, nil
}

func (persistence *Persistence) DatabaseExists(name string) bool {
	if !persistence.IsInitialized() || name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	info, err := persistence.fs.Stat(name)
	return err == nil && info.IsDir()
}

// DatabasePath returns the database directory as seen by the host.
func (persistence *Persistence) DatabasePath(name string) string {
	return persistence.fs.Join(persistence.fs.Root(), name)
}

// ListDatabases returns database directory names in sorted order. Hidden
// directories such as the history journal are skipped.
func (persistence *Persistence) ListDatabases() ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	entries, err := persistence.fs.ReadDir(".")
	if err != nil {
		return nil, ioFailure("list", persistence.fs.Root(), err)
	}

	var databases []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			databases = append(databases, entry.Name())
		}
	}
	slices.Sort(databases)
	return databases, nil
}

// CreateTable writes the schema file and a data file holding only the
// header line. An existing table is left untouched and reported with
// created set to false.
func (persistence *Persistence) CreateTable(table core.Table) (created bool, err error) {
	if err := persistence.ensureInitialized(); err != nil {
		return false, err
	}

	if persistence.TableExists(table.Database, table.Name) {
		return false, nil
	}

	if err := persistence.fs.MkdirAll(persistence.fs.Join(table.Database, schemaDir), 0755); err != nil {
		return false, ioFailure("create schema directory", table.Database, err)
	}

	entries := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		entries = append(entries, column.Name+"="+column.Type)
	}

	schemaPath := persistence.schemaPath(table.Database, table.Name)
	if err := util.WriteFile(persistence.fs, schemaPath, []byte(strings.Join(entries, schemaSeparator)), 0644); err != nil {
		return false, ioFailure("write schema", schemaPath, err)
	}

	dataPath := persistence.dataPath(table.Database, table.Name)
	header := strings.Join(table.ColumnNames(), fieldSeparator) + "\n"
	if err := util.WriteFile(persistence.fs, dataPath, []byte(header), 0644); err != nil {
		return false, ioFailure("write data", dataPath, err)
	}

	return true, nil
}

func (persistence *Persistence) TableExists(database string, table string) bool {
	if !persistence.IsInitialized() {
		return false
	}
	info, err := persistence.fs.Stat(persistence.dataPath(database, table))
	return err == nil && !info.IsDir()
}

// GetTable reads the table definition from its schema file.
func (persistence *Persistence) GetTable(database string, table string) (*core.Table, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	path := persistence.schemaPath(database, table)
	data, err := util.ReadFile(persistence.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: table %s.%s", core.ErrNotFound, database, table)
		}
		return nil, ioFailure("read schema", path, err)
	}

	t := &core.Table{Database: database, Name: table}
	for _, entry := range strings.Split(strings.TrimSpace(string(data)), schemaSeparator) {
		name, typ, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, core.Column{Name: name, Type: typ})
	}
	return t, nil
}

// ListTables returns the names of all tables that have a data file.
func (persistence *Persistence) ListTables(database string) ([]string, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	entries, err := persistence.fs.ReadDir(database)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: database %s", core.ErrNotFound, database)
		}
		return nil, ioFailure("list", database, err)
	}

	var tables []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), dataSuffix) {
			tables = append(tables, strings.TrimSuffix(entry.Name(), dataSuffix))
		}
	}
	slices.Sort(tables)
	return tables, nil
}

// ReadDataFile returns the raw contents of the table's data file.
func (persistence *Persistence) ReadDataFile(database string, table string) ([]byte, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}

	path := persistence.dataPath(database, table)
	data, err := util.ReadFile(persistence.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: table %s.%s", core.ErrNotFound, database, table)
		}
		return nil, ioFailure("read data", path, err)
	}
	return data, nil
}

// ReadRows returns the header fields and the data rows of a table. The
// first line of the data file is always the header.
func (persistence *Persistence) ReadRows(database string, table string) (header []string, rows [][]string, err error) {
	data, err := persistence.ReadDataFile(database, table)
	if err != nil {
		return nil, nil, err
	}

	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}

	header = strings.Split(strings.TrimSuffix(lines[0], "\r"), fieldSeparator)
	for _, line := range lines[1:] {
		rows = append(rows, strings.Split(strings.TrimSuffix(line, "\r"), fieldSeparator))
	}
	return header, rows, nil
}

// AppendRow appends one line to an existing data file.
func (persistence *Persistence) AppendRow(database string, table string, values []string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	if !persistence.TableExists(database, table) {
		return fmt.Errorf("%w: table %s.%s", core.ErrNotFound, database, table)
	}

	path := persistence.dataPath(database, table)
	file, err := persistence.fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return ioFailure("open data", path, err)
	}

	if _, err := file.Write([]byte(strings.Join(values, fieldSeparator) + "\n")); err != nil {
		file.Close()
		return ioFailure("append data", path, err)
	}
	if err := file.Close(); err != nil {
		return ioFailure("close data", path, err)
	}
	return nil
}

// WriteRows replaces the whole data file with the header and rows. The
// file is truncated and rewritten in place, so a failed write can leave
// it partially written.
func (persistence *Persistence) WriteRows(database string, table string, header []string, rows [][]string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	if !persistence.TableExists(database, table) {
		return fmt.Errorf("%w: table %s.%s", core.ErrNotFound, database, table)
	}

	var buf bytes.Buffer
	buf.WriteString(strings.Join(header, fieldSeparator))
	buf.WriteByte('\n')
	for _, row := range rows {
		buf.WriteString(strings.Join(row, fieldSeparator))
		buf.WriteByte('\n')
	}

	path := persistence.dataPath(database, table)
	file, err := persistence.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return ioFailure("open data", path, err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return ioFailure("rewrite data", path, err)
	}
	if err := file.Close(); err != nil {
		return ioFailure("close data", path, err)
	}
	return nil
}
