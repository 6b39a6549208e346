package op

import (
	"fmt"
	"iter"

	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/ps"
)

type TableOp struct {
	Database    string
	Name        string
	Persistence *ps.Persistence
}

// Rows is the loaded content of a data file. Header is the first line,
// Data holds every following line in file order.
type Rows struct {
	Header []string
	Data   [][]string
}

func CreateTable(table core.Table, persistence *ps.Persistence) (created bool, op *TableOp, err error) {
	created, err = persistence.CreateTable(table)
	if err != nil {
		return false, nil, err
	}

	return created, &TableOp{
		Database:    table.Database,
		Name:        table.Name,
		Persistence: persistence,
	}, nil
}

// OpenTable resolves a table by its data file. The schema file is not
// consulted; column order comes from the data file header.
func OpenTable(database string, name string, persistence *ps.Persistence) (*TableOp, error) {
	if !persistence.TableExists(database, name) {
		return nil, fmt.Errorf("%w: table %s.%s", core.ErrNotFound, database, name)
	}

	return &TableOp{
		Database:    database,
		Name:        name,
		Persistence: persistence,
	}, nil
}

// Schema reads the declared columns from the schema file.
func (op *TableOp) Schema() (*core.Table, error) {
	return op.Persistence.GetTable(op.Database, op.Name)
}

func (op *TableOp) Load() (*Rows, error) {
	header, data, err := op.Persistence.ReadRows(op.Database, op.Name)
	if err != nil {
		return nil, err
	}
	return &Rows{Header: header, Data: data}, nil
}

func (op *TableOp) Append(values []string) error {
	return op.Persistence.AppendRow(op.Database, op.Name, values)
}

// Rewrite replaces the data file with rows, header first.
func (op *TableOp) Rewrite(rows *Rows) error {
	return op.Persistence.WriteRows(op.Database, op.Name, rows.Header, rows.Data)
}

func (op *TableOp) Count() (int, error) {
	rows, err := op.Load()
	if err != nil {
		return 0, err
	}
	return len(rows.Data), nil
}

// Scan yields the index and fields of every row accepted by filter. A nil
// filter accepts all rows.
func (rows *Rows) Scan(filter func(fields []string) bool) iter.Seq2[int, []string] {
	return func(yield func(int, []string) bool) {
		for i, fields := range rows.Data {
			if filter != nil && !filter(fields) {
				continue
			}
			if !yield(i, fields) {
				return
			}
		}
	}
}
