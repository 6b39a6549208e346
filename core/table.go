package core

// Identity identifies who issued a statement. It is recorded as the author of
// history journal entries.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Database struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Column is one entry of a table schema. Type is the declared label from
// CREATE TABLE; it is stored but never checked against inserted values.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Database string   `json:"database"`
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
}

// ColumnNames returns the column names in declaration order.
func (table Table) ColumnNames() []string {
	names := make([]string, len(table.Columns))
	for i, column := range table.Columns {
		names[i] = column.Name
	}
	return names
}
