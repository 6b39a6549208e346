package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/op"
	"github.com/nickyhof/FlatDB/ps"
	"github.com/nickyhof/FlatDB/sql"
)

var ErrHistoryDisabled = errors.New("history journal is not enabled")

// ShowDatabases lists every database directory under the base path.
func (engine *Engine) ShowDatabases() (ListResult, error) {
	databases, err := engine.Persistence.ListDatabases()
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Columns: []string{"Database"}}
	for _, name := range databases {
		result.Data = append(result.Data, []string{name})
	}
	return result, nil
}

// ShowTables lists the tables of the selected database.
func (engine *Engine) ShowTables() (ListResult, error) {
	if err := engine.requireDatabase(); err != nil {
		return ListResult{}, err
	}

	dbOp, err := op.GetDatabase(engine.session.Database, engine.Persistence)
	if err != nil {
		return ListResult{}, err
	}
	tables, err := dbOp.TableNames()
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Columns: []string{"Table"}}
	for _, name := range tables {
		result.Data = append(result.Data, []string{name})
	}
	return result, nil
}

// DescribeTable shows the declared columns from the schema file.
func (engine *Engine) DescribeTable(name string) (ListResult, error) {
	if err := engine.requireDatabase(); err != nil {
		return ListResult{}, err
	}

	tableOp, err := op.OpenTable(engine.session.Database, name, engine.Persistence)
	if err != nil {
		return ListResult{}, err
	}
	table, err := tableOp.Schema()
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Columns: []string{"Column", "Type"}}
	for _, column := range table.Columns {
		result.Data = append(result.Data, []string{column.Name, column.Type})
	}
	return result, nil
}

// HistoryLog lists the most recent journal entries.
func (engine *Engine) HistoryLog(limit int) (ListResult, error) {
	history, err := engine.journal()
	if err != nil {
		return ListResult{}, err
	}

	transactions, err := history.Log(limit)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Columns: []string{"Id", "When", "Author", "Message"}}
	for _, txn := range transactions {
		id := txn.Id
		if len(id) > 8 {
			id = id[:8]
		}
		result.Data = append(result.Data, []string{id, txn.When.Format("2006-01-02 15:04:05"), txn.Author, txn.Message})
	}
	return result, nil
}

func (engine *Engine) journal() (*ps.History, error) {
	if engine.History == nil {
		return nil, ErrHistoryDisabled
	}
	return engine.History, nil
}

// Remotes lists the replicas the journal can be pushed to.
func (engine *Engine) Remotes() (ListResult, error) {
	history, err := engine.journal()
	if err != nil {
		return ListResult{}, err
	}

	remotes, err := history.Remotes()
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Columns: []string{"Name", "URL"}}
	for _, remote := range remotes {
		result.Data = append(result.Data, []string{remote.Name, strings.Join(remote.URLs, ", ")})
	}
	return result, nil
}

func (engine *Engine) AddRemote(name, url string) error {
	history, err := engine.journal()
	if err != nil {
		return err
	}
	return history.AddRemote(name, url)
}

func (engine *Engine) RemoveRemote(name string) error {
	history, err := engine.journal()
	if err != nil {
		return err
	}
	return history.RemoveRemote(name)
}

// PushHistory replicates the journal to a remote.
func (engine *Engine) PushHistory(remote string, auth *ps.RemoteAuth) error {
	history, err := engine.journal()
	if err != nil {
		return err
	}
	if err := history.Push(remote, auth); err != nil {
		return err
	}
	engine.log().Info("journal pushed", "remote", remote)
	return nil
}

// ExportTable copies a table's data file, header included, to dest.
func (engine *Engine) ExportTable(ctx context.Context, table string, dest string, cfg *RemoteConfig) (int, error) {
	if err := engine.requireDatabase(); err != nil {
		return 0, err
	}

	data, err := engine.Persistence.ReadDataFile(engine.session.Database, table)
	if err != nil {
		return 0, err
	}

	w, err := OpenExport(ctx, dest, cfg)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", core.ErrIOFailure, dest, err)
	}
	n, err := w.Write(data)
	if err != nil {
		w.Close()
		return n, fmt.Errorf("%w: write %s: %w", core.ErrIOFailure, dest, err)
	}
	if err := w.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %w", core.ErrIOFailure, dest, err)
	}

	engine.log().Info("exported table", "table", table, "dest", dest, "bytes", n)
	return n, nil
}

// ScriptStatement is the outcome of one statement of an imported script.
type ScriptStatement struct {
	Statement string
	Result    Result
	Err       error
}

// ImportScript reads a script from source and executes its statements in
// order. A failing statement does not stop the script.
func (engine *Engine) ImportScript(ctx context.Context, source string, cfg *RemoteConfig) ([]ScriptStatement, error) {
	r, err := OpenScript(ctx, source, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", core.ErrIOFailure, source, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIOFailure, source, err)
	}

	return engine.ExecuteScript(string(content)), nil
}

// ExecuteScript splits content on ';' and executes each statement.
func (engine *Engine) ExecuteScript(content string) []ScriptStatement {
	var outcomes []ScriptStatement
	for _, statement := range sql.SplitStatements(content) {
		result, err := engine.Execute(statement)
		outcomes = append(outcomes, ScriptStatement{Statement: statement, Result: result, Err: err})
	}
	return outcomes
}
