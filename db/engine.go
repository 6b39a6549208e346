package db

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/metrics"
	"github.com/nickyhof/FlatDB/op"
	"github.com/nickyhof/FlatDB/ps"
	"github.com/nickyhof/FlatDB/sql"
)

// Engine is the statement dispatcher for one session. It owns the
// session's selected database and transaction buffer and is not safe for
// concurrent use.
type Engine struct {
	Persistence *ps.Persistence
	History     *ps.History // optional journal of applied writes
	Identity    core.Identity
	Logger      *slog.Logger

	session *Session
	tx      TransactionBuffer
}

func NewEngine(persistence *ps.Persistence, identity core.Identity) *Engine {
	return &Engine{
		Persistence: persistence,
		Identity:    identity,
		session:     NewSession(),
	}
}

func (engine *Engine) Session() *Session {
	return engine.session
}

func (engine *Engine) TransactionState() TransactionState {
	return engine.tx.State()
}

func (engine *Engine) log() *slog.Logger {
	logger := engine.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("session", engine.session.Id, "database", engine.session.Database)
}

// Execute parses one statement and either buffers it, when a transaction
// is active, or runs it directly. BEGIN, COMMIT and ROLLBACK are never
// buffered. Text without a recognised statement keyword is ignored.
func (engine *Engine) Execute(query string) (Result, error) {
	statement, err := sql.NewParser(query).Parse()
	if err != nil {
		if errors.Is(err, sql.ErrUnrecognizedStatement) {
			engine.log().Debug("ignoring unrecognized statement", "query", query)
			metrics.StatementsTotal.WithLabelValues("unknown", metrics.OutcomeIgnored).Inc()
			return CommitResult{Ignored: true}, nil
		}
		metrics.StatementsTotal.WithLabelValues("unknown", metrics.OutcomeError).Inc()
		return nil, err
	}

	switch statement.(type) {
	case sql.BeginStatement, sql.CommitStatement, sql.RollbackStatement:
		return engine.executeDirect(statement)
	}

	if engine.tx.State() == Active {
		return engine.enqueue(query, statement)
	}
	return engine.executeDirect(statement)
}

// executeDirect runs a parsed statement immediately. COMMIT replays the
// transaction buffer through here, so nothing is ever re-buffered.
func (engine *Engine) executeDirect(statement sql.Statement) (result Result, err error) {
	startTime := time.Now()
	defer func() {
		metrics.ObserveStatement(statement.Type().String(), time.Since(startTime).Seconds(), err)
		if err != nil {
			engine.log().Debug("statement failed", "statement", statement.Type().String(), "error", err)
		}
	}()

	switch statement := statement.(type) {
	case sql.CreateDatabaseStatement:
		return engine.executeCreateDatabaseStatement(statement)
	case sql.UseStatement:
		return engine.executeUseStatement(statement)
	case sql.CreateTableStatement:
		return engine.executeCreateTableStatement(statement)
	case sql.InsertStatement:
		return engine.executeInsertStatement(statement)
	case sql.SelectStatement:
		return engine.executeSelectStatement(statement)
	case sql.UpdateStatement:
		return engine.executeUpdateStatement(statement)
	case sql.DeleteStatement:
		return engine.executeDeleteStatement(statement)
	case sql.BeginStatement:
		return engine.executeBeginStatement()
	case sql.CommitStatement:
		return engine.executeCommitStatement()
	case sql.RollbackStatement:
		return engine.executeRollbackStatement()
	default:
		return nil, fmt.Errorf("unsupported statement type: %v", statement.Type())
	}
}

func (engine *Engine) enqueue(query string, statement sql.Statement) (CommitResult, error) {
	pending, err := engine.tx.Enqueue(query, statement)
	if err != nil {
		return CommitResult{}, err
	}
	metrics.BufferedStatements.Inc()

	return CommitResult{
		Message:  fmt.Sprintf("Statement added to transaction (%d pending).", pending),
		Buffered: true,
		Pending:  pending,
	}, nil
}

func (engine *Engine) requireDatabase() error {
	if !engine.session.HasDatabase() {
		return fmt.Errorf("%w: please select a database first using the USE command", core.ErrNoDatabaseSelected)
	}
	return nil
}

// record journals an applied write when history is enabled. Journal
// failures are logged and never fail the statement.
func (engine *Engine) record(result *CommitResult, message string) {
	if engine.History == nil {
		return
	}
	txn, err := engine.History.Record(engine.Identity, message)
	if err != nil {
		engine.log().Error("failed to record history", "message", message, "error", err)
		return
	}
	result.Transaction = txn
}

// rowFilter adapts a predicate to op.Rows.Scan. Predicate errors make the
// row non-matching and are logged once per statement.
func (engine *Engine) rowFilter(where sql.Predicate, header []string) func([]string) bool {
	logged := false
	return func(fields []string) bool {
		matched, err := where.Matches(fields, header)
		if err != nil && !logged {
			logged = true
			engine.log().Warn("where clause does not match any row", "condition", where.String(), "error", err)
		}
		return matched
	}
}

func (engine *Engine) executeCreateDatabaseStatement(statement sql.CreateDatabaseStatement) (CommitResult, error) {
	startTime := time.Now()

	created, _, err := op.CreateDatabase(statement.Database, engine.Persistence)
	if err != nil {
		engine.log().Error("failed to create database", "name", statement.Database, "error", err)
		return CommitResult{}, err
	}

	if !created {
		return CommitResult{
			Message:          "Database already exists.",
			ExecutionTimeSec: time.Since(startTime).Seconds(),
		}, nil
	}

	result := CommitResult{
		Message:          "Database created successfully.",
		DatabasesCreated: 1,
	}
	engine.record(&result, "CREATE DATABASE "+statement.Database)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

func (engine *Engine) executeUseStatement(statement sql.UseStatement) (CommitResult, error) {
	startTime := time.Now()

	dbOp, err := op.GetDatabase(statement.Database, engine.Persistence)
	if err != nil {
		return CommitResult{}, err
	}

	engine.session.Use(dbOp.Database.Name, dbOp.Database.Path)

	return CommitResult{
		Message:          "Using database: " + dbOp.Database.Name,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	table := core.Table{
		Database: engine.session.Database,
		Name:     statement.Table,
		Columns:  statement.Columns,
	}

	created, _, err := op.CreateTable(table, engine.Persistence)
	if err != nil {
		engine.log().Error("failed to create table", "table", statement.Table, "error", err)
		return CommitResult{}, err
	}

	if !created {
		return CommitResult{
			Message:          fmt.Sprintf("Table '%s' already exists.", statement.Table),
			ExecutionTimeSec: time.Since(startTime).Seconds(),
		}, nil
	}

	result := CommitResult{
		Message:       fmt.Sprintf("Table '%s' created successfully.", statement.Table),
		TablesCreated: 1,
	}
	engine.record(&result, "CREATE TABLE "+statement.Table)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

// executeInsertStatement appends each row independently. Values are not
// checked against the column count or declared types.
func (engine *Engine) executeInsertStatement(statement sql.InsertStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	var errs []error
	var tables []string
	result := CommitResult{}

	for _, row := range statement.Rows {
		if row.Err != nil {
			errs = append(errs, row.Err)
			continue
		}

		tableOp, err := op.OpenTable(engine.session.Database, row.Table, engine.Persistence)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := tableOp.Append(row.Values); err != nil {
			engine.log().Error("failed to insert row", "table", row.Table, "error", err)
			errs = append(errs, err)
			continue
		}

		result.RecordsWritten++
		if !slices.Contains(tables, row.Table) {
			tables = append(tables, row.Table)
		}
	}

	if result.RecordsWritten > 0 {
		result.Message = fmt.Sprintf("Data inserted successfully into table %s.", strings.Join(tables, ", "))
		engine.record(&result, "INSERT INTO "+strings.Join(tables, ", "))
	}
	result.ExecutionTimeSec = time.Since(startTime).Seconds()

	return result, errors.Join(errs...)
}

func (engine *Engine) executeSelectStatement(statement sql.SelectStatement) (QueryResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return QueryResult{}, err
	}

	tableOp, err := op.OpenTable(engine.session.Database, statement.Table, engine.Persistence)
	if err != nil {
		return QueryResult{}, err
	}

	rows, err := tableOp.Load()
	if err != nil {
		engine.log().Error("failed to read table", "table", statement.Table, "error", err)
		return QueryResult{}, err
	}

	// projection follows header order, not the order of the select list
	var indexes []int
	for i, column := range rows.Header {
		if statement.Wildcard || slices.Contains(statement.Columns, column) {
			indexes = append(indexes, i)
		}
	}
	for _, column := range statement.Columns {
		if !slices.Contains(rows.Header, column) {
			return QueryResult{}, fmt.Errorf("%w: %s", core.ErrUnknownColumn, column)
		}
	}

	columns := make([]string, len(indexes))
	for i, index := range indexes {
		columns[i] = rows.Header[index]
	}

	data := [][]string{}
	for _, fields := range rows.Scan(engine.rowFilter(statement.Where, rows.Header)) {
		projected := make([]string, len(indexes))
		for i, index := range indexes {
			if index < len(fields) {
				projected[i] = fields[index]
			}
		}
		data = append(data, projected)
	}

	return QueryResult{
		Columns:          columns,
		Data:             data,
		RecordsRead:      len(rows.Data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// executeUpdateStatement rewrites the whole data file. Rows that do not
// match are written back unchanged and in their original order.
func (engine *Engine) executeUpdateStatement(statement sql.UpdateStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	tableOp, err := op.OpenTable(engine.session.Database, statement.Table, engine.Persistence)
	if err != nil {
		return CommitResult{}, err
	}

	rows, err := tableOp.Load()
	if err != nil {
		return CommitResult{}, err
	}

	updated := 0
	for i, fields := range rows.Scan(engine.rowFilter(statement.Where, rows.Header)) {
		for _, update := range statement.Updates {
			index := slices.Index(rows.Header, update.Column)
			if index < 0 {
				// unknown target columns are skipped
				continue
			}
			for len(fields) <= index {
				fields = append(fields, "")
			}

			if !update.Arithmetic {
				fields[index] = update.Value
				continue
			}

			current, err := strconv.Atoi(strings.TrimSpace(fields[index]))
			if err != nil {
				return CommitResult{}, fmt.Errorf("%w: %s value %q is not an integer", core.ErrTypeMismatch, update.Column, fields[index])
			}
			fields[index] = strconv.Itoa(current + update.Delta)
		}
		rows.Data[i] = fields
		updated++
	}

	if err := tableOp.Rewrite(rows); err != nil {
		engine.log().Error("failed to rewrite table", "table", statement.Table, "error", err)
		return CommitResult{}, err
	}

	result := CommitResult{
		Message:        fmt.Sprintf("Table %s updated successfully.", statement.Table),
		RecordsUpdated: updated,
	}
	engine.record(&result, "UPDATE "+statement.Table)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

// executeDeleteStatement drops matching rows and rewrites the file. The
// header line always survives, so deleting everything leaves an empty table.
func (engine *Engine) executeDeleteStatement(statement sql.DeleteStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.requireDatabase(); err != nil {
		return CommitResult{}, err
	}

	tableOp, err := op.OpenTable(engine.session.Database, statement.Table, engine.Persistence)
	if err != nil {
		return CommitResult{}, err
	}

	rows, err := tableOp.Load()
	if err != nil {
		return CommitResult{}, err
	}

	matches := engine.rowFilter(statement.Where, rows.Header)
	kept := make([][]string, 0, len(rows.Data))
	for _, fields := range rows.Data {
		if !matches(fields) {
			kept = append(kept, fields)
		}
	}
	deleted := len(rows.Data) - len(kept)
	rows.Data = kept

	if err := tableOp.Rewrite(rows); err != nil {
		engine.log().Error("failed to rewrite table", "table", statement.Table, "error", err)
		return CommitResult{}, err
	}

	result := CommitResult{
		Message:        fmt.Sprintf("Rows deleted successfully from table %s.", statement.Table),
		RecordsDeleted: deleted,
	}
	engine.record(&result, "DELETE FROM "+statement.Table)
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

func (engine *Engine) executeBeginStatement() (CommitResult, error) {
	startTime := time.Now()

	discarded := engine.tx.Begin()
	message := "Transaction started."
	if discarded > 0 {
		metrics.BufferedStatements.Sub(float64(discarded))
		metrics.TransactionsTotal.WithLabelValues("discarded").Inc()
		engine.log().Warn("BEGIN discarded an open transaction", "discarded", discarded)
		message = fmt.Sprintf("Transaction restarted; %d buffered statement(s) discarded.", discarded)
	}

	return CommitResult{
		Message:          message,
		Discarded:        discarded,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// executeCommitStatement replays the buffer in order. Replay is not
// atomic: a failed statement is reported and the rest still run.
func (engine *Engine) executeCommitStatement() (CommitResult, error) {
	startTime := time.Now()

	statements, err := engine.tx.Drain()
	if err != nil {
		return CommitResult{
			Message:          "No active transaction to commit.",
			ExecutionTimeSec: time.Since(startTime).Seconds(),
		}, nil
	}
	metrics.BufferedStatements.Sub(float64(len(statements)))

	result := CommitResult{}
	var errs []error
	for _, buffered := range statements {
		replayed, err := engine.executeDirect(buffered.Statement)
		result.Replayed++

		switch replayed := replayed.(type) {
		case CommitResult:
			result.DatabasesCreated += replayed.DatabasesCreated
			result.TablesCreated += replayed.TablesCreated
			result.RecordsWritten += replayed.RecordsWritten
			result.RecordsUpdated += replayed.RecordsUpdated
			result.RecordsDeleted += replayed.RecordsDeleted
			if replayed.Transaction.Id != "" {
				result.Transaction = replayed.Transaction
			}
		case QueryResult:
			if err == nil {
				result.Queries = append(result.Queries, replayed)
			}
		}

		if err != nil {
			engine.log().Warn("statement failed during commit", "statement", buffered.Text, "error", err)
			result.Failures = append(result.Failures, Failure{Statement: buffered.Text, Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", buffered.Text, err))
		}
	}

	outcome := "committed"
	if len(result.Failures) > 0 {
		outcome = "partial"
	}
	metrics.TransactionsTotal.WithLabelValues(outcome).Inc()

	result.Message = fmt.Sprintf("Transaction committed: %d statement(s) applied, %d failed.",
		result.Replayed-len(result.Failures), len(result.Failures))
	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, errors.Join(errs...)
}

func (engine *Engine) executeRollbackStatement() (CommitResult, error) {
	startTime := time.Now()

	discarded := engine.tx.Rollback()
	metrics.BufferedStatements.Sub(float64(discarded))
	metrics.TransactionsTotal.WithLabelValues("rolled_back").Inc()

	return CommitResult{
		Message:          "Transaction has been rolled back.",
		Discarded:        discarded,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}
