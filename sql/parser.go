package sql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nickyhof/FlatDB/core"
)

// ErrUnrecognizedStatement is returned for text that does not start with a
// supported statement keyword. The engine treats it as a no-op.
var ErrUnrecognizedStatement = errors.New("unrecognized statement")

type StatementType int

const (
	CreateDatabaseStatementType StatementType = iota
	UseStatementType
	CreateTableStatementType
	InsertStatementType
	SelectStatementType
	UpdateStatementType
	DeleteStatementType
	BeginStatementType
	CommitStatementType
	RollbackStatementType
)

func (statementType StatementType) String() string {
	switch statementType {
	case CreateDatabaseStatementType:
		return "create_database"
	case UseStatementType:
		return "use"
	case CreateTableStatementType:
		return "create_table"
	case InsertStatementType:
		return "insert"
	case SelectStatementType:
		return "select"
	case UpdateStatementType:
		return "update"
	case DeleteStatementType:
		return "delete"
	case BeginStatementType:
		return "begin"
	case CommitStatementType:
		return "commit"
	case RollbackStatementType:
		return "rollback"
	default:
		return "unknown"
	}
}

type Statement interface {
	Type() StatementType
}

type CreateDatabaseStatement struct {
	Database string
}

type UseStatement struct {
	Database string
}

type CreateTableStatement struct {
	Table   string
	Columns []core.Column
}

// InsertStatement holds one row per "INSERT INTO" clause in the text. Rows
// are applied independently, so a malformed clause keeps its error and
// does not stop the others.
type InsertStatement struct {
	Rows []InsertRow
}

type InsertRow struct {
	Table  string
	Values []string
	Err    error
}

type SelectStatement struct {
	Table    string
	Columns  []string
	Wildcard bool
	Where    Predicate
}

type UpdateStatement struct {
	Table   string
	Updates []SetClause
	Where   Predicate
}

// SetClause is one "col=val" assignment. When Arithmetic is set the new
// value is the current integer value of the field shifted by Delta.
type SetClause struct {
	Column     string
	Value      string
	Arithmetic bool
	Delta      int
}

type DeleteStatement struct {
	Table string
	Where Predicate
}

type BeginStatement struct{}
type CommitStatement struct{}
type RollbackStatement struct{}

func (s CreateDatabaseStatement) Type() StatementType {
	return CreateDatabaseStatementType
}

func (s UseStatement) Type() StatementType {
	return UseStatementType
}

func (s CreateTableStatement) Type() StatementType {
	return CreateTableStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s UpdateStatement) Type() StatementType {
	return UpdateStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

func (s BeginStatement) Type() StatementType {
	return BeginStatementType
}

func (s CommitStatement) Type() StatementType {
	return CommitStatementType
}

func (s RollbackStatement) Type() StatementType {
	return RollbackStatementType
}

var arithmeticPattern = regexp.MustCompile(`^[A-Za-z_]+\s*([+-])\s*(\d+)$`)

type Parser struct {
	sql   string
	lexer *Lexer
}

func NewParser(sql string) *Parser {
	sql = strings.TrimSpace(sql)
	return &Parser{sql: sql, lexer: NewLexer(sql)}
}

func (parser *Parser) Parse() (Statement, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case Create:
		switch parser.lexer.NextToken().Type {
		case DatabaseIdentifier:
			return ParseCreateDatabase(parser)
		case TableIdentifier:
			return ParseCreateTable(parser)
		default:
			return nil, ErrUnrecognizedStatement
		}
	case Use:
		return ParseUse(parser)
	case Insert:
		if parser.lexer.PeekToken().Type != Into {
			return nil, ErrUnrecognizedStatement
		}
		return ParseInsert(parser)
	case Select:
		return ParseSelect(parser)
	case Update:
		return ParseUpdate(parser)
	case Delete:
		return ParseDelete(parser)
	case Begin:
		return transactionStatement(parser, BeginStatement{})
	case Commit:
		return transactionStatement(parser, CommitStatement{})
	case Rollback:
		return transactionStatement(parser, RollbackStatement{})
	default:
		return nil, ErrUnrecognizedStatement
	}
}

// transactionStatement accepts an optional TRANSACTION after BEGIN, COMMIT
// or ROLLBACK and nothing else.
func transactionStatement(parser *Parser, statement Statement) (Statement, error) {
	if parser.lexer.PeekToken().Type == TransactionIdentifier {
		parser.lexer.NextToken()
	}
	if err := expectEnd(parser); err != nil {
		return nil, err
	}
	return statement, nil
}

func ParseCreateDatabase(parser *Parser) (Statement, error) {
	name, err := parseName(parser, "database")
	if err != nil {
		return nil, err
	}
	if err := expectEnd(parser); err != nil {
		return nil, err
	}
	return CreateDatabaseStatement{Database: name}, nil
}

func ParseUse(parser *Parser) (Statement, error) {
	name, err := parseName(parser, "database")
	if err != nil {
		return nil, err
	}
	if err := expectEnd(parser); err != nil {
		return nil, err
	}
	return UseStatement{Database: name}, nil
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	table, err := parseName(parser, "table")
	if err != nil {
		return nil, err
	}

	open := parser.lexer.NextToken()
	if open.Type != ParenOpen {
		return nil, malformed("expected '(' column list after table name")
	}
	closing := strings.LastIndexByte(parser.sql, ')')
	if closing < open.End {
		return nil, malformed("expected ')' after column list")
	}

	var columns []core.Column
	for _, entry := range strings.Split(parser.sql[open.End:closing], ",") {
		fields := strings.Fields(entry)
		if len(fields) != 2 {
			return nil, malformed("column definition %q must be <name> <type>", strings.TrimSpace(entry))
		}
		columns = append(columns, core.Column{Name: fields[0], Type: fields[1]})
	}

	return CreateTableStatement{Table: table, Columns: columns}, nil
}

// ParseInsert accepts one or more ';' separated INSERT INTO clauses.
func ParseInsert(parser *Parser) (Statement, error) {
	var insertStatement InsertStatement
	for _, clause := range SplitStatements(parser.sql) {
		row, err := parseInsertRow(clause)
		if err != nil {
			row.Err = err
		}
		insertStatement.Rows = append(insertStatement.Rows, row)
	}

	for _, row := range insertStatement.Rows {
		if row.Err == nil {
			return insertStatement, nil
		}
	}
	errs := make([]error, 0, len(insertStatement.Rows))
	for _, row := range insertStatement.Rows {
		errs = append(errs, row.Err)
	}
	return nil, errors.Join(errs...)
}

func parseInsertRow(clause string) (InsertRow, error) {
	parser := NewParser(clause)
	if parser.lexer.NextToken().Type != Insert || parser.lexer.NextToken().Type != Into {
		return InsertRow{}, malformed("expected INSERT INTO in %q", clause)
	}
	table, err := parseName(parser, "table")
	if err != nil {
		return InsertRow{}, err
	}
	row := InsertRow{Table: table}

	if parser.lexer.NextToken().Type != Values {
		return row, malformed("expected VALUES after table name")
	}
	open := parser.lexer.NextToken()
	if open.Type != ParenOpen {
		return row, malformed("expected '(' after VALUES")
	}
	closing := strings.LastIndexByte(parser.sql, ')')
	if closing < open.End {
		return row, malformed("expected ')' after values")
	}

	for _, value := range splitList(parser.sql[open.End:closing]) {
		row.Values = append(row.Values, unquote(value))
	}
	return row, nil
}

func ParseSelect(parser *Parser) (Statement, error) {
	var selectStatement SelectStatement

	start := parser.lexer.position
	from := parser.lexer.NextToken()
	for from.Type != From {
		if from.Type == EOF {
			return nil, malformed("expected FROM")
		}
		from = parser.lexer.NextToken()
	}

	list := strings.TrimSpace(parser.sql[start:from.Pos])
	if list == "" {
		return nil, malformed("expected column list or *")
	}
	if list == "*" {
		selectStatement.Wildcard = true
	} else {
		for _, column := range strings.Split(list, ",") {
			column = strings.TrimSpace(column)
			if column == "" {
				return nil, malformed("empty column name in select list")
			}
			selectStatement.Columns = append(selectStatement.Columns, column)
		}
	}

	table, err := parseName(parser, "table")
	if err != nil {
		return nil, err
	}
	selectStatement.Table = table

	where, err := parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}
	selectStatement.Where = where

	return selectStatement, nil
}

func ParseUpdate(parser *Parser) (Statement, error) {
	var updateStatement UpdateStatement

	table, err := parseName(parser, "table")
	if err != nil {
		return nil, err
	}
	updateStatement.Table = table

	set := parser.lexer.NextToken()
	if set.Type != Set {
		return nil, malformed("expected SET after table name")
	}

	end := len(parser.sql)
	var where *Token
	for {
		token := parser.lexer.NextToken()
		if token.Type == EOF {
			break
		}
		if token.Type == Where {
			where = &token
			end = token.Pos
			break
		}
	}

	assignments := strings.TrimSuffix(strings.TrimSpace(parser.sql[set.End:end]), ";")
	if strings.TrimSpace(assignments) == "" {
		return nil, malformed("expected assignments after SET")
	}
	for _, assignment := range splitList(assignments) {
		clause, err := parseSetClause(assignment)
		if err != nil {
			return nil, err
		}
		updateStatement.Updates = append(updateStatement.Updates, clause)
	}

	if where != nil {
		updateStatement.Where = ParsePredicate(parser.sql[where.End:])
	}

	return updateStatement, nil
}

func parseSetClause(assignment string) (SetClause, error) {
	parts := strings.Split(assignment, "=")
	if len(parts) != 2 {
		return SetClause{}, malformed("assignment %q must be <column>=<value>", assignment)
	}

	clause := SetClause{Column: strings.TrimSpace(parts[0])}
	value := strings.TrimSpace(parts[1])
	if clause.Column == "" {
		return SetClause{}, malformed("assignment %q has no column", assignment)
	}

	if match := arithmeticPattern.FindStringSubmatch(value); match != nil {
		delta, err := strconv.Atoi(match[2])
		if err != nil {
			return SetClause{}, malformed("operand %q out of range", match[2])
		}
		if match[1] == "-" {
			delta = -delta
		}
		clause.Arithmetic = true
		clause.Delta = delta
		clause.Value = value
		return clause, nil
	}

	clause.Value = unquote(value)
	return clause, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	if parser.lexer.NextToken().Type != From {
		return nil, malformed("expected FROM after DELETE")
	}

	table, err := parseName(parser, "table")
	if err != nil {
		return nil, err
	}

	where, err := parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}

	return DeleteStatement{Table: table, Where: where}, nil
}

// parseName reads a database or table name. Names are taken verbatim up to
// whitespace or punctuation, so "2024db" and "my-db" are valid. A name may
// not be hidden, climb out of its directory or contain a path separator.
func parseName(parser *Parser, kind string) (string, error) {
	token := parser.lexer.ReadName()
	if token.Type != Identifier {
		return "", malformed("expected %s name", kind)
	}
	if strings.HasPrefix(token.Value, ".") || strings.Contains(token.Value, "..") || strings.ContainsAny(token.Value, `/\`) {
		return "", malformed("invalid %s name %q", kind, token.Value)
	}
	return token.Value, nil
}

func parseOptionalWhere(parser *Parser) (Predicate, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case EOF, Semicolon:
		return Predicate{}, nil
	case Where:
		return ParsePredicate(parser.sql[token.End:]), nil
	default:
		return Predicate{}, malformed("unexpected %s after table name", token)
	}
}

func expectEnd(parser *Parser) error {
	token := parser.lexer.NextToken()
	if token.Type != EOF && token.Type != Semicolon {
		return malformed("unexpected %s", token)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedStatement, fmt.Sprintf(format, args...))
}
