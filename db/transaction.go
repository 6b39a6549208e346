package db

import (
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/sql"
)

type TransactionState int

const (
	Idle TransactionState = iota
	Active
)

func (state TransactionState) String() string {
	if state == Active {
		return "active"
	}
	return "idle"
}

// BufferedStatement is a parsed statement waiting for COMMIT. Text is kept
// for reporting replay failures.
type BufferedStatement struct {
	Text      string
	Statement sql.Statement
}

// TransactionBuffer defers statements between BEGIN and COMMIT. Nothing
// is applied before COMMIT, so ROLLBACK only has to drop the buffer.
type TransactionBuffer struct {
	state      TransactionState
	statements []BufferedStatement
}

func (tx *TransactionBuffer) State() TransactionState {
	return tx.state
}

func (tx *TransactionBuffer) Len() int {
	return len(tx.statements)
}

// Begin activates the buffer from any state. Statements buffered by an
// earlier BEGIN are dropped and their count returned.
func (tx *TransactionBuffer) Begin() (discarded int) {
	discarded = len(tx.statements)
	tx.state = Active
	tx.statements = nil
	return discarded
}

// Enqueue appends a statement and returns the new buffer length.
func (tx *TransactionBuffer) Enqueue(text string, statement sql.Statement) (int, error) {
	if tx.state != Active {
		return 0, core.ErrNoActiveTransaction
	}
	tx.statements = append(tx.statements, BufferedStatement{Text: text, Statement: statement})
	return len(tx.statements), nil
}

// Drain hands back the buffered statements in FIFO order and returns the
// buffer to Idle.
func (tx *TransactionBuffer) Drain() ([]BufferedStatement, error) {
	if tx.state != Active {
		return nil, core.ErrNoActiveTransaction
	}
	statements := tx.statements
	tx.state = Idle
	tx.statements = nil
	return statements, nil
}

// Rollback returns the buffer to Idle without applying anything.
func (tx *TransactionBuffer) Rollback() (discarded int) {
	discarded = len(tx.statements)
	tx.state = Idle
	tx.statements = nil
	return discarded
}
