package op

import (
	"fmt"

	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/ps"
)

type DatabaseOp struct {
	Database    core.Database
	Persistence *ps.Persistence
}

// CreateDatabase creates the database directory if absent. created is
// false when it already existed.
func CreateDatabase(name string, persistence *ps.Persistence) (created bool, op *DatabaseOp, err error) {
	created, err = persistence.CreateDatabase(name)
	if err != nil {
		return false, nil, err
	}

	return created, &DatabaseOp{
		Database:    core.Database{Name: name, Path: persistence.DatabasePath(name)},
		Persistence: persistence,
	}, nil
}

func GetDatabase(name string, persistence *ps.Persistence) (*DatabaseOp, error) {
	if !persistence.DatabaseExists(name) {
		return nil, fmt.Errorf("%w: database %s", core.ErrNotFound, name)
	}
	return &DatabaseOp{
		Database:    core.Database{Name: name, Path: persistence.DatabasePath(name)},
		Persistence: persistence,
	}, nil
}

func (op *DatabaseOp) TableNames() ([]string, error) {
	return op.Persistence.ListTables(op.Database.Name)
}
