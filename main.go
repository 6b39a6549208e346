package FlatDB

import (
	"log/slog"

	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/db"
	"github.com/nickyhof/FlatDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
	History     *ps.History
	Logger      *slog.Logger
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

// EnableHistory journals every applied write to a git repository kept
// next to the databases.
func (instance *Instance) EnableHistory() error {
	history, err := ps.NewHistory(instance.Persistence)
	if err != nil {
		return err
	}
	instance.History = history
	return nil
}

// Engine returns a new engine with its own session and transaction
// buffer. Engines share the instance's persistence.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	engine := db.NewEngine(instance.Persistence, identity)
	engine.History = instance.History
	engine.Logger = instance.Logger
	return engine
}
