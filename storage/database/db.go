package database

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/storage/database/boltdb"
	"github.com/trezcool/alama/storage/database/memdb"
	"github.com/trezcool/alama/storage/database/rtdb"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Open opens the document store selected by conf.Database.Engine.
// app is only used by the firebase engine and may be nil otherwise.
func Open(ctx context.Context, conf *core.Config, app *firebase.App) (core.DocumentStore, error) {
	switch conf.Database.Engine {
	case core.EngineMemory, "":
		return memdb.Open()
	case core.EngineBolt:
		db, err := boltdb.Open(conf.Database.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case core.EngineFirebase:
		if app == nil {
			return nil, errors.New("firebase engine requires a firebase app")
		}
		db, err := rtdb.Open(ctx, app)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
	}
}

// NeedsFirebase reports whether conf needs a firebase app.
func NeedsFirebase(conf *core.Config) bool {
	return conf.Database.Engine == core.EngineFirebase || conf.Auth.Provider == core.AuthFirebase
}
