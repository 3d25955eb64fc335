package sqlitecfg

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type Struct struct {
	File string `json:"file"`
}

// opens (creating if necessary) the sqlite database at the configured
// path and applies the given schema.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	if config.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.File), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}

	return db, nil
}
