package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/factory"

	_ "modernc.org/sqlite"
)

var sqliteDialect = sqlDialect{
	driver:    "sqlite",
	text:      "TEXT",
	integer:   "INTEGER",
	float:     "REAL",
	boolean:   "BOOLEAN",
	timestamp: "TIMESTAMP",
}

func init() {
	factory.RegisterWriter("sqlite", NewSQLiteWriter)
}

// NewSQLiteWriter creates a writer storing flows in a SQLite file.
func NewSQLiteWriter(def config.WriterDef) (factory.Writer, error) {
	return newSQLWriter("sqlite", sqliteDialect, def.SQLite.Path)
}
