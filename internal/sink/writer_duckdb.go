package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/factory"

	_ "github.com/marcboeker/go-duckdb"
)

var duckdbDialect = sqlDialect{
	driver:    "duckdb",
	text:      "VARCHAR",
	integer:   "BIGINT",
	float:     "DOUBLE",
	boolean:   "BOOLEAN",
	timestamp: "TIMESTAMP",
}

func init() {
	factory.RegisterWriter("duckdb", NewDuckDBWriter)
}

// NewDuckDBWriter creates a writer storing flows in a DuckDB file.
func NewDuckDBWriter(def config.WriterDef) (factory.Writer, error) {
	return newSQLWriter("duckdb", duckdbDialect, def.DuckDB.Path)
}
