package sink

import (
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/factory"
	"context"
	"database/sql"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// sqlDialect holds the column types of an embedded database.
type sqlDialect struct {
	driver    string
	text      string
	integer   string
	float     string
	boolean   string
	timestamp string
}

// sqlWriter stores validated flows in an embedded SQL database.
type sqlWriter struct {
	kind string
	db   *sql.DB
	ins  string
}

func createTableStatement(d sqlDialect) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS validated_flows (\n")
	fmt.Fprintf(&b, "\tcapture %s,\n\tanalyzed_at %s,\n", d.text, d.timestamp)
	for _, c := range storedColumns {
		typ := d.text
		switch c.kind {
		case dataset.KindInt:
			typ = d.integer
		case dataset.KindFloat:
			typ = d.float
		}
		fmt.Fprintf(&b, "\t%s %s,\n", c.name, typ)
	}
	fmt.Fprintf(&b, "\tis_valid %s,\n\terror_reason %s\n);", d.boolean, d.text)
	return b.String()
}

func newSQLWriter(kind string, d sqlDialect, path string) (*sqlWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("%s writer requires path", kind)
	}
	db, err := sql.Open(d.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", kind, err)
	}
	if _, err := db.Exec(createTableStatement(d)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	n := len(storedColumns) + 4
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return &sqlWriter{
		kind: kind,
		db:   db,
		ins:  fmt.Sprintf("INSERT INTO validated_flows (%s) VALUES (%s)", insertColumns(), placeholders),
	}, nil
}

func (w *sqlWriter) Type() string { return w.kind }

// Write inserts every validated row in one transaction.
func (w *sqlWriter) Write(ctx context.Context, batch *factory.Batch) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.ins)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range batch.Validated.Rows {
		args := append([]any{batch.Name, batch.Timestamp.UTC()}, typedCells(row)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	log.Printf("Wrote %d flows to %s for capture '%s'", batch.Validated.Len(), w.kind, batch.Name)
	return nil
}

// Count returns the number of stored rows for a capture.
func (w *sqlWriter) Count(ctx context.Context, capture string) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM validated_flows WHERE capture = ?", capture).Scan(&n)
	return n, err
}

func (w *sqlWriter) Close() error {
	return w.db.Close()
}
