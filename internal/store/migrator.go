package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hr-backend/internal/metadata"
)

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// Migrate creates the tables of the given entities when they do not exist.
// Existing tables are left untouched.
func (m *Migrator) Migrate(ctx context.Context, entities []*metadata.Entity) error {
	return m.store.WithConn(ctx, func(conn *sql.Conn) error {
		for _, e := range entities {
			if _, err := conn.ExecContext(ctx, CreateTableSQL(m.store.Dialect, e)); err != nil {
				return fmt.Errorf("create table %s: %w", e.Table, err)
			}
		}
		return nil
	})
}

// CreateTableSQL renders the CREATE TABLE statement for an entity.
func CreateTableSQL(d Dialect, e *metadata.Entity) string {
	var cols []string
	if e.AutoKey {
		cols = append(cols, d.AutoPrimaryKey(e.Key))
	} else {
		cols = append(cols, d.QuoteIdent(e.Key)+" "+d.ColumnType("int", 0)+" NOT NULL PRIMARY KEY")
	}
	for _, c := range e.Columns {
		cols = append(cols, buildColumnDef(d, c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n    ", d.QuoteIdent(e.Table))
	b.WriteString(strings.Join(cols, ",\n    "))
	b.WriteString("\n)")
	if d.Name() == "mysql" {
		b.WriteString(" DEFAULT CHARSET=utf8mb4")
	}
	return b.String()
}

func buildColumnDef(d Dialect, c metadata.Column) string {
	def := d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Kind, c.Size)
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Unique {
		def += " UNIQUE"
	}
	return def
}
