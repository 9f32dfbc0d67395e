package store

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jackc/pgx/v5"
)

// TableStatus reports whether a table's uniqueness constraint is usable.
type TableStatus int

const (
	// StatusConstrained means conflict-aware inserts can rely on the
	// unique constraint over (ingestion_time, title, item_timestamp).
	StatusConstrained TableStatus = iota
	// StatusBestEffort means the constraint could not be (re)created and
	// writers must deduplicate manually.
	StatusBestEffort
)

// uniqueCols is the required uniqueness constraint target.
var uniqueCols = []string{"ingestion_time", "item_timestamp", "title"}

// EnsureTable makes sure the route table exists in the active shard with a
// healthy uniqueness constraint and time partitioning, repairing what it
// can. Results are memoized until the next shard switch, so repeat calls
// within a cycle are cheap.
func (s *Store) EnsureTable(ctx context.Context, table string) (TableStatus, error) {
	if st, ok := s.status[table]; ok {
		return st, nil
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return StatusBestEffort, err
	}

	var st TableStatus
	if !exists {
		st, err = s.createTable(ctx, table)
	} else {
		st, err = s.repairTable(ctx, table)
	}
	if err != nil {
		return StatusBestEffort, err
	}

	s.ensureHypertable(ctx, table, exists)

	s.status[table] = st
	return st, nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

func (s *Store) createTable(ctx context.Context, table string) (TableStatus, error) {
	ident := pgx.Identifier{table}.Sanitize()
	ddl := fmt.Sprintf(`CREATE TABLE %s (
		ingestion_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		update_time    TIMESTAMPTZ NOT NULL,
		title          TEXT,
		"desc"         TEXT,
		cover          TEXT,
		item_timestamp BIGINT,
		hot            TEXT,
		url            TEXT,
		mobile_url     TEXT,
		sort_order     TEXT,
		CONSTRAINT %s UNIQUE (ingestion_time, title, item_timestamp)
	)`, ident, pgx.Identifier{table + "_uniq"}.Sanitize())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return StatusBestEffort, fmt.Errorf("create table %s: %w", table, err)
	}
	return StatusConstrained, nil
}

// repairTable verifies the unique constraint covers exactly the required
// columns, rebuilding it when absent or mismatched. A constraint that
// cannot be rebuilt even after deduplication degrades the table to
// best-effort mode rather than blocking ingestion.
func (s *Store) repairTable(ctx context.Context, table string) (TableStatus, error) {
	constraints, err := s.uniqueConstraints(ctx, table)
	if err != nil {
		return StatusBestEffort, err
	}

	for _, c := range constraints {
		if sameColumns(c.columns, uniqueCols) {
			return StatusConstrained, nil
		}
	}

	for _, c := range constraints {
		log.Printf("table %s: dropping mismatched unique constraint %s", table, c.name)
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			pgx.Identifier{table}.Sanitize(), pgx.Identifier{c.name}.Sanitize())
		if _, err := s.pool.Exec(ctx, drop); err != nil {
			return StatusBestEffort, fmt.Errorf("drop constraint %s on %s: %w", c.name, table, err)
		}
	}

	if err := s.addUniqueConstraint(ctx, table); err == nil {
		return StatusConstrained, nil
	}

	// Typically pre-existing duplicate rows. Keep the earliest physical
	// row per key group and retry once.
	log.Printf("table %s: deduplicating before constraint retry", table)
	if err := s.deduplicate(ctx, table); err != nil {
		log.Printf("table %s: deduplication failed: %v", table, err)
		return StatusBestEffort, nil
	}
	if err := s.addUniqueConstraint(ctx, table); err != nil {
		log.Printf("table %s: operating without unique constraint: %v", table, err)
		return StatusBestEffort, nil
	}
	return StatusConstrained, nil
}

type uniqueConstraint struct {
	name    string
	columns []string
}

func (s *Store) uniqueConstraints(ctx context.Context, table string) ([]uniqueConstraint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT con.conname, array_agg(att.attname::text ORDER BY att.attname)
		 FROM pg_constraint con
		 JOIN pg_class rel ON rel.oid = con.conrelid
		 JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		 JOIN pg_attribute att ON att.attrelid = rel.oid AND att.attnum = ANY (con.conkey)
		 WHERE rel.relname = $1 AND nsp.nspname = 'public' AND con.contype = 'u'
		 GROUP BY con.conname`, table)
	if err != nil {
		return nil, fmt.Errorf("inspect constraints on %s: %w", table, err)
	}
	defer rows.Close()

	var out []uniqueConstraint
	for rows.Next() {
		var c uniqueConstraint
		if err := rows.Scan(&c.name, &c.columns); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) addUniqueConstraint(ctx context.Context, table string) error {
	ddl := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (ingestion_time, title, item_timestamp)",
		pgx.Identifier{table}.Sanitize(), pgx.Identifier{table + "_uniq"}.Sanitize())
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// deduplicate deletes all but the earliest physical row per
// (ingestion_time, title, item_timestamp) group.
func (s *Store) deduplicate(ctx context.Context, table string) error {
	ident := pgx.Identifier{table}.Sanitize()
	del := fmt.Sprintf(`DELETE FROM %s a USING %s b
		WHERE a.ctid > b.ctid
		  AND a.ingestion_time = b.ingestion_time
		  AND a.title IS NOT DISTINCT FROM b.title
		  AND a.item_timestamp IS NOT DISTINCT FROM b.item_timestamp`, ident, ident)
	_, err := s.pool.Exec(ctx, del)
	return err
}

// ensureHypertable converts the table into a day-chunked hypertable.
// Conversion failure is a degraded mode, not an error: the table keeps
// working as an ordinary table.
func (s *Store) ensureHypertable(ctx context.Context, table string, migrate bool) {
	var isHyper bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM timescaledb_information.hypertables
			WHERE hypertable_name = $1
		)`, table).Scan(&isHyper)
	if err != nil {
		log.Printf("table %s: hypertable check failed (timescaledb missing?): %v", table, err)
		return
	}
	if isHyper {
		return
	}

	convert := `SELECT create_hypertable($1::regclass, 'ingestion_time',
		chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE, migrate_data => $2)`
	if _, err := s.pool.Exec(ctx, convert, pgx.Identifier{table}.Sanitize(), migrate); err != nil {
		log.Printf("table %s: not partitioned, continuing as plain table: %v", table, err)
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
