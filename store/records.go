package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
)

// Record is one persisted feed item. Hot and SortOrder are strings because
// conflicting writes within a day append with a comma instead of
// overwriting, keeping multi-cycle rank history on a single row.
type Record struct {
	UpdateTime    time.Time
	Title         string
	Desc          string
	Cover         string
	ItemTimestamp int64
	Hot           string
	URL           string
	MobileURL     string
	SortOrder     string
}

// Upsert writes one record into the route table of the active shard,
// merging hot/sort_order on same-day conflicts. The strategy follows the
// table's constraint status: conflict-aware insert when the unique
// constraint is healthy, manual check-then-write otherwise.
//
// Rows are written with ingestion_time truncated to the current day; that
// is what makes the unique constraint equivalent to one-row-per-item-per-day.
func (s *Store) Upsert(ctx context.Context, table string, st TableStatus, r Record) error {
	var err error
	if st == StatusConstrained {
		err = s.upsertConstrained(ctx, table, r)
	} else {
		err = s.upsertManual(ctx, table, r)
	}
	if err != nil {
		s.recoverConnection(ctx)
	}
	return err
}

func (s *Store) upsertConstrained(ctx context.Context, table string, r Record) error {
	q := fmt.Sprintf(`INSERT INTO %s AS t
		(ingestion_time, update_time, title, "desc", cover, item_timestamp, hot, url, mobile_url, sort_order)
		VALUES (date_trunc('day', now()), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ingestion_time, title, item_timestamp) DO UPDATE SET
			hot        = COALESCE(t.hot, '') || ',' || EXCLUDED.hot,
			sort_order = COALESCE(t.sort_order, '') || ',' || EXCLUDED.sort_order,
			update_time = EXCLUDED.update_time`,
		pgx.Identifier{table}.Sanitize())

	_, err := s.pool.Exec(ctx, q,
		r.UpdateTime, r.Title, r.Desc, r.Cover, r.ItemTimestamp, r.Hot, r.URL, r.MobileURL, r.SortOrder)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	return nil
}

// upsertManual preserves the merge semantics without a unique constraint:
// look for a same-day row for the item, append to it, insert otherwise.
// Legitimately needed when constraint repair left the table degraded.
func (s *Store) upsertManual(ctx context.Context, table string, r Record) error {
	ident := pgx.Identifier{table}.Sanitize()

	sel := fmt.Sprintf(`SELECT ingestion_time FROM %s
		WHERE ingestion_time >= date_trunc('day', now())
		  AND ingestion_time < date_trunc('day', now()) + INTERVAL '1 day'
		  AND title IS NOT DISTINCT FROM $1
		  AND item_timestamp IS NOT DISTINCT FROM $2
		LIMIT 1`, ident)

	var ingestion time.Time
	err := s.pool.QueryRow(ctx, sel, r.Title, r.ItemTimestamp).Scan(&ingestion)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		ins := fmt.Sprintf(`INSERT INTO %s
			(ingestion_time, update_time, title, "desc", cover, item_timestamp, hot, url, mobile_url, sort_order)
			VALUES (date_trunc('day', now()), $1, $2, $3, $4, $5, $6, $7, $8, $9)`, ident)
		if _, err := s.pool.Exec(ctx, ins,
			r.UpdateTime, r.Title, r.Desc, r.Cover, r.ItemTimestamp, r.Hot, r.URL, r.MobileURL, r.SortOrder); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("check same-day row in %s: %w", table, err)
	}

	upd := fmt.Sprintf(`UPDATE %s SET
			hot        = COALESCE(hot, '') || ',' || $1,
			sort_order = COALESCE(sort_order, '') || ',' || $2,
			update_time = $3
		WHERE ingestion_time = $4
		  AND title IS NOT DISTINCT FROM $5
		  AND item_timestamp IS NOT DISTINCT FROM $6`, ident)
	tag, err := s.pool.Exec(ctx, upd, r.Hot, r.SortOrder, r.UpdateTime, ingestion, r.Title, r.ItemTimestamp)
	if err != nil {
		return fmt.Errorf("merge into %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		log.Printf("table %s: same-day row vanished during manual merge, title=%q", table, r.Title)
	}
	return nil
}
