// Package store owns the relational side: yearly shard databases, per-route
// table lifecycle and idempotent record upserts. One Store is the single
// routing context for the whole process; the poller is single-threaded so
// no locking is needed, but every operation re-resolves the active shard
// instead of caching a handle across a potential year rollover.
package store

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"hotfeed/config"
	"hotfeed/normalize"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// bootstrapDB is the maintenance database used to provision shards.
const bootstrapDB = "postgres"

// YearPointer persists the active shard year across process restarts.
type YearPointer interface {
	ShardYear(ctx context.Context) (year int, ok bool, err error)
	SetShardYear(ctx context.Context, year int) error
}

// Store routes writes to the shard owning the target instant's year.
type Store struct {
	cfg   config.Config
	years YearPointer

	pool *pgxpool.Pool
	year int

	// status memoizes EnsureTable results for the active shard only.
	// It is discarded wholesale on every shard switch.
	status map[string]TableStatus
}

// Open connects the store to the shard for the persisted year, or the
// current year when no pointer exists yet. Fatal-class errors at this
// stage mean the process cannot do useful work.
func Open(ctx context.Context, cfg config.Config, years YearPointer) (*Store, error) {
	s := &Store{
		cfg:    cfg,
		years:  years,
		status: make(map[string]TableStatus),
	}

	year, ok, err := years.ShardYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("read shard year: %w", err)
	}
	if !ok {
		year = time.Now().In(normalize.FeedZone).Year()
		if err := years.SetShardYear(ctx, year); err != nil {
			return nil, fmt.Errorf("persist shard year: %w", err)
		}
	}

	if err := s.switchShard(ctx, year); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the active pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ShardName derives the database name for a calendar year.
func (s *Store) ShardName(year int) string {
	return fmt.Sprintf("%s_%d", s.cfg.PGDBPrefix, year)
}

// Resolve points the store at the shard owning the instant's year,
// provisioning and reconnecting when the year differs from the active one.
func (s *Store) Resolve(ctx context.Context, instant time.Time) error {
	year := instant.In(normalize.FeedZone).Year()
	if s.pool != nil && year == s.year {
		return nil
	}

	log.Printf("shard switch: %d -> %d", s.year, year)
	if err := s.years.SetShardYear(ctx, year); err != nil {
		return fmt.Errorf("persist shard year %d: %w", year, err)
	}
	return s.switchShard(ctx, year)
}

// switchShard provisions the target database if needed, reconnects, and
// invalidates schema knowledge from the previous shard.
func (s *Store) switchShard(ctx context.Context, year int) error {
	name := s.ShardName(year)
	if err := s.provision(ctx, name); err != nil {
		return fmt.Errorf("provision shard %s: %w", name, err)
	}

	pool, err := s.connect(ctx, name)
	if err != nil {
		return fmt.Errorf("connect shard %s: %w", name, err)
	}

	if s.pool != nil {
		s.pool.Close()
	}
	s.pool = pool
	s.year = year
	// Stale table knowledge from the old shard must not leak.
	s.status = make(map[string]TableStatus)
	return nil
}

// provision creates the shard database if it does not exist, going through
// the bootstrap database.
func (s *Store) provision(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, s.dsn(bootstrapDB))
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database %s: %w", name, err)
	}
	if exists {
		return nil
	}

	log.Printf("creating shard database %s", name)
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

func (s *Store) connect(ctx context.Context, dbname string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(s.dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pcfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *Store) dsn(dbname string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.cfg.PGUser, s.cfg.PGPassword),
		Host:   fmt.Sprintf("%s:%d", s.cfg.PGHost, s.cfg.PGPort),
		Path:   "/" + dbname,
	}
	return u.String()
}

// recoverConnection re-opens the active shard pool after a connection-class
// failure so the next operation gets a fresh start. Best effort.
func (s *Store) recoverConnection(ctx context.Context) {
	if s.pool != nil && s.pool.Ping(ctx) == nil {
		return
	}
	log.Printf("store connection unhealthy, reconnecting to shard %d", s.year)
	pool, err := s.connect(ctx, s.ShardName(s.year))
	if err != nil {
		log.Printf("reconnect shard %d: %v", s.year, err)
		return
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.pool = pool
}
