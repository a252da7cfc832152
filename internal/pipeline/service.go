package pipeline

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/datalift/listprep/internal/config"
	"github.com/datalift/listprep/internal/mapping"
)

// DB is the database surface the pipeline needs. Satisfied by *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Service owns the processing flow for uploaded batches and the table-level
// operations addressing the materialized result.
type Service struct {
	db    DB
	cfg   *config.Config
	maps  *mapping.Store
	guard *queryGuard

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewService creates a Service. The mapping store shares the same pool.
func NewService(db DB, cfg *config.Config, maps *mapping.Store) *Service {
	return &Service{
		db:    db,
		cfg:   cfg,
		maps:  maps,
		guard: newQueryGuard(cfg.Retry.Attempts, cfg.Retry.Backoff),
		locks: make(map[string]*sync.Mutex),
	}
}

// Mappings exposes the mapping store for the web layer.
func (s *Service) Mappings() *mapping.Store { return s.maps }

// TableLock returns the mutex guarding schema mutations on the named table.
// Every schema-altering operation (computed-variable apply/remove) must hold
// it for the duration of the change.
func (s *Service) TableLock(table string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	mu, ok := s.locks[table]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[table] = mu
	}
	return mu
}
