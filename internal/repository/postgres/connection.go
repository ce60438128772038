package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"coipond/internal/domain/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Blueprints        string
	BlueprintVersions string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Blueprints:        fmt.Sprintf("%sblueprints", prefix),
		BlueprintVersions: fmt.Sprintf("%sblueprint_versions", prefix),
	}
}

// Pool sizing for the blueprint API. Content edits hold a connection for one
// short transaction; listings run two queries.
const (
	maxPoolConns = 25
	minPoolConns = 5
)

// poolerPort is the port of Supabase's transaction-mode PgBouncer
const poolerPort = 6543

// CreateConnectionPool opens and pings a pgx pool.
//
// PgBouncer in transaction mode cannot hold prepared statements, so on the
// pooler port the default exec mode is switched to cache_describe, which still
// uses the extended protocol that JSONB version histories need. A
// default_query_exec_mode parameter in the URL always wins.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	config.MaxConns = maxPoolConns
	config.MinConns = minPoolConns

	if config.ConnConfig.Port == poolerPort && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("using cache_describe exec mode behind PgBouncer", "port", poolerPort)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or pool when there is none,
// so repository methods join an ExecTx transaction without knowing about it.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
