package envcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const dialTimeout = 5 * time.Second

// checkPostgres connects and pings the configured database.
func checkPostgres(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return classifyPostgresError(err)
	}
	defer conn.Close(ctx)

	if err := conn.Ping(ctx); err != nil {
		return classifyPostgresError(err)
	}
	return nil
}

// classifyPostgresError maps PostgreSQL error codes onto messages that name
// the failure class. Returns the original error when it is not a
// PostgreSQL error.
func classifyPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.InvalidPassword,
		pgerrcode.InvalidAuthorizationSpecification:
		return fmt.Errorf("database authentication error: %w", err)

	case pgerrcode.InvalidCatalogName:
		return fmt.Errorf("database does not exist: %w", err)

	case pgerrcode.TooManyConnections,
		pgerrcode.InsufficientResources:
		return fmt.Errorf("database resource limit: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}

// checkTCP verifies the address accepts connections. The MySQL client
// handshake is not needed to know the server is up.
func checkTCP(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("database not reachable at %s: %w", addr, err)
	}
	return conn.Close()
}
