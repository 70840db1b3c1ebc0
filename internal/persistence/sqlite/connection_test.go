package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/oncall-scheduler/internal/persistence"
)

func setupPoolTest(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// pinConnections checks out n distinct connections so the pool is forced to
// open fresh ones instead of reusing the first.
func pinConnections(t *testing.T, pool *ConnectionPool, n int) []*sql.Conn {
	t.Helper()

	ctx := context.Background()
	conns := make([]*sql.Conn, 0, n)
	for i := 0; i < n; i++ {
		conn, err := pool.DB().Conn(ctx)
		if err != nil {
			t.Fatalf("Failed to pin connection %d: %v", i, err)
		}
		t.Cleanup(func() { conn.Close() })
		conns = append(conns, conn)
	}
	return conns
}

func TestConnectionPool_ForeignKeysOnEveryConnection(t *testing.T) {
	pool := setupPoolTest(t)
	ctx := context.Background()

	for i, conn := range pinConnections(t, pool, 3) {
		var enabled int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("Failed to read foreign_keys pragma on connection %d: %v", i, err)
		}
		if enabled != 1 {
			t.Errorf("Expected foreign_keys=1 on connection %d, got %d", i, enabled)
		}
	}
}

func TestConnectionPool_CascadeOnSecondaryConnection(t *testing.T) {
	store := setupStoreTest(t)
	seedRoster(t, store)
	ctx := context.Background()

	pool := store.pool
	conns := pinConnections(t, pool, 3)

	// Delete on the last pinned connection; the member rows must cascade
	// regardless of which pool member the statement lands on.
	if _, err := conns[2].ExecContext(ctx, "DELETE FROM teams WHERE id = ?", "t1"); err != nil {
		t.Fatalf("Failed to delete team: %v", err)
	}

	var orphans int
	if err := conns[1].QueryRowContext(ctx, "SELECT COUNT(*) FROM team_members WHERE team_id = ?", "t1").Scan(&orphans); err != nil {
		t.Fatalf("Failed to count member rows: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected team_members to cascade with the team, found %d orphan rows", orphans)
	}
}

func TestPragmaDSN_PreservesExistingParameters(t *testing.T) {
	t.Parallel()

	plain := pragmaDSN(DefaultConfig("file:oncall.db"))
	if plain != "file:oncall.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)" {
		t.Errorf("Unexpected DSN for plain path: %q", plain)
	}

	withQuery := pragmaDSN(DefaultConfig("file:oncall.db?mode=rwc"))
	if withQuery != "file:oncall.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)" {
		t.Errorf("Unexpected DSN with existing query: %q", withQuery)
	}
}

func TestWithTransaction_RetriesLockedErrors(t *testing.T) {
	pool := setupPoolTest(t)
	ctx := context.Background()

	attempts := 0
	err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected transaction to succeed after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithTransaction_DoesNotRetryConstraintErrors(t *testing.T) {
	pool := setupPoolTest(t)
	ctx := context.Background()

	attempts := 0
	err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		attempts++
		return errors.New("UNIQUE constraint failed: people.id")
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt for a constraint error, got %d", attempts)
	}
}
