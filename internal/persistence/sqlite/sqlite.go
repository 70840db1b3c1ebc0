// Package sqlite implements the persistence repositories on top of a SQLite
// database accessed through modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// Store bundles the repository implementations sharing one connection pool.
type Store struct {
	People    *PersonRepository
	Teams     *TeamRepository
	PTO       *PTORepository
	Schedules *ScheduleRepository

	pool *ConnectionPool
}

// NewStore creates every repository on top of the given pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		People:    NewPersonRepository(pool),
		Teams:     NewTeamRepository(pool),
		PTO:       NewPTORepository(pool),
		Schedules: NewScheduleRepository(pool),
		pool:      pool,
	}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func toNullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	copied := value.String
	return &copied
}
