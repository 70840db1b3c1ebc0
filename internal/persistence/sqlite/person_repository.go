package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/oncall-scheduler/internal/persistence"
)

// PersonRepository implements persistence.PersonRepository using SQLite.
type PersonRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPersonRepository creates a new SQLite person repository.
func NewPersonRepository(pool *ConnectionPool) *PersonRepository {
	return &PersonRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePerson inserts a new person.
func (r *PersonRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO people (id, name, email, time_zone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		person.ID,
		person.Name,
		toNullString(person.Email),
		toNullString(person.TimeZone),
		formatTime(person.CreatedAt),
		formatTime(person.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdatePerson updates an existing person.
func (r *PersonRepository) UpdatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE people
		SET name = ?, email = ?, time_zone = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		person.Name,
		toNullString(person.Email),
		toNullString(person.TimeZone),
		formatTime(person.UpdatedAt),
		person.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetPerson retrieves a person by ID.
func (r *PersonRepository) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	if id == "" {
		return persistence.Person{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, email, time_zone, created_at, updated_at
		FROM people
		WHERE id = ?
	`

	return scanPerson(r.helper.QueryRow(ctx, query, id))
}

// ListPeople returns all people ordered by creation timestamp then ID.
func (r *PersonRepository) ListPeople(ctx context.Context) ([]persistence.Person, error) {
	query := `
		SELECT id, name, email, time_zone, created_at, updated_at
		FROM people
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var people []persistence.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return people, nil
}

// DeletePerson removes a person and their team memberships. Callers are
// expected to have verified the person holds no assignments or PTO entries.
func (r *PersonRepository) DeletePerson(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM team_members WHERE person_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM people WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (persistence.Person, error) {
	var person persistence.Person
	var email, timeZone sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&person.ID,
		&person.Name,
		&email,
		&timeZone,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Person{}, persistence.ErrNotFound
		}
		return persistence.Person{}, NewErrorMapper().MapError(err)
	}

	person.Email = fromNullString(email)
	person.TimeZone = fromNullString(timeZone)
	if person.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Person{}, err
	}
	if person.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Person{}, err
	}

	return person, nil
}
