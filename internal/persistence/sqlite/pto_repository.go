package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/oncall-scheduler/internal/persistence"
)

// PTORepository implements persistence.PTORepository using SQLite.
type PTORepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPTORepository creates a new SQLite PTO repository.
func NewPTORepository(pool *ConnectionPool) *PTORepository {
	return &PTORepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEntry inserts a blackout window for one person.
func (r *PTORepository) CreateEntry(ctx context.Context, entry persistence.PTOEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO pto_entries (id, person_id, start_date, end_date, note)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		entry.ID,
		entry.PersonID,
		formatTime(entry.Start),
		formatTime(entry.End),
		toNullString(entry.Note),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetEntry retrieves an entry by ID.
func (r *PTORepository) GetEntry(ctx context.Context, id string) (persistence.PTOEntry, error) {
	if id == "" {
		return persistence.PTOEntry{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, person_id, start_date, end_date, note
		FROM pto_entries
		WHERE id = ?
	`

	return scanEntry(r.helper.QueryRow(ctx, query, id))
}

// ListEntriesForPerson returns a person's entries ordered by start date.
func (r *PTORepository) ListEntriesForPerson(ctx context.Context, personID string) ([]persistence.PTOEntry, error) {
	query := `
		SELECT id, person_id, start_date, end_date, note
		FROM pto_entries
		WHERE person_id = ?
		ORDER BY start_date ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, personID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return collectEntries(rows, r.mapper)
}

// ListEntriesForYear returns entries for the given people whose range
// intersects the calendar year.
func (r *PTORepository) ListEntriesForYear(ctx context.Context, personIDs []string, year int) ([]persistence.PTOEntry, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	placeholders := strings.Repeat("?, ", len(personIDs)-1) + "?"
	query := fmt.Sprintf(`
		SELECT id, person_id, start_date, end_date, note
		FROM pto_entries
		WHERE person_id IN (%s) AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC
	`, placeholders)

	args := make([]any, 0, len(personIDs)+2)
	for _, id := range personIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(yearEnd), formatTime(yearStart))

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return collectEntries(rows, r.mapper)
}

// CountEntriesForPerson returns how many entries reference the person.
func (r *PTORepository) CountEntriesForPerson(ctx context.Context, personID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		"SELECT COUNT(*) FROM pto_entries WHERE person_id = ?",
		personID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteEntry removes an entry by ID.
func (r *PTORepository) DeleteEntry(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM pto_entries WHERE id = ?", id)
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

func collectEntries(rows *sql.Rows, mapper *ErrorMapper) ([]persistence.PTOEntry, error) {
	defer rows.Close()

	var entries []persistence.PTOEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}

	return entries, nil
}

func scanEntry(row rowScanner) (persistence.PTOEntry, error) {
	var entry persistence.PTOEntry
	var note sql.NullString
	var startStr, endStr string

	err := row.Scan(
		&entry.ID,
		&entry.PersonID,
		&startStr,
		&endStr,
		&note,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.PTOEntry{}, persistence.ErrNotFound
		}
		return persistence.PTOEntry{}, NewErrorMapper().MapError(err)
	}

	entry.Note = fromNullString(note)
	if entry.Start, err = parseTime("start_date", startStr); err != nil {
		return persistence.PTOEntry{}, err
	}
	if entry.End, err = parseTime("end_date", endStr); err != nil {
		return persistence.PTOEntry{}, err
	}

	return entry, nil
}
