package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/oncall-scheduler/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite.
type ScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// ReplaceSchedule atomically removes any previous schedule for the same
// (team, year) key together with its slots and overrides, then inserts the
// new definition and slot set. It reports how many overrides the replacement
// invalidated.
func (r *ScheduleRepository) ReplaceSchedule(ctx context.Context, schedule persistence.Schedule, slots []persistence.Slot) (int, error) {
	if schedule.ID == "" {
		return 0, persistence.ErrConstraintViolation
	}

	memberOrder, err := json.Marshal(schedule.MemberOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to encode member order: %w", err)
	}

	invalidated := 0
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := r.helper.QueryRowTx(tx, `
			SELECT COUNT(*)
			FROM slot_overrides o
			JOIN schedules s ON s.id = o.schedule_id
			WHERE s.team_id = ? AND s.year = ?
		`, schedule.TeamID, schedule.Year).Scan(&invalidated)
		if err != nil {
			return r.mapper.MapError(err)
		}

		// slots and slot_overrides cascade.
		_, err = r.helper.ExecTx(tx,
			"DELETE FROM schedules WHERE team_id = ? AND year = ?",
			schedule.TeamID, schedule.Year,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		_, err = r.helper.ExecTx(tx, `
			INSERT INTO schedules (id, team_id, year, rotation_days, week_starts_on, member_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			schedule.ID,
			schedule.TeamID,
			schedule.Year,
			schedule.RotationDays,
			int(schedule.WeekStartsOn),
			string(memberOrder),
			formatTime(schedule.CreatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, slot := range slots {
			_, err = r.helper.ExecTx(tx, `
				INSERT INTO slots (schedule_id, slot_index, start_date, end_date, primary_id, secondary_id, notes, reminded)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				schedule.ID,
				slot.Index,
				formatTime(slot.Start),
				formatTime(slot.End),
				toNullString(slot.PrimaryID),
				toNullString(slot.SecondaryID),
				toNullString(slot.Notes),
				slot.Reminded,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return invalidated, nil
}

// GetSchedule retrieves a schedule definition by ID.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	if id == "" {
		return persistence.Schedule{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, team_id, year, rotation_days, week_starts_on, member_order, created_at
		FROM schedules
		WHERE id = ?
	`

	return scanSchedule(r.helper.QueryRow(ctx, query, id))
}

// GetScheduleByTeamYear returns the most recently created schedule for the
// pair.
func (r *ScheduleRepository) GetScheduleByTeamYear(ctx context.Context, teamID string, year int) (persistence.Schedule, error) {
	query := `
		SELECT id, team_id, year, rotation_days, week_starts_on, member_order, created_at
		FROM schedules
		WHERE team_id = ? AND year = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	return scanSchedule(r.helper.QueryRow(ctx, query, teamID, year))
}

// DeleteSchedule removes the schedule with its slots and overrides.
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM schedules WHERE id = ?", id)
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

// ListSlots returns the schedule's generated slots ordered by index.
func (r *ScheduleRepository) ListSlots(ctx context.Context, scheduleID string) ([]persistence.Slot, error) {
	var exists int
	err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM schedules WHERE id = ?", scheduleID).Scan(&exists)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	if exists == 0 {
		return nil, persistence.ErrNotFound
	}

	query := `
		SELECT schedule_id, slot_index, start_date, end_date, primary_id, secondary_id, notes, reminded
		FROM slots
		WHERE schedule_id = ?
		ORDER BY slot_index ASC
	`

	rows, err := r.helper.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return slots, nil
}

// ListOverrides returns the schedule's override patches ordered by slot index.
func (r *ScheduleRepository) ListOverrides(ctx context.Context, scheduleID string) ([]persistence.Override, error) {
	query := `
		SELECT schedule_id, slot_index, primary_set, primary_id, secondary_set, secondary_id, notes_set, notes, updated_at
		FROM slot_overrides
		WHERE schedule_id = ?
		ORDER BY slot_index ASC
	`

	rows, err := r.helper.Query(ctx, query, scheduleID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overrides []persistence.Override
	for rows.Next() {
		var override persistence.Override
		var primaryID, secondaryID, notes sql.NullString
		var updatedAtStr string

		err := rows.Scan(
			&override.ScheduleID,
			&override.SlotIndex,
			&override.Primary.Set,
			&primaryID,
			&override.Secondary.Set,
			&secondaryID,
			&override.Notes.Set,
			&notes,
			&updatedAtStr,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		override.Primary.Value = fromNullString(primaryID)
		override.Secondary.Value = fromNullString(secondaryID)
		override.Notes.Value = fromNullString(notes)
		if override.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
			return nil, err
		}

		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return overrides, nil
}

// UpsertOverrides writes the batch atomically; either every override is
// visible afterwards or none is.
func (r *ScheduleRepository) UpsertOverrides(ctx context.Context, scheduleID string, overrides []persistence.Override) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := r.helper.QueryRowTx(tx, "SELECT COUNT(*) FROM schedules WHERE id = ?", scheduleID).Scan(&exists)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		for _, override := range overrides {
			var slotExists int
			err := r.helper.QueryRowTx(tx,
				"SELECT COUNT(*) FROM slots WHERE schedule_id = ? AND slot_index = ?",
				scheduleID, override.SlotIndex,
			).Scan(&slotExists)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if slotExists == 0 {
				return persistence.ErrForeignKeyViolation
			}

			_, err = r.helper.ExecTx(tx, `
				INSERT INTO slot_overrides (schedule_id, slot_index, primary_set, primary_id, secondary_set, secondary_id, notes_set, notes, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(schedule_id, slot_index) DO UPDATE SET
					primary_set = excluded.primary_set,
					primary_id = excluded.primary_id,
					secondary_set = excluded.secondary_set,
					secondary_id = excluded.secondary_id,
					notes_set = excluded.notes_set,
					notes = excluded.notes,
					updated_at = excluded.updated_at
			`,
				scheduleID,
				override.SlotIndex,
				override.Primary.Set,
				toNullString(override.Primary.Value),
				override.Secondary.Set,
				toNullString(override.Secondary.Value),
				override.Notes.Set,
				toNullString(override.Notes.Value),
				formatTime(override.UpdatedAt),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

// CountAssignments counts the effective (override-merged) primary and
// secondary roles held by the person across all schedules.
func (r *ScheduleRepository) CountAssignments(ctx context.Context, personID string) (persistence.AssignmentCounts, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN
				(CASE WHEN o.primary_set = 1 THEN o.primary_id ELSE s.primary_id END) = ?
			THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN
				(CASE WHEN o.secondary_set = 1 THEN o.secondary_id ELSE s.secondary_id END) = ?
			THEN 1 ELSE 0 END), 0)
		FROM slots s
		LEFT JOIN slot_overrides o
			ON o.schedule_id = s.schedule_id AND o.slot_index = s.slot_index
	`

	var counts persistence.AssignmentCounts
	err := r.helper.QueryRow(ctx, query, personID, personID).Scan(&counts.Primary, &counts.Secondary)
	if err != nil {
		return persistence.AssignmentCounts{}, r.mapper.MapError(err)
	}

	return counts, nil
}

// ListUpcomingSlots returns unreminded slots starting within the inclusive
// window, with overrides already applied.
func (r *ScheduleRepository) ListUpcomingSlots(ctx context.Context, from, to time.Time) ([]persistence.UpcomingSlot, error) {
	query := `
		SELECT
			sc.id, sc.team_id, sc.year, sc.rotation_days, sc.week_starts_on, sc.member_order, sc.created_at,
			s.slot_index, s.start_date, s.end_date,
			CASE WHEN o.primary_set = 1 THEN o.primary_id ELSE s.primary_id END,
			CASE WHEN o.secondary_set = 1 THEN o.secondary_id ELSE s.secondary_id END,
			CASE WHEN o.notes_set = 1 THEN o.notes ELSE s.notes END
		FROM slots s
		JOIN schedules sc ON sc.id = s.schedule_id
		LEFT JOIN slot_overrides o
			ON o.schedule_id = s.schedule_id AND o.slot_index = s.slot_index
		WHERE s.reminded = 0 AND s.start_date >= ? AND s.start_date <= ?
		ORDER BY s.start_date ASC, sc.id ASC
	`

	rows, err := r.helper.Query(ctx, query, formatTime(from), formatTime(to))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var upcoming []persistence.UpcomingSlot
	for rows.Next() {
		var item persistence.UpcomingSlot
		var memberOrderStr, scheduleCreatedAtStr string
		var weekStartsOn int
		var startStr, endStr string
		var primaryID, secondaryID, notes sql.NullString

		err := rows.Scan(
			&item.Schedule.ID,
			&item.Schedule.TeamID,
			&item.Schedule.Year,
			&item.Schedule.RotationDays,
			&weekStartsOn,
			&memberOrderStr,
			&scheduleCreatedAtStr,
			&item.Slot.Index,
			&startStr,
			&endStr,
			&primaryID,
			&secondaryID,
			&notes,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		item.Schedule.WeekStartsOn = time.Weekday(weekStartsOn)
		if err := json.Unmarshal([]byte(memberOrderStr), &item.Schedule.MemberOrder); err != nil {
			return nil, fmt.Errorf("failed to decode member order: %w", err)
		}
		if item.Schedule.CreatedAt, err = parseTime("created_at", scheduleCreatedAtStr); err != nil {
			return nil, err
		}

		item.Slot.ScheduleID = item.Schedule.ID
		item.Slot.PrimaryID = fromNullString(primaryID)
		item.Slot.SecondaryID = fromNullString(secondaryID)
		item.Slot.Notes = fromNullString(notes)
		if item.Slot.Start, err = parseTime("start_date", startStr); err != nil {
			return nil, err
		}
		if item.Slot.End, err = parseTime("end_date", endStr); err != nil {
			return nil, err
		}

		upcoming = append(upcoming, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return upcoming, nil
}

// MarkSlotsReminded flags the given slots so the reminder scan skips them.
func (r *ScheduleRepository) MarkSlotsReminded(ctx context.Context, scheduleID string, indices []int) error {
	if len(indices) == 0 {
		return nil
	}

	var exists int
	err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM schedules WHERE id = ?", scheduleID).Scan(&exists)
	if err != nil {
		return r.mapper.MapError(err)
	}
	if exists == 0 {
		return persistence.ErrNotFound
	}

	placeholders := strings.Repeat("?, ", len(indices)-1) + "?"
	query := fmt.Sprintf(
		"UPDATE slots SET reminded = 1 WHERE schedule_id = ? AND slot_index IN (%s)",
		placeholders,
	)

	args := make([]any, 0, len(indices)+1)
	args = append(args, scheduleID)
	for _, index := range indices {
		args = append(args, index)
	}

	if _, err := r.helper.Exec(ctx, query, args...); err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var schedule persistence.Schedule
	var weekStartsOn int
	var memberOrderStr, createdAtStr string

	err := row.Scan(
		&schedule.ID,
		&schedule.TeamID,
		&schedule.Year,
		&schedule.RotationDays,
		&weekStartsOn,
		&memberOrderStr,
		&createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Schedule{}, persistence.ErrNotFound
		}
		return persistence.Schedule{}, NewErrorMapper().MapError(err)
	}

	schedule.WeekStartsOn = time.Weekday(weekStartsOn)
	if err := json.Unmarshal([]byte(memberOrderStr), &schedule.MemberOrder); err != nil {
		return persistence.Schedule{}, fmt.Errorf("failed to decode member order: %w", err)
	}
	if schedule.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Schedule{}, err
	}

	return schedule, nil
}

func scanSlot(row rowScanner) (persistence.Slot, error) {
	var slot persistence.Slot
	var startStr, endStr string
	var primaryID, secondaryID, notes sql.NullString

	err := row.Scan(
		&slot.ScheduleID,
		&slot.Index,
		&startStr,
		&endStr,
		&primaryID,
		&secondaryID,
		&notes,
		&slot.Reminded,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Slot{}, persistence.ErrNotFound
		}
		return persistence.Slot{}, NewErrorMapper().MapError(err)
	}

	slot.PrimaryID = fromNullString(primaryID)
	slot.SecondaryID = fromNullString(secondaryID)
	slot.Notes = fromNullString(notes)
	if slot.Start, err = parseTime("start_date", startStr); err != nil {
		return persistence.Slot{}, err
	}
	if slot.End, err = parseTime("end_date", endStr); err != nil {
		return persistence.Slot{}, err
	}

	return slot, nil
}
