package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/oncall-scheduler/internal/persistence"
)

// TeamRepository implements persistence.TeamRepository using SQLite.
type TeamRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTeamRepository creates a new SQLite team repository.
func NewTeamRepository(pool *ConnectionPool) *TeamRepository {
	return &TeamRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateTeam inserts a team together with its initial member list.
func (r *TeamRepository) CreateTeam(ctx context.Context, team persistence.Team) error {
	if team.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO teams (id, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(tx, query,
			team.ID,
			team.Name,
			toNullString(team.Description),
			formatTime(team.CreatedAt),
			formatTime(team.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertMembers(tx, team.ID, team.MemberIDs)
	})
}

// GetTeam retrieves a team with its member list in stored order.
func (r *TeamRepository) GetTeam(ctx context.Context, id string) (persistence.Team, error) {
	if id == "" {
		return persistence.Team{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		WHERE id = ?
	`

	team, err := scanTeam(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Team{}, err
	}

	team.MemberIDs, err = r.listMemberIDs(ctx, id)
	if err != nil {
		return persistence.Team{}, err
	}

	return team, nil
}

// ListTeams returns all teams with their members, ordered by creation
// timestamp then ID.
func (r *TeamRepository) ListTeams(ctx context.Context) ([]persistence.Team, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM teams
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var teams []persistence.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range teams {
		teams[i].MemberIDs, err = r.listMemberIDs(ctx, teams[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return teams, nil
}

// ReplaceMembers swaps the team's member list atomically.
func (r *TeamRepository) ReplaceMembers(ctx context.Context, teamID string, memberIDs []string) error {
	if teamID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := r.helper.QueryRowTx(tx, "SELECT COUNT(*) FROM teams WHERE id = ?", teamID).Scan(&exists)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM team_members WHERE team_id = ?", teamID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertMembers(tx, teamID, memberIDs)
	})
}

// DeleteTeam removes the team together with its schedules, slots and
// overrides. People are never cascaded.
func (r *TeamRepository) DeleteTeam(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// slot_overrides and slots cascade from schedules, schedules and
		// team_members cascade from teams.
		result, err := r.helper.ExecTx(tx, "DELETE FROM teams WHERE id = ?", id)
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

func (r *TeamRepository) insertMembers(tx *sql.Tx, teamID string, memberIDs []string) error {
	for position, personID := range memberIDs {
		_, err := r.helper.ExecTx(tx,
			"INSERT INTO team_members (team_id, person_id, position) VALUES (?, ?, ?)",
			teamID, personID, position,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *TeamRepository) listMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT person_id FROM team_members WHERE team_id = ? ORDER BY position ASC",
		teamID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var memberIDs []string
	for rows.Next() {
		var personID string
		if err := rows.Scan(&personID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		memberIDs = append(memberIDs, personID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return memberIDs, nil
}

func scanTeam(row rowScanner) (persistence.Team, error) {
	var team persistence.Team
	var description sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&team.ID,
		&team.Name,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Team{}, persistence.ErrNotFound
		}
		return persistence.Team{}, NewErrorMapper().MapError(err)
	}

	team.Description = fromNullString(description)
	if team.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return persistence.Team{}, err
	}
	if team.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return persistence.Team{}, err
	}

	return team, nil
}
