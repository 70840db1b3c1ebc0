package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/oncall-scheduler/internal/persistence"
)

// PersonStore captures the person persistence interactions needed by the
// directory.
type PersonStore interface {
	CreatePerson(ctx context.Context, person persistence.Person) error
	UpdatePerson(ctx context.Context, person persistence.Person) error
	GetPerson(ctx context.Context, id string) (persistence.Person, error)
	ListPeople(ctx context.Context) ([]persistence.Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// TeamStore captures the team persistence interactions needed by the
// directory.
type TeamStore interface {
	CreateTeam(ctx context.Context, team persistence.Team) error
	GetTeam(ctx context.Context, id string) (persistence.Team, error)
	ListTeams(ctx context.Context) ([]persistence.Team, error)
	ReplaceMembers(ctx context.Context, teamID string, memberIDs []string) error
	DeleteTeam(ctx context.Context, id string) error
}

// PTOStore captures the blackout persistence interactions needed by the
// directory.
type PTOStore interface {
	CreateEntry(ctx context.Context, entry persistence.PTOEntry) error
	GetEntry(ctx context.Context, id string) (persistence.PTOEntry, error)
	ListEntriesForPerson(ctx context.Context, personID string) ([]persistence.PTOEntry, error)
	CountEntriesForPerson(ctx context.Context, personID string) (int, error)
	DeleteEntry(ctx context.Context, id string) error
}

// UsageCounter reports override-merged assignment counts for a person.
type UsageCounter interface {
	CountAssignments(ctx context.Context, personID string) (persistence.AssignmentCounts, error)
}

// DirectoryService manages people, teams and blackout windows.
type DirectoryService struct {
	people      PersonStore
	teams       TeamStore
	pto         PTOStore
	usage       UsageCounter
	logger      *slog.Logger
	idGenerator func() string
	now         func() time.Time
}

// NewDirectoryService wires dependencies for directory operations.
func NewDirectoryService(people PersonStore, teams TeamStore, pto PTOStore, usage UsageCounter, logger *slog.Logger, idGenerator func() string, now func() time.Time) *DirectoryService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		people:      people,
		teams:       teams,
		pto:         pto,
		usage:       usage,
		logger:      defaultLogger(logger),
		idGenerator: idGenerator,
		now:         now,
	}
}

// CreatePerson registers a new person.
func (s *DirectoryService) CreatePerson(ctx context.Context, input PersonInput) (PersonView, error) {
	logger := serviceLogger(ctx, s.logger, "directory", "create_person")

	if err := validatePersonInput(input); err != nil {
		return PersonView{}, err
	}

	now := s.now().UTC()
	person := persistence.Person{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Email:     copyStrPtr(input.Email),
		TimeZone:  copyStrPtr(input.TimeZone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.people.CreatePerson(ctx, person); err != nil {
		return PersonView{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "person created", "person_id", person.ID)
	return personView(person), nil
}

// UpdatePerson replaces a person's mutable fields.
func (s *DirectoryService) UpdatePerson(ctx context.Context, id string, input PersonInput) (PersonView, error) {
	logger := serviceLogger(ctx, s.logger, "directory", "update_person", "person_id", id)

	if err := validatePersonInput(input); err != nil {
		return PersonView{}, err
	}

	person, err := s.people.GetPerson(ctx, id)
	if err != nil {
		return PersonView{}, mapRepoError(err)
	}

	person.Name = strings.TrimSpace(input.Name)
	person.Email = copyStrPtr(input.Email)
	person.TimeZone = copyStrPtr(input.TimeZone)
	person.UpdatedAt = s.now().UTC()

	if err := s.people.UpdatePerson(ctx, person); err != nil {
		return PersonView{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "person updated")
	return personView(person), nil
}

// GetPerson returns a single person.
func (s *DirectoryService) GetPerson(ctx context.Context, id string) (PersonView, error) {
	person, err := s.people.GetPerson(ctx, id)
	if err != nil {
		return PersonView{}, mapRepoError(err)
	}
	return personView(person), nil
}

// ListPeople returns every registered person.
func (s *DirectoryService) ListPeople(ctx context.Context) ([]PersonView, error) {
	people, err := s.people.ListPeople(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views := make([]PersonView, 0, len(people))
	for _, person := range people {
		views = append(views, personView(person))
	}
	return views, nil
}

// DeletePerson removes a person. The delete is gated: a person still
// referenced by blackout entries or effective slot assignments cannot be
// removed.
func (s *DirectoryService) DeletePerson(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "directory", "delete_person", "person_id", id)

	usage, err := s.Usage(ctx, id)
	if err != nil {
		return err
	}
	if usage.Total() > 0 {
		return fmt.Errorf("%w: person has %d references (pto=%d primary=%d secondary=%d)",
			ErrConflict, usage.Total(), usage.PTOCount, usage.PrimarySlots, usage.SecondarySlots)
	}

	if err := s.people.DeletePerson(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "person deleted")
	return nil
}

// Usage reports everything that references the person across all schedules,
// with overrides applied.
func (s *DirectoryService) Usage(ctx context.Context, personID string) (PersonUsage, error) {
	if _, err := s.people.GetPerson(ctx, personID); err != nil {
		return PersonUsage{}, mapRepoError(err)
	}

	ptoCount, err := s.pto.CountEntriesForPerson(ctx, personID)
	if err != nil {
		return PersonUsage{}, mapRepoError(err)
	}

	counts, err := s.usage.CountAssignments(ctx, personID)
	if err != nil {
		return PersonUsage{}, mapRepoError(err)
	}

	return PersonUsage{
		PTOCount:       ptoCount,
		PrimarySlots:   counts.Primary,
		SecondarySlots: counts.Secondary,
	}, nil
}

// CreateTeam registers a new team with an optional initial member list.
func (s *DirectoryService) CreateTeam(ctx context.Context, input TeamInput) (TeamView, error) {
	logger := serviceLogger(ctx, s.logger, "directory", "create_team")

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	validateMemberIDs(input.MemberIDs, vErr)
	if vErr.HasErrors() {
		return TeamView{}, vErr
	}

	if err := s.ensureMembersExist(ctx, input.MemberIDs); err != nil {
		return TeamView{}, err
	}

	now := s.now().UTC()
	team := persistence.Team{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(input.Name),
		Description: copyStrPtr(input.Description),
		MemberIDs:   append([]string(nil), input.MemberIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return TeamView{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "team created", "team_id", team.ID, "members", len(team.MemberIDs))
	return teamView(team), nil
}

// GetTeam returns a single team.
func (s *DirectoryService) GetTeam(ctx context.Context, id string) (TeamView, error) {
	team, err := s.teams.GetTeam(ctx, id)
	if err != nil {
		return TeamView{}, mapRepoError(err)
	}
	return teamView(team), nil
}

// ListTeams returns every team.
func (s *DirectoryService) ListTeams(ctx context.Context) ([]TeamView, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views := make([]TeamView, 0, len(teams))
	for _, team := range teams {
		views = append(views, teamView(team))
	}
	return views, nil
}

// UpdateMembers replaces the team's member list. Existing schedules keep
// their generation-time member order.
func (s *DirectoryService) UpdateMembers(ctx context.Context, teamID string, memberIDs []string) (TeamView, error) {
	logger := serviceLogger(ctx, s.logger, "directory", "update_members", "team_id", teamID)

	vErr := &ValidationError{}
	validateMemberIDs(memberIDs, vErr)
	if vErr.HasErrors() {
		return TeamView{}, vErr
	}

	if err := s.ensureMembersExist(ctx, memberIDs); err != nil {
		return TeamView{}, err
	}

	if err := s.teams.ReplaceMembers(ctx, teamID, memberIDs); err != nil {
		return TeamView{}, mapRepoError(err)
	}

	team, err := s.teams.GetTeam(ctx, teamID)
	if err != nil {
		return TeamView{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "team members updated", "members", len(memberIDs))
	return teamView(team), nil
}

// DeleteTeam removes the team together with its schedules. People survive.
func (s *DirectoryService) DeleteTeam(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "directory", "delete_team", "team_id", id)

	if err := s.teams.DeleteTeam(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "team deleted")
	return nil
}

// CreatePTO records an inclusive blackout window for a person.
func (s *DirectoryService) CreatePTO(ctx context.Context, input PTOInput) (PTOView, error) {
	logger := serviceLogger(ctx, s.logger, "directory", "create_pto", "person_id", input.PersonID)

	vErr := &ValidationError{}
	if input.PersonID == "" {
		vErr.add("person_id", "person id is required")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		vErr.add("start", "start and end dates are required")
	} else if input.End.Before(input.Start) {
		vErr.add("end", "end must not be before start")
	}
	if vErr.HasErrors() {
		return PTOView{}, vErr
	}

	if _, err := s.people.GetPerson(ctx, input.PersonID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			inner := &ValidationError{}
			inner.add("person_id", "unknown person")
			return PTOView{}, inner
		}
		return PTOView{}, mapRepoError(err)
	}

	entry := persistence.PTOEntry{
		ID:       s.idGenerator(),
		PersonID: input.PersonID,
		Start:    input.Start,
		End:      input.End,
		Note:     copyStrPtr(input.Note),
	}

	if err := s.pto.CreateEntry(ctx, entry); err != nil {
		return PTOView{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "pto entry created", "entry_id", entry.ID)
	return ptoView(entry), nil
}

// ListPTO returns a person's blackout windows ordered by start date.
func (s *DirectoryService) ListPTO(ctx context.Context, personID string) ([]PTOView, error) {
	if personID == "" {
		vErr := &ValidationError{}
		vErr.add("person_id", "person id is required")
		return nil, vErr
	}
	if _, err := s.people.GetPerson(ctx, personID); err != nil {
		return nil, mapRepoError(err)
	}

	entries, err := s.pto.ListEntriesForPerson(ctx, personID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views := make([]PTOView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, ptoView(entry))
	}
	return views, nil
}

// DeletePTO removes a blackout entry. Already-generated schedules are not
// revisited.
func (s *DirectoryService) DeletePTO(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "directory", "delete_pto", "entry_id", id)

	if err := s.pto.DeleteEntry(ctx, id); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "pto entry deleted")
	return nil
}

func (s *DirectoryService) ensureMembersExist(ctx context.Context, memberIDs []string) error {
	vErr := &ValidationError{}
	for _, id := range memberIDs {
		if _, err := s.people.GetPerson(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("member_ids", fmt.Sprintf("unknown person %s", id))
				continue
			}
			return mapRepoError(err)
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validatePersonInput(input PersonInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Email != nil && !strings.Contains(*input.Email, "@") {
		vErr.add("email", "email must contain @")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateMemberIDs(memberIDs []string, vErr *ValidationError) {
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if id == "" {
			vErr.add("member_ids", "member ids must not be empty")
			continue
		}
		if _, ok := seen[id]; ok {
			vErr.add("member_ids", fmt.Sprintf("%s appears more than once", id))
			continue
		}
		seen[id] = struct{}{}
	}
}

func teamView(team persistence.Team) TeamView {
	return TeamView{
		ID:          team.ID,
		Name:        team.Name,
		Description: copyStrPtr(team.Description),
		MemberIDs:   append([]string(nil), team.MemberIDs...),
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
}

func ptoView(entry persistence.PTOEntry) PTOView {
	return PTOView{
		ID:       entry.ID,
		PersonID: entry.PersonID,
		Start:    entry.Start,
		End:      entry.End,
		Note:     copyStrPtr(entry.Note),
	}
}
