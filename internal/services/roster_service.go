package services

import (
	"context"
	"errors"
	"fmt"

	"troupe/internal/core"
)

// ErrTeamMismatch is returned when a member is assigned to an event
// scheduled for a different team.
var ErrTeamMismatch = errors.New("member team does not match event team")

// RosterStore is the slice of the repository the roster service needs.
type RosterStore interface {
	CreateEvent(ctx context.Context, e core.Event) (core.Event, error)
	GetEvent(ctx context.Context, id string) (core.Event, error)
	ListEvents(ctx context.Context) ([]core.Event, error)

	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	GetMember(ctx context.Context, id string) (core.Member, error)
	ListMembers(ctx context.Context) ([]core.Member, error)

	AssignMember(ctx context.Context, eventID, memberID string) error
	ListEventMembers(ctx context.Context, eventID string) ([]core.Member, error)
}

type RosterService struct {
	store RosterStore
}

func NewRosterService(store RosterStore) *RosterService {
	return &RosterService{store: store}
}

func (s *RosterService) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	if err := e.Validate(); err != nil {
		return core.Event{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	return s.store.CreateEvent(ctx, e)
}

func (s *RosterService) GetEvent(ctx context.Context, id string) (core.Event, error) {
	return s.store.GetEvent(ctx, id)
}

func (s *RosterService) ListEvents(ctx context.Context) ([]core.Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *RosterService) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if err := m.Validate(); err != nil {
		return core.Member{}, fmt.Errorf("%w: %s", ErrInvalidPatch, err)
	}
	return s.store.CreateMember(ctx, m)
}

func (s *RosterService) GetMember(ctx context.Context, id string) (core.Member, error) {
	return s.store.GetMember(ctx, id)
}

func (s *RosterService) ListMembers(ctx context.Context) ([]core.Member, error) {
	return s.store.ListMembers(ctx)
}

// AssignMember puts a member on an event's roster. Both sides must
// exist and belong to the same team.
func (s *RosterService) AssignMember(ctx context.Context, eventID, memberID string) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if event.Team != member.Team {
		return fmt.Errorf("member %s (%s) on event %s (%s): %w",
			member.ID, member.Team, event.ID, event.Team, ErrTeamMismatch)
	}
	return s.store.AssignMember(ctx, eventID, memberID)
}

func (s *RosterService) EventRoster(ctx context.Context, eventID string) ([]core.Member, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListEventMembers(ctx, eventID)
}
