package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"trainingclub/internal/core"
	"trainingclub/internal/storage"
)

// MatchKind tells which key resolved a member lookup.
type MatchKind string

const (
	MatchedByID    MatchKind = "id"
	MatchedByEmail MatchKind = "email"
)

type Resolution struct {
	Member    core.Member
	MatchedBy MatchKind
}

type MemberService struct {
	store *storage.SQLiteRepository
	clock core.Clock
}

func normalizeMember(m core.Member) core.Member {
	m.GivenName = strings.TrimSpace(m.GivenName)
	m.FamilyName = strings.TrimSpace(m.FamilyName)
	m.Email = strings.TrimSpace(m.Email)
	m.Rank = strings.TrimSpace(m.Rank)
	return m
}

// Create assigns an id, defaults the role to Member and the join date to
// today, and stores the member.
func (s *MemberService) Create(ctx context.Context, m core.Member) (core.Member, error) {
	m = normalizeMember(m)
	if m.Role == "" {
		m.Role = core.RoleMember
	}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	role, _ := core.ParseRole(string(m.Role))
	m.Role = role

	now := s.clock.Now()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	if m.JoinedAt.IsZero() {
		m.JoinedAt = core.StartOfDay(now)
	}

	if err := s.store.CreateMember(ctx, m); err != nil {
		return core.Member{}, err
	}
	return s.store.GetMember(ctx, m.ID)
}

// Update rewrites profile fields; role changes go through AssignRole.
func (s *MemberService) Update(ctx context.Context, m core.Member) (core.Member, error) {
	m = normalizeMember(m)
	current, err := s.store.GetMember(ctx, m.ID)
	if err != nil {
		return core.Member{}, err
	}
	m.Role = current.Role
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = current.JoinedAt
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return core.Member{}, err
	}
	return s.store.GetMember(ctx, m.ID)
}

func (s *MemberService) Get(ctx context.Context, id string) (core.Member, error) {
	return s.store.GetMember(ctx, strings.TrimSpace(id))
}

func (s *MemberService) List(ctx context.Context) ([]core.Member, error) {
	return s.store.ListMembers(ctx)
}

// Search returns up to MemberSearchLimit members matching term; an empty
// term lists everyone.
func (s *MemberService) Search(ctx context.Context, term string) ([]core.Member, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx)
	}
	return s.store.SearchMembers(ctx, term, core.MemberSearchLimit)
}

// Delete removes the member with their attendance and fee rows.
func (s *MemberService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteMember(ctx, strings.TrimSpace(id))
}

// Resolve looks key up as a member id first, then as an email.
func (s *MemberService) Resolve(ctx context.Context, key string) (Resolution, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Resolution{}, core.NotFoundf("member not found")
	}

	m, err := s.store.GetMember(ctx, key)
	if err == nil {
		return Resolution{Member: m, MatchedBy: MatchedByID}, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return Resolution{}, err
	}

	m, err = s.store.GetMemberByEmail(ctx, key)
	if err == nil {
		return Resolution{Member: m, MatchedBy: MatchedByEmail}, nil
	}
	if errors.Is(err, core.ErrNotFound) {
		return Resolution{}, core.NotFoundf("member %s not found", key)
	}
	return Resolution{}, err
}

// AssignRole resolves the member by id or email and sets the role.
func (s *MemberService) AssignRole(ctx context.Context, key, role string) (Resolution, error) {
	r, err := core.ParseRole(role)
	if err != nil {
		return Resolution{}, err
	}
	res, err := s.Resolve(ctx, key)
	if err != nil {
		return Resolution{}, err
	}
	if err := s.store.UpdateMemberRole(ctx, res.Member.ID, r); err != nil {
		return Resolution{}, err
	}
	res.Member.Role = r
	return res, nil
}
