package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trainingclub/internal/core"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.svc.Members.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toMembers(members)).Write(w)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	m, err := s.memberFromBody(body)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	m.Role = core.Role(body.Get("role"))

	created, err := s.svc.Members.Create(r.Context(), m)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("Member created").Data(toMember(created)).Write(w)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Members.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(toMember(m)).Write(w)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	m, err := s.memberFromBody(body)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	m.ID = chi.URLParam(r, "id")

	updated, err := s.svc.Members.Update(r.Context(), m)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Member updated").Data(toMember(updated)).Write(w)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Members.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Member deleted").Write(w)
}

func (s *Server) handleCheckInCode(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Members.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{
		"member_id": m.ID,
		"code":      core.EncodeCheckInCode(m),
	}).Write(w)
}

// handleAssignRole takes {user, role}; user is a member id or email.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	user := body.Get("user")
	if user == "" {
		BadRequestError("user is required").Write(w)
		return
	}

	res, err := s.svc.Members.AssignRole(r.Context(), user, body.Get("role"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().
		Message("Role set to " + string(res.Member.Role)).
		Data(toRoleAssignment(res)).
		Write(w)
}

func (s *Server) memberFromBody(body *RequestBodyParser) (core.Member, error) {
	m := core.Member{
		GivenName:  body.Get("given_name"),
		FamilyName: body.Get("family_name"),
		Email:      body.Get("email"),
		Rank:       body.Get("rank"),
	}
	var err error
	if m.BirthDate, err = s.optionalBodyDate(body, "birth_date"); err != nil {
		return core.Member{}, err
	}
	if m.JoinedAt, err = s.optionalBodyDate(body, "joined_at"); err != nil {
		return core.Member{}, err
	}
	return m, nil
}

func (s *Server) optionalBodyDate(body *RequestBodyParser, key string) (time.Time, error) {
	if body.Get(key) == "" {
		return time.Time{}, nil
	}
	return body.Date(key, s.loc)
}
