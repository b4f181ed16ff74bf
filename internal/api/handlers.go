package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/abszero/smartledger/internal/models"
	"github.com/abszero/smartledger/internal/service"
)

type registerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token  string         `json:"token"`
	Person personResponse `json:"person"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	person, token, err := s.authSvc.Register(r.Context(), req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, Person: toPersonResponse(person)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	person, token, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Person: toPersonResponse(person)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	person, err := s.authSvc.Profile(r.Context(), GetSub(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonResponse(person))
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var input service.GroupInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	group, err := s.groups.Create(r.Context(), GetSub(r.Context()), &input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.Get(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var update service.GroupUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	group, err := s.groups.Update(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"], &update)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Delete(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.Join(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, s.logger, fmt.Errorf("invitee email is required: %w", models.ErrValidation))
		return
	}

	if err := s.groups.Invite(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"], req.Email); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.groups.RemoveMember(r.Context(), GetSub(r.Context()), vars["id"], vars["sub"]); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input service.TransactionInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	tx, err := s.txs.Create(r.Context(), GetSub(r.Context()), &input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.txs.Get(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var update service.TransactionUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, s.logger, fmt.Errorf("invalid request body: %w", models.ErrValidation))
		return
	}

	tx, err := s.txs.Update(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"], &update)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.txs.Delete(r.Context(), GetSub(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditor.AuditGroups(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
