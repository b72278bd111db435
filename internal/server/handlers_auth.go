package server

import (
	"errors"
	"net/http"

	"blogd/internal/api"
	"blogd/internal/metrics"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		metrics.UserOperationsTotal.WithLabelValues("register", metrics.ResultError).Inc()
		return
	}

	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		metrics.UserOperationsTotal.WithLabelValues("register", metrics.ResultError).Inc()
		s.writeServiceError(w, r, err)
		return
	}

	metrics.UserOperationsTotal.WithLabelValues("register", metrics.ResultOK).Inc()
	s.log().Info("user registered", "user_id", user.ID)
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		metrics.UserOperationsTotal.WithLabelValues("login", metrics.ResultError).Inc()
		return
	}

	if _, err := s.auth.Login(r.Context(), req.Email, req.Password); err != nil {
		metrics.UserOperationsTotal.WithLabelValues("login", metrics.ResultError).Inc()
		if errors.Is(err, errInvalidCredentials) {
			s.writeServiceError(w, r, invalidCredentials())
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	metrics.UserOperationsTotal.WithLabelValues("login", metrics.ResultOK).Inc()
	s.writeJSON(w, http.StatusOK, api.LoginResponse{Msg: api.LoginSuccessMessage})
}
