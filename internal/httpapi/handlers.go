// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Wire types. Field names match the conventional auth-service contract, so
// existing clients keep working against this implementation.
type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Requires2FA bool   `json:"requires2FA"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verify2FARequest struct {
	Email          string `json:"email"`
	LoginAttemptID string `json:"loginAttemptId"`
	Code           string `json:"2FACode"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type challengeResponse struct {
	Message        string `json:"message"`
	LoginAttemptID string `json:"loginAttemptId"`
}

type subjectResponse struct {
	Subject string `json:"subject"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.service.Register(r.Context(), req.Email, req.Password, req.Requires2FA)
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_INVALID_CREDENTIALS":
			s.countRegistration("invalid")
			s.respondError(w, r, http.StatusBadRequest, "invalid credentials", err)
		case "AUTH_ALREADY_EXISTS":
			s.countRegistration("exists")
			s.respondError(w, r, http.StatusConflict, "user already exists", err)
		default:
			s.countRegistration("error")
			s.respondError(w, r, http.StatusInternalServerError, "unexpected error", err)
		}
		return
	}

	s.countRegistration("success")
	s.respond(w, http.StatusCreated, messageResponse{Message: "User created successfully!"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_INVALID_CREDENTIALS":
			s.countLogin("rejected")
			s.respondError(w, r, http.StatusUnauthorized, "incorrect credentials", err)
		default:
			s.countLogin("error")
			s.respondError(w, r, http.StatusInternalServerError, "unexpected error", err)
		}
		return
	}

	if result.ChallengePending {
		s.countLogin("challenge")
		s.respond(w, http.StatusPartialContent, challengeResponse{
			Message:        "2FA required",
			LoginAttemptID: result.ChallengeID.String(),
		})
		return
	}

	s.countLogin("success")
	s.respond(w, http.StatusOK, tokenResponse{Token: result.Token})
}

func (s *Server) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if !s.decode(w, r, &req) {
		return
	}

	token, err := s.service.VerifyChallenge(r.Context(), req.Email, req.LoginAttemptID, req.Code)
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_INVALID_ATTEMPT", "AUTH_CHALLENGE_UNKNOWN":
			s.countChallengeVerification("rejected")
			s.respondError(w, r, http.StatusUnauthorized, "incorrect credentials", err)
		default:
			s.countChallengeVerification("error")
			s.respondError(w, r, http.StatusInternalServerError, "unexpected error", err)
		}
		return
	}

	s.countChallengeVerification("success")
	s.respond(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if !s.decode(w, r, &req) {
		return
	}

	claims, err := s.service.VerifyToken(r.Context(), req.Token)
	if err != nil {
		switch errutil.Code(err) {
		case "AUTH_TOKEN_MISSING":
			s.countTokenValidation("rejected")
			s.respondError(w, r, http.StatusBadRequest, "token is required", err)
		case "AUTH_TOKEN_INVALID":
			s.countTokenValidation("rejected")
			s.respondError(w, r, http.StatusUnauthorized, "invalid token", err)
		default:
			s.countTokenValidation("error")
			s.respondError(w, r, http.StatusInternalServerError, "unexpected error", err)
		}
		return
	}

	s.countTokenValidation("valid")
	s.respond(w, http.StatusOK, subjectResponse{Subject: claims.Subject})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.respondError(w, r, http.StatusBadRequest, "missing bearer token", nil)
		return
	}

	if err := s.service.Logout(r.Context(), token); err != nil {
		switch errutil.Code(err) {
		case "AUTH_TOKEN_MISSING":
			s.respondError(w, r, http.StatusBadRequest, "token is required", err)
		case "AUTH_TOKEN_INVALID":
			s.respondError(w, r, http.StatusUnauthorized, "invalid token", err)
		default:
			s.respondError(w, r, http.StatusInternalServerError, "unexpected error", err)
		}
		return
	}

	s.countRevocation()
	s.respond(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// decode parses the JSON request body into v, answering 422 on malformed
// input. Returns false if the request was already answered.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "malformed request body", err)
		return false
	}
	return true
}

// respond writes a JSON response body with the given status.
func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// respondError writes a JSON error body and logs the underlying cause. The
// client sees only the generic message; details stay in the log, keyed by
// request id.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		errutil.LogError(s.logger.With("request_id", RequestID(r.Context())), "request failed", err)
	} else if err != nil {
		s.logger.Debug("request rejected",
			"request_id", RequestID(r.Context()),
			"status", status,
			"error", err.Error(),
		)
	}
	s.respond(w, status, errorResponse{Error: message})
}

// Metric helpers are nil-safe so the server runs without an observability
// registry in tests and minimal deployments.

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countChallengeVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.ChallengeVerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countTokenValidation(outcome string) {
	if s.metrics != nil {
		s.metrics.TokenValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countRevocation() {
	if s.metrics != nil {
		s.metrics.RevocationsTotal.Inc()
	}
}
