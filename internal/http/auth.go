package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Clark-Hu/movie-diary/internal/auth"
	"github.com/Clark-Hu/movie-diary/internal/domain"
	"github.com/Clark-Hu/movie-diary/internal/repository"
)

const (
	msgRequired         = "This field is required."
	msgPasswordShort    = "Ensure this field has at least 8 characters."
	msgPasswordMismatch = "Password fields didn't match."
	msgUsernameTaken    = "A user with that username already exists."
	msgMissingLogin     = "Please provide both username and password"
	msgBadLogin         = "Invalid username or password"
	msgBadRefresh       = "Token is invalid or expired"
	msgAccountCreated   = "Account created successfully!"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type accessResponse struct {
	Access string `json:"access"`
}

func validateRegistration(reg domain.Registration) []domain.FieldError {
	var errs []domain.FieldError
	if reg.Username == "" {
		errs = append(errs, domain.FieldError{Field: "username", Message: msgRequired})
	} else if len([]rune(reg.Username)) > 150 {
		errs = append(errs, domain.FieldError{Field: "username", Message: "Ensure this field has no more than 150 characters."})
	}
	switch {
	case reg.Password == "":
		errs = append(errs, domain.FieldError{Field: "password", Message: msgRequired})
	case len([]rune(reg.Password)) < auth.MinPasswordLength:
		errs = append(errs, domain.FieldError{Field: "password", Message: msgPasswordShort})
	}
	switch {
	case reg.Password2 == "":
		errs = append(errs, domain.FieldError{Field: "password2", Message: msgRequired})
	case len([]rune(reg.Password2)) < auth.MinPasswordLength:
		errs = append(errs, domain.FieldError{Field: "password2", Message: msgPasswordShort})
	}
	if len(errs) == 0 && reg.Password != reg.Password2 {
		errs = append(errs, domain.FieldError{Field: "password", Message: msgPasswordMismatch})
	}
	return errs
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := decodeJSONBody(w, r, &reg); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if errs := validateRegistration(reg); len(errs) > 0 {
		s.respondFields(w, errs)
		return
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		s.logger.WithError(err).Error("hash password failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	user, err := s.repo.Users.Create(r.Context(), reg.Username, reg.Email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.respondFields(w, []domain.FieldError{{Field: "username", Message: msgUsernameTaken}})
			return
		}
		s.logger.WithError(err).Error("create user failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	s.logger.WithField("username", user.Username).Info("user registered")
	s.respondTokens(w, http.StatusCreated, user, msgAccountCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeLenientBody(w, r, &creds); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		s.respondError(w, http.StatusBadRequest, msgMissingLogin)
		return
	}

	user, err := s.repo.Users.GetByUsername(r.Context(), creds.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, msgBadLogin)
			return
		}
		s.logger.WithError(err).Error("load user failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, creds.Password); err != nil {
		s.respondError(w, http.StatusUnauthorized, msgBadLogin)
		return
	}
	s.respondTokens(w, http.StatusOK, user, fmt.Sprintf("Welcome back, %s!", user.Username))
}

func (s *Server) respondTokens(w http.ResponseWriter, status int, user domain.User, message string) {
	access, refresh, err := s.issuer.Pair(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("issue tokens failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	s.respondJSON(w, status, domain.AuthTokens{
		User:    user,
		Access:  access,
		Refresh: refresh,
		Message: message,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeLenientBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		s.respondFields(w, []domain.FieldError{{Field: "refresh", Message: msgRequired}})
		return
	}
	userID, err := s.issuer.Verify(req.Refresh, auth.RefreshToken)
	if err != nil {
		s.respondDetail(w, http.StatusUnauthorized, msgBadRefresh)
		return
	}
	access, err := s.issuer.Access(userID)
	if err != nil {
		s.logger.WithError(err).Error("issue access token failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, accessResponse{Access: access})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.Users.GetByID(r.Context(), currentUser(r))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondDetail(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}
		s.logger.WithError(err).Error("load current user failed")
		s.respondError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}
