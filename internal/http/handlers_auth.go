package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeAndValidate(w, r, s.validate, &req); err != nil {
		if errors.Is(err, errMalformedBody) || isValidationError(err) {
			BadRequestError("All fields are required").Write(w)
			return
		}
		s.internalError(w, r, "Signup failed", log.OpSignup, err)
		return
	}

	u, token, err := s.auth.Signup(r.Context(), services.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	switch {
	case errors.Is(err, services.ErrPasswordMismatch):
		BadRequestError("Passwords do not match").Write(w)
		return
	case errors.Is(err, core.ErrEmailTaken):
		BadRequestError("Email already exists").Write(w)
		return
	case err != nil:
		s.internalError(w, r, "Signup failed", log.OpSignup, err)
		return
	}

	auth.SetSessionCookie(w, token, s.tokens.TTL(), s.secureCookies)
	NewJSONResponse().Status(http.StatusCreated).Body(authBody{
		Message: "Signup successful",
		User:    userBody{Name: u.Name, Email: u.Email},
	}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, s.validate, &req); err != nil {
		if errors.Is(err, errMalformedBody) || isValidationError(err) {
			BadRequestError("Email and password required").Write(w)
			return
		}
		s.internalError(w, r, "Login failed", log.OpLogin, err)
		return
	}

	u, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		NotFoundError("User does not exist").Write(w)
		return
	case errors.Is(err, core.ErrInvalidCredentials):
		BadRequestError("Invalid credentials").Write(w)
		return
	case err != nil:
		s.internalError(w, r, "Login failed", log.OpLogin, err)
		return
	}

	auth.SetSessionCookie(w, token, s.tokens.TTL(), s.secureCookies)
	NewJSONResponse().Body(authBody{
		Message: "Login successful",
		User:    userBody{Name: u.Name, Email: u.Email},
	}).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, s.secureCookies)
	NewJSONResponse().Message("Logout successful").Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Profile(r.Context(), ownerID(r))
	if errors.Is(err, core.ErrUserNotFound) || errors.Is(err, core.ErrNotFound) {
		NotFoundError("User not found").Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to fetch profile", log.OpProfile, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}
