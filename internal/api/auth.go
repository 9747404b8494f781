package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/jmorren/authcore/internal/audit"
	"github.com/jmorren/authcore/internal/auth"
)

// ─── Request/Response Types ────────────────────────────────────────

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries the access token in the body; the refresh token
// travels only in the HttpOnly cookie.
type loginResponse struct {
	User        *auth.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// decodeJSON parses the request body into v. Mutating endpoints require an
// application/json content type; anything else is a validation failure, not
// a 415, to keep the error envelope uniform.
func decodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errValidation("Content-Type must be application/json")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errValidation("Invalid JSON body")
	}
	return nil
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleRegister creates a new account. All validation runs before any
// repository access, so a malformed request never reveals whether the
// email is taken.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errValidation("All fields are required")
	}
	if !auth.IsValidEmail(req.Email) {
		return errValidation("Email format is invalid")
	}
	if len(req.Password) < auth.MinPasswordLength {
		return errValidation("Password must be at least 6 characters long")
	}
	if len(req.Username) < auth.MinUsernameLength {
		return errValidation("Username must be at least 3 characters long")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
	}
	if err := s.userRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			return errConflict("User already exists with this email")
		}
		return err
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	s.recordEvent(r, audit.ActionRegister, user.ID, map[string]any{"email": user.Email})
	writeSuccess(w, http.StatusCreated, user, "User registered successfully")
	return nil
}

// handleLogin verifies credentials and starts a session. Unknown email and
// wrong password produce byte-identical responses so login cannot be used
// to probe which addresses have accounts.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if req.Email == "" || req.Password == "" {
		return errValidation("Email and password are required")
	}
	if !auth.IsValidEmail(req.Email) {
		return errValidation("Invalid email format")
	}

	user, err := s.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.recordEvent(r, audit.ActionLoginFailed, "", map[string]any{"email": req.Email})
			return errInvalidCredentials()
		}
		return err
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		s.recordEvent(r, audit.ActionLoginFailed, user.ID, map[string]any{"email": req.Email})
		return errInvalidCredentials()
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return err
	}

	s.setRefreshCookie(w, refreshToken)

	s.logger.Info("user logged in", "user_id", user.ID)
	s.recordEvent(r, audit.ActionLogin, user.ID, nil)
	writeSuccess(w, http.StatusOK, loginResponse{User: user, AccessToken: accessToken}, "Login successful")
	return nil
}

// handleMe returns the authenticated user's own profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	user := userFromContext(r.Context())
	writeSuccess(w, http.StatusOK, user, "User profile fetched successfully")
	return nil
}

// handleListUsers returns every account. Admin only; password hashes never
// serialize.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := s.userRepo.List(r.Context())
	if err != nil {
		return err
	}

	writeSuccess(w, http.StatusOK, users, "Admin: All users fetched successfully")
	return nil
}

// handleUpdateProfile changes the caller's username and/or email.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) error {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if req.Username == "" && req.Email == "" {
		return errValidation("Please provide username or email to update")
	}
	if req.Email != "" && !auth.IsValidEmail(req.Email) {
		return errValidation("Email format is invalid")
	}
	if req.Username != "" && len(req.Username) < auth.MinUsernameLength {
		return errValidation("Username must be at least 3 characters long")
	}

	user := userFromContext(r.Context())
	updated := *user
	if req.Username != "" {
		updated.Username = req.Username
	}
	if req.Email != "" {
		updated.Email = req.Email
	}

	if err := s.userRepo.Update(r.Context(), &updated); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return errConflict("User already exists with this email")
		case errors.Is(err, auth.ErrUserNotFound):
			return errNotFound("User not found")
		}
		return err
	}

	s.logger.Info("profile updated", "user_id", user.ID)
	s.recordEvent(r, audit.ActionProfileUpdate, user.ID, nil)
	writeSuccess(w, http.StatusOK, map[string]string{
		"username": updated.Username,
		"email":    updated.Email,
	}, "Profile updated successfully")
	return nil
}

// handleUpdatePassword verifies the old password before storing a hash of
// the new one.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) error {
	var req updatePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return errValidation("Old and new passwords are required")
	}
	if len(req.NewPassword) < auth.MinPasswordLength {
		return errValidation("Password must be at least 6 characters long")
	}

	user := userFromContext(r.Context())

	match, err := auth.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return errValidation("Old password is incorrect")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return errNotFound("User not found")
		}
		return err
	}

	s.logger.Info("password updated", "user_id", user.ID)
	s.recordEvent(r, audit.ActionPasswordChange, user.ID, nil)
	writeSuccess(w, http.StatusOK, nil, "Password updated successfully")
	return nil
}

// handleRefresh mints a new access token from the refresh cookie. The
// refresh token is not rotated: the original cookie stays valid until it
// expires, and logout cannot invalidate it server-side. Every failure mode
// is a 401.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return errUnauthenticated("Refresh token missing")
	}

	userID, err := s.tokens.VerifyRefreshToken(cookie.Value)
	if err != nil {
		return errUnauthenticated("Invalid or expired refresh token")
	}

	// The account must still exist; a signature alone is not a session.
	user, err := s.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		return errUnauthenticated("User not found")
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return err
	}

	s.recordEvent(r, audit.ActionRefresh, user.ID, nil)
	writeSuccess(w, http.StatusOK, refreshResponse{AccessToken: accessToken}, "Access token refreshed")
	return nil
}

// handleLogout clears both auth cookies. Logout is stateless: a refresh
// token captured before logout remains valid until expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) error {
	clearCookie(w, accessTokenCookie)
	clearCookie(w, refreshTokenCookie)

	s.recordEvent(r, audit.ActionLogout, "", nil)
	writeSuccess(w, http.StatusOK, nil, "Logged out successfully")
	return nil
}

// ─── Cookies ───────────────────────────────────────────────────────

// setRefreshCookie attaches the refresh token as an HttpOnly cookie scoped
// to the whole site. Secure is always set; behind plain HTTP in development
// browsers still accept it for localhost.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie expires a cookie immediately.
func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
