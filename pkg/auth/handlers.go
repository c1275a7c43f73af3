package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/store"

	"github.com/google/uuid"
)

// UserStore is the account storage the handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) error
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	users UserStore
}

// NewHandler returns auth handlers backed by users.
func NewHandler(users UserStore) *Handler {
	return &Handler{users: users}
}

// CredentialsRequest is the body of register and login requests.
type CredentialsRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	SessionID string `json:"sessionId,omitempty"`
}

// AuthResponse is returned by every auth endpoint.
type AuthResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Username  string `json:"username,omitempty"`
	Guest     bool   `json:"guest,omitempty"`
	Message   string `json:"message"`
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

// preflight writes CORS headers and reports whether the request is done.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	setCORSHeaders(w, method)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	if r.Method != method {
		logger.AuthWarn("Invalid method %s for %s", r.Method, r.URL.Path)
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return true
	}
	return false
}

func generateSessionID() string {
	return uuid.New().String()
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(getTokenExpiration().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// validateCredentials applies the [Authentication] length limits.
func validateCredentials(username, password string) error {
	minUser := configuration.GetInt("Authentication", "min_username_length", 3)
	maxUser := configuration.GetInt("Authentication", "max_username_length", 20)
	minPass := configuration.GetInt("Authentication", "min_password_length", 6)
	maxPass := configuration.GetInt("Authentication", "max_password_length", 100)

	switch {
	case len(username) < minUser || len(username) > maxUser:
		return fmt.Errorf("username must be %d to %d characters", minUser, maxUser)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("username may only contain letters, digits and underscores")
	case username == GuestOwner:
		return fmt.Errorf("username %q is reserved", username)
	case len(password) < minPass || len(password) > maxPass:
		return fmt.Errorf("password must be %d to %d characters", minPass, maxPass)
	}
	return nil
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("Invalid JSON in %s request: %v", r.URL.Path, err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return req, false
	}
	if req.Username == "" || req.Password == "" {
		respondWithError(w, "Username and password required", http.StatusBadRequest)
		return req, false
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}
	return req, true
}

func (h *Handler) issueUserToken(w http.ResponseWriter, sessionID, username, message string) {
	token, err := GenerateUserToken(sessionID, username)
	if err != nil {
		logger.AuthError("Failed to generate token for %s: %v", username, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	setTokenCookie(w, token)
	json.NewEncoder(w).Encode(AuthResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Username:  username,
		Message:   message,
	})
}

// HandleCreateSession starts an anonymous session and returns its token.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}

	sessionID := generateSessionID()
	token, err := GenerateGuestToken(sessionID)
	if err != nil {
		logger.AuthError("Failed to generate guest token: %v", err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	setTokenCookie(w, token)

	logger.AuthInfo("New guest session %s for %s", sessionID, GetClientIP(r))
	json.NewEncoder(w).Encode(AuthResponse{
		Success:   true,
		Token:     token,
		SessionID: sessionID,
		Guest:     true,
		Message:   "Session created successfully",
	})
}

// HandleRegister creates an account and logs it in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := validateCredentials(req.Username, req.Password); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.users.CreateUser(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			respondWithError(w, "Username already taken", http.StatusConflict)
			return
		}
		logger.AuthError("Registration of %s failed: %v", req.Username, err)
		respondWithError(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	logger.AuthInfo("Registered %s from %s", req.Username, GetClientIP(r))
	h.issueUserToken(w, req.SessionID, req.Username, "Registration successful")
}

// HandleLogin checks credentials and returns a user token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := h.users.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidCredentials):
			respondWithError(w, "Invalid username or password", http.StatusUnauthorized)
		case errors.Is(err, store.ErrInactiveUser):
			respondWithError(w, "Account disabled", http.StatusForbidden)
		default:
			logger.AuthError("Login of %s failed: %v", req.Username, err)
			respondWithError(w, "Login failed", http.StatusInternalServerError)
		}
		return
	}
	logger.AuthInfo("Login of %s from %s", req.Username, GetClientIP(r))
	h.issueUserToken(w, req.SessionID, req.Username, "Login successful")
}

// HandleTokenValidation reports what a token identifies.
func (h *Handler) HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		respondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}
	id, err := ValidateToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token validation failed: %v", err)
		respondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(AuthResponse{
		Success:   true,
		SessionID: id.SessionID,
		Username:  id.Username,
		Guest:     id.Guest,
		Message:   "Token valid",
	})
}

// HandleLogout clears the token cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	json.NewEncoder(w).Encode(AuthResponse{Success: true, Message: "Logout successful"})
}

// GetClientIP prefers proxy headers over the socket address.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(AuthResponse{Success: false, Message: message})
}
