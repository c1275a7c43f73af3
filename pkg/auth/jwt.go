package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultJWTSecret = "fallback_secret_change_in_production"
	tokenIssuer      = "turtleterm"
	guestSubject     = "guest"

	// TokenCookie carries the token for browser clients.
	TokenCookie = "turtle_token"
	// GuestOwner owns the shared sample library.
	GuestOwner = "guest"
)

func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}
	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" {
		logger.AuthWarn("Using fallback JWT secret - set JWT_SECRET_KEY for production")
		return defaultJWTSecret
	}
	return secret
}

func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 24)
	return time.Duration(hours) * time.Hour
}

// GuestClaims are carried by tokens of anonymous sessions.
type GuestClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserClaims are carried by tokens of logged-in users.
type UserClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Identity is what a validated token says about its holder.
type Identity struct {
	SessionID string
	Username  string
	Guest     bool
}

// Owner returns the program library the identity may write to.
func (id Identity) Owner() string {
	if id.Guest || id.Username == "" {
		return GuestOwner
	}
	return id.Username
}

func registered(subject, sessionID string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiration())),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   subject,
		ID:        sessionID,
	}
}

func sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %w", err)
	}
	return signed, nil
}

// GenerateGuestToken issues a token for an anonymous session.
func GenerateGuestToken(sessionID string) (string, error) {
	token, err := sign(GuestClaims{
		SessionID:        sessionID,
		RegisteredClaims: registered(guestSubject, sessionID),
	})
	if err != nil {
		return "", err
	}
	logger.AuthDebug("guest token issued for session %s", sessionID)
	return token, nil
}

// GenerateUserToken issues a token for a logged-in user.
func GenerateUserToken(sessionID, username string) (string, error) {
	token, err := sign(UserClaims{
		SessionID:        sessionID,
		Username:         username,
		RegisteredClaims: registered(username, sessionID),
	})
	if err != nil {
		return "", err
	}
	logger.AuthDebug("user token issued for %s (session %s)", username, sessionID)
	return token, nil
}

func keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
	}
	return []byte(getJWTSecret()), nil
}

func parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// ValidateGuestToken checks a guest token.
func ValidateGuestToken(tokenString string) (*GuestClaims, error) {
	claims := &GuestClaims{}
	if err := parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Subject != guestSubject {
		return nil, fmt.Errorf("not a guest token")
	}
	return claims, nil
}

// ValidateUserToken checks a user token.
func ValidateUserToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Username == "" || claims.Subject != claims.Username {
		return nil, fmt.Errorf("not a user token")
	}
	return claims, nil
}

// ValidateToken accepts either kind of token. The subject decides which
// claims type is used.
func ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, keyFunc)
	if err != nil {
		return Identity{}, fmt.Errorf("token parsing failed: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, fmt.Errorf("no subject found in token")
	}

	if subject == guestSubject {
		claims, err := ValidateGuestToken(tokenString)
		if err != nil {
			return Identity{}, err
		}
		return Identity{SessionID: claims.SessionID, Guest: true}, nil
	}
	claims, err := ValidateUserToken(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{SessionID: claims.SessionID, Username: claims.Username}, nil
}

// ExtractTokenFromRequest looks for a bearer header, then the cookie, then
// a token query parameter (used by websocket upgrades).
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
		return "", fmt.Errorf("invalid authorization header format")
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token found in request")
}

// RequireToken rejects requests without a valid token and stores the
// identity in the request context.
func RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("No token in request to %s: %v", r.URL.Path, err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}
		id, err := ValidateToken(tokenString)
		if err != nil {
			logger.AuthWarn("Invalid token for %s: %v", r.URL.Path, err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(NewContextWithIdentity(r.Context(), id)))
	}
}
