// Package auth manages user accounts and session tokens for the served
// interpreter. Passwords are stored as bcrypt hashes in the shared
// database; sessions are identified by HS256-signed JWTs carrying the
// session id and username.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/journich/altairbasic/pkg/configuration"
	"github.com/journich/altairbasic/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

const fallbackSecret = "change_me_before_serving"

// Service validates credentials and issues tokens against one database.
type Service struct {
	db *sql.DB
}

// New wraps an open database and ensures the users table exists.
func New(db *sql.DB) (*Service, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		last_login INTEGER
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}
	return &Service{db: db}, nil
}

func secretKey() []byte {
	if env := os.Getenv("ALTAIRBASIC_JWT_SECRET"); env != "" {
		return []byte(env)
	}
	secret := configuration.GetString("Authentication", "jwt_secret", fallbackSecret)
	if secret == fallbackSecret {
		logger.Warn(logger.AreaAuth, "using fallback JWT secret - set ALTAIRBASIC_JWT_SECRET for production")
	}
	return []byte(secret)
}

func tokenLifetime() time.Duration {
	return configuration.GetDuration("Authentication", "token_lifetime", 24*time.Hour)
}

// validateUsername applies the configured length limits.
func validateUsername(username string) error {
	minLen := configuration.GetInt("Authentication", "min_username_length", 3)
	maxLen := configuration.GetInt("Authentication", "max_username_length", 20)
	if len(username) < minLen || len(username) > maxLen {
		return fmt.Errorf("username must be %d-%d characters", minLen, maxLen)
	}
	for _, c := range username {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return errors.New("username may contain only letters, digits and underscore")
		}
	}
	return nil
}

func validatePassword(password string) error {
	minLen := configuration.GetInt("Authentication", "min_password_length", 6)
	maxLen := configuration.GetInt("Authentication", "max_password_length", 100)
	if len(password) < minLen || len(password) > maxLen {
		return fmt.Errorf("password must be %d-%d characters", minLen, maxLen)
	}
	return nil
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	cost := configuration.GetInt("Authentication", "password_hash_cost", 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		username, string(hash), time.Now().Unix())
	if err != nil {
		// The primary key constraint is the duplicate signal.
		return ErrUserExists
	}
	logger.Info(logger.AreaAuth, "registered user %q", username)
	return nil
}

// Authenticate checks the credentials and records the login time.
func (s *Service) Authenticate(username, password string) error {
	var hash string
	err := s.db.QueryRow(
		`SELECT password FROM users WHERE username = ?`, username).Scan(&hash)
	if err == sql.ErrNoRows {
		// Burn comparable time so absent users cost the same as wrong
		// passwords.
		bcrypt.CompareHashAndPassword([]byte("$2a$12$invalidinvalidinvalidinvalid"), []byte(password))
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		logger.Warn(logger.AreaAuth, "failed login for %q", username)
		return ErrInvalidCredentials
	}
	s.db.Exec(`UPDATE users SET last_login = ? WHERE username = ?`, time.Now().Unix(), username)
	logger.Info(logger.AreaAuth, "user %q logged in", username)
	return nil
}

// SessionClaims are the JWT claims for one interpreter session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs a token binding the session to the user.
func IssueToken(sessionID, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "altairbasic",
			Subject:   username,
			ID:        sessionID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secretKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	logger.Debug(logger.AreaAuth, "issued token for session %s", sessionID)
	return signed, nil
}

// VerifyToken parses and validates a token, returning its claims.
func VerifyToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secretKey(), nil
		})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
