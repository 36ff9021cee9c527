package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/voxscribe/api/internal/config"
	"github.com/voxscribe/api/pkg/response"
)

// Auth modes
const (
	AuthModeNone   = "none"
	AuthModeAPIKey = "apikey"
	AuthModeJWT    = "jwt"
)

// HeaderAPIKey carries the static key in apikey mode.
const HeaderAPIKey = "X-API-Key"

// ServiceClaims identifies a calling service in jwt mode.
type ServiceClaims struct {
	ClientID string `json:"clientId"`
	jwt.RegisteredClaims
}

// AuthMiddleware guards the transcription endpoints. In apikey mode an
// empty configured key disables enforcement (the server logs a warning
// at startup instead of failing closed); in jwt mode a bearer token
// signed with the shared secret is required.
type AuthMiddleware struct {
	mode      string
	apiKey    string
	jwtSecret string
}

func NewAuthMiddleware(cfg *config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		mode:      cfg.Mode,
		apiKey:    cfg.APIKey,
		jwtSecret: cfg.JWTSecret,
	}
}

// Authenticate returns the fiber handler for the configured mode.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	switch m.mode {
	case AuthModeJWT:
		return m.authenticateJWT
	case AuthModeAPIKey:
		return m.authenticateAPIKey
	default:
		return func(c *fiber.Ctx) error { return c.Next() }
	}
}

func (m *AuthMiddleware) authenticateAPIKey(c *fiber.Ctx) error {
	if m.apiKey == "" {
		return c.Next()
	}

	key := c.Get(HeaderAPIKey)
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1 {
		return response.Forbidden(c, "Invalid or missing API key")
	}

	return c.Next()
}

func (m *AuthMiddleware) authenticateJWT(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Unauthorized(c, "Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return response.Unauthorized(c, "Invalid authorization header format")
	}

	token, err := jwt.ParseWithClaims(parts[1], &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired token")
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return response.Unauthorized(c, "Invalid token claims")
	}

	c.Locals("clientId", claims.ClientID)
	return c.Next()
}

// GetClientID extracts the authenticated client id from context.
func GetClientID(c *fiber.Ctx) string {
	if clientID, ok := c.Locals("clientId").(string); ok {
		return clientID
	}
	return ""
}

// GenerateToken creates a signed service token (useful for testing).
func (m *AuthMiddleware) GenerateToken(clientID string) (string, error) {
	claims := ServiceClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "voxscribe-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}
