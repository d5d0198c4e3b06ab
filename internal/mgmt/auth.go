package mgmt

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Role defines the access level of a caller.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleReadOnly Role = "readonly"
)

// Auth modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeAPIKey = "api-key"
	AuthModeNone   = "none"
)

const (
	localRole  = "role"
	localActor = "actor"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode      string // "jwt", "api-key", "none"
	APIKey    string // from env MGMT_API_KEY
	JWTSecret string // HS256 secret, from env JWT_SECRET
}

// Claims are the JWT claims the API accepts. Subject names the actor.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware returns a Fiber middleware that validates the Authorization header.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip auth for probe endpoints
		path := c.Path()
		if isProbe(path) {
			return c.Next()
		}

		if cfg.Mode == AuthModeNone {
			c.Locals(localRole, RoleAdmin)
			c.Locals(localActor, "anonymous")
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		switch cfg.Mode {
		case AuthModeAPIKey:
			if cfg.APIKey != "" && token == cfg.APIKey {
				c.Locals(localRole, RoleAdmin)
				c.Locals(localActor, "api-key")
				return c.Next()
			}
			logger.Warn().Str("path", path).Str("method", c.Method()).Msg("unauthorized request: invalid API key")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_api_key", "Unauthorized",
				"Invalid API key")

		case AuthModeJWT:
			claims, err := parseToken(token, cfg.JWTSecret)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Str("method", c.Method()).Msg("unauthorized request: invalid token")
				return problemResponse(c, fiber.StatusUnauthorized,
					"invalid_token", "Unauthorized",
					"Invalid or expired token")
			}
			c.Locals(localRole, claims.Role)
			c.Locals(localActor, claims.Subject)
			return c.Next()
		}

		return problemResponse(c, fiber.StatusUnauthorized,
			"auth_misconfigured", "Unauthorized",
			"Authentication mode is not supported")
	}
}

func parseToken(raw, secret string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("no JWT secret configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// requireRole returns a middleware that enforces a minimum role level.
func requireRole(minRole Role) fiber.Handler {
	roleLevel := map[Role]int{
		RoleReadOnly: 1,
		RoleOperator: 2,
		RoleAdmin:    3,
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localRole).(Role)
		if roleLevel[role] < roleLevel[minRole] {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_role", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}

func actorOf(c *fiber.Ctx) string {
	if a, ok := c.Locals(localActor).(string); ok && a != "" {
		return a
	}
	return "unknown"
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
