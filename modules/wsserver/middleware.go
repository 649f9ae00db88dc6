package wsserver

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/community-chat/domain/chat"
	"github.com/example/community-chat/modules/auth"
)

// UserContextKey is the key the authenticated user is stored under in
// the Fiber context.
const UserContextKey = "user"

// AuthMiddleware validates the bearer token and binds the account to
// the request context.
func AuthMiddleware(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required. Use: Bearer <token>",
			})
		}

		user, err := authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects requests from non-admin accounts. It must run
// after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || user.Role != chat.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: "Admin role required",
			})
		}
		return c.Next()
	}
}

// UpgradeGatekeeper authenticates a websocket upgrade request. It runs
// before the upgrade, so a bad credential is refused as plain HTTP and
// no socket ever exists for it.
func UpgradeGatekeeper(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authentication token is required",
			})
		}
		user, err := authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}
		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

// CurrentUser returns the account bound by AuthMiddleware, or nil.
func CurrentUser(c *fiber.Ctx) *chat.User {
	user, _ := c.Locals(UserContextKey).(*chat.User)
	return user
}

// bearerToken extracts the credential from the Authorization header or,
// for websocket upgrades where headers are awkward for browser clients,
// the token query parameter.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
